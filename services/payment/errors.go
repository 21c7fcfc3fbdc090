package paymentsvc

import "errors"

// Error taxonomy for the reconciliation engine. Resolution and state
// computation fail without writing; only the reconciliation transaction
// writes, and it writes all-or-nothing.
var (
	// ErrValidation marks missing or malformed request fields.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound means no pending payment matched the query.
	ErrNotFound = errors.New("payment not found")

	// ErrAmbiguousMatch means more than one pending payment matched.
	// The engine never picks one: a wrong silent pick would attribute
	// money to the wrong customer, so a human has to adjudicate.
	ErrAmbiguousMatch = errors.New("ambiguous match")

	// ErrIntegrityMismatch means the payment id and order id named in an
	// admin edit do not belong to the same payment.
	ErrIntegrityMismatch = errors.New("payment id and order id mismatch")

	// ErrTransactionFailed means the storage commit failed or the payment
	// was claimed concurrently; payment and ticket state are unchanged.
	ErrTransactionFailed = errors.New("reconciliation transaction failed")
)
