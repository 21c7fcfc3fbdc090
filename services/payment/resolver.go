package paymentsvc

import (
	"context"
	"fmt"

	"helpdesk/models"
)

// VerifyQuery is a manual verification request from an operator who is
// looking at a bank mutation: the transferred amount plus the unique
// code suffix, or the exact order id when the operator has it.
type VerifyQuery struct {
	Amount     int64  `json:"amount"`
	UniqueCode string `json:"unique_code"`
	OrderID    string `json:"order_id"`
}

// Match is the single pending payment a verification query resolved to,
// with its owning ticket and customer.
type Match struct {
	Payment  models.Payment  `json:"payment"`
	Ticket   models.Ticket   `json:"ticket"`
	Customer models.Customer `json:"customer"`
}

// Finder is the read-only lookup surface the resolver needs. All methods
// are pure reads; resolving never mutates anything and can be retried
// freely.
type Finder interface {
	PendingByOrderID(ctx context.Context, orderID string) ([]models.Payment, error)
	PendingByAmount(ctx context.Context, provider string, amount int64) ([]models.Payment, error)
	TicketWithCustomer(ctx context.Context, ticketID uint) (*models.Ticket, *models.Customer, error)
}

// Resolve maps a verification query to exactly one pending payment.
//
// An explicit order id takes precedence because it is already unique.
// Otherwise all pending QRIS payments with the amount are fetched and
// filtered by disambiguation code. Zero survivors is ErrNotFound; more
// than one is ErrAmbiguousMatch, never a guess.
func Resolve(ctx context.Context, f Finder, q VerifyQuery) (*Match, error) {
	var (
		candidates []models.Payment
		err        error
	)

	switch {
	case q.OrderID != "":
		candidates, err = f.PendingByOrderID(ctx, q.OrderID)
		if err != nil {
			return nil, err
		}
	default:
		if q.Amount <= 0 {
			return nil, fmt.Errorf("%w: amount is required and must be positive", ErrValidation)
		}
		if q.UniqueCode == "" {
			return nil, fmt.Errorf("%w: unique_code is required for amount search", ErrValidation)
		}
		all, err := f.PendingByAmount(ctx, models.ProviderQRIS, q.Amount)
		if err != nil {
			return nil, err
		}
		for i := range all {
			if code, ok := UniqueCode(&all[i]); ok && code == q.UniqueCode {
				candidates = append(candidates, all[i])
			}
		}
	}

	switch len(candidates) {
	case 0:
		return nil, ErrNotFound
	case 1:
		// fall through
	default:
		return nil, fmt.Errorf("%w: %d pending payments share this amount and code", ErrAmbiguousMatch, len(candidates))
	}

	p := candidates[0]
	ticket, customer, err := f.TicketWithCustomer(ctx, p.TicketID)
	if err != nil {
		return nil, err
	}
	if ticket == nil || customer == nil {
		return nil, ErrNotFound
	}
	return &Match{Payment: p, Ticket: *ticket, Customer: *customer}, nil
}
