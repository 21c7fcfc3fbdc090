package paymentsvc

import (
	"strings"

	"helpdesk/models"
)

// Outcome is the target state computed for one incoming event. When
// Changed is false the event vocabulary was not recognized and both
// statuses echo the current values (a deliberate no-op, not an error:
// providers add vocabulary without notice).
type Outcome struct {
	PaymentStatus string
	TicketStatus  string
	Changed       bool
}

// Transition maps a provider event onto target payment and ticket
// statuses. Pure and total: every input yields a defined output.
//
// Only a transition into PAID advances the ticket (to RECEIVED,
// whatever its prior status); failures and expiries leave the ticket
// where it was.
func Transition(event, paymentStatus, ticketStatus string) Outcome {
	switch strings.ToLower(strings.TrimSpace(event)) {
	case "success", "paid", "settlement":
		return Outcome{PaymentStatus: models.PaymentPaid, TicketStatus: models.TicketReceived, Changed: true}
	case "failed", "deny":
		return Outcome{PaymentStatus: models.PaymentFailed, TicketStatus: ticketStatus, Changed: true}
	case "expired", "cancel":
		return Outcome{PaymentStatus: models.PaymentExpired, TicketStatus: ticketStatus, Changed: true}
	default:
		return Outcome{PaymentStatus: paymentStatus, TicketStatus: ticketStatus, Changed: false}
	}
}

// AdminTransition maps an explicit administrative status edit. Unlike
// webhook events the allowed vocabulary is closed; anything outside it
// returns ok=false and the caller rejects the request.
func AdminTransition(newStatus, paymentStatus, ticketStatus string) (Outcome, bool) {
	switch strings.ToUpper(strings.TrimSpace(newStatus)) {
	case models.PaymentPaid:
		return Outcome{PaymentStatus: models.PaymentPaid, TicketStatus: models.TicketReceived, Changed: true}, true
	case models.PaymentRejected:
		return Outcome{PaymentStatus: models.PaymentRejected, TicketStatus: models.TicketDraft, Changed: true}, true
	case models.PaymentPending:
		return Outcome{PaymentStatus: models.PaymentPending, TicketStatus: models.TicketDraft, Changed: true}, true
	default:
		return Outcome{PaymentStatus: paymentStatus, TicketStatus: ticketStatus, Changed: false}, false
	}
}
