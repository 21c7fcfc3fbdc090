package paymentsvc

import (
	"testing"

	"helpdesk/models"

	"github.com/stretchr/testify/require"
)

func TestTransition_PaidEventsAdvanceTicket(t *testing.T) {
	// Every success spelling settles the payment and moves the ticket to
	// RECEIVED regardless of where the ticket was.
	events := []string{"success", "paid", "settlement", "SUCCESS", "Paid", " Settlement "}
	priorTickets := []string{models.TicketDraft, models.TicketInReview, models.TicketNeedMoreInfo}

	for _, ev := range events {
		for _, ts := range priorTickets {
			out := Transition(ev, models.PaymentPending, ts)
			require.True(t, out.Changed, "event %q", ev)
			require.Equal(t, models.PaymentPaid, out.PaymentStatus)
			require.Equal(t, models.TicketReceived, out.TicketStatus)
		}
	}
}

func TestTransition_FailureEventsKeepTicket(t *testing.T) {
	cases := []struct {
		event  string
		status string
	}{
		{"failed", models.PaymentFailed},
		{"deny", models.PaymentFailed},
		{"DENY", models.PaymentFailed},
		{"expired", models.PaymentExpired},
		{"cancel", models.PaymentExpired},
	}
	for _, c := range cases {
		out := Transition(c.event, models.PaymentPending, models.TicketInReview)
		require.True(t, out.Changed, "event %q", c.event)
		require.Equal(t, c.status, out.PaymentStatus, "event %q", c.event)
		require.Equal(t, models.TicketInReview, out.TicketStatus, "event %q", c.event)
	}
}

func TestTransition_UnknownEventIsNoOp(t *testing.T) {
	for _, ev := range []string{"", "challenge", "pending", "refund_requested", "??"} {
		out := Transition(ev, models.PaymentPending, models.TicketDraft)
		require.False(t, out.Changed, "event %q", ev)
		require.Equal(t, models.PaymentPending, out.PaymentStatus)
		require.Equal(t, models.TicketDraft, out.TicketStatus)
	}
}

func TestAdminTransition(t *testing.T) {
	cases := []struct {
		in         string
		payment    string
		ticket     string
		recognized bool
	}{
		{"PAID", models.PaymentPaid, models.TicketReceived, true},
		{"paid", models.PaymentPaid, models.TicketReceived, true},
		{"REJECTED", models.PaymentRejected, models.TicketDraft, true},
		{"PENDING", models.PaymentPending, models.TicketDraft, true},
		{"EXPIRED", models.PaymentPending, models.TicketInReview, false},
		{"", models.PaymentPending, models.TicketInReview, false},
	}
	for _, c := range cases {
		out, ok := AdminTransition(c.in, models.PaymentPending, models.TicketInReview)
		require.Equal(t, c.recognized, ok, "status %q", c.in)
		require.Equal(t, c.payment, out.PaymentStatus, "status %q", c.in)
		require.Equal(t, c.ticket, out.TicketStatus, "status %q", c.in)
	}
}
