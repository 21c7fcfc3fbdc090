package paymentsvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"helpdesk/models"

	"gorm.io/datatypes"
)

// Tx is the write surface available inside one reconciliation
// transaction. Implementations must guarantee that everything done
// through a Tx commits together or not at all.
type Tx interface {
	// PaymentByOrderID returns the row-locked payment, or nil when absent.
	PaymentByOrderID(orderID string) (*models.Payment, error)
	PaymentByID(id uint) (*models.Payment, error)
	TicketByID(id uint) (*models.Ticket, error)
	// UpdatePayment applies fields only while the payment still has
	// prevStatus, returning the number of rows touched. Zero rows means a
	// concurrent reconciliation won the race.
	UpdatePayment(id uint, prevStatus string, fields map[string]interface{}) (int64, error)
	UpdateTicket(id uint, fields map[string]interface{}) error
	CreateAuditLog(entry *models.AuditLog) error
	StalePending(before time.Time) ([]models.Payment, error)
}

// TxRunner opens a storage transaction around fn. A non-nil error from
// fn must roll everything back.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Reconciler applies payment events to the Payment/Ticket pair. It is
// the only component that mutates either record; all concurrency
// control is delegated to the storage transaction (row lock on the
// payment plus a conditional status update), never in-process locks.
type Reconciler struct {
	Store TxRunner
	Now   func() time.Time
}

func NewReconciler(store TxRunner) *Reconciler {
	return &Reconciler{Store: store}
}

// Result reports what one reconciliation did. NewlyPaid gates the
// post-success orchestrator: it is true only when the payment crossed
// into PAID for the first time, so duplicate deliveries can never
// re-trigger downstream side effects.
type Result struct {
	Payment   models.Payment
	Ticket    models.Ticket
	Processed bool
	NewlyPaid bool
}

// ApplyWebhook reconciles one provider callback by direct order lookup.
// Unknown event vocabulary is reported as Processed=false, not an
// error, and a duplicate delivery for an already-settled payment is a
// safe no-op.
func (r *Reconciler) ApplyWebhook(ctx context.Context, orderID, event string, raw json.RawMessage) (*Result, error) {
	if orderID == "" {
		return nil, fmt.Errorf("%w: order_id is required", ErrValidation)
	}
	if event == "" {
		return nil, fmt.Errorf("%w: status is required", ErrValidation)
	}

	res := &Result{}
	err := r.Store.InTx(ctx, func(tx Tx) error {
		p, err := tx.PaymentByOrderID(orderID)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrNotFound
		}
		t, err := tx.TicketByID(p.TicketID)
		if err != nil {
			return err
		}
		if t == nil {
			return ErrNotFound
		}

		out := Transition(event, p.Status, t.Status)
		if !out.Changed {
			res.Payment, res.Ticket = *p, *t
			return nil
		}
		res.Processed = true
		if p.Status == out.PaymentStatus {
			// Duplicate delivery. Nothing to write, and NewlyPaid stays
			// false so the orchestrator is not run again.
			res.Payment, res.Ticket = *p, *t
			return nil
		}

		newlyPaid, err := r.apply(tx, p, t, out, "provider:"+p.Provider, "", raw)
		if err != nil {
			return err
		}
		res.NewlyPaid = newlyPaid
		res.Payment, res.Ticket = *p, *t
		return nil
	})
	if err != nil {
		return nil, wrapTxErr(err)
	}
	return res, nil
}

// ApplyAdminEdit reconciles an explicit administrative status edit. The
// payment id and order id must name the same payment; the check exists
// so a stale admin screen cannot flip the wrong row.
func (r *Reconciler) ApplyAdminEdit(ctx context.Context, paymentID uint, orderID, newStatus, notes string, adminID int64) (*Result, error) {
	if paymentID == 0 || orderID == "" {
		return nil, fmt.Errorf("%w: payment id and order_id are required", ErrValidation)
	}

	res := &Result{}
	err := r.Store.InTx(ctx, func(tx Tx) error {
		p, err := tx.PaymentByID(paymentID)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrNotFound
		}
		if p.OrderID != orderID {
			return ErrIntegrityMismatch
		}
		t, err := tx.TicketByID(p.TicketID)
		if err != nil {
			return err
		}
		if t == nil {
			return ErrNotFound
		}

		out, ok := AdminTransition(newStatus, p.Status, t.Status)
		if !ok {
			return fmt.Errorf("%w: status must be one of PENDING, PAID, REJECTED", ErrValidation)
		}
		res.Processed = true
		if p.Status == out.PaymentStatus {
			res.Payment, res.Ticket = *p, *t
			return nil
		}

		before, _ := json.Marshal(map[string]string{
			"payment_status": p.Status,
			"ticket_status":  t.Status,
		})

		actor := fmt.Sprintf("admin:%d", adminID)
		newlyPaid, err := r.apply(tx, p, t, out, actor, notes, nil)
		if err != nil {
			return err
		}

		after, _ := json.Marshal(map[string]string{
			"payment_status": p.Status,
			"ticket_status":  t.Status,
		})
		entry := &models.AuditLog{
			AdminID:  adminID,
			TicketID: t.ID,
			Action:   "payment_status_edit",
			Before:   datatypes.JSON(before),
			After:    datatypes.JSON(after),
		}
		if err := tx.CreateAuditLog(entry); err != nil {
			return err
		}

		res.NewlyPaid = newlyPaid
		res.Payment, res.Ticket = *p, *t
		return nil
	})
	if err != nil {
		return nil, wrapTxErr(err)
	}
	return res, nil
}

// ExpireStale marks PENDING payments older than before as EXPIRED
// through the same transition path the webhook uses, so history and
// ticket mirroring stay consistent. Returns how many were expired.
func (r *Reconciler) ExpireStale(ctx context.Context, before time.Time) (int, error) {
	count := 0
	err := r.Store.InTx(ctx, func(tx Tx) error {
		stale, err := tx.StalePending(before)
		if err != nil {
			return err
		}
		for i := range stale {
			p := &stale[i]
			t, err := tx.TicketByID(p.TicketID)
			if err != nil {
				return err
			}
			if t == nil {
				continue
			}
			out := Transition("expired", p.Status, t.Status)
			if p.Status == out.PaymentStatus {
				continue
			}
			if _, err := r.apply(tx, p, t, out, "system:expiry", "payment window elapsed", nil); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, wrapTxErr(err)
	}
	return count, nil
}

// apply writes one computed transition: the payment row (conditional on
// its previous status), its history entry, and the ticket mirror. A
// CLOSED ticket keeps its status; only the payment_status mirror moves,
// and the transition never counts as newly paid.
func (r *Reconciler) apply(tx Tx, p *models.Payment, t *models.Ticket, out Outcome, actor, notes string, raw json.RawMessage) (bool, error) {
	prev := p.Status
	history, err := models.AppendTransition(p.StatusHistory, models.StatusTransition{
		From:  prev,
		To:    out.PaymentStatus,
		Actor: actor,
		Notes: notes,
		At:    r.now(),
	})
	if err != nil {
		return false, err
	}

	fields := map[string]interface{}{
		"status":         out.PaymentStatus,
		"status_history": history,
	}
	if len(raw) > 0 {
		fields["raw_payload"] = datatypes.JSON(raw)
	}
	n, err := tx.UpdatePayment(p.ID, prev, fields)
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, fmt.Errorf("%w: payment %s was reconciled concurrently", ErrTransactionFailed, p.OrderID)
	}

	closed := t.Status == models.TicketClosed
	ticketFields := map[string]interface{}{"payment_status": out.PaymentStatus}
	if !closed && out.TicketStatus != t.Status {
		ticketFields["status"] = out.TicketStatus
	}
	if err := tx.UpdateTicket(t.ID, ticketFields); err != nil {
		return false, err
	}

	p.Status = out.PaymentStatus
	p.StatusHistory = history
	if len(raw) > 0 {
		p.RawPayload = datatypes.JSON(raw)
	}
	if !closed {
		t.Status = out.TicketStatus
	}
	t.PaymentStatus = out.PaymentStatus

	newlyPaid := prev != models.PaymentPaid && out.PaymentStatus == models.PaymentPaid && !closed
	return newlyPaid, nil
}

func (r *Reconciler) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// wrapTxErr keeps the typed taxonomy intact and folds everything else
// (driver errors, commit failures) into ErrTransactionFailed.
func wrapTxErr(err error) error {
	for _, known := range []error{ErrValidation, ErrNotFound, ErrAmbiguousMatch, ErrIntegrityMismatch, ErrTransactionFailed} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", ErrTransactionFailed, err)
}
