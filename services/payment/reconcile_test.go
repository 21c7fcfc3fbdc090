package paymentsvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"helpdesk/models"

	"github.com/stretchr/testify/require"
)

// memStore is an in-memory TxRunner with real commit/rollback semantics:
// the transaction callback works on a deep copy that only replaces the
// visible state when the callback succeeds.
type memStore struct {
	payments map[uint]models.Payment
	tickets  map[uint]models.Ticket
	audits   []models.AuditLog

	failTicketUpdate  bool
	forceZeroAffected bool
}

func newMemStore(payments []models.Payment, tickets []models.Ticket) *memStore {
	ms := &memStore{
		payments: map[uint]models.Payment{},
		tickets:  map[uint]models.Ticket{},
	}
	for _, p := range payments {
		ms.payments[p.ID] = p
	}
	for _, t := range tickets {
		ms.tickets[t.ID] = t
	}
	return ms
}

func (ms *memStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	staged := &memTx{
		store:    ms,
		payments: map[uint]models.Payment{},
		tickets:  map[uint]models.Ticket{},
	}
	for id, p := range ms.payments {
		staged.payments[id] = p
	}
	for id, t := range ms.tickets {
		staged.tickets[id] = t
	}
	if err := fn(staged); err != nil {
		return err // rollback: staged state is discarded
	}
	ms.payments = staged.payments
	ms.tickets = staged.tickets
	ms.audits = append(ms.audits, staged.audits...)
	return nil
}

type memTx struct {
	store    *memStore
	payments map[uint]models.Payment
	tickets  map[uint]models.Ticket
	audits   []models.AuditLog
}

func (m *memTx) PaymentByOrderID(orderID string) (*models.Payment, error) {
	for id := range m.payments {
		if m.payments[id].OrderID == orderID {
			p := m.payments[id]
			return &p, nil
		}
	}
	return nil, nil
}

func (m *memTx) PaymentByID(id uint) (*models.Payment, error) {
	p, ok := m.payments[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memTx) TicketByID(id uint) (*models.Ticket, error) {
	t, ok := m.tickets[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *memTx) UpdatePayment(id uint, prevStatus string, fields map[string]interface{}) (int64, error) {
	if m.store.forceZeroAffected {
		return 0, nil
	}
	p, ok := m.payments[id]
	if !ok || p.Status != prevStatus {
		return 0, nil
	}
	if v, ok := fields["status"].(string); ok {
		p.Status = v
	}
	if v, ok := fields["status_history"]; ok {
		b, _ := json.Marshal(v)
		_ = json.Unmarshal(b, &p.StatusHistory)
	}
	m.payments[id] = p
	return 1, nil
}

func (m *memTx) UpdateTicket(id uint, fields map[string]interface{}) error {
	if m.store.failTicketUpdate {
		return fmt.Errorf("simulated ticket write failure")
	}
	t, ok := m.tickets[id]
	if !ok {
		return errors.New("ticket missing")
	}
	if v, ok := fields["status"].(string); ok {
		t.Status = v
	}
	if v, ok := fields["payment_status"].(string); ok {
		t.PaymentStatus = v
	}
	m.tickets[id] = t
	return nil
}

func (m *memTx) CreateAuditLog(entry *models.AuditLog) error {
	m.audits = append(m.audits, *entry)
	return nil
}

func (m *memTx) StalePending(before time.Time) ([]models.Payment, error) {
	var out []models.Payment
	for id := range m.payments {
		p := m.payments[id]
		if p.Status == models.PaymentPending && p.ExpiredAt != nil && p.ExpiredAt.Before(before) {
			out = append(out, p)
		}
	}
	return out, nil
}

func fixtureStore() *memStore {
	return newMemStore(
		[]models.Payment{{
			ID:       1,
			TicketID: 10,
			OrderID:  "WAC-1",
			Provider: models.ProviderQRIS,
			Amount:   50123,
			Currency: "IDR",
			Status:   models.PaymentPending,
		}},
		[]models.Ticket{{
			ID:            10,
			TicketNo:      "T-0001",
			CustomerID:    7,
			Status:        models.TicketDraft,
			PaymentStatus: models.PaymentPending,
		}},
	)
}

func TestApplyWebhook_Success(t *testing.T) {
	ms := fixtureStore()
	r := NewReconciler(ms)

	raw := json.RawMessage(`{"order_id":"WAC-1","status":"success","settled_by":"QRIS"}`)
	res, err := r.ApplyWebhook(context.Background(), "WAC-1", "success", raw)
	require.NoError(t, err)
	require.True(t, res.Processed)
	require.True(t, res.NewlyPaid)
	require.Equal(t, models.PaymentPaid, res.Payment.Status)
	require.Equal(t, models.TicketReceived, res.Ticket.Status)

	stored := ms.payments[1]
	require.Equal(t, models.PaymentPaid, stored.Status)
	require.Equal(t, models.TicketReceived, ms.tickets[10].Status)
	require.Equal(t, models.PaymentPaid, ms.tickets[10].PaymentStatus)

	history := stored.Transitions()
	require.Len(t, history, 1)
	require.Equal(t, models.PaymentPending, history[0].From)
	require.Equal(t, models.PaymentPaid, history[0].To)
	require.Equal(t, "provider:QRIS", history[0].Actor)
}

func TestApplyWebhook_DuplicateDeliveryIsIdempotent(t *testing.T) {
	ms := fixtureStore()
	r := NewReconciler(ms)

	first, err := r.ApplyWebhook(context.Background(), "WAC-1", "settlement", nil)
	require.NoError(t, err)
	require.True(t, first.NewlyPaid)

	second, err := r.ApplyWebhook(context.Background(), "WAC-1", "settlement", nil)
	require.NoError(t, err)
	require.True(t, second.Processed)
	require.False(t, second.NewlyPaid, "duplicate delivery must not re-trigger downstream effects")
	require.Equal(t, models.PaymentPaid, second.Payment.Status)

	// Final state identical to applying the event once.
	stored := ms.payments[1]
	require.Len(t, stored.Transitions(), 1)
	require.Equal(t, models.TicketReceived, ms.tickets[10].Status)
}

func TestApplyWebhook_UnknownEventIgnored(t *testing.T) {
	ms := fixtureStore()
	r := NewReconciler(ms)

	res, err := r.ApplyWebhook(context.Background(), "WAC-1", "challenge", nil)
	require.NoError(t, err)
	require.False(t, res.Processed)
	require.Equal(t, models.PaymentPending, ms.payments[1].Status)
	require.Equal(t, models.TicketDraft, ms.tickets[10].Status)
}

func TestApplyWebhook_FailureDoesNotRegressTicket(t *testing.T) {
	ms := fixtureStore()
	ticket := ms.tickets[10]
	ticket.Status = models.TicketInReview
	ms.tickets[10] = ticket
	r := NewReconciler(ms)

	res, err := r.ApplyWebhook(context.Background(), "WAC-1", "deny", nil)
	require.NoError(t, err)
	require.True(t, res.Processed)
	require.False(t, res.NewlyPaid)
	require.Equal(t, models.PaymentFailed, ms.payments[1].Status)
	require.Equal(t, models.TicketInReview, ms.tickets[10].Status)
	require.Equal(t, models.PaymentFailed, ms.tickets[10].PaymentStatus)
}

func TestApplyWebhook_NotFound(t *testing.T) {
	r := NewReconciler(fixtureStore())

	_, err := r.ApplyWebhook(context.Background(), "WAC-404", "success", nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestApplyWebhook_AtomicWhenTicketWriteFails(t *testing.T) {
	ms := fixtureStore()
	ms.failTicketUpdate = true
	r := NewReconciler(ms)

	_, err := r.ApplyWebhook(context.Background(), "WAC-1", "success", nil)
	require.ErrorIs(t, err, ErrTransactionFailed)

	// Neither write is visible: the payment update rolled back with the
	// failed ticket update.
	require.Equal(t, models.PaymentPending, ms.payments[1].Status)
	require.Equal(t, models.TicketDraft, ms.tickets[10].Status)
	stored := ms.payments[1]
	require.Empty(t, stored.Transitions())
}

func TestApplyWebhook_ConcurrentClaimRejected(t *testing.T) {
	ms := fixtureStore()
	ms.forceZeroAffected = true
	r := NewReconciler(ms)

	_, err := r.ApplyWebhook(context.Background(), "WAC-1", "success", nil)
	require.ErrorIs(t, err, ErrTransactionFailed)
	require.Equal(t, models.PaymentPending, ms.payments[1].Status)
}

func TestApplyWebhook_ClosedTicketKeepsStatus(t *testing.T) {
	ms := fixtureStore()
	ticket := ms.tickets[10]
	ticket.Status = models.TicketClosed
	ms.tickets[10] = ticket
	r := NewReconciler(ms)

	res, err := r.ApplyWebhook(context.Background(), "WAC-1", "success", nil)
	require.NoError(t, err)
	require.True(t, res.Processed)
	require.False(t, res.NewlyPaid, "a closed ticket must not trigger downstream provisioning")
	require.Equal(t, models.PaymentPaid, ms.payments[1].Status)
	require.Equal(t, models.TicketClosed, ms.tickets[10].Status)
	require.Equal(t, models.PaymentPaid, ms.tickets[10].PaymentStatus)
}

func TestApplyAdminEdit_Paid(t *testing.T) {
	ms := fixtureStore()
	r := NewReconciler(ms)

	res, err := r.ApplyAdminEdit(context.Background(), 1, "WAC-1", "PAID", "verified against bank mutation", 99)
	require.NoError(t, err)
	require.True(t, res.NewlyPaid)
	require.Equal(t, models.PaymentPaid, ms.payments[1].Status)
	require.Equal(t, models.TicketReceived, ms.tickets[10].Status)

	require.Len(t, ms.audits, 1)
	require.Equal(t, int64(99), ms.audits[0].AdminID)
	require.Equal(t, uint(10), ms.audits[0].TicketID)
	require.Equal(t, "payment_status_edit", ms.audits[0].Action)

	storedPayment := ms.payments[1]
	history := storedPayment.Transitions()
	require.Len(t, history, 1)
	require.Equal(t, "admin:99", history[0].Actor)
	require.Equal(t, "verified against bank mutation", history[0].Notes)
}

func TestApplyAdminEdit_RejectedResetsTicketToDraft(t *testing.T) {
	ms := fixtureStore()
	ticket := ms.tickets[10]
	ticket.Status = models.TicketReceived
	ms.tickets[10] = ticket
	r := NewReconciler(ms)

	_, err := r.ApplyAdminEdit(context.Background(), 1, "WAC-1", "REJECTED", "", 99)
	require.NoError(t, err)
	require.Equal(t, models.PaymentRejected, ms.payments[1].Status)
	require.Equal(t, models.TicketDraft, ms.tickets[10].Status)
}

func TestApplyAdminEdit_IntegrityMismatch(t *testing.T) {
	ms := fixtureStore()
	r := NewReconciler(ms)

	_, err := r.ApplyAdminEdit(context.Background(), 1, "WAC-OTHER", "PAID", "", 99)
	require.ErrorIs(t, err, ErrIntegrityMismatch)
	require.Equal(t, models.PaymentPending, ms.payments[1].Status)
	require.Empty(t, ms.audits)
}

func TestApplyAdminEdit_InvalidStatus(t *testing.T) {
	r := NewReconciler(fixtureStore())

	_, err := r.ApplyAdminEdit(context.Background(), 1, "WAC-1", "EXPIRED", "", 99)
	require.ErrorIs(t, err, ErrValidation)
}

func TestExpireStale(t *testing.T) {
	old := time.Now().Add(-2 * time.Hour)
	fresh := time.Now().Add(2 * time.Hour)
	ms := newMemStore(
		[]models.Payment{
			{ID: 1, TicketID: 10, OrderID: "WAC-1", Provider: models.ProviderQRIS, Status: models.PaymentPending, ExpiredAt: &old},
			{ID: 2, TicketID: 11, OrderID: "WAC-2", Provider: models.ProviderQRIS, Status: models.PaymentPending, ExpiredAt: &fresh},
		},
		[]models.Ticket{
			{ID: 10, TicketNo: "T-1", Status: models.TicketDraft, PaymentStatus: models.PaymentPending},
			{ID: 11, TicketNo: "T-2", Status: models.TicketDraft, PaymentStatus: models.PaymentPending},
		},
	)
	r := NewReconciler(ms)

	n, err := r.ExpireStale(context.Background(), time.Now())
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, models.PaymentExpired, ms.payments[1].Status)
	require.Equal(t, models.PaymentPending, ms.payments[2].Status)
	// Expiry never moves the ticket forward.
	require.Equal(t, models.TicketDraft, ms.tickets[10].Status)
	require.Equal(t, models.PaymentExpired, ms.tickets[10].PaymentStatus)
}
