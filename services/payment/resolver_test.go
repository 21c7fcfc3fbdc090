package paymentsvc

import (
	"context"
	"testing"

	"helpdesk/models"

	"github.com/stretchr/testify/require"
)

type mockFinder struct {
	byOrderFn  func(ctx context.Context, orderID string) ([]models.Payment, error)
	byAmountFn func(ctx context.Context, provider string, amount int64) ([]models.Payment, error)
	ticketFn   func(ctx context.Context, ticketID uint) (*models.Ticket, *models.Customer, error)
}

var _ Finder = (*mockFinder)(nil)

func (m *mockFinder) PendingByOrderID(ctx context.Context, orderID string) ([]models.Payment, error) {
	if m.byOrderFn == nil {
		return nil, nil
	}
	return m.byOrderFn(ctx, orderID)
}

func (m *mockFinder) PendingByAmount(ctx context.Context, provider string, amount int64) ([]models.Payment, error) {
	if m.byAmountFn == nil {
		return nil, nil
	}
	return m.byAmountFn(ctx, provider, amount)
}

func (m *mockFinder) TicketWithCustomer(ctx context.Context, ticketID uint) (*models.Ticket, *models.Customer, error) {
	if m.ticketFn == nil {
		return nil, nil, nil
	}
	return m.ticketFn(ctx, ticketID)
}

func pendingPayment(id uint, orderID, code string, amount int64) models.Payment {
	return models.Payment{
		ID:         id,
		TicketID:   id,
		OrderID:    orderID,
		Provider:   models.ProviderQRIS,
		Amount:     amount,
		Status:     models.PaymentPending,
		UniqueCode: strPtr(code),
	}
}

func ticketFinderFor(payments ...models.Payment) func(ctx context.Context, ticketID uint) (*models.Ticket, *models.Customer, error) {
	return func(ctx context.Context, ticketID uint) (*models.Ticket, *models.Customer, error) {
		return &models.Ticket{ID: ticketID, TicketNo: "T-1", CustomerID: 7, Status: models.TicketDraft},
			&models.Customer{ID: 7, Name: "Rina"},
			nil
	}
}

func TestResolve_ByUniqueCode(t *testing.T) {
	first := pendingPayment(1, "WAC-1", "111", 50123)
	second := pendingPayment(2, "WAC-2", "222", 50123)
	f := &mockFinder{
		byAmountFn: func(ctx context.Context, provider string, amount int64) ([]models.Payment, error) {
			require.Equal(t, models.ProviderQRIS, provider)
			require.Equal(t, int64(50123), amount)
			return []models.Payment{first, second}, nil
		},
		ticketFn: ticketFinderFor(first),
	}

	m, err := Resolve(context.Background(), f, VerifyQuery{Amount: 50123, UniqueCode: "111"})
	require.NoError(t, err)
	require.Equal(t, "WAC-1", m.Payment.OrderID)
	require.Equal(t, "T-1", m.Ticket.TicketNo)
	require.Equal(t, "Rina", m.Customer.Name)
}

func TestResolve_NoCodeMatches(t *testing.T) {
	f := &mockFinder{
		byAmountFn: func(ctx context.Context, provider string, amount int64) ([]models.Payment, error) {
			return []models.Payment{
				pendingPayment(1, "WAC-1", "111", 50123),
				pendingPayment(2, "WAC-2", "222", 50123),
			}, nil
		},
	}

	_, err := Resolve(context.Background(), f, VerifyQuery{Amount: 50123, UniqueCode: "999"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestResolve_DuplicateCodesAreAmbiguous(t *testing.T) {
	f := &mockFinder{
		byAmountFn: func(ctx context.Context, provider string, amount int64) ([]models.Payment, error) {
			return []models.Payment{
				pendingPayment(1, "WAC-1", "111", 50123),
				pendingPayment(2, "WAC-2", "111", 50123),
			}, nil
		},
	}

	_, err := Resolve(context.Background(), f, VerifyQuery{Amount: 50123, UniqueCode: "111"})
	require.ErrorIs(t, err, ErrAmbiguousMatch)
}

func TestResolve_OrderIDTakesPrecedence(t *testing.T) {
	amountCalled := false
	target := pendingPayment(3, "WAC-3", "333", 42000)
	f := &mockFinder{
		byOrderFn: func(ctx context.Context, orderID string) ([]models.Payment, error) {
			require.Equal(t, "WAC-3", orderID)
			return []models.Payment{target}, nil
		},
		byAmountFn: func(ctx context.Context, provider string, amount int64) ([]models.Payment, error) {
			amountCalled = true
			return nil, nil
		},
		ticketFn: ticketFinderFor(target),
	}

	m, err := Resolve(context.Background(), f, VerifyQuery{OrderID: "WAC-3"})
	require.NoError(t, err)
	require.Equal(t, "WAC-3", m.Payment.OrderID)
	require.False(t, amountCalled, "amount search must be skipped when order id is given")
}

func TestResolve_LegacyPayloadCode(t *testing.T) {
	legacy := pendingPayment(4, "WAC-4", "", 80456)
	legacy.UniqueCode = nil
	legacy.RawPayload = []byte(`{"kode_unik":"456","history":"not json schema"}`)
	f := &mockFinder{
		byAmountFn: func(ctx context.Context, provider string, amount int64) ([]models.Payment, error) {
			return []models.Payment{legacy}, nil
		},
		ticketFn: ticketFinderFor(legacy),
	}

	m, err := Resolve(context.Background(), f, VerifyQuery{Amount: 80456, UniqueCode: "456"})
	require.NoError(t, err)
	require.Equal(t, "WAC-4", m.Payment.OrderID)
}

func TestResolve_ValidatesInput(t *testing.T) {
	f := &mockFinder{}

	_, err := Resolve(context.Background(), f, VerifyQuery{Amount: 0, UniqueCode: "111"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = Resolve(context.Background(), f, VerifyQuery{Amount: 50123})
	require.ErrorIs(t, err, ErrValidation)
}
