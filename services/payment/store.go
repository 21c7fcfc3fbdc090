package paymentsvc

import (
	"context"
	"errors"
	"time"

	"helpdesk/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store backs the resolver, the reconciler and the orchestrator with
// GORM/MySQL. Reconciliation writes go through InTx so the payment and
// ticket rows commit together; everything else is plain reads or
// post-commit best-effort writes.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- Finder (read-only, manual verification) ---

func (s *Store) PendingByOrderID(ctx context.Context, orderID string) ([]models.Payment, error) {
	var out []models.Payment
	err := s.db.WithContext(ctx).
		Where("order_id = ? AND status = ?", orderID, models.PaymentPending).
		Find(&out).Error
	return out, err
}

func (s *Store) PendingByAmount(ctx context.Context, provider string, amount int64) ([]models.Payment, error) {
	var out []models.Payment
	err := s.db.WithContext(ctx).
		Where("provider = ? AND amount = ? AND status = ?", provider, amount, models.PaymentPending).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

func (s *Store) TicketWithCustomer(ctx context.Context, ticketID uint) (*models.Ticket, *models.Customer, error) {
	var ticket models.Ticket
	if err := s.db.WithContext(ctx).First(&ticket, ticketID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	var customer models.Customer
	if err := s.db.WithContext(ctx).First(&customer, ticket.CustomerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ticket, nil, nil
		}
		return nil, nil, err
	}
	return &ticket, &customer, nil
}

// --- TxRunner ---

func (s *Store) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
}

type gormTx struct {
	db *gorm.DB
}

func (g *gormTx) PaymentByOrderID(orderID string) (*models.Payment, error) {
	var p models.Payment
	err := g.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ?", orderID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (g *gormTx) PaymentByID(id uint) (*models.Payment, error) {
	var p models.Payment
	err := g.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (g *gormTx) TicketByID(id uint) (*models.Ticket, error) {
	var t models.Ticket
	err := g.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&t, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (g *gormTx) UpdatePayment(id uint, prevStatus string, fields map[string]interface{}) (int64, error) {
	res := g.db.Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, prevStatus).
		Updates(fields)
	return res.RowsAffected, res.Error
}

func (g *gormTx) UpdateTicket(id uint, fields map[string]interface{}) error {
	return g.db.Model(&models.Ticket{}).Where("id = ?", id).Updates(fields).Error
}

func (g *gormTx) CreateAuditLog(entry *models.AuditLog) error {
	return g.db.Create(entry).Error
}

func (g *gormTx) StalePending(before time.Time) ([]models.Payment, error) {
	var out []models.Payment
	err := g.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("status = ? AND expired_at IS NOT NULL AND expired_at < ?", models.PaymentPending, before).
		Find(&out).Error
	return out, err
}

// --- SideStore (post-commit, best-effort) ---

func (s *Store) StagedAttachments(ctx context.Context, ticketID uint) ([]models.Attachment, error) {
	var out []models.Attachment
	err := s.db.WithContext(ctx).
		Where("ticket_id = ? AND uploaded = ?", ticketID, false).
		Find(&out).Error
	return out, err
}

func (s *Store) SetTicketFolder(ctx context.Context, ticketID uint, folderID string) error {
	return s.db.WithContext(ctx).Model(&models.Ticket{}).
		Where("id = ?", ticketID).
		Update("folder_id", folderID).Error
}

func (s *Store) MarkAttachmentUploaded(ctx context.Context, id uint, url string) error {
	return s.db.WithContext(ctx).Model(&models.Attachment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"uploaded": true, "remote_url": url}).Error
}

func (s *Store) CustomerByID(ctx context.Context, id uint) (*models.Customer, error) {
	var c models.Customer
	err := s.db.WithContext(ctx).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
