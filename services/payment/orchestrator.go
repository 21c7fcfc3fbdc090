package paymentsvc

import (
	"context"
	"fmt"
	"log"
	"time"

	"helpdesk/models"
)

// External collaborators the orchestrator drives after a payment first
// becomes PAID. Each is an independently failable black box.
type FolderClient interface {
	CreateFolder(ctx context.Context, ticket models.Ticket) (string, error)
}

type FileUploader interface {
	Upload(ctx context.Context, att models.Attachment, folderID string) (string, error)
}

type SheetSyncer interface {
	UpsertRow(ctx context.Context, ticket models.Ticket, urls []string) error
}

// PaymentNotice is the summary handed to the notification client.
type PaymentNotice struct {
	TicketNo     string
	CustomerName string
	OrderID      string
	Amount       int64
	Currency     string
	Status       string
	ChatID       *int64
}

type Notifier interface {
	Notify(ctx context.Context, notice PaymentNotice) error
}

// SideStore is the small persistence surface the orchestrator needs.
// These writes happen outside the reconciliation transaction: the
// payment fact is already committed and must not depend on them.
type SideStore interface {
	StagedAttachments(ctx context.Context, ticketID uint) ([]models.Attachment, error)
	SetTicketFolder(ctx context.Context, ticketID uint, folderID string) error
	MarkAttachmentUploaded(ctx context.Context, id uint, url string) error
	CustomerByID(ctx context.Context, id uint) (*models.Customer, error)
}

// StepResult records the outcome of one orchestrator step for logs and
// tests. Failed steps never abort the remaining ones.
type StepResult struct {
	Name string
	Err  error
}

// Orchestrator runs the best-effort downstream actions once per first
// transition into PAID: folder provisioning, attachment upload, sheet
// sync and customer notification. Every step gets its own timeout so a
// stalled collaborator cannot stall the rest, and no failure here ever
// touches the committed payment or ticket state.
type Orchestrator struct {
	Store       SideStore
	Folders     FolderClient
	Uploads     FileUploader
	Sheet       SheetSyncer
	Notifier    Notifier
	StepTimeout time.Duration
}

const defaultStepTimeout = 15 * time.Second

// Run executes the downstream steps for one reconciliation result. It
// is a no-op unless the result is newly paid. The returned slice lists
// every attempted step; callers on the webhook path ignore it beyond
// logging, which Run already does.
func (o *Orchestrator) Run(ctx context.Context, res Result) []StepResult {
	if !res.NewlyPaid {
		return nil
	}

	ticket := res.Ticket
	var results []StepResult
	record := func(name string, err error) {
		results = append(results, StepResult{Name: name, Err: err})
		if err != nil {
			log.Printf("[orchestrator] %s: ticket=%s order=%s err=%v", name, ticket.TicketNo, res.Payment.OrderID, err)
		}
	}

	// 1. Provision the external folder (reuse one provisioned earlier).
	folderID := ""
	if ticket.FolderID != nil {
		folderID = *ticket.FolderID
	}
	folderCreated := false
	if folderID == "" {
		err := o.step(ctx, func(stepCtx context.Context) error {
			if o.Folders == nil {
				return fmt.Errorf("folder client not configured")
			}
			id, err := o.Folders.CreateFolder(stepCtx, ticket)
			if err != nil {
				return err
			}
			if err := o.Store.SetTicketFolder(stepCtx, ticket.ID, id); err != nil {
				return fmt.Errorf("folder %s created but not recorded: %w", id, err)
			}
			folderID = id
			folderCreated = true
			return nil
		})
		record("create_folder", err)
	}

	// 2. Upload staged attachments into the folder.
	var urls []string
	uploaded := false
	err := o.step(ctx, func(stepCtx context.Context) error {
		if folderID == "" {
			return fmt.Errorf("no folder available, uploads deferred")
		}
		if o.Uploads == nil {
			return fmt.Errorf("upload client not configured")
		}
		atts, err := o.Store.StagedAttachments(stepCtx, ticket.ID)
		if err != nil {
			return err
		}
		var firstErr error
		for _, att := range atts {
			url, err := o.Uploads.Upload(stepCtx, att, folderID)
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("upload %s: %w", att.FileName, err)
				}
				continue
			}
			if err := o.Store.MarkAttachmentUploaded(stepCtx, att.ID, url); err != nil && firstErr == nil {
				firstErr = err
			}
			urls = append(urls, url)
			uploaded = true
		}
		return firstErr
	})
	record("upload_attachments", err)

	// 3. Propagate to the tracking sheet when anything changed upstream.
	if folderCreated || uploaded {
		err := o.step(ctx, func(stepCtx context.Context) error {
			if o.Sheet == nil {
				return fmt.Errorf("sheet client not configured")
			}
			t := ticket
			if folderID != "" {
				t.FolderID = &folderID
			}
			return o.Sheet.UpsertRow(stepCtx, t, urls)
		})
		record("sheet_sync", err)
	}

	// 4. Tell the customer.
	err = o.step(ctx, func(stepCtx context.Context) error {
		if o.Notifier == nil {
			return fmt.Errorf("notifier not configured")
		}
		notice := PaymentNotice{
			TicketNo: ticket.TicketNo,
			OrderID:  res.Payment.OrderID,
			Amount:   res.Payment.Amount,
			Currency: res.Payment.Currency,
			Status:   res.Payment.Status,
		}
		if c, err := o.Store.CustomerByID(stepCtx, ticket.CustomerID); err == nil && c != nil {
			notice.CustomerName = c.Name
			notice.ChatID = c.TelegramChatID
		}
		return o.Notifier.Notify(stepCtx, notice)
	})
	record("notify_customer", err)

	return results
}

func (o *Orchestrator) step(ctx context.Context, fn func(ctx context.Context) error) error {
	timeout := o.StepTimeout
	if timeout <= 0 {
		timeout = defaultStepTimeout
	}
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(stepCtx)
}
