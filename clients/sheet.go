package clients

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"helpdesk/models"
)

// SheetClient pushes ticket rows to the external tracking-sheet bridge.
// Requests are signed HMAC-SHA512 over method:path:bodyHash:timestamp so
// the bridge can reject forged rows.
type SheetClient struct {
	baseURL string
	secret  string
	http    *http.Client
}

func NewSheetClient() (*SheetClient, error) {
	baseURL := strings.TrimRight(os.Getenv("SHEET_SYNC_URL"), "/")
	secret := os.Getenv("SHEET_SYNC_SECRET")
	if baseURL == "" || secret == "" {
		return nil, fmt.Errorf("SHEET_SYNC_URL atau SHEET_SYNC_SECRET belum diatur")
	}
	return &SheetClient{
		baseURL: baseURL,
		secret:  secret,
		http:    &http.Client{Timeout: 15 * time.Second},
	}, nil
}

type sheetRow struct {
	TicketNo       string   `json:"ticket_no"`
	Status         string   `json:"status"`
	PaymentStatus  string   `json:"payment_status"`
	FolderID       string   `json:"folder_id,omitempty"`
	AttachmentURLs []string `json:"attachment_urls,omitempty"`
	UpdatedAt      string   `json:"updated_at"`
}

func (c *SheetClient) UpsertRow(ctx context.Context, ticket models.Ticket, urls []string) error {
	row := sheetRow{
		TicketNo:      ticket.TicketNo,
		Status:        ticket.Status,
		PaymentStatus: ticket.PaymentStatus,
		UpdatedAt:     time.Now().Format(time.RFC3339),
	}
	if ticket.FolderID != nil {
		row.FolderID = *ticket.FolderID
	}
	row.AttachmentURLs = urls

	body, err := json.Marshal(row)
	if err != nil {
		return err
	}

	const path = "/v1/rows/upsert"
	timestamp := time.Now().Format(time.RFC3339)
	sig := c.sign(http.MethodPost, path, body, timestamp)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-TIMESTAMP", timestamp)
	req.Header.Set("X-SIGNATURE", sig)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sheet sync gagal: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sheet sync status %d: %s", resp.StatusCode, string(snippet))
	}
	return nil
}

func (c *SheetClient) sign(method, path string, body []byte, timestamp string) string {
	bodyHash := sha256.Sum256(body)
	bodyHashHex := strings.ToLower(hex.EncodeToString(bodyHash[:]))
	stringToSign := method + ":" + path + ":" + bodyHashHex + ":" + timestamp
	mac := hmac.New(sha512.New, []byte(c.secret))
	mac.Write([]byte(stringToSign))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
