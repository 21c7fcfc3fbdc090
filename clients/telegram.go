package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	paymentsvc "helpdesk/services/payment"
)

// TelegramNotifier delivers payment confirmations over the Telegram Bot
// API. Customers who linked a chat id are messaged directly; everything
// also goes to the ops group so agents see incoming paid tickets.
type TelegramNotifier struct {
	botToken  string
	opsChatID int64
	http      *http.Client
}

func NewTelegramNotifier() (*TelegramNotifier, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN not set")
	}
	var opsChatID int64
	if v := strings.TrimSpace(os.Getenv("TELEGRAM_OPS_CHAT_ID")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("TELEGRAM_OPS_CHAT_ID tidak valid: %w", err)
		}
		opsChatID = id
	}
	return &TelegramNotifier{
		botToken:  token,
		opsChatID: opsChatID,
		http:      &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type telegramMessage struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

func (t *TelegramNotifier) Notify(ctx context.Context, notice paymentsvc.PaymentNotice) error {
	text := fmt.Sprintf(
		"✅ Pembayaran diterima\nTiket: <b>%s</b>\nOrder: %s\nJumlah: %s %d\nStatus tiket: RECEIVED",
		notice.TicketNo, notice.OrderID, notice.Currency, notice.Amount,
	)

	var firstErr error
	sent := false
	if notice.ChatID != nil && *notice.ChatID != 0 {
		if err := t.send(ctx, *notice.ChatID, text); err != nil {
			firstErr = err
		} else {
			sent = true
		}
	}
	if t.opsChatID != 0 {
		opsText := text
		if notice.CustomerName != "" {
			opsText += "\nPelanggan: " + notice.CustomerName
		}
		if err := t.send(ctx, t.opsChatID, opsText); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		} else {
			sent = true
		}
	}
	if !sent && firstErr == nil {
		return fmt.Errorf("no telegram recipient configured for ticket %s", notice.TicketNo)
	}
	if !sent {
		return firstErr
	}
	return nil
}

func (t *TelegramNotifier) send(ctx context.Context, chatID int64, text string) error {
	msg := telegramMessage{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	}
	jsonData, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(jsonData)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API error: status %d", resp.StatusCode)
	}
	return nil
}
