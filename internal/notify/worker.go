// Package notify delivers Telegram alerts to administrators through a
// River queue. Alerts are enqueued in the same transaction as the record
// write they describe, so a rolled-back request never pings anyone, and a
// delivery failure never touches the request itself.
package notify

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"
)

type AdminAlertArgs struct {
	Text string `json:"text"`
}

func (AdminAlertArgs) Kind() string { return "admin_alert" }

// AdminDirectory resolves the chat ids to alert: the fixed primary roster
// plus the dynamically managed secondary admins.
type AdminDirectory interface {
	ChatIDs(ctx context.Context) ([]int64, error)
}

type AdminAlertWorker struct {
	river.WorkerDefaults[AdminAlertArgs]
	primaryIDs []int64
	directory  AdminDirectory
	sender     Sender
	logger     *slog.Logger
}

// Sender sends one Telegram message. Wraps *bot.Bot in main.
type Sender func(ctx context.Context, chatID int64, text string) error

func NewAdminAlertWorker(primaryIDs []int64, directory AdminDirectory, sender Sender, logger *slog.Logger) *AdminAlertWorker {
	return &AdminAlertWorker{primaryIDs: primaryIDs, directory: directory, sender: sender, logger: logger}
}

// Work fans the alert text out to every administrator chat. A failed send
// to one chat is logged and skipped; the job succeeds if at least the
// fan-out ran, since alerts are best-effort.
func (w *AdminAlertWorker) Work(ctx context.Context, job *river.Job[AdminAlertArgs]) error {
	chatIDs := make([]int64, 0, len(w.primaryIDs))
	chatIDs = append(chatIDs, w.primaryIDs...)

	secondary, err := w.directory.ChatIDs(ctx)
	if err != nil {
		w.logger.Error("resolve secondary admin chats", "error", err)
	} else {
		chatIDs = append(chatIDs, secondary...)
	}

	seen := make(map[int64]bool, len(chatIDs))
	for _, chatID := range chatIDs {
		if seen[chatID] {
			continue
		}
		seen[chatID] = true
		if err := w.sender(ctx, chatID, job.Args.Text); err != nil {
			w.logger.Warn("admin alert send failed", "chat_id", chatID, "error", err)
		}
	}
	return nil
}
