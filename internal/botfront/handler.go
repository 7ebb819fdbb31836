// Package botfront is the Telegram command surface: /start opens the
// webapp, /admin mints a short-lived panel token for primary
// administrators, /mod does the same for the database-managed secondary
// list.
package botfront

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"github.com/reviewcash/backend/internal/config"
)

// TokenIssuer mints short-lived admin panel tokens.
type TokenIssuer interface {
	Issue(subjectID int64, handle string) (string, error)
}

// ModeratorChecker resolves membership in the secondary-admin list.
type ModeratorChecker interface {
	Exists(ctx context.Context, userID int64, username string) (bool, error)
}

// Handler wires bot commands to the panel and webapp.
type Handler struct {
	bot        *bot.Bot
	cfg        *config.Config
	tokens     TokenIssuer
	moderators ModeratorChecker
	logger     *slog.Logger
}

func New(b *bot.Bot, cfg *config.Config, tokens TokenIssuer, moderators ModeratorChecker, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{bot: b, cfg: cfg, tokens: tokens, moderators: moderators, logger: logger}
}

// Register registers all command handlers on the bot instance.
func (h *Handler) Register() {
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, h.handleStart)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/admin", bot.MatchTypePrefix, h.handleAdmin)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/mod", bot.MatchTypePrefix, h.handleMod)
}

func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *tgmodels.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	if h.cfg.RequiredChannel != "" && !h.subscribed(ctx, b, userID) {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   fmt.Sprintf("Subscribe to %s first, then send /start again.", h.cfg.RequiredChannel),
		})
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "Welcome to ReviewCash! Publish tasks, leave reviews, get paid.",
		ReplyMarkup: &tgmodels.InlineKeyboardMarkup{
			InlineKeyboard: [][]tgmodels.InlineKeyboardButton{{
				{Text: "Open app", WebApp: &tgmodels.WebAppInfo{URL: h.cfg.WebAppURL}},
			}},
		},
	})
}

func (h *Handler) handleAdmin(ctx context.Context, b *bot.Bot, update *tgmodels.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}
	chatID := update.Message.Chat.ID
	from := update.Message.From

	if !h.cfg.IsPrimaryAdmin(from.ID, from.Username) {
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "This command is not for you."})
		return
	}
	h.sendPanelLink(ctx, b, chatID, from.ID, from.Username)
}

func (h *Handler) handleMod(ctx context.Context, b *bot.Bot, update *tgmodels.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}
	chatID := update.Message.Chat.ID
	from := update.Message.From

	// Primary admins get /mod too, so one roster change doesn't strand them.
	if !h.cfg.IsPrimaryAdmin(from.ID, from.Username) {
		ok, err := h.moderators.Exists(ctx, from.ID, from.Username)
		if err != nil {
			h.logger.Error("moderator lookup failed", "user_id", from.ID, "error", err)
			return
		}
		if !ok {
			b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "This command is not for you."})
			return
		}
	}
	h.sendPanelLink(ctx, b, chatID, from.ID, from.Username)
}

// sendPanelLink mints a fresh token and sends the panel button. The token
// expires quickly, so the message says to re-run the command instead of
// bookmarking the link.
func (h *Handler) sendPanelLink(ctx context.Context, b *bot.Bot, chatID, userID int64, username string) {
	tok, err := h.tokens.Issue(userID, username)
	if err != nil {
		h.logger.Error("issue panel token failed", "user_id", userID, "error", err)
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "Could not open the panel. Try again."})
		return
	}
	url := fmt.Sprintf("%s/admin.html?token=%s", strings.TrimRight(h.cfg.WebAppURL, "/"), tok)
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "Admin panel. The link expires soon; run the command again for a fresh one.",
		ReplyMarkup: &tgmodels.InlineKeyboardMarkup{
			InlineKeyboard: [][]tgmodels.InlineKeyboardButton{{
				{Text: "Open panel", WebApp: &tgmodels.WebAppInfo{URL: url}},
			}},
		},
	})
}

// subscribed checks membership in the required channel. A lookup failure
// counts as not subscribed: the user can always retry /start, while an
// open gate defeats the channel requirement.
func (h *Handler) subscribed(ctx context.Context, b *bot.Bot, userID int64) bool {
	member, err := b.GetChatMember(ctx, &bot.GetChatMemberParams{
		ChatID: h.cfg.RequiredChannel,
		UserID: userID,
	})
	if err != nil {
		h.logger.Warn("subscription check failed", "user_id", userID, "error", err)
		return false
	}
	return subscribedStatus(member.Type)
}

// subscribedStatus reports whether a chat-member status counts as
// subscribed. Only owner, administrator and member qualify; restricted,
// left and banned do not.
func subscribedStatus(t tgmodels.ChatMemberType) bool {
	switch t {
	case tgmodels.ChatMemberTypeOwner, tgmodels.ChatMemberTypeAdministrator, tgmodels.ChatMemberTypeMember:
		return true
	}
	return false
}
