package notify

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/stockflow/internal/domain/materials"
)

// Telegram шлёт оповещения о низком остатке в админ-чат.
type Telegram struct {
	api    *tgbotapi.BotAPI
	chatID int64
	log    *slog.Logger
}

func NewTelegram(token string, chatID int64, log *slog.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return NewTelegramWithAPI(api, chatID, log), nil
}

func NewTelegramWithAPI(api *tgbotapi.BotAPI, chatID int64, log *slog.Logger) *Telegram {
	if log == nil {
		log = slog.Default()
	}
	return &Telegram{api: api, chatID: chatID, log: log.With("component", "notify")}
}

func (t *Telegram) LowStock(ctx context.Context, ownerID string, m materials.Material) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.api.Send(tgbotapi.NewMessage(t.chatID, lowStockText(ownerID, m))); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	t.log.Debug("low stock alert sent", "owner", ownerID, "material", m.ID)
	return nil
}

func lowStockText(ownerID string, m materials.Material) string {
	if m.Stock.IsZero() {
		return fmt.Sprintf("⚠️ Материалы (%s):\n— %s\nзакончились.", ownerID, m.Name)
	}
	return fmt.Sprintf("⚠️ Материалы (%s):\n— %s — %s %s заканчиваются…", ownerID, m.Name, m.Stock.String(), m.Unit)
}
