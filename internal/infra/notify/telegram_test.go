package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Spok95/stockflow/internal/domain/materials"
)

type fakeTelegram struct {
	mu    sync.Mutex
	texts []string
	chats []string
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"stock","username":"stock_bot"}}`))
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		_ = r.ParseForm()
		f.mu.Lock()
		f.texts = append(f.texts, r.PostForm.Get("text"))
		f.chats = append(f.chats, r.PostForm.Get("chat_id"))
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"},"text":"ok"}}`))
	default:
		_, _ = w.Write([]byte(`{"ok":false,"error_code":404,"description":"Not Found"}`))
	}
}

func TestTelegram_LowStock(t *testing.T) {
	fake := &fakeTelegram{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	api, err := tgbotapi.NewBotAPIWithClient("TOKEN", srv.URL+"/bot%s/%s", srv.Client())
	if err != nil {
		t.Fatalf("bot api: %v", err)
	}
	n := NewTelegramWithAPI(api, 42, nil)

	flour := materials.Material{ID: uuid.New(), Name: "Flour", Unit: materials.UnitKg, Stock: decimal.RequireFromString("4.5")}
	if err := n.LowStock(context.Background(), "u1", flour); err != nil {
		t.Fatalf("low stock: %v", err)
	}
	flour.Stock = decimal.Zero
	if err := n.LowStock(context.Background(), "u1", flour); err != nil {
		t.Fatalf("low stock: %v", err)
	}

	if len(fake.texts) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(fake.texts))
	}
	if fake.chats[0] != "42" {
		t.Errorf("Expected chat 42, got %q", fake.chats[0])
	}
	if !strings.Contains(fake.texts[0], "Flour — 4.5 kg") {
		t.Errorf("unexpected text %q", fake.texts[0])
	}
	if !strings.Contains(fake.texts[1], "закончились") {
		t.Errorf("unexpected text %q", fake.texts[1])
	}
}

func TestTelegram_CanceledContext(t *testing.T) {
	n := NewTelegramWithAPI(nil, 42, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := n.LowStock(ctx, "u1", materials.Material{Name: "Flour"}); err == nil {
		t.Error("Expected error for canceled context")
	}
}
