package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polyarb/internal/domain"
)

type fakeSender struct {
	mu   sync.Mutex
	name string
	fail bool
	msgs []Message
}

func (f *fakeSender) Send(ctx context.Context, msg Message) error {
	if f.fail {
		return errors.New("boom")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeSender) Name() string { return f.name }

func (f *fakeSender) sent() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.msgs...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func opportunity(key string, net float64) domain.ArbitrageOpportunity {
	return domain.ArbitrageOpportunity{
		Key:       key,
		Question:  "Will " + key + " resolve yes?",
		TotalCost: 0.90,
		NetProfit: net,
		ROIPct:    net / 0.90 * 100,
		Guarantee: domain.ProfitGuarantee{ExtractionPct: 1},
	}
}

func resultWith(opps ...domain.ArbitrageOpportunity) *domain.ScanResult {
	return &domain.ScanResult{Opportunities: opps}
}

func TestNotifier_OpportunityAlertsRespectCooldown(t *testing.T) {
	sender := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{sender}, Config{
		OnArb:    true,
		Cooldown: time.Hour,
	}, NewMemoryCooldown(), discardLogger())

	result := resultWith(opportunity("m1", 0.098))
	require.NoError(t, n.Opportunities(context.Background(), result))
	require.NoError(t, n.Opportunities(context.Background(), result))

	assert.Len(t, sender.sent(), 1, "second cycle is inside the cooldown window")
}

func TestNotifier_ProfitFloorFiltersAlerts(t *testing.T) {
	sender := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{sender}, Config{
		OnArb:     true,
		MinProfit: 0.05,
	}, NewMemoryCooldown(), discardLogger())

	require.NoError(t, n.Opportunities(context.Background(), resultWith(
		opportunity("small", 0.01),
		opportunity("big", 0.098),
	)))

	msgs := sender.sent()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Body, "big")
	assert.NotContains(t, msgs[0].Body, "small")
	assert.Equal(t, colorGreen, msgs[0].Color)
}

func TestNotifier_DisabledEventsStaySilent(t *testing.T) {
	sender := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{sender}, Config{}, nil, discardLogger())

	ctx := context.Background()
	require.NoError(t, n.Startup(ctx, "mode=scan"))
	require.NoError(t, n.Error(ctx, "fetch markets", errors.New("down")))
	require.NoError(t, n.Opportunities(ctx, resultWith(opportunity("m1", 0.098))))
	require.NoError(t, n.Shutdown(ctx, "bye"))

	assert.Empty(t, sender.sent())
}

func TestNotifier_SenderFailureDoesNotBlockOthers(t *testing.T) {
	bad := &fakeSender{name: "bad", fail: true}
	good := &fakeSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, Config{OnError: true}, nil, discardLogger())

	err := n.Error(context.Background(), "deep scan", errors.New("timeout"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
	require.Len(t, good.sent(), 1)
	assert.Equal(t, colorRed, good.sent()[0].Color)
}

func TestNotifier_LongAlertListsAreTruncated(t *testing.T) {
	sender := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{sender}, Config{OnArb: true}, nil, discardLogger())

	var opps []domain.ArbitrageOpportunity
	for i := 0; i < 7; i++ {
		opps = append(opps, opportunity(fmt.Sprintf("m%d", i), 0.098))
	}
	require.NoError(t, n.Opportunities(context.Background(), resultWith(opps...)))

	msgs := sender.sent()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Arbitrage detected (7)", msgs[0].Title)
	assert.Contains(t, msgs[0].Body, "and 2 more")
}

func TestMemoryCooldown_ReopensAfterTTL(t *testing.T) {
	now := time.Now()
	cd := NewMemoryCooldown()
	cd.now = func() time.Time { return now }

	ok, err := cd.Allow(context.Background(), "arb:m1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cd.Allow(context.Background(), "arb:m1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "inside the window")

	now = now.Add(61 * time.Second)
	ok, err = cd.Allow(context.Background(), "arb:m1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "window expired")
}

func TestDiscordSender_PostsEmbed(t *testing.T) {
	var got discordPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewDiscordSender(srv.URL)
	err := s.Send(context.Background(), Message{
		Title: "Arbitrage detected (1)",
		Body:  "cost $0.9000, net $0.0980",
		Color: colorGreen,
	})

	require.NoError(t, err)
	require.Len(t, got.Embeds, 1)
	assert.Equal(t, "Arbitrage detected (1)", got.Embeds[0].Title)
	assert.Equal(t, colorGreen, got.Embeds[0].Color)
	assert.Contains(t, got.Embeds[0].Description, "net $0.0980")
	assert.NotEmpty(t, got.Embeds[0].Timestamp)
}

func TestDiscordSender_SurfacesWebhookErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid webhook", http.StatusNotFound)
	}))
	defer srv.Close()

	err := NewDiscordSender(srv.URL).Send(context.Background(), Message{Title: "x"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestTelegramSender_PostsMarkdown(t *testing.T) {
	var got map[string]string
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	s := NewTelegramSender("123:abc", "42")
	s.apiBase = srv.URL

	err := s.Send(context.Background(), Message{Title: "Scanner started", Body: "mode=scan"})

	require.NoError(t, err)
	assert.Equal(t, "/bot123:abc/sendMessage", path)
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "*Scanner started*\nmode=scan", got["text"])
	assert.Equal(t, "Markdown", got["parse_mode"])
}
