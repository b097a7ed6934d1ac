package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	events []string
	titles []string
}

func (r *recordingSender) Send(ctx context.Context, event, title, message string) error {
	r.events = append(r.events, event)
	r.titles = append(r.titles, title)
	return nil
}

func (r *recordingSender) Name() string { return "recording" }

func TestNotifyFiltersEvents(t *testing.T) {
	sender := &recordingSender{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	n := NewNotifier([]Sender{sender}, []string{EventLiquidation}, logger)

	ctx := context.Background()
	require.NoError(t, n.Notify(ctx, EventOrderFilled, "order filled", "ORD-1"))
	require.NoError(t, n.Notify(ctx, EventLiquidation, "position liquidated", "CT-1"))

	assert.Equal(t, []string{EventLiquidation}, sender.events)
}

func TestNotifyAllBypassesFilter(t *testing.T) {
	sender := &recordingSender{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	n := NewNotifier([]Sender{sender}, []string{EventLiquidation}, logger)

	require.NoError(t, n.NotifyAll(context.Background(), "maintenance", "feed restarting"))
	assert.Equal(t, []string{"maintenance"}, sender.titles)
}

func TestEventTag(t *testing.T) {
	assert.Equal(t, "FILL", eventTag(EventOrderFilled))
	assert.Equal(t, "REJECT", eventTag(EventOrderRejected))
	assert.Equal(t, "LIQUIDATION", eventTag(EventLiquidation))
	assert.Equal(t, "", eventTag(""))
	assert.Equal(t, "CUSTOM", eventTag("custom"))
}

func TestDiscordSenderBuildsEmbed(t *testing.T) {
	var got discordPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sender := NewDiscordSender(srv.URL)
	err := sender.Send(context.Background(), EventLiquidation, "position liquidated", "CT-1 at 45500")
	require.NoError(t, err)

	require.Len(t, got.Embeds, 1)
	assert.Equal(t, "[LIQUIDATION] position liquidated", got.Embeds[0].Title)
	assert.Equal(t, "CT-1 at 45500", got.Embeds[0].Description)
	assert.Equal(t, colorLiquidation, got.Embeds[0].Color)
}
