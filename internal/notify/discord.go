package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Embed colors per event type: green fills, orange rejections, red
// liquidations, grey for everything else.
const (
	colorFilled      = 0x2ECC71
	colorRejected    = 0xE67E22
	colorLiquidation = 0xE74C3C
	colorDefault     = 0x95A5A6
)

func discordColor(event string) int {
	switch event {
	case EventOrderFilled:
		return colorFilled
	case EventOrderRejected:
		return colorRejected
	case EventLiquidation:
		return colorLiquidation
	default:
		return colorDefault
	}
}

// DiscordSender delivers execution alerts via a Discord webhook.
type DiscordSender struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordSender creates a DiscordSender for the given webhook URL. It uses a
// default HTTP client with a 10-second timeout.
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type discordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
}

type discordPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

// Send posts the alert to the Discord webhook as an embed colored by event
// type.
func (d *DiscordSender) Send(ctx context.Context, event, title, message string) error {
	embedTitle := title
	if tag := eventTag(event); tag != "" {
		embedTitle = fmt.Sprintf("[%s] %s", tag, title)
	}

	body, err := json.Marshal(discordPayload{
		Embeds: []discordEmbed{{
			Title:       embedTitle,
			Description: message,
			Color:       discordColor(event),
		}},
	})
	if err != nil {
		return fmt.Errorf("discord: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord: send request: %w", err)
	}
	defer resp.Body.Close()

	// Discord returns 204 No Content on success.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("discord: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// Name returns the sender identifier.
func (d *DiscordSender) Name() string {
	return "discord"
}
