package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"autotrade_go/internal/infra"

	"github.com/go-resty/resty/v2"
)

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackBlock struct {
	Type string    `json:"type"`
	Text slackText `json:"text"`
}

type postMessageRequest struct {
	Channel string       `json:"channel"`
	Text    string       `json:"text"`
	Blocks  []slackBlock `json:"blocks"`
}

type postMessageResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// SlackNotifier posts messages with chat.postMessage. It never returns errors.
type SlackNotifier struct {
	token   string
	channel string
	client  *resty.Client
	logger  *slog.Logger
}

// NewSlackNotifier creates a notifier from the slack section.
// Missing credentials produce a notifier that only logs.
func NewSlackNotifier(cfg *infra.Config) *SlackNotifier {
	client := resty.New().
		SetBaseURL(cfg.Slack.APIURL).
		SetTimeout(10*time.Second).
		SetHeader("Content-Type", "application/json; charset=utf-8")

	return &SlackNotifier{
		token:   cfg.Slack.Token,
		channel: cfg.Slack.Channel,
		client:  client,
		logger:  slog.Default().With("module", "notify"),
	}
}

// Enabled reports whether credentials are configured.
func (n *SlackNotifier) Enabled() bool {
	return n.token != "" && n.channel != ""
}

// Notify sends message as one mrkdwn section. The first line doubles as
// the plain-text fallback.
func (n *SlackNotifier) Notify(ctx context.Context, message string) {
	if !n.Enabled() {
		n.logger.Warn("⚠️ Slack credentials not found, skipping notification")
		return
	}

	headline, _, _ := strings.Cut(message, "\n")
	req := postMessageRequest{
		Channel: n.channel,
		Text:    strings.ReplaceAll(headline, "*", ""),
		Blocks: []slackBlock{{
			Type: "section",
			Text: slackText{Type: "mrkdwn", Text: message},
		}},
	}

	var out postMessageResponse
	resp, err := n.client.R().
		SetContext(ctx).
		SetAuthToken(n.token).
		SetBody(req).
		SetResult(&out).
		Post("/chat.postMessage")
	if err != nil {
		n.logger.Warn("⚠️ Slack request failed", slog.Any("error", err))
		return
	}
	if resp.IsError() {
		n.logger.Warn("⚠️ Slack API error", slog.Int("status", resp.StatusCode()))
		return
	}
	if !out.OK {
		n.logger.Warn("⚠️ Slack API error", slog.String("error", out.Error))
		return
	}
	n.logger.Info("✅ Slack notification sent", slog.String("headline", req.Text))
}

// LogNotifier writes notifications to the log only.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, message string) {
	slog.Info("📣 Notification", slog.String("message", message))
}

// String describes the notifier for startup logs.
func (n *SlackNotifier) String() string {
	if !n.Enabled() {
		return "slack(disabled)"
	}
	return fmt.Sprintf("slack(%s)", n.channel)
}
