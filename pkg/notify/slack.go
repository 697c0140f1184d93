package notify

import (
	"context"
	"log/slog"

	"github.com/nlopes/slack"
)

// poster is the part of *slack.Client the notifier uses.
type poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackNotifier mirrors notifications into an operations channel.
type SlackNotifier struct {
	client  poster
	channel string
}

func NewSlackNotifier(token, channel string) *SlackNotifier {
	return &SlackNotifier{client: slack.New(token), channel: channel}
}

func (s *SlackNotifier) Notify(ctx context.Context, n Notification) {
	text := "*" + n.Title + "*\n" + n.Description
	if n.Severity == SeverityDestructive {
		text = ":warning: " + text
	}
	if _, _, err := s.client.PostMessageContext(ctx, s.channel, slack.MsgOptionText(text, false)); err != nil {
		slog.Warn("slack notification failed", "channel", s.channel, "error", err)
	}
}
