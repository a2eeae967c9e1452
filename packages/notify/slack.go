package notify

import (
	"context"
	"strings"
	"time"
)

// SlackNotifier posts run summaries to a Slack incoming webhook. The
// message carries Block Kit blocks for the counts and a colored attachment
// with the failure details.
type SlackNotifier struct {
	hook      *webhook
	channel   string
	username  string
	iconEmoji string
}

// SlackOption configures a SlackNotifier.
type SlackOption func(*SlackNotifier)

// WithSlackChannel overrides the webhook's default channel.
func WithSlackChannel(channel string) SlackOption {
	return func(s *SlackNotifier) { s.channel = channel }
}

// WithSlackUsername sets the displayed bot name.
func WithSlackUsername(username string) SlackOption {
	return func(s *SlackNotifier) { s.username = username }
}

// WithSlackIconEmoji sets the displayed bot icon.
func WithSlackIconEmoji(emoji string) SlackOption {
	return func(s *SlackNotifier) { s.iconEmoji = emoji }
}

func NewSlackNotifier(webhookURL string, opts ...SlackOption) *SlackNotifier {
	s := &SlackNotifier{
		hook:      newWebhook("slack", webhookURL),
		username:  "scriptsuite",
		iconEmoji: ":test_tube:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SlackNotifier) Name() string { return "slack" }

type slackPayload struct {
	Channel     string            `json:"channel,omitempty"`
	Username    string            `json:"username,omitempty"`
	IconEmoji   string            `json:"icon_emoji,omitempty"`
	Text        string            `json:"text"`
	Blocks      []slackBlock      `json:"blocks,omitempty"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Fields   []slackText `json:"fields,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackAttachment struct {
	Color    string `json:"color"`
	Title    string `json:"title"`
	Text     string `json:"text,omitempty"`
	Footer   string `json:"footer,omitempty"`
	Fallback string `json:"fallback,omitempty"`
	TS       int64  `json:"ts,omitempty"`
}

func mrkdwn(text string) slackText { return slackText{Type: "mrkdwn", Text: text} }

func (s *SlackNotifier) Notify(ctx context.Context, summary *RunSummary) error {
	title, ok := headline(summary)
	color, emoji := "good", ":white_check_mark:"
	switch {
	case !ok:
		color, emoji = "danger", ":x:"
	case summary.IsRecovery:
		emoji = ":tada:"
	}
	heading := emoji + " " + summary.Suite + ": " + title

	var fields []slackText
	for _, c := range counts(summary) {
		fields = append(fields, mrkdwn("*"+c[0]+"*\n"+c[1]))
	}

	var detail strings.Builder
	if summary.Error != "" {
		detail.WriteString("*Error:* " + summary.Error + "\n")
	}
	if lines := failureLines(summary, "• ", "`"); len(lines) > 0 {
		detail.WriteString("*Failed tests:*\n")
		detail.WriteString(strings.Join(lines, "\n"))
	}

	payload := slackPayload{
		Channel:   s.channel,
		Username:  s.username,
		IconEmoji: s.iconEmoji,
		Text:      heading,
		Blocks: []slackBlock{
			{Type: "section", Text: &slackText{Type: "mrkdwn", Text: "*" + heading + "*"}},
			{Type: "section", Fields: fields},
			{Type: "context", Elements: []slackText{mrkdwn("scriptsuite run " + string(summary.Status))}},
		},
		Attachments: []slackAttachment{{
			Color:    color,
			Title:    heading,
			Text:     detail.String(),
			Footer:   "scriptsuite",
			Fallback: heading,
			TS:       time.Now().Unix(),
		}},
	}
	return s.hook.post(ctx, payload)
}
