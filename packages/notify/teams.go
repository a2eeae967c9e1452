package notify

import (
	"context"
	"net/http"
	"time"
)

// TeamsNotifier posts run summaries as an Adaptive Card to a Microsoft
// Teams workflow webhook.
type TeamsNotifier struct {
	hook *webhook
}

// TeamsOption configures a TeamsNotifier.
type TeamsOption func(*TeamsNotifier)

// WithTeamsTimeout sets the webhook request timeout.
func WithTeamsTimeout(d time.Duration) TeamsOption {
	return func(t *TeamsNotifier) { t.hook.client.Timeout = d }
}

func NewTeamsNotifier(webhookURL string, opts ...TeamsOption) *TeamsNotifier {
	// Workflow webhooks answer 202 while legacy connectors answer 200.
	t := &TeamsNotifier{hook: newWebhook("teams", webhookURL, http.StatusOK, http.StatusAccepted)}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *TeamsNotifier) Name() string { return "teams" }

type teamsPayload struct {
	Type        string            `json:"type"`
	Attachments []teamsAttachment `json:"attachments"`
}

type teamsAttachment struct {
	ContentType string    `json:"contentType"`
	Content     teamsCard `json:"content"`
}

type teamsCard struct {
	Schema  string         `json:"$schema"`
	Type    string         `json:"type"`
	Version string         `json:"version"`
	Body    []teamsElement `json:"body"`
}

type teamsFact struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

// teamsElement covers the TextBlock and FactSet elements the card uses.
type teamsElement struct {
	Type      string      `json:"type"`
	Text      string      `json:"text,omitempty"`
	Size      string      `json:"size,omitempty"`
	Weight    string      `json:"weight,omitempty"`
	Color     string      `json:"color,omitempty"`
	IsSubtle  bool        `json:"isSubtle,omitempty"`
	Wrap      bool        `json:"wrap,omitempty"`
	Separator bool        `json:"separator,omitempty"`
	Facts     []teamsFact `json:"facts,omitempty"`
}

func (t *TeamsNotifier) Notify(ctx context.Context, summary *RunSummary) error {
	title, ok := headline(summary)
	color, mark := "good", "✓"
	if !ok {
		color, mark = "attention", "✗"
	}

	facts := make([]teamsFact, 0, 6)
	for _, c := range counts(summary) {
		facts = append(facts, teamsFact{Title: c[0], Value: c[1]})
	}

	body := []teamsElement{
		{Type: "TextBlock", Size: "Large", Weight: "Bolder", Color: color, Wrap: true,
			Text: mark + " " + summary.Suite + ": " + title},
		{Type: "FactSet", Separator: true, Facts: facts},
	}
	if summary.Error != "" {
		body = append(body, teamsElement{Type: "TextBlock", Color: "attention", Wrap: true,
			Text: "**Error:** " + summary.Error})
	}
	if lines := failureLines(summary, "- ", "`"); len(lines) > 0 {
		body = append(body, teamsElement{Type: "TextBlock", Weight: "Bolder", Separator: true, Text: "Failed tests"})
		for _, line := range lines {
			body = append(body, teamsElement{Type: "TextBlock", Wrap: true, Text: line})
		}
	}
	body = append(body, teamsElement{Type: "TextBlock", IsSubtle: true, Separator: true,
		Text: "scriptsuite · " + time.Now().UTC().Format(time.RFC3339)})

	return t.hook.post(ctx, teamsPayload{
		Type: "message",
		Attachments: []teamsAttachment{{
			ContentType: "application/vnd.microsoft.card.adaptive",
			Content: teamsCard{
				Schema:  "http://adaptivecards.io/schemas/adaptive-card.json",
				Type:    "AdaptiveCard",
				Version: "1.4",
				Body:    body,
			},
		}},
	})
}
