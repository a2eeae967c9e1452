package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"
)

// maxErrorBody bounds how much of a rejected webhook response ends up in the error.
const maxErrorBody = 512

// webhook posts JSON payloads to an incoming-webhook URL.
type webhook struct {
	service string
	url     string
	client  *http.Client
	accept  []int
}

func newWebhook(service, url string, accept ...int) *webhook {
	if len(accept) == 0 {
		accept = []int{http.StatusOK}
	}
	return &webhook{
		service: service,
		url:     url,
		client:  &http.Client{Timeout: defaultWebhookTimeout},
		accept:  accept,
	}
}

func (w *webhook) post(ctx context.Context, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: encoding payload: %w", w.service, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%s: building request: %w", w.service, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: posting webhook: %w", w.service, err)
	}
	defer resp.Body.Close()

	if slices.Contains(w.accept, resp.StatusCode) {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return fmt.Errorf("%s: webhook returned status %d: %s", w.service, resp.StatusCode, strings.TrimSpace(string(body)))
}

// counts returns the labelled totals shown by every notifier, in display order.
func counts(summary *RunSummary) [][2]string {
	out := [][2]string{
		{"Total", strconv.Itoa(summary.TotalTests)},
		{"Passed", strconv.Itoa(summary.PassedTests)},
		{"Failed", strconv.Itoa(summary.FailedTests + summary.ErrorTests)},
		{"Skipped", strconv.Itoa(summary.SkippedTests)},
		{"Duration", summary.Duration.Round(time.Millisecond).String()},
	}
	if summary.Environment != "" {
		out = append(out, [2]string{"Environment", summary.Environment})
	}
	return out
}

// failureLines renders one line per failed case followed by its indented errors.
func failureLines(summary *RunSummary, bullet, code string) []string {
	var lines []string
	for _, ft := range summary.FailedResults {
		line := bullet + code + ft.Name + code
		if ft.Kind != "" {
			line += " (" + ft.Kind + ")"
		}
		lines = append(lines, line)
		for _, e := range ft.Errors {
			lines = append(lines, "    "+e)
		}
	}
	return lines
}
