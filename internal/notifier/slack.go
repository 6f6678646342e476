package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/amishk599/geolens/internal/model"
)

// Ensure SlackNotifier implements model.Notifier.
var _ model.Notifier = (*SlackNotifier)(nil)

// Slack rejects section text longer than this.
const maxSectionText = 3000

// SlackNotifier posts digests to a Slack channel via Incoming Webhooks.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSlackNotifier returns a notifier that posts each digest to Slack via webhook.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Notify sends the digest as a single Block Kit message. Rate limiting is
// surfaced as a *model.HTTPError carrying Retry-After so a wrapping
// RetryNotifier owns the retry policy.
func (s *SlackNotifier) Notify(d model.Digest) error {
	body, err := json.Marshal(buildPayload(d))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}
	if err := s.post(body); err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	s.logger.Info("slack digest sent", "title", d.Title, "samples", d.SampleCount)
	return nil
}

func (s *SlackNotifier) post(body []byte) error {
	resp, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}
	httpErr := &model.HTTPError{StatusCode: resp.StatusCode}
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
		httpErr.RetryAfter = time.Duration(secs) * time.Second
	}
	return httpErr
}

// Block Kit payload types.

type slackPayload struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Fields   []slackText `json:"fields,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SendTestMessage sends a dummy digest to verify the integration works.
func SendTestMessage(n model.Notifier) error {
	return n.Notify(model.Digest{
		Title:       "GeoLens test digest",
		Summary:     "## Integration verified\nThis is a **test** message from geolens.",
		SampleCount: 0,
		GeneratedAt: time.Now(),
	})
}

func buildPayload(d model.Digest) slackPayload {
	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: "🪨 " + d.Title},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*Samples:*\n" + strconv.Itoa(d.SampleCount)},
				{Type: "mrkdwn", Text: "*Generated:*\n" + d.GeneratedAt.UTC().Format(time.RFC1123)},
			},
		},
		{Type: "divider"},
	}

	for _, chunk := range splitText(toMrkdwn(d.Summary), maxSectionText) {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: chunk},
		})
	}

	blocks = append(blocks, slackBlock{
		Type:     "context",
		Elements: []slackText{{Type: "mrkdwn", Text: "Sent by geolens"}},
	})

	return slackPayload{Text: d.Title, Blocks: blocks}
}

var (
	headingRe = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)
	boldRe    = regexp.MustCompile(`\*\*(.+?)\*\*`)
)

// toMrkdwn rewrites the markdown the model produces into Slack's mrkdwn dialect.
func toMrkdwn(md string) string {
	out := boldRe.ReplaceAllString(md, "*$1*")
	out = headingRe.ReplaceAllString(out, "*$1*")
	return strings.TrimSpace(out)
}

// splitText cuts s into pieces of at most limit bytes, preferring line breaks
// and never splitting a UTF-8 sequence.
func splitText(s string, limit int) []string {
	if s == "" {
		return []string{"_(empty summary)_"}
	}
	var chunks []string
	for len(s) > limit {
		cut := strings.LastIndexByte(s[:limit], '\n')
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(s[cut]) {
				cut--
			}
		}
		chunks = append(chunks, strings.TrimRight(s[:cut], "\n"))
		s = strings.TrimLeft(s[cut:], "\n")
	}
	if s != "" {
		chunks = append(chunks, s)
	}
	return chunks
}
