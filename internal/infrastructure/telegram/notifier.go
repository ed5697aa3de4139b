package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"GrowthAgent/internal/domain"
	"GrowthAgent/internal/ports"
)

const defaultAPIBase = "https://api.telegram.org"

// Notifier sends run reports to a Telegram chat via bot API.
type Notifier struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  defaultAPIBase,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// WithAPIBase points the notifier at another Bot API host.
func (n *Notifier) WithAPIBase(base string) *Notifier {
	n.apiBase = strings.TrimRight(base, "/")
	return n
}

// PublishReport posts a Markdown summary of the run to Telegram.
func (n *Notifier) PublishReport(ctx context.Context, summary domain.RunSummary) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", BuildReportMessage(summary))
	form.Set("parse_mode", "Markdown")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &statusError{status: resp.Status, kind: domain.KindForStatus(resp.StatusCode)}
	}

	return nil
}

type statusError struct {
	status string
	kind   domain.FailureKind
}

func (e *statusError) Error() string { return "telegram error: " + e.status }

// Transient lets the runner retry rate limiting and server errors.
func (e *statusError) Transient() bool { return e.kind == domain.FailureTransient }

// BuildReportMessage renders a run summary as a short Markdown message.
func BuildReportMessage(summary domain.RunSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s* run: %s (%s)\n", summary.Workflow, summary.Status(), summary.Duration().Round(time.Second))
	for _, st := range summary.Stages {
		fmt.Fprintf(&b, "- %s: %d ok, %d failed, %d skipped\n", st.Stage, st.Succeeded, st.Failed, st.Skipped)
		keys := make([]string, 0, len(st.Notes))
		for k := range st.Notes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s: %s\n", k, st.Notes[k])
		}
	}
	if summary.Fatal != "" {
		fmt.Fprintf(&b, "fatal: %s\n", summary.Fatal)
	}
	return b.String()
}
