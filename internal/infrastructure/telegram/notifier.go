package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

const (
	defaultAPIBase = "https://api.telegram.org"
	maxMessageLen  = 4096
	divider        = "━━━━━━━━━━━━━━━━━━━━━━"
)

// Notifier sends digests to a Telegram chat via bot API.
type Notifier struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
	location *time.Location
	now      func() time.Time
}

var _ ports.DigestPublisher = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier. Timestamps in
// messages are rendered in loc.
func NewNotifier(botToken, chatID string, loc *time.Location) *Notifier {
	if loc == nil {
		loc = time.UTC
	}
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  defaultAPIBase,
		client:   &http.Client{Timeout: 30 * time.Second},
		location: loc,
		now:      time.Now,
	}
}

// WithEndpoint points the notifier at another Bot API host.
func (n *Notifier) WithEndpoint(base string, client *http.Client) *Notifier {
	n.apiBase = strings.TrimRight(base, "/")
	if client != nil {
		n.client = client
	}
	return n
}

// Name identifies the channel in logs.
func (n *Notifier) Name() string { return "telegram" }

// PublishDigest sends a summary header, one message per non-empty category
// and a closing line. It fails only when no message got through.
func (n *Notifier) PublishDigest(ctx context.Context, report domain.CycleReport, ranking domain.CategoryRanking) error {
	messages := FormatDigest(ranking, n.now().In(n.location))
	return n.sendAll(ctx, messages)
}

// PublishNoData tells the channel that the cycle collected nothing.
func (n *Notifier) PublishNoData(ctx context.Context, report domain.CycleReport) error {
	ts := n.now().In(n.location)
	msg := fmt.Sprintf("글로벌 뉴스 브리핑\n%s\n%s\n\n최근 수집된 게시물이 없습니다. (계정 %d개 중 %d개 실패)",
		ts.Format("2006년 01월 02일 15:04 MST"), divider, report.AccountsTotal, report.AccountsFailed)
	return n.sendAll(ctx, []string{msg})
}

// FormatDigest renders the ranking as plain-text messages within
// Telegram's length limit.
func FormatDigest(ranking domain.CategoryRanking, ts time.Time) []string {
	var header strings.Builder
	header.WriteString("글로벌 뉴스 브리핑\n")
	header.WriteString(ts.Format("2006년 01월 02일 15:04 MST") + "\n")
	header.WriteString(divider + "\n\n이번 브리핑 요약\n")
	for _, cat := range domain.Topics {
		if n := len(ranking[cat]); n > 0 {
			fmt.Fprintf(&header, "  • %s: %d건\n", cat.Label(), n)
		}
	}
	fmt.Fprintf(&header, "\n총 %d건의 주요 소식", ranking.Total())

	messages := []string{header.String()}
	for _, cat := range domain.Topics {
		items := ranking[cat]
		if len(items) == 0 {
			continue
		}
		messages = append(messages, formatCategory(cat, items, ts)...)
	}
	messages = append(messages, "브리핑 완료")
	return messages
}

func formatCategory(cat domain.Category, items []domain.ScoredItem, ts time.Time) []string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]\n%s 기준 주요 소식\n\n", cat.Label(), ts.Format("2006.01.02 15:04 MST"))
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item.Headline)
		if item.Summary != "" {
			fmt.Fprintf(&b, "- %s\n", item.Summary)
		}
		if item.Analysis != "" {
			fmt.Fprintf(&b, "분석: %s\n", item.Analysis)
		}
		if item.MarketImpact != "" {
			fmt.Fprintf(&b, "시장 영향: %s\n", item.MarketImpact)
		}
		if item.URL != "" {
			fmt.Fprintf(&b, "원문: %s (@%s)\n", item.URL, item.Author)
		}
		b.WriteString("\n")
	}

	msg := strings.TrimRight(b.String(), "\n")
	if utf8.RuneCountInString(msg) <= maxMessageLen || len(items) < 2 {
		return []string{truncateMessage(msg)}
	}
	mid := len(items) / 2
	return append(formatCategory(cat, items[:mid], ts), formatCategory(cat, items[mid:], ts)...)
}

func truncateMessage(msg string) string {
	r := []rune(msg)
	if len(r) <= maxMessageLen {
		return msg
	}
	return string(r[:maxMessageLen-3]) + "..."
}

func (n *Notifier) sendAll(ctx context.Context, messages []string) error {
	sent := 0
	var lastErr error
	for _, msg := range messages {
		if err := n.send(ctx, msg); err != nil {
			lastErr = err
			continue
		}
		sent++
	}
	if sent == 0 && lastErr != nil {
		return lastErr
	}
	return nil
}

func (n *Notifier) send(ctx context.Context, text string) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", text)
	form.Set("disable_web_page_preview", "true")

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

	var body struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(raw, &body)

	if resp.StatusCode != http.StatusOK || !body.OK {
		return fmt.Errorf("telegram error: %s %s", resp.Status, body.Description)
	}

	return nil
}
