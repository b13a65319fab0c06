// Package alert delivers anomaly reports to an external webhook so that
// downstream systems can turn severity-ranked events into trading alerts.
package alert

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"market-anomaly/internal/engine"
)

// Notifier posts anomaly reports to a webhook URL. A Notifier with an
// empty URL is a no-op, which keeps alerting optional in configuration.
type Notifier struct {
	url    string
	client *resty.Client
}

// New creates a notifier for the given webhook URL.
func New(url string, timeout time.Duration) *Notifier {
	client := resty.New()
	if timeout > 0 {
		client.SetTimeout(timeout)
	} else {
		client.SetTimeout(5 * time.Second)
	}
	return &Notifier{url: url, client: client}
}

// payload is the webhook wire format.
type payload struct {
	Symbol     string         `json:"symbol"`
	Total      int            `json:"total"`
	Percentage float64        `json:"percentage"`
	Events     []engine.Event `json:"events"`
	SentAt     time.Time      `json:"sent_at"`
}

// Send posts the report's summary and top events. Reports that carry an
// internal error, or report zero anomalies, are not sent.
func (n *Notifier) Send(symbol string, report *engine.Report) error {
	if n == nil || n.url == "" {
		return nil
	}
	if report == nil || report.Error != "" || report.Total == 0 {
		return nil
	}

	body := payload{
		Symbol:     symbol,
		Total:      report.Total,
		Percentage: report.Percentage,
		Events:     report.Top,
		SentAt:     time.Now().UTC(),
	}

	resp, err := n.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(n.url)
	if err != nil {
		log.Error().Err(err).Str("url", n.url).Msg("alert webhook request failed")
		return fmt.Errorf("post alert webhook: %w", err)
	}
	if resp.IsError() {
		log.Error().Int("status", resp.StatusCode()).Str("url", n.url).Msg("alert webhook rejected report")
		return fmt.Errorf("alert webhook returned status %d", resp.StatusCode())
	}

	log.Info().
		Str("symbol", symbol).
		Int("events", len(report.Top)).
		Msg("anomaly alert delivered")
	return nil
}
