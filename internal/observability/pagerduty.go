package observability

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// PagerDutyConfig holds configuration for PagerDuty Events API v2.
type PagerDutyConfig struct {
	// RoutingKey is the PagerDuty Events API v2 integration key.
	RoutingKey string
	// Enabled controls whether alerts are sent.
	Enabled bool
	// SourceName identifies this instance (e.g. "leadtriage-worker-01").
	SourceName string
	// HTTPTimeout for the PagerDuty API call.
	HTTPTimeout time.Duration
	// EventsURL overrides the PagerDuty Events API endpoint; used by tests
	// to point at a local server. Empty means the real endpoint.
	EventsURL string
}

// DefaultPagerDutyConfig returns defaults.
func DefaultPagerDutyConfig() PagerDutyConfig {
	return PagerDutyConfig{
		RoutingKey:  "",
		Enabled:     false,
		SourceName:  "leadtriage",
		HTTPTimeout: 10 * time.Second,
	}
}

// PagerDutySeverity maps to PagerDuty alert severity.
type PagerDutySeverity string

const (
	PDSeverityCritical PagerDutySeverity = "critical"
	PDSeverityError    PagerDutySeverity = "error"
	PDSeverityWarning  PagerDutySeverity = "warning"
	PDSeverityInfo     PagerDutySeverity = "info"
)

// PagerDutyClient sends incidents to PagerDuty Events API v2.
type PagerDutyClient struct {
	cfg    PagerDutyConfig
	client *http.Client
	logger zerolog.Logger
}

const defaultPagerDutyEventsURL = "https://events.pagerduty.com/v2/enqueue"

// NewPagerDutyClient creates a PagerDuty alerting client.
func NewPagerDutyClient(cfg PagerDutyConfig, logger zerolog.Logger) *PagerDutyClient {
	return &PagerDutyClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		logger: logger.With().Str("component", "pagerduty").Logger(),
	}
}

func (pd *PagerDutyClient) eventsURL() string {
	if pd.cfg.EventsURL != "" {
		return pd.cfg.EventsURL
	}
	return defaultPagerDutyEventsURL
}

// TriggerAlert fires a PagerDuty alert.
func (pd *PagerDutyClient) TriggerAlert(
	severity PagerDutySeverity,
	summary string,
	dedupKey string,
	details map[string]interface{},
) error {
	if !pd.cfg.Enabled || pd.cfg.RoutingKey == "" {
		pd.logger.Debug().Str("summary", summary).Msg("PagerDuty disabled, alert suppressed")
		return nil
	}

	payload := map[string]interface{}{
		"routing_key":  pd.cfg.RoutingKey,
		"event_action": "trigger",
		"dedup_key":    dedupKey,
		"payload": map[string]interface{}{
			"summary":         summary,
			"severity":        string(severity),
			"source":          pd.cfg.SourceName,
			"component":       "leadtriage",
			"group":           "lead-triage",
			"class":           "infrastructure",
			"timestamp":       time.Now().UTC().Format(time.RFC3339),
			"custom_details":  details,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("pagerduty: marshal failed: %w", err)
	}

	resp, err := pd.client.Post(pd.eventsURL(), "application/json", bytes.NewReader(body))
	if err != nil {
		pd.logger.Error().Err(err).Str("dedup_key", dedupKey).Msg("PagerDuty API call failed")
		return fmt.Errorf("pagerduty: API call failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		pd.logger.Error().Int("status", resp.StatusCode).Str("dedup_key", dedupKey).Msg("PagerDuty API error")
		return fmt.Errorf("pagerduty: HTTP %d", resp.StatusCode)
	}

	pd.logger.Info().Str("dedup_key", dedupKey).Str("severity", string(severity)).Msg("PagerDuty alert triggered")
	return nil
}

// ResolveAlert resolves a previously triggered alert.
func (pd *PagerDutyClient) ResolveAlert(dedupKey string) error {
	if !pd.cfg.Enabled || pd.cfg.RoutingKey == "" {
		return nil
	}

	payload := map[string]interface{}{
		"routing_key":  pd.cfg.RoutingKey,
		"event_action": "resolve",
		"dedup_key":    dedupKey,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("pagerduty: marshal failed: %w", err)
	}

	resp, err := pd.client.Post(pd.eventsURL(), "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("pagerduty: resolve call failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	pd.logger.Info().Str("dedup_key", dedupKey).Msg("PagerDuty alert resolved")
	return nil
}

// AlertClassifierDown fires a critical alert when a classifier adapter fails
// its health check, per the health poller's OnStatusChange callback.
func (pd *PagerDutyClient) AlertClassifierDown(adapter string, errorMsg string) error {
	return pd.TriggerAlert(
		PDSeverityCritical,
		fmt.Sprintf("leadtriage: classifier adapter %s is unhealthy", adapter),
		fmt.Sprintf("leadtriage-classifier-down-%s", adapter),
		map[string]interface{}{
			"adapter": adapter,
			"error":   errorMsg,
		},
	)
}

// AlertClassifierRecovered resolves a classifier-down alert.
func (pd *PagerDutyClient) AlertClassifierRecovered(adapter string) error {
	return pd.ResolveAlert(fmt.Sprintf("leadtriage-classifier-down-%s", adapter))
}

// AlertDeadLetterBacklog fires when the dead-letter stream's length exceeds
// an operator-chosen threshold, signalling a sustained run of poison
// messages the worker pool could not process.
func (pd *PagerDutyClient) AlertDeadLetterBacklog(length int64, threshold int64) error {
	return pd.TriggerAlert(
		PDSeverityError,
		fmt.Sprintf("leadtriage: dead-letter stream backlog at %d entries (threshold %d)", length, threshold),
		"leadtriage-dlq-backlog",
		map[string]interface{}{
			"dead_letter_length": length,
			"threshold":          threshold,
		},
	)
}

// AlertDeadLetterBacklogCleared resolves a dead-letter backlog alert once
// the stream length drops back under threshold.
func (pd *PagerDutyClient) AlertDeadLetterBacklogCleared() error {
	return pd.ResolveAlert("leadtriage-dlq-backlog")
}
