package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chatlytics/logmonitor/pkg/types"
)

// WebhookSink delivers reports as structured JSON to a remote HTTP endpoint.
// One POST per report, bounded by the configured timeout, no retries.
type WebhookSink struct {
	url     string
	project string
	files   []string
	client  *http.Client
}

// WebhookConfig holds webhook sink configuration
type WebhookConfig struct {
	URL     string
	Timeout time.Duration
	// Project and Files are forwarded in the payload context block.
	Project string
	Files   []string
}

// NewWebhookSink creates a new webhook sink
func NewWebhookSink(cfg WebhookConfig) *WebhookSink {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &WebhookSink{
		url:     cfg.URL,
		project: cfg.Project,
		files:   cfg.Files,
		client:  &http.Client{Timeout: timeout},
	}
}

type webhookPayload struct {
	Type      string         `json:"type"`
	Timestamp string         `json:"timestamp"`
	ErrorData errorData      `json:"error_data"`
	Request   string         `json:"request"`
	Context   payloadContext `json:"context"`
}

type errorData struct {
	Timestamp      string `json:"timestamp"`
	ErrorType      string `json:"error_type"`
	PrimaryMessage string `json:"primary_message"`
	Context        string `json:"context"`
	SourceFile     string `json:"source_file"`
}

type payloadContext struct {
	Project  string   `json:"project"`
	Files    []string `json:"files,omitempty"`
	Priority string   `json:"priority"`
}

// Deliver posts the report to the configured endpoint.
func (s *WebhookSink) Deliver(ctx context.Context, report *types.ErrorReport) error {
	payload := webhookPayload{
		Type:      "error_report",
		Timestamp: time.Now().Format(time.RFC3339),
		ErrorData: errorData{
			Timestamp:      report.Timestamp.Format("2006-01-02 15:04:05"),
			ErrorType:      string(report.Category),
			PrimaryMessage: report.PrimaryMessage,
			Context:        strings.Join(report.ContextLines, "\n"),
			SourceFile:     report.SourceFile,
		},
		Request: "auto_fix",
		Context: payloadContext{
			Project:  s.project,
			Files:    s.files,
			Priority: string(report.Priority),
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal report payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post report: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("remote endpoint returned status %d", resp.StatusCode)
	}

	return nil
}

// Name returns the sink name
func (s *WebhookSink) Name() string {
	return "webhook"
}
