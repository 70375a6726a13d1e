package mediaserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/observability/metrics"
)

const (
	commandAddStream     = "addstream"
	commandDeleteStream  = "deletestream"
	commandStreamsStatus = "streams_status"
)

// Client talks to the media server's command-oriented control API. Every call
// is a POST whose form-encoded body carries a single "command" field holding a
// JSON document {"<command>": <payload>}. Response shapes vary per command and
// are interpreted defensively.
type Client struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
	recorder *metrics.Recorder
}

// ClientOption customises Client construction.
type ClientOption func(*Client)

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRecorder overrides the metrics recorder used for control-call counters.
func WithRecorder(recorder *metrics.Recorder) ClientOption {
	return func(c *Client) {
		if recorder != nil {
			c.recorder = recorder
		}
	}
}

// NewClient constructs a control-API client from the provided configuration.
func (c Config) NewClient(opts ...ClientOption) (*Client, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if !c.Enabled() {
		return nil, fmt.Errorf("media server not configured")
	}
	client := &Client{
		endpoint: c.endpoint(),
		client:   c.HTTPClient,
		logger:   slog.Default(),
		recorder: metrics.Default(),
	}
	if client.client == nil {
		timeout := c.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		client.client = &http.Client{Timeout: timeout}
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// ProvisionKey registers key as a push target. The control API acknowledges
// success in several shapes; any of them is accepted.
func (c *Client) ProvisionKey(ctx context.Context, key string) error {
	payload := map[string]any{
		key: map[string]any{
			"source":        "push://",
			"disable_audio": false,
		},
		"stop_sessions": true,
	}
	response, err := c.do(ctx, commandAddStream, payload)
	if err != nil {
		return err
	}
	if provisionAccepted(response, key) {
		return nil
	}
	c.logger.Warn("media server rejected key provision", "command", commandAddStream)
	return fmt.Errorf("provision key: unexpected control response")
}

// RevokeKey removes key's ingest authorization and tears down any of its
// active sessions.
func (c *Client) RevokeKey(ctx context.Context, key string) error {
	payload := map[string]any{
		key: map[string]any{"stop_sessions": true},
	}
	response, err := c.do(ctx, commandDeleteStream, payload)
	if err != nil {
		return err
	}
	// The control API reports a partially applied delete by embedding this
	// marker in the response body.
	for _, raw := range response {
		if strings.Contains(string(raw), "incomplete list") {
			return fmt.Errorf("revoke key: incomplete delete reported")
		}
	}
	return nil
}

// ActiveStreams returns the set of ingest keys the media server currently
// reports as publishing. A response without the status document means no
// streams are active, which is distinct from a failed call.
func (c *Client) ActiveStreams(ctx context.Context) (map[string]struct{}, error) {
	response, err := c.do(ctx, commandStreamsStatus, map[string]any{commandStreamsStatus: true})
	if err != nil {
		return nil, err
	}
	active := make(map[string]struct{})
	raw, ok := response[commandStreamsStatus]
	if !ok {
		return active, nil
	}
	var statuses map[string]json.RawMessage
	if err := json.Unmarshal(raw, &statuses); err != nil {
		return nil, fmt.Errorf("%w: decode %s payload: %v", ErrUnavailable, commandStreamsStatus, err)
	}
	for key := range statuses {
		active[key] = struct{}{}
	}
	return active, nil
}

// Healthy issues a status query to verify the control plane is reachable.
func (c *Client) Healthy(ctx context.Context) error {
	_, err := c.ActiveStreams(ctx)
	return err
}

func (c *Client) do(ctx context.Context, command string, payload any) (map[string]json.RawMessage, error) {
	c.recorder.ObserveControlAttempt(command)

	document, err := json.Marshal(map[string]any{command: payload})
	if err != nil {
		c.recorder.ObserveControlFailure(command)
		return nil, fmt.Errorf("marshal %s command: %w", command, err)
	}
	form := url.Values{"command": {string(document)}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		c.recorder.ObserveControlFailure(command)
		return nil, fmt.Errorf("build %s request: %w", command, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		c.recorder.ObserveControlFailure(command)
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, command, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.recorder.ObserveControlFailure(command)
		return nil, fmt.Errorf("%w: %s: %s: %s", ErrUnavailable, command, resp.Status, strings.TrimSpace(string(body)))
	}

	var decoded map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		c.recorder.ObserveControlFailure(command)
		return nil, fmt.Errorf("%w: decode %s response: %v", ErrUnavailable, command, err)
	}
	return decoded, nil
}

func provisionAccepted(response map[string]json.RawMessage, key string) bool {
	if raw, ok := response[key]; ok {
		var details map[string]json.RawMessage
		if err := json.Unmarshal(raw, &details); err == nil {
			if status, ok := details["status"]; ok {
				var value string
				if err := json.Unmarshal(status, &value); err == nil && value != "OK" {
					return false
				}
			}
			return true
		}
	}
	if raw, ok := response["success"]; ok {
		var success bool
		if err := json.Unmarshal(raw, &success); err == nil && success {
			return true
		}
	}
	return false
}

var _ Controller = (*Client)(nil)
