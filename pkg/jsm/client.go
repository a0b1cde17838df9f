package jsm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/leoxtc/jsm-tui/pkg/config"
	"github.com/leoxtc/jsm-tui/pkg/models"
)

const (
	maxErrorBodyLen  = 500
	maxRawPayloadLen = 4000
)

// Client is the HTTP implementation of the Gateway interface
type Client struct {
	httpClient *http.Client
	baseURL    string
	pageSize   int
	logBody    bool

	bearerToken string
	basicUser   string
	basicPass   string
}

// NewClient creates a new JSM API client from the application settings
func NewClient(cfg *config.Settings) (*Client, error) {
	if cfg.BearerToken == "" && (cfg.APIEmail == "" || cfg.APIToken == "") {
		return nil, fmt.Errorf("missing JSM credentials")
	}

	authMode := "basic"
	if cfg.BearerToken != "" {
		authMode = "bearer"
	}
	logrus.Infof("Initialized JSM API client (base_url=%s, auth_mode=%s, page_size=%d)",
		cfg.BaseURL(), authMode, cfg.PageSize)

	return &Client{
		httpClient:  &http.Client{Timeout: cfg.RequestTimeout()},
		baseURL:     strings.TrimRight(cfg.BaseURL(), "/"),
		pageSize:    cfg.PageSize,
		logBody:     cfg.LogHTTPBody,
		bearerToken: cfg.BearerToken,
		basicUser:   cfg.APIEmail,
		basicPass:   cfg.APIToken,
	}, nil
}

// ListOpenAlerts fetches the current alert page and returns the open ones,
// newest first.
func (c *Client) ListOpenAlerts(ctx context.Context) ([]models.Alert, error) {
	params := url.Values{}
	params.Set("size", strconv.Itoa(c.pageSize))

	payload, err := c.requestJSON(ctx, http.MethodGet, "/v1/alerts", params, nil)
	if err != nil {
		return nil, err
	}

	var alerts []models.Alert
	for _, item := range extractAlerts(payload) {
		alert := models.AlertFromPayload(item)
		logrus.Infof("Alert details id=%s priority=%s status=%s acked_by=%s tags=%s message=%s",
			alert.ID, alert.Priority, alert.Status, alert.AckedBy, alert.TagsDisplay(),
			truncateText(alert.Message, 250))
		if logrus.IsLevelEnabled(logrus.DebugLevel) {
			raw, _ := json.Marshal(item)
			logrus.Debugf("Alert raw payload: %s", truncateText(string(raw), maxRawPayloadLen))
		}
		if alert.ID != "" && alert.IsOpen() {
			alerts = append(alerts, alert)
		}
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
	})

	return alerts, nil
}

// GetAlert fetches the full record for a single alert
func (c *Client) GetAlert(ctx context.Context, id string) (models.Alert, error) {
	path := "/v1/alerts/" + url.PathEscape(id)
	payload, err := c.requestJSON(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return models.Alert{}, err
	}

	data, ok := extractSingleAlert(payload)
	if !ok {
		logrus.Errorf("Invalid alert details response format for alert_id=%s", id)
		return models.Alert{}, &APIError{
			Kind:   ErrorKindProtocol,
			Method: http.MethodGet,
			Path:   path,
			Body:   "invalid alert response format",
		}
	}
	return models.AlertFromPayload(data), nil
}

// AcknowledgeAlert marks the alert acknowledged by the API credential owner
func (c *Client) AcknowledgeAlert(ctx context.Context, id string) error {
	path := fmt.Sprintf("/v1/alerts/%s/acknowledge", url.PathEscape(id))
	_, err := c.requestJSON(ctx, http.MethodPost, path, nil, map[string]interface{}{})
	return err
}

// CloseAlert closes the alert
func (c *Client) CloseAlert(ctx context.Context, id string) error {
	path := fmt.Sprintf("/v1/alerts/%s/close", url.PathEscape(id))
	_, err := c.requestJSON(ctx, http.MethodPost, path, nil, map[string]interface{}{})
	return err
}

func (c *Client) requestJSON(ctx context.Context, method, path string, params url.Values, body interface{}) (map[string]interface{}, error) {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	} else {
		req.SetBasicAuth(c.basicUser, c.basicPass)
	}

	logrus.Debugf("JSM request %s %s (params=%v)", method, path, redactParams(params))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	durationMS := time.Since(start).Milliseconds()
	if err != nil {
		logrus.Errorf("JSM transport error %s %s duration_ms=%d: %v", method, path, durationMS, err)
		return nil, &APIError{Kind: ErrorKindNetwork, Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		logrus.Errorf("JSM read error %s %s duration_ms=%d: %v", method, path, durationMS, err)
		return nil, &APIError{Kind: ErrorKindNetwork, Method: method, Path: path, Err: err}
	}

	if resp.StatusCode >= 400 {
		errorBody := "<hidden>"
		if c.logBody {
			errorBody = truncateText(strings.TrimSpace(string(raw)), maxErrorBodyLen)
		}
		logrus.Errorf("JSM HTTP error %s %s status=%d duration_ms=%d body=%s",
			method, path, resp.StatusCode, durationMS, errorBody)
		return nil, &APIError{
			Kind:       kindForStatus(resp.StatusCode),
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       errorBody,
		}
	}

	logrus.Infof("JSM response %s %s status=%d duration_ms=%d", method, path, resp.StatusCode, durationMS)

	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]interface{}{}, nil
	}

	var data interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		logrus.Errorf("JSM non-JSON response %s %s status=%d", method, path, resp.StatusCode)
		return nil, &APIError{Kind: ErrorKindProtocol, Method: method, Path: path, Body: "non-JSON response", Err: err}
	}

	payload, ok := data.(map[string]interface{})
	if !ok {
		logrus.Errorf("JSM unexpected JSON payload type %s %s type=%T", method, path, data)
		return nil, &APIError{Kind: ErrorKindProtocol, Method: method, Path: path, Body: "unexpected JSON payload"}
	}

	return payload, nil
}

func extractAlerts(payload map[string]interface{}) []map[string]interface{} {
	for _, key := range []string{"data", "values", "alerts"} {
		raw, ok := payload[key].([]interface{})
		if !ok {
			continue
		}
		var alerts []map[string]interface{}
		for _, item := range raw {
			if entry, isObject := item.(map[string]interface{}); isObject {
				alerts = append(alerts, entry)
			}
		}
		return alerts
	}
	return nil
}

func extractSingleAlert(payload map[string]interface{}) (map[string]interface{}, bool) {
	for _, key := range []string{"data", "value", "alert"} {
		if entry, ok := payload[key].(map[string]interface{}); ok {
			return entry, true
		}
	}
	if looksLikeAlert(payload) {
		return payload, true
	}
	return nil, false
}

func looksLikeAlert(payload map[string]interface{}) bool {
	for _, key := range []string{"id", "tinyId", "message", "status"} {
		if _, ok := payload[key]; ok {
			return true
		}
	}
	return false
}

func redactParams(params url.Values) url.Values {
	if len(params) == 0 {
		return nil
	}
	redacted := url.Values{}
	for key, values := range params {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "token") || strings.Contains(lower, "password") {
			redacted.Set(key, "<redacted>")
			continue
		}
		redacted[key] = values
	}
	return redacted
}

func truncateText(message string, maxLen int) string {
	if len(message) <= maxLen {
		return message
	}
	return message[:maxLen] + "...<truncated>"
}
