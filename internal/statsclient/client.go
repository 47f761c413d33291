// Package statsclient talks to the remote streak and best-time service.
//
// Only 2xx responses are decoded. Any other status fails the call even when
// the body carries a message or stats.
package statsclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/mathrace/internal/model"
)

// DefaultTimeout bounds a single remote call.
const DefaultTimeout = 5 * time.Second

var (
	// ErrUnavailable is returned when current stats cannot be fetched.
	ErrUnavailable = errors.New("stats unavailable")
	// ErrReportFailed is returned when a finished run could not be reported.
	ErrReportFailed = errors.New("finish report failed")
	// ErrOffline is wrapped by every call of an offline client.
	ErrOffline = errors.New("offline")
)

// FinishRequest is the body of POST /finish.
type FinishRequest struct {
	UserID     string `json:"userId"`
	TimeMs     int64  `json:"timeMs"`
	WrongCount int    `json:"wrongCount"`
}

// FinishResponse is the body returned by POST /finish. Stats is nil when the
// service omitted it.
type FinishResponse struct {
	Message string       `json:"message"`
	Stats   *model.Stats `json:"stats"`
}

type statsPayload struct {
	model.Stats
	Error string `json:"error"`
}

// Client performs single-attempt calls against the stats service.
type Client struct {
	base    string
	http    *http.Client
	log     zerolog.Logger
	offline bool
}

// New returns a Client for the service rooted at base.
func New(base string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

// NewOffline returns a Client whose calls always fail without touching the network.
func NewOffline(log zerolog.Logger) *Client {
	return &Client{log: log, offline: true}
}

// FetchStats retrieves the current stats for userID.
func (c *Client) FetchStats(ctx context.Context, userID string) (model.Stats, error) {
	if c.offline {
		return model.Stats{}, fmt.Errorf("%w: %w", ErrUnavailable, ErrOffline)
	}
	endpoint := c.base + "/stats?userId=" + url.QueryEscape(userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return model.Stats{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	var payload statsPayload
	if err := c.do(req, &payload); err != nil {
		c.log.Warn().Err(err).Str("user_id", userID).Msg("fetch stats failed")
		return model.Stats{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if payload.Error != "" {
		c.log.Warn().Str("service_error", payload.Error).Str("user_id", userID).Msg("fetch stats rejected")
		return model.Stats{}, fmt.Errorf("%w: service error: %s", ErrUnavailable, payload.Error)
	}
	return payload.Stats, nil
}

// ReportFinish reports a completed run and returns the authoritative stats.
func (c *Client) ReportFinish(ctx context.Context, finish FinishRequest) (FinishResponse, error) {
	if c.offline {
		return FinishResponse{}, fmt.Errorf("%w: %w", ErrReportFailed, ErrOffline)
	}
	body, err := json.Marshal(finish)
	if err != nil {
		return FinishResponse{}, fmt.Errorf("%w: %w", ErrReportFailed, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/finish", bytes.NewReader(body))
	if err != nil {
		return FinishResponse{}, fmt.Errorf("%w: %w", ErrReportFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	var resp FinishResponse
	if err := c.do(req, &resp); err != nil {
		c.log.Warn().Err(err).Str("user_id", finish.UserID).Int64("time_ms", finish.TimeMs).Msg("report finish failed")
		return FinishResponse{}, fmt.Errorf("%w: %w", ErrReportFailed, err)
	}
	return resp, nil
}

func (c *Client) do(req *http.Request, out any) error {
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	c.log.Debug().
		Str("request_id", requestID).
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(started)).
		Msg("stats request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
