package progress

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"video-analysis-platform/internal/domain/model"

	"github.com/rs/zerolog"
)

const (
	defaultPollInterval   = 3 * time.Second
	defaultOverallTimeout = 20 * time.Minute
)

// UpdateFunc receives each progress snapshot as it arrives. Updates are
// idempotent snapshots: a consumer falling from push to poll may see a gap
// or a duplicate of the last state.
type UpdateFunc func(model.ProgressUpdate)

// Client follows one job's progress the way the web UI does: live stream
// first, fixed-interval polling of the job view when the stream is
// unavailable. An overall timeout bounds the whole watch.
type Client struct {
	baseURL        string
	http           *http.Client
	pollInterval   time.Duration
	overallTimeout time.Duration
	log            *zerolog.Logger
}

func NewClient(baseURL string, logger *zerolog.Logger) *Client {
	cliLog := logger.With().Str("component", "ProgressClient").Logger()
	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &http.Client{},
		pollInterval:   defaultPollInterval,
		overallTimeout: defaultOverallTimeout,
		log:            &cliLog,
	}
}

// Watch follows jobID until a terminal status is observed, forwarding every
// update to fn. It returns the terminal update, or an error when the overall
// timeout elapses first.
func (c *Client) Watch(ctx context.Context, jobID string, fn UpdateFunc) (*model.ProgressUpdate, error) {
	ctx, cancel := context.WithTimeout(ctx, c.overallTimeout)
	defer cancel()

	final, err := c.watchStream(ctx, jobID, fn)
	if err == nil {
		return final, nil
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("watching job %s: %w", jobID, ctx.Err())
	}

	c.log.Warn().Err(err).Str("job_id", jobID).Msg("push path failed; falling back to polling")
	return c.poll(ctx, jobID, fn)
}

// watchStream consumes the SSE endpoint. The initial connected frame is an
// acknowledgement, not progress, and is not forwarded.
func (c *Client) watchStream(ctx context.Context, jobID string, fn UpdateFunc) (*model.ProgressUpdate, error) {
	url := fmt.Sprintf("%s/api/v1/jobs/%s/events", c.baseURL, jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stream returned status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var u model.ProgressUpdate
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &u); err != nil {
			c.log.Debug().Err(err).Str("job_id", jobID).Msg("skipping malformed frame")
			continue
		}
		if u.Status == "connected" {
			continue
		}
		fn(u)
		if u.Terminal() {
			return &u, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("stream for job %s closed before a terminal update", jobID)
}

// poll requests the job view at a fixed interval. A transient error on any
// single poll is swallowed and the loop continues; isolated network blips
// must not be mistaken for job failure.
func (c *Client) poll(ctx context.Context, jobID string, fn UpdateFunc) (*model.ProgressUpdate, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("watching job %s: %w", jobID, ctx.Err())
		case <-ticker.C:
			view, err := c.fetchView(ctx, jobID)
			if err != nil {
				if ctx.Err() != nil {
					return nil, fmt.Errorf("watching job %s: %w", jobID, ctx.Err())
				}
				c.log.Debug().Err(err).Str("job_id", jobID).Msg("poll failed; retrying next interval")
				continue
			}
			u := model.ProgressUpdate{
				JobID:    view.JobID,
				Status:   view.Status,
				Progress: view.Progress,
				Stage:    view.Stage,
				Error:    view.Error,
			}
			fn(u)
			if u.Terminal() {
				return &u, nil
			}
		}
	}
}

func (c *Client) fetchView(ctx context.Context, jobID string) (*model.JobView, error) {
	url := fmt.Sprintf("%s/api/v1/jobs/%s", c.baseURL, jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status endpoint returned %d", resp.StatusCode)
	}
	var view model.JobView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return nil, err
	}
	return &view, nil
}
