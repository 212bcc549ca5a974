// Package keepalive periodically requests a URL so that hosted instances
// which sleep when idle stay warm.
package keepalive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"wa-relay-server/pkg/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultSchedule pings just under the common 15 minute idle cutoff.
const DefaultSchedule = "@every 14m"

// Result is the outcome of the most recent ping.
type Result struct {
	At       time.Time     `json:"at"`
	Status   int           `json:"status"`
	Duration time.Duration `json:"duration"`
	Err      string        `json:"error,omitempty"`
}

// Pinger runs a cron job that GETs a URL.
type Pinger struct {
	mu       sync.RWMutex
	cron     *cron.Cron
	client   *http.Client
	url      string
	schedule string
	last     Result
	runs     int
}

// New validates the schedule and returns a stopped Pinger.
func New(url, schedule string, timeout time.Duration) (*Pinger, error) {
	if url == "" {
		return nil, errors.New("keep-alive url is required")
	}
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid keep-alive schedule %q: %w", schedule, err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Pinger{
		cron:     cron.New(),
		client:   &http.Client{Timeout: timeout},
		url:      url,
		schedule: schedule,
	}, nil
}

// Start schedules the job and starts the cron runner.
func (p *Pinger) Start() error {
	if _, err := p.cron.AddFunc(p.schedule, p.run); err != nil {
		return fmt.Errorf("failed to schedule keep-alive: %w", err)
	}
	p.cron.Start()
	logger.Info("Keep-alive started", zap.String("url", p.url), zap.String("schedule", p.schedule))
	return nil
}

// Stop halts the runner and waits for a running ping to finish.
func (p *Pinger) Stop() {
	<-p.cron.Stop().Done()
}

func (p *Pinger) run() {
	ctx, cancel := context.WithTimeout(context.Background(), p.client.Timeout)
	defer cancel()

	if err := p.Ping(ctx); err != nil {
		logger.Warn("Keep-alive ping failed", zap.String("url", p.url), zap.Error(err))
	}
}

// Ping requests the URL once. Any non-2xx answer is an error.
func (p *Pinger) Ping(ctx context.Context) error {
	start := time.Now()
	result := Result{At: start.UTC()}

	err := p.get(ctx, &result)
	result.Duration = time.Since(start)
	if err != nil {
		result.Err = err.Error()
	}

	p.mu.Lock()
	p.last = result
	p.runs++
	p.mu.Unlock()

	logger.Debug("Keep-alive ping",
		zap.Int("status", result.Status),
		zap.Duration("duration", result.Duration))
	return err
}

func (p *Pinger) get(ctx context.Context, result *Result) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.Warn("Failed to close keep-alive response", zap.Error(closeErr))
		}
	}()

	result.Status = resp.StatusCode
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}
	return nil
}

// Last returns the most recent result and the number of pings made.
func (p *Pinger) Last() (Result, int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last, p.runs
}
