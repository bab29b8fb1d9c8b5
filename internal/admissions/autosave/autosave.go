// Package autosave persists drafts in the background after edits settle.
package autosave

import (
	"context"
	"errors"
	"sync"
	"time"

	"admissions-portal/internal/admissions/wire"
	"admissions-portal/internal/common/logger"
	"admissions-portal/internal/common/metrics"
	"admissions-portal/internal/models"
)

const DefaultDelay = time.Second

var ErrNothingToSave = errors.New("NOTHING_TO_SAVE")

// Source yields the current draft and its version at call time.
type Source interface {
	Latest() (*models.ApplicationDraft, uint64)
}

// SaveFunc encodes and submits d as a draft. version is the draft version
// the call was made for.
type SaveFunc func(ctx context.Context, d *models.ApplicationDraft, version uint64) error

type Config struct {
	Delay   time.Duration
	Timeout time.Duration // per save, 0 means no limit
}

// Controller debounces Trigger calls. When the timer fires it reads the
// latest draft from its Source, never the one that was current at Trigger.
type Controller struct {
	cfg    Config
	source Source
	save   SaveFunc
	log    logger.Logger

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
	saves   sync.WaitGroup
}

func New(cfg Config, source Source, save SaveFunc, log logger.Logger) *Controller {
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}
	return &Controller{
		cfg:    cfg,
		source: source,
		save:   save,
		log:    log.WithFields(map[string]interface{}{"component": "autosave"}),
	}
}

// Trigger restarts the debounce window.
func (c *Controller) Trigger() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(c.cfg.Delay, func() { c.fire(t) })
	c.timer = t
}

// Pending reports whether a save is scheduled.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer != nil
}

// fire runs for timer t unless t was superseded or cancelled meanwhile.
func (c *Controller) fire(t *time.Timer) {
	c.mu.Lock()
	if c.stopped || c.timer != t {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.saves.Add(1)
	c.mu.Unlock()
	defer c.saves.Done()

	ctx := context.Background()
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	// background saves never surface errors
	if err := c.run(ctx); err != nil && !errors.Is(err, ErrNothingToSave) {
		c.log.Warn("autosave failed", map[string]interface{}{"error": err})
	}
}

func (c *Controller) run(ctx context.Context) error {
	d, version := c.source.Latest()
	if d == nil {
		return ErrNothingToSave
	}
	level := string(d.Level)

	if !wire.HasMeaningfulContent(d) {
		metrics.AutosaveAttempts.WithLabelValues(level, metrics.OutcomeSkipped).Inc()
		return ErrNothingToSave
	}

	if err := c.save(ctx, d, version); err != nil {
		outcome := metrics.OutcomeFailure
		if errors.Is(err, ErrNothingToSave) {
			outcome = metrics.OutcomeSkipped
		}
		metrics.AutosaveAttempts.WithLabelValues(level, outcome).Inc()
		return err
	}
	metrics.AutosaveAttempts.WithLabelValues(level, metrics.OutcomeSuccess).Inc()
	c.log.Debug("draft autosaved", map[string]interface{}{"version": version})
	return nil
}

func (c *Controller) cancelTimer() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer == nil {
		return false
	}
	c.timer.Stop()
	c.timer = nil
	return true
}

// Cancel drops a scheduled save. It reports whether one was pending.
func (c *Controller) Cancel() bool {
	return c.cancelTimer()
}

// SaveNow cancels any scheduled save and saves the latest draft right away,
// returning the result to the caller.
func (c *Controller) SaveNow(ctx context.Context) error {
	c.cancelTimer()
	return c.run(ctx)
}

// Flush runs a scheduled save immediately. It does nothing when no save is
// pending.
func (c *Controller) Flush(ctx context.Context) error {
	if !c.cancelTimer() {
		return nil
	}
	return c.run(ctx)
}

// Stop cancels the pending save and waits for a running one to finish.
// Later Trigger calls are ignored.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.stopped = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()
	c.saves.Wait()
}
