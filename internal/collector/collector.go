package collector

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"deskhud/internal/frame"
	"deskhud/internal/logging"
	"deskhud/internal/metrics"
	"deskhud/internal/widgets"
)

// Assembler builds a frame for a point in time.
type Assembler interface {
	Assemble(ctx context.Context, now time.Time) (*frame.Frame, error)
}

// Publisher announces frames whose payloads changed.
type Publisher interface {
	PublishFrame(f *frame.Frame, changed []string) error
	Close()
}

// Cleaner prunes stored weather snapshots.
type Cleaner interface {
	CleanOldSnapshots(olderThan time.Duration) error
	Close() error
}

// Collector assembles frames in the background so changes can be pushed to
// the panel instead of waiting for its next poll.
type Collector struct {
	assembler Assembler
	publisher Publisher
	cleaner   Cleaner
	interval  time.Duration
	retention time.Duration
	enabled   bool
	clock     func() time.Time
	log       *slog.Logger

	mu           sync.RWMutex
	latest       *frame.Frame
	fingerprints map[string]uint64
	isCollecting bool
}

type CollectorConfig struct {
	Assembler Assembler
	Publisher Publisher
	Cleaner   Cleaner
	Interval  time.Duration
	// Retention is how long weather snapshots are kept; zero keeps them all.
	Retention time.Duration
	Enabled   bool
	Clock     func() time.Time
	Logger    *slog.Logger
}

func NewCollector(cfg CollectorConfig) *Collector {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	return &Collector{
		assembler: cfg.Assembler,
		publisher: cfg.Publisher,
		cleaner:   cfg.Cleaner,
		interval:  cfg.Interval,
		retention: cfg.Retention,
		enabled:   cfg.Enabled,
		clock:     cfg.Clock,
		log:       logging.Component(cfg.Logger, "collector"),
	}
}

func (c *Collector) Start(ctx context.Context) error {
	if !c.enabled {
		c.log.Info("collector is disabled")
		return nil
	}

	c.mu.Lock()
	c.isCollecting = true
	c.mu.Unlock()

	c.log.Info("starting collector", "interval", c.interval)

	c.collect(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("collector stopped")
			c.mu.Lock()
			c.isCollecting = false
			c.mu.Unlock()
			return nil
		case <-ticker.C:
			c.collect(ctx)
		}
	}
}

func (c *Collector) collect(ctx context.Context) {
	f, changed, err := c.CollectOnce(ctx)
	if err != nil {
		c.log.Warn("frame assembly failed", "error", err)
		return
	}

	if len(changed) > 0 && c.publisher != nil {
		if err := c.publisher.PublishFrame(f, changed); err != nil {
			c.log.Warn("publish frame failed", "error", err)
		} else {
			metrics.RecordFramePublish()
		}
	}

	if c.cleaner != nil && c.retention > 0 {
		if err := c.cleaner.CleanOldSnapshots(c.retention); err != nil {
			c.log.Warn("clean old snapshots failed", "error", err)
		}
	}

	c.log.Info("collected frame", "version", f.Version, "changed", changed, "degraded", f.Degraded)
}

// CollectOnce assembles a frame, makes it the latest and reports which
// widgets differ from the previous one. The first frame counts every widget
// as changed.
func (c *Collector) CollectOnce(ctx context.Context) (*frame.Frame, []string, error) {
	f, err := c.assembler.Assemble(ctx, c.clock())
	if err != nil {
		return nil, nil, err
	}

	prints := make(map[string]uint64, len(f.Packed))
	for name, p := range f.Packed {
		h := fnv.New64a()
		h.Write(p.Payload)
		prints[name] = h.Sum64()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	var changed []string
	for _, name := range widgets.Names {
		sum, ok := prints[name]
		if !ok {
			continue
		}
		if old, seen := c.fingerprints[name]; !seen || old != sum {
			changed = append(changed, name)
		}
	}
	c.latest = f
	c.fingerprints = prints
	return f, changed, nil
}

func (c *Collector) GetLatestFrame() *frame.Frame {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest
}

func (c *Collector) IsCollecting() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isCollecting
}

func (c *Collector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.publisher != nil {
		c.publisher.Close()
	}
	if c.cleaner != nil {
		if err := c.cleaner.Close(); err != nil {
			c.log.Warn("close database failed", "error", err)
		}
	}
}
