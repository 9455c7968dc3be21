// Package sysmon samples host resource utilization (CPU, memory, disk) on a
// fixed cadence and publishes the readings as gauges.
package sysmon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/endrycofr/nginx-load-balancer/internal/pkg/metrics"
)

// Config contains sampler configuration.
type Config struct {
	Interval      time.Duration // cadence between successful cycles
	RetryInterval time.Duration // cadence after a failed cycle
	SampleTimeout time.Duration // bound on one cycle's OS reads
	DiskPath      string        // volume to report disk usage for
}

// DefaultConfig returns the default sampler configuration.
func DefaultConfig() Config {
	return Config{
		Interval:      5 * time.Second,
		RetryInterval: 1 * time.Second,
		SampleTimeout: 3 * time.Second,
		DiskPath:      "/",
	}
}

// Sampler runs a supervised background loop for the life of the process.
// A failed cycle is logged and retried on the short interval; the loop only
// exits at shutdown.
type Sampler struct {
	cfg    Config
	reg    *metrics.Registry
	prober Prober
	logger *slog.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New registers the system gauges and returns a sampler reading from the
// host.
func New(reg *metrics.Registry, cfg Config, logger *slog.Logger) (*Sampler, error) {
	defaults := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = defaults.Interval
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = defaults.RetryInterval
	}
	if cfg.SampleTimeout <= 0 {
		cfg.SampleTimeout = defaults.SampleTimeout
	}
	if cfg.DiskPath == "" {
		cfg.DiskPath = defaults.DiskPath
	}
	if logger == nil {
		logger = slog.Default()
	}

	decls := []metrics.Decl{
		metrics.CPUUsagePercent,
		metrics.MemoryTotalBytes,
		metrics.MemoryAvailableBytes,
		metrics.MemoryUsedBytes,
		metrics.MemoryCachedBytes,
		metrics.MemoryUsagePercent,
		metrics.DiskTotalBytes,
		metrics.DiskUsedBytes,
		metrics.DiskFreeBytes,
		metrics.DiskUsagePercent,
	}
	for _, d := range decls {
		if err := reg.Register(d); err != nil {
			return nil, fmt.Errorf("register %s: %w", d.Name, err)
		}
	}

	return &Sampler{
		cfg:    cfg,
		reg:    reg,
		prober: hostProber{},
		logger: logger,
		stopCh: make(chan struct{}),
	}, nil
}

// Start launches the sampling loop. The first cycle runs immediately.
func (s *Sampler) Start(ctx context.Context) {
	s.logger.Info("starting system sampler",
		"interval", s.cfg.Interval,
		"disk_path", s.cfg.DiskPath,
	)
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop terminates the loop and waits for it to exit.
func (s *Sampler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("system sampler stopped")
}

func (s *Sampler) run(ctx context.Context) {
	defer s.wg.Done()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-timer.C:
		}

		next := s.cfg.Interval
		if err := s.sample(ctx); err != nil {
			s.logger.Error("system sample failed",
				"error", err,
				"retry_in", s.cfg.RetryInterval,
			)
			next = s.cfg.RetryInterval
		}
		timer.Reset(next)
	}
}

func (s *Sampler) sample(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.SampleTimeout)
	defer cancel()

	perCore, err := s.prober.CPUPercent(ctx)
	if err != nil {
		return fmt.Errorf("read cpu: %w", err)
	}
	for i, percent := range perCore {
		s.set(metrics.CPUUsagePercent.Name, percent, fmt.Sprintf("core_%d", i))
	}

	memory, err := s.prober.Memory(ctx)
	if err != nil {
		return fmt.Errorf("read memory: %w", err)
	}
	s.set(metrics.MemoryTotalBytes.Name, float64(memory.Total))
	s.set(metrics.MemoryAvailableBytes.Name, float64(memory.Available))
	s.set(metrics.MemoryUsedBytes.Name, float64(memory.Used))
	s.set(metrics.MemoryCachedBytes.Name, float64(memory.Cached))
	s.set(metrics.MemoryUsagePercent.Name, memory.UsedPercent)

	usage, err := s.prober.Disk(ctx, s.cfg.DiskPath)
	if err != nil {
		return fmt.Errorf("read disk: %w", err)
	}
	s.set(metrics.DiskTotalBytes.Name, float64(usage.Total))
	s.set(metrics.DiskUsedBytes.Name, float64(usage.Used))
	s.set(metrics.DiskFreeBytes.Name, float64(usage.Free))
	s.set(metrics.DiskUsagePercent.Name, usage.UsedPercent)

	return nil
}

func (s *Sampler) set(name string, value float64, labelValues ...string) {
	if err := s.reg.Set(name, value, labelValues...); err != nil {
		s.logger.Warn("dropping system gauge update", "metric", name, "error", err)
	}
}

// Snapshot is a point-in-time utilization summary for the JSON convenience
// endpoint.
type Snapshot struct {
	CPUPercent    float64
	MemoryPercent float64
	DiskPercent   float64
}

// Snapshot reads current utilization directly, independent of the sampling
// loop.
func (s *Sampler) Snapshot(ctx context.Context) (Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.SampleTimeout)
	defer cancel()

	var snap Snapshot

	perCore, err := s.prober.CPUPercent(ctx)
	if err != nil {
		return snap, fmt.Errorf("read cpu: %w", err)
	}
	if len(perCore) > 0 {
		var sum float64
		for _, p := range perCore {
			sum += p
		}
		snap.CPUPercent = sum / float64(len(perCore))
	}

	memory, err := s.prober.Memory(ctx)
	if err != nil {
		return snap, fmt.Errorf("read memory: %w", err)
	}
	snap.MemoryPercent = memory.UsedPercent

	usage, err := s.prober.Disk(ctx, s.cfg.DiskPath)
	if err != nil {
		return snap, fmt.Errorf("read disk: %w", err)
	}
	snap.DiskPercent = usage.UsedPercent

	return snap, nil
}
