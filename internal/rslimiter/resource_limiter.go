package rslimiter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aleister1102/resourcewatch/internal/config"
	"github.com/rs/zerolog"
)

// MemorySampler returns used system memory as a fraction in [0, 1].
type MemorySampler func() (float64, error)

// ResourceLimiter samples host resources. It logs pressure periodically and
// gates heavy jobs until system memory falls below the configured threshold.
type ResourceLimiter struct {
	checkInterval time.Duration
	memThreshold  float64
	cpuThreshold  float64
	sample        MemorySampler
	logger        zerolog.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool
}

// NewResourceLimiter creates a new resource limiter
func NewResourceLimiter(cfg config.ResourceLimiterConfig, logger zerolog.Logger) *ResourceLimiter {
	defaults := config.NewDefaultResourceLimiterConfig()
	if cfg.CheckIntervalSecs <= 0 {
		cfg.CheckIntervalSecs = defaults.CheckIntervalSecs
	}
	if cfg.SystemMemThreshold <= 0 {
		cfg.SystemMemThreshold = defaults.SystemMemThreshold
	}
	if cfg.CPUThreshold <= 0 {
		cfg.CPUThreshold = defaults.CPUThreshold
	}

	return &ResourceLimiter{
		checkInterval: time.Duration(cfg.CheckIntervalSecs) * time.Second,
		memThreshold:  cfg.SystemMemThreshold,
		cpuThreshold:  cfg.CPUThreshold,
		sample:        SystemMemoryFraction,
		logger:        logger.With().Str("component", "ResourceLimiter").Logger(),
	}
}

// WithSampler replaces the memory sampler. Used by tests and callers with their own probes.
func (rl *ResourceLimiter) WithSampler(sampler MemorySampler) *ResourceLimiter {
	rl.sample = sampler
	return rl
}

// WithCheckInterval overrides the polling interval.
func (rl *ResourceLimiter) WithCheckInterval(interval time.Duration) *ResourceLimiter {
	rl.checkInterval = interval
	return rl
}

// MemoryThreshold returns the configured system memory ceiling as a fraction.
func (rl *ResourceLimiter) MemoryThreshold() float64 {
	return rl.memThreshold
}

// CheckSystemMemoryLimit reports whether system memory usage is above the threshold.
func (rl *ResourceLimiter) CheckSystemMemoryLimit() (bool, float64, error) {
	used, err := rl.sample()
	if err != nil {
		return false, 0, fmt.Errorf("failed to get system memory stats: %w", err)
	}
	return used > rl.memThreshold, used, nil
}

// WaitForMemory blocks until system memory is below the threshold or ctx ends.
// A sampling failure lets the caller proceed.
func (rl *ResourceLimiter) WaitForMemory(ctx context.Context) error {
	logged := false
	for {
		exceeded, used, err := rl.CheckSystemMemoryLimit()
		if err != nil {
			rl.logger.Warn().Err(err).Msg("Memory sampling failed, not gating")
			return nil
		}
		if !exceeded {
			return nil
		}
		if !logged {
			rl.logger.Warn().
				Float64("used_percent", used*100).
				Float64("threshold_percent", rl.memThreshold*100).
				Msg("System memory above threshold, waiting")
			logged = true
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(rl.checkInterval):
		}
	}
}

// Start begins periodic resource usage logging
func (rl *ResourceLimiter) Start() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.isRunning {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	rl.cancel = cancel
	rl.isRunning = true

	rl.wg.Add(1)
	go rl.monitorResources(ctx)

	rl.logger.Info().
		Dur("check_interval", rl.checkInterval).
		Float64("system_mem_threshold", rl.memThreshold).
		Float64("cpu_threshold", rl.cpuThreshold).
		Msg("Resource limiter started")
}

// Stop stops the resource monitor
func (rl *ResourceLimiter) Stop() {
	rl.mu.Lock()
	if !rl.isRunning {
		rl.mu.Unlock()
		return
	}
	rl.isRunning = false
	cancel := rl.cancel
	rl.mu.Unlock()

	cancel()
	rl.wg.Wait()
	rl.logger.Info().Msg("Resource limiter stopped")
}

// IsRunning reports whether the monitor loop is active.
func (rl *ResourceLimiter) IsRunning() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.isRunning
}

func (rl *ResourceLimiter) monitorResources(ctx context.Context) {
	defer rl.wg.Done()

	ticker := time.NewTicker(rl.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.logUsage(GetResourceUsage())
		}
	}
}

func (rl *ResourceLimiter) logUsage(usage ResourceUsage) {
	if usage.SystemMemUsedPercent/100.0 > rl.memThreshold {
		rl.logger.Warn().
			Float64("used_percent", usage.SystemMemUsedPercent).
			Int64("used_mb", usage.SystemMemUsedMB).
			Int64("total_mb", usage.SystemMemTotalMB).
			Msg("System memory usage exceeded threshold")
	}
	if usage.CPUUsagePercent/100.0 > rl.cpuThreshold {
		rl.logger.Warn().
			Float64("cpu_usage_percent", usage.CPUUsagePercent).
			Msg("CPU usage exceeded threshold")
	}

	rl.logger.Debug().
		Int64("alloc_mb", usage.AllocMB).
		Int64("sys_mb", usage.SysMB).
		Int("goroutines", usage.Goroutines).
		Int64("gc_count", usage.GCCount).
		Float64("system_mem_percent", usage.SystemMemUsedPercent).
		Float64("cpu_percent", usage.CPUUsagePercent).
		Msg("Current resource usage")
}
