// Package resources implements the advisory RAM/CPU gate checked between
// render phases.
package resources

import (
	"context"
	"fmt"
	"time"

	"github.com/bobarin/reelsmith/internal/retry"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Sample is one reading of host load.
type Sample struct {
	FreeMemoryMB float64
	CPUPercent   float64
}

// Sampler reads host load.
type Sampler interface {
	Sample(ctx context.Context) (Sample, error)
}

// SystemSampler reads the local host through gopsutil.
type SystemSampler struct {
	// CPUInterval is the window cpu.Percent averages over.
	CPUInterval time.Duration
}

func (s SystemSampler) Sample(ctx context.Context) (Sample, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Sample{}, fmt.Errorf("failed to read memory stats: %w", err)
	}

	interval := s.CPUInterval
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	pct, err := cpu.PercentWithContext(ctx, interval, false)
	if err != nil {
		return Sample{}, fmt.Errorf("failed to read cpu stats: %w", err)
	}

	var load float64
	if len(pct) > 0 {
		load = pct[0]
	}

	return Sample{
		FreeMemoryMB: float64(vm.Available) / (1024 * 1024),
		CPUPercent:   load,
	}, nil
}

// DefaultPolicy backs off 2s, 4s, 8s, ... capped at 30s, five checks in all.
var DefaultPolicy = retry.Policy{
	MaxAttempts: 5,
	BaseDelay:   2 * time.Second,
	Multiplier:  2,
	MaxDelay:    30 * time.Second,
}

// Gate delays a render phase while the host is under pressure. It never
// blocks forever: once the policy is exhausted it logs a warning and lets
// the phase proceed.
type Gate struct {
	sampler   Sampler
	minFreeMB float64
	maxCPU    float64
	policy    retry.Policy
	log       zerolog.Logger
}

// NewGate returns a gate. A zero threshold disables that check.
func NewGate(sampler Sampler, minFreeMB, maxCPU float64, policy retry.Policy, log zerolog.Logger) *Gate {
	return &Gate{
		sampler:   sampler,
		minFreeMB: minFreeMB,
		maxCPU:    maxCPU,
		policy:    policy,
		log:       log.With().Str("component", "resources").Logger(),
	}
}

// Wait returns once the host is below the thresholds or the backoff budget
// is spent. It only returns an error when ctx is done.
func (g *Gate) Wait(ctx context.Context, phase string) error {
	if g == nil || g.sampler == nil || (g.minFreeMB <= 0 && g.maxCPU <= 0) {
		return nil
	}

	attempts := g.policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var last Sample
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := g.policy.Delay(attempt)
			g.log.Info().
				Str("phase", phase).
				Float64("free_mb", last.FreeMemoryMB).
				Float64("cpu_percent", last.CPUPercent).
				Dur("wait", delay).
				Msg("host under pressure, backing off")
			if err := retry.Sleep(ctx, delay); err != nil {
				return fmt.Errorf("resource wait cancelled: %w", err)
			}
		}

		s, err := g.sampler.Sample(ctx)
		if err != nil {
			g.log.Warn().Err(err).Str("phase", phase).Msg("resource sampling failed, proceeding")
			return nil
		}
		if g.ok(s) {
			return nil
		}
		last = s
	}

	g.log.Warn().
		Str("phase", phase).
		Float64("free_mb", last.FreeMemoryMB).
		Float64("cpu_percent", last.CPUPercent).
		Msg("resources still constrained, proceeding anyway")
	return nil
}

func (g *Gate) ok(s Sample) bool {
	if g.minFreeMB > 0 && s.FreeMemoryMB < g.minFreeMB {
		return false
	}
	if g.maxCPU > 0 && s.CPUPercent > g.maxCPU {
		return false
	}
	return true
}
