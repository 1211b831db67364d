package app

import (
	"context"
	"log/slog"
	"time"

	"cloudpico-node/internal/delivery"
	"cloudpico-node/internal/reading"
)

// sinkTimeout bounds the sinks of one cycle.
const sinkTimeout = 5 * time.Second

// Sampler takes one reading.
type Sampler interface {
	Take() reading.Reading
}

// Deliverer runs one delivery attempt to completion.
type Deliverer interface {
	Deliver(delivery.Request) delivery.Result
}

// Sink observes every finished cycle. Errors are logged and never stop the
// loop.
type Sink interface {
	Observe(ctx context.Context, seq int, r reading.Reading, res delivery.Result) error
}

type NamedSink struct {
	Name string
	Sink Sink
}

type SchedulerOptions struct {
	SensorID string
	Interval time.Duration
	Sinks    []NamedSink
	Logger   *slog.Logger
	// Cycles stops Run after that many cycles; zero runs until ctx ends.
	Cycles int
	// Wait pauses between cycles. Defaults to a ctx-aware timer.
	Wait func(ctx context.Context, d time.Duration) error
}

// Scheduler runs sample → deliver → wait cycles strictly one after another.
type Scheduler struct {
	sampler   Sampler
	deliverer Deliverer
	opts      SchedulerOptions
	logger    *slog.Logger
}

func NewScheduler(sampler Sampler, deliverer Deliverer, opts SchedulerOptions) *Scheduler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Wait == nil {
		opts.Wait = sleepCtx
	}
	return &Scheduler{sampler: sampler, deliverer: deliverer, opts: opts, logger: opts.Logger}
}

// Run loops until ctx is cancelled. Cancellation is checked between cycles
// only; a cycle in progress always finishes its delivery.
func (s *Scheduler) Run(ctx context.Context) error {
	for seq := 1; ; seq++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.cycle(ctx, seq)
		if s.opts.Cycles > 0 && seq >= s.opts.Cycles {
			return nil
		}

		s.logger.Info("waiting before next reading", "interval", s.opts.Interval)
		if err := s.opts.Wait(ctx, s.opts.Interval); err != nil {
			return err
		}
	}
}

func (s *Scheduler) cycle(ctx context.Context, seq int) {
	r := s.sampler.Take()
	s.logger.Info("readings", "seq", seq, "reading", r)

	res := s.deliverer.Deliver(delivery.NewRequest(r, s.opts.SensorID))
	attrs := []any{
		"seq", seq,
		"state", res.State.String(),
		"elapsed", res.Elapsed,
	}
	if res.Err != nil {
		attrs = append(attrs, "err", res.Err)
	}
	if res.Truncated {
		attrs = append(attrs, "truncated", true)
	}
	s.logger.Info("cycle complete", attrs...)

	// A finished delivery is recorded even when shutdown began mid-cycle.
	sinkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
	defer cancel()
	for _, ns := range s.opts.Sinks {
		if err := ns.Sink.Observe(sinkCtx, seq, r, res); err != nil {
			s.logger.Warn("sink failed", "sink", ns.Name, "seq", seq, "err", err)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
