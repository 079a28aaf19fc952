// Package sweeper periodically removes expired stored files.
//
// One Sweeper runs per process. Runs never overlap within a process; when a Locker is
// configured, replicas also skip runs while another replica holds the lock.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrInvalidInterval = errors.New("sweep interval must be greater than 0")
	ErrAlreadyStarted  = errors.New("sweeper already started")
)

// Deleter removes every file that has expired by now.
type Deleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// Locker coordinates sweeps between replicas.
// TryLock returns acquired=false without error when another holder owns the lock.
type Locker interface {
	TryLock(ctx context.Context) (release func(), acquired bool, err error)
}

// State is the lifecycle stage of a Sweeper.
type State int32

const (
	StateUninitialized State = iota
	StateScheduled
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateScheduled:
		return "scheduled"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Result describes one RunOnce call.
type Result struct {
	Deleted  int64
	Skipped  bool
	Duration time.Duration
}

type Option func(*Sweeper)

// WithScheduler runs the sweeper on an external scheduler. The sweeper does not close it.
func WithScheduler(s Scheduler) Option {
	return func(sw *Sweeper) { sw.scheduler = s }
}

func WithLocker(l Locker) Option {
	return func(sw *Sweeper) { sw.locker = l }
}

func WithLogger(l *slog.Logger) Option {
	return func(sw *Sweeper) { sw.logger = l }
}

// WithRegisterer registers the sweep metrics on reg instead of the default registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(sw *Sweeper) { sw.registerer = reg }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(sw *Sweeper) { sw.tracer = tp.Tracer(tracerName) }
}

func withClock(now func() time.Time) Option {
	return func(sw *Sweeper) { sw.now = now }
}

const tracerName = "uploadstore/internal/sweeper"

// Sweeper invokes Deleter.DeleteExpired at a fixed interval.
type Sweeper struct {
	deleter    Deleter
	interval   time.Duration
	scheduler  Scheduler
	owned      *TickerScheduler
	locker     Locker
	logger     *slog.Logger
	registerer prometheus.Registerer
	tracer     trace.Tracer
	metrics    *metrics
	now        func() time.Time

	runMu sync.Mutex // serializes RunOnce

	lifecycleMu sync.Mutex
	state       atomic.Int32
	cancelTask  func()
	cancelCtx   context.CancelFunc
}

// New creates a sweeper. interval must be positive.
func New(deleter Deleter, interval time.Duration, opts ...Option) (*Sweeper, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("%w, got %s", ErrInvalidInterval, interval)
	}
	sw := &Sweeper{
		deleter:    deleter,
		interval:   interval,
		logger:     slog.Default(),
		registerer: prometheus.DefaultRegisterer,
		tracer:     otel.Tracer(tracerName),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(sw)
	}
	sw.logger = sw.logger.With(slog.String("component", "sweeper"))
	sw.metrics = newMetrics(sw.registerer)
	return sw, nil
}

func (sw *Sweeper) State() State {
	return State(sw.state.Load())
}

// Start schedules the first run at now + interval and then every interval.
// Runs use a context derived from ctx that is cancelled by Stop.
func (sw *Sweeper) Start(ctx context.Context) error {
	sw.lifecycleMu.Lock()
	defer sw.lifecycleMu.Unlock()

	if sw.State() != StateUninitialized {
		return ErrAlreadyStarted
	}
	if sw.scheduler == nil {
		sw.owned = NewTickerScheduler()
		sw.scheduler = sw.owned
	}

	runCtx, cancel := context.WithCancel(ctx)
	sw.cancelCtx = cancel
	first := sw.now().Add(sw.interval)
	sw.state.Store(int32(StateScheduled))
	sw.cancelTask = sw.scheduler.ScheduleAtFixedRate(first, sw.interval, func() {
		sw.state.CompareAndSwap(int32(StateScheduled), int32(StateRunning))
		_, _ = sw.RunOnce(runCtx)
	})

	sw.logger.Info("sweeper started",
		slog.String("interval", sw.interval.String()),
		slog.Time("first_run", first),
	)
	return nil
}

// Stop cancels the schedule and the context of a sweep in progress. With the sweeper's own
// scheduler it also waits for that sweep to return; an external scheduler is not closed.
func (sw *Sweeper) Stop() {
	sw.lifecycleMu.Lock()
	defer sw.lifecycleMu.Unlock()

	if sw.State() == StateStopped {
		return
	}
	if sw.cancelTask != nil {
		sw.cancelTask()
	}
	if sw.cancelCtx != nil {
		sw.cancelCtx()
	}
	if sw.owned != nil {
		sw.owned.Close()
	}
	sw.state.Store(int32(StateStopped))
	sw.logger.Info("sweeper stopped")
}

// RunOnce deletes expired files once. If another run holds the local or distributed lock,
// the call is skipped and reported with Result.Skipped.
func (sw *Sweeper) RunOnce(ctx context.Context) (*Result, error) {
	if !sw.runMu.TryLock() {
		return sw.skip("previous sweep still running"), nil
	}
	defer sw.runMu.Unlock()

	ctx, span := sw.tracer.Start(ctx, "sweeper.RunOnce", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	if sw.locker != nil {
		release, acquired, err := sw.locker.TryLock(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			sw.metrics.errors.Inc()
			sw.logger.ErrorContext(ctx, "sweep lock failed", slog.String("error", err.Error()))
			return nil, fmt.Errorf("acquire sweep lock: %w", err)
		}
		if !acquired {
			span.SetAttributes(attribute.Bool("sweep.skipped", true))
			return sw.skip("sweep lock held by another instance"), nil
		}
		defer release()
	}

	start := time.Now()
	deleted, err := sw.deleter.DeleteExpired(ctx)
	result := &Result{Deleted: deleted, Duration: time.Since(start)}

	sw.metrics.runs.Inc()
	sw.metrics.duration.Observe(result.Duration.Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		sw.metrics.errors.Inc()
		sw.logger.ErrorContext(ctx, "sweep failed",
			slog.String("error", err.Error()),
			slog.Duration("duration", result.Duration),
		)
		return nil, err
	}

	sw.metrics.deleted.Add(float64(deleted))
	span.SetAttributes(attribute.Int64("sweep.deleted", deleted))
	sw.logger.InfoContext(ctx, "sweep finished",
		slog.Int64("deleted", deleted),
		slog.Duration("duration", result.Duration),
	)
	return result, nil
}

func (sw *Sweeper) skip(reason string) *Result {
	sw.metrics.skipped.Inc()
	sw.logger.Debug("sweep skipped", slog.String("reason", reason))
	return &Result{Skipped: true}
}
