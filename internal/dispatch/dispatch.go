// Package dispatch runs the update intake loop: it long-polls the Bot API,
// advances the cursor, and fans each update out to a bounded worker pool
// that routes it to the admin router or the moderation pipeline.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/quailyquaily/modguard/internal/event"
	"github.com/quailyquaily/modguard/internal/logutil"
	"github.com/quailyquaily/modguard/internal/metrics"
	"github.com/quailyquaily/modguard/internal/moderation"
	"github.com/quailyquaily/modguard/internal/telegram"
)

type Poller interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegram.Update, int64, error)
}

type AdminHandler interface {
	IsAdminContext(ev event.Event) bool
	HandleMessage(ctx context.Context, ev event.Event)
	HandleCallback(ctx context.Context, ev event.Event)
	ReportInternalError(ctx context.Context, chat int64)
}

type Moderator interface {
	Handle(ctx context.Context, ev event.Event) moderation.Outcome
}

// Route names the handler an update is sent to.
type Route string

const (
	RouteCallback   Route = "callback"
	RouteAdmin      Route = "admin"
	RouteModeration Route = "moderation"
)

type Options struct {
	Workers         int
	QueueSize       int
	PollTimeout     time.Duration
	PollRetryDelay  time.Duration
	HandlerTimeout  time.Duration
	ShutdownTimeout time.Duration
	// Offset is the first update id to request.
	Offset int64
}

func normalizeOptions(opts Options) Options {
	if opts.Workers <= 0 {
		opts.Workers = 6
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 25 * time.Second
	}
	if opts.PollRetryDelay <= 0 {
		opts.PollRetryDelay = 5 * time.Second
	}
	if opts.HandlerTimeout <= 0 {
		opts.HandlerTimeout = 60 * time.Second
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	return opts
}

type Deps struct {
	Poller    Poller
	Admin     AdminHandler
	Moderator Moderator
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

type Dispatcher struct {
	poller    Poller
	admin     AdminHandler
	moderator Moderator
	metrics   *metrics.Metrics
	logger    *slog.Logger
	opts      Options
}

func New(deps Deps, opts Options) *Dispatcher {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		poller:    deps.Poller,
		admin:     deps.Admin,
		moderator: deps.Moderator,
		metrics:   deps.Metrics,
		logger:    logger,
		opts:      normalizeOptions(opts),
	}
}

// Run polls until ctx is done. Updates still queued at that point are
// dropped; handlers already running get ShutdownTimeout to finish and keep
// a context that is not cancelled by ctx.
func (d *Dispatcher) Run(ctx context.Context) error {
	if d.poller == nil || d.admin == nil || d.moderator == nil {
		return errors.New("dispatch: poller, admin and moderator are required")
	}
	pool, err := ants.NewPool(d.opts.Workers)
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}

	jobs := make(chan event.Event, d.opts.QueueSize)
	base := context.WithoutCancel(ctx)
	feederDone := make(chan int, 1)
	go func() {
		dropped := 0
		for ev := range jobs {
			if ctx.Err() != nil {
				dropped++
				continue
			}
			job := ev
			if err := pool.Submit(func() { d.process(base, job) }); err != nil {
				dropped++
				d.logger.Warn("dispatch_submit_failed", "update_id", job.UpdateID, "error", err.Error())
			}
		}
		feederDone <- dropped
	}()

	d.logger.Info("dispatch_start",
		"workers", d.opts.Workers,
		"queue_size", d.opts.QueueSize,
		"poll_timeout", d.opts.PollTimeout.String(),
	)
	d.poll(ctx, jobs)
	close(jobs)

	dropped := <-feederDone
	if dropped > 0 {
		d.metrics.AddDropped(dropped)
	}
	if err := pool.ReleaseTimeout(d.opts.ShutdownTimeout); err != nil {
		d.logger.Warn("dispatch_workers_abandoned", "running", pool.Running(), "error", err.Error())
	}
	d.logger.Info("dispatch_stop", "dropped", dropped)
	return nil
}

// poll is the intake loop. It is the only writer of the cursor and advances
// it before the batch is handled.
func (d *Dispatcher) poll(ctx context.Context, jobs chan<- event.Event) {
	offset := d.opts.Offset
	for {
		if ctx.Err() != nil {
			return
		}
		updates, next, err := d.poller.GetUpdates(ctx, offset, d.opts.PollTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			if telegram.IsPollTimeout(err) {
				d.logger.Debug("dispatch_poll_timeout", "error", err.Error())
			} else {
				d.metrics.IncPollError()
				d.logger.Warn("dispatch_poll_error", "offset", offset, "error", err.Error())
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(d.opts.PollRetryDelay):
			}
			continue
		}
		offset = next

		for _, u := range updates {
			ev, ok := event.FromUpdate(u)
			if !ok {
				d.logger.Debug("dispatch_update_skipped", "update_id", u.UpdateID)
				continue
			}
			d.metrics.IncUpdate(ev.Kind.String())
			if !d.enqueue(ctx, jobs, ev) {
				return
			}
		}
	}
}

// enqueue hands ev to the feeder. A full queue stalls intake until a slot
// frees up; the stall is logged and counted. It reports false once ctx is done.
func (d *Dispatcher) enqueue(ctx context.Context, jobs chan<- event.Event, ev event.Event) bool {
	select {
	case jobs <- ev:
		return true
	default:
	}
	d.metrics.IncQueueFull()
	d.logger.Warn("dispatch_queue_full", "update_id", ev.UpdateID, "queue_size", cap(jobs))
	select {
	case jobs <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// Classify picks the handler for ev.
func (d *Dispatcher) Classify(ev event.Event) Route {
	if ev.Kind == event.KindCallbackQuery {
		return RouteCallback
	}
	if d.admin.IsAdminContext(ev) {
		return RouteAdmin
	}
	return RouteModeration
}

func (d *Dispatcher) process(base context.Context, ev event.Event) {
	logger := d.logger.With("update_id", ev.UpdateID, "trace_id", uuid.NewString())
	ctx, cancel := context.WithTimeout(base, d.opts.HandlerTimeout)
	defer cancel()
	ctx = logutil.WithLogger(ctx, logger)

	route := d.Classify(ev)
	start := time.Now()
	defer func() {
		d.metrics.ObserveHandler(string(route), time.Since(start))
		if rec := recover(); rec != nil {
			d.metrics.IncPanic()
			logger.Error("dispatch_handler_panic",
				"route", string(route),
				"panic", fmt.Sprint(rec),
				"stack", string(debug.Stack()),
			)
			d.reportPanic(ctx, logger, route, ev)
		}
	}()

	switch route {
	case RouteCallback:
		d.admin.HandleCallback(ctx, ev)
	case RouteAdmin:
		d.admin.HandleMessage(ctx, ev)
	default:
		outcome := d.moderator.Handle(ctx, ev)
		if outcome != moderation.OutcomeIgnored {
			logger.Debug("dispatch_moderation_outcome", "chat_id", ev.Chat.ID, "outcome", outcome.String())
		}
	}
}

func (d *Dispatcher) reportPanic(ctx context.Context, logger *slog.Logger, route Route, ev event.Event) {
	if ev.Chat.ID == 0 {
		return
	}
	if route == RouteModeration || (route == RouteCallback && !d.admin.IsAdminContext(ev)) {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("dispatch_report_panic", "panic", fmt.Sprint(rec))
		}
	}()
	d.admin.ReportInternalError(ctx, ev.Chat.ID)
}
