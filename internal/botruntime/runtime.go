// Package botruntime wires the moderation bot together and owns its
// lifecycle: it opens the state, starts the dispatcher and the optional
// metrics listener, and tears everything down in order on shutdown.
package botruntime

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/quailyquaily/modguard/internal/admin"
	"github.com/quailyquaily/modguard/internal/delayed"
	"github.com/quailyquaily/modguard/internal/dispatch"
	"github.com/quailyquaily/modguard/internal/fsstore"
	"github.com/quailyquaily/modguard/internal/metrics"
	"github.com/quailyquaily/modguard/internal/moderation"
	"github.com/quailyquaily/modguard/internal/modstore"
	"github.com/quailyquaily/modguard/internal/outbound"
	"github.com/quailyquaily/modguard/internal/ratelimit"
	"github.com/quailyquaily/modguard/internal/session"
	"github.com/quailyquaily/modguard/internal/telegram"
)

// Run blocks until ctx is done or startup fails.
func Run(ctx context.Context, opts Options) error {
	opts = normalizeOptions(opts)
	if err := validateOptions(opts); err != nil {
		return err
	}
	logger := opts.Logger

	store, err := modstore.Open(opts.StatePath, modstore.Options{Lock: opts.StateLock, Logger: logger})
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("modstore_close_error", "error", err.Error())
		}
	}()

	m := metrics.New()
	m.RegisterModeratedChats(store.ChatCount)

	var auditor moderation.Auditor
	if opts.AuditPath != "" {
		w, err := fsstore.OpenJSONLog(opts.AuditPath, fsstore.JSONLogOptions{})
		if err != nil {
			return fmt.Errorf("open audit log: %w", err)
		}
		defer func() { _ = w.Close() }()
		auditor = w
	}

	client := telegram.New(opts.BotToken, telegram.Options{
		HTTPClient:    &http.Client{Timeout: opts.RequestTimeout},
		BaseURL:       opts.BaseURL,
		RatePerSecond: opts.RatePerSecond,
		RateBurst:     opts.RateBurst,
		MaxRetryAfter: opts.MaxRetryAfter,
	})
	scheduler := delayed.New(logger, 10*time.Second)
	out := outbound.New(client, scheduler, outbound.Options{
		AdminChatIDs: opts.AdminChatIDs,
		AdminUserIDs: opts.AdminUserIDs,
		NoticeTTL:    opts.NoticeTTL,
		Logger:       logger,
	})

	pipeline := moderation.New(moderation.Deps{
		API:      client,
		Store:    store,
		Limiter:  ratelimit.New(opts.FloodWindow, opts.FloodMaxMessages),
		Notifier: out,
		Auditor:  auditor,
		Metrics:  m,
		Logger:   logger,
	}, moderation.Config{
		WarningLimit:     opts.WarningLimit,
		MaxMessageLength: opts.MaxMessageLength,
		AdminChatIDs:     opts.AdminChatIDs,
	})
	router := admin.New(admin.Deps{
		API:      client,
		Sender:   out,
		Store:    store,
		Sessions: session.NewMachine(),
		Logger:   logger,
	}, admin.Config{AdminChatIDs: opts.AdminChatIDs, AdminUserIDs: opts.AdminUserIDs})

	var metricsSrv *http.Server
	if opts.MetricsListen != "" {
		ln, err := net.Listen("tcp", opts.MetricsListen)
		if err != nil {
			return fmt.Errorf("metrics listen %s: %w", opts.MetricsListen, err)
		}
		metricsSrv = &http.Server{Handler: m.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics_serve_error", "error", err.Error())
			}
		}()
		logger.Info("metrics_listen", "addr", ln.Addr().String())
	}

	logger.Info("modguard_start",
		"state_path", store.Path(),
		"moderated_chats", store.ChatCount(),
		"admin_chats", len(opts.AdminChatIDs),
		"admin_users", len(opts.AdminUserIDs),
		"admin_destinations", out.AdminDestinations(),
		"audit", opts.AuditPath != "",
	)

	d := dispatch.New(dispatch.Deps{
		Poller:    client,
		Admin:     router,
		Moderator: pipeline,
		Metrics:   m,
		Logger:    logger,
	}, dispatch.Options{
		Workers:         opts.Workers,
		QueueSize:       opts.QueueSize,
		PollTimeout:     opts.PollTimeout,
		PollRetryDelay:  opts.PollRetryDelay,
		HandlerTimeout:  opts.HandlerTimeout,
		ShutdownTimeout: opts.ShutdownTimeout,
	})
	runErr := d.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
	defer cancel()
	if opts.FlushOnShutdown {
		if err := scheduler.Flush(shutdownCtx); err != nil {
			logger.Warn("ephemeral_flush_incomplete", "error", err.Error())
		}
	}
	if dropped, err := scheduler.Close(shutdownCtx); err != nil {
		logger.Warn("ephemeral_close_incomplete", "cancelled", dropped, "error", err.Error())
	} else if dropped > 0 {
		logger.Info("ephemeral_cancelled", "count", dropped)
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics_shutdown_error", "error", err.Error())
		}
	}
	logger.Info("modguard_stop")
	return runErr
}
