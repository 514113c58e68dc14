// Package httpserver wraps net/http with graceful shutdown, configurable
// timeouts, health-check handlers, and structured logging via slog.
//
// Server is built through New or NewFromConfig with functional options
// (WithAddr, WithReadTimeout, WithLogger, ...). Run starts the listener in
// its own goroutine and blocks until the context is canceled or an
// interrupt/TERM signal arrives, then shuts down with a configurable
// deadline. WithStartHook and WithStopHook run side effects around the
// server lifecycle.
//
// HealthCheckHandler serves both liveness and readiness probes, running any
// supplied dependency checks for readiness.
//
// # Usage
//
//	r := chi.NewRouter()
//	r.Get("/healthz", httpserver.HealthCheckHandler(ctx, log, mongo.Healthcheck(client)))
//
//	srv := httpserver.NewFromConfig(cfg,
//		httpserver.WithLogger(log),
//		httpserver.WithStartHook(func(l *slog.Logger) { l.Info("listening") }),
//	)
//	if err := srv.Run(ctx, r); err != nil { ... }
//
// Run wraps listen errors with ErrStart; Shutdown wraps shutdown errors with
// ErrShutdown. Use errors.Is to distinguish them.
package httpserver
