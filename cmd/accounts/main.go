package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-print"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/config"
	"github.com/goliatone/go-accounts/httpapi"
	"github.com/goliatone/go-accounts/logging"
	"github.com/goliatone/go-accounts/metrics"
	"github.com/goliatone/go-accounts/notifier"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	printConfig := flag.Bool("print-config", false, "print the resolved config and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	if *printConfig {
		fmt.Println(print.MaybePrettyJSON(cfg.Redacted()))
		return
	}

	base := logging.New(cfg.App.LogLevel, cfg.App.Name, cfg.App.LogFormat)
	logger := base.GetLogger("app")

	if err := run(cfg, base); err != nil {
		logger.Error("accounts service failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, base *glog.BaseLogger) error {
	logger := base.GetLogger("app")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := openBackend(ctx, cfg, base)
	if err != nil {
		return err
	}
	defer backend.Close()

	mailer, err := notifier.New(cfg.Mail, base.GetLogger("notifier"))
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	queue := accounts.NewWorkQueue(
		accounts.WithWorkers(cfg.Queue.Workers),
		accounts.WithQueueSize(cfg.Queue.Size),
		accounts.WithTaskTimeout(cfg.Queue.TaskTimeout),
		accounts.WithQueueLogger(base.GetLogger("queue")),
		accounts.WithTaskObserver(m.ObserveTask),
	)
	queue.Start(ctx)

	issuer := accounts.NewTokenIssuer(
		cfg.Tokens.AccessSecret,
		cfg.Tokens.RefreshSecret,
		backend.tokens,
		accounts.WithIssuer(cfg.Tokens.Issuer),
		accounts.WithAccessTTL(cfg.Tokens.AccessTTL),
		accounts.WithRefreshTTL(cfg.Tokens.RefreshTTL),
		accounts.WithTokenLogger(base.GetLogger("tokens")),
	)

	users := accounts.NewUserService(backend.users, accounts.WithUserLogger(base.GetLogger("users")))
	sessions := accounts.NewSessionService(backend.users, backend.tokens, issuer, accounts.WithSessionLogger(base.GetLogger("sessions")))
	admin := accounts.NewAdminService(backend.users, mailer, queue, accounts.WithAdminLogger(base.GetLogger("admin")))

	opts := []httpapi.Option{
		httpapi.WithLogger(base.GetLogger("http")),
		httpapi.WithCookies(httpapi.CookieConfig{
			Secure:   cfg.Cookies.Secure,
			SameSite: cfg.Cookies.SameSite,
			Domain:   cfg.Cookies.Domain,
		}),
	}
	for name, check := range backend.checks {
		opts = append(opts, httpapi.WithHealthCheck(name, check))
	}

	handler := httpapi.NewHandler(users, sessions, admin, issuer, opts...)
	app := httpapi.NewApp(handler, httpapi.AppConfig{
		Name:         cfg.App.Name,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		Metrics:      m,
		Logger:       base.GetLogger("http"),
	})

	if backend.sweeper != nil {
		backend.sweeper.Start(ctx)
		defer backend.sweeper.Stop()
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("accounts service starting", "addr", cfg.HTTP.Addr, "env", cfg.App.Env, "persistence", cfg.Persistence.Driver,
			"refresh_store", cfg.RefreshStore.Driver, "mail", cfg.Mail.Driver)
		errc <- app.Listen(cfg.HTTP.Addr)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutdown started")

	if err := app.ShutdownWithTimeout(cfg.HTTP.ShutdownTimeout); err != nil {
		logger.Error("http shutdown error", "error", err)
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Queue.TaskTimeout+5*time.Second)
	defer cancel()
	if err := queue.Stop(drainCtx); err != nil {
		logger.Error("work queue shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
