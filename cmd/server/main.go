package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/harrylevesque/forgaile/internal/api"
	"github.com/harrylevesque/forgaile/internal/background"
	"github.com/harrylevesque/forgaile/internal/certs"
	"github.com/harrylevesque/forgaile/internal/config"
	"github.com/harrylevesque/forgaile/internal/crypto"
	"github.com/harrylevesque/forgaile/internal/files"
	"github.com/harrylevesque/forgaile/internal/notify"
	"github.com/harrylevesque/forgaile/internal/sequencer"
	"github.com/harrylevesque/forgaile/internal/session"
	"github.com/harrylevesque/forgaile/internal/telemetry"
	"github.com/harrylevesque/forgaile/internal/utils"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	cfg, err := config.ParseConfig(flag.NewFlagSet("forgaile-server", flag.ContinueOnError), args)
	if err != nil {
		return err
	}

	logger, err := utils.NewLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTelEndpoint, version)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("flush traces", zap.Error(err))
		}
	}()

	script, err := sequencer.LoadScript(cfg.ScriptPath)
	if err != nil {
		return err
	}

	if cfg.AckDriver != "memory" {
		if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
			return fmt.Errorf("data dir: %w", err)
		}
	}
	acks, err := files.Open(cfg.AckDriver, cfg.AckPath)
	if err != nil {
		return fmt.Errorf("ack store: %w", err)
	}
	defer acks.Close()

	key, err := cfg.LoadCookieKey(logger)
	if err != nil {
		return err
	}
	signer, err := crypto.NewSigner(key, "visitor-cookie")
	if err != nil {
		return err
	}

	tg := notify.NewTelegram(cfg.Telegram(), &http.Client{Timeout: 15 * time.Second}, logger)
	if !cfg.Telegram().Configured() {
		logger.Warn("telegram is not configured; responses will be recorded but not delivered")
	}

	hub, err := session.NewHub(session.Options{
		Script:     script,
		Notifier:   tg,
		Acks:       acks,
		Background: background.DefaultConfig(),
		TTL:        cfg.SessionTTL,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	defer hub.Close()

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: api.NewRouter(api.Deps{
			Hub:           hub,
			Notifier:      tg,
			Acks:          acks,
			Signer:        signer,
			Background:    background.DefaultConfig(),
			Logger:        logger,
			SecureCookies: cfg.TLS(),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Streams only end when their session does.
	srv.RegisterOnShutdown(hub.Close)

	if cfg.TLS() {
		st, err := certs.NewCertManager(0).CheckPair(cfg.TLSCert, cfg.TLSKey)
		if err != nil {
			return err
		}
		if st.RenewSoon {
			logger.Warn("certificate expires soon", zap.String("subject", st.Subject), zap.Time("not_after", st.NotAfter))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error {
		logger.Info("server listening",
			zap.String("addr", cfg.Addr),
			zap.Bool("tls", cfg.TLS()),
			zap.String("ack_driver", cfg.AckDriver),
			zap.String("version", version))
		var err error
		if cfg.TLS() {
			err = srv.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
