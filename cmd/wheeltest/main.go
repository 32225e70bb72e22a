// wheeltest runs one full client session against the wheel backend: it
// mirrors the credit ledger, streams settlement events to the console and
// can drive spins and a withdrawal for manual verification.
// Usage: go run ./cmd/wheeltest --config configs/session.example.yaml --spins 2
//
// Required environment variables (or api.token in the config file):
//
//	WHEEL_TOKEN - opaque session token
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/spinlabs/wheel-client/internal/api"
	"github.com/spinlabs/wheel-client/internal/config"
	"github.com/spinlabs/wheel-client/internal/connection"
	"github.com/spinlabs/wheel-client/internal/ledger"
	"github.com/spinlabs/wheel-client/internal/metrics"
	"github.com/spinlabs/wheel-client/internal/reconcile"
	"github.com/spinlabs/wheel-client/internal/spin"
	"github.com/spinlabs/wheel-client/internal/stream"
	"github.com/spinlabs/wheel-client/internal/version"
	"github.com/spinlabs/wheel-client/internal/withdraw"
)

func main() {
	configPath := flag.String("config", "configs/session.example.yaml", "path to config file")
	spins := flag.Int("spins", 0, "number of spins to request")
	withdrawAmt := flag.String("withdraw", "", "withdrawal amount to submit after spins")
	currency := flag.String("currency", "USDT", "withdrawal currency code")
	address := flag.String("address", "", "withdrawal destination address")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	// Optional .env for local runs; absence is fine.
	_ = godotenv.Load()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting wheeltest",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if token := os.Getenv("WHEEL_TOKEN"); token != "" {
		cfg.API.Token = token
	}
	if cfg.API.Token == "" {
		logger.Error("no session token; set WHEEL_TOKEN or api.token")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	apiClient := api.NewClient(
		cfg.API.RestURL,
		cfg.API.Token,
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, time.Second),
	)

	// Session bootstrap: configuration snapshot, then the full credit state.
	wheelCfg, err := apiClient.GetWheelConfig(ctx)
	if err != nil {
		logger.Error("failed to fetch wheel config", "error", err)
		os.Exit(1)
	}
	logger.Info("wheel config loaded",
		"prizes", len(wheelCfg.Prizes),
		"max_free_spins", wheelCfg.MaxFreeSpins,
		"ticket_price", wheelCfg.TicketPrice,
	)

	led := ledger.New()
	state, err := apiClient.GetState(ctx)
	if err != nil {
		logger.Error("failed to fetch credit state", "error", err)
		os.Exit(1)
	}
	led.ApplyFull(*state)
	logger.Info("ledger initialized",
		"free_remaining", led.FreeSpinsRemaining(),
		"extra_remaining", led.ExtraSpinsRemaining(),
		"tickets", led.SpinTickets(),
	)

	mgr := connection.NewManager(connection.ManagerConfig{
		URL:            cfg.API.WSURL,
		Token:          cfg.API.Token,
		ReconnectDelay: cfg.Connection.ReconnectDelay,
		AuthTimeout:    cfg.Connection.AuthTimeout,
		PingTimeout:    cfg.Connection.PingTimeout,
		WriteTimeout:   cfg.Connection.WriteTimeout,
		BufferSize:     cfg.Connection.BufferSize,
	}, logger)

	if err := mgr.Connect(ctx); err != nil {
		logger.Error("failed to connect", "error", err)
		os.Exit(1)
	}

	adapter := stream.NewAdapter(mgr.Events(), logger)
	adapter.Start(ctx)

	rec := reconcile.New(led, adapter.Events(), logger)
	rec.Start(ctx)

	orch := spin.New(spin.Config{
		SettleDelay:   cfg.Spin.SettleDelay,
		FullRotations: cfg.Spin.FullRotations,
	}, apiClient, led, rec, wheelCfg, logger)

	machine := withdraw.New(withdraw.Config{
		FallbackDelay: cfg.Withdraw.FallbackDelay,
		MaxWait:       cfg.Withdraw.MaxWait,
	}, apiClient, mgr, rec.Withdrawals(), rec.Lifecycle(), logger)

	g, gctx := errgroup.WithContext(ctx)

	// Metrics endpoint.
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, metrics.Handler())
	metricsSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: mux,
	}
	g.Go(func() error {
		logger.Info("starting metrics server", "port", cfg.Metrics.Port, "path", cfg.Metrics.Path)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})

	// Console printers for everything the session produces.
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case r := <-orch.Results():
				if r.Err != nil {
					logger.Warn("spin settlement", "state", r.State, "source", r.Source, "error", r.Err)
					continue
				}
				logger.Info("spin settlement",
					"state", r.State,
					"source", r.Source,
					"prize", prizeLabel(r),
					"target_angle", r.TargetAngle,
				)
			}
		}
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case o := <-rec.Outcomes():
				logger.Info("spin outcome push", "prize_id", o.Outcome.PrizeID, "reward", o.Outcome.RewardAmount)
			}
		}
	})

	if *spins > 0 {
		g.Go(func() error {
			return driveSpins(gctx, orch, *spins, cfg.Spin.SettleDelay, logger)
		})
	}

	if *withdrawAmt != "" {
		amount, err := decimal.NewFromString(*withdrawAmt)
		if err != nil {
			logger.Error("invalid withdrawal amount", "value", *withdrawAmt, "error", err)
			os.Exit(1)
		}
		g.Go(func() error {
			return driveWithdrawal(gctx, machine, withdraw.Request{
				Currency: *currency,
				Amount:   amount,
				Address:  *address,
			}, logger)
		})
	}

	logger.Info("session running, press Ctrl+C to stop")
	if err := g.Wait(); err != nil {
		logger.Error("session error", "error", err)
	}

	// Teardown order matters: connection first so the stream drains, then
	// the adapter, then the flows.
	mgr.Disconnect()
	adapter.Close()
	rec.Wait()
	orch.Wait()
	machine.Wait()

	snap := led.Snapshot()
	logger.Info("final ledger",
		"free_remaining", snap.FreeSpinsRemaining(),
		"extra_remaining", snap.ExtraSpinsRemaining(),
		"tickets", snap.SpinTickets,
	)
	logger.Info("wheeltest stopped")
}

// loadConfig reads the config file when present, else runs on defaults so
// the tool works against the public endpoints with just a token.
func loadConfig(path string) (*config.SessionConfig, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return config.Default(), nil
		}
		return nil, err
	}
	return config.LoadAndValidate(path)
}

// driveSpins requests n spins back to back, waiting out each settle delay
// so the single-flight guard is exercised the way a UI would.
func driveSpins(ctx context.Context, orch *spin.Orchestrator, n int, settleDelay time.Duration, logger *slog.Logger) error {
	for i := 0; i < n; i++ {
		id, err := orch.RequestSpin(ctx)
		switch {
		case errors.Is(err, spin.ErrNoCreditsAvailable):
			logger.Info("no credits left, stopping", "requested", i)
			return nil
		case errors.Is(err, spin.ErrSpinInFlight):
			// Settlement still holding the guard; wait and retry this slot.
			i--
		case err != nil:
			return err
		default:
			logger.Info("spin accepted", "local_id", id, "n", i+1)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(settleDelay + time.Second):
		}
	}
	return nil
}

// driveWithdrawal runs one withdrawal through confirm -> submit -> terminal.
func driveWithdrawal(ctx context.Context, m *withdraw.Machine, req withdraw.Request, logger *slog.Logger) error {
	if err := m.Begin(req); err != nil {
		return err
	}
	if err := m.Submit(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return nil
	case r := <-m.Results():
		logger.Info("withdrawal settled", "local_id", r.LocalID, "state", r.State, "reason", r.Reason, "error", r.Err)
		return m.Acknowledge()
	}
}

func prizeLabel(r spin.Resolution) string {
	if r.Outcome == nil {
		return ""
	}
	return r.Outcome.Label
}
