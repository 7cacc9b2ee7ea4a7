package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	osignal "os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/venkat7568/tradego/config"
	"github.com/venkat7568/tradego/execution"
	"github.com/venkat7568/tradego/feed"
	"github.com/venkat7568/tradego/gateway"
	"github.com/venkat7568/tradego/gateway/sim"
	"github.com/venkat7568/tradego/ledger"
	"github.com/venkat7568/tradego/market"
	"github.com/venkat7568/tradego/metrics"
	"github.com/venkat7568/tradego/notify"
	"github.com/venkat7568/tradego/risk"
	"github.com/venkat7568/tradego/scheduler"
	"github.com/venkat7568/tradego/signal"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the trading loops until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLogger()
		if err != nil {
			return err
		}

		cfg, err := config.LoadFromFile(configPath)
		if err != nil {
			if !os.IsNotExist(errors.Unwrap(err)) {
				return err
			}
			log.Warn().Str("path", configPath).Msg("config file missing, using defaults")
			cfg = config.Default()
		}
		if len(cfg.Universe) == 0 {
			return fmt.Errorf("config: universe is empty, nothing to trade")
		}
		if cfg.Feed.URL == "" {
			return fmt.Errorf("config: feed.url is required")
		}

		ctx, stop := osignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var store ledger.Store
		if cfg.Store.Type == "sqlite" {
			s, err := ledger.NewSQLiteStore(cfg.Store.DBPath)
			if err != nil {
				return err
			}
			store = s
		} else {
			store = ledger.NewMemoryStore()
		}
		defer store.Close()

		book, err := ledger.New(store, cfg.Account.StartingCapital, ledger.DefaultCosts(), log)
		if err != nil {
			return err
		}

		stream := feed.NewStream(cfg.Feed.URL, log)
		go func() {
			if err := stream.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("feed stopped")
			}
		}()

		var gw gateway.Gateway
		var provider market.Provider = stream
		switch cfg.Account.Mode {
		case "paper":
			eng := sim.New(cfg.Account.StartingCapital)
			gw = eng
			provider = paperProvider{inner: stream, eng: eng}
		case "live":
			return fmt.Errorf("live mode requires a broker gateway integration; run in paper mode")
		}

		var notifier notify.Notifier
		if len(cfg.Notify.Brokers) > 0 {
			n, err := notify.NewKafkaNotifier(cfg.Notify.Brokers, cfg.Notify.Topic, log)
			if err != nil {
				return err
			}
			notifier = n
		} else {
			notifier = notify.NewLogNotifier(log)
		}
		defer notifier.Close()

		if cfg.Metrics.Addr != "" {
			go func() {
				if err := metrics.Serve(cfg.Metrics.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error().Err(err).Msg("metrics listener stopped")
				}
			}()
		}

		if err := config.WriteDefault(cfg.Settings.Path, scheduler.Settings{
			TradingEnabled: true,
			Limits:         cfg.Risk,
		}); err != nil {
			return fmt.Errorf("write settings: %w", err)
		}

		gen := signal.NewGenerator(signal.DefaultGeneratorConfig(), []signal.Evaluator{
			signal.NewNewsMomentum(),
			signal.NewTechnicalBreakout(),
			signal.NewMeanReversion(),
		}, log)

		execCfg, err := cfg.ExecutionConfig()
		if err != nil {
			return err
		}
		schedCfg, err := cfg.SchedulerConfig()
		if err != nil {
			return err
		}

		session := market.DefaultSession()
		coord := execution.NewCoordinator(gw, book, provider, session, notifier, execCfg, log)
		riskMgr := risk.NewManager(stream, log)

		sched := scheduler.New(schedCfg, scheduler.StaticUniverse(cfg.Universe), provider, gen,
			riskMgr, coord, book, gw, config.NewFileSettings(cfg.Settings.Path), notifier, session, log)

		log.Info().Str("mode", cfg.Account.Mode).Int("universe", len(cfg.Universe)).
			Float64("capital", cfg.Account.StartingCapital).Msg("starting")

		if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

// paperProvider feeds live prices into the paper engine as the loops consume
// them, so resting sim orders fill against the same stream the strategies
// see.
type paperProvider struct {
	inner market.Provider
	eng   *sim.Engine
}

func (p paperProvider) Snapshot(ctx context.Context, instrument string) (market.Snapshot, error) {
	snap, err := p.inner.Snapshot(ctx, instrument)
	if err == nil {
		p.eng.SetPrice(instrument, snap.Price)
	}
	return snap, err
}
