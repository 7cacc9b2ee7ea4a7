// Package scheduler drives the two periodic loops: a decision cycle that
// evaluates the universe and admits new trades while the session is open,
// and a faster monitoring cycle that manages live positions whenever any
// trade is active.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/venkat7568/tradego/execution"
	"github.com/venkat7568/tradego/gateway"
	"github.com/venkat7568/tradego/ledger"
	"github.com/venkat7568/tradego/market"
	"github.com/venkat7568/tradego/metrics"
	"github.com/venkat7568/tradego/notify"
	"github.com/venkat7568/tradego/risk"
	"github.com/venkat7568/tradego/signal"
)

// Config bounds the two loops and the evaluation worker pool.
type Config struct {
	DecisionInterval time.Duration
	MonitorInterval  time.Duration
	Workers          int
	MaxSnapshotAge   time.Duration
}

func DefaultConfig() Config {
	return Config{
		DecisionInterval: 15 * time.Minute,
		MonitorInterval:  30 * time.Second,
		Workers:          4,
		MaxSnapshotAge:   5 * time.Minute,
	}
}

// Validate rejects cadences that would let a forced exit slip. The monitor
// interval is capped at two minutes so an intraday position can never drift
// past the session cutoff by more than one tick.
func (c Config) Validate() error {
	if c.MonitorInterval <= 0 || c.MonitorInterval > 2*time.Minute {
		return fmt.Errorf("monitor interval %s must be in (0, 2m]", c.MonitorInterval)
	}
	if c.DecisionInterval < c.MonitorInterval {
		return fmt.Errorf("decision interval %s shorter than monitor interval %s",
			c.DecisionInterval, c.MonitorInterval)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.MaxSnapshotAge <= 0 {
		return fmt.Errorf("max snapshot age must be positive, got %s", c.MaxSnapshotAge)
	}
	return nil
}

// Settings is the per-cycle view of the settings store: risk limits plus the
// trading-mode flag. Immutable for the duration of one cycle.
type Settings struct {
	TradingEnabled bool        `json:"trading_enabled" yaml:"trading_enabled"`
	Limits         risk.Limits `json:"limits" yaml:"limits"`
}

// SettingsSource is polled once per decision cycle.
type SettingsSource interface {
	Load(ctx context.Context) (Settings, error)
}

// UniverseProvider serves the instruments to evaluate each cycle.
type UniverseProvider interface {
	Universe(ctx context.Context) ([]string, error)
}

// StaticUniverse is a fixed instrument list.
type StaticUniverse []string

func (u StaticUniverse) Universe(context.Context) ([]string, error) { return u, nil }

// Scheduler owns the loop lifecycle. Start it with Run; it stops when the
// context is cancelled and all in-flight work has drained.
type Scheduler struct {
	cfg      Config
	universe UniverseProvider
	provider market.Provider
	gen      *signal.Generator
	riskMgr  *risk.Manager
	coord    *execution.Coordinator
	ledger   *ledger.Ledger
	gw       gateway.Gateway
	settings SettingsSource
	notifier notify.Notifier
	session  market.Session
	log      zerolog.Logger

	lastSettings   Settings
	haveSettings   bool
	sessionWasOpen bool
	haltNotified   bool

	now func() time.Time
}

func New(cfg Config, universe UniverseProvider, provider market.Provider, gen *signal.Generator,
	riskMgr *risk.Manager, coord *execution.Coordinator, l *ledger.Ledger, gw gateway.Gateway,
	settings SettingsSource, notifier notify.Notifier, session market.Session, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		universe: universe,
		provider: provider,
		gen:      gen,
		riskMgr:  riskMgr,
		coord:    coord,
		ledger:   l,
		gw:       gw,
		settings: settings,
		notifier: notifier,
		session:  session,
		log:      log,
		now:      time.Now,
	}
}

// Run blocks, driving both loops until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}

	decide := time.NewTicker(s.cfg.DecisionInterval)
	defer decide.Stop()
	monitor := time.NewTicker(s.cfg.MonitorInterval)
	defer monitor.Stop()

	s.log.Info().
		Dur("decision_interval", s.cfg.DecisionInterval).
		Dur("monitor_interval", s.cfg.MonitorInterval).
		Int("workers", s.cfg.Workers).
		Msg("scheduler started")

	s.DecideOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler stopped")
			return ctx.Err()
		case <-decide.C:
			s.DecideOnce(ctx)
		case <-monitor.C:
			s.MonitorOnce(ctx)
		}
	}
}

// DecideOnce runs a single decision cycle.
func (s *Scheduler) DecideOnce(ctx context.Context) {
	started := s.now()
	defer func() {
		metrics.CycleDuration.Observe(time.Since(started).Seconds())
	}()

	settings := s.loadSettings(ctx)
	open := s.session.IsOpen(s.now())
	s.trackSessionEdge(open)
	if !open {
		return
	}
	if !settings.TradingEnabled {
		s.log.Info().Msg("trading disabled in settings, cycle skipped")
		return
	}

	snap := s.ledger.Snapshot(ledger.Day(s.now()))
	s.publishGauges(snap)
	if risk.Halted(snap, settings.Limits) {
		metrics.CircuitBreaker.Set(1)
		if !s.haltNotified {
			s.haltNotified = true
			s.log.Warn().Float64("pnl", snap.TotalPnL()).Msg("circuit breaker tripped, admissions halted")
			s.notifier.Publish(notify.Event{
				Kind:   notify.CircuitBreakerTripped,
				Detail: fmt.Sprintf("daily pnl %.0f of %.0f capital", snap.TotalPnL(), snap.StartingCapital),
				Time:   s.now(),
			})
		}
		return
	}
	metrics.CircuitBreaker.Set(0)
	s.haltNotified = false

	instruments, err := s.universe.Universe(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("universe fetch failed, cycle skipped")
		return
	}

	candidates := s.evaluate(ctx, instruments)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	if err := s.admitAndSubmit(ctx, candidates, settings.Limits); err != nil {
		if errors.Is(err, gateway.ErrAuth) {
			s.log.Error().Err(err).Msg("gateway authentication failed, cycle aborted for credential refresh")
			return
		}
		s.log.Error().Err(err).Msg("admission phase failed")
	}
}

// evaluate fans the universe out over a fixed-size worker pool and collects
// the non-nil signals. One instrument's failure never reaches the others.
func (s *Scheduler) evaluate(ctx context.Context, instruments []string) []signal.Signal {
	work := make(chan string)
	results := make(chan signal.Signal, len(instruments))

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for instrument := range work {
				if sig, ok := s.evaluateOne(ctx, instrument); ok {
					results <- sig
				}
			}
		}()
	}

	for _, instrument := range instruments {
		select {
		case <-ctx.Done():
			close(work)
			wg.Wait()
			close(results)
			return nil
		case work <- instrument:
		}
	}
	close(work)
	wg.Wait()
	close(results)

	var out []signal.Signal
	for sig := range results {
		metrics.SignalsGenerated.WithLabelValues(sig.Strategy).Inc()
		out = append(out, sig)
	}
	return out
}

func (s *Scheduler) evaluateOne(ctx context.Context, instrument string) (sig signal.Signal, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Str("instrument", instrument).Interface("panic", r).
				Msg("evaluation panicked, instrument skipped")
			ok = false
		}
	}()

	snap, err := s.provider.Snapshot(ctx, instrument)
	if err != nil {
		s.log.Warn().Err(err).Str("instrument", instrument).Msg("snapshot fetch failed")
		return signal.Signal{}, false
	}
	if err := snap.Validate(s.now(), s.cfg.MaxSnapshotAge); err != nil {
		s.log.Warn().Err(err).Str("instrument", instrument).Msg("snapshot rejected")
		return signal.Signal{}, false
	}
	return s.gen.Generate(instrument, snap)
}

// admitAndSubmit walks candidates best-first, sizing and admitting each
// against fresh ledger state, and submits accepted ones sequentially so the
// open-position count is never raced.
func (s *Scheduler) admitAndSubmit(ctx context.Context, candidates []signal.Signal, limits risk.Limits) error {
	if len(candidates) == 0 {
		return nil
	}

	funds, err := s.gw.Funds(ctx)
	if err != nil {
		if errors.Is(err, gateway.ErrAuth) {
			return err
		}
		metrics.GatewayErrors.WithLabelValues("funds").Inc()
		return fmt.Errorf("fetch funds: %w", err)
	}

	for _, sig := range candidates {
		open := s.ledger.OpenTrades()
		if len(open) >= limits.MaxOpenPositions {
			s.log.Info().Int("open", len(open)).Msg("position limit reached, remaining candidates dropped")
			return nil
		}

		dec, ok := risk.Size(sig, funds, limits)
		if !ok {
			metrics.CandidatesRejected.WithLabelValues("sizing").Inc()
			s.log.Info().Str("instrument", sig.Instrument).Str("strategy", sig.Strategy).
				Msg("sizing rejected candidate")
			continue
		}

		snap := s.ledger.Snapshot(ledger.Day(s.now()))
		admitted, reason := s.riskMgr.Admit(ctx, sig, dec, open, snap, limits)
		if !admitted {
			metrics.CandidatesRejected.WithLabelValues("admission").Inc()
			s.log.Info().Str("instrument", sig.Instrument).Str("reason", reason).
				Msg("admission rejected candidate")
			continue
		}

		trade, err := s.ledger.Create(sig, dec.Quantity, dec.RiskAmount)
		if err != nil {
			s.log.Error().Err(err).Str("instrument", sig.Instrument).Msg("trade create failed")
			continue
		}
		if err := s.coord.Submit(ctx, trade); err != nil {
			if errors.Is(err, gateway.ErrAuth) {
				return err
			}
			s.log.Error().Err(err).Str("instrument", sig.Instrument).Msg("submission failed, candidate skipped")
		}
	}
	return nil
}

// MonitorOnce runs a single monitoring pass over all open trades.
func (s *Scheduler) MonitorOnce(ctx context.Context) {
	open := s.ledger.OpenTrades()
	metrics.OpenPositions.Set(float64(len(open)))

	for _, t := range open {
		if err := s.coord.Poll(ctx, t.ID); err != nil {
			if errors.Is(err, gateway.ErrAuth) {
				s.log.Error().Err(err).Msg("gateway authentication failed, monitoring pass aborted")
				return
			}
			s.log.Error().Err(err).Str("trade", t.ID).Msg("poll failed")
		}
	}
}

// loadSettings polls the settings store, falling back to the last good read
// when the poll fails.
func (s *Scheduler) loadSettings(ctx context.Context) Settings {
	settings, err := s.settings.Load(ctx)
	if err != nil {
		if s.haveSettings {
			s.log.Warn().Err(err).Msg("settings poll failed, using previous cycle's settings")
			return s.lastSettings
		}
		s.log.Error().Err(err).Msg("settings unavailable, trading disabled this cycle")
		return Settings{TradingEnabled: false, Limits: risk.DefaultLimits()}
	}
	s.lastSettings = settings
	s.haveSettings = true
	return settings
}

// trackSessionEdge publishes the daily summary when the session transitions
// from open to closed.
func (s *Scheduler) trackSessionEdge(open bool) {
	if s.sessionWasOpen && !open {
		snap := s.ledger.SaveDailySnapshot(ledger.Day(s.now()))
		s.log.Info().
			Float64("realized", snap.RealizedPnL).
			Float64("unrealized", snap.UnrealizedPnL).
			Float64("win_rate", snap.WinRate).
			Int("open", snap.OpenCount).
			Msg("session closed")
		s.notifier.Publish(notify.Event{
			Kind: notify.DailySummary,
			Detail: fmt.Sprintf("realized %.0f unrealized %.0f win rate %.0f%%",
				snap.RealizedPnL, snap.UnrealizedPnL, snap.WinRate*100),
			Time: s.now(),
		})
	}
	s.sessionWasOpen = open
}

func (s *Scheduler) publishGauges(snap ledger.PortfolioSnapshot) {
	metrics.PortfolioPnL.WithLabelValues("realized").Set(snap.RealizedPnL)
	metrics.PortfolioPnL.WithLabelValues("unrealized").Set(snap.UnrealizedPnL)
	metrics.OpenPositions.Set(float64(snap.OpenCount))
}
