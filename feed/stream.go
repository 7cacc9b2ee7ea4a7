// Package feed consumes a websocket market-data stream and serves cached
// snapshots to the trading loop. The socket reconnects with exponential
// backoff; staleness is enforced by the snapshot freshness check downstream.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/venkat7568/tradego/market"
)

// returnsDepth is how many recent prices are retained per instrument for the
// return-series queries.
const returnsDepth = 64

// Tick is one inbound message on the stream.
type Tick struct {
	Instrument string             `json:"instrument"`
	Price      float64            `json:"price"`
	Indicators map[string]float64 `json:"indicators,omitempty"`
	Sentiment  *float64           `json:"sentiment,omitempty"`
	Time       time.Time          `json:"time"`
}

// Stream is a websocket-backed market.Provider. It also serves sentiment
// scores and per-instrument return series off the same tick flow.
type Stream struct {
	url string
	log zerolog.Logger

	mu     sync.RWMutex
	snaps  map[string]market.Snapshot
	prices map[string][]float64
}

func NewStream(url string, log zerolog.Logger) *Stream {
	return &Stream{
		url:    url,
		log:    log,
		snaps:  make(map[string]market.Snapshot),
		prices: make(map[string][]float64),
	}
}

// Run connects and consumes ticks until ctx is cancelled, reconnecting with
// exponential backoff on any connection failure.
func (s *Stream) Run(ctx context.Context) error {
	delay := newBackoff(time.Second, time.Minute)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
		if err != nil {
			wait := delay.next()
			s.log.Warn().Err(err).Dur("retry_in", wait).Msg("feed dial failed")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}

		delay.reset()
		s.log.Info().Str("url", s.url).Msg("feed connected")
		err = s.consume(ctx, conn)
		conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.log.Warn().Err(err).Msg("feed disconnected, reconnecting")
	}
}

func (s *Stream) consume(ctx context.Context, conn *websocket.Conn) error {
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var tick Tick
		if err := json.Unmarshal(data, &tick); err != nil {
			s.log.Warn().Err(err).Msg("malformed tick dropped")
			continue
		}
		s.Apply(tick)
	}
}

// Apply folds one tick into the snapshot cache. Exported so paper-mode
// replay and tests can feed ticks without a socket.
func (s *Stream) Apply(tick Tick) {
	if tick.Instrument == "" || tick.Price <= 0 {
		return
	}
	if tick.Time.IsZero() {
		tick.Time = time.Now()
	}

	snap := market.Snapshot{
		Instrument: tick.Instrument,
		Price:      tick.Price,
		Indicators: tick.Indicators,
		Time:       tick.Time,
	}
	if tick.Sentiment != nil {
		snap.Sentiment = *tick.Sentiment
		snap.HasSentiment = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[tick.Instrument] = snap

	series := append(s.prices[tick.Instrument], tick.Price)
	if len(series) > returnsDepth {
		series = series[len(series)-returnsDepth:]
	}
	s.prices[tick.Instrument] = series
}

// Snapshot returns the latest cached snapshot for an instrument.
func (s *Stream) Snapshot(_ context.Context, instrument string) (market.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snaps[instrument]
	if !ok {
		return market.Snapshot{}, fmt.Errorf("no data for %s", instrument)
	}
	return snap, nil
}

// Score returns the latest sentiment for an instrument, if any tick carried
// one.
func (s *Stream) Score(_ context.Context, instrument string) (float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snaps[instrument]
	if !ok || !snap.HasSentiment {
		return 0, false, nil
	}
	return snap.Sentiment, true, nil
}

// Returns computes the most recent n simple returns from the retained price
// history, oldest first.
func (s *Stream) Returns(_ context.Context, instrument string, n int) ([]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series := s.prices[instrument]
	if len(series) < 2 {
		return nil, fmt.Errorf("insufficient history for %s", instrument)
	}

	returns := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		returns = append(returns, series[i]/series[i-1]-1)
	}
	if len(returns) > n {
		returns = returns[len(returns)-n:]
	}
	return returns, nil
}
