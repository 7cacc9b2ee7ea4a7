package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyAndSnapshot(t *testing.T) {
	t.Parallel()

	s := NewStream("", zerolog.Nop())
	sentiment := 0.72
	s.Apply(Tick{
		Instrument: "RELIANCE",
		Price:      2500,
		Indicators: map[string]float64{"rsi": 55},
		Sentiment:  &sentiment,
		Time:       time.Now(),
	})

	snap, err := s.Snapshot(context.Background(), "RELIANCE")
	require.NoError(t, err)
	assert.InDelta(t, 2500, snap.Price, 1e-9)
	rsi, ok := snap.Indicator("rsi")
	require.True(t, ok)
	assert.InDelta(t, 55, rsi, 1e-9)

	score, ok, err := s.Score(context.Background(), "RELIANCE")
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 0.72, score, 1e-9)

	_, err = s.Snapshot(context.Background(), "TCS")
	assert.Error(t, err)
}

func TestApplyRejectsBadTicks(t *testing.T) {
	t.Parallel()

	s := NewStream("", zerolog.Nop())
	s.Apply(Tick{Instrument: "RELIANCE", Price: -1})
	s.Apply(Tick{Instrument: "", Price: 100})

	_, err := s.Snapshot(context.Background(), "RELIANCE")
	assert.Error(t, err)
}

func TestReturnsFromTickHistory(t *testing.T) {
	t.Parallel()

	s := NewStream("", zerolog.Nop())
	for _, p := range []float64{100, 110, 99, 108.9} {
		s.Apply(Tick{Instrument: "TCS", Price: p, Time: time.Now()})
	}

	returns, err := s.Returns(context.Background(), "TCS", 2)
	require.NoError(t, err)
	require.Len(t, returns, 2)
	assert.InDelta(t, -0.10, returns[0], 1e-9)
	assert.InDelta(t, 0.10, returns[1], 1e-9)

	_, err = s.Returns(context.Background(), "INFY", 5)
	assert.Error(t, err)
}

func TestRunConsumesWebsocket(t *testing.T) {
	t.Parallel()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		msg := `{"instrument":"RELIANCE","price":2500,"indicators":{"rsi":48}}`
		_ = conn.WriteMessage(websocket.TextMessage, []byte(msg))
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewStream("ws"+strings.TrimPrefix(srv.URL, "http"), zerolog.Nop())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, err := s.Snapshot(context.Background(), "RELIANCE")
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop on cancel")
	}
}

func TestBackoffDoublesAndResets(t *testing.T) {
	t.Parallel()

	b := newBackoff(time.Second, 8*time.Second)
	assert.Equal(t, time.Second, b.next())
	assert.Equal(t, 2*time.Second, b.next())
	assert.Equal(t, 4*time.Second, b.next())
	assert.Equal(t, 8*time.Second, b.next())
	assert.Equal(t, 8*time.Second, b.next())

	b.reset()
	assert.Equal(t, time.Second, b.next())
}
