package ledger

import "sync"

// Store persists trades and daily portfolio snapshots. The ledger's
// in-memory set is authoritative; the store is write-through durability.
type Store interface {
	SaveTrade(Trade) error
	LoadTrades() ([]Trade, error)
	SavePortfolio(PortfolioSnapshot) error
	Close() error
}

// MemoryStore keeps trades in memory. Used for paper runs and tests.
type MemoryStore struct {
	mu     sync.Mutex
	trades map[string]Trade
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{trades: make(map[string]Trade)}
}

func (s *MemoryStore) SaveTrade(t Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades[t.ID] = t
	return nil
}

func (s *MemoryStore) LoadTrades() ([]Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Trade, 0, len(s.trades))
	for _, t := range s.trades {
		out = append(out, t)
	}
	return out, nil
}

func (s *MemoryStore) SavePortfolio(PortfolioSnapshot) error { return nil }

func (s *MemoryStore) Close() error { return nil }
