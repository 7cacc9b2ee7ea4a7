package ledger

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/venkat7568/tradego/signal"
)

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	instrument TEXT NOT NULL,
	strategy TEXT NOT NULL,
	direction TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	product TEXT NOT NULL,
	entry_price REAL NOT NULL,
	stop_loss REAL NOT NULL,
	target REAL NOT NULL,
	risk_amount REAL NOT NULL,
	entry_time DATETIME NOT NULL,
	confidence REAL NOT NULL,
	state TEXT NOT NULL,
	exit_price REAL NOT NULL DEFAULT 0,
	exit_time DATETIME,
	exit_reason TEXT NOT NULL DEFAULT '',
	realized_pnl REAL NOT NULL DEFAULT 0,
	unrealized_pnl REAL NOT NULL DEFAULT 0,
	max_adverse REAL NOT NULL DEFAULT 0,
	max_favorable REAL NOT NULL DEFAULT 0,
	entry_order_id TEXT NOT NULL DEFAULT '',
	target_order_id TEXT NOT NULL DEFAULT '',
	stop_order_id TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS daily_portfolio (
	day TEXT PRIMARY KEY,
	starting_capital REAL NOT NULL,
	deployed_capital REAL NOT NULL,
	realized_pnl REAL NOT NULL,
	unrealized_pnl REAL NOT NULL,
	open_count INTEGER NOT NULL,
	heat REAL NOT NULL,
	win_rate REAL NOT NULL,
	profit_factor REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_state ON trades(state);
CREATE INDEX IF NOT EXISTS idx_trades_instrument ON trades(instrument);
CREATE INDEX IF NOT EXISTS idx_trades_entry_time ON trades(entry_time);
`

// SQLiteStore persists the ledger to a sqlite database.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveTrade(t Trade) error {
	var exitTime any
	if !t.ExitTime.IsZero() {
		exitTime = t.ExitTime.UTC()
	}
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO trades
		(trade_id, instrument, strategy, direction, quantity, product,
		 entry_price, stop_loss, target, risk_amount, entry_time, confidence,
		 state, exit_price, exit_time, exit_reason, realized_pnl,
		 unrealized_pnl, max_adverse, max_favorable,
		 entry_order_id, target_order_id, stop_order_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Instrument, t.Strategy, string(t.Direction), t.Quantity, string(t.Product),
		t.EntryPrice, t.StopLoss, t.Target, t.RiskAmount, t.EntryTime.UTC(), t.Confidence,
		string(t.State), t.ExitPrice, exitTime, string(t.ExitReason), t.RealizedPnL,
		t.UnrealizedPnL, t.MaxAdverse, t.MaxFavorable,
		t.EntryOrderID, t.TargetOrderID, t.StopOrderID,
	)
	return err
}

func (s *SQLiteStore) LoadTrades() ([]Trade, error) {
	rows, err := s.db.Query(`
		SELECT trade_id, instrument, strategy, direction, quantity, product,
		       entry_price, stop_loss, target, risk_amount, entry_time, confidence,
		       state, exit_price, exit_time, exit_reason, realized_pnl,
		       unrealized_pnl, max_adverse, max_favorable,
		       entry_order_id, target_order_id, stop_order_id
		FROM trades
		ORDER BY entry_time ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// TradesEnteredBetween returns trades whose entry_time is within [start, end).
// Used by the reporting CLI; the live loop reads from the in-memory ledger.
func (s *SQLiteStore) TradesEnteredBetween(start, end time.Time) ([]Trade, error) {
	rows, err := s.db.Query(`
		SELECT trade_id, instrument, strategy, direction, quantity, product,
		       entry_price, stop_loss, target, risk_amount, entry_time, confidence,
		       state, exit_price, exit_time, exit_reason, realized_pnl,
		       unrealized_pnl, max_adverse, max_favorable,
		       entry_order_id, target_order_id, stop_order_id
		FROM trades
		WHERE entry_time >= ? AND entry_time < ?
		ORDER BY entry_time ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SavePortfolio(p PortfolioSnapshot) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO daily_portfolio
		(day, starting_capital, deployed_capital, realized_pnl, unrealized_pnl,
		 open_count, heat, win_rate, profit_factor)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Period.Start.Format("2006-01-02"),
		p.StartingCapital, p.DeployedCapital, p.RealizedPnL, p.UnrealizedPnL,
		p.OpenCount, p.Heat, p.WinRate, p.ProfitFactor,
	)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanTrade(rows *sql.Rows) (Trade, error) {
	var t Trade
	var direction, product, state, exitReason string
	var exitTime sql.NullTime

	err := rows.Scan(
		&t.ID, &t.Instrument, &t.Strategy, &direction, &t.Quantity, &product,
		&t.EntryPrice, &t.StopLoss, &t.Target, &t.RiskAmount, &t.EntryTime, &t.Confidence,
		&state, &t.ExitPrice, &exitTime, &exitReason, &t.RealizedPnL,
		&t.UnrealizedPnL, &t.MaxAdverse, &t.MaxFavorable,
		&t.EntryOrderID, &t.TargetOrderID, &t.StopOrderID,
	)
	if err != nil {
		return Trade{}, err
	}

	t.Direction = signal.Direction(direction)
	t.Product = signal.ProductClass(product)
	t.State = State(state)
	t.ExitReason = ExitReason(exitReason)
	if exitTime.Valid {
		t.ExitTime = exitTime.Time
	}
	return t, nil
}
