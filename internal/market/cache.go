package market

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// CandleCache 本地日线缓存（SQLite）。
// 表结构与历史数据文件保持兼容：daily_metrics(date, stock_id, ...)。
type CandleCache struct {
	db *sql.DB
}

const candleSchema = `
CREATE TABLE IF NOT EXISTS daily_metrics (
    date TEXT,
    stock_id TEXT,
    close REAL,
    volume INTEGER,
    foreign_buysell REAL,
    trust_buysell REAL,
    PRIMARY KEY (date, stock_id)
)`

// OpenCandleCache 打开（必要时建立）缓存数据库。
func OpenCandleCache(path string) (*CandleCache, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir failed: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open candle cache failed: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(candleSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init candle cache failed: %w", err)
	}
	return &CandleCache{db: db}, nil
}

func (c *CandleCache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Load 读取 startDate（含）之后的日线，按日期升序。
func (c *CandleCache) Load(ctx context.Context, symbol string, startDate time.Time) (*Series, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT date, close, volume, foreign_buysell, trust_buysell
		   FROM daily_metrics
		  WHERE stock_id = ? AND date >= ?
		  ORDER BY date ASC`,
		symbol, startDate.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("query candle cache failed: %w", err)
	}
	defer rows.Close()

	s := &Series{Symbol: symbol}
	for rows.Next() {
		var dateStr string
		var cd Candle
		if err := rows.Scan(&dateStr, &cd.Close, &cd.Volume, &cd.ForeignBuySell, &cd.TrustBuySell); err != nil {
			return nil, err
		}
		d, perr := time.Parse("2006-01-02", dateStr)
		if perr != nil {
			continue
		}
		cd.Date = d
		s.Candles = append(s.Candles, cd)
	}
	return s, rows.Err()
}

// Save 写入日线，重复日期直接覆盖。
func (c *CandleCache) Save(ctx context.Context, s *Series) error {
	if s == nil || len(s.Candles) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO daily_metrics
		 (date, stock_id, close, volume, foreign_buysell, trust_buysell)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, cd := range s.Candles {
		if _, err := stmt.ExecContext(ctx,
			cd.Date.Format("2006-01-02"), s.Symbol,
			cd.Close, cd.Volume, cd.ForeignBuySell, cd.TrustBuySell); err != nil {
			tx.Rollback()
			return fmt.Errorf("save candle failed: %w", err)
		}
	}
	return tx.Commit()
}
