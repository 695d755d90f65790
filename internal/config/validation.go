package config

import (
	"fmt"
	"time"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.Ledger.validate(); err != nil {
		return err
	}
	if err := c.Market.validate(); err != nil {
		return err
	}
	if err := c.Tactics.validate(); err != nil {
		return err
	}
	if err := c.Scanner.validate(); err != nil {
		return err
	}
	if err := c.Review.validate(); err != nil {
		return err
	}
	return nil
}

func (l *LedgerConfig) validate() error {
	if l.FeeRate <= 0 || l.FeeRate >= 1 {
		return fmt.Errorf("ledger.fee_rate must be in (0, 1)")
	}
	if l.MinFee < 0 {
		return fmt.Errorf("ledger.min_fee must be >= 0")
	}
	if l.EquityDiscount <= 0 || l.WarrantDiscount <= 0 {
		return fmt.Errorf("ledger discounts must be > 0")
	}
	if l.EquityTaxRate < 0 || l.WarrantTaxRate < 0 {
		return fmt.Errorf("ledger tax rates must be >= 0")
	}
	if l.OpeningCash < 0 {
		return fmt.Errorf("ledger.opening_cash must be >= 0")
	}
	return nil
}

func (m *MarketConfig) validate() error {
	if _, err := time.Parse("2006-01-02", m.StartDate); err != nil {
		return fmt.Errorf("market.start_date must be YYYY-MM-DD: %w", err)
	}
	return nil
}

func (t *TacticsConfig) validate() error {
	if t.SearchDepth <= 0 {
		return fmt.Errorf("tactics.search_depth must be > 0")
	}
	if t.MinROIPct < 0 {
		return fmt.Errorf("tactics.min_roi_pct must be >= 0")
	}
	if t.PaceSeconds < 0 {
		return fmt.Errorf("tactics.pace_seconds must be >= 0")
	}
	if t.SwitchCostPct < 0 {
		return fmt.Errorf("tactics.switch_cost_pct must be >= 0")
	}
	return nil
}

func (s *ScannerConfig) validate() error {
	if len(s.Watchlist) == 0 {
		return fmt.Errorf("scanner.watchlist requires at least one symbol")
	}
	if s.MaxParallel <= 0 {
		return fmt.Errorf("scanner.max_parallel must be > 0")
	}
	return nil
}

func (r *ReviewConfig) validate() error {
	if r.MoveThresholdPct <= 0 {
		return fmt.Errorf("review.move_threshold_pct must be > 0")
	}
	if r.TopMovers <= 0 {
		return fmt.Errorf("review.top_movers must be > 0")
	}
	return nil
}
