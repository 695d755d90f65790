package market

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"tactician/internal/logger"

	"github.com/piquette/finance-go"
	"github.com/piquette/finance-go/quote"
)

const (
	macroErrorBackoff   = 2 * time.Minute
	macroRefreshEvery   = 30 * time.Minute
	macroOfflineMessage = "無法連線國際市場"
)

// MacroSignal 宏观综合信号，Score ∈ [-3, +3] 附近。
type MacroSignal struct {
	Score      float64
	Message    string
	LastUpdate time.Time
}

type quoteFetcher func(symbol string) (*finance.Quote, error)

// MacroService 扫描国际市场（费半、标普、VIX、美元指数、台积电 ADR），
// 汇总成单一风险分数。结果带时效缓存，失败时回退 0 分。
type MacroService struct {
	fetch quoteFetcher

	mu         sync.RWMutex
	signal     MacroSignal
	nextUpdate time.Time
	refreshMu  sync.Mutex
}

func NewMacroService() *MacroService {
	return &MacroService{fetch: quote.Get}
}

// Get 返回当前信号；从未成功抓取时 ok 为 false。
func (s *MacroService) Get() (MacroSignal, bool) {
	if s == nil {
		return MacroSignal{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.signal, !s.signal.LastUpdate.IsZero()
}

// Analyze 返回宏观信号，过期时重新抓取。
// 抓取失败返回 (0, 無法連線國際市場)，调用方按中性偏保守处理。
func (s *MacroService) Analyze(ctx context.Context) MacroSignal {
	s.RefreshIfStale(ctx)
	sig, ok := s.Get()
	if !ok {
		return MacroSignal{Score: 0, Message: macroOfflineMessage}
	}
	return sig
}

func (s *MacroService) RefreshIfStale(ctx context.Context) {
	if s == nil {
		return
	}
	now := time.Now()
	s.mu.RLock()
	next := s.nextUpdate
	last := s.signal.LastUpdate
	s.mu.RUnlock()
	if !last.IsZero() && !next.IsZero() && now.Before(next) {
		return
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	s.mu.RLock()
	next = s.nextUpdate
	s.mu.RUnlock()
	if !next.IsZero() && time.Now().Before(next) {
		return
	}

	sig, err := s.scan(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		logger.Warnf("[宏观] 数据获取失败: %v", err)
		s.nextUpdate = time.Now().Add(macroErrorBackoff)
		return
	}
	s.signal = sig
	s.nextUpdate = time.Now().Add(macroRefreshEvery)
}

type tickerMove struct {
	last    float64
	prev    float64
	present bool
}

func (m tickerMove) changePct() float64 {
	if !m.present || m.prev == 0 {
		return 0
	}
	return (m.last - m.prev) / m.prev
}

func (s *MacroService) scan(ctx context.Context) (MacroSignal, error) {
	symbols := []string{"^SOX", "^GSPC", "^VIX", "DX-Y.NYB", "TSM"}
	moves := make(map[string]tickerMove, len(symbols))
	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return MacroSignal{}, err
		}
		q, err := s.fetch(sym)
		if err != nil || q == nil {
			continue
		}
		moves[sym] = tickerMove{
			last:    q.RegularMarketPrice,
			prev:    q.RegularMarketPreviousClose,
			present: true,
		}
	}
	if len(moves) == 0 {
		return MacroSignal{}, fmt.Errorf("所有指数均抓取失败")
	}

	var status []string
	score := 0.0

	// 费半：台股电子权值的风向标
	if chg := moves["^SOX"].changePct(); moves["^SOX"].present {
		if chg < -0.015 {
			status = append(status, fmt.Sprintf("費半重挫 %.2f%%", chg*100))
			score -= 1.5
		} else if chg > 0.015 {
			status = append(status, fmt.Sprintf("費半大漲 %.2f%%", chg*100))
			score += 1.5
		}
	}

	// VIX 高于 20 视为避险情绪升温
	if vix, ok := moves["^VIX"]; ok && vix.present && vix.last > 20 {
		status = append(status, fmt.Sprintf("VIX 高檔 (%.1f)", vix.last))
		score -= 1
	}

	// 美元指数急升暗示资金外流
	if dxy, ok := moves["DX-Y.NYB"]; ok && dxy.present && dxy.last-dxy.prev > 0.3 {
		status = append(status, "美元強升(資金外流)")
		score -= 0.5
	}

	// 台积电 ADR
	if adr, ok := moves["TSM"]; ok && adr.present {
		chg := adr.changePct()
		status = append(status, fmt.Sprintf("ADR %.2f%%", chg*100))
		if chg < -0.02 {
			score -= 1
		} else if chg > 0.02 {
			score += 1
		}
	}

	msg := strings.Join(status, " | ")
	if msg == "" {
		msg = "國際市場平穩"
	}
	return MacroSignal{Score: score, Message: msg, LastUpdate: time.Now()}, nil
}
