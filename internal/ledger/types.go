package ledger

import "strings"

// InstrumentType 区分现股与权证：两者的手续费折扣与交易税率不同。
type InstrumentType string

const (
	Equity  InstrumentType = "Equity"
	Warrant InstrumentType = "Warrant"
)

// NormalizeInstrumentType 兼容旧帐本中的 "Stock" 写法。
func NormalizeInstrumentType(raw string) InstrumentType {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "warrant":
		return Warrant
	default:
		return Equity
	}
}

type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// Position 是帐本中一笔未平仓持仓，(Symbol, Type) 唯一。
type Position struct {
	Symbol      string         `json:"stock_id"`
	Type        InstrumentType `json:"type"`
	AvgCost     float64        `json:"avg_cost"`
	Qty         int64          `json:"qty"`
	StopLoss    float64        `json:"stop_loss"`
	TargetPrice float64        `json:"target_price"`
	Note        string         `json:"note"`
}

// Transaction 是一条只追加的成交纪录，history 按最新在前排列。
type Transaction struct {
	Date    string         `json:"date"`
	Action  Action         `json:"action"`
	Symbol  string         `json:"stock_id"`
	Type    InstrumentType `json:"type"`
	Price   float64        `json:"price"`
	Qty     int64          `json:"qty"`
	Fee     int64          `json:"fee"`
	Tax     int64          `json:"tax"`
	NetCash float64        `json:"net_cash"`
	Note    string         `json:"note"`
}

// Snapshot 是帐本的完整持久化状态，每次变更整体重写。
type Snapshot struct {
	Cash      float64
	Positions []Position
	History   []Transaction
}

// FindPosition 在持仓中寻找 (symbol, type) 精确匹配。
func (s *Snapshot) FindPosition(symbol string, typ InstrumentType) *Position {
	for i := range s.Positions {
		if s.Positions[i].Symbol == symbol && s.Positions[i].Type == typ {
			return &s.Positions[i]
		}
	}
	return nil
}

// FindPositionBySymbol 忽略类型、只按代号匹配，取第一笔。
func (s *Snapshot) FindPositionBySymbol(symbol string) *Position {
	for i := range s.Positions {
		if s.Positions[i].Symbol == symbol {
			return &s.Positions[i]
		}
	}
	return nil
}

func (s *Snapshot) removePosition(p *Position) {
	for i := range s.Positions {
		if &s.Positions[i] == p {
			s.Positions = append(s.Positions[:i], s.Positions[i+1:]...)
			return
		}
	}
}

// HoldingLabels 供卖出失败时罗列现有持仓。
func (s *Snapshot) HoldingLabels() []string {
	out := make([]string, 0, len(s.Positions))
	for _, p := range s.Positions {
		out = append(out, p.Symbol+"("+string(p.Type)+")")
	}
	return out
}
