package ledger

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"tactician/internal/logger"
)

// Ledger 是现金、持仓与成交历史的唯一持有者。
// 每次调用都是 完整读取 -> 内存修改 -> 完整落盘；互斥锁保证
// 同进程并发调用不会出现 last-writer-wins 丢更新。
type Ledger struct {
	mu    sync.Mutex
	store *FileStore
	fees  FeeSchedule
	now   func() time.Time
}

func New(store *FileStore, fees FeeSchedule) *Ledger {
	return &Ledger{store: store, fees: fees, now: time.Now}
}

// TransactionRequest 描述一笔待入帐的买卖。
type TransactionRequest struct {
	Action      Action
	Symbol      string
	Type        InstrumentType
	Price       float64
	Qty         int64
	Note        string
	StopLoss    float64
	TargetPrice float64
}

// Snapshot 返回当前帐本状态。
func (l *Ledger) Snapshot() (*Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Load()
}

// UpdateCash 直接覆写现金数字，不产生成交纪录。
// 负数在这里就挡下，不让坏值落盘后才被 schema 校验炸出来。
func (l *Ledger) UpdateCash(amount float64) error {
	if amount < 0 {
		return fmt.Errorf("现金不可为负: %.2f", amount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	snap, err := l.store.Load()
	if err != nil {
		return err
	}
	snap.Cash = amount
	return l.store.Save(snap)
}

// RecordTransaction 入帐一笔买卖。失败一律以 (false, 原因) 返回，
// 且不落盘任何变更；成功才整体重写快照。
func (l *Ledger) RecordTransaction(req TransactionRequest) (bool, string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap, err := l.store.Load()
	if err != nil {
		return false, fmt.Sprintf("❌ 帳本讀取失敗: %v", err)
	}

	symbol := strings.TrimSpace(req.Symbol)
	if symbol == "" {
		return false, "❌ 股票代號不可為空"
	}
	price := req.Price
	if price < 0 {
		price = 0
	}
	if req.Qty <= 0 {
		return false, "❌ 數量必須為正整數"
	}
	pType := req.Type
	if pType != Warrant {
		pType = Equity
	}

	// 卖出时的智慧类型修正：先找 (代号, 类型) 精确匹配，
	// 找不到就退一步按代号匹配，有就沿用库存里的类型。
	// 同一代号同时存在多种类型时维持“第一笔命中”的旧行为。
	if req.Action == ActionSell {
		if snap.FindPosition(symbol, pType) == nil {
			if fuzzy := snap.FindPositionBySymbol(symbol); fuzzy != nil {
				logger.Warnf("[Ledger] 偵測到類型錯誤，自動修正: %s -> %s", pType, fuzzy.Type)
				pType = fuzzy.Type
			}
		}
	}

	notional := Notional(price, req.Qty)
	fee := l.fees.Fee(price, req.Qty, pType)
	tax := l.fees.Tax(price, req.Qty, pType, req.Action)

	var netCash float64
	switch req.Action {
	case ActionBuy:
		totalCost := notional + float64(fee)
		if snap.Cash < totalCost {
			return false, fmt.Sprintf("❌ 現金不足！需 $%.0f", totalCost)
		}
		snap.Cash -= totalCost
		netCash = -totalCost

		if existing := snap.FindPosition(symbol, pType); existing != nil {
			oldTotal := existing.AvgCost * float64(existing.Qty)
			newQty := existing.Qty + req.Qty
			existing.AvgCost = (oldTotal + totalCost) / float64(newQty)
			existing.Qty = newQty
			if req.StopLoss > 0 {
				existing.StopLoss = req.StopLoss
			}
			if req.TargetPrice > 0 {
				existing.TargetPrice = req.TargetPrice
			}
		} else {
			snap.Positions = append(snap.Positions, Position{
				Symbol:      symbol,
				Type:        pType,
				AvgCost:     totalCost / float64(req.Qty),
				Qty:         req.Qty,
				StopLoss:    req.StopLoss,
				TargetPrice: req.TargetPrice,
				Note:        req.Note,
			})
		}

	case ActionSell:
		existing := snap.FindPosition(symbol, pType)
		if existing == nil {
			return false, fmt.Sprintf("❌ 無此持倉！(目標: %s-%s, 現有: %v)",
				symbol, pType, snap.HoldingLabels())
		}
		if existing.Qty < req.Qty {
			return false, fmt.Sprintf("❌ 庫存不足！(持有: %d, 欲賣: %d)", existing.Qty, req.Qty)
		}
		netIncome := notional - float64(fee) - float64(tax)
		snap.Cash += netIncome
		netCash = netIncome
		existing.Qty -= req.Qty
		if existing.Qty == 0 {
			snap.removePosition(existing)
		}

	default:
		return false, fmt.Sprintf("❌ 不支援的動作: %s", req.Action)
	}

	record := Transaction{
		Date:    l.now().Format("2006-01-02 15:04"),
		Action:  req.Action,
		Symbol:  symbol,
		Type:    pType,
		Price:   price,
		Qty:     req.Qty,
		Fee:     fee,
		Tax:     tax,
		NetCash: netCash,
		Note:    req.Note,
	}
	snap.History = append([]Transaction{record}, snap.History...)

	if err := l.store.Save(snap); err != nil {
		return false, fmt.Sprintf("❌ 帳本寫入失敗: %v", err)
	}
	return true, fmt.Sprintf("交易成功！現金變動: $%.0f", netCash)
}
