package ledger

import "github.com/shopspring/decimal"

// FeeSchedule 定义券商手续费与证交税参数。
// 费用计算遵循券商惯例：先对基础手续费取整，再套用电子下单折扣后取整。
type FeeSchedule struct {
	FeeRate         float64
	MinFee          int64
	EquityDiscount  float64
	WarrantDiscount float64
	EquityTaxRate   float64
	WarrantTaxRate  float64
}

// DefaultFeeSchedule 为台股预设：0.1425% 手续费、最低 20 元、
// 现股六折、权证不打折；卖出时现股 0.3%、权证 0.1% 交易税。
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		FeeRate:         0.001425,
		MinFee:          20,
		EquityDiscount:  0.6,
		WarrantDiscount: 1.0,
		EquityTaxRate:   0.003,
		WarrantTaxRate:  0.001,
	}
}

func (f FeeSchedule) discount(typ InstrumentType) float64 {
	if typ == Warrant {
		return f.WarrantDiscount
	}
	return f.EquityDiscount
}

func (f FeeSchedule) taxRate(typ InstrumentType) float64 {
	if typ == Warrant {
		return f.WarrantTaxRate
	}
	return f.EquityTaxRate
}

// Fee 计算单笔成交的手续费。
func (f FeeSchedule) Fee(price float64, qty int64, typ InstrumentType) int64 {
	notional := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(qty))
	base := notional.Mul(decimal.NewFromFloat(f.FeeRate)).Floor()
	discounted := base.Mul(decimal.NewFromFloat(f.discount(typ))).Floor().IntPart()
	if discounted < f.MinFee {
		return f.MinFee
	}
	return discounted
}

// Tax 计算证交税：仅卖出课税，买进为零。
func (f FeeSchedule) Tax(price float64, qty int64, typ InstrumentType, action Action) int64 {
	if action != ActionSell {
		return 0
	}
	notional := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(qty))
	return notional.Mul(decimal.NewFromFloat(f.taxRate(typ))).Floor().IntPart()
}

// Notional 以 decimal 计算成交金额，避免二进制浮点误差。
func Notional(price float64, qty int64) float64 {
	v, _ := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(qty)).Float64()
	return v
}
