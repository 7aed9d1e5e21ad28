// Package portfolio implements the simulated cash-plus-single-asset
// position the backtest engine mutates on every trade signal.
//
// Grounded on original_source/backend/src/backtesting/types.rs's Portfolio
// impl (buy/sell/inject/buy_with_injection/update_total_value). The
// in-memory, no-external-calls, mutex-free-within-a-single-run shape
// follows the texture of the teacher's broker_paper.go (a simple struct
// mutated directly by a single caller, no persistence).
package portfolio

import (
	"github.com/shopspring/decimal"
)

// lot is one FIFO-queued buy, consumed oldest-first by Sell. This is the
// cost-basis ledger the spec's realized/unrealized PnL supplement (§3,
// §4.4) is built on; it does not change Buy/Sell's existing signatures.
type lot struct {
	price    decimal.Decimal
	quantity decimal.Decimal
}

// Portfolio is the engine's simulated position. Construct with New; a
// single run owns one Portfolio exclusively and never shares it across
// goroutines.
type Portfolio struct {
	CashBalance    decimal.Decimal
	AssetQuantity  decimal.Decimal
	TotalValue     decimal.Decimal
	InitialValue   decimal.Decimal
	TotalInvested  decimal.Decimal

	lots        []lot
	realizedPnL decimal.Decimal
}

// New constructs a Portfolio starting entirely in cash.
func New(initialBalance decimal.Decimal) *Portfolio {
	return &Portfolio{
		CashBalance:   initialBalance,
		AssetQuantity: decimal.Zero,
		TotalValue:    initialBalance,
		InitialValue:  initialBalance,
		TotalInvested: decimal.Zero,
	}
}

// Buy deducts price*qty from cash and credits qty to the asset position.
// It refuses to overdraw cash, returning false without mutation if cash is
// insufficient.
func (p *Portfolio) Buy(price, qty decimal.Decimal) bool {
	cost := price.Mul(qty)
	if p.CashBalance.LessThan(cost) {
		return false
	}
	p.CashBalance = p.CashBalance.Sub(cost)
	p.AssetQuantity = p.AssetQuantity.Add(qty)
	p.TotalInvested = p.TotalInvested.Add(cost)
	p.lots = append(p.lots, lot{price: price, quantity: qty})
	return true
}

// Sell credits price*qty to cash and debits qty from the asset position.
// It refuses to sell more than is held, returning false without mutation
// in that case. Realized PnL is accumulated via FIFO matching against the
// open buy lots.
func (p *Portfolio) Sell(price, qty decimal.Decimal) bool {
	if p.AssetQuantity.LessThan(qty) {
		return false
	}
	proceeds := price.Mul(qty)
	p.CashBalance = p.CashBalance.Add(proceeds)
	p.AssetQuantity = p.AssetQuantity.Sub(qty)

	remaining := qty
	for remaining.IsPositive() && len(p.lots) > 0 {
		head := &p.lots[0]
		if head.quantity.LessThanOrEqual(remaining) {
			costBasis := head.price.Mul(head.quantity)
			p.realizedPnL = p.realizedPnL.Add(price.Mul(head.quantity).Sub(costBasis))
			remaining = remaining.Sub(head.quantity)
			p.lots = p.lots[1:]
		} else {
			costBasis := head.price.Mul(remaining)
			p.realizedPnL = p.realizedPnL.Add(price.Mul(remaining).Sub(costBasis))
			head.quantity = head.quantity.Sub(remaining)
			remaining = decimal.Zero
		}
	}
	return true
}

// Inject unconditionally adds amount to cash, e.g. to fund a purchase in
// "unlimited capital" backtest mode.
func (p *Portfolio) Inject(amount decimal.Decimal) {
	p.CashBalance = p.CashBalance.Add(amount)
}

// BuyWithInjection injects exactly the cash deficit (if any) before buying,
// so it always succeeds.
func (p *Portfolio) BuyWithInjection(price, qty decimal.Decimal) bool {
	cost := price.Mul(qty)
	if p.CashBalance.LessThan(cost) {
		p.Inject(cost.Sub(p.CashBalance))
	}
	return p.Buy(price, qty)
}

// UpdateTotalValue recomputes TotalValue at the given mark price.
func (p *Portfolio) UpdateTotalValue(currentPrice decimal.Decimal) {
	p.TotalValue = p.CashBalance.Add(p.AssetQuantity.Mul(currentPrice))
}

// RealizedPnL returns the FIFO-matched realized profit/loss accumulated so
// far across all Sell calls.
func (p *Portfolio) RealizedPnL() decimal.Decimal { return p.realizedPnL }

// UnrealizedPnL returns the mark-to-market PnL of the remaining open lots
// at currentPrice.
func (p *Portfolio) UnrealizedPnL(currentPrice decimal.Decimal) decimal.Decimal {
	costBasis := decimal.Zero
	qty := decimal.Zero
	for _, l := range p.lots {
		costBasis = costBasis.Add(l.price.Mul(l.quantity))
		qty = qty.Add(l.quantity)
	}
	return qty.Mul(currentPrice).Sub(costBasis)
}
