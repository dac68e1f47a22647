package portfolio

import (
	"errors"
	"fmt"

	"github.com/rustyeddy/backtester/date"
	"github.com/shopspring/decimal"
)

type MarginState int

const (
	Balanced MarginState = iota
	BalanceNegative
)

func (s MarginState) String() string {
	if s == BalanceNegative {
		return "balance-negative"
	}
	return "balanced"
}

// MarginState reports whether the cash balance is currently negative.
// BalanceNegative is left only through later receipts or transfers.
func (p *Portfolio) MarginState() MarginState {
	if p.balance.IsNegative() {
		return BalanceNegative
	}
	return Balanced
}

// UpdateMarginAccount resizes the margin account to target when a short
// position is opened. Growing the account is a Charge against balance and
// fails with ErrInsufficientFunds, leaving both accounts unchanged, when
// balance cannot cover it. Shrinking it always succeeds.
func (p *Portfolio) UpdateMarginAccount(d date.Date, target decimal.Decimal) error {
	if err := validAmount("update margin account", target); err != nil {
		return err
	}

	diff := target.Sub(p.marginAccount)
	switch {
	case diff.IsPositive():
		if err := p.Charge(d, diff); err != nil {
			if errors.Is(err, ErrInsufficientFunds) {
				return fmt.Errorf("update margin account to %s: cannot move %s out of balance %s: %w",
					target, diff, p.balance, ErrInsufficientFunds)
			}
			return fmt.Errorf("update margin account: %w", err)
		}
		// transfer: Charge took diff out of balance, it lands here. Sum conserved.
		p.marginAccount = p.marginAccount.Add(diff)

	case diff.IsNegative():
		// transfer: sum conserved.
		p.marginAccount = p.marginAccount.Add(diff)
		p.balance = p.balance.Sub(diff)
	}
	return nil
}

// HandleMarginAccountUpdate moves money between balance and the margin
// account until the margin account equals target. There is no margin call:
// the transfer happens even when it drives balance negative. It never fails;
// a negative target is clamped to zero and logged.
func (p *Portfolio) HandleMarginAccountUpdate(d date.Date, target decimal.Decimal) error {
	if target.IsNegative() {
		p.log.Warn().Str("date", d.String()).Str("target", target.String()).
			Msg("negative margin target clamped to zero")
		target = decimal.Zero
	}

	diff := target.Sub(p.marginAccount)
	// transfer: sum conserved.
	p.marginAccount = target
	p.balance = p.balance.Sub(diff)

	if p.balance.IsNegative() {
		p.log.Warn().Str("date", d.String()).Str("balance", p.balance.String()).
			Str("margin_account", p.marginAccount.String()).Msg("balance negative after margin update")
	}
	return nil
}
