package portfolio

import (
	"fmt"

	"github.com/rustyeddy/backtester/date"
	"github.com/rustyeddy/backtester/ledger"
	"github.com/shopspring/decimal"
)

// Receive credits balance with amount and records it as a receipt of kind.
func (p *Portfolio) Receive(d date.Date, amount decimal.Decimal, kind ledger.ReceiptKind) error {
	op := "receive " + kind.String()
	if err := validAmount(op, amount); err != nil {
		return err
	}
	if err := p.ledger.AddReceipt(d, kind, amount); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	// receipt: balance + margin grows by amount.
	p.balance = p.balance.Add(amount)

	p.log.Debug().Str("date", d.String()).Str("kind", kind.String()).
		Str("amount", amount.String()).Str("balance", p.balance.String()).Msg("receive")
	return nil
}

func (p *Portfolio) ReceiveProceeds(d date.Date, amount decimal.Decimal) error {
	return p.Receive(d, amount, ledger.Proceeds)
}

func (p *Portfolio) ReceiveInterest(d date.Date, amount decimal.Decimal) error {
	return p.Receive(d, amount, ledger.Interest)
}

func (p *Portfolio) ReceiveDividends(d date.Date, amount decimal.Decimal) error {
	return p.Receive(d, amount, ledger.Dividends)
}

// Charge debits balance and records the amount as charged. It refuses to
// take balance below zero; on failure nothing changes.
func (p *Portfolio) Charge(d date.Date, amount decimal.Decimal) error {
	if err := validAmount("charge", amount); err != nil {
		return err
	}
	if amount.GreaterThan(p.balance) {
		p.log.Info().Str("date", d.String()).Str("amount", amount.String()).
			Str("balance", p.balance.String()).Msg("charge refused")
		return fmt.Errorf("charge %s: balance is %s: %w", amount, p.balance, ErrInsufficientFunds)
	}
	return p.debitBalance("charge", d, ledger.Charged, amount)
}

// ChargeCommission always succeeds for a valid amount. Balance may go
// negative so that a position can still be exited when cash is short.
func (p *Portfolio) ChargeCommission(d date.Date, amount decimal.Decimal) error {
	return p.debitBalance("charge commission", d, ledger.Commission, amount)
}

// ChargeMarginInterest always succeeds for a valid amount; a negative
// balance is left for the next rebalance to correct.
func (p *Portfolio) ChargeMarginInterest(d date.Date, amount decimal.Decimal) error {
	return p.debitBalance("charge margin interest", d, ledger.MarginInterest, amount)
}

// ChargeAccountInterest always succeeds for a valid amount.
func (p *Portfolio) ChargeAccountInterest(d date.Date, amount decimal.Decimal) error {
	return p.debitBalance("charge account interest", d, ledger.AccountInterest, amount)
}

// ChargeMarginAccount realizes a loss on a short position out of the
// margin account. Balance is untouched.
func (p *Portfolio) ChargeMarginAccount(d date.Date, amount decimal.Decimal) error {
	return p.debitMargin("charge margin account", d, ledger.ShortLosses, amount)
}

// ChargeForDividends pays the dividend owed on a short position out of the
// margin account.
func (p *Portfolio) ChargeForDividends(d date.Date, amount decimal.Decimal) error {
	return p.debitMargin("charge for dividends", d, ledger.ShortDividends, amount)
}

func (p *Portfolio) debitBalance(op string, d date.Date, kind ledger.CostKind, amount decimal.Decimal) error {
	if err := validAmount(op, amount); err != nil {
		return err
	}
	if err := p.ledger.AddCost(d, kind, amount); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	// cost: balance + margin shrinks by amount.
	p.balance = p.balance.Sub(amount)

	p.log.Debug().Str("date", d.String()).Str("kind", kind.String()).
		Str("amount", amount.String()).Str("balance", p.balance.String()).Msg("debit balance")
	return nil
}

func (p *Portfolio) debitMargin(op string, d date.Date, kind ledger.CostKind, amount decimal.Decimal) error {
	if err := validAmount(op, amount); err != nil {
		return err
	}
	if err := p.ledger.AddCost(d, kind, amount); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	// realized loss: balance + margin shrinks by amount, balance unchanged.
	p.marginAccount = p.marginAccount.Sub(amount)

	p.log.Debug().Str("date", d.String()).Str("kind", kind.String()).
		Str("amount", amount.String()).Str("margin_account", p.marginAccount.String()).Msg("debit margin account")
	return nil
}
