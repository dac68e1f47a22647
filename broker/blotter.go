package broker

import (
	"fmt"
	"sync"

	"github.com/rustyeddy/backtester/internal/id"
)

// Blotter is an in-memory registry of open trades, kept in opening order.
type Blotter struct {
	mu     sync.Mutex
	order  []string
	trades map[string]Trade
}

var _ Broker = (*Blotter)(nil)

func NewBlotter() *Blotter {
	return &Blotter{trades: make(map[string]Trade)}
}

// Open registers t and returns its ID. An empty ID is assigned a ULID.
func (b *Blotter) Open(t Trade) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if t.ID == "" {
		t.ID = id.New()
	}
	if _, ok := b.trades[t.ID]; ok {
		return "", fmt.Errorf("open trade: trade %q already open", t.ID)
	}
	b.trades[t.ID] = t
	b.order = append(b.order, t.ID)
	return t.ID, nil
}

// Close removes a trade from the blotter and returns it.
func (b *Blotter) Close(tradeID string) (Trade, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.trades[tradeID]
	if !ok {
		return Trade{}, fmt.Errorf("close trade: trade %q not found", tradeID)
	}
	delete(b.trades, tradeID)
	for i, tid := range b.order {
		if tid == tradeID {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return t, nil
}

func (b *Blotter) ActiveTrades() []Trade {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Trade, 0, len(b.order))
	for _, tid := range b.order {
		out = append(out, b.trades[tid])
	}
	return out
}
