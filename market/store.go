package market

import (
	"fmt"
	"slices"
	"sync"

	"github.com/rustyeddy/backtester/date"
)

// Store is an in-memory Data implementation keyed by ticker and date.
type Store struct {
	mu      sync.RWMutex
	horizon *date.Horizon
	current date.Date
	bars    map[string]map[date.Date]Bar
	rates   map[Frequency][]Rate
}

var _ Data = (*Store)(nil)

// NewStore returns an empty store whose current date is the horizon start.
func NewStore(h *date.Horizon) *Store {
	return &Store{
		horizon: h,
		current: h.Start(),
		bars:    make(map[string]map[date.Date]Bar),
		rates:   make(map[Frequency][]Rate),
	}
}

// AddBars adds or replaces bars for ticker.
func (s *Store) AddBars(ticker string, bars ...Bar) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.bars[ticker]
	if !ok {
		m = make(map[date.Date]Bar, len(bars))
		s.bars[ticker] = m
	}
	for _, b := range bars {
		m[b.Date] = b
	}
}

// SetRiskFreeRates replaces the series quoted at freq.
func (s *Store) SetRiskFreeRates(freq Frequency, rates []Rate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sorted := slices.Clone(rates)
	slices.SortFunc(sorted, func(a, b Rate) int { return a.Date.Compare(b.Date) })
	s.rates[freq] = sorted
}

// SetCurrentDate moves the simulation clock. d must be in the horizon.
func (s *Store) SetCurrentDate(d date.Date) error {
	if !s.horizon.Contains(d) {
		return fmt.Errorf("set current date: %s is outside %s..%s", d, s.horizon.Start(), s.horizon.End())
	}
	s.mu.Lock()
	s.current = d
	s.mu.Unlock()
	return nil
}

func (s *Store) CurrentDate() date.Date {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Store) Horizon() *date.Horizon { return s.horizon }
func (s *Store) Start() date.Date { return s.horizon.Start() }

func (s *Store) PriceFor(ticker string, d date.Date) (Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bars[ticker][d]
	if !ok {
		return Bar{}, fmt.Errorf("price for %s on %s: %w", ticker, d, ErrMarketDataUnavailable)
	}
	return b, nil
}

func (s *Store) SeriesFor(ticker string) ([]Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.bars[ticker]
	if !ok {
		return nil, fmt.Errorf("series for %s: %w", ticker, ErrUnknownTicker)
	}
	out := make([]Bar, 0, len(m))
	for _, b := range m {
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b Bar) int { return a.Date.Compare(b.Date) })
	return out, nil
}

func (s *Store) RiskFreeRates(freq Frequency) []Rate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.rates[freq])
}
