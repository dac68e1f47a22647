package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/backtester/market"
)

// EWMStd is the exponentially weighted standard deviation of close to
// close log returns, with alpha = 2/(span+1).
type EWMStd struct {
	span  int
	alpha float64

	prevClose float64
	hasPrev   bool
	count     int
	mean      float64
	variance  float64
}

func NewEWMStd(span int) *EWMStd {
	return &EWMStd{span: span, alpha: 2.0 / float64(span+1)}
}

func (s *EWMStd) Name() string {
	return fmt.Sprintf("EWMStd(%d)", s.span)
}

// Warmup counts bars; span returns need span+1 closes.
func (s *EWMStd) Warmup() int {
	return s.span + 1
}

func (s *EWMStd) Reset() {
	s.prevClose = 0
	s.hasPrev = false
	s.count = 0
	s.mean = 0
	s.variance = 0
}

func (s *EWMStd) Update(b market.Bar) {
	if !s.hasPrev || s.prevClose <= 0 || b.Close <= 0 {
		s.prevClose = b.Close
		s.hasPrev = true
		return
	}
	r := math.Log(b.Close / s.prevClose)
	s.prevClose = b.Close
	s.count++

	if s.count == 1 {
		s.mean = r
		return
	}
	diff := r - s.mean
	incr := s.alpha * diff
	s.mean += incr
	s.variance = (1 - s.alpha) * (s.variance + diff*incr)
}

func (s *EWMStd) Ready() bool {
	return s.count >= s.span
}

func (s *EWMStd) Value() float64 {
	if !s.Ready() {
		return 0
	}
	return math.Sqrt(s.variance)
}
