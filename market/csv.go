package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rustyeddy/backtester/date"
)

// ReadBars parses rows of date,open,high,low,close[,volume]. A header row
// starting with "date" is skipped.
func ReadBars(r io.Reader) ([]Bar, error) {
	var bars []Bar
	err := readRows(r, 5, func(row []string) error {
		d, err := date.Parse(strings.TrimSpace(row[0]))
		if err != nil {
			return err
		}
		vals := make([]float64, 5)
		for i := 1; i < len(row) && i <= 5; i++ {
			if vals[i-1], err = parseFloat(row[i]); err != nil {
				return fmt.Errorf("bad value %q: %w", row[i], err)
			}
		}
		bars = append(bars, Bar{
			Date:   d,
			Open:   vals[0],
			High:   vals[1],
			Low:    vals[2],
			Close:  vals[3],
			Volume: vals[4],
		})
		return nil
	})
	return bars, err
}

// ReadRates parses rows of date,rate.
func ReadRates(r io.Reader) ([]Rate, error) {
	var rates []Rate
	err := readRows(r, 2, func(row []string) error {
		d, err := date.Parse(strings.TrimSpace(row[0]))
		if err != nil {
			return err
		}
		v, err := parseFloat(row[1])
		if err != nil {
			return fmt.Errorf("bad rate %q: %w", row[1], err)
		}
		rates = append(rates, Rate{Date: d, Rate: v})
		return nil
	})
	return rates, err
}

// LoadBarsFile reads a bar CSV from path.
func LoadBarsFile(path string) ([]Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bars, err := ReadBars(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bars, nil
}

// LoadRatesFile reads a rate CSV from path.
func LoadRatesFile(path string) ([]Rate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rates, err := ReadRates(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rates, nil
}

func readRows(r io.Reader, minCols int, fn func(row []string) error) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	line := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		line++
		if len(row) == 0 {
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(row[0]), "date") {
			continue
		}
		if len(row) < minCols {
			return fmt.Errorf("line %d: need at least %d columns, got %v", line, minCols, row)
		}
		if err := fn(row); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
