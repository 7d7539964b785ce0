package providers

import (
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/peritus/internal/models"
)

// Candle is one daily bar of a provider's historical series, already
// parsed out of the provider's wire format.
type Candle struct {
	Date  time.Time
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// BuildChangeRecord computes the price change over the trailing window
// of `days` calendar days from a daily series. The series may arrive in
// either order; it is sorted ascending first. Records the dates and
// point count actually used, since weekends and holidays mean the
// window rarely starts exactly `days` ago.
func BuildChangeRecord(provider string, days int, candles []Candle) (*models.PriceChangeRecord, error) {
	if len(candles) == 0 {
		return nil, NewError(provider, KindNotFound, "empty historical series")
	}

	sorted := make([]Candle, len(candles))
	copy(sorted, candles)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	end := sorted[len(sorted)-1]
	cutoff := end.Date.AddDate(0, 0, -days)

	window := sorted
	for i, c := range sorted {
		if !c.Date.Before(cutoff) {
			window = sorted[i:]
			break
		}
	}
	if len(window) == 0 {
		window = sorted[len(sorted)-1:]
	}

	start := window[0]
	high := start.High
	low := start.Low
	for _, c := range window {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}

	change := end.Close - start.Open
	changePct := 0.0
	if start.Open != 0 {
		changePct = change / start.Open * 100
	}

	return &models.PriceChangeRecord{
		Period:        fmt.Sprintf("%dd", days),
		Open:          start.Open,
		Close:         end.Close,
		High:          high,
		Low:           low,
		Change:        change,
		ChangePercent: changePct,
		Meta: models.PriceChangeMeta{
			StartDateUsed: start.Date.Format("2006-01-02"),
			EndDateUsed:   end.Date.Format("2006-01-02"),
			DataPoints:    len(window),
			DataSource:    provider,
		},
	}, nil
}
