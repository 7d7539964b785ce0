package providers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestBuildChangeRecordWindow(t *testing.T) {
	candles := []Candle{
		{Date: day("2026-08-28"), Open: 104, High: 106, Low: 103, Close: 105},
		{Date: day("2026-08-01"), Open: 90, High: 91, Low: 89, Close: 90.5},
		{Date: day("2026-08-25"), Open: 100, High: 102, Low: 98, Close: 101},
	}

	record, err := BuildChangeRecord("test", 7, candles)
	require.NoError(t, err)

	// The August 1 bar falls outside the 7 day window.
	assert.Equal(t, 100.0, record.Open)
	assert.Equal(t, 105.0, record.Close)
	assert.Equal(t, 106.0, record.High)
	assert.Equal(t, 98.0, record.Low)
	assert.Equal(t, 2, record.Meta.DataPoints)
	assert.Equal(t, "2026-08-25", record.Meta.StartDateUsed)
}

func TestBuildChangeRecordSeriesShorterThanWindow(t *testing.T) {
	candles := []Candle{
		{Date: day("2026-08-27"), Open: 50, High: 52, Low: 49, Close: 51},
		{Date: day("2026-08-28"), Open: 51, High: 53, Low: 50, Close: 52},
	}

	record, err := BuildChangeRecord("test", 30, candles)
	require.NoError(t, err)
	assert.Equal(t, 50.0, record.Open)
	assert.Equal(t, 52.0, record.Close)
	assert.Equal(t, 2, record.Meta.DataPoints)
}

func TestBuildChangeRecordEmpty(t *testing.T) {
	_, err := BuildChangeRecord("test", 7, nil)
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestBuildChangeRecordZeroOpen(t *testing.T) {
	candles := []Candle{
		{Date: day("2026-08-28"), Open: 0, High: 1, Low: 0, Close: 1},
	}

	record, err := BuildChangeRecord("test", 7, candles)
	require.NoError(t, err)
	assert.Equal(t, 0.0, record.ChangePercent)
}
