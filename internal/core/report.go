package core

import (
	"fmt"
	"math"
	"time"
)

// WindowDays is the trailing period the dashboard aggregates over.
const WindowDays = 30

// GraphData is the weekly time series rendered by the dashboard chart.
type GraphData struct {
	Labels []string  `json:"labels"`
	Data   []float64 `json:"data"`
}

// Dashboard summarizes one owner's spending inside the trailing window.
type Dashboard struct {
	TotalSpent        float64            `json:"total_spent"`
	CategoryBreakdown map[string]float64 `json:"category_breakdown"`
	GraphData         GraphData          `json:"graph_data"`
}

// WindowStart returns the beginning of the dashboard window relative to now.
func WindowStart(now time.Time) time.Time {
	return now.AddDate(0, 0, -WindowDays)
}

// BuildDashboard aggregates expenses into the dashboard summary. The caller
// is expected to pass only expenses whose timestamp falls inside the window.
//
// The breakdown always carries the known categories, zero-valued when
// absent; an unknown purpose accumulates under its own label instead of
// being dropped. The weekly series buckets each expense by
// ceil((now - timestamp) / 7d) and runs from the oldest populated bucket to
// the most recent, so the chart reads left to right in time.
func BuildDashboard(expenses []Expense, now time.Time) Dashboard {
	d := Dashboard{
		CategoryBreakdown: make(map[string]float64, len(KnownCategories)),
		GraphData: GraphData{
			Labels: []string{},
			Data:   []float64{},
		},
	}
	for _, c := range KnownCategories {
		d.CategoryBreakdown[c] = 0
	}

	weeks := make(map[int]float64)
	maxWeek := 0
	for _, e := range expenses {
		d.TotalSpent += e.Amount
		d.CategoryBreakdown[e.Purpose] += e.Amount

		w := weekIndex(now, e.Timestamp)
		weeks[w] += e.Amount
		if w > maxWeek {
			maxWeek = w
		}
	}

	for w := maxWeek; w >= 1; w-- {
		if amount, ok := weeks[w]; ok {
			d.GraphData.Labels = append(d.GraphData.Labels, fmt.Sprintf("Week %d", w))
			d.GraphData.Data = append(d.GraphData.Data, amount)
		}
	}

	return d
}

// weekIndex buckets a timestamp into trailing 7-day spans: up to 7 days old
// is week 1, 8-14 days is week 2, and so on.
func weekIndex(now, ts time.Time) int {
	w := int(math.Ceil(now.Sub(ts).Hours() / (24 * 7)))
	if w < 1 {
		w = 1
	}
	return w
}
