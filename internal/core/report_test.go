package core

import (
	"math"
	"testing"
	"time"
)

var reportNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time {
	return reportNow.AddDate(0, 0, -n)
}

func TestBuildDashboard_Empty(t *testing.T) {
	d := BuildDashboard(nil, reportNow)

	if d.TotalSpent != 0 {
		t.Errorf("TotalSpent = %v, want 0", d.TotalSpent)
	}
	if len(d.CategoryBreakdown) != len(KnownCategories) {
		t.Errorf("CategoryBreakdown has %d entries, want %d", len(d.CategoryBreakdown), len(KnownCategories))
	}
	for _, c := range KnownCategories {
		if v, ok := d.CategoryBreakdown[c]; !ok || v != 0 {
			t.Errorf("CategoryBreakdown[%q] = %v, %v; want 0, true", c, v, ok)
		}
	}
	if len(d.GraphData.Labels) != 0 || len(d.GraphData.Data) != 0 {
		t.Errorf("GraphData = %+v, want empty series", d.GraphData)
	}
	if d.GraphData.Labels == nil || d.GraphData.Data == nil {
		t.Error("GraphData slices must be non-nil so they encode as [] rather than null")
	}
}

func TestBuildDashboard_Totals(t *testing.T) {
	expenses := []Expense{
		{Amount: 10, Purpose: "Dining", Timestamp: daysAgo(2)},
		{Amount: 25.5, Purpose: "Groceries", Timestamp: daysAgo(3)},
		{Amount: 4.5, Purpose: "Transport", Timestamp: daysAgo(10)},
	}

	d := BuildDashboard(expenses, reportNow)

	if d.TotalSpent != 40 {
		t.Errorf("TotalSpent = %v, want 40", d.TotalSpent)
	}
	want := map[string]float64{"Groceries": 25.5, "Dining": 10, "Transport": 4.5, "Other": 0}
	for c, amount := range want {
		if d.CategoryBreakdown[c] != amount {
			t.Errorf("CategoryBreakdown[%q] = %v, want %v", c, d.CategoryBreakdown[c], amount)
		}
	}
}

func TestBuildDashboard_UnknownPurposeAccumulates(t *testing.T) {
	expenses := []Expense{
		{Amount: 12, Purpose: "Vet", Timestamp: daysAgo(1)},
		{Amount: 8, Purpose: "Vet", Timestamp: daysAgo(2)},
		{Amount: 5, Purpose: "Other", Timestamp: daysAgo(2)},
	}

	d := BuildDashboard(expenses, reportNow)

	if d.CategoryBreakdown["Vet"] != 20 {
		t.Errorf("CategoryBreakdown[Vet] = %v, want 20", d.CategoryBreakdown["Vet"])
	}
	if d.CategoryBreakdown["Other"] != 5 {
		t.Errorf("CategoryBreakdown[Other] = %v, want 5", d.CategoryBreakdown["Other"])
	}

	var sum float64
	for _, v := range d.CategoryBreakdown {
		sum += v
	}
	if math.Abs(sum-d.TotalSpent) > 1e-9 {
		t.Errorf("breakdown sums to %v, TotalSpent is %v", sum, d.TotalSpent)
	}
}

func TestBuildDashboard_WeeklySeries(t *testing.T) {
	expenses := []Expense{
		{Amount: 30, Purpose: "Groceries", Timestamp: daysAgo(29)}, // week 5
		{Amount: 20, Purpose: "Dining", Timestamp: daysAgo(9)},     // week 2
		{Amount: 10, Purpose: "Transport", Timestamp: daysAgo(2)},  // week 1
		{Amount: 5, Purpose: "Other", Timestamp: daysAgo(1)},       // week 1
	}

	d := BuildDashboard(expenses, reportNow)

	wantLabels := []string{"Week 5", "Week 2", "Week 1"}
	wantData := []float64{30, 20, 15}
	if len(d.GraphData.Labels) != len(wantLabels) {
		t.Fatalf("Labels = %v, want %v", d.GraphData.Labels, wantLabels)
	}
	for i := range wantLabels {
		if d.GraphData.Labels[i] != wantLabels[i] {
			t.Errorf("Labels[%d] = %q, want %q", i, d.GraphData.Labels[i], wantLabels[i])
		}
		if d.GraphData.Data[i] != wantData[i] {
			t.Errorf("Data[%d] = %v, want %v", i, d.GraphData.Data[i], wantData[i])
		}
	}
}

func TestWeekIndex(t *testing.T) {
	tests := []struct {
		name string
		ts   time.Time
		want int
	}{
		{"right now", reportNow, 1},
		{"two days old", daysAgo(2), 1},
		{"exactly seven days", daysAgo(7), 1},
		{"eight days old", daysAgo(8), 2},
		{"fourteen days old", daysAgo(14), 2},
		{"twenty-nine days old", daysAgo(29), 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := weekIndex(reportNow, tt.ts); got != tt.want {
				t.Errorf("weekIndex = %d, want %d", got, tt.want)
			}
		})
	}
}
