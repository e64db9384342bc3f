// Package report projects store state into read-only views: summary totals,
// chart rows and textual insights. Nothing here mutates the store.
package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/store"
)

// CategoryAmount is an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// Summary is the dashboard projection of a state snapshot.
type Summary struct {
	Currency   string
	Income     decimal.Decimal
	Expenses   decimal.Decimal
	Balance    decimal.Decimal
	ByCategory []CategoryAmount // expense totals, largest first
	Count      int
}

// MonthPoint is one month of aggregated income and expenses.
type MonthPoint struct {
	Year     int
	Month    time.Month
	Income   decimal.Decimal
	Expenses decimal.Decimal
}

// ChartRow is a pre-scaled bar for rendering: Width is a 0-100 percentage of
// the largest amount in the set.
type ChartRow struct {
	Name   string
	Amount string
	Width  int
}

// Summarize aggregates a snapshot into dashboard totals.
func Summarize(snap store.State) Summary {
	s := Summary{
		Currency: snap.Currency,
		Income:   decimal.Zero,
		Expenses: decimal.Zero,
		Count:    len(snap.Transactions),
	}
	byCategory := map[string]decimal.Decimal{}

	for _, tx := range snap.Transactions {
		switch tx.Type {
		case core.Income:
			s.Income = s.Income.Add(tx.Amount)
		case core.Expense:
			s.Expenses = s.Expenses.Add(tx.Amount)
			byCategory[tx.Category] = byCategory[tx.Category].Add(tx.Amount)
		}
	}
	s.Balance = s.Income.Sub(s.Expenses)

	s.ByCategory = make([]CategoryAmount, 0, len(byCategory))
	for name, amount := range byCategory {
		s.ByCategory = append(s.ByCategory, CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(s.ByCategory, func(i, j int) bool {
		if s.ByCategory[i].Amount.Equal(s.ByCategory[j].Amount) {
			return s.ByCategory[i].Name < s.ByCategory[j].Name
		}
		return s.ByCategory[i].Amount.GreaterThan(s.ByCategory[j].Amount)
	})
	return s
}

// MonthlySeries buckets transactions by calendar month, ascending. Records
// with a zero date are skipped.
func MonthlySeries(snap store.State) []MonthPoint {
	type key struct {
		year  int
		month time.Month
	}
	buckets := map[key]*MonthPoint{}

	for _, tx := range snap.Transactions {
		if tx.Date.IsZero() {
			continue
		}
		k := key{tx.Date.Year(), tx.Date.Month()}
		p, ok := buckets[k]
		if !ok {
			p = &MonthPoint{Year: k.year, Month: k.month, Income: decimal.Zero, Expenses: decimal.Zero}
			buckets[k] = p
		}
		switch tx.Type {
		case core.Income:
			p.Income = p.Income.Add(tx.Amount)
		case core.Expense:
			p.Expenses = p.Expenses.Add(tx.Amount)
		}
	}

	out := make([]MonthPoint, 0, len(buckets))
	for _, p := range buckets {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out
}

// ChartRows converts category totals into renderable bars scaled against the
// largest amount. Very small nonzero values are widened to stay visible.
func ChartRows(currency string, byCategory []CategoryAmount) []ChartRow {
	max := decimal.Zero
	for _, c := range byCategory {
		if c.Amount.GreaterThan(max) {
			max = c.Amount
		}
	}

	rows := make([]ChartRow, 0, len(byCategory))
	for _, c := range byCategory {
		width := 0
		if max.IsPositive() && c.Amount.IsPositive() {
			width = int(c.Amount.Mul(decimal.NewFromInt(100)).Div(max).Round(0).IntPart())
			if width > 0 && width < 2 {
				width = 2
			}
			if width > 100 {
				width = 100
			}
		}
		rows = append(rows, ChartRow{
			Name:   c.Name,
			Amount: core.FormatAmount(currency, c.Amount),
			Width:  width,
		})
	}
	return rows
}
