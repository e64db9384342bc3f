package report

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/store"
)

var hundred = decimal.NewFromInt(100)

// Insights produces rule-based observations about a snapshot, relative to
// now. The rules are intentionally simple and deterministic; each fires at
// most once.
func Insights(snap store.State, now time.Time) []string {
	if len(snap.Transactions) == 0 {
		return []string{"No transactions recorded yet. Add your first one to see insights."}
	}

	var out []string
	s := Summarize(snap)

	if len(s.ByCategory) > 0 && s.Expenses.IsPositive() {
		top := s.ByCategory[0]
		share := top.Amount.Mul(hundred).Div(s.Expenses).Round(0)
		out = append(out, fmt.Sprintf("Top spending category is %s at %s%% of all expenses.",
			top.Name, share))
	}

	switch {
	case s.Balance.IsPositive():
		out = append(out, fmt.Sprintf("Income exceeds expenses by %s.",
			core.FormatAmount(s.Currency, s.Balance)))
	case s.Balance.IsNegative():
		out = append(out, fmt.Sprintf("You spent %s more than you earned.",
			core.FormatAmount(s.Currency, s.Balance.Neg())))
	}

	if s.Income.IsPositive() && s.Balance.IsPositive() {
		rate := s.Balance.Mul(hundred).Div(s.Income).Round(0)
		out = append(out, fmt.Sprintf("You are keeping %s%% of your income.", rate))
	}

	if msg, ok := monthOverMonth(snap, now); ok {
		out = append(out, msg)
	}

	return out
}

// monthOverMonth compares this month's expenses with the previous month's.
func monthOverMonth(snap store.State, now time.Time) (string, bool) {
	current := monthExpenses(snap, now.Year(), now.Month())
	prevTime := now.AddDate(0, -1, -now.Day()+1)
	previous := monthExpenses(snap, prevTime.Year(), prevTime.Month())

	if !previous.IsPositive() || !current.IsPositive() {
		return "", false
	}

	delta := current.Sub(previous).Mul(hundred).Div(previous).Round(0)
	switch {
	case delta.IsPositive():
		return fmt.Sprintf("Spending is up %s%% compared to last month.", delta), true
	case delta.IsNegative():
		return fmt.Sprintf("Spending is down %s%% compared to last month.", delta.Neg()), true
	}
	return "Spending is level with last month.", true
}

func monthExpenses(snap store.State, year int, month time.Month) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range snap.Transactions {
		if tx.Type != core.Expense || tx.Date.IsZero() {
			continue
		}
		if tx.Date.Year() == year && tx.Date.Month() == month {
			total = total.Add(tx.Amount)
		}
	}
	return total
}
