package http

import (
	"net/http"
	"time"

	"tally/internal/core"
	"tally/internal/report"
)

// handleSummary renders the dashboard totals partial.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum := s.summarize(r.Context())

	data := struct {
		Income          string
		Expenses        string
		Balance         string
		BalanceNegative bool
		Count           int
	}{
		Income:          core.FormatAmount(sum.Currency, sum.Income),
		Expenses:        core.FormatAmount(sum.Currency, sum.Expenses),
		Count:           sum.Count,
		BalanceNegative: sum.Balance.IsNegative(),
	}
	if data.BalanceNegative {
		data.Balance = "-" + core.FormatAmount(sum.Currency, sum.Balance.Neg())
	} else {
		data.Balance = core.FormatAmount(sum.Currency, sum.Balance)
	}
	s.render(w, r, "summary.html", data)
}

// handleChart renders expense-by-category bars plus the monthly trend table.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	sum := s.summarize(r.Context())
	snap := s.store.Snapshot()

	type monthRow struct {
		Label    string
		Income   string
		Expenses string
	}
	data := struct {
		Rows   []report.ChartRow
		Months []monthRow
		Empty  bool
	}{
		Rows: report.ChartRows(sum.Currency, sum.ByCategory),
	}
	for _, p := range report.MonthlySeries(snap) {
		data.Months = append(data.Months, monthRow{
			Label:    time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC).Format("Jan 2006"),
			Income:   core.FormatAmount(sum.Currency, p.Income),
			Expenses: core.FormatAmount(sum.Currency, p.Expenses),
		})
	}
	data.Empty = len(data.Rows) == 0 && len(data.Months) == 0
	s.render(w, r, "chart.html", data)
}

// handleInsights renders the generated spending observations.
func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Insights []string
	}{Insights: report.Insights(s.store.Snapshot(), time.Now())}
	s.render(w, r, "insights.html", data)
}
