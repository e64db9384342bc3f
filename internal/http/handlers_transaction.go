package http

import (
	"html/template"
	"net/http"
	"sort"

	"tally/internal/core"
	"tally/internal/store"
)

// transactionRow is the render model for one transaction.
type transactionRow struct {
	ID          string
	Description string
	Category    string
	Type        core.TransactionType
	Date        string
	DateInput   string
	Amount      string
	AmountInput string
	IsExpense   bool
}

func buildTransactionRow(currency string, tx core.Transaction) transactionRow {
	dateDisplay := ""
	if !tx.Date.IsZero() {
		dateDisplay = tx.Date.Format("Jan 2, 2006")
	}
	return transactionRow{
		ID:          tx.ID,
		Description: tx.Description,
		Category:    tx.Category,
		Type:        tx.Type,
		Date:        dateDisplay,
		DateInput:   tx.Date.String(),
		Amount:      core.FormatAmount(currency, tx.Amount),
		AmountInput: tx.Amount.StringFixed(2),
		IsExpense:   tx.Type == core.Expense,
	}
}

// handleTransactionList renders the transaction table, newest first.
func (s *Server) handleTransactionList(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()

	txs := snap.Transactions
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Date.After(txs[j].Date.Time)
	})

	data := struct {
		Rows  []transactionRow
		Empty bool
	}{Empty: len(txs) == 0}
	for _, tx := range txs {
		data.Rows = append(data.Rows, buildTransactionRow(snap.Currency, tx))
	}
	s.render(w, r, "transactions.html", data)
}

// parseTransactionInput validates the create form. The store itself accepts
// anything; rejecting bad input is this boundary's job.
func parseTransactionInput(r *http.Request) (store.TransactionInput, *HTMXResponseBuilder) {
	var input store.TransactionInput

	amount := formField(r.Form, "amount")
	if _, err := core.ParseAmount(amount); err != nil {
		return input, UnprocessableEntityError("Invalid amount")
	}
	txType := core.TransactionType(formField(r.Form, "type"))
	if !txType.Valid() {
		return input, UnprocessableEntityError("Invalid transaction type")
	}
	category := formField(r.Form, "category")
	if category == "" {
		return input, UnprocessableEntityError("Category is required")
	}
	date, err := parseDateField(r.Form, "date")
	if err != nil {
		return input, UnprocessableEntityError("Invalid date")
	}

	input = store.TransactionInput{
		Amount:      amount,
		Type:        txType,
		Category:    category,
		Description: formField(r.Form, "description"),
		Date:        date,
	}
	return input, nil
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	if errResp := ParseFormOrFail(r); errResp != nil {
		errResp.Write(w)
		return
	}

	input, errResp := parseTransactionInput(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}

	tx := s.store.AddTransaction(input)
	s.store.CloseModal()

	NewHTMXResponse().
		TriggerTransactionCreated(tx.ID).
		TriggerSuccessNotification("Transaction added").
		BodyHTML(`<div class="success">Recorded ` + template.HTMLEscapeString(tx.Description) +
			` — ` + template.HTMLEscapeString(core.FormatAmount(s.store.Currency(), tx.Amount)) + `</div>`).
		Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	if errResp := ParseFormOrFail(r); errResp != nil {
		errResp.Write(w)
		return
	}

	id := r.PathValue("id")
	if !s.transactionExists(id) {
		NotFoundError("Transaction not found").Write(w)
		return
	}

	updates := store.TransactionUpdate{
		Category:    optionalField(r.Form, "category"),
		Description: optionalField(r.Form, "description"),
	}
	if amount := optionalField(r.Form, "amount"); amount != nil {
		if _, err := core.ParseAmount(*amount); err != nil {
			UnprocessableEntityError("Invalid amount").Write(w)
			return
		}
		updates.Amount = amount
	}
	if raw := optionalField(r.Form, "type"); raw != nil {
		txType := core.TransactionType(*raw)
		if !txType.Valid() {
			UnprocessableEntityError("Invalid transaction type").Write(w)
			return
		}
		updates.Type = &txType
	}
	if r.Form.Has("date") {
		date, err := parseDateField(r.Form, "date")
		if err != nil {
			UnprocessableEntityError("Invalid date").Write(w)
			return
		}
		updates.Date = &date
	}

	s.store.UpdateTransaction(id, updates)
	s.store.CloseModal()

	NewHTMXResponse().
		TriggerTransactionUpdated(id).
		TriggerSuccessNotification("Transaction updated").
		Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.store.DeleteTransaction(id)

	NewHTMXResponse().
		TriggerTransactionDeleted(id).
		TriggerSuccessNotification("Transaction deleted").
		Write(w)
}

func (s *Server) transactionExists(id string) bool {
	for _, tx := range s.store.Transactions() {
		if tx.ID == id {
			return true
		}
	}
	return false
}
