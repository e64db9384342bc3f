// Package store holds the single authoritative in-memory application state
// and notifies subscribers synchronously after every mutation.
package store

import (
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tally/internal/core"
)

// State is the aggregate application state. Currency, Transactions and
// Categories are the persisted subset; the remaining fields are ephemeral and
// reset on every (re)initialization.
type State struct {
	Currency     string
	Transactions []core.Transaction
	Categories   []string

	CurrentView core.View
	Modal       core.Modal
	EditingID   string
}

// Clone returns a deep copy. Subscribers and getters only ever see clones, so
// no caller can reach the store's internal slices.
func (s State) Clone() State {
	out := s
	out.Transactions = make([]core.Transaction, len(s.Transactions))
	for i, tx := range s.Transactions {
		out.Transactions[i] = tx.Clone()
	}
	out.Categories = append([]string(nil), s.Categories...)
	return out
}

// InitData is the loosely validated payload fed into Init, typically produced
// by the persistence gateway after per-field coercion.
type InitData struct {
	Currency     string
	Transactions []core.Transaction
	Categories   []string
}

// Subscriber receives the full state after every mutation.
type Subscriber func(State)

// subscription wraps the callback so two registrations of the same function
// remain distinct and unsubscribing removes exactly one of them.
type subscription struct {
	fn Subscriber
}

// TransactionInput carries caller-supplied fields for a new transaction.
// Amount arrives as text and is coerced; an unparsable amount is stored as
// zero, matching the store's no-validation contract.
type TransactionInput struct {
	Amount      string
	Type        core.TransactionType
	Category    string
	Description string
	Date        core.Date
}

// TransactionUpdate shallow-merges onto an existing transaction; nil fields
// are left untouched.
type TransactionUpdate struct {
	Amount      *string
	Type        *core.TransactionType
	Category    *string
	Description *string
	Date        *core.Date
}

// Store owns the mutable application state. Construct one per application (or
// per test); there is deliberately no package-level instance.
type Store struct {
	mu    sync.Mutex
	state State
	subs  []*subscription
}

// New returns a store seeded with built-in defaults.
func New() *Store {
	s := &Store{}
	s.state = defaultState()
	return s
}

func defaultState() State {
	return State{
		Currency:    core.DefaultCurrency,
		Categories:  append([]string(nil), core.DefaultCategories...),
		CurrentView: core.ViewDashboard,
		Modal:       core.ModalNone,
	}
}

// Init replaces the persisted subset of state with loaded data and resets all
// ephemeral fields. Default categories are substituted only when the loaded
// category list is empty; a persisted non-empty list wins as-is. Notifies.
func (s *Store) Init(data InitData) {
	s.mu.Lock()
	st := State{
		CurrentView: core.ViewDashboard,
		Modal:       core.ModalNone,
	}

	if code, err := core.NormalizeCurrency(data.Currency); err == nil {
		st.Currency = code
	} else {
		st.Currency = core.DefaultCurrency
	}

	st.Transactions = make([]core.Transaction, len(data.Transactions))
	for i, tx := range data.Transactions {
		st.Transactions[i] = tx.Clone()
	}

	if len(data.Categories) == 0 {
		st.Categories = append([]string(nil), core.DefaultCategories...)
	} else {
		st.Categories = append([]string(nil), data.Categories...)
	}

	s.state = st
	s.notifyLocked()
	s.mu.Unlock()
}

// Snapshot returns a deep copy of the full current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Transactions returns an independent copy of all transactions.
func (s *Store) Transactions() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, len(s.state.Transactions))
	for i, tx := range s.state.Transactions {
		out[i] = tx.Clone()
	}
	return out
}

// Categories returns an independent copy of all category names.
func (s *Store) Categories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.state.Categories...)
}

// Currency returns the current currency code.
func (s *Store) Currency() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Currency
}

// SetCurrency normalizes and stores a currency code. Codes shorter than three
// letters are silently ignored: no mutation, no notification.
func (s *Store) SetCurrency(code string) {
	normalized, err := core.NormalizeCurrency(code)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.state.Currency = normalized
	s.notifyLocked()
	s.mu.Unlock()
}

// AddTransaction appends a new transaction with a freshly generated id,
// coercing the amount and defaulting the date to today. Referential integrity
// of the category and amount positivity are caller responsibilities.
// Returns the stored record.
func (s *Store) AddTransaction(input TransactionInput) core.Transaction {
	amount, err := core.ParseAmount(input.Amount)
	if err != nil {
		amount = decimal.Zero
	}
	date := input.Date
	if date.IsZero() {
		date = core.Today()
	}
	tx := core.Transaction{
		ID:          uuid.NewString(),
		Amount:      amount,
		Type:        input.Type,
		Category:    input.Category,
		Description: input.Description,
		Date:        date,
	}

	s.mu.Lock()
	s.state.Transactions = append(s.state.Transactions, tx)
	s.notifyLocked()
	s.mu.Unlock()
	return tx
}

// UpdateTransaction shallow-merges updates onto the transaction with the
// given id. An absent or unparsable amount keeps the previous one. Unknown
// ids are a silent no-op without notification.
func (s *Store) UpdateTransaction(id string, updates TransactionUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.state.Transactions, func(tx core.Transaction) bool {
		return tx.ID == id
	})
	if idx < 0 {
		return
	}

	tx := &s.state.Transactions[idx]
	if updates.Amount != nil {
		if amount, err := core.ParseAmount(*updates.Amount); err == nil {
			tx.Amount = amount
		}
	}
	if updates.Type != nil {
		tx.Type = *updates.Type
	}
	if updates.Category != nil {
		tx.Category = *updates.Category
	}
	if updates.Description != nil {
		tx.Description = *updates.Description
	}
	if updates.Date != nil && !updates.Date.IsZero() {
		tx.Date = *updates.Date
	}
	s.notifyLocked()
}

// DeleteTransaction removes every record matching id. Deleting a nonexistent
// id is a harmless no-op that still notifies.
func (s *Store) DeleteTransaction(id string) {
	s.mu.Lock()
	s.state.Transactions = slices.DeleteFunc(s.state.Transactions, func(tx core.Transaction) bool {
		return tx.ID == id
	})
	s.notifyLocked()
	s.mu.Unlock()
}

// AddCategory inserts a trimmed category name. Empty names and exact
// duplicates are ignored; notification fires only on actual insertion.
// Reports whether the name was inserted.
func (s *Store) AddCategory(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Contains(s.state.Categories, name) {
		return false
	}
	s.state.Categories = append(s.state.Categories, name)
	s.notifyLocked()
	return true
}

// RemoveCategory removes a user-defined category. Default categories and
// categories still referenced by a transaction are protected: the call
// returns false and nothing changes.
func (s *Store) RemoveCategory(name string) bool {
	if core.IsDefaultCategory(name) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range s.state.Transactions {
		if tx.Category == name {
			return false
		}
	}
	before := len(s.state.Categories)
	s.state.Categories = slices.DeleteFunc(s.state.Categories, func(c string) bool {
		return c == name
	})
	if len(s.state.Categories) == before {
		return false
	}
	s.notifyLocked()
	return true
}

// SetView switches the current view. Unknown view names are silently ignored.
func (s *Store) SetView(view core.View) {
	if !view.Valid() {
		return
	}
	s.mu.Lock()
	s.state.CurrentView = view
	s.notifyLocked()
	s.mu.Unlock()
}

// OpenModal records the open modal and the transaction being edited, if any.
func (s *Store) OpenModal(modal core.Modal, editingID string) {
	s.mu.Lock()
	s.state.Modal = modal
	s.state.EditingID = editingID
	s.notifyLocked()
	s.mu.Unlock()
}

// CloseModal clears the modal and editing target.
func (s *Store) CloseModal() {
	s.mu.Lock()
	s.state.Modal = core.ModalNone
	s.state.EditingID = ""
	s.notifyLocked()
	s.mu.Unlock()
}

// Subscribe registers a callback and immediately invokes it once with the
// current state. The returned function removes exactly this registration;
// subscribing the same function twice yields two independent registrations.
//
// Callbacks run synchronously under the store lock, in registration order,
// each with its own state copy. They must work from the snapshot they receive
// and must not call back into the store.
func (s *Store) Subscribe(fn Subscriber) (unsubscribe func()) {
	sub := &subscription{fn: fn}

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.invoke(sub, s.state.Clone())
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		s.subs = slices.DeleteFunc(s.subs, func(candidate *subscription) bool {
			return candidate == sub
		})
		s.mu.Unlock()
	}
}

// notifyLocked fans the current state out to every subscriber. Callers must
// hold s.mu.
func (s *Store) notifyLocked() {
	for _, sub := range s.subs {
		s.invoke(sub, s.state.Clone())
	}
}

// invoke isolates a single subscriber call: a panicking subscriber is logged
// and must not prevent the remaining subscribers from running.
func (s *Store) invoke(sub *subscription, snapshot State) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Store subscriber panicked", "panic", r)
		}
	}()
	sub.fn(snapshot)
}
