package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"tally/internal/core"
	"tally/internal/store"
)

// StateKey is the fixed slot every backend persists the document under.
const StateKey = "tally/state"

// ErrInvalidPayload is returned by Import when the payload is not a JSON
// object. Malformed individual fields never trigger it; they are substituted.
var ErrInvalidPayload = errors.New("import payload is not a JSON object")

// Envelope is the persisted subset of application state.
type Envelope struct {
	Currency     string             `json:"currency"`
	Transactions []core.Transaction `json:"transactions"`
	Categories   []string           `json:"categories"`
}

// ExportEnvelope adds export metadata on top of the persisted fields.
type ExportEnvelope struct {
	Envelope
	ExportDate time.Time `json:"exportDate"`
	AppVersion string    `json:"appVersion"`
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithPersistDebounce coalesces rapid persist requests into one trailing
// write after d. Zero keeps every persist synchronous, which is the default
// contract.
func WithPersistDebounce(d time.Duration) Option {
	return func(g *Gateway) { g.debounceAfter = d }
}

// Gateway serializes the persisted subset of store state into a KV slot and
// rebuilds store state from it, degrading to defaults on any malformed input.
type Gateway struct {
	kv            KV
	store         *store.Store
	debounceAfter time.Duration
	debouncer     *Debouncer
}

func NewGateway(kv KV, st *store.Store, opts ...Option) *Gateway {
	g := &Gateway{kv: kv, store: st}
	for _, opt := range opts {
		opt(g)
	}
	if g.debounceAfter > 0 {
		g.debouncer = NewDebouncer(g.debounceAfter, func() {
			g.persistNow(context.Background())
		})
	}
	return g
}

// Init loads the stored document, coerces it field by field, initializes the
// store with it and persists once more so default substitution (for example
// the seeded categories on first run) reaches disk. It never fails: absent,
// unreadable or corrupted data degrades to built-in defaults.
func (g *Gateway) Init(ctx context.Context) {
	raw, err := g.kv.Get(ctx, StateKey)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			slog.WarnContext(ctx, "Stored state unreadable, starting from defaults", "error", err)
		}
		raw = nil
	}

	env := decodeEnvelope(ctx, raw)
	g.store.Init(store.InitData(env))
	g.persistNow(ctx)
}

// Persist writes the three persisted fields of the current store state to the
// fixed key. Write failures are logged and swallowed; the application keeps
// running on in-memory state.
func (g *Gateway) Persist(ctx context.Context) {
	if g.debouncer != nil {
		g.debouncer.Trigger()
		return
	}
	g.persistNow(ctx)
}

func (g *Gateway) persistNow(ctx context.Context) {
	g.persistState(ctx, g.store.Snapshot())
}

func (g *Gateway) persistState(ctx context.Context, snap store.State) {
	env := Envelope{
		Currency:     snap.Currency,
		Transactions: snap.Transactions,
		Categories:   snap.Categories,
	}
	raw, err := json.Marshal(env)
	if err != nil {
		slog.ErrorContext(ctx, "Marshal state failed", "error", err)
		return
	}
	if err := g.kv.Put(ctx, StateKey, raw); err != nil {
		slog.ErrorContext(ctx, "Persist state failed", "error", err)
	}
}

// Subscriber returns a store callback that re-persists state after every
// mutation. Register it right after Init.
func (g *Gateway) Subscriber() store.Subscriber {
	return func(snap store.State) {
		if g.debouncer != nil {
			g.debouncer.Trigger()
			return
		}
		g.persistState(context.Background(), snap)
	}
}

// Export produces the pretty-printed backup document: the persisted fields
// plus a generation timestamp and the app version tag.
func (g *Gateway) Export(ctx context.Context) ([]byte, error) {
	snap := g.store.Snapshot()
	doc := ExportEnvelope{
		Envelope: Envelope{
			Currency:     snap.Currency,
			Transactions: snap.Transactions,
			Categories:   snap.Categories,
		},
		ExportDate: time.Now().UTC(),
		AppVersion: core.AppVersion,
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Import replaces the current state with a previously exported document.
// Only a non-object payload is rejected; each field is independently coerced,
// so a malformed transactions array yields an empty one rather than an error.
func (g *Gateway) Import(ctx context.Context, payload []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(payload, &probe); err != nil {
		return ErrInvalidPayload
	}

	env := decodeEnvelope(ctx, payload)
	g.store.Init(store.InitData(env))
	g.persistNow(ctx)
	return nil
}

// ClearAll deletes the stored key and reinitializes the store to built-in
// defaults.
func (g *Gateway) ClearAll(ctx context.Context) {
	if err := g.kv.Delete(ctx, StateKey); err != nil {
		slog.ErrorContext(ctx, "Clear stored state failed", "error", err)
	}
	g.store.Init(store.InitData{})
}

// Flush forces any debounced write out immediately. Call on shutdown.
func (g *Gateway) Flush() {
	if g.debouncer != nil {
		g.debouncer.Flush()
	}
}

// decodeEnvelope recovers as much as possible from raw bytes. Every field is
// coerced independently: a currency that is not a string becomes the default,
// arrays that fail to parse become empty, and malformed array elements are
// skipped rather than rejecting their siblings.
func decodeEnvelope(ctx context.Context, raw []byte) Envelope {
	env := Envelope{Currency: core.DefaultCurrency}
	if len(raw) == 0 {
		return env
	}

	var loose struct {
		Currency     json.RawMessage `json:"currency"`
		Transactions json.RawMessage `json:"transactions"`
		Categories   json.RawMessage `json:"categories"`
	}
	if err := json.Unmarshal(raw, &loose); err != nil {
		slog.WarnContext(ctx, "Stored state is not valid JSON, using defaults", "error", err)
		return env
	}

	if len(loose.Currency) > 0 {
		var code string
		if err := json.Unmarshal(loose.Currency, &code); err == nil {
			env.Currency = code
		}
	}

	env.Transactions = decodeTransactions(ctx, loose.Transactions)
	env.Categories = decodeCategories(loose.Categories)
	return env
}

func decodeTransactions(ctx context.Context, raw json.RawMessage) []core.Transaction {
	if len(raw) == 0 {
		return nil
	}
	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil
	}
	out := make([]core.Transaction, 0, len(elements))
	for _, el := range elements {
		var tx core.Transaction
		if err := json.Unmarshal(el, &tx); err != nil {
			slog.DebugContext(ctx, "Skipping malformed transaction record", "error", err)
			continue
		}
		out = append(out, tx)
	}
	return out
}

func decodeCategories(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil
	}
	out := make([]string, 0, len(elements))
	for _, el := range elements {
		var name string
		if err := json.Unmarshal(el, &name); err != nil {
			continue
		}
		out = append(out, name)
	}
	return out
}
