package http

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"tally/internal/storage"
	"tally/internal/store"
)

func newTestServer(t *testing.T) (*Server, *store.Store, *storage.Gateway) {
	t.Helper()

	kv := storage.NewMemoryKV()
	st := store.New()
	gw := storage.NewGateway(kv, st)
	gw.Init(context.Background())
	st.Subscribe(gw.Subscriber())

	s := NewServer(":0", st, gw)
	t.Cleanup(func() {
		_ = s.Shutdown(context.Background())
	})
	return s, st, gw
}

func doForm(s *Server, method, target string, form url.Values) *httptest.ResponseRecorder {
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func doGet(s *Server, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func TestIndexServesPageWithSecurityHeaders(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doGet(s, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Fatalf("content type = %q", ct)
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatal("missing X-Frame-Options header")
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Fatal("missing CSP header")
	}
	if !strings.Contains(rec.Body.String(), "Dashboard") {
		t.Fatal("page should render navigation")
	}
}

func TestHealthEndpoints(t *testing.T) {
	s, _, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		if rec := doGet(s, path); rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rec.Code)
		}
	}
}

func TestCreateTransaction(t *testing.T) {
	s, st, _ := newTestServer(t)

	rec := doForm(s, http.MethodPost, "/transactions", url.Values{
		"amount":      {"42,5"},
		"type":        {"expense"},
		"category":    {"Groceries"},
		"description": {"weekly shop"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Header().Get("HX-Trigger"), "transaction:created") {
		t.Fatalf("HX-Trigger = %q", rec.Header().Get("HX-Trigger"))
	}

	txs := st.Transactions()
	if len(txs) != 1 {
		t.Fatalf("transactions = %d", len(txs))
	}
	if got := txs[0].Amount.StringFixed(2); got != "42.50" {
		t.Fatalf("amount = %s", got)
	}
	if txs[0].Date.IsZero() {
		t.Fatal("date should default to today")
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	s, st, _ := newTestServer(t)

	cases := []struct {
		name string
		form url.Values
	}{
		{"bad amount", url.Values{"amount": {"abc"}, "type": {"expense"}, "category": {"Groceries"}}},
		{"negative amount", url.Values{"amount": {"-5"}, "type": {"expense"}, "category": {"Groceries"}}},
		{"bad type", url.Values{"amount": {"10"}, "type": {"transfer"}, "category": {"Groceries"}}},
		{"missing category", url.Values{"amount": {"10"}, "type": {"expense"}}},
		{"bad date", url.Values{"amount": {"10"}, "type": {"expense"}, "category": {"Groceries"}, "date": {"not-a-date"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if rec := doForm(s, http.MethodPost, "/transactions", tc.form); rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d", rec.Code)
			}
		})
	}
	if len(st.Transactions()) != 0 {
		t.Fatal("rejected input must not reach the store")
	}
}

func TestUpdateTransaction(t *testing.T) {
	s, st, _ := newTestServer(t)

	tx := st.AddTransaction(store.TransactionInput{Amount: "10", Type: "expense", Category: "Groceries"})

	rec := doForm(s, http.MethodPut, "/transactions/"+tx.ID, url.Values{
		"description": {"updated"},
		"amount":      {"25"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	got := st.Transactions()[0]
	if got.Description != "updated" || got.Amount.StringFixed(2) != "25.00" {
		t.Fatalf("merge failed: %+v", got)
	}
	if got.Category != "Groceries" {
		t.Fatal("untouched fields must survive")
	}
}

func TestUpdateTransactionUnknownID(t *testing.T) {
	s, _, _ := newTestServer(t)

	if rec := doForm(s, http.MethodPut, "/transactions/nope", url.Values{"description": {"x"}}); rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestDeleteTransaction(t *testing.T) {
	s, st, _ := newTestServer(t)

	tx := st.AddTransaction(store.TransactionInput{Amount: "10", Type: "expense", Category: "Groceries"})

	rec := doForm(s, http.MethodDelete, "/transactions/"+tx.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("HX-Trigger"), "transaction:deleted") {
		t.Fatal("missing delete trigger")
	}
	if len(st.Transactions()) != 0 {
		t.Fatal("transaction should be gone")
	}
}

func TestCategoryLifecycle(t *testing.T) {
	s, st, _ := newTestServer(t)

	if rec := doForm(s, http.MethodPost, "/categories", url.Values{"name": {"Gym"}}); rec.Code != http.StatusOK {
		t.Fatalf("add status = %d", rec.Code)
	}
	// Duplicate
	if rec := doForm(s, http.MethodPost, "/categories", url.Values{"name": {"Gym"}}); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("duplicate status = %d", rec.Code)
	}

	if rec := doForm(s, http.MethodDelete, "/categories/Gym", nil); rec.Code != http.StatusOK {
		t.Fatalf("remove status = %d", rec.Code)
	}

	for _, c := range st.Categories() {
		if c == "Gym" {
			t.Fatal("category should be removed")
		}
	}
}

func TestRemoveCategoryProtected(t *testing.T) {
	s, st, _ := newTestServer(t)

	// Built-in categories can never be removed.
	if rec := doForm(s, http.MethodDelete, "/categories/Groceries", nil); rec.Code != http.StatusConflict {
		t.Fatalf("default status = %d", rec.Code)
	}

	// A custom category referenced by a transaction is protected too.
	st.AddCategory("Gym")
	st.AddTransaction(store.TransactionInput{Amount: "10", Type: "expense", Category: "Gym"})
	if rec := doForm(s, http.MethodDelete, "/categories/Gym", nil); rec.Code != http.StatusConflict {
		t.Fatalf("in-use status = %d", rec.Code)
	}
}

func TestSetCurrency(t *testing.T) {
	s, st, _ := newTestServer(t)

	if rec := doForm(s, http.MethodPost, "/settings/currency", url.Values{"currency": {"eur"}}); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if st.Currency() != "EUR" {
		t.Fatalf("currency = %s", st.Currency())
	}

	if rec := doForm(s, http.MethodPost, "/settings/currency", url.Values{"currency": {"xx"}}); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("short code status = %d", rec.Code)
	}
	if st.Currency() != "EUR" {
		t.Fatal("invalid code must not change currency")
	}
}

func TestExportDownload(t *testing.T) {
	s, st, _ := newTestServer(t)
	st.AddTransaction(store.TransactionInput{Amount: "10", Type: "income", Category: "Salary"})

	rec := doGet(s, "/settings/export")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Fatalf("disposition = %q", cd)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"appVersion"`) || !strings.Contains(body, `"Salary"`) {
		t.Fatalf("unexpected export body: %s", body)
	}
}

func TestImportRawJSON(t *testing.T) {
	s, st, _ := newTestServer(t)

	payload := `{"currency": "EUR", "transactions": [], "categories": ["Groceries", "Gym"]}`
	req := httptest.NewRequest(http.MethodPost, "/settings/import", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("HX-Refresh") != "true" {
		t.Fatal("import should force a page refresh")
	}
	if st.Currency() != "EUR" {
		t.Fatalf("currency = %s", st.Currency())
	}
	if len(st.Categories()) != 2 {
		t.Fatalf("categories = %v", st.Categories())
	}
}

func TestImportMultipartUpload(t *testing.T) {
	s, st, _ := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "backup.json")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write([]byte(`{"currency": "GBP"}`))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/settings/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if st.Currency() != "GBP" {
		t.Fatalf("currency = %s", st.Currency())
	}
}

func TestImportRejectsNonObject(t *testing.T) {
	s, st, _ := newTestServer(t)
	st.SetCurrency("EUR")

	req := httptest.NewRequest(http.MethodPost, "/settings/import", strings.NewReader(`[1, 2, 3]`))
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	if st.Currency() != "EUR" {
		t.Fatal("rejected import must not mutate state")
	}
}

func TestClearAll(t *testing.T) {
	s, st, _ := newTestServer(t)
	st.AddTransaction(store.TransactionInput{Amount: "10", Type: "expense", Category: "Groceries"})
	st.AddCategory("Gym")

	rec := doForm(s, http.MethodPost, "/settings/clear", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(st.Transactions()) != 0 {
		t.Fatal("transactions should be cleared")
	}
	if len(st.Categories()) != 19 {
		t.Fatalf("categories should reset to defaults, got %d", len(st.Categories()))
	}
}

func TestSetView(t *testing.T) {
	s, st, _ := newTestServer(t)

	rec := doForm(s, http.MethodPost, "/view/settings", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := st.Snapshot().CurrentView; got != "settings" {
		t.Fatalf("view = %s", got)
	}

	if rec := doForm(s, http.MethodPost, "/view/bogus", nil); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unknown view status = %d", rec.Code)
	}
}

func TestPartialsRender(t *testing.T) {
	s, st, _ := newTestServer(t)
	st.AddTransaction(store.TransactionInput{Amount: "100", Type: "income", Category: "Salary", Description: "pay"})
	st.AddTransaction(store.TransactionInput{Amount: "40", Type: "expense", Category: "Groceries"})

	rec := doGet(s, "/ui/summary")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "$100.00") {
		t.Fatalf("summary: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doGet(s, "/ui/transactions")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "pay") {
		t.Fatalf("transactions: status = %d", rec.Code)
	}

	rec = doGet(s, "/ui/categories")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Groceries") {
		t.Fatalf("categories: status = %d", rec.Code)
	}

	rec = doGet(s, "/ui/chart")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Groceries") {
		t.Fatalf("chart: status = %d", rec.Code)
	}

	rec = doGet(s, "/ui/insights")
	if rec.Code != http.StatusOK {
		t.Fatalf("insights: status = %d", rec.Code)
	}
}

func TestModalOpenClose(t *testing.T) {
	s, st, _ := newTestServer(t)
	tx := st.AddTransaction(store.TransactionInput{Amount: "10", Type: "expense", Category: "Groceries", Description: "milk"})

	rec := doForm(s, http.MethodPost, "/modal/open", url.Values{
		"modal":      {"transaction"},
		"editing_id": {tx.ID},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("open status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "milk") {
		t.Fatal("edit modal should prefill the transaction")
	}
	if snap := st.Snapshot(); snap.Modal != "transaction" || snap.EditingID != tx.ID {
		t.Fatalf("modal state = %+v", snap.Modal)
	}

	if rec := doForm(s, http.MethodPost, "/modal/close", nil); rec.Code != http.StatusOK {
		t.Fatalf("close status = %d", rec.Code)
	}
	if snap := st.Snapshot(); snap.Modal != "" || snap.EditingID != "" {
		t.Fatal("modal state should be cleared")
	}

	if rec := doForm(s, http.MethodPost, "/modal/open", url.Values{"modal": {"bogus"}}); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unknown modal status = %d", rec.Code)
	}
}

func TestMutationsAreRateLimited(t *testing.T) {
	s, _, _ := newTestServer(t)

	var limited bool
	for i := 0; i < 70; i++ {
		rec := doForm(s, http.MethodPost, "/settings/currency", url.Values{"currency": {"usd"}})
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			if rec.Header().Get("Retry-After") == "" {
				t.Fatal("429 must carry Retry-After")
			}
			break
		}
	}
	if !limited {
		t.Fatal("expected rate limiting to kick in")
	}
}

func TestSummaryCacheInvalidation(t *testing.T) {
	s, st, _ := newTestServer(t)

	if body := doGet(s, "/ui/summary").Body.String(); !strings.Contains(body, "$0.00") {
		t.Fatalf("initial summary: %s", body)
	}

	st.AddTransaction(store.TransactionInput{Amount: "75", Type: "income", Category: "Salary"})

	// The mutation must purge the cached projection.
	if body := doGet(s, "/ui/summary").Body.String(); !strings.Contains(body, "$75.00") {
		t.Fatalf("stale summary after mutation: %s", body)
	}
}
