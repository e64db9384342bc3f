package core

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestDefaultCategories(t *testing.T) {
	if len(DefaultCategories) != 19 {
		t.Fatalf("expected 19 default categories, got %d", len(DefaultCategories))
	}
	seen := map[string]bool{}
	for _, name := range DefaultCategories {
		if seen[name] {
			t.Fatalf("duplicate default category %q", name)
		}
		seen[name] = true
		if !IsDefaultCategory(name) {
			t.Fatalf("IsDefaultCategory(%q) = false", name)
		}
	}
	if IsDefaultCategory("groceries") {
		t.Fatal("matching must be case-sensitive")
	}
	if IsDefaultCategory("My Custom") {
		t.Fatal("user category reported as default")
	}
}

func TestTransactionValidate(t *testing.T) {
	valid := Transaction{
		Amount:   decimal.NewFromInt(10),
		Type:     Expense,
		Category: "Groceries",
		Date:     NewDate(2025, 1, 5),
	}

	cases := []struct {
		name   string
		mutate func(*Transaction)
		err    error
	}{
		{"valid", func(*Transaction) {}, nil},
		{"zero amount", func(tx *Transaction) { tx.Amount = decimal.Zero }, ErrInvalidAmount},
		{"negative amount", func(tx *Transaction) { tx.Amount = decimal.NewFromInt(-3) }, ErrInvalidAmount},
		{"bad type", func(tx *Transaction) { tx.Type = "transfer" }, ErrInvalidType},
		{"blank category", func(tx *Transaction) { tx.Category = "  " }, ErrEmptyCategory},
		{"zero date", func(tx *Transaction) { tx.Date = Date{} }, ErrInvalidDate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx := valid
			tc.mutate(&tx)
			if err := tx.Validate(); err != tc.err {
				t.Fatalf("Validate() = %v, want %v", err, tc.err)
			}
		})
	}
}

func TestDateJSON(t *testing.T) {
	d := NewDate(2025, 1, 5)
	raw, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `"2025-01-05"` {
		t.Fatalf("marshal = %s", raw)
	}

	cases := []struct {
		in   string
		want string
	}{
		{`"2025-01-05"`, "2025-01-05"},
		{`""`, ""},
		{`null`, ""},
		{`"not a date"`, ""}, // lenient: malformed decodes to zero
		{`42`, ""},
	}
	for _, tc := range cases {
		var got Date
		if err := json.Unmarshal([]byte(tc.in), &got); err != nil {
			t.Fatalf("unmarshal %s: %v", tc.in, err)
		}
		if got.String() != tc.want {
			t.Fatalf("unmarshal %s = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeCurrency(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"usd", "USD", true},
		{"EUR", "EUR", true},
		{" gbp ", "GBP", true},
		{"us", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := NormalizeCurrency(tc.in)
		if tc.ok != (err == nil) || got != tc.want {
			t.Fatalf("NormalizeCurrency(%q) = %q, %v", tc.in, got, err)
		}
	}
}
