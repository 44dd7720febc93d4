package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"caixa/internal/core"
)

func TestParseEntryForm(t *testing.T) {
	form := url.Values{
		"id":        {" abc "},
		"descricao": {"  Mercado\x00 "},
		"valor":     {" 12,34 "},
		"categoria": {"Alimentação"},
		"data":      {"2025-08-15"},
		"pago":      {"on"},
	}

	got := ParseEntryForm(form)

	if got.ID != "abc" {
		t.Errorf("ID = %q, want abc", got.ID)
	}
	if got.Description != "Mercado" {
		t.Errorf("Description = %q, want Mercado", got.Description)
	}
	if got.Amount != "12,34" {
		t.Errorf("Amount = %q, want 12,34", got.Amount)
	}
	if !got.Paid {
		t.Error("Paid = false, want true")
	}
}

func TestEntryFormToEntry(t *testing.T) {
	form := EntryForm{
		Description: "Mercado",
		Amount:      "12,34",
		Category:    "Alimentação",
		Date:        "2025-08-15",
	}

	entry, err := form.ToEntry()
	if err != nil {
		t.Fatalf("ToEntry() error = %v", err)
	}
	if entry.Amount.Cents != 1234 {
		t.Errorf("Cents = %d, want 1234", entry.Amount.Cents)
	}
	if entry.Date.String() != "2025-08-15" {
		t.Errorf("Date = %q, want 2025-08-15", entry.Date.String())
	}
}

func TestEntryFormToEntryDefaultsDateToToday(t *testing.T) {
	form := EntryForm{Description: "Mercado", Amount: "10,00", Category: "Outros"}

	entry, err := form.ToEntry()
	if err != nil {
		t.Fatalf("ToEntry() error = %v", err)
	}
	if entry.Date.IsZero() {
		t.Error("empty date did not fall back to today")
	}
}

func TestEntryFormToEntryRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		form EntryForm
		want error
	}{
		{"bad amount", EntryForm{Amount: "abc", Date: "2025-08-15"}, core.ErrInvalidAmount},
		{"bad date", EntryForm{Amount: "10,00", Date: "someday"}, core.ErrInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.form.ToEntry()
			if !errors.Is(err, tt.want) {
				t.Errorf("ToEntry() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRequestBodyParserJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"id":"e1","valor":12.5}`))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !parser.IsJSON() {
		t.Error("IsJSON() = false, want true")
	}
	if got := parser.Get("id"); got != "e1" {
		t.Errorf("Get(id) = %q, want e1", got)
	}
	if got := parser.Get("valor"); got != "12.5" {
		t.Errorf("Get(valor) = %q, want 12.5", got)
	}
}

func TestRequestBodyParserForm(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("id=e1&descricao=Mercado"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if parser.IsJSON() {
		t.Error("IsJSON() = true, want false")
	}
	if got := parser.Get("descricao"); got != "Mercado" {
		t.Errorf("Get(descricao) = %q, want Mercado", got)
	}
}

func TestEntryIDFromRequestPrefersQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodDelete, "/despesas/excluir?id=q1", strings.NewReader("id=b1"))
	if got := EntryIDFromRequest(req); got != "q1" {
		t.Errorf("EntryIDFromRequest() = %q, want q1", got)
	}
}

func TestEntryIDFromRequestFallsBackToBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/despesas/pagar", strings.NewReader("id=b1"))
	if got := EntryIDFromRequest(req); got != "b1" {
		t.Errorf("EntryIDFromRequest() = %q, want b1", got)
	}
}
