// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP
// request data, shared by the form and htmx handlers.

package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"caixa/internal/core"
)

// EntryForm holds the raw field values of a transaction form.
type EntryForm struct {
	ID          string
	Description string
	Amount      string
	Category    string
	Date        string
	Paid        bool
}

// ParseEntryForm extracts and sanitizes the transaction fields.
func ParseEntryForm(form url.Values) EntryForm {
	return EntryForm{
		ID:          sanitizeInput(form.Get("id")),
		Description: sanitizeInput(form.Get("descricao")),
		Amount:      strings.TrimSpace(form.Get("valor")),
		Category:    sanitizeInput(form.Get("categoria")),
		Date:        strings.TrimSpace(form.Get("data")),
		Paid:        form.Get("pago") == "on" || form.Get("pago") == "true",
	}
}

// ToEntry converts the form into a domain entry. The date falls back
// to today when absent and the amount must parse as a decimal.
func (f EntryForm) ToEntry() (core.Entry, error) {
	cents, err := core.ParseDecimalToCents(f.Amount)
	if err != nil {
		return core.Entry{}, err
	}

	date := core.Today()
	if f.Date != "" {
		date, err = core.ParseDate(f.Date)
		if err != nil {
			return core.Entry{}, err
		}
	}

	return core.Entry{
		ID:          f.ID,
		Description: f.Description,
		Amount:      core.Money{Cents: cents},
		Category:    f.Category,
		Date:        date,
		Paid:        f.Paid,
	}, nil
}

// RequestBodyParser handles different content types for request body
// parsing. It supports both JSON and form-encoded data, commonly used
// with htmx.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}

	p.body, p.err = io.ReadAll(r.Body)
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	// Try JSON first if content looks like JSON
	if p.body[0] == '{' || p.body[0] == '[' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	// Fall back to form parsing
	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// RequireMethod checks if the request method matches the expected
// method(s). Returns an error response builder if it doesn't.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequirePOST is a convenience function for POST-only handlers.
func RequirePOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}

// RequireDeleteOrPOST is a convenience function for DELETE/POST handlers.
func RequireDeleteOrPOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodDelete, http.MethodPost)
}

// ParseFormOrFail parses the request form and returns an error
// response on failure. Returns nil on success.
func ParseFormOrFail(r *http.Request) *HTMXResponseBuilder {
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Formato de requisição inválido")
	}
	return nil
}

// EntryIDFromRequest digs the entry id out of a delete/toggle request,
// accepting JSON bodies, form bodies and the query string.
func EntryIDFromRequest(r *http.Request) string {
	if id := sanitizeInput(r.URL.Query().Get("id")); id != "" {
		return id
	}
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		return ""
	}
	return parser.Get("id")
}
