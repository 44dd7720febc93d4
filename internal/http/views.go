package http

import (
	"bytes"
	"fmt"

	"caixa/internal/core"
)

// entryView is one rendered row of a transaction list.
type entryView struct {
	ID          string
	Description string
	Category    string
	AmountLabel string
	DateISO     string
	DateLabel   string
	Paid        bool
	KindPath    string
}

// activityView is one rendered row of the recent-transactions feed.
type activityView struct {
	Description string
	AmountLabel string
	DateLabel   string
	KindLabel   string
	IsIncome    bool
}

// summaryView carries the formatted dashboard totals.
type summaryView struct {
	TotalIncome  string
	TotalExpense string
	Balance      string
	Negative     bool
}

func newEntryView(e core.Entry, kind core.Kind) entryView {
	return entryView{
		ID:          e.ID,
		Description: e.Description,
		Category:    e.Category,
		AmountLabel: formatReais(e.Amount.Cents),
		DateISO:     e.Date.String(),
		DateLabel:   formatDateBR(e.Date),
		Paid:        e.Paid,
		KindPath:    kindPath(kind),
	}
}

func newEntryViews(entries []core.Entry, kind core.Kind) []entryView {
	views := make([]entryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, newEntryView(e, kind))
	}
	return views
}

func newActivityViews(items []core.Activity) []activityView {
	views := make([]activityView, 0, len(items))
	for _, a := range items {
		views = append(views, activityView{
			Description: a.Description,
			AmountLabel: formatReais(a.Amount.Cents),
			DateLabel:   formatDateBR(a.Date),
			KindLabel:   kindLabel(a.Kind),
			IsIncome:    a.Kind == core.KindIncome,
		})
	}
	return views
}

func newSummaryView(s core.Summary) summaryView {
	return summaryView{
		TotalIncome:  formatReais(s.TotalIncome.Cents),
		TotalExpense: formatReais(s.TotalExpense.Cents),
		Balance:      formatReais(s.Balance.Cents),
		Negative:     s.Balance.Cents < 0,
	}
}

// formatDateBR renders a date as DD/MM/YYYY for display.
func formatDateBR(d core.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.Format("02/01/2006")
}

// renderPartial executes one named template into a string so the
// result can travel on an htmx response builder.
func (s *Server) renderPartial(name string, data any) (string, error) {
	if s.templates == nil {
		return "", fmt.Errorf("templates not loaded")
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
