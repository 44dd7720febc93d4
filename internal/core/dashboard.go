package core

import (
	"sort"
	"strings"
	"time"
)

// Summary holds the running totals shown on the dashboard cards.
type Summary struct {
	TotalIncome  Money
	TotalExpense Money
	Balance      Money
}

// MonthBucket is one calendar-month slot of the cash-flow series.
type MonthBucket struct {
	Label   string
	Year    int
	Month   time.Month
	Income  Money
	Expense Money
}

// Activity is one row of the recent-transactions feed, tagged with the
// collection it came from.
type Activity struct {
	ID          string
	Description string
	Amount      Money
	Kind        Kind
	Date        Date
}

// monthLabels holds the pt-BR short month names used as bucket labels.
var monthLabels = [12]string{
	"Jan", "Fev", "Mar", "Abr", "Mai", "Jun",
	"Jul", "Ago", "Set", "Out", "Nov", "Dez",
}

// Totals sums both collections. Empty input yields zero totals and the
// balance is always income minus expense.
func Totals(incomes, expenses []Entry) Summary {
	var s Summary
	for _, e := range incomes {
		s.TotalIncome.Cents += e.Amount.Cents
	}
	for _, e := range expenses {
		s.TotalExpense.Cents += e.Amount.Cents
	}
	s.Balance.Cents = s.TotalIncome.Cents - s.TotalExpense.Cents
	return s
}

// MonthlySeries buckets both collections into `months` consecutive calendar
// months ending at ref's month inclusive, oldest first. Buckets are always
// returned zero-filled; entries outside the window or with a zero date are
// ignored. The window rolls over year boundaries.
func MonthlySeries(incomes, expenses []Entry, ref time.Time, months int) []MonthBucket {
	if months <= 0 {
		return nil
	}
	series := make([]MonthBucket, 0, months)
	for i := months - 1; i >= 0; i-- {
		d := time.Date(ref.Year(), ref.Month()-time.Month(i), 1, 0, 0, 0, 0, time.UTC)
		series = append(series, MonthBucket{
			Label: monthLabels[d.Month()-1],
			Year:  d.Year(),
			Month: d.Month(),
		})
	}
	index := func(d Date) int {
		if d.IsZero() {
			return -1
		}
		for i, b := range series {
			if d.Year() == b.Year && d.Month() == b.Month {
				return i
			}
		}
		return -1
	}
	for _, e := range incomes {
		if i := index(e.Date); i >= 0 {
			series[i].Income.Cents += e.Amount.Cents
		}
	}
	for _, e := range expenses {
		if i := index(e.Date); i >= 0 {
			series[i].Expense.Cents += e.Amount.Cents
		}
	}
	return series
}

// RecentActivity merges both collections into a single feed sorted by date
// descending and truncated to limit. The sort is stable, so entries sharing
// a date keep their pre-merge order (incomes before expenses).
func RecentActivity(incomes, expenses []Entry, limit int) []Activity {
	merged := make([]Activity, 0, len(incomes)+len(expenses))
	for _, e := range incomes {
		merged = append(merged, Activity{
			ID:          e.ID,
			Description: e.Description,
			Amount:      e.Amount,
			Kind:        KindIncome,
			Date:        e.Date,
		})
	}
	for _, e := range expenses {
		merged = append(merged, Activity{
			ID:          e.ID,
			Description: e.Description,
			Amount:      e.Amount,
			Kind:        KindExpense,
			Date:        e.Date,
		})
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Date.After(merged[j].Date.Time)
	})
	if limit < 0 {
		limit = 0
	}
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// FilterByCategory returns the entries whose category contains term,
// case-insensitively. An empty term returns the input unchanged in order.
// Filtering is purely local and never touches the store.
func FilterByCategory(entries []Entry, term string) []Entry {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return entries
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Category), term) {
			out = append(out, e)
		}
	}
	return out
}
