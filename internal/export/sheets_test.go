package export

import (
	"testing"

	"caixa/internal/core"
)

func TestEntryRowExpense(t *testing.T) {
	entry := core.Entry{
		Description: "Mercado",
		Category:    "Alimentação",
		Amount:      core.Money{Cents: 12345},
		Date:        core.NewDate(2025, 8, 15),
		Paid:        true,
	}

	row := entryRow(entry, core.KindExpense)

	want := []any{"2025-08-15", "despesa", "Mercado", "Alimentação", 123.45, "sim"}
	if len(row) != len(want) {
		t.Fatalf("row length = %d, want %d", len(row), len(want))
	}
	for i := range want {
		if row[i] != want[i] {
			t.Errorf("row[%d] = %v, want %v", i, row[i], want[i])
		}
	}
}

func TestEntryRowIncomeHasNoPaidFlag(t *testing.T) {
	entry := core.Entry{
		Description: "Salário",
		Category:    "Trabalho",
		Amount:      core.Money{Cents: 500000},
		Date:        core.NewDate(2025, 8, 1),
		Paid:        true,
	}

	row := entryRow(entry, core.KindIncome)

	if row[1] != "receita" {
		t.Errorf("kind label = %v, want receita", row[1])
	}
	if row[5] != "" {
		t.Errorf("paid column = %v, want empty for incomes", row[5])
	}
}
