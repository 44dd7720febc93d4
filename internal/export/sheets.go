// Package export writes a user's transactions to a Google spreadsheet,
// one row per entry, so the data can leave the app for ad-hoc analysis.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"caixa/internal/config"
	"caixa/internal/core"
	"caixa/internal/store"
)

// headerRow is the first row written on every export.
var headerRow = []any{"Data", "Tipo", "Descrição", "Categoria", "Valor (R$)", "Pago"}

type Exporter struct {
	svc           *gsheet.Service
	entries       store.EntryStore
	spreadsheetID string
	sheetName     string
}

// New builds an exporter from the export settings. Credentials come
// either inline as JSON or from a service account file.
func New(ctx context.Context, cfg *config.Config, entries store.EntryStore) (*Exporter, error) {
	if err := cfg.ValidateExport(); err != nil {
		return nil, err
	}

	credentialsJSON := []byte(cfg.GoogleCredentialsJSON)
	if len(credentialsJSON) == 0 {
		var err error
		credentialsJSON, err = os.ReadFile(cfg.GoogleCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Exporter{
		svc:           svc,
		entries:       entries,
		spreadsheetID: cfg.GoogleSpreadsheetID,
		sheetName:     cfg.GoogleSheetName,
	}, nil
}

// ExportUser replaces the sheet contents with every entry the user
// owns, incomes first, newest first within each kind. Returns the
// number of exported rows.
func (e *Exporter) ExportUser(ctx context.Context, ownerID string) (int, error) {
	if e.svc == nil {
		return 0, errors.New("sheets service not initialized")
	}

	rows := [][]any{headerRow}
	for _, kind := range []core.Kind{core.KindIncome, core.KindExpense} {
		entries, err := e.entries.Select(ctx, kind, ownerID)
		if err != nil {
			return 0, fmt.Errorf("load %s entries: %w", kind, err)
		}
		for _, entry := range entries {
			rows = append(rows, entryRow(entry, kind))
		}
	}

	// Clear first so rows removed since the last export do not linger.
	clearRange := fmt.Sprintf("%s!A:F", e.sheetName)
	if _, err := e.svc.Spreadsheets.Values.Clear(e.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return 0, fmt.Errorf("clear sheet %s: %w", e.sheetName, err)
	}

	writeRange := fmt.Sprintf("%s!A1", e.sheetName)
	vr := &gsheet.ValueRange{Values: rows}
	if _, err := e.svc.Spreadsheets.Values.Update(e.spreadsheetID, writeRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return 0, fmt.Errorf("write sheet %s: %w", e.sheetName, err)
	}

	exported := len(rows) - 1
	slog.InfoContext(ctx, "Export finished",
		"owner_id", ownerID, "rows", exported, "spreadsheet_id", e.spreadsheetID)
	return exported, nil
}

func entryRow(entry core.Entry, kind core.Kind) []any {
	label := "receita"
	paid := ""
	if kind == core.KindExpense {
		label = "despesa"
		paid = "não"
		if entry.Paid {
			paid = "sim"
		}
	}
	return []any{
		entry.Date.String(),
		label,
		entry.Description,
		entry.Category,
		entry.Amount.Reais(),
		paid,
	}
}
