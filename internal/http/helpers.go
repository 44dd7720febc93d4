package http

import (
	"fmt"
	"strconv"
	"strings"

	"caixa/internal/core"
	"caixa/internal/log"
)

// formatReais formats cents as a Real currency string (e.g. "R$ 12,34").
func formatReais(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	reais := cents / 100
	rem := cents % 100
	s := strconv.FormatInt(reais, 10) + "," + fmt.Sprintf("%02d", rem)
	if neg {
		return "-R$ " + s
	}
	return "R$ " + s
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// kindLabel is the pt-BR singular for a transaction kind.
func kindLabel(kind core.Kind) string {
	if kind == core.KindIncome {
		return "receita"
	}
	return "despesa"
}

// kindPath is the URL segment for a transaction kind.
func kindPath(kind core.Kind) string {
	if kind == core.KindIncome {
		return "receitas"
	}
	return "despesas"
}

func defaultLogger() *log.Logger {
	return log.New(log.DefaultConfig())
}
