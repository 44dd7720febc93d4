package http

import (
	"encoding/json"
	"net/http"
	"time"

	"caixa/internal/core"
)

const chartMonths = 6

type dashboardPageData struct {
	UserName string
	IsAdmin  bool
	Summary  summaryView
	Recent   []activityView
}

// handleDashboard renders the full dashboard page. The summary cards,
// chart and recent feed also refresh independently through /ui/.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		NotFoundError("Página não encontrada").Write(w)
		return
	}
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	sess := sessionFrom(r.Context())
	incomes := sess.incomes.Entries()
	expenses := sess.expenses.Entries()

	s.renderPage(w, "dashboard.html", dashboardPageData{
		UserName: sess.user.Name,
		IsAdmin:  sess.user.IsAdmin(),
		Summary:  newSummaryView(core.Totals(incomes, expenses)),
		Recent:   newActivityViews(core.RecentActivity(incomes, expenses, s.recentLimit)),
	})
}

// handleSummary serves the totals cards as an htmx partial.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	sess := sessionFrom(r.Context())
	summary := core.Totals(sess.incomes.Entries(), sess.expenses.Entries())

	html, err := s.renderPartial("resumo.html", newSummaryView(summary))
	if err != nil {
		InternalServerError("Erro ao montar o resumo").Write(w)
		return
	}
	NewHTMXResponse().BodyHTML(html).Write(w)
}

// chartPayload is the JSON shape the dashboard chart consumes.
type chartPayload struct {
	Labels   []string  `json:"labels"`
	Receitas []float64 `json:"receitas"`
	Despesas []float64 `json:"despesas"`
}

// handleChartData serves the six-month cash-flow series as JSON.
func (s *Server) handleChartData(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	sess := sessionFrom(r.Context())
	series := core.MonthlySeries(sess.incomes.Entries(), sess.expenses.Entries(), time.Now().UTC(), chartMonths)

	payload := chartPayload{
		Labels:   make([]string, 0, len(series)),
		Receitas: make([]float64, 0, len(series)),
		Despesas: make([]float64, 0, len(series)),
	}
	for _, bucket := range series {
		payload.Labels = append(payload.Labels, bucket.Label)
		payload.Receitas = append(payload.Receitas, bucket.Income.Reais())
		payload.Despesas = append(payload.Despesas, bucket.Expense.Reais())
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

// handleRecent serves the recent-transactions feed as an htmx partial.
func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	sess := sessionFrom(r.Context())
	recent := core.RecentActivity(sess.incomes.Entries(), sess.expenses.Entries(), s.recentLimit)

	html, err := s.renderPartial("recentes.html", newActivityViews(recent))
	if err != nil {
		InternalServerError("Erro ao montar as transações recentes").Write(w)
		return
	}
	NewHTMXResponse().BodyHTML(html).Write(w)
}
