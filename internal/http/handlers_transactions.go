package http

import (
	"errors"
	"log/slog"
	"net/http"
	"unicode"

	"caixa/internal/core"
	"caixa/internal/store"
)

type transactionsPageData struct {
	UserName  string
	IsAdmin   bool
	Title     string
	KindLabel string
	KindPath  string
	IsExpense bool
	Filter    string
	Entries   []entryView
}

type entryListData struct {
	KindPath  string
	IsExpense bool
	Filter    string
	Entries   []entryView
}

// handleTransactionsPage renders the full list page for one kind.
func (s *Server) handleTransactionsPage(w http.ResponseWriter, r *http.Request, kind core.Kind) {
	sess := sessionFrom(r.Context())
	cli := sess.clientFor(kind)

	// Pull fresh rows on full page loads; the cached list still renders
	// if the store is down.
	if err := cli.Refresh(r.Context()); err != nil {
		slog.WarnContext(r.Context(), "List refresh failed", "kind", string(kind), "error", err)
	}

	title := "Receitas"
	if kind == core.KindExpense {
		title = "Despesas"
	}

	s.renderPage(w, "transacoes.html", transactionsPageData{
		UserName:  sess.user.Name,
		IsAdmin:   sess.user.IsAdmin(),
		Title:     title,
		KindLabel: kindLabel(kind),
		KindPath:  kindPath(kind),
		IsExpense: kind == core.KindExpense,
		Entries:   newEntryViews(cli.Entries(), kind),
	})
}

// handleEntryList serves the table body partial, optionally narrowed
// by the categoria query parameter. Filtering never hits the store.
func (s *Server) handleEntryList(w http.ResponseWriter, r *http.Request, kind core.Kind) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	sess := sessionFrom(r.Context())
	cli := sess.clientFor(kind)

	term := sanitizeInput(r.URL.Query().Get("categoria"))
	entries := cli.Entries()
	if term != "" {
		entries = cli.Filter(term)
	}

	s.writeEntryList(w, NewHTMXResponse(), kind, term, entries)
}

// handleCreateEntry inserts a new transaction and answers with the
// refreshed list. The store write happens before anything renders.
func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request, kind core.Kind) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	entry, err := ParseEntryForm(r.PostForm).ToEntry()
	if err != nil {
		UnprocessableEntityError(formErrorMessage(err)).Write(w)
		return
	}
	entry.ID = ""

	sess := sessionFrom(r.Context())
	cli := sess.clientFor(kind)

	if _, err := cli.Create(r.Context(), entry); err != nil {
		s.writeMutationError(w, r, kind, "salvar", err)
		return
	}

	resp := NewHTMXResponse().
		Status(http.StatusCreated).
		TriggerEntryCreated(string(kind)).
		TriggerSummaryRefresh().
		TriggerFormReset().
		TriggerSuccessNotification(upperFirst(kindLabel(kind)) + " adicionada")
	s.writeEntryList(w, resp, kind, "", cli.Entries())
}

// handleUpdateEntry replaces all fields of an existing transaction.
func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request, kind core.Kind) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	form := ParseEntryForm(r.PostForm)
	if form.ID == "" {
		BadRequestError("Identificador da transação ausente").Write(w)
		return
	}

	entry, err := form.ToEntry()
	if err != nil {
		UnprocessableEntityError(formErrorMessage(err)).Write(w)
		return
	}

	sess := sessionFrom(r.Context())
	cli := sess.clientFor(kind)

	if err := cli.Update(r.Context(), entry); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFoundError("Transação não encontrada").Write(w)
			return
		}
		s.writeMutationError(w, r, kind, "atualizar", err)
		return
	}

	resp := NewHTMXResponse().
		TriggerEntryUpdated(string(kind)).
		TriggerSummaryRefresh().
		TriggerSuccessNotification(upperFirst(kindLabel(kind)) + " atualizada")
	s.writeEntryList(w, resp, kind, "", cli.Entries())
}

// handleDeleteEntry removes a transaction. Deleting an id that is
// already gone answers success, the end state is the same.
func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request, kind core.Kind) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}

	id := EntryIDFromRequest(r)
	if id == "" {
		BadRequestError("Identificador da transação ausente").Write(w)
		return
	}

	sess := sessionFrom(r.Context())
	cli := sess.clientFor(kind)

	if err := cli.Delete(r.Context(), id); err != nil {
		s.writeMutationError(w, r, kind, "excluir", err)
		return
	}

	resp := NewHTMXResponse().
		TriggerEntryDeleted(string(kind)).
		TriggerSummaryRefresh().
		TriggerSuccessNotification(upperFirst(kindLabel(kind)) + " excluída")
	s.writeEntryList(w, resp, kind, "", cli.Entries())
}

// handleTogglePaid flips the paid flag. The client already applied the
// flip locally and reverts it when the store write fails, so a failure
// here renders the original state back.
func (s *Server) handleTogglePaid(w http.ResponseWriter, r *http.Request, kind core.Kind) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	id := EntryIDFromRequest(r)
	if id == "" {
		BadRequestError("Identificador da transação ausente").Write(w)
		return
	}

	sess := sessionFrom(r.Context())
	cli := sess.clientFor(kind)

	if _, err := cli.TogglePaid(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFoundError("Transação não encontrada").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Paid toggle failed", "entry_id", id, "error", err)
		resp := NewHTMXResponse().
			Status(http.StatusInternalServerError).
			TriggerErrorNotification("Não foi possível atualizar o pagamento")
		s.writeEntryList(w, resp, kind, "", cli.Entries())
		return
	}

	resp := NewHTMXResponse().TriggerSummaryRefresh()
	s.writeEntryList(w, resp, kind, "", cli.Entries())
}

// writeEntryList renders the list partial onto an already configured
// response builder.
func (s *Server) writeEntryList(w http.ResponseWriter, resp *HTMXResponseBuilder, kind core.Kind, filter string, entries []core.Entry) {
	html, err := s.renderPartial("lista.html", entryListData{
		KindPath:  kindPath(kind),
		IsExpense: kind == core.KindExpense,
		Filter:    filter,
		Entries:   newEntryViews(entries, kind),
	})
	if err != nil {
		InternalServerError("Erro ao montar a lista").Write(w)
		return
	}
	resp.BodyHTML(html).Write(w)
}

func (s *Server) writeMutationError(w http.ResponseWriter, r *http.Request, kind core.Kind, verb string, err error) {
	if errors.Is(err, store.ErrUnavailable) {
		slog.ErrorContext(r.Context(), "Store write failed",
			"kind", string(kind), "action", verb, "error", err)
		InternalServerError("Não foi possível " + verb + " a " + kindLabel(kind) + ". Tente novamente.").Write(w)
		return
	}
	UnprocessableEntityError(formErrorMessage(err)).Write(w)
}

// formErrorMessage maps domain validation errors to pt-BR messages.
func formErrorMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return "Informe um valor válido"
	case errors.Is(err, core.ErrInvalidDate):
		return "Informe uma data válida (AAAA-MM-DD)"
	case errors.Is(err, core.ErrEmptyDescription):
		return "Informe uma descrição"
	case errors.Is(err, core.ErrEmptyCategory):
		return "Informe uma categoria"
	default:
		return "Dados inválidos"
	}
}

func upperFirst(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
