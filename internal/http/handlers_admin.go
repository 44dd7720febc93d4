package http

import (
	"errors"
	"log/slog"
	"net/http"

	"caixa/internal/core"
	"caixa/internal/store"
)

type profilePageData struct {
	UserName  string
	UserEmail string
	Role      string
	IsAdmin   bool
}

type userView struct {
	ID      string
	Name    string
	Email   string
	Role    string
	IsSelf  bool
	IsAdmin bool
}

type usersPageData struct {
	UserName string
	IsAdmin  bool
	Users    []userView
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	sess := sessionFrom(r.Context())
	s.renderPage(w, "perfil.html", profilePageData{
		UserName:  sess.user.Name,
		UserEmail: sess.user.Email,
		Role:      sess.user.Role,
		IsAdmin:   sess.user.IsAdmin(),
	})
}

// handleUsersPage lists every registered user. The store enforces the
// admin role, normal users get a 403.
func (s *Server) handleUsersPage(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	sess := sessionFrom(r.Context())
	users, err := s.users.ListUsers(r.Context(), sess.user)
	if err != nil {
		if errors.Is(err, store.ErrPermissionDenied) {
			ForbiddenError("Acesso restrito a administradores").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "User listing failed", "error", err)
		InternalServerError("Não foi possível carregar os usuários").Write(w)
		return
	}

	s.renderPage(w, "usuarios.html", usersPageData{
		UserName: sess.user.Name,
		IsAdmin:  sess.user.IsAdmin(),
		Users:    newUserViews(users, sess.user),
	})
}

// handleDeleteUser removes a user row and drops any live session that
// user had, so their next request lands on /login.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}

	id := EntryIDFromRequest(r)
	if id == "" {
		BadRequestError("Identificador do usuário ausente").Write(w)
		return
	}

	sess := sessionFrom(r.Context())
	if id == sess.user.ID {
		UnprocessableEntityError("Você não pode excluir a própria conta").Write(w)
		return
	}

	if err := s.users.DeleteUser(r.Context(), sess.user, id); err != nil {
		if errors.Is(err, store.ErrPermissionDenied) {
			ForbiddenError("Acesso restrito a administradores").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "User deletion failed", "user_id", id, "error", err)
		InternalServerError("Não foi possível excluir o usuário").Write(w)
		return
	}

	s.sessions.Delete(id)
	slog.InfoContext(r.Context(), "User deleted", "user_id", id, "actor_id", sess.user.ID)

	users, err := s.users.ListUsers(r.Context(), sess.user)
	if err != nil {
		slog.WarnContext(r.Context(), "User list reload failed", "error", err)
	}

	html, err := s.renderPartial("usuarios_lista.html", newUserViews(users, sess.user))
	if err != nil {
		InternalServerError("Erro ao montar a lista de usuários").Write(w)
		return
	}
	NewHTMXResponse().
		TriggerSuccessNotification("Usuário excluído").
		BodyHTML(html).
		Write(w)
}

func newUserViews(users []core.User, actor core.User) []userView {
	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, userView{
			ID:      u.ID,
			Name:    u.Name,
			Email:   u.Email,
			Role:    u.Role,
			IsSelf:  u.ID == actor.ID,
			IsAdmin: u.IsAdmin(),
		})
	}
	return views
}
