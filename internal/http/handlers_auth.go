package http

import (
	"errors"
	"log/slog"
	"net/http"

	"caixa/internal/auth"
)

type authPageData struct {
	Error string
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, err := s.sessionFromRequest(r); err == nil {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		s.renderPage(w, "login.html", authPageData{})
	case http.MethodPost:
		s.handleSignIn(w, r)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	email := sanitizeInput(r.PostForm.Get("email"))
	password := r.PostForm.Get("senha")

	token, user, err := s.auth.SignIn(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.authFailure(w, r, "login.html", http.StatusUnauthorized, "E-mail ou senha inválidos")
			return
		}
		slog.ErrorContext(r.Context(), "Sign-in failed", "error", err)
		s.authFailure(w, r, "login.html", http.StatusInternalServerError, "Não foi possível entrar. Tente novamente.")
		return
	}

	s.setSessionCookie(w, token)
	slog.InfoContext(r.Context(), "User signed in", "user_id", user.ID)
	s.authRedirect(w, r, "/")
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.renderPage(w, "register.html", authPageData{})
	case http.MethodPost:
		s.handleSignUp(w, r)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	name := sanitizeInput(r.PostForm.Get("nome"))
	email := sanitizeInput(r.PostForm.Get("email"))
	password := r.PostForm.Get("senha")

	user, err := s.auth.SignUp(r.Context(), name, email, password)
	if err != nil {
		msg, status := signUpErrorMessage(err)
		if status == http.StatusInternalServerError {
			slog.ErrorContext(r.Context(), "Sign-up failed", "error", err)
		}
		s.authFailure(w, r, "register.html", status, msg)
		return
	}

	// Sign the fresh account straight in so the user lands on the
	// dashboard instead of a second form.
	token, _, err := s.auth.SignIn(r.Context(), email, password)
	if err != nil {
		slog.WarnContext(r.Context(), "Post-signup sign-in failed", "user_id", user.ID, "error", err)
		s.authRedirect(w, r, "/login")
		return
	}

	s.setSessionCookie(w, token)
	slog.InfoContext(r.Context(), "User registered", "user_id", user.ID)
	s.authRedirect(w, r, "/")
}

func signUpErrorMessage(err error) (string, int) {
	switch {
	case errors.Is(err, auth.ErrMissingField):
		return "Preencha nome e e-mail", http.StatusUnprocessableEntity
	case errors.Is(err, auth.ErrWeakPassword):
		return "A senha deve ter pelo menos 8 caracteres", http.StatusUnprocessableEntity
	case errors.Is(err, auth.ErrEmailTaken):
		return "Este e-mail já está cadastrado", http.StatusConflict
	default:
		return "Não foi possível criar a conta. Tente novamente.", http.StatusInternalServerError
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		if userID, err := s.auth.ParseToken(cookie.Value); err == nil {
			s.sessions.Delete(userID)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.authRedirect(w, r, "/login")
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.auth.TokenTTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// authRedirect navigates after an auth action: htmx callers get an
// HX-Redirect, plain form posts get a 303.
func (s *Server) authRedirect(w http.ResponseWriter, r *http.Request, target string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// authFailure shows an error either as an htmx fragment or by
// re-rendering the full page with the message inlined.
func (s *Server) authFailure(w http.ResponseWriter, r *http.Request, page string, status int, msg string) {
	if r.Header.Get("HX-Request") == "true" {
		ErrorResponse(status, msg).Write(w)
		return
	}
	html, err := s.renderPartial(page, authPageData{Error: msg})
	if err != nil {
		slog.Error("Template render failed", "template", page, "error", err)
		http.Error(w, msg, status)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(html))
}

// renderPage executes a full-page template, logging instead of
// half-writing a body when execution fails.
func (s *Server) renderPage(w http.ResponseWriter, name string, data any) {
	html, err := s.renderPartial(name, data)
	if err != nil {
		slog.Error("Template render failed", "template", name, "error", err)
		http.Error(w, "Erro interno", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}
