// Package http serves the web UI: server-rendered pages with htmx
// partials for the dashboard and the transaction lists.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"caixa/internal/auth"
	"caixa/internal/cache"
	"caixa/internal/client"
	"caixa/internal/core"
	"caixa/internal/middleware/ratelimit"
	"caixa/internal/middleware/security"
	"caixa/internal/middleware/trace"
	"caixa/internal/store"
	appweb "caixa/web"
)

const sessionCookie = "caixa_session"

// session is the per-user state kept between requests: the resolved
// user plus one transaction client per kind.
type session struct {
	user     core.User
	incomes  *client.TransactionClient
	expenses *client.TransactionClient
}

func (s *session) clientFor(kind core.Kind) *client.TransactionClient {
	if kind == core.KindIncome {
		return s.incomes
	}
	return s.expenses
}

// Options configures the server beyond its dependencies.
type Options struct {
	Addr        string
	SessionTTL  time.Duration
	RecentLimit int
}

type Server struct {
	http.Server
	templates *template.Template

	auth    *auth.Service
	entries store.EntryStore
	users   store.UserStore

	sessions    *cache.LRUCache[*session]
	recentLimit int

	limiter    *ratelimit.Limiter
	ipResolver *security.ClientIPResolver

	cancelJanitor context.CancelFunc
	shutdownOnce  sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(opts Options, authSvc *auth.Service, entries store.EntryStore, users store.UserStore) *Server {
	mux := http.NewServeMux()

	if opts.RecentLimit <= 0 {
		opts.RecentLimit = 5
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 12 * time.Hour
	}

	s := &Server{
		auth:        authSvc,
		entries:     entries,
		users:       users,
		sessions:    cache.NewLRUCache[*session](500, opts.SessionTTL),
		recentLimit: opts.RecentLimit,
		limiter:     ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		ipResolver:  security.NewClientIPResolver(),
	}

	janitorCtx, cancel := context.WithCancel(context.Background())
	s.cancelJanitor = cancel
	s.sessions.StartJanitor(janitorCtx, 10*time.Minute)

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/register", s.handleRegister)
	mux.HandleFunc("/logout", s.handleLogout)

	mux.HandleFunc("/", s.requireUser(s.handleDashboard))
	mux.HandleFunc("/ui/resumo", s.requireUser(s.handleSummary))
	mux.HandleFunc("/ui/grafico", s.requireUser(s.handleChartData))
	mux.HandleFunc("/ui/recentes", s.requireUser(s.handleRecent))

	mux.HandleFunc("/receitas", s.requireUser(s.kindHandler(core.KindIncome, s.handleTransactionsPage, s.handleCreateEntry)))
	mux.HandleFunc("/receitas/lista", s.requireUser(s.forKind(core.KindIncome, s.handleEntryList)))
	mux.HandleFunc("/receitas/editar", s.requireUser(s.forKind(core.KindIncome, s.handleUpdateEntry)))
	mux.HandleFunc("/receitas/excluir", s.requireUser(s.forKind(core.KindIncome, s.handleDeleteEntry)))
	mux.HandleFunc("/receitas/pagar", s.requireUser(s.forKind(core.KindIncome, s.handleTogglePaid)))

	mux.HandleFunc("/despesas", s.requireUser(s.kindHandler(core.KindExpense, s.handleTransactionsPage, s.handleCreateEntry)))
	mux.HandleFunc("/despesas/lista", s.requireUser(s.forKind(core.KindExpense, s.handleEntryList)))
	mux.HandleFunc("/despesas/editar", s.requireUser(s.forKind(core.KindExpense, s.handleUpdateEntry)))
	mux.HandleFunc("/despesas/excluir", s.requireUser(s.forKind(core.KindExpense, s.handleDeleteEntry)))
	mux.HandleFunc("/despesas/pagar", s.requireUser(s.forKind(core.KindExpense, s.handleTogglePaid)))

	mux.HandleFunc("/perfil", s.requireUser(s.handleProfile))
	mux.HandleFunc("/usuarios", s.requireUser(s.handleUsersPage))
	mux.HandleFunc("/usuarios/excluir", s.requireUser(s.handleDeleteUser))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(s.ipResolver.ExtractClientIP, defaultLogger())

	var handler http.Handler = mux
	handler = s.limitWrites(handler)
	handler = headers.Middleware(handler)
	handler = tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:    opts.Addr,
		Handler: handler,
	}

	return s
}

// limitWrites rate limits mutating requests per client IP. Reads stay
// unthrottled, the dashboard polls partials.
func (s *Server) limitWrites(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodDelete {
			clientIP := s.ipResolver.ExtractClientIP(r)
			if !s.limiter.Allow(clientIP) {
				slog.WarnContext(r.Context(), "Rate limit exceeded",
					"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
				w.Header().Set("Retry-After", "60")
				http.Error(w, "Limite de requisições excedido. Tente novamente em instantes.", http.StatusTooManyRequests)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// requireUser resolves the session cookie and stashes the session in
// the request context. Browsers get redirected to /login, htmx gets an
// HX-Redirect so the partial swap becomes a full navigation.
func (s *Server) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessionFromRequest(r)
		if err != nil {
			if r.Header.Get("HX-Request") == "true" {
				w.Header().Set("HX-Redirect", "/login")
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r.WithContext(withSession(r.Context(), sess)))
	}
}

func (s *Server) sessionFromRequest(r *http.Request) (*session, error) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil, err
	}

	userID, err := s.auth.ParseToken(cookie.Value)
	if err != nil {
		return nil, err
	}

	if sess, ok := s.sessions.Get(userID); ok {
		return sess, nil
	}

	user, err := s.auth.CurrentUser(r.Context(), cookie.Value)
	if err != nil {
		return nil, err
	}

	sess := &session{
		user:     user,
		incomes:  client.New(s.entries, core.KindIncome, user.ID),
		expenses: client.New(s.entries, core.KindExpense, user.ID),
	}
	// Best effort warm-up. A dead store still gets the user a page,
	// the lists just start empty until a refresh succeeds.
	if err := sess.incomes.Refresh(r.Context()); err != nil {
		slog.WarnContext(r.Context(), "Income warm-up failed", "user_id", user.ID, "error", err)
	}
	if err := sess.expenses.Refresh(r.Context()); err != nil {
		slog.WarnContext(r.Context(), "Expense warm-up failed", "user_id", user.ID, "error", err)
	}

	s.sessions.Set(userID, sess)
	return sess, nil
}

// kindHandler routes GET to the page handler and POST to the create
// handler for one transaction kind.
func (s *Server) kindHandler(kind core.Kind, get func(http.ResponseWriter, *http.Request, core.Kind), post func(http.ResponseWriter, *http.Request, core.Kind)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			get(w, r, kind)
		case http.MethodPost:
			post(w, r, kind)
		default:
			MethodNotAllowedError("GET, POST").Write(w)
		}
	}
}

func (s *Server) forKind(kind core.Kind, h func(http.ResponseWriter, *http.Request, core.Kind)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h(w, r, kind)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if _, err := s.entries.Select(ctx, core.KindExpense, "readiness-probe"); err != nil {
		slog.ErrorContext(ctx, "Readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("store unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Shutdown stops the background routines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.cancelJanitor != nil {
			s.cancelJanitor()
		}
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

type contextKey string

const sessionKey contextKey = "session"

func withSession(ctx context.Context, sess *session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

func sessionFrom(ctx context.Context) *session {
	sess, _ := ctx.Value(sessionKey).(*session)
	return sess
}
