package http

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"caixa/internal/auth"
	"caixa/internal/core"
	"caixa/internal/store"
)

// fakeStore implements the entry, user and account ports in memory.
type fakeStore struct {
	mu       sync.Mutex
	nextID   int
	entries  map[core.Kind][]core.Entry
	users    map[string]core.User
	accounts map[string]store.Account

	failEntries bool
	selectCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		entries:  make(map[core.Kind][]core.Entry),
		users:    make(map[string]core.User),
		accounts: make(map[string]store.Account),
	}
}

func (f *fakeStore) Select(ctx context.Context, kind core.Kind, ownerID string) ([]core.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selectCalls++
	if f.failEntries {
		return nil, store.ErrUnavailable
	}
	var out []core.Entry
	for _, e := range f.entries[kind] {
		if e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) Insert(ctx context.Context, kind core.Kind, e core.Entry) (core.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failEntries {
		return core.Entry{}, store.ErrUnavailable
	}
	f.nextID++
	e.ID = fmt.Sprintf("e%d", f.nextID)
	f.entries[kind] = append(f.entries[kind], e)
	return e, nil
}

func (f *fakeStore) Update(ctx context.Context, kind core.Kind, e core.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failEntries {
		return store.ErrUnavailable
	}
	for i, existing := range f.entries[kind] {
		if existing.ID == e.ID && existing.OwnerID == e.OwnerID {
			f.entries[kind][i] = e
			return nil
		}
	}
	return nil
}

func (f *fakeStore) SetPaid(ctx context.Context, kind core.Kind, id, ownerID string, paid bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failEntries {
		return store.ErrUnavailable
	}
	for i, e := range f.entries[kind] {
		if e.ID == id && e.OwnerID == ownerID {
			f.entries[kind][i].Paid = paid
		}
	}
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, kind core.Kind, id, ownerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failEntries {
		return store.ErrUnavailable
	}
	kept := f.entries[kind][:0]
	for _, e := range f.entries[kind] {
		if e.ID != id || e.OwnerID != ownerID {
			kept = append(kept, e)
		}
	}
	f.entries[kind] = kept
	return nil
}

func (f *fakeStore) PutUser(ctx context.Context, u core.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.Role == "" {
		u.Role = core.RoleNormal
	}
	f.users[u.ID] = u
	return nil
}

func (f *fakeStore) SetRole(ctx context.Context, id, role string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.Role = role
	f.users[id] = u
	return nil
}

func (f *fakeStore) GetUser(ctx context.Context, id string) (core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return core.User{}, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) ListUsers(ctx context.Context, actor core.User) ([]core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !actor.IsAdmin() {
		return nil, store.ErrPermissionDenied
	}
	var out []core.User
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeStore) DeleteUser(ctx context.Context, actor core.User, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !actor.IsAdmin() {
		return store.ErrPermissionDenied
	}
	delete(f.users, id)
	return nil
}

func (f *fakeStore) CreateAccount(ctx context.Context, a store.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.accounts[a.Email]; exists {
		return store.ErrUnavailable
	}
	f.accounts[a.Email] = a
	return nil
}

func (f *fakeStore) GetAccountByEmail(ctx context.Context, email string) (store.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[email]
	if !ok {
		return store.Account{}, store.ErrNotFound
	}
	return a, nil
}

func (f *fakeStore) GetAccount(ctx context.Context, id string) (store.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return store.Account{}, store.ErrNotFound
}

func newTestServer(t *testing.T) (*Server, *fakeStore) {
	t.Helper()

	db := newFakeStore()
	authSvc := auth.NewService(db, db, nil, "test-secret-0123", time.Hour)

	srv := NewServer(Options{
		Addr:        ":0",
		SessionTTL:  time.Hour,
		RecentLimit: 10,
	}, authSvc, db, db)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	return srv, db
}

// signUpAndSignIn registers a user and returns the session cookie.
func signUpAndSignIn(t *testing.T, srv *Server, name, email string) (*http.Cookie, core.User) {
	t.Helper()

	ctx := context.Background()
	user, err := srv.auth.SignUp(ctx, name, email, "senha-forte")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	token, _, err := srv.auth.SignIn(ctx, email, "senha-forte")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	return &http.Cookie{Name: sessionCookie, Value: token}, user
}

func doRequest(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func postForm(srv *Server, path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return doRequest(srv, req)
}

func TestDashboardRequiresLogin(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}
}

func TestDashboardRequiresLoginHTMX(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/ui/resumo", nil)
	req.Header.Set("HX-Request", "true")
	rec := doRequest(srv, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if redirect := rec.Header().Get("HX-Redirect"); redirect != "/login" {
		t.Errorf("HX-Redirect = %q, want /login", redirect)
	}
}

func TestRegisterAndDashboard(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := postForm(srv, "/register", url.Values{
		"nome":  {"Ana"},
		"email": {"ana@example.com"},
		"senha": {"senha-forte"},
	}, nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("register status = %d, want %d", rec.Code, http.StatusSeeOther)
	}

	cookies := rec.Result().Cookies()
	var session *http.Cookie
	for _, c := range cookies {
		if c.Name == sessionCookie {
			session = c
		}
	}
	if session == nil || session.Value == "" {
		t.Fatal("register did not set a session cookie")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(session)
	rec = doRequest(srv, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "Ana") {
		t.Error("dashboard does not greet the signed-in user")
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	srv, _ := newTestServer(t)
	signUpAndSignIn(t, srv, "Ana", "ana@example.com")

	rec := postForm(srv, "/login", url.Values{
		"email": {"ana@example.com"},
		"senha": {"errada-errada"},
	}, nil)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestCreateExpense(t *testing.T) {
	srv, _ := newTestServer(t)
	cookie, _ := signUpAndSignIn(t, srv, "Ana", "ana@example.com")

	rec := postForm(srv, "/despesas", url.Values{
		"descricao": {"Mercado"},
		"valor":     {"123,45"},
		"categoria": {"Alimentação"},
		"data":      {"2025-08-15"},
	}, cookie)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Mercado") {
		t.Error("response list does not contain the new entry")
	}
	trigger := rec.Header().Get("HX-Trigger")
	if !strings.Contains(trigger, "entry:created") || !strings.Contains(trigger, "summary:refresh") {
		t.Errorf("HX-Trigger = %q, want entry:created and summary:refresh", trigger)
	}
}

func TestCreateEntryRejectsBadAmount(t *testing.T) {
	srv, fs := newTestServer(t)
	cookie, _ := signUpAndSignIn(t, srv, "Ana", "ana@example.com")

	rec := postForm(srv, "/despesas", url.Values{
		"descricao": {"Mercado"},
		"valor":     {"abc"},
		"categoria": {"Alimentação"},
	}, cookie)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
	if len(fs.entries[core.KindExpense]) != 0 {
		t.Error("invalid entry reached the store")
	}
}

func TestCreateEntrySurfacesStoreFailure(t *testing.T) {
	srv, fs := newTestServer(t)
	cookie, _ := signUpAndSignIn(t, srv, "Ana", "ana@example.com")

	// Warm the session first, then break the store.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	doRequest(srv, req)
	fs.failEntries = true

	rec := postForm(srv, "/despesas", url.Values{
		"descricao": {"Mercado"},
		"valor":     {"10,00"},
		"categoria": {"Alimentação"},
	}, cookie)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestCategoryFilterStaysLocal(t *testing.T) {
	srv, fs := newTestServer(t)
	cookie, _ := signUpAndSignIn(t, srv, "Ana", "ana@example.com")

	for _, form := range []url.Values{
		{"descricao": {"Mercado"}, "valor": {"10,00"}, "categoria": {"Alimentação"}, "data": {"2025-08-01"}},
		{"descricao": {"Aluguel"}, "valor": {"900,00"}, "categoria": {"Moradia"}, "data": {"2025-08-02"}},
	} {
		if rec := postForm(srv, "/despesas", form, cookie); rec.Code != http.StatusCreated {
			t.Fatalf("seed status = %d", rec.Code)
		}
	}

	before := fs.selectCalls
	req := httptest.NewRequest(http.MethodGet, "/despesas/lista?categoria=mora", nil)
	req.AddCookie(cookie)
	rec := doRequest(srv, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Aluguel") || strings.Contains(body, "Mercado") {
		t.Errorf("filtered list wrong: %s", body)
	}
	if fs.selectCalls != before {
		t.Error("category filter hit the store")
	}
}

func TestTogglePaidUnknownID(t *testing.T) {
	srv, _ := newTestServer(t)
	cookie, _ := signUpAndSignIn(t, srv, "Ana", "ana@example.com")

	rec := postForm(srv, "/despesas/pagar", url.Values{"id": {"nope"}}, cookie)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestTogglePaidRevertsOnStoreFailure(t *testing.T) {
	srv, fs := newTestServer(t)
	cookie, _ := signUpAndSignIn(t, srv, "Ana", "ana@example.com")

	rec := postForm(srv, "/despesas", url.Values{
		"descricao": {"Mercado"},
		"valor":     {"10,00"},
		"categoria": {"Alimentação"},
	}, cookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("seed status = %d", rec.Code)
	}
	fs.failEntries = true

	rec = postForm(srv, "/despesas/pagar", url.Values{"id": {"e1"}}, cookie)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	// The rendered list must show the original unpaid state.
	if strings.Contains(rec.Body.String(), "checked") {
		t.Error("failed toggle left the optimistic state in the response")
	}
}

func TestDeleteEntry(t *testing.T) {
	srv, fs := newTestServer(t)
	cookie, _ := signUpAndSignIn(t, srv, "Ana", "ana@example.com")

	rec := postForm(srv, "/despesas", url.Values{
		"descricao": {"Mercado"},
		"valor":     {"10,00"},
		"categoria": {"Alimentação"},
	}, cookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("seed status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodDelete, "/despesas/excluir?id=e1", nil)
	req.AddCookie(cookie)
	rec = doRequest(srv, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if len(fs.entries[core.KindExpense]) != 0 {
		t.Error("entry still in the store after delete")
	}
}

func TestUsersPageForbiddenForNormalUser(t *testing.T) {
	srv, _ := newTestServer(t)
	cookie, _ := signUpAndSignIn(t, srv, "Ana", "ana@example.com")

	req := httptest.NewRequest(http.MethodGet, "/usuarios", nil)
	req.AddCookie(cookie)
	rec := doRequest(srv, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestAdminListsAndDeletesUsers(t *testing.T) {
	srv, fs := newTestServer(t)
	adminCookie, admin := signUpAndSignIn(t, srv, "Root", "root@example.com")
	_, other := signUpAndSignIn(t, srv, "Ana", "ana@example.com")

	admin.Role = core.RoleAdmin
	fs.users[admin.ID] = admin

	req := httptest.NewRequest(http.MethodGet, "/usuarios", nil)
	req.AddCookie(adminCookie)
	rec := doRequest(srv, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "ana@example.com") {
		t.Error("user list does not show the other user")
	}

	rec = postForm(srv, "/usuarios/excluir", url.Values{"id": {other.ID}}, adminCookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if _, ok := fs.users[other.ID]; ok {
		t.Error("user row survived deletion")
	}
}

func TestAdminCannotDeleteSelf(t *testing.T) {
	srv, fs := newTestServer(t)
	cookie, admin := signUpAndSignIn(t, srv, "Root", "root@example.com")
	admin.Role = core.RoleAdmin
	fs.users[admin.ID] = admin

	rec := postForm(srv, "/usuarios/excluir", url.Values{"id": {admin.ID}}, cookie)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	srv, _ := newTestServer(t)
	cookie, _ := signUpAndSignIn(t, srv, "Ana", "ana@example.com")

	rec := postForm(srv, "/logout", url.Values{}, cookie)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie && c.MaxAge >= 0 {
			t.Error("logout did not expire the session cookie")
		}
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv, fs := newTestServer(t)

	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d, want %d", rec.Code, http.StatusOK)
	}

	rec = doRequest(srv, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz status = %d, want %d", rec.Code, http.StatusOK)
	}

	fs.failEntries = true
	rec = doRequest(srv, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status with broken store = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestChartDataShape(t *testing.T) {
	srv, _ := newTestServer(t)
	cookie, _ := signUpAndSignIn(t, srv, "Ana", "ana@example.com")

	req := httptest.NewRequest(http.MethodGet, "/ui/grafico", nil)
	req.AddCookie(cookie)
	rec := doRequest(srv, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Errorf("Content-Type = %q, want JSON", ct)
	}
	body := rec.Body.String()
	for _, key := range []string{`"labels"`, `"receitas"`, `"despesas"`} {
		if !strings.Contains(body, key) {
			t.Errorf("chart payload missing %s: %s", key, body)
		}
	}
}
