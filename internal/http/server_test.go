package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"evergreen/internal/accounts"
	"evergreen/internal/api"
	"evergreen/internal/cache"
	"evergreen/internal/kyc"
	"evergreen/internal/services"
	"evergreen/internal/session"
	"evergreen/internal/transactions"
)

const testAccount = "0011223344"

// fakeBank stands in for the banking REST backend. Routes are keyed by
// "METHOD path" with the path relative to /api/v1.0/.
type fakeBank struct {
	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	calls  map[string]int
	srv    *httptest.Server
}

func newFakeBank(t *testing.T) *fakeBank {
	t.Helper()
	b := &fakeBank{routes: map[string]http.HandlerFunc{}, calls: map[string]int{}}
	b.srv = httptest.NewServer(b)
	t.Cleanup(b.srv.Close)
	return b
}

func (b *fakeBank) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + strings.TrimPrefix(r.URL.Path, "/api/v1.0/")
	b.mu.Lock()
	b.calls[key]++
	h := b.routes[key]
	b.mu.Unlock()
	if h == nil {
		jsonReply(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	h(w, r)
}

func (b *fakeBank) handle(method, path string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[method+" "+path] = h
}

func (b *fakeBank) reply(method, path string, status int, body any) {
	b.handle(method, path, func(w http.ResponseWriter, r *http.Request) { jsonReply(w, status, body) })
}

func (b *fakeBank) called(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[method+" "+path]
}

func jsonReply(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type testEnv struct {
	bank   *fakeBank
	store  *session.MemoryStore
	server *Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	bank := newFakeBank(t)
	store := session.NewMemoryStore()
	sessions := session.NewManager(store, time.Hour)

	client, err := api.New(bank.srv.URL+"/api/v1.0", sessions,
		api.WithTimeout(5*time.Second),
		api.WithUnauthorizedHandler(sessions.Invalidate))
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}

	srv, err := NewServer(Config{RateLimitPerMinute: 10000}, Deps{
		Backend:      client,
		Sessions:     sessions,
		Accounts:     accounts.NewService(client, cache.NewLRUCache[accounts.Result](10, time.Minute), nil),
		Transactions: transactions.NewService(client, nil),
		Drafts:       kyc.NewDraftStore(10, time.Hour),
		Reuploader:   kyc.NewReuploader(client, nil),
		Activity:     services.NewActivityService(services.NewMemoryActivityLog(50), nil, nil),
		Ready:        func(context.Context) error { return nil },
	}, nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	bank.reply(http.MethodGet, "accounts/create/account/", http.StatusOK, []map[string]any{{
		"id":             1,
		"account_number": testAccount,
		"account_type":   "SAVINGS",
		"currency":       "KES",
		"balance":        "1500.00",
		"status":         "ACTIVE",
		"is_primary":     true,
	}})
	bank.reply(http.MethodGet, "transactions/history/"+testAccount, http.StatusOK, historyBody())
	bank.reply(http.MethodGet, "auth/kyc/", http.StatusNotFound, map[string]string{"detail": "Not found."})

	return &testEnv{bank: bank, store: store, server: srv}
}

func historyBody() map[string]any {
	return map[string]any{
		"results": []map[string]any{{
			"id":                  1,
			"transaction_ref":     "TX1",
			"transaction_type":    "DEPOSIT",
			"amount":              "250.00",
			"fee":                 "0",
			"currency":            "KES",
			"trans_status":        "COMPLETED",
			"destination_account": map[string]string{"account_number": testAccount},
			"description":         "Salary",
			"created_at":          "2026-10-01T09:00:00Z",
		}},
		"has_more": false,
	}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.server.Handler.ServeHTTP(rec, req)
	return rec
}

// login signs in through the form and returns the session cookie.
func (e *testEnv) login(t *testing.T) *http.Cookie {
	t.Helper()
	e.bank.reply(http.MethodPost, "auth/login/customer/", http.StatusOK, map[string]any{
		"access":  "access-token",
		"refresh": "refresh-token",
		"user":    map[string]any{"id": 7, "email": "jane@example.com", "first_name": "Jane", "last_name": "Doe"},
	})
	rec := e.do(formRequest(http.MethodPost, "/login", url.Values{
		"email":    {"jane@example.com"},
		"password": {"correct horse"},
	}))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != dashboardPath {
		t.Fatalf("login: status=%d location=%q", rec.Code, rec.Header().Get("Location"))
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.DefaultCookieName && c.Value != "" {
			return c
		}
	}
	t.Fatal("login set no session cookie")
	return nil
}

func formRequest(method, target string, form url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func authed(req *http.Request, c *http.Cookie, htmx bool) *http.Request {
	req.AddCookie(c)
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	return req
}

func multipartRequest(t *testing.T, target, field, filename string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func pdf(size int) []byte {
	head := []byte("%PDF-1.4\n")
	if size <= len(head) {
		return head
	}
	return append(head, bytes.Repeat([]byte("a"), size-len(head))...)
}

func TestPublicPages(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		path   string
		status int
		want   string
	}{
		{"/", http.StatusOK, "Banking that grows with you"},
		{"/about", http.StatusOK, "About Evergreen Bank"},
		{"/faq", http.StatusOK, "Frequently asked questions"},
		{"/contact", http.StatusOK, "Get in touch"},
		{"/login", http.StatusOK, "Welcome back"},
		{"/register", http.StatusOK, "Create your account"},
		{"/no-such-page", http.StatusNotFound, "Page not found"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := env.do(httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Errorf("body missing %q", tt.want)
			}
			if rec.Header().Get("Content-Security-Policy") == "" {
				t.Error("missing Content-Security-Policy header")
			}
		})
	}
}

func TestContactSubmit(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(formRequest(http.MethodPost, "/contact", url.Values{"email": {"not-an-email"}}))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid contact status = %d, want 422", rec.Code)
	}

	rec = env.do(formRequest(http.MethodPost, "/contact", url.Values{
		"full_name": {"Jane Doe"},
		"email":     {"jane@example.com"},
		"message":   {"How do I open a business account?"},
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("contact status = %d, want 200", rec.Code)
	}
}

func TestDashboardRequiresSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/user", nil))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != loginPath {
		t.Fatalf("status=%d location=%q, want redirect to login", rec.Code, rec.Header().Get("Location"))
	}

	req := httptest.NewRequest(http.MethodGet, "/user/accounts", nil)
	req.Header.Set("HX-Request", "true")
	rec = env.do(req)
	if rec.Header().Get("HX-Redirect") != loginPath {
		t.Errorf("HX-Redirect = %q, want %q", rec.Header().Get("HX-Redirect"), loginPath)
	}
}

func TestLoginStartsSession(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	if env.store.Len() != 1 {
		t.Fatalf("stored sessions = %d, want 1", env.store.Len())
	}

	rec := env.do(authed(httptest.NewRequest(http.MethodGet, "/user", nil), cookie, false))
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, testAccount) {
		t.Error("dashboard does not show the account")
	}
	if rec.Header().Get("Cache-Control") == "" {
		t.Error("dashboard response is cacheable")
	}

	// Already signed in: the login page forwards to the dashboard.
	rec = env.do(authed(httptest.NewRequest(http.MethodGet, "/login", nil), cookie, false))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != dashboardPath {
		t.Errorf("login page status=%d location=%q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestLoginRejected(t *testing.T) {
	env := newTestEnv(t)
	env.bank.reply(http.MethodPost, "auth/login/customer/", http.StatusUnauthorized,
		map[string]string{"detail": "No active account found with the given credentials"})

	rec := env.do(formRequest(http.MethodPost, "/login", url.Values{
		"email":    {"jane@example.com"},
		"password": {"wrong"},
	}))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), loginFailedMessage) {
		t.Errorf("body missing %q", loginFailedMessage)
	}
	if env.store.Len() != 0 {
		t.Errorf("stored sessions = %d, want 0", env.store.Len())
	}
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	env.bank.reply(http.MethodPost, "auth/register/", http.StatusCreated, map[string]string{"email": "jane@example.com"})

	t.Run("validation failure makes no request", func(t *testing.T) {
		rec := env.do(formRequest(http.MethodPost, "/register", url.Values{
			"email":            {"jane@example.com"},
			"password":         {"short"},
			"confirm_password": {"different"},
		}))
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want 422", rec.Code)
		}
		if n := env.bank.called(http.MethodPost, "auth/register/"); n != 0 {
			t.Errorf("register calls = %d, want 0", n)
		}
	})

	t.Run("success redirects to login", func(t *testing.T) {
		rec := env.do(formRequest(http.MethodPost, "/register", url.Values{
			"first_name":       {"Jane"},
			"last_name":        {"Doe"},
			"phone":            {"+254700000000"},
			"email":            {"jane@example.com"},
			"address":          {"12 Kenyatta Ave"},
			"password":         {"correct horse"},
			"confirm_password": {"correct horse"},
			"terms":            {"on"},
		}))
		if rec.Code != http.StatusSeeOther {
			t.Fatalf("status = %d, want 303", rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != "/login?registered=1" {
			t.Errorf("location = %q", loc)
		}
		if n := env.bank.called(http.MethodPost, "auth/register/"); n != 1 {
			t.Errorf("register calls = %d, want 1", n)
		}
	})
}

func TestLogoutSurvivesBackendFailure(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)
	env.bank.reply(http.MethodPost, "auth/logout/", http.StatusInternalServerError, map[string]string{"detail": "boom"})

	rec := env.do(authed(httptest.NewRequest(http.MethodPost, "/logout", nil), cookie, false))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != loginPath {
		t.Fatalf("status=%d location=%q", rec.Code, rec.Header().Get("Location"))
	}
	if env.store.Len() != 0 {
		t.Errorf("stored sessions = %d, want 0", env.store.Len())
	}
	if n := env.bank.called(http.MethodPost, "auth/logout/"); n != 1 {
		t.Errorf("logout calls = %d, want 1", n)
	}

	rec = env.do(authed(httptest.NewRequest(http.MethodGet, "/user", nil), cookie, false))
	if rec.Code != http.StatusSeeOther {
		t.Errorf("old cookie still opens the dashboard: status %d", rec.Code)
	}
}

func TestBackendRejectionEndsSession(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)
	env.bank.reply(http.MethodGet, "accounts/create/account/", http.StatusUnauthorized,
		map[string]string{"detail": "Given token not valid for any token type"})

	rec := env.do(authed(httptest.NewRequest(http.MethodGet, "/user/accounts", nil), cookie, false))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != loginPath {
		t.Fatalf("status=%d location=%q", rec.Code, rec.Header().Get("Location"))
	}
	if env.store.Len() != 0 {
		t.Errorf("stored sessions = %d, want 0", env.store.Len())
	}
}

func TestOpenAccount(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)
	env.bank.reply(http.MethodPost, "accounts/create/account/", http.StatusCreated, map[string]any{
		"account_number": "9988776655",
		"account_type":   "BUSINESS",
		"currency":       "USD",
		"balance":        "0",
		"status":         "ACTIVE",
	})

	rec := env.do(authed(formRequest(http.MethodPost, "/user/accounts", url.Values{
		"account_type": {"CHECKING"},
		"currency":     {"KES"},
	}), cookie, true))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid type status = %d, want 422", rec.Code)
	}
	if n := env.bank.called(http.MethodPost, "accounts/create/account/"); n != 0 {
		t.Fatalf("open calls after validation failure = %d, want 0", n)
	}

	rec = env.do(authed(formRequest(http.MethodPost, "/user/accounts", url.Values{
		"account_type": {"BUSINESS"},
		"currency":     {"USD"},
	}), cookie, true))
	if rec.Code != http.StatusOK {
		t.Fatalf("open status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("HX-Trigger"), "accounts:changed") {
		t.Errorf("HX-Trigger = %q", rec.Header().Get("HX-Trigger"))
	}
	if !strings.Contains(rec.Body.String(), "9988776655") {
		t.Error("success message does not name the new account")
	}
}

func TestSelectAccount(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	rec := env.do(authed(formRequest(http.MethodPost, "/user/accounts/select", url.Values{"account": {"nope"}}), cookie, false))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown account status = %d, want 404", rec.Code)
	}

	rec = env.do(authed(formRequest(http.MethodPost, "/user/accounts/select", url.Values{
		"account": {testAccount},
		"next":    {transactionsPath},
	}), cookie, false))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != transactionsPath {
		t.Fatalf("status=%d location=%q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestTransactionFilterErrorSkipsFetch(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	rec := env.do(authed(httptest.NewRequest(http.MethodGet, "/user/transactions?min_amount=abc", nil), cookie, true))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if n := env.bank.called(http.MethodGet, "transactions/history/"+testAccount); n != 0 {
		t.Errorf("history calls = %d, want 0", n)
	}

	rec = env.do(authed(httptest.NewRequest(http.MethodGet, "/user/transactions", nil), cookie, true))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "TX1") {
		t.Error("history does not list the transaction")
	}
}

func TestSupersededTransactionResponseIsDropped(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	env.bank.handle(http.MethodGet, "transactions/history/"+testAccount, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			close(entered)
			<-release
		}
		jsonReply(w, http.StatusOK, historyBody())
	})

	first := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		first <- env.do(authed(httptest.NewRequest(http.MethodGet, "/user/transactions?status=COMPLETED", nil), cookie, true))
	}()

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first request never reached the backend")
	}

	second := env.do(authed(httptest.NewRequest(http.MethodGet, "/user/transactions", nil), cookie, true))
	if second.Code != http.StatusOK {
		t.Fatalf("latest request status = %d, want 200", second.Code)
	}
	close(release)

	var stale *httptest.ResponseRecorder
	select {
	case stale = <-first:
	case <-time.After(5 * time.Second):
		t.Fatal("first request never finished")
	}
	if stale.Code != http.StatusNoContent {
		t.Errorf("superseded status = %d, want 204", stale.Code)
	}
	if stale.Header().Get("HX-Reswap") != "none" {
		t.Errorf("HX-Reswap = %q, want none", stale.Header().Get("HX-Reswap"))
	}
}

func TestExportTransactions(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	rec := env.do(authed(httptest.NewRequest(http.MethodGet, "/user/transactions/export", nil), cookie, false))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.Contains(rec.Body.String(), "TX1") {
		t.Error("export does not contain the transaction")
	}
}

func TestOnboardingRejectsOversizeFile(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	rec := env.do(authed(formRequest(http.MethodPost, "/user/kyc/onboarding/personal", url.Values{
		"id_no":       {"12345678"},
		"kin_name":    {"John Doe"},
		"kin_contact": {"+254711111111"},
		"occupation":  {"Engineer"},
		"dob":         {"1990-04-12"},
		"address":     {"12 Kenyatta Ave"},
	}), cookie, true))
	if rec.Code != http.StatusOK {
		t.Fatalf("personal info status = %d, want 200", rec.Code)
	}

	req := multipartRequest(t, "/user/kyc/onboarding/documents/NATIONAL_ID", "document", "id.pdf",
		pdf(int(kyc.OnboardingPolicy.MaxSize)+1))
	rec = env.do(authed(req, cookie, true))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("oversize status = %d, want 422", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), kyc.OnboardingPolicy.SizeMessage) {
		t.Errorf("body missing %q", kyc.OnboardingPolicy.SizeMessage)
	}
	if n := env.bank.called(http.MethodPost, "auth/kyc/"); n != 0 {
		t.Errorf("submit calls = %d, want 0", n)
	}
}

func TestReuploadDocument(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)
	env.bank.reply(http.MethodGet, "auth/kyc/", http.StatusOK, map[string]any{
		"verification_status": "REJECTED",
		"user_full_name":      "Jane Doe",
		"documents": []map[string]any{{
			"id":               7,
			"document_type":    "NATIONAL_ID",
			"status":           "REJECTED",
			"file_name":        "old.pdf",
			"file_size":        1200,
			"rejection_reason": "Blurry",
		}},
	})
	env.bank.reply(http.MethodPatch, "auth/kyc/documents/7/", http.StatusOK, map[string]any{
		"id":            7,
		"document_type": "NATIONAL_ID",
		"status":        "PENDING",
		"file_name":     "id.pdf",
	})

	rec := env.do(authed(multipartRequest(t, "/user/kyc/documents/99", "document_upload", "id.pdf", pdf(2048)), cookie, true))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown document status = %d, want 404", rec.Code)
	}

	rec = env.do(authed(multipartRequest(t, "/user/kyc/documents/7", "document_upload", "id.pdf", pdf(2048)), cookie, true))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Pending Review") {
		t.Error("document is not shown as under review")
	}
	if !strings.Contains(rec.Header().Get("HX-Trigger"), "kyc:updated") {
		t.Errorf("HX-Trigger = %q", rec.Header().Get("HX-Trigger"))
	}
	if n := env.bank.called(http.MethodPatch, "auth/kyc/documents/7/"); n != 1 {
		t.Errorf("update calls = %d, want 1", n)
	}
}

func TestOpsEndpoints(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := env.do(httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rec.Code)
		}
		var body map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: decode: %v", path, err)
		}
		if body["status"] == "" {
			t.Errorf("%s: missing status", path)
		}
	}

	rec := env.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "http_requests_total") {
		t.Error("metrics missing http_requests_total")
	}
}

func TestReadyReportsStoreFailure(t *testing.T) {
	env := newTestEnv(t)
	env.server.ready = func(context.Context) error { return context.DeadlineExceeded }

	rec := env.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestNewServerWithoutTemplates(t *testing.T) {
	sessions := session.NewManager(session.NewMemoryStore(), time.Hour)
	_, err := NewServer(Config{}, Deps{Sessions: sessions, Templates: fstest.MapFS{}}, nil)
	if err == nil {
		t.Fatal("expected an error when no templates are present")
	}
}
