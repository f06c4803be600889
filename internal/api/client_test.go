package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"evergreen/internal/core"
)

type mutableToken struct{ value atomic.Value }

func (m *mutableToken) set(s string) { m.value.Store(s) }

func (m *mutableToken) AccessToken(ctx context.Context) (string, bool) {
	s, _ := m.value.Load().(string)
	return s, s != ""
}

func newTestClient(t *testing.T, h http.HandlerFunc, tokens TokenSource, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/api/v1.0", tokens, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestClient_ReadsTokenOnEveryCall(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	tokens := &mutableToken{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get("Authorization"))
		mu.Unlock()
		w.Write([]byte(`[]`))
	}, tokens)

	tokens.set("first")
	if _, err := c.ListAccounts(context.Background()); err != nil {
		t.Fatalf("ListAccounts() error = %v", err)
	}
	tokens.set("second")
	if _, err := c.ListAccounts(context.Background()); err != nil {
		t.Fatalf("ListAccounts() error = %v", err)
	}
	tokens.set("")
	if _, err := c.ListAccounts(context.Background()); err != nil {
		t.Fatalf("ListAccounts() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"Bearer first", "Bearer second", ""}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("call %d Authorization = %q, want %q", i, seen[i], want[i])
		}
	}
}

func TestClient_UnauthorizedInvokesHook(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Given token not valid for any token type"}`))
	}, nil, WithUnauthorizedHandler(func(ctx context.Context) { atomic.AddInt32(&calls, 1) }))

	_, err := c.ListAccounts(context.Background())
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("error = %v, want ErrUnauthenticated", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("hook called %d times, want 1", calls)
	}
	if got := UserMessage(err, "x"); got != "Given token not valid for any token type" {
		t.Errorf("UserMessage() = %q", got)
	}
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	c, err := New(base, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.ListAccounts(context.Background())
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("error = %T %v, want *NetworkError", err, err)
	}
	if got := UserMessage(err, "x"); got != NetworkErrorMessage {
		t.Errorf("UserMessage() = %q", got)
	}
}

func TestClient_ErrorBodyMessages(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"error field", `{"error":"Insufficient KYC level"}`, "Insufficient KYC level"},
		{"message field", `{"message":"Account limit reached"}`, "Account limit reached"},
		{"field list", `{"email":["user with this email already exists."]}`, "email: user with this email already exists."},
		{"non field", `{"non_field_errors":["Invalid credentials"]}`, "Invalid credentials"},
		{"not json", `<html>oops</html>`, "fallback"},
		{"empty", ``, "fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(tt.body))
			}, nil)
			err := c.Register(context.Background(), RegisterRequest{Email: "a@b.c"})
			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
				t.Fatalf("error = %v, want *APIError 400", err)
			}
			if got := UserMessage(err, "fallback"); got != tt.want {
				t.Errorf("UserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClient_RegisterRequiresCreated(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1.0/auth/register/" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var in RegisterRequest
		json.NewDecoder(r.Body).Decode(&in)
		if in.PhoneNumber != "0700000000" {
			t.Errorf("phone_number = %q", in.PhoneNumber)
		}
		w.WriteHeader(http.StatusOK)
	}, nil)

	err := c.Register(context.Background(), RegisterRequest{Email: "a@b.c", PhoneNumber: "0700000000"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusOK {
		t.Fatalf("a 200 on register must not count as success, got %v", err)
	}
}

func TestClient_Login(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"flat profile", `{"access":"a","refresh":"r","email":"jane@evergreen.test","first_name":"Jane"}`},
		{"nested profile", `{"access":"a","refresh":"r","user":{"email":"jane@evergreen.test","first_name":"Jane"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/v1.0/auth/login/customer/" {
					t.Errorf("path = %s", r.URL.Path)
				}
				w.Write([]byte(tt.body))
			}, nil)
			resp, err := c.Login(context.Background(), "jane@evergreen.test", "secret123")
			if err != nil {
				t.Fatalf("Login() error = %v", err)
			}
			if resp.Access != "a" || resp.Refresh != "r" {
				t.Errorf("tokens = %q/%q", resp.Access, resp.Refresh)
			}
			if resp.User.FirstName != "Jane" || resp.User.Email != "jane@evergreen.test" {
				t.Errorf("user = %+v", resp.User)
			}
		})
	}
}

func TestClient_OpenAccount(t *testing.T) {
	t.Run("201 returns account number", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			var in map[string]string
			json.NewDecoder(r.Body).Decode(&in)
			if in["account_type"] != "SAVINGS" || in["currency"] != "KES" {
				t.Errorf("body = %v", in)
			}
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"account_number":"SAV-2002","account_type":"SAVINGS","currency":"KES","balance":"0.00"}`))
		}, nil)
		acct, err := c.OpenAccount(context.Background(), core.AccountSavings, "KES")
		if err != nil {
			t.Fatalf("OpenAccount() error = %v", err)
		}
		if acct.AccountNumber != "SAV-2002" {
			t.Errorf("AccountNumber = %q", acct.AccountNumber)
		}
	})

	t.Run("200 is not success", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"error":"already exists"}`))
		}, nil)
		_, err := c.OpenAccount(context.Background(), core.AccountSavings, "KES")
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Message != "already exists" {
			t.Fatalf("error = %v", err)
		}
	})
}

func TestClient_TransactionHistory(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1.0/transactions/history/SAV-1001" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("status") != "PENDING" || r.URL.Query().Get("cursor") != "abc" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"results":[{"id":1,"amount":"5.00","trans_status":"PENDING"}],"next":"n","previous":null,"has_more":true}`))
	}, nil)

	page, err := c.TransactionHistory(context.Background(), "SAV-1001", url.Values{"status": {"PENDING"}, "cursor": {"abc"}})
	if err != nil {
		t.Fatalf("TransactionHistory() error = %v", err)
	}
	if len(page.Results) != 1 || !page.HasMore || page.Next != "n" || page.Previous != "" {
		t.Errorf("page = %+v", page)
	}
}

func TestClient_TransactionStats(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("period") != "month" {
			t.Errorf("period = %q", r.URL.Query().Get("period"))
		}
		w.Write([]byte(`{"total_in":"100.00","count":3}`))
	}, nil)
	stats, err := c.TransactionStats(context.Background(), "SAV-1001", "month")
	if err != nil {
		t.Fatalf("TransactionStats() error = %v", err)
	}
	if stats["total_in"] != "100.00" {
		t.Errorf("stats = %v", stats)
	}
}

func TestClient_GetKYCNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}, nil)
	_, err := c.GetKYC(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestClient_SubmitKYCMultipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			return
		}
		if r.FormValue("id_no") != "12345678" || r.FormValue("dob") != "1990-01-01" {
			t.Errorf("personal fields = %v", r.MultipartForm.Value)
		}
		types := r.MultipartForm.Value["document_types"]
		files := r.MultipartForm.File["documents"]
		if len(types) != 2 || len(files) != 2 {
			t.Errorf("types=%v files=%d", types, len(files))
			return
		}
		if types[0] != "NATIONAL_ID" || files[0].Filename != "id.pdf" {
			t.Errorf("pair 0 = %s/%s", types[0], files[0].Filename)
		}
		if types[1] != "PASSPORT" || files[1].Filename != "face.png" {
			t.Errorf("pair 1 = %s/%s", types[1], files[1].Filename)
		}
		if ct := files[1].Header.Get("Content-Type"); ct != "image/png" {
			t.Errorf("content type = %q", ct)
		}
		w.WriteHeader(http.StatusCreated)
	}, nil)

	err := c.SubmitKYC(context.Background(), core.KYCSubmission{
		IDNumber:    "12345678",
		DateOfBirth: "1990-01-01",
		Documents: []core.DocumentUpload{
			{Type: core.DocNationalID, File: core.Upload{FileName: "id.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")}},
			{Type: core.DocPassport, File: core.Upload{FileName: "face.png", ContentType: "image/png", Data: []byte("png")}},
		},
	})
	if err != nil {
		t.Fatalf("SubmitKYC() error = %v", err)
	}
}

func TestClient_UpdateKYCDocument(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/api/v1.0/auth/kyc/documents/42/" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		f, hdr, err := r.FormFile("document_upload")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		data, _ := io.ReadAll(f)
		if hdr.Filename != "new.pdf" || string(data) != "%PDF" {
			t.Errorf("file = %s %q", hdr.Filename, data)
		}
		if r.FormValue("document_type") != "PASSPORT" {
			t.Errorf("document_type = %q", r.FormValue("document_type"))
		}
		w.Write([]byte(`{"id":42,"document_type":"PASSPORT","status":"PENDING"}`))
	}, nil)

	doc, err := c.UpdateKYCDocument(context.Background(), 42, core.DocPassport, core.Upload{FileName: "new.pdf", Data: []byte("%PDF")})
	if err != nil {
		t.Fatalf("UpdateKYCDocument() error = %v", err)
	}
	if doc.Status != core.DocumentPending {
		t.Errorf("status = %s", doc.Status)
	}
}

func TestClient_BaseURLJoin(t *testing.T) {
	for _, base := range []string{"http://bank.test/api/v1.0/", "http://bank.test/api/v1.0"} {
		c, err := New(base, nil)
		if err != nil {
			t.Fatal(err)
		}
		got := c.endpoint("auth/kyc/", nil)
		if !strings.HasSuffix(got, "/api/v1.0/auth/kyc/") {
			t.Errorf("endpoint(%s) = %s", base, got)
		}
	}
}
