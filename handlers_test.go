package icebreakr

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/icebreakr/billing"
	"github.com/eringen/icebreakr/metadata"
	"github.com/eringen/icebreakr/quota"
)

const fiveLines = `1. Your recent launch of the analytics dashboard looks impressive.
2. Loved how your homepage explains pricing in one clear sentence.
3. Your team clearly cares about onboarding new customers quickly.
4. The case study on retail logistics was a genuinely useful read.
5. Noticed you are hiring engineers, congrats on the growth so far.`

type fakeGen struct {
	mu    sync.Mutex
	out   string
	err   error
	calls int
}

func (g *fakeGen) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return g.out, g.err
}

type fakeFetcher struct {
	page metadata.Page
	err  error
}

func (f fakeFetcher) Fetch(ctx context.Context, rawURL string) (metadata.Page, error) {
	return f.page, f.err
}

type fakeBilling struct {
	mu        sync.Mutex
	entitled  map[string]bool
	verifyErr error
	sessErr   error
	sessions  int
}

func (b *fakeBilling) HasActiveSubscription(ctx context.Context, email string) (bool, error) {
	if b.verifyErr != nil {
		return false, b.verifyErr
	}
	return b.entitled[email], nil
}

func (b *fakeBilling) CreateCheckoutSession(ctx context.Context, email string) (billing.Session, error) {
	if b.sessErr != nil {
		return billing.Session{}, b.sessErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions++
	return billing.Session{ID: "cs_test_" + email, URL: "https://checkout.stripe.com/c/pay/cs_test"}, nil
}

func text(s string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	})
}

func testViews() ViewFuncs {
	return ViewFuncs{
		Landing: func(meta PageMeta, plan Plan) templ.Component {
			return text("landing " + meta.Title + " " + plan.ProPrice)
		},
		Workspace: func(meta PageMeta, plan Plan) templ.Component {
			return text("workspace " + meta.URL)
		},
		Success: func(meta PageMeta, email string) templ.Component {
			return text("success email=" + email)
		},
		NotFound:    func() templ.Component { return text("not found page") },
		ServerError: func() templ.Component { return text("server error page") },
	}
}

func newTestApp(t *testing.T, tweak func(*SiteConfig), opts ...Option) *App {
	t.Helper()
	a, _ := newTestAppWithGen(t, tweak, opts...)
	return a
}

func newTestAppWithGen(t *testing.T, tweak func(*SiteConfig), opts ...Option) (*App, *fakeGen) {
	t.Helper()
	cfg := SiteConfig{
		URL:        "https://icebreakr.test",
		LedgerPath: filepath.Join(t.TempDir(), "ledger.db"),
		LogLevel:   "error",
	}
	if tweak != nil {
		tweak(&cfg)
	}
	gen := &fakeGen{out: fiveLines}
	base := []Option{
		WithTextGenerator(gen),
		WithMetadataFetcher(fakeFetcher{page: metadata.Page{Title: "Example Co", Description: "We make examples."}}),
	}
	a := New(cfg, testViews(), append(base, opts...)...)
	if err := a.prepare(); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a, gen
}

func doJSON(a *App, method, path, body, caller string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if caller != "" {
		req.Header.Set("X-Forwarded-For", caller)
	}
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	return rec
}

type generateResponse struct {
	Lines    []string      `json:"lines"`
	Metadata metadata.Page `json:"metadata"`
	IsPro    bool          `json:"isPro"`
	Remain   *int          `json:"remaining"`
	Error    string        `json:"error"`
}

func decodeGenerate(t *testing.T, rec *httptest.ResponseRecorder) generateResponse {
	t.Helper()
	var out generateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestPrepareRequiresGenerator(t *testing.T) {
	a := New(SiteConfig{LedgerPath: filepath.Join(t.TempDir(), "x.db")}, testViews())
	if err := a.prepare(); err == nil {
		t.Fatal("expected error without a text generator")
	}
}

func TestGenerateFreeTier(t *testing.T) {
	a := newTestApp(t, nil)

	rec := doJSON(a, http.MethodPost, "/api/generate", `{"url":"https://example.com"}`, "203.0.113.1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	out := decodeGenerate(t, rec)
	if len(out.Lines) != 5 {
		t.Fatalf("got %d lines, want 5", len(out.Lines))
	}
	if out.Lines[0] != "Your recent launch of the analytics dashboard looks impressive." {
		t.Errorf("list marker not stripped: %q", out.Lines[0])
	}
	if out.IsPro {
		t.Error("isPro should be false")
	}
	if out.Metadata.Title != "Example Co" {
		t.Errorf("metadata title = %q", out.Metadata.Title)
	}
	if out.Remain == nil || *out.Remain != 49 {
		t.Fatalf("remaining = %v, want 49", out.Remain)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "49" {
		t.Errorf("X-RateLimit-Remaining = %q, want 49", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}
}

func TestGenerateInvalidURL(t *testing.T) {
	a, gen := newTestAppWithGen(t, nil)

	for _, body := range []string{`{"url":""}`, `{"url":"ftp://example.com"}`, `{"url":"not a url"}`, `{}`, `not json`} {
		rec := doJSON(a, http.MethodPost, "/api/generate", body, "203.0.113.2")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", body, rec.Code)
		}
		if out := decodeGenerate(t, rec); out.Error != "A valid http(s) URL is required." {
			t.Errorf("%s: error = %q", body, out.Error)
		}
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times for invalid input", gen.calls)
	}

	// Invalid requests spend no quota.
	rec := doJSON(a, http.MethodPost, "/api/generate", `{"url":"https://example.com"}`, "203.0.113.2")
	if out := decodeGenerate(t, rec); out.Remain == nil || *out.Remain != 49 {
		t.Errorf("remaining = %v, want 49", out.Remain)
	}
}

func TestGenerateRateLimited(t *testing.T) {
	a, gen := newTestAppWithGen(t, func(cfg *SiteConfig) { cfg.FreeDailyLimit = 2 })

	for i := 0; i < 2; i++ {
		rec := doJSON(a, http.MethodPost, "/api/generate", `{"url":"https://example.com"}`, "203.0.113.3")
		if rec.Code != http.StatusOK {
			t.Fatalf("call %d: status = %d", i+1, rec.Code)
		}
	}
	rec := doJSON(a, http.MethodPost, "/api/generate", `{"url":"https://example.com"}`, "203.0.113.3")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	out := decodeGenerate(t, rec)
	if out.Error != "Rate limit exceeded for free usage. Try again tomorrow or upgrade to Pro." {
		t.Errorf("error = %q", out.Error)
	}
	if out.Remain == nil || *out.Remain != 0 {
		t.Errorf("remaining = %v, want 0", out.Remain)
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("X-RateLimit-Remaining = %q", rec.Header().Get("X-RateLimit-Remaining"))
	}
	if rec.Header().Get("X-RateLimit-Reset") == "" {
		t.Error("X-RateLimit-Reset missing")
	}
	if gen.calls != 2 {
		t.Errorf("generator calls = %d, want 2", gen.calls)
	}

	rec = doJSON(a, http.MethodPost, "/api/generate", `{"url":"https://example.com"}`, "203.0.113.4")
	if rec.Code != http.StatusOK {
		t.Errorf("other caller: status = %d, want 200", rec.Code)
	}
}

func TestGenerateProBypassesQuota(t *testing.T) {
	fb := &fakeBilling{entitled: map[string]bool{"pro@example.com": true}}
	a := newTestApp(t, func(cfg *SiteConfig) { cfg.FreeDailyLimit = 1 }, WithBilling(fb))

	for i := 0; i < 3; i++ {
		rec := doJSON(a, http.MethodPost, "/api/generate",
			`{"url":"https://example.com","email":" PRO@example.com "}`, "203.0.113.5")
		if rec.Code != http.StatusOK {
			t.Fatalf("call %d: status = %d", i+1, rec.Code)
		}
		out := decodeGenerate(t, rec)
		if !out.IsPro {
			t.Fatal("expected isPro")
		}
		if out.Remain != nil {
			t.Errorf("remaining should be omitted for Pro, got %d", *out.Remain)
		}
	}
}

func TestGenerateFailure(t *testing.T) {
	a, gen := newTestAppWithGen(t, nil)
	gen.err = errors.New("upstream exploded")

	rec := doJSON(a, http.MethodPost, "/api/generate", `{"url":"https://example.com"}`, "203.0.113.6")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	out := decodeGenerate(t, rec)
	if out.Error != "Unable to generate icebreakers right now." {
		t.Errorf("error = %q", out.Error)
	}
	if strings.Contains(rec.Body.String(), "exploded") {
		t.Error("internal error leaked to client")
	}
}

func TestGenerateMetadataFallback(t *testing.T) {
	a := newTestApp(t, nil, WithMetadataFetcher(fakeFetcher{err: errors.New("403")}))

	rec := doJSON(a, http.MethodPost, "/api/generate", `{"url":"https://blocked.example.org/about"}`, "203.0.113.7")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	out := decodeGenerate(t, rec)
	if out.Metadata.Title != "blocked.example.org" || out.Metadata.Description != metadata.DefaultDescription {
		t.Errorf("metadata = %+v", out.Metadata)
	}
}

func TestVerifyPro(t *testing.T) {
	fb := &fakeBilling{entitled: map[string]bool{"pro@example.com": true}}
	a := newTestApp(t, nil, WithBilling(fb))

	rec := doJSON(a, http.MethodPost, "/api/verify-pro", `{"email":""}`, "203.0.113.8")
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "Email is required.") {
		t.Fatalf("empty email: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(a, http.MethodPost, "/api/verify-pro", `{"email":"Pro@Example.com"}`, "203.0.113.8")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"isPro":true`) {
		t.Fatalf("pro: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(a, http.MethodPost, "/api/verify-pro", `{"email":"free@example.com"}`, "203.0.113.8")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"isPro":false`) {
		t.Fatalf("free: %d %s", rec.Code, rec.Body.String())
	}

	fb.verifyErr = errors.New("stripe down")
	rec = doJSON(a, http.MethodPost, "/api/verify-pro", `{"email":"pro@example.com"}`, "203.0.113.8")
	if rec.Code != http.StatusInternalServerError || !strings.Contains(rec.Body.String(), "Unable to verify subscription.") {
		t.Fatalf("provider error: %d %s", rec.Code, rec.Body.String())
	}
}

func TestBillingEndpointsWithoutBilling(t *testing.T) {
	a := newTestApp(t, nil)

	rec := doJSON(a, http.MethodPost, "/api/verify-pro", `{"email":"a@b.co"}`, "203.0.113.9")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("verify-pro status = %d, want 500", rec.Code)
	}
	rec = doJSON(a, http.MethodPost, "/api/checkout", `{"email":"a@b.co"}`, "203.0.113.9")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("checkout status = %d, want 500", rec.Code)
	}
}

func TestCheckoutRecordsSession(t *testing.T) {
	fb := &fakeBilling{}
	a := newTestApp(t, nil, WithBilling(fb))

	rec := doJSON(a, http.MethodPost, "/api/checkout", `{}`, "203.0.113.10")
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "Email is required for checkout.") {
		t.Fatalf("empty email: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(a, http.MethodPost, "/api/checkout", `{"email":"Buyer@Example.com"}`, "203.0.113.10")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var sess billing.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &sess); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sess.ID != "cs_test_buyer@example.com" || sess.URL == "" {
		t.Fatalf("session = %+v", sess)
	}

	got, err := a.Store.GetCheckout(sess.ID)
	if err != nil {
		t.Fatalf("GetCheckout: %v", err)
	}
	if got.Email != "buyer@example.com" {
		t.Errorf("ledger email = %q", got.Email)
	}

	page := doJSON(a, http.MethodGet, "/success/?session_id="+sess.ID, "", "")
	if page.Code != http.StatusOK || !strings.Contains(page.Body.String(), "success email=buyer@example.com") {
		t.Fatalf("success page: %d %s", page.Code, page.Body.String())
	}

	fb.sessErr = errors.New("card declined")
	rec = doJSON(a, http.MethodPost, "/api/checkout", `{"email":"buyer@example.com"}`, "203.0.113.10")
	if rec.Code != http.StatusInternalServerError || !strings.Contains(rec.Body.String(), "Unable to create checkout session.") {
		t.Fatalf("provider error: %d %s", rec.Code, rec.Body.String())
	}
}

func TestSuccessUnknownSession(t *testing.T) {
	a := newTestApp(t, nil)
	rec := doJSON(a, http.MethodGet, "/success/?session_id=cs_missing", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "success email=") {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "@") {
		t.Error("unknown session should not show an email")
	}
}

func TestHealth(t *testing.T) {
	a := newTestApp(t, nil)
	rec := doJSON(a, http.MethodGet, "/api/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body healthBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || !body.Generator || !body.Ledger || body.Billing {
		t.Errorf("health = %+v", body)
	}
}

func TestPages(t *testing.T) {
	a := newTestApp(t, nil)

	rec := doJSON(a, http.MethodGet, "/", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "landing") || !strings.Contains(rec.Body.String(), "$19/month") {
		t.Fatalf("landing: %d %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}

	rec = doJSON(a, http.MethodGet, "/app/", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "workspace https://icebreakr.test/app/") {
		t.Fatalf("workspace: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(a, http.MethodGet, "/app", "", "")
	if rec.Code != http.StatusMovedPermanently || rec.Header().Get("Location") != "/app/" {
		t.Errorf("trailing slash redirect: %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestNotFound(t *testing.T) {
	a := newTestApp(t, nil)

	rec := doJSON(a, http.MethodGet, "/nope/", "", "")
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "not found page") {
		t.Fatalf("page 404: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(a, http.MethodGet, "/api/nope", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("api 404: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"error"`) {
		t.Errorf("api 404 should be JSON, got %s", rec.Body.String())
	}
}

func TestSitemap(t *testing.T) {
	a := newTestApp(t, nil)
	rec := doJSON(a, http.MethodGet, "/sitemap.xml", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"<loc>https://icebreakr.test</loc>", "<loc>https://icebreakr.test/app/</loc>"} {
		if !strings.Contains(body, want) {
			t.Errorf("sitemap missing %s", want)
		}
	}
	if got := rec.Header().Get("Cache-Control"); got != "public, max-age=86400" {
		t.Errorf("Cache-Control = %q", got)
	}
}

func TestStaticAssets(t *testing.T) {
	a := newTestApp(t, nil)
	for _, path := range []string{"/favicon.svg", "/robots.txt", "/public/app.js"} {
		rec := doJSON(a, http.MethodGet, path, "", "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d", path, rec.Code)
		}
	}
}

func TestApplicationJsonLD(t *testing.T) {
	cfg := SiteConfig{}
	cfg.setDefaults()
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(ApplicationJsonLD(cfg)), &data); err != nil {
		t.Fatalf("invalid JSON-LD: %v", err)
	}
	if data["@type"] != "WebApplication" || data["name"] != "Icebreakr" {
		t.Errorf("JSON-LD = %v", data)
	}
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		base string
		segs []string
		want string
	}{
		{"https://icebreakr.app", nil, "https://icebreakr.app"},
		{"https://icebreakr.app", []string{"success"}, "https://icebreakr.app/success/"},
		{"https://icebreakr.app/base", []string{"app"}, "https://icebreakr.app/base/app/"},
	}
	for _, tt := range tests {
		if got := BuildURL(tt.base, tt.segs...); got != tt.want {
			t.Errorf("BuildURL(%q, %v) = %q, want %q", tt.base, tt.segs, got, tt.want)
		}
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("ICEBREAKR_TEST_INT", "12")
	t.Setenv("ICEBREAKR_TEST_BAD", "twelve")
	t.Setenv("ICEBREAKR_TEST_DUR", "90s")

	if got := EnvInt("ICEBREAKR_TEST_INT", 1); got != 12 {
		t.Errorf("EnvInt = %d, want 12", got)
	}
	if got := EnvInt("ICEBREAKR_TEST_BAD", 1); got != 1 {
		t.Errorf("EnvInt malformed = %d, want 1", got)
	}
	if got := EnvDuration("ICEBREAKR_TEST_DUR", 0); got.Seconds() != 90 {
		t.Errorf("EnvDuration = %v, want 90s", got)
	}
	if got := EnvOr("ICEBREAKR_TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("EnvOr = %q", got)
	}
}

type countingStore struct {
	quota.Store
	mu   sync.Mutex
	keys []string
}

func (s *countingStore) Apply(key string, fn func(cur quota.Bucket, exists bool) quota.Bucket) error {
	s.mu.Lock()
	s.keys = append(s.keys, key)
	s.mu.Unlock()
	return s.Store.Apply(key, fn)
}

func TestGenerateUsesInjectedQuotaStore(t *testing.T) {
	store := &countingStore{Store: quota.NewMemoryStore()}
	a := newTestApp(t, func(cfg *SiteConfig) { cfg.FreeDailyLimit = 2 }, WithQuotaStore(store))

	for i := 0; i < 2; i++ {
		rec := doJSON(a, http.MethodPost, "/api/generate", `{"url":"https://example.com"}`, "203.0.113.60")
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, body %s", i+1, rec.Code, rec.Body.String())
		}
	}
	rec := doJSON(a, http.MethodPost, "/api/generate", `{"url":"https://example.com"}`, "203.0.113.60")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request: status = %d, want 429", rec.Code)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.keys) != 3 {
		t.Fatalf("Apply called %d times, want 3", len(store.keys))
	}
	for _, k := range store.keys {
		if k != "generate:203.0.113.60" {
			t.Errorf("key = %q, want generate:203.0.113.60", k)
		}
	}
}

func TestCustomRoutesAreRegistered(t *testing.T) {
	a := newTestApp(t, nil, WithCustomRoutes(func(app *App) {
		app.Echo.GET("/api/ping", func(c echo.Context) error {
			return c.String(http.StatusOK, "pong")
		})
	}))

	rec := doJSON(a, http.MethodGet, "/api/ping", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "pong" {
		t.Errorf("body = %q, want pong", rec.Body.String())
	}
}
