// Package generate runs a single icebreaker generation: URL validation,
// entitlement, free-tier quota, page metadata, the model call and output
// normalization, in that order.
package generate

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/eringen/icebreakr/metadata"
	"github.com/eringen/icebreakr/quota"
)

// Defaults for the free tier.
const (
	DefaultFreeLimit = 50
	DefaultWindow    = 24 * time.Hour
)

// Entitlements reports whether an email belongs to a paying subscriber.
type Entitlements interface {
	HasActiveSubscription(ctx context.Context, email string) (bool, error)
}

// TextGenerator completes a prompt pair with freeform text.
type TextGenerator interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// MetadataFetcher retrieves page metadata for a URL.
type MetadataFetcher interface {
	Fetch(ctx context.Context, rawURL string) (metadata.Page, error)
}

// QuotaChecker counts one call against a key.
type QuotaChecker interface {
	Check(key string, limit int, window time.Duration) (quota.Result, error)
}

// Logger receives swallowed failures. echo.Logger satisfies it.
type Logger interface {
	Warnf(format string, args ...interface{})
}

// Request is a validated-on-entry generation request. Caller is the quota
// identity supplied by the transport.
type Request struct {
	URL     string
	Name    string
	Company string
	Email   string
	Caller  string
}

// Result is a successful generation. Remaining is set only for free-tier
// requests.
type Result struct {
	Lines     []string      `json:"lines"`
	Metadata  metadata.Page `json:"metadata"`
	IsPro     bool          `json:"isPro"`
	Remaining *int          `json:"remaining,omitempty"`
}

// Config tunes the free tier.
type Config struct {
	FreeLimit int
	Window    time.Duration
}

// Service wires the collaborators of a generation.
type Service struct {
	Entitlements Entitlements // optional
	Quota        QuotaChecker
	Fetcher      MetadataFetcher
	Generator    TextGenerator
	Logger       Logger // optional

	cfg Config
}

// NewService creates a Service. Zero Config fields take the package defaults.
func NewService(cfg Config, ent Entitlements, q QuotaChecker, f MetadataFetcher, g TextGenerator, log Logger) *Service {
	if cfg.FreeLimit <= 0 {
		cfg.FreeLimit = DefaultFreeLimit
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	return &Service{
		Entitlements: ent,
		Quota:        q,
		Fetcher:      f,
		Generator:    g,
		Logger:       log,
		cfg:          cfg,
	}
}

// Generate runs the pipeline for req. Returned errors match ErrInvalidInput,
// ErrRateLimited or ErrGenerationFailed; anything else is an internal fault.
func (s *Service) Generate(ctx context.Context, req Request) (Result, error) {
	req = req.normalized()

	if !ValidURL(req.URL) {
		return Result{}, ErrInvalidInput
	}

	isPro := s.entitled(ctx, req.Email)

	var remaining *int
	if !isPro {
		caller := req.Caller
		if caller == "" {
			caller = "unknown"
		}
		res, err := s.Quota.Check("generate:"+caller, s.cfg.FreeLimit, s.cfg.Window)
		if err != nil {
			return Result{}, fmt.Errorf("quota check: %w", err)
		}
		if !res.Allowed {
			return Result{}, &RateLimitError{Remaining: res.Remaining, ResetAt: res.ResetAt}
		}
		remaining = &res.Remaining
	}

	page, err := s.Fetcher.Fetch(ctx, req.URL)
	if err != nil {
		s.warnf("metadata fetch for %s failed, using defaults: %v", req.URL, err)
		page = metadata.Default(req.URL)
	}

	text, err := s.Generator.Complete(ctx, SystemPrompt, UserPrompt(req.URL, page, req.Name, req.Company))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	return Result{
		Lines:     Normalize(text),
		Metadata:  page,
		IsPro:     isPro,
		Remaining: remaining,
	}, nil
}

func (s *Service) entitled(ctx context.Context, email string) bool {
	if email == "" || s.Entitlements == nil {
		return false
	}
	ok, err := s.Entitlements.HasActiveSubscription(ctx, email)
	if err != nil {
		s.warnf("entitlement check failed, treating as free tier: %v", err)
		return false
	}
	return ok
}

func (s *Service) warnf(format string, args ...interface{}) {
	if s.Logger != nil {
		s.Logger.Warnf(format, args...)
	}
}

func (r Request) normalized() Request {
	return Request{
		URL:     strings.TrimSpace(r.URL),
		Name:    strings.TrimSpace(r.Name),
		Company: strings.TrimSpace(r.Company),
		Email:   NormalizeEmail(r.Email),
		Caller:  strings.TrimSpace(r.Caller),
	}
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidURL reports whether raw is an absolute http or https URL with a host.
func ValidURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}
