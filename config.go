package icebreakr

import (
	"context"
	"strings"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/eringen/icebreakr/billing"
	"github.com/eringen/icebreakr/generate"
	"github.com/eringen/icebreakr/metadata"
	"github.com/eringen/icebreakr/quota"
)

// SiteConfig holds all configuration for an icebreakr site.
type SiteConfig struct {
	Name        string // Product name (default "Icebreakr")
	URL         string // Public base URL, used for Stripe redirects (default "http://localhost:3000")
	Description string // Meta description for pages

	Addr       string // Listen address (default ":3000")
	LedgerPath string // SQLite path for checkout records (default "data/icebreakr.db")
	LogLevel   string // debug, info, warn or error (default "info")

	FreeDailyLimit  int           // Free generations per caller per window (default 50)
	QuotaWindow     time.Duration // Free-tier window (default 24h)
	MetadataTimeout time.Duration // Page metadata fetch budget (default 8s)

	ProPrice                 string // Display price for the Pro plan (default "$19/month")
	BillingRequestsPerMinute int    // Per-caller cap on verify-pro and checkout (default 10)
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Icebreakr"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Description == "" {
		c.Description = "Generate personalized cold email opening lines from a prospect URL in seconds."
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.LedgerPath == "" {
		c.LedgerPath = "data/icebreakr.db"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.FreeDailyLimit <= 0 {
		c.FreeDailyLimit = generate.DefaultFreeLimit
	}
	if c.QuotaWindow <= 0 {
		c.QuotaWindow = generate.DefaultWindow
	}
	if c.MetadataTimeout <= 0 {
		c.MetadataTimeout = metadata.DefaultTimeout
	}
	if c.ProPrice == "" {
		c.ProPrice = "$19/month"
	}
	if c.BillingRequestsPerMinute <= 0 {
		c.BillingRequestsPerMinute = 10
	}
}

func logLevel(s string) log.Lvl {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	default:
		return log.INFO
	}
}

// Billing is the payments collaborator: entitlement lookups for the
// pipeline and checkout sessions for upgrades.
type Billing interface {
	HasActiveSubscription(ctx context.Context, email string) (bool, error)
	CreateCheckoutSession(ctx context.Context, email string) (billing.Session, error)
}

// Option configures additional App behavior.
type Option func(*App)

// WithTextGenerator sets the model used to write the lines. Required.
func WithTextGenerator(g generate.TextGenerator) Option {
	return func(a *App) {
		a.textGen = g
	}
}

// WithBilling sets the payments collaborator. Without it every caller is on
// the free tier and the upgrade endpoints report an error.
func WithBilling(b Billing) Option {
	return func(a *App) {
		a.Billing = b
	}
}

// WithQuotaStore replaces the in-memory quota store.
func WithQuotaStore(s quota.Store) Option {
	return func(a *App) {
		a.quotaStore = s
	}
}

// WithMetadataFetcher replaces the HTTP page metadata fetcher.
func WithMetadataFetcher(f generate.MetadataFetcher) Option {
	return func(a *App) {
		a.fetcher = f
	}
}

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for user-owned static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}
