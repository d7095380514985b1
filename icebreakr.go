// Package icebreakr serves personalized cold-email opening lines from a
// prospect URL, built with Go, Echo, and templ.
//
// The App wires the generation pipeline (quota, page metadata, text
// generation, normalization) to HTTP, together with the thin Stripe-backed
// upgrade flow. Pages are user-provided templ components passed in through
// ViewFuncs.
package icebreakr

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/icebreakr/generate"
	"github.com/eringen/icebreakr/metadata"
	"github.com/eringen/icebreakr/quota"
)

// ViewFuncs holds the templ components the App renders for its pages.
type ViewFuncs struct {
	Landing     func(meta PageMeta, plan Plan) templ.Component
	Workspace   func(meta PageMeta, plan Plan) templ.Component
	Success     func(meta PageMeta, email string) templ.Component
	NotFound    func() templ.Component
	ServerError func() templ.Component
}

// App is the central icebreakr application. Collaborators are constructed
// by the caller and injected with Options; the App owns none of their
// lifecycles except the ledger Store.
type App struct {
	Config    SiteConfig
	Echo      *echo.Echo
	Store     *Store
	Generator *generate.Service
	Billing   Billing
	Views     ViewFuncs

	textGen      generate.TextGenerator
	fetcher      generate.MetadataFetcher
	quotaStore   quota.Store
	customRoutes []func(*App)
	staticDir    string
}

// New creates a new App with the given configuration and view functions.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		Views:     views,
		staticDir: "public",
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Start initializes the ledger, pipeline, middleware and routes, then
// starts the server. It blocks until the server stops.
func (a *App) Start() error {
	if err := a.prepare(); err != nil {
		return err
	}
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) prepare() error {
	if a.textGen == nil {
		return fmt.Errorf("icebreakr: a text generator is required")
	}

	store, err := NewStore(a.Config.LedgerPath)
	if err != nil {
		return fmt.Errorf("icebreakr: init ledger: %w", err)
	}
	a.Store = store

	a.Echo.HideBanner = true
	a.Echo.Logger.SetLevel(logLevel(a.Config.LogLevel))

	if a.fetcher == nil {
		a.fetcher = metadata.NewFetcher(nil, a.Config.MetadataTimeout)
	}
	var ent generate.Entitlements
	if a.Billing != nil {
		ent = a.Billing
	}
	a.Generator = generate.NewService(
		generate.Config{FreeLimit: a.Config.FreeDailyLimit, Window: a.Config.QuotaWindow},
		ent,
		quota.NewTracker(a.quotaStore),
		a.fetcher,
		a.textGen,
		a.Echo.Logger,
	)

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	// User's static assets
	e.Static("/public", a.staticDir)
	e.GET("/favicon.svg", a.handleFavicon)
	e.GET("/robots.txt", a.handleRobots)

	// Pages
	e.GET("/", a.handleLanding)
	e.GET("/app/", a.handleWorkspace)
	e.GET("/success/", a.handleSuccess)
	e.GET("/sitemap.xml", a.handleSitemap)

	// API
	limit := a.billingLimiter()
	e.POST("/api/generate", a.handleGenerate)
	e.POST("/api/verify-pro", a.handleVerifyPro, limit)
	e.POST("/api/checkout", a.handleCheckout, limit)
	e.GET("/api/health", a.handleHealth)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or fatally exits if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("icebreakr: required environment variable %s is not set", key)
	}
	return v
}
