package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/a-h/templ"
	"github.com/joho/godotenv"

	"github.com/eringen/icebreakr"
	"github.com/eringen/icebreakr/billing"
	"github.com/eringen/icebreakr/generate"
	"github.com/eringen/icebreakr/llm/gemini"
	"github.com/eringen/icebreakr/llm/openai"
	"github.com/eringen/icebreakr/views"
)

func runServe() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gen, err := textGenerator(ctx)
	if err != nil {
		return err
	}
	app := icebreakr.New(configFromEnv(), icebreakr.ViewFuncs{},
		icebreakr.WithTextGenerator(gen),
		icebreakr.WithStaticDir(icebreakr.EnvOr("STATIC_DIR", "public")),
	)
	defer app.Close()
	app.Views = viewFuncs(app.Config)

	if key := os.Getenv("STRIPE_SECRET_KEY"); key != "" {
		sc, err := billing.NewStripe(billing.Options{
			SecretKey:  key,
			PriceID:    os.Getenv("STRIPE_PRO_PRICE_ID"),
			SuccessURL: icebreakr.BuildURL(app.Config.URL, "success") + "?session_id={CHECKOUT_SESSION_ID}",
			CancelURL:  icebreakr.BuildURL(app.Config.URL, "app"),
		})
		if err != nil {
			return err
		}
		app.Billing = sc
	} else {
		app.Echo.Logger.Warn("STRIPE_SECRET_KEY not set; every caller is on the free tier")
	}

	errCh := make(chan error, 1)
	go func() { errCh <- app.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.Echo.Shutdown(shutdownCtx)
}

func configFromEnv() icebreakr.SiteConfig {
	return icebreakr.SiteConfig{
		Name:                     os.Getenv("APP_NAME"),
		URL:                      os.Getenv("APP_URL"),
		Description:              os.Getenv("APP_DESCRIPTION"),
		Addr:                     os.Getenv("ADDR"),
		LedgerPath:               os.Getenv("LEDGER_DB_PATH"),
		LogLevel:                 os.Getenv("LOG_LEVEL"),
		FreeDailyLimit:           icebreakr.EnvInt("FREE_DAILY_LIMIT", generate.DefaultFreeLimit),
		QuotaWindow:              icebreakr.EnvDuration("QUOTA_WINDOW", generate.DefaultWindow),
		MetadataTimeout:          icebreakr.EnvDuration("METADATA_TIMEOUT", 0),
		ProPrice:                 os.Getenv("PRO_PRICE"),
		BillingRequestsPerMinute: icebreakr.EnvInt("BILLING_REQUESTS_PER_MINUTE", 0),
	}
}

func textGenerator(ctx context.Context) (generate.TextGenerator, error) {
	switch provider := strings.ToLower(icebreakr.EnvOr("LLM_PROVIDER", "openai")); provider {
	case "openai":
		c, err := openai.New(openai.Options{
			APIKey:  icebreakr.MustEnv("OPENAI_API_KEY"),
			Model:   os.Getenv("OPENAI_MODEL"),
			BaseURL: os.Getenv("OPENAI_BASE_URL"),
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case "gemini":
		c, err := gemini.New(ctx, gemini.Options{
			APIKey: icebreakr.MustEnv("GEMINI_API_KEY"),
			Model:  os.Getenv("GEMINI_MODEL"),
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q (want openai or gemini)", provider)
	}
}

func viewFuncs(site icebreakr.SiteConfig) icebreakr.ViewFuncs {
	vc := views.SiteConfig{Name: site.Name, URL: site.URL, Description: site.Description}
	return icebreakr.ViewFuncs{
		Landing: func(meta icebreakr.PageMeta, plan icebreakr.Plan) templ.Component {
			return views.Landing(vc, views.PageMeta(meta), views.Plan(plan))
		},
		Workspace: func(meta icebreakr.PageMeta, plan icebreakr.Plan) templ.Component {
			return views.Workspace(vc, views.PageMeta(meta), views.Plan(plan))
		},
		Success: func(meta icebreakr.PageMeta, email string) templ.Component {
			return views.Success(vc, views.PageMeta(meta), email)
		},
		NotFound:    func() templ.Component { return views.NotFound(vc) },
		ServerError: func() templ.Component { return views.ServerError(vc) },
	}
}
