package icebreakr

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/icebreakr/generate"
)

func (a *App) plan() Plan {
	return Plan{FreeDailyLimit: a.Config.FreeDailyLimit, ProPrice: a.Config.ProPrice}
}

func (a *App) handleLanding(c echo.Context) error {
	meta := PageMeta{
		Title:       a.Config.Name + " | Personalized cold email openers",
		Description: a.Config.Description,
		URL:         BuildURL(a.Config.URL),
		OGType:      "website",
		JSONLD:      ApplicationJsonLD(a.Config),
	}
	return Render(c, a.Views.Landing(meta, a.plan()))
}

func (a *App) handleWorkspace(c echo.Context) error {
	meta := PageMeta{
		Title:       "Workspace | " + a.Config.Name,
		Description: a.Config.Description,
		URL:         BuildURL(a.Config.URL, "app"),
		OGType:      "website",
	}
	return Render(c, a.Views.Workspace(meta, a.plan()))
}

func (a *App) handleSuccess(c echo.Context) error {
	var email string
	if id := strings.TrimSpace(c.QueryParam("session_id")); id != "" && a.Store != nil {
		rec, err := a.Store.GetCheckout(id)
		switch {
		case err == nil:
			email = rec.Email
		case !errors.Is(err, sql.ErrNoRows):
			c.Logger().Warnf("ledger lookup %s: %v", id, err)
		}
	}
	meta := PageMeta{
		Title:       "Welcome to Pro | " + a.Config.Name,
		Description: a.Config.Description,
		URL:         BuildURL(a.Config.URL, "success"),
		OGType:      "website",
	}
	return Render(c, a.Views.Success(meta, email))
}

func (a *App) handleFavicon(c echo.Context) error {
	return c.File(a.staticDir + "/favicon.svg")
}

func (a *App) handleRobots(c echo.Context) error {
	return c.File(a.staticDir + "/robots.txt")
}

type generateBody struct {
	URL     string `json:"url"`
	Name    string `json:"name"`
	Company string `json:"company"`
	Email   string `json:"email"`
}

type rateLimitBody struct {
	Error     string `json:"error"`
	Remaining int    `json:"remaining"`
	ResetAt   int64  `json:"resetAt"`
}

func (a *App) handleGenerate(c echo.Context) error {
	var body generateBody
	if err := c.Bind(&body); err != nil {
		return JSONError(c, http.StatusBadRequest, "A valid http(s) URL is required.")
	}

	// A client disconnect must not abort a generation whose quota unit is
	// already spent.
	ctx := context.WithoutCancel(c.Request().Context())
	res, err := a.Generator.Generate(ctx, generate.Request{
		URL:     body.URL,
		Name:    body.Name,
		Company: body.Company,
		Email:   body.Email,
		Caller:  CallerIdentity(c.Request()),
	})
	if err != nil {
		var rl *generate.RateLimitError
		switch {
		case errors.Is(err, generate.ErrInvalidInput):
			return JSONError(c, http.StatusBadRequest, "A valid http(s) URL is required.")
		case errors.As(err, &rl):
			h := c.Response().Header()
			h.Set("X-RateLimit-Remaining", strconv.Itoa(rl.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(rl.ResetAt.Unix(), 10))
			return c.JSON(http.StatusTooManyRequests, rateLimitBody{
				Error:     "Rate limit exceeded for free usage. Try again tomorrow or upgrade to Pro.",
				Remaining: rl.Remaining,
				ResetAt:   rl.ResetAt.Unix(),
			})
		default:
			c.Logger().Errorf("generate %s: %v", body.URL, err)
			return JSONError(c, http.StatusInternalServerError, "Unable to generate icebreakers right now.")
		}
	}
	if res.Remaining != nil {
		c.Response().Header().Set("X-RateLimit-Remaining", strconv.Itoa(*res.Remaining))
	}
	return c.JSON(http.StatusOK, res)
}

type emailBody struct {
	Email string `json:"email"`
}

func bindEmail(c echo.Context) string {
	var body emailBody
	if err := c.Bind(&body); err != nil {
		return ""
	}
	return generate.NormalizeEmail(body.Email)
}

func (a *App) handleVerifyPro(c echo.Context) error {
	email := bindEmail(c)
	if email == "" {
		return JSONError(c, http.StatusBadRequest, "Email is required.")
	}
	if a.Billing == nil {
		c.Logger().Error("verify-pro: billing is not configured")
		return JSONError(c, http.StatusInternalServerError, "Unable to verify subscription.")
	}
	ok, err := a.Billing.HasActiveSubscription(c.Request().Context(), email)
	if err != nil {
		c.Logger().Errorf("verify-pro: %v", err)
		return JSONError(c, http.StatusInternalServerError, "Unable to verify subscription.")
	}
	return c.JSON(http.StatusOK, map[string]bool{"isPro": ok})
}

func (a *App) handleCheckout(c echo.Context) error {
	email := bindEmail(c)
	if email == "" {
		return JSONError(c, http.StatusBadRequest, "Email is required for checkout.")
	}
	if a.Billing == nil {
		c.Logger().Error("checkout: billing is not configured")
		return JSONError(c, http.StatusInternalServerError, "Unable to create checkout session.")
	}
	sess, err := a.Billing.CreateCheckoutSession(c.Request().Context(), email)
	if err != nil {
		c.Logger().Errorf("checkout: %v", err)
		return JSONError(c, http.StatusInternalServerError, "Unable to create checkout session.")
	}
	if a.Store != nil {
		if err := a.Store.RecordCheckout(CheckoutRecord{SessionID: sess.ID, Email: email, CreatedAt: time.Now()}); err != nil {
			c.Logger().Warnf("ledger record %s: %v", sess.ID, err)
		}
	}
	return c.JSON(http.StatusOK, sess)
}

type healthBody struct {
	Status    string `json:"status"`
	Generator bool   `json:"generator"`
	Billing   bool   `json:"billing"`
	Ledger    bool   `json:"ledger"`
}

func (a *App) handleHealth(c echo.Context) error {
	body := healthBody{
		Status:    "ok",
		Generator: a.textGen != nil,
		Billing:   a.Billing != nil,
	}
	if a.Store != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		body.Ledger = a.Store.Ping(ctx) == nil
	}
	if !body.Generator || !body.Ledger {
		body.Status = "degraded"
	}
	return c.JSON(http.StatusOK, body)
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if strings.HasPrefix(c.Request().URL.Path, "/api/") {
		if code >= 500 {
			c.Logger().Errorf("server error: %v", err)
			_ = JSONError(c, code, http.StatusText(code))
			return
		}
		msg := http.StatusText(code)
		if ok {
			if s, isStr := he.Message.(string); isStr && s != "" {
				msg = s
			}
		}
		_ = JSONError(c, code, msg)
		return
	}
	if code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
		return
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		_ = RenderStatus(c, code, a.Views.ServerError())
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
