// Package billing talks to Stripe: subscription lookups for entitlement and
// checkout sessions for upgrades.
package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// ErrNotConfigured is returned when a call needs a setting that was left
// empty.
var ErrNotConfigured = errors.New("billing: not configured")

// Session is a created checkout session.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Options configures a Stripe client.
type Options struct {
	SecretKey  string
	PriceID    string // recurring price for the Pro plan
	SuccessURL string // may contain {CHECKOUT_SESSION_ID}
	CancelURL  string
	Backends   *stripe.Backends // nil uses the SDK defaults
}

// Stripe implements entitlement and checkout against the Stripe API.
type Stripe struct {
	sc   *client.API
	opts Options
}

// NewStripe creates a Stripe client. The secret key is required; the price
// and URLs are only needed for checkout.
func NewStripe(opts Options) (*Stripe, error) {
	if opts.SecretKey == "" {
		return nil, fmt.Errorf("%w: missing secret key", ErrNotConfigured)
	}
	return &Stripe{sc: client.New(opts.SecretKey, opts.Backends), opts: opts}, nil
}

// HasActiveSubscription reports whether the first customer with email has
// an active or trialing subscription.
func (s *Stripe) HasActiveSubscription(ctx context.Context, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false, nil
	}

	cparams := &stripe.CustomerListParams{Email: stripe.String(email)}
	cparams.Context = ctx
	cparams.Limit = stripe.Int64(1)
	cparams.Single = true

	var customer *stripe.Customer
	it := s.sc.Customers.List(cparams)
	if it.Next() {
		customer = it.Customer()
	}
	if err := it.Err(); err != nil {
		return false, fmt.Errorf("list customers: %w", err)
	}
	if customer == nil {
		return false, nil
	}

	sparams := &stripe.SubscriptionListParams{
		Customer: stripe.String(customer.ID),
		Status:   stripe.String("all"),
	}
	sparams.Context = ctx
	sparams.Limit = stripe.Int64(20)
	sparams.Single = true

	var subs []*stripe.Subscription
	sit := s.sc.Subscriptions.List(sparams)
	for sit.Next() {
		subs = append(subs, sit.Subscription())
	}
	if err := sit.Err(); err != nil {
		return false, fmt.Errorf("list subscriptions: %w", err)
	}
	return Entitled(subs), nil
}

// Entitled reports whether any subscription grants Pro access.
func Entitled(subs []*stripe.Subscription) bool {
	for _, sub := range subs {
		if sub == nil {
			continue
		}
		if sub.Status == stripe.SubscriptionStatusActive || sub.Status == stripe.SubscriptionStatusTrialing {
			return true
		}
	}
	return false
}

// CreateCheckoutSession starts a subscription checkout for email.
func (s *Stripe) CreateCheckoutSession(ctx context.Context, email string) (Session, error) {
	if s.opts.PriceID == "" {
		return Session{}, fmt.Errorf("%w: missing price id", ErrNotConfigured)
	}
	params := CheckoutParams(email, s.opts.PriceID, s.opts.SuccessURL, s.opts.CancelURL)
	params.Context = ctx

	sess, err := s.sc.CheckoutSessions.New(params)
	if err != nil {
		return Session{}, fmt.Errorf("create checkout session: %w", err)
	}
	return Session{ID: sess.ID, URL: sess.URL}, nil
}

// CheckoutParams builds the checkout request for one Pro seat.
func CheckoutParams(email, priceID, successURL, cancelURL string) *stripe.CheckoutSessionParams {
	return &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		CustomerEmail:      stripe.String(strings.ToLower(strings.TrimSpace(email))),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL:               stripe.String(successURL),
		CancelURL:                stripe.String(cancelURL),
		BillingAddressCollection: stripe.String(string(stripe.CheckoutSessionBillingAddressCollectionAuto)),
		AllowPromotionCodes:      stripe.Bool(true),
	}
}
