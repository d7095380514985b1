package icebreakr

import "time"

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website"
	JSONLD      string // structured data for the landing page, empty elsewhere
}

// Plan describes the pricing shown on pages. FreeDailyLimit is the same
// number the server enforces.
type Plan struct {
	FreeDailyLimit int
	ProPrice       string
}

// CheckoutRecord is a checkout session created for a billing email.
type CheckoutRecord struct {
	SessionID string
	Email     string
	CreatedAt time.Time
}
