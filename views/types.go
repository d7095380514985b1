// Package views holds the templ components for the icebreakr pages. Run
// "templ generate" after editing a .templ file.
package views

// SiteConfig holds the site-wide settings every page needs.
type SiteConfig struct {
	Name        string // SITE_NAME (default "Icebreakr")
	URL         string // SITE_URL  (default "http://localhost:3000")
	Description string // SITE_DESCRIPTION
}

// PageMeta carries per-page OpenGraph and SEO metadata into the page head.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website"
	JSONLD      string // structured data, empty when the page has none
}

// Plan is the pricing shown on the landing page and in the workspace.
type Plan struct {
	FreeDailyLimit int
	ProPrice       string
}
