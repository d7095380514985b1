package views

import (
	"net/url"
	"path"
	"strings"
	"time"
)

// buildURL joins path segments onto a base URL, ensuring a trailing slash.
func buildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// pageTitle falls back to the site name when a page has no title of its own.
func pageTitle(site SiteConfig, meta PageMeta) string {
	if t := strings.TrimSpace(meta.Title); t != "" {
		return t
	}
	return site.Name
}

// canonical returns meta.URL, or the site root when unset.
func canonical(site SiteConfig, meta PageMeta) string {
	if meta.URL != "" {
		return meta.URL
	}
	return buildURL(site.URL)
}

func description(site SiteConfig, meta PageMeta) string {
	if meta.Description != "" {
		return meta.Description
	}
	return site.Description
}

func ogType(meta PageMeta) string {
	if meta.OGType != "" {
		return meta.OGType
	}
	return "website"
}

func year() int { return time.Now().Year() }
