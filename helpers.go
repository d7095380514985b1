package icebreakr

import (
	"encoding/json"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"
	"time"
)

// BuildURL joins a base URL with path segments, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
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

// ApplicationJsonLD returns a JSON-LD string for a WebApplication schema
// using SiteConfig.
func ApplicationJsonLD(cfg SiteConfig) string {
	data := map[string]interface{}{
		"@context":            "https://schema.org",
		"@type":               "WebApplication",
		"name":                cfg.Name,
		"url":                 BuildURL(cfg.URL),
		"description":         cfg.Description,
		"applicationCategory": "BusinessApplication",
		"offers": []map[string]string{
			{"@type": "Offer", "name": "Free", "price": "0"},
			{"@type": "Offer", "name": "Pro", "description": cfg.ProPrice},
		},
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// EnvInt returns the integer value of the environment variable key, or
// fallback if it is empty or malformed.
func EnvInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// EnvDuration returns the duration value of the environment variable key
// (e.g. "24h", "8s"), or fallback if it is empty or malformed.
func EnvDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
