package config

import (
	"net/url"
	"strings"
	"time"
)

// SiteConfig holds settings for one host.
type SiteConfig struct {
	// Cookie is an HTTP cookie to send to this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// IgnorePatterns are URL path globs to skip during crawling.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns are URL path globs to follow during crawling.
	// If specified, only URLs matching these patterns are crawled.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`

	// Mode is raw or rendered.
	Mode string `yaml:"mode,omitempty"`

	// Timeout is the per-page deadline, e.g. "15s".
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// Viewport is WIDTHxHEIGHT.
	Viewport string `yaml:"viewport,omitempty"`

	// UserAgent overrides the User-Agent header.
	UserAgent string `yaml:"userAgent,omitempty"`
}

// File represents the structure of the .sitesnap configuration file.
type File struct {
	// Sites maps hosts (with port, if not the default) to their settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults apply to every site unless overridden.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a host, with the site entry
// merged over the defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	if cf.Defaults.Headers != nil {
		result.Headers = make(map[string]string, len(cf.Defaults.Headers))
		for k, v := range cf.Defaults.Headers {
			result.Headers[k] = v
		}
	}

	site, ok := cf.Sites[strings.ToLower(host)]
	if !ok {
		return result
	}

	if site.Cookie != "" {
		result.Cookie = site.Cookie
	}
	if len(site.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		for k, v := range site.Headers {
			result.Headers[k] = v
		}
	}
	if len(site.IgnorePatterns) > 0 {
		result.IgnorePatterns = site.IgnorePatterns
	}
	if len(site.FollowPatterns) > 0 {
		result.FollowPatterns = site.FollowPatterns
	}
	if site.Mode != "" {
		result.Mode = site.Mode
	}
	if site.Timeout != 0 {
		result.Timeout = site.Timeout
	}
	if site.Viewport != "" {
		result.Viewport = site.Viewport
	}
	if site.UserAgent != "" {
		result.UserAgent = site.UserAgent
	}

	return result
}

// SiteFor returns the configuration for the host of rawURL.
func (cf *File) SiteFor(rawURL string) SiteConfig {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return cf.GetSiteConfig("")
	}
	return cf.GetSiteConfig(u.Host)
}
