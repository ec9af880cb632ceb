package model

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Reasons recorded in PageResult.Skipped.
const (
	// SkipNotHTML marks a successful fetch whose content is not HTML.
	SkipNotHTML = "not HTML"

	// SkipRedirect marks a redirect source. Redirect sources are never snapshotted.
	SkipRedirect = "redirect"
)

// PageResult is the record of one fetch attempt for one canonical URL.
// It is created when the fetch completes and is never modified afterwards;
// the crawler appends it by value to its result sequence.
type PageResult struct {
	// Path is the escaped URL path ("/" for the root). Manifests are sorted by it.
	Path string `json:"pathname"`

	// URL is the canonical URL that was fetched.
	URL string `json:"url"`

	// Status is the HTTP status code, or StatusError when no response arrived.
	Status Status `json:"status"`

	// ContentType is the Content-Type of the response, if any.
	ContentType string `json:"contentType,omitempty"`

	// Title is the document title of a saved HTML page.
	Title string `json:"title,omitempty"`

	// RedirectTarget is the absolute Location of a redirect response.
	RedirectTarget string `json:"redirectTarget,omitempty"`

	// Saved is true when the markup (and raster, if any) were written.
	Saved bool `json:"saved,omitempty"`

	// Skipped explains why a response with a status was not saved.
	Skipped string `json:"skipped,omitempty"`

	// Error is the failure message for StatusError results.
	Error string `json:"error,omitempty"`

	// Digest is the SHA3-256 of the saved markup. It is kept out of the
	// manifest and only recorded in the history database.
	Digest string `json:"-"`
}

// Outcome returns a one-word label for the result: saved, skipped, error or recorded.
func (p PageResult) Outcome() string {
	switch {
	case p.Status.IsError():
		return "error"
	case p.Saved:
		return "saved"
	case p.Skipped != "":
		return "skipped"
	default:
		return "recorded"
	}
}

// SkipHTTPStatus is the skip reason for a non-2xx, non-redirect response.
func SkipHTTPStatus(code int) string {
	return fmt.Sprintf("HTTP %d", code)
}

// IsHTMLContentType reports whether a Content-Type value indicates HTML.
// Parameters such as charset are ignored.
func IsHTMLContentType(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml")
}

// Digest returns the hex SHA3-256 of content, or "" for empty content.
func Digest(content []byte) string {
	if len(content) == 0 {
		return ""
	}
	sum := sha3.Sum256(content)
	return hex.EncodeToString(sum[:])
}
