package canon

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrMalformedURL is returned when a reference cannot be parsed or resolved
// into an absolute http(s)-style URL with a host.
var ErrMalformedURL = errors.New("malformed URL")

// indexName is the file name used for the origin root.
const indexName = "index"

// defaultPorts maps schemes to the port that is implied when none is given.
var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// Canonicalize resolves ref against base and returns its canonical key.
// base may be empty when ref is already absolute.
//
// Two references that differ only by fragment, query, letter case of the
// scheme or host, an explicit default port, or trailing slashes produce the
// same key.
func Canonicalize(ref, base string) (string, error) {
	u, err := Resolve(ref, base)
	if err != nil {
		return "", err
	}
	return format(u), nil
}

// Resolve parses ref and resolves it against base, removing dot segments
// from the path. The result is always absolute and has a host.
func Resolve(ref, base string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrMalformedURL, ref, err)
	}

	if base != "" {
		b, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("%w: base %q: %v", ErrMalformedURL, base, err)
		}
		u = b.ResolveReference(u)
	} else {
		// Resolving against an empty reference removes dot segments.
		u = u.ResolveReference(&url.URL{})
	}

	if !u.IsAbs() || u.Host == "" || u.Opaque != "" {
		return nil, fmt.Errorf("%w: %q is not an absolute URL", ErrMalformedURL, ref)
	}
	return u, nil
}

// format builds the canonical string for an absolute URL. Trailing slashes
// are trimmed from the escaped path so an encoded slash is never touched.
func format(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	return scheme + "://" + hostPort(scheme, u) + trimSlashes(u.EscapedPath())
}

// hostPort returns the lowercased host with any default port removed.
func hostPort(scheme string, u *url.URL) string {
	host := strings.ToLower(u.Hostname())
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	port := u.Port()
	if port == "" || defaultPorts[scheme] == port {
		return host
	}
	return host + ":" + port
}

// trimSlashes removes trailing slashes and maps the empty path to the root.
func trimSlashes(p string) string {
	p = strings.TrimRight(p, "/")
	if p == "" {
		return "/"
	}
	return p
}

// Origin returns scheme://host[:port] for a URL string, normalized the same
// way Canonicalize normalizes it.
func Origin(raw string) (string, error) {
	u, err := Resolve(raw, "")
	if err != nil {
		return "", err
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme + "://" + hostPort(scheme, u), nil
}

// SameOrigin reports whether two absolute URLs share scheme, host and port.
// Unparseable input is never same-origin.
func SameOrigin(a, b string) bool {
	oa, err := Origin(a)
	if err != nil {
		return false
	}
	ob, err := Origin(b)
	if err != nil {
		return false
	}
	return oa == ob
}

// Path returns the escaped path of a canonical key, "/" for the root.
func Path(key string) string {
	u, err := url.Parse(key)
	if err != nil || u.EscapedPath() == "" {
		return "/"
	}
	return u.EscapedPath()
}

// Filename derives the artifact base name (without extension) for a
// canonical key. Path segments are joined with "_" and the root maps to
// "index".
func Filename(key string) string {
	name := strings.TrimPrefix(Path(key), "/")
	name = strings.ReplaceAll(name, "/", "_")
	if name == "" {
		return indexName
	}
	return name
}
