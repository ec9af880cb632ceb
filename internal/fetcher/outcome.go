package fetcher

import (
	"context"

	"github.com/nao1215/sitesnap/internal/model"
)

// Fetcher retrieves one URL under a deadline.
type Fetcher interface {
	// Fetch retrieves rawURL. Per-URL problems are reported in the Outcome.
	Fetch(ctx context.Context, rawURL string) Outcome

	// Close releases the client or browser.
	Close() error
}

// Kind is the class of a fetch outcome.
type Kind int

const (
	// KindSuccess means a response arrived and was not followed.
	KindSuccess Kind = iota

	// KindRedirect means a 3xx response with a Location header.
	KindRedirect

	// KindFailure means no usable response.
	KindFailure
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindRedirect:
		return "redirect"
	case KindFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Outcome is the result of one fetch.
type Outcome struct {
	Kind Kind

	// StatusCode is the HTTP status. It is 0 for failures.
	StatusCode int

	// ContentType is the response Content-Type.
	ContentType string

	// Body is the raw body (HTTP) or the rendered document (browser).
	Body []byte

	// Screenshot is a full-page PNG, only set by the browser fetcher.
	Screenshot []byte

	// Anchors holds the absolute href of every anchor in the rendered
	// document, only set by the browser fetcher.
	Anchors []string

	// Target is the absolute redirect target.
	Target string

	// Err is the failure cause.
	Err error
}

// Success builds a success outcome.
func Success(statusCode int, contentType string, body []byte) Outcome {
	return Outcome{Kind: KindSuccess, StatusCode: statusCode, ContentType: contentType, Body: body}
}

// Redirect builds a redirect outcome.
func Redirect(statusCode int, target string) Outcome {
	return Outcome{Kind: KindRedirect, StatusCode: statusCode, Target: target}
}

// Failure builds a failure outcome.
func Failure(err error) Outcome {
	return Outcome{Kind: KindFailure, Err: err}
}

// OK reports whether the outcome is a success with a 2xx status.
func (o Outcome) OK() bool {
	return o.Kind == KindSuccess && model.Status(o.StatusCode).OK()
}

// IsHTML reports whether the outcome is a success with an HTML content type.
func (o Outcome) IsHTML() bool {
	return o.Kind == KindSuccess && model.IsHTMLContentType(o.ContentType)
}
