package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Status is the HTTP status code recorded for a page.
// StatusError marks fetches that produced no HTTP response at all
// (network failure, timeout, malformed response).
type Status int

// StatusError is the synthetic status used for failed fetches.
const StatusError Status = -1

// statusErrorText is how StatusError is written in manifests and summaries.
const statusErrorText = "ERROR"

// String returns the numeric code, or "ERROR" for StatusError.
func (s Status) String() string {
	if s == StatusError {
		return statusErrorText
	}
	return strconv.Itoa(int(s))
}

// IsError reports whether the status is the synthetic ERROR status.
func (s Status) IsError() bool {
	return s == StatusError
}

// OK reports whether the status is a 2xx code.
func (s Status) OK() bool {
	return s >= 200 && s < 300
}

// IsRedirect reports whether the status is a 3xx code.
func (s Status) IsRedirect() bool {
	return s >= 300 && s < 400
}

// MarshalJSON writes the status as a JSON number, or the string "ERROR".
func (s Status) MarshalJSON() ([]byte, error) {
	if s == StatusError {
		return json.Marshal(statusErrorText)
	}
	return []byte(strconv.Itoa(int(s))), nil
}

// UnmarshalJSON accepts a JSON number or the string "ERROR".
func (s *Status) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		if text == statusErrorText {
			*s = StatusError
			return nil
		}
		code, err := strconv.Atoi(text)
		if err != nil {
			return fmt.Errorf("invalid status %q", text)
		}
		*s = Status(code)
		return nil
	}

	var code int
	if err := json.Unmarshal(data, &code); err != nil {
		return fmt.Errorf("invalid status %s: %w", data, err)
	}
	*s = Status(code)
	return nil
}
