package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNetwork matches transport failures where no response was received.
var ErrNetwork = errors.New("network error")

// Error is returned for non-2xx responses and transport failures.
//
// Status is 0 when the request never produced a response; Err then holds the
// cause and errors.Is(err, ErrNetwork) reports true.
type Error struct {
	Status  int
	Message string
	Body    []byte
	Err     error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Err)
		}
		return e.Message
	}
	return fmt.Sprintf("api: %d: %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports ErrNetwork for transport failures.
func (e *Error) Is(target error) bool {
	return target == ErrNetwork && e.Status == 0
}

// Unauthorized reports whether the backend answered 401.
func (e *Error) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// AsError unwraps err into an [*Error].
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsUnauthorized reports whether err is a 401 [*Error].
func IsUnauthorized(err error) bool {
	apiErr, ok := AsError(err)
	return ok && apiErr.Unauthorized()
}

func networkError(err error) *Error {
	return &Error{Message: ErrNetwork.Error(), Err: err}
}

func responseError(status int, body []byte) *Error {
	return &Error{Status: status, Message: MessageFrom(status, body), Body: body}
}

// MessageFrom extracts a human-readable message from an error response body.
//
// It reads the backend's "detail" field, which is either a string or a list
// of validation items carrying "msg". It falls back to "message", then to the
// HTTP status text.
func MessageFrom(status int, body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if len(body) > 0 && json.Unmarshal(body, &payload) == nil {
		if msg := detailMessage(payload.Detail); msg != "" {
			return msg
		}
		if msg := strings.TrimSpace(payload.Message); msg != "" {
			return msg
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("request failed with status %d", status)
}

type detailItem struct {
	Msg     string `json:"msg"`
	Message string `json:"message"`
}

func (d detailItem) text() string {
	if d.Msg != "" {
		return d.Msg
	}
	return d.Message
}

func detailMessage(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var s string
	if json.Unmarshal(raw, &s) == nil {
		return strings.TrimSpace(s)
	}

	var items []detailItem
	if json.Unmarshal(raw, &items) == nil {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if msg := strings.TrimSpace(item.text()); msg != "" {
				msgs = append(msgs, msg)
			}
		}
		return strings.Join(msgs, "; ")
	}

	var item detailItem
	if json.Unmarshal(raw, &item) == nil {
		return strings.TrimSpace(item.text())
	}
	return ""
}
