package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/dmitrijs2005/userconsole/internal/common"
)

// APIError is returned for every non-2xx response. It keeps the backend's
// error payload so callers can show the server's own message.
type APIError struct {
	Status  int
	Message string
	// Fields holds per-field rejections, e.g. {"email": ["already exists"]}.
	Fields map[string][]string
	Body   []byte
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api error: %d: %s", e.Status, e.Message)
}

// Unwrap maps the status onto the shared error taxonomy.
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		return common.ErrAuth
	case e.Status == http.StatusNotFound:
		return common.ErrNotFound
	case e.Status >= 400 && e.Status < 500:
		return common.ErrValidation
	default:
		return nil
	}
}

// FieldError returns the first rejected field (alphabetically) and its first
// message, or ok=false when the backend did not report field errors.
func (e *APIError) FieldError() (field, message string, ok bool) {
	if len(e.Fields) == 0 {
		return "", "", false
	}
	names := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, n := range names {
		if msgs := e.Fields[n]; len(msgs) > 0 {
			return n, msgs[0], true
		}
	}
	return names[0], "", true
}

// errorEnvelope covers both the DRF views ({"mensaje", "error"}) and the
// SimpleJWT views ({"detail"}).
type errorEnvelope struct {
	Detail  string          `json:"detail"`
	Mensaje string          `json:"mensaje"`
	Error   json.RawMessage `json:"error"`
}

func newAPIError(status int, body []byte) *APIError {
	e := &APIError{Status: status, Body: body}

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		e.Message = strings.TrimSpace(string(body))
		if len(e.Message) > 200 {
			e.Message = e.Message[:200]
		}
		return e
	}

	if len(env.Error) > 0 {
		var s string
		if err := json.Unmarshal(env.Error, &s); err == nil {
			e.Message = s
		} else {
			e.Fields = decodeFields(env.Error)
		}
	}

	if e.Message == "" {
		if field, msg, ok := e.FieldError(); ok {
			e.Message = field + ": " + msg
		}
	}
	if e.Message == "" {
		e.Message = env.Detail
	}
	if e.Message == "" {
		e.Message = env.Mensaje
	}
	return e
}

func decodeFields(raw json.RawMessage) map[string][]string {
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil
	}
	fields := make(map[string][]string, len(generic))
	for k, v := range generic {
		var list []string
		if err := json.Unmarshal(v, &list); err == nil {
			fields[k] = list
			continue
		}
		var one string
		if err := json.Unmarshal(v, &one); err == nil {
			fields[k] = []string{one}
		}
	}
	return fields
}
