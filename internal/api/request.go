package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Request is one API call as it moves through the middleware chain.
// Retried marks the second attempt after a token refresh; a retried request
// never triggers another refresh.
type Request struct {
	ID      uuid.UUID
	Method  string
	Route   string
	Path    string
	Query   url.Values
	Header  http.Header
	Body    []byte
	Retried bool

	sentAt time.Time
}

// NewRequest builds a request for route, filling its {placeholders} in order
// with params.
func NewRequest(method, route string, params ...any) *Request {
	return &Request{
		ID:     uuid.New(),
		Method: method,
		Route:  route,
		Path:   expandRoute(route, params...),
		Query:  url.Values{},
		Header: http.Header{},
	}
}

// WithJSON sets v as the JSON request body.
func (r *Request) WithJSON(v any) (*Request, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, &Error{Code: CodeBadRequest, Message: "failed to encode request body", Err: err}
	}
	r.Body = body
	r.Header.Set("Content-Type", "application/json")
	return r, nil
}

// Clone returns a deep copy that keeps the request ID.
func (r *Request) Clone() *Request {
	c := *r
	c.Query = cloneValues(r.Query)
	c.Header = r.Header.Clone()
	if r.Body != nil {
		c.Body = append([]byte(nil), r.Body...)
	}
	return &c
}

// SentAt is when the transport last sent the request.
func (r *Request) SentAt() time.Time {
	return r.sentAt
}

func (r *Request) url(base string) string {
	u := strings.TrimRight(base, "/") + r.Path
	if len(r.Query) > 0 {
		u += "?" + r.Query.Encode()
	}
	return u
}

func cloneValues(v url.Values) url.Values {
	if v == nil {
		return nil
	}
	out := make(url.Values, len(v))
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

func expandRoute(route string, params ...any) string {
	if len(params) == 0 {
		return route
	}
	var b strings.Builder
	i := 0
	for {
		open := strings.IndexByte(route, '{')
		if open < 0 || i >= len(params) {
			b.WriteString(route)
			break
		}
		end := strings.IndexByte(route[open:], '}')
		if end < 0 {
			b.WriteString(route)
			break
		}
		b.WriteString(route[:open])
		b.WriteString(url.PathEscape(fmt.Sprint(params[i])))
		route = route[open+end+1:]
		i++
	}
	return b.String()
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// Request is the request this response answers. After an auth retry it
	// is the retried clone, not the request the chain started with.
	Request *Request
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
