package hue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds every request unless a resource is built with
// another timeout.
const DefaultTimeout = 5 * time.Second

// Doer sends HTTP requests. *http.Client satisfies it; so does the client
// returned by an oauth2 config.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Param is a named parameter sent in the JSON body of a call.
// A single trailing underscore is stripped from Name before sending.
type Param struct {
	Name  string
	Value any
}

// P builds a Param.
func P(name string, value any) Param {
	return Param{Name: name, Value: value}
}

// Params is an ordered list of named parameters.
type Params []Param

// ParamsFromMap returns the entries of m as Params sorted by name.
func ParamsFromMap(m map[string]any) Params {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	params := make(Params, 0, len(names))
	for _, name := range names {
		params = append(params, Param{Name: name, Value: m[name]})
	}
	return params
}

// Method overrides the HTTP method chosen for a call. Case is ignored.
type Method string

// Resource is an immutable handle on a bridge URL. Navigating returns a new
// Resource and never touches the network; Call performs exactly one request.
//
// Resources derived from the same root share one session.
type Resource struct {
	url     string
	timeout time.Duration
	session Doer
}

// NewResource returns a resource bound to url. A nil session uses
// http.DefaultClient and a non-positive timeout uses DefaultTimeout.
func NewResource(url string, session Doer, timeout time.Duration) Resource {
	if session == nil {
		session = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return Resource{url: url, timeout: timeout, session: session}
}

// URL returns the absolute URL the resource is bound to.
func (r Resource) URL() string {
	return r.url
}

// Timeout returns the per-request timeout.
func (r Resource) Timeout() time.Duration {
	return r.timeout
}

// Session returns the shared session.
func (r Resource) Session() Doer {
	return r.session
}

// Get returns the child resource named name.
func (r Resource) Get(name string) Resource {
	return Resource{url: r.url + "/" + name, timeout: r.timeout, session: r.session}
}

// At returns the child resource for index, converted to its string form.
func (r Resource) At(index any) Resource {
	return r.Get(fmt.Sprint(index))
}

// Path applies At for every segment in order.
func (r Resource) Path(segments ...any) Resource {
	for _, s := range segments {
		r = r.At(s)
	}
	return r
}

func (r Resource) String() string {
	return r.url
}

// call is a fully resolved invocation, ready to be sent.
type call struct {
	method string
	url    string
	body   []byte
}

// Call performs one HTTP request against the resource.
//
// Arguments are interpreted by type:
//   - Param and Params add named parameters, in order;
//   - Method overrides the HTTP method;
//   - anything else is appended to the URL as a path segment.
//
// Without a Method the request is a GET when no parameters were given and a
// PUT otherwise. PUT and POST send the parameters as a JSON object; GET and
// DELETE send no body.
//
// A non-200 status returns *StatusError, an array body holding error objects
// returns *BridgeError, an invalid body returns *DecodeError and a failed
// round trip returns *TransportError. Nothing is retried.
func (r Resource) Call(ctx context.Context, args ...any) (*Response, error) {
	c, err := r.prepare(args)
	if err != nil {
		return nil, err
	}
	return r.send(ctx, c)
}

func (r Resource) prepare(args []any) (*call, error) {
	url := r.url
	var params Params
	var override Method

	for _, arg := range args {
		switch v := arg.(type) {
		case Param:
			params = append(params, v)
		case Params:
			params = append(params, v...)
		case Method:
			override = v
		default:
			url += "/" + fmt.Sprint(v)
		}
	}

	method, err := selectMethod(override, len(params) > 0)
	if err != nil {
		return nil, err
	}

	c := &call{method: method, url: url}
	if method == http.MethodPut || method == http.MethodPost {
		c.body, err = encodeParams(params)
		if err != nil {
			return nil, err
		}
	}
	return c, nil
}

func selectMethod(override Method, hasParams bool) (string, error) {
	if override == "" {
		if hasParams {
			return http.MethodPut, nil
		}
		return http.MethodGet, nil
	}

	switch m := strings.ToUpper(string(override)); m {
	case http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMethod, string(override))
	}
}

// normalizeName strips one trailing underscore so parameter names can
// sidestep reserved words.
func normalizeName(name string) string {
	return strings.TrimSuffix(name, "_")
}

func encodeParams(params Params) ([]byte, error) {
	obj := NewObject()
	for _, p := range params {
		obj.Set(normalizeName(p.Name), encodable(p.Value))
	}
	body, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to encode parameters: %w", err)
	}
	return body, nil
}

func (r Resource) send(ctx context.Context, c *call) (*Response, error) {
	session, timeout := r.session, r.timeout
	if session == nil {
		session = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if c.body != nil {
		body = bytes.NewReader(c.body)
	}

	req, err := http.NewRequestWithContext(ctx, c.method, c.url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := session.Do(req)
	if err != nil {
		return nil, &TransportError{Method: c.method, URL: c.url, Err: err}
	}
	defer resp.Body.Close()

	log.Debug().
		Str("method", c.method).
		Str("url", c.url).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("Hue request")

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Method: c.method, URL: c.url}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: c.method, URL: c.url, Err: err}
	}

	value, err := decodeValue(data)
	if err != nil {
		return nil, &DecodeError{URL: c.url, Err: err}
	}
	if err := bridgeErrors(value); err != nil {
		return nil, err
	}

	return &Response{Value: value, Raw: data}, nil
}
