package hue

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"time"
)

// RemoteAPIBase is the root of the Hue remote API, used outside the
// bridge's local network.
const RemoteAPIBase = "https://api.meethue.com/bridge"

// Option configures a Bridge or RemoteBridge.
type Option func(*options)

type options struct {
	timeout time.Duration
	session Doer
	scheme  string
}

// WithTimeout sets the per-request timeout inherited by every derived resource.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithSession sets the session shared by every derived resource.
func WithSession(session Doer) Option {
	return func(o *options) {
		o.session = session
	}
}

// WithScheme sets the URL scheme for a local bridge (default "http").
func WithScheme(scheme string) Option {
	return func(o *options) {
		o.scheme = scheme
	}
}

func buildOptions(opts []Option) options {
	o := options{
		timeout: DefaultTimeout,
		scheme:  "http",
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// newSession creates the bridge HTTP client. TLS verification is off because
// the Hue bridge uses a self-signed certificate.
func newSession(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// Bridge is the root resource of a bridge on the local network:
// http://{host}/api, or http://{host}/api/{username} once a username is known.
type Bridge struct {
	Resource

	Host     string
	Username string

	scheme string
}

// NewBridge creates a connection to the bridge at host. username may be
// empty before pairing. The bridge owns one session shared by every
// resource derived from it.
func NewBridge(host, username string, opts ...Option) *Bridge {
	o := buildOptions(opts)
	if o.session == nil {
		o.session = newSession(o.timeout)
	}

	return &Bridge{
		Resource: NewResource(apiURL(o.scheme, host, username), o.session, o.timeout),
		Host:     host,
		Username: username,
		scheme:   o.scheme,
	}
}

// Unauthenticated returns the root resource without the username, sharing
// this bridge's session. The pairing handshake posts against it.
func (b *Bridge) Unauthenticated() Resource {
	return NewResource(apiURL(b.scheme, b.Host, ""), b.session, b.timeout)
}

// Close releases idle connections held by the session.
func (b *Bridge) Close() error {
	closeIdle(b.session)
	return nil
}

func apiURL(scheme, host, username string) string {
	if username == "" {
		return fmt.Sprintf("%s://%s/api", scheme, host)
	}
	return fmt.Sprintf("%s://%s/api/%s", scheme, host, username)
}

// RemoteBridge is the root resource of a bridge reached through the Hue
// remote API. Its session must carry OAuth2 credentials.
type RemoteBridge struct {
	Resource

	Username string
}

// NewRemoteBridge creates a remote connection for the bridge whitelist
// entry username. Pass the authorized client with WithSession.
func NewRemoteBridge(username string, opts ...Option) *RemoteBridge {
	o := buildOptions(opts)
	if o.session == nil {
		o.session = &http.Client{Timeout: o.timeout}
	}

	return &RemoteBridge{
		Resource: NewResource(RemoteAPIBase+"/"+username, o.session, o.timeout),
		Username: username,
	}
}

// Close releases idle connections held by the session.
func (b *RemoteBridge) Close() error {
	closeIdle(b.session)
	return nil
}

func closeIdle(session Doer) {
	if c, ok := session.(interface{ CloseIdleConnections() }); ok {
		c.CloseIdleConnections()
	}
}
