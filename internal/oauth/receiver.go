package oauth

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultPort is the local callback port registered as the redirect address.
const DefaultPort = 8584

const thankYou = "Thank you.  Authentication token received. You can close this window."

// Receiver is a one-shot HTTPS server that captures the OAuth redirect.
// Register https://localhost:<port> as the redirect address with the API.
//
// The certificate is usually self-signed:
//
//	openssl req -x509 -nodes -newkey rsa:2048 -keyout key.pem -out cert.pem -days 365
type Receiver struct {
	port     int
	certFile string
	keyFile  string
}

// NewReceiver creates a receiver listening on port with the given key pair.
func NewReceiver(port int, certFile, keyFile string) *Receiver {
	if port == 0 {
		port = DefaultPort
	}
	return &Receiver{port: port, certFile: certFile, keyFile: keyFile}
}

// RedirectURL listens on the configured port and returns the first callback.
func (r *Receiver) RedirectURL(ctx context.Context) (string, error) {
	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return "", fmt.Errorf("failed to load certificate: %w", err)
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", r.port))
	if err != nil {
		return "", fmt.Errorf("failed to listen on port %d: %w", r.port, err)
	}

	tlsLn := tls.NewListener(ln, &tls.Config{Certificates: []tls.Certificate{cert}})
	return r.Serve(ctx, tlsLn)
}

// Serve accepts requests on ln until one GET arrives and returns it as
// https://localhost:<port><path>. The listener is closed on return.
func (r *Receiver) Serve(ctx context.Context, ln net.Listener) (string, error) {
	captured := make(chan string, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		select {
		case captured <- req.URL.RequestURI():
		default:
		}

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(thankYou))
	})

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("OAuth callback server shutdown error")
		}
	}()

	log.Info().Int("port", r.port).Msg("Waiting for the OAuth callback")

	select {
	case path := <-captured:
		return fmt.Sprintf("https://localhost:%d%s", r.port, path), nil
	case err := <-errCh:
		return "", fmt.Errorf("callback server failed: %w", err)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
