// Package pairing implements the press-the-button handshake that obtains a
// whitelist username from a bridge.
package pairing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/qhue/hue"
	"github.com/dokzlo13/qhue/internal/credentials"
)

// ErrNoUsername is returned when the bridge accepted the request but the
// response carried no success.username.
var ErrNoUsername = errors.New("bridge response has no username")

// DefaultAttempts bounds the handshake when Config.Attempts is not set.
const DefaultAttempts = 3

// Prompter asks the user to press the link button and returns once they
// say they did.
type Prompter interface {
	PressButton(ctx context.Context, attempt, total int) error
}

// Config contains pairing settings
type Config struct {
	DeviceType string // Defaults to DefaultDeviceType()
	Attempts   int    // Defaults to DefaultAttempts
}

// Pairer runs the handshake against one bridge and persists the result.
type Pairer struct {
	bridge     *hue.Bridge
	prompter   Prompter
	store      credentials.Store
	deviceType string
	attempts   int
}

// New creates a Pairer. store may be nil, in which case the username is
// only returned.
func New(bridge *hue.Bridge, prompter Prompter, store credentials.Store, cfg Config) *Pairer {
	if cfg.DeviceType == "" {
		cfg.DeviceType = DefaultDeviceType()
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultAttempts
	}

	return &Pairer{
		bridge:     bridge,
		prompter:   prompter,
		store:      store,
		deviceType: cfg.DeviceType,
		attempts:   cfg.Attempts,
	}
}

// Pair prompts for the button and requests a username, repeating the whole
// request while the bridge reports an error and attempts remain.
// Transport and status failures end the handshake immediately.
func (p *Pairer) Pair(ctx context.Context) (string, error) {
	root := p.bridge.Unauthenticated()

	var lastErr error
	for attempt := 1; attempt <= p.attempts; attempt++ {
		if err := p.prompter.PressButton(ctx, attempt, p.attempts); err != nil {
			return "", fmt.Errorf("prompt failed: %w", err)
		}

		username, err := CreateUsername(ctx, root, p.deviceType)
		if err == nil {
			log.Info().
				Str("bridge", p.bridge.Host).
				Int("attempt", attempt).
				Msg("Paired with Hue bridge")

			if p.store != nil {
				if err := p.store.Save(ctx, p.bridge.Host, username); err != nil {
					return username, fmt.Errorf("failed to persist username: %w", err)
				}
			}
			return username, nil
		}

		var bridgeErr *hue.BridgeError
		if !errors.As(err, &bridgeErr) {
			return "", err
		}
		lastErr = err

		event := log.Warn().Err(err).Int("attempt", attempt).Int("attempts", p.attempts)
		if bridgeErr.HasType(hue.ErrorTypeLinkButtonNotPressed) {
			event.Msg("Link button not pressed")
		} else {
			event.Msg("Bridge rejected pairing request")
		}
	}

	return "", fmt.Errorf("pairing failed after %d attempts: %w", p.attempts, lastErr)
}

// CreateUsername performs a single handshake request: a POST of devicetype
// to the unauthenticated root, reading success.username from the first
// element of the reply.
func CreateUsername(ctx context.Context, root hue.Resource, deviceType string) (string, error) {
	resp, err := root.Call(ctx, hue.P("devicetype", deviceType), hue.Method(http.MethodPost))
	if err != nil {
		return "", err
	}

	v, ok := resp.Lookup(0, "success", "username")
	username, _ := v.(string)
	if !ok || username == "" {
		return "", ErrNoUsername
	}
	return username, nil
}

// DefaultDeviceType returns "qhue@<hostname>".
func DefaultDeviceType() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	return "qhue@" + host
}
