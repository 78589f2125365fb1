package pairing

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/qhue/hue"
	"github.com/dokzlo13/qhue/internal/credentials"
)

type countingPrompter struct {
	prompts int
}

func (p *countingPrompter) PressButton(ctx context.Context, attempt, total int) error {
	p.prompts++
	return nil
}

// fakeBridge answers POST /api with the link-button error until the given
// number of requests have been refused.
func fakeBridge(t *testing.T, refusals int) (*httptest.Server, *[]string) {
	t.Helper()
	var bodies []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api", r.URL.Path)

		body, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(body))

		if len(bodies) <= refusals {
			w.Write([]byte(`[{"error":{"type":101,"address":"","description":"link button not pressed"}}]`))
			return
		}
		w.Write([]byte(`[{"success":{"username":"83b7780291a6ceffbe0bd049104df"}}]`))
	}))
	t.Cleanup(srv.Close)
	return srv, &bodies
}

func bridgeFor(srv *httptest.Server) *hue.Bridge {
	return hue.NewBridge(strings.TrimPrefix(srv.URL, "http://"), "")
}

func TestPair_SucceedsAfterRefusals(t *testing.T) {
	srv, bodies := fakeBridge(t, 2)
	store := credentials.NewFileStore(filepath.Join(t.TempDir(), "qhue_username.txt"))
	prompter := &countingPrompter{}

	p := New(bridgeFor(srv), prompter, store, Config{DeviceType: "qhue@test", Attempts: 3})
	username, err := p.Pair(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "83b7780291a6ceffbe0bd049104df", username)
	assert.Equal(t, 3, prompter.prompts)
	require.Len(t, *bodies, 3)
	assert.Equal(t, `{"devicetype":"qhue@test"}`, (*bodies)[0])

	stored, err := store.Load(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, username, stored)
}

func TestPair_GivesUpAfterAttempts(t *testing.T) {
	srv, bodies := fakeBridge(t, 10)
	prompter := &countingPrompter{}

	p := New(bridgeFor(srv), prompter, nil, Config{DeviceType: "qhue@test", Attempts: 2})
	_, err := p.Pair(context.Background())

	var bridgeErr *hue.BridgeError
	require.ErrorAs(t, err, &bridgeErr)
	assert.True(t, bridgeErr.HasType(hue.ErrorTypeLinkButtonNotPressed))
	assert.Len(t, *bodies, 2)
	assert.Equal(t, 2, prompter.prompts)
}

func TestPair_StatusErrorAbortsImmediately(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := New(bridgeFor(srv), &countingPrompter{}, nil, Config{Attempts: 5})
	_, err := p.Pair(context.Background())

	var statusErr *hue.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Equal(t, 1, calls)
}

func TestCreateUsername_MissingUsername(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]any{map[string]any{"success": map[string]any{}}})
	}))
	defer srv.Close()

	_, err := CreateUsername(context.Background(), bridgeFor(srv).Unauthenticated(), "qhue@test")
	assert.ErrorIs(t, err, ErrNoUsername)
}

func TestNew_Defaults(t *testing.T) {
	p := New(hue.NewBridge("bridge", ""), &countingPrompter{}, nil, Config{})

	assert.Equal(t, DefaultAttempts, p.attempts)
	assert.True(t, strings.HasPrefix(p.deviceType, "qhue@"))
}

func TestLinePrompter(t *testing.T) {
	var out bytes.Buffer
	p := NewLinePrompter(strings.NewReader("\n"), &out)

	require.NoError(t, p.PressButton(context.Background(), 1, 3))
	assert.Contains(t, out.String(), "attempt 1 of 3")
}

func TestLinePrompter_ContextCancelled(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewLinePrompter(r, io.Discard).PressButton(ctx, 1, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLinePrompter_ReusableAfterCancel(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	p := NewLinePrompter(r, io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.PressButton(ctx, 1, 2), context.Canceled)

	go w.Write([]byte("\n"))
	assert.NoError(t, p.PressButton(context.Background(), 2, 2))
}
