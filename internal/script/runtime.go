// Package script runs Lua scripts against a Hue bridge.
package script

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/qhue/hue"
)

// Runtime owns a Lua VM with the hue and log modules preloaded.
// It is not safe for concurrent use.
type Runtime struct {
	L *lua.LState
}

// NewRuntime creates a VM whose hue.bridge() returns root.
func NewRuntime(root hue.Resource) *Runtime {
	L := lua.NewState()

	hueMod := &hueModule{root: root}
	L.PreloadModule("hue", hueMod.Loader)
	L.PreloadModule("log", logLoader)

	return &Runtime{L: L}
}

// RunFile executes the script at path. ctx cancels the script and any
// request it has in flight.
func (r *Runtime) RunFile(ctx context.Context, path string) error {
	r.L.SetContext(ctx)
	defer r.L.RemoveContext()

	log.Debug().Str("path", path).Msg("Running Lua script")
	if err := r.L.DoFile(path); err != nil {
		return fmt.Errorf("failed to run script %s: %w", path, err)
	}
	return nil
}

// RunString executes Lua source.
func (r *Runtime) RunString(ctx context.Context, source string) error {
	r.L.SetContext(ctx)
	defer r.L.RemoveContext()

	if err := r.L.DoString(source); err != nil {
		return fmt.Errorf("failed to run script: %w", err)
	}
	return nil
}

// Close closes the Lua state
func (r *Runtime) Close() {
	r.L.Close()
}
