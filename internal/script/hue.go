package script

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/qhue/hue"
)

const resourceTypeName = "hue.resource"

// hueModule provides hue.* functions to Lua.
//
// Resources are userdata with get/at/url/call methods:
//
//	local lights, err = hue.bridge():get("lights"):call()
//	local _, err = hue.bridge():get("lights"):at(1):get("state"):call{params = {on = true, bri = 200}}
//	local res, err = hue.bridge():get("groups"):call{params = {name = "Hall"}, method = "post"}
//
// call returns (result, nil) on success and (nil, "error message") on failure.
type hueModule struct {
	root hue.Resource
}

// Loader is the module loader for Lua
func (m *hueModule) Loader(L *lua.LState) int {
	mt := L.NewTypeMetatable(resourceTypeName)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), resourceMethods))
	L.SetField(mt, "__tostring", L.NewFunction(resourceURL))

	mod := L.NewTable()
	L.SetField(mod, "bridge", L.NewFunction(m.bridge))

	L.Push(mod)
	return 1
}

// bridge() -> resource
func (m *hueModule) bridge(L *lua.LState) int {
	pushResource(L, m.root)
	return 1
}

var resourceMethods = map[string]lua.LGFunction{
	"get":  resourceGet,
	"at":   resourceAt,
	"url":  resourceURL,
	"call": resourceCall,
}

func pushResource(L *lua.LState, r hue.Resource) {
	ud := L.NewUserData()
	ud.Value = r
	L.SetMetatable(ud, L.GetTypeMetatable(resourceTypeName))
	L.Push(ud)
}

func checkResource(L *lua.LState) hue.Resource {
	ud := L.CheckUserData(1)
	if r, ok := ud.Value.(hue.Resource); ok {
		return r
	}
	L.ArgError(1, "hue.resource expected")
	return hue.Resource{}
}

// resource:get(name) -> resource
func resourceGet(L *lua.LState) int {
	r := checkResource(L)
	pushResource(L, r.Get(L.CheckString(2)))
	return 1
}

// resource:at(index) -> resource
func resourceAt(L *lua.LState) int {
	r := checkResource(L)
	switch v := L.Get(2).(type) {
	case lua.LNumber, lua.LString:
		pushResource(L, r.At(v.String()))
	default:
		L.ArgError(2, "index must be string or number")
		return 0
	}
	return 1
}

// resource:url() -> string
func resourceURL(L *lua.LState) int {
	r := checkResource(L)
	L.Push(lua.LString(r.URL()))
	return 1
}

// resource:call{path = {...}, params = {...}, method = "..."} -> (result, err)
func resourceCall(L *lua.LState) int {
	r := checkResource(L)

	args, err := callArgs(L.OptTable(2, L.NewTable()))
	if err != nil {
		L.ArgError(2, err.Error())
		return 0
	}

	ctx := L.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	resp, err := r.Call(ctx, args...)
	if err != nil {
		log.Error().Err(err).Str("url", r.URL()).Msg("Lua hue call failed")
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}

	L.Push(GoToLuaValue(L, resp.Value))
	L.Push(lua.LNil)
	return 2
}

func callArgs(opts *lua.LTable) ([]any, error) {
	var args []any

	switch path := opts.RawGetString("path").(type) {
	case *lua.LNilType:
	case *lua.LTable:
		for i := 1; i <= path.Len(); i++ {
			args = append(args, path.RawGetInt(i).String())
		}
	default:
		args = append(args, path.String())
	}

	switch params := opts.RawGetString("params").(type) {
	case *lua.LNilType:
	case *lua.LTable:
		m, ok := LuaToGo(params).(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("params must be a table with string keys")
		}
		args = append(args, hue.ParamsFromMap(m))
	default:
		return nil, fmt.Errorf("params must be a table")
	}

	if method, ok := opts.RawGetString("method").(lua.LString); ok {
		args = append(args, hue.Method(string(method)))
	}

	return args, nil
}
