package script

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"
)

// logLoader provides log.debug/info/warn/error(msg, fields) to Lua
func logLoader(L *lua.LState) int {
	mod := L.NewTable()

	L.SetField(mod, "debug", L.NewFunction(logAt(zerolog.DebugLevel)))
	L.SetField(mod, "info", L.NewFunction(logAt(zerolog.InfoLevel)))
	L.SetField(mod, "warn", L.NewFunction(logAt(zerolog.WarnLevel)))
	L.SetField(mod, "error", L.NewFunction(logAt(zerolog.ErrorLevel)))

	L.Push(mod)
	return 1
}

func logAt(level zerolog.Level) lua.LGFunction {
	return func(L *lua.LState) int {
		msg := L.CheckString(1)

		event := log.WithLevel(level).Str("source", "lua")
		if tbl, ok := L.Get(2).(*lua.LTable); ok {
			tbl.ForEach(func(key, value lua.LValue) {
				event = event.Interface(lua.LVAsString(key), LuaToGo(value))
			})
		}
		event.Msg(msg)

		return 0
	}
}
