package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/qhue/hue"
	"github.com/dokzlo13/qhue/internal/config"
	"github.com/dokzlo13/qhue/internal/credentials"
)

func TestParseCallArgs(t *testing.T) {
	args := parseCallArgs([]string{"lights", "1", "state", "on=true", "bri=200", "name=Desk", "xy=[0.3,0.4]", "=x"})

	require.Len(t, args, 8)
	assert.Equal(t, "lights", args[0])
	assert.Equal(t, "1", args[1])
	assert.Equal(t, "state", args[2])
	assert.Equal(t, hue.P("on", true), args[3])
	assert.Equal(t, hue.P("bri", json.Number("200")), args[4])
	assert.Equal(t, hue.P("name", "Desk"), args[5])
	assert.Equal(t, hue.P("xy", []any{json.Number("0.3"), json.Number("0.4")}), args[6])
	assert.Equal(t, "=x", args[7])
}

func TestParseValue_TrailingDataIsString(t *testing.T) {
	assert.Equal(t, "1 2", parseValue("1 2"))
	assert.Equal(t, "", parseValue(""))
	assert.Equal(t, `{"a"`, parseValue(`{"a"`))
}

func TestPrintJSON(t *testing.T) {
	obj := hue.NewObject()
	obj.Set("on", true)
	obj.Set("bri", json.Number("254"))

	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, obj))
	assert.Equal(t, "{\n  \"on\": true,\n  \"bri\": 254\n}\n", buf.String())
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Credentials.Path = filepath.Join(dir, "username.txt")
	store, closeStore, err := openStore(cfg)
	require.NoError(t, err)
	closeStore()
	assert.IsType(t, &credentials.FileStore{}, store)

	cfg.Credentials.Backend = "sqlite"
	cfg.Credentials.Database = filepath.Join(dir, "qhue.sqlite")
	store, closeStore, err = openStore(cfg)
	require.NoError(t, err)
	closeStore()
	assert.IsType(t, &credentials.SQLiteStore{}, store)

	cfg.Credentials.Backend = "etcd"
	_, _, err = openStore(cfg)
	assert.Error(t, err)
}

func TestConnect_UsesStoredUsername(t *testing.T) {
	cfg := config.Default()
	cfg.Bridge.Host = "10.0.0.2"
	cfg.Credentials.Path = filepath.Join(t.TempDir(), "username.txt")

	_, err := connect(t.Context(), cfg)
	assert.ErrorContains(t, err, "qhue pair")

	require.NoError(t, credentials.NewFileStore(cfg.Credentials.Path).Save(t.Context(), cfg.Bridge.Host, "abc"))
	b, err := connect(t.Context(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.2/api/abc", b.URL())

	cfg.Bridge.Username = "override"
	b, err = connect(t.Context(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "override", b.Username)
}

func TestConnect_RequiresHost(t *testing.T) {
	_, err := connect(t.Context(), config.Default())
	assert.Error(t, err)
}
