package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"golang.org/x/oauth2"

	"github.com/dokzlo13/qhue/hue"
	"github.com/dokzlo13/qhue/internal/config"
	"github.com/dokzlo13/qhue/internal/credentials"
	"github.com/dokzlo13/qhue/internal/db"
	"github.com/dokzlo13/qhue/internal/logging"
	"github.com/dokzlo13/qhue/internal/oauth"
	"github.com/dokzlo13/qhue/internal/pairing"
	"github.com/dokzlo13/qhue/internal/script"
)

// globalFlags are accepted by every command.
type globalFlags struct {
	configPath string
	bridge     string
	username   string
	logLevel   string
}

func (g *globalFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&g.configPath, "config", "c", "qhue.yaml", "Path to configuration file")
	fs.StringVar(&g.bridge, "bridge", "", "Bridge IP or hostname (overrides config)")
	fs.StringVar(&g.username, "username", "", "Bridge username (overrides config and stored credentials)")
	fs.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// load reads the configuration, applies flag overrides and sets up logging.
func (g *globalFlags) load() (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if g.bridge != "" {
		cfg.Bridge.Host = g.bridge
	}
	if g.username != "" {
		cfg.Bridge.Username = g.username
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}

	logging.Setup(cfg.Log.Level, cfg.Log.JSON, cfg.Log.Colors)
	return cfg, nil
}

func parseFlags(fs *pflag.FlagSet, args []string) error {
	fs.SetOutput(os.Stderr)
	return fs.Parse(args)
}

// openStore opens the configured credential store.
func openStore(cfg *config.Config) (credentials.Store, func(), error) {
	switch cfg.Credentials.Backend {
	case "file":
		return credentials.NewFileStore(cfg.Credentials.Path), func() {}, nil
	case "sqlite":
		database, err := db.Open(cfg.Credentials.Database)
		if err != nil {
			return nil, nil, err
		}
		closeDB := func() {
			if err := database.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close database")
			}
		}
		return credentials.NewSQLiteStore(database.DB), closeDB, nil
	default:
		return nil, nil, fmt.Errorf("unknown credentials backend %q", cfg.Credentials.Backend)
	}
}

func bridgeOptions(cfg *config.Config) []hue.Option {
	return []hue.Option{
		hue.WithTimeout(cfg.Bridge.Timeout.Duration()),
		hue.WithScheme(cfg.Bridge.Scheme),
	}
}

// connect builds the authenticated bridge, reading the username from the
// credential store when it is not configured.
func connect(ctx context.Context, cfg *config.Config) (*hue.Bridge, error) {
	if cfg.Bridge.Host == "" {
		return nil, errors.New("no bridge host configured (set bridge.host or --bridge)")
	}

	username := cfg.Bridge.Username
	if username == "" {
		store, closeStore, err := openStore(cfg)
		if err != nil {
			return nil, err
		}
		defer closeStore()

		username, err = store.Load(ctx, cfg.Bridge.Host)
		if errors.Is(err, credentials.ErrNotFound) {
			return nil, errors.New("no username stored for this bridge; run `qhue pair` first")
		}
		if err != nil {
			return nil, err
		}
	}

	return hue.NewBridge(cfg.Bridge.Host, username, bridgeOptions(cfg)...), nil
}

func runPair(ctx context.Context, args []string) error {
	var g globalFlags
	fs := pflag.NewFlagSet("pair", pflag.ContinueOnError)
	g.register(fs)
	deviceType := fs.String("devicetype", "", "Device type registered with the bridge (default qhue@<hostname>)")
	attempts := fs.Int("attempts", 0, "Number of pairing attempts (default from config)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	cfg, err := g.load()
	if err != nil {
		return err
	}
	if cfg.Bridge.Host == "" {
		return errors.New("no bridge host configured (set bridge.host or --bridge)")
	}

	pairCfg := pairing.Config{DeviceType: cfg.Pairing.DeviceType, Attempts: cfg.Pairing.Attempts}
	if *deviceType != "" {
		pairCfg.DeviceType = *deviceType
	}
	if *attempts > 0 {
		pairCfg.Attempts = *attempts
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	bridge := hue.NewBridge(cfg.Bridge.Host, "", bridgeOptions(cfg)...)
	defer bridge.Close()

	p := pairing.New(bridge, pairing.NewLinePrompter(os.Stdin, os.Stdout), store, pairCfg)
	username, err := p.Pair(ctx)
	if err != nil {
		return err
	}

	fmt.Println(username)
	return nil
}

func runCall(ctx context.Context, args []string) error {
	var g globalFlags
	fs := pflag.NewFlagSet("call", pflag.ContinueOnError)
	g.register(fs)
	method := fs.StringP("method", "X", "", "HTTP method (default GET, or PUT when parameters are given)")
	remote := fs.Bool("remote", false, "Call through the remote API using the stored OAuth token")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	cfg, err := g.load()
	if err != nil {
		return err
	}

	callArgs := parseCallArgs(fs.Args())
	if *method != "" {
		callArgs = append(callArgs, hue.Method(*method))
	}

	var root hue.Resource
	if *remote {
		rb, err := connectRemote(ctx, cfg)
		if err != nil {
			return err
		}
		defer rb.Close()
		root = rb.Resource
	} else {
		bridge, err := connect(ctx, cfg)
		if err != nil {
			return err
		}
		defer bridge.Close()
		root = bridge.Resource
	}

	resp, err := root.Call(ctx, callArgs...)
	if err != nil {
		return err
	}

	return printJSON(os.Stdout, resp.Value)
}

// parseCallArgs splits command-line arguments into path segments and
// name=value parameters. Values are JSON when they parse as JSON and plain
// strings otherwise.
func parseCallArgs(args []string) []any {
	var out []any
	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			out = append(out, arg)
			continue
		}
		out = append(out, hue.P(name, parseValue(raw)))
	}
	return out
}

func parseValue(raw string) any {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return raw
	}
	return v
}

func printJSON(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')

	_, err = buf.WriteTo(w)
	return err
}

func runScript(ctx context.Context, args []string) error {
	var g globalFlags
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	g.register(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: qhue run [flags] script.lua")
	}

	cfg, err := g.load()
	if err != nil {
		return err
	}

	bridge, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer bridge.Close()

	rt := script.NewRuntime(bridge.Resource)
	defer rt.Close()

	return rt.RunFile(ctx, fs.Arg(0))
}

func newAuthorizer(cfg *config.Config, source oauth.RedirectSource) (*oauth.Authorizer, error) {
	if cfg.Remote.ClientID == "" || cfg.Remote.ClientSecret == "" {
		return nil, errors.New("remote.client_id and remote.client_secret are required")
	}
	return oauth.NewAuthorizer(oauth.Config{
		ClientID:     cfg.Remote.ClientID,
		ClientSecret: cfg.Remote.ClientSecret,
	}, source, os.Stdout), nil
}

// connectRemote builds a remote bridge from the stored token. Refreshed
// tokens are written back to the token file.
func connectRemote(ctx context.Context, cfg *config.Config) (*hue.RemoteBridge, error) {
	if cfg.Remote.Username == "" {
		return nil, errors.New("remote.username is required for remote calls")
	}

	token, err := oauth.LoadToken(cfg.Remote.TokenFile)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, errors.New("no OAuth token stored; run `qhue authorize` first")
	}

	a, err := newAuthorizer(cfg, nil)
	if err != nil {
		return nil, err
	}

	return hue.NewRemoteBridge(cfg.Remote.Username,
		hue.WithSession(a.SavingClient(ctx, token, cfg.Remote.TokenFile)),
		hue.WithTimeout(cfg.Bridge.Timeout.Duration()),
	), nil
}

func runAuthorize(ctx context.Context, args []string) error {
	var g globalFlags
	fs := pflag.NewFlagSet("authorize", pflag.ContinueOnError)
	g.register(fs)
	localServer := fs.Bool("local-server", false, "Capture the redirect with the local HTTPS receiver")
	force := fs.Bool("force", false, "Ignore any stored token and authorize again")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	cfg, err := g.load()
	if err != nil {
		return err
	}

	var source oauth.RedirectSource = oauth.NewPasteSource(os.Stdin, os.Stdout)
	if *localServer || cfg.Remote.UseLocalServer {
		source = oauth.NewReceiver(cfg.Remote.CallbackPort, cfg.Remote.CertFile, cfg.Remote.KeyFile)
	}

	a, err := newAuthorizer(cfg, source)
	if err != nil {
		return err
	}

	var existing *oauth2.Token
	if !*force {
		existing, err = oauth.LoadToken(cfg.Remote.TokenFile)
		if err != nil {
			return err
		}
	}

	token, err := a.Authorize(ctx, existing)
	if err != nil {
		return err
	}
	if err := oauth.SaveToken(cfg.Remote.TokenFile, token); err != nil {
		return err
	}
	log.Info().Str("path", cfg.Remote.TokenFile).Msg("Saved remote API token")
	return nil
}
