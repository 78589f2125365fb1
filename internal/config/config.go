package config

import (
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the qhue configuration
type Config struct {
	Bridge      BridgeConfig      `yaml:"bridge"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Pairing     PairingConfig     `yaml:"pairing"`
	Remote      RemoteConfig      `yaml:"remote"`
	Log         LogConfig         `yaml:"log"`
}

// BridgeConfig contains Hue bridge connection settings
type BridgeConfig struct {
	Host     string   `yaml:"host"`
	Username string   `yaml:"username"` // Whitelist token; loaded from the credential store when empty
	Timeout  Duration `yaml:"timeout"`  // Per-request timeout
	Scheme   string   `yaml:"scheme"`
}

// CredentialsConfig selects where the bridge username is persisted
type CredentialsConfig struct {
	Backend  string `yaml:"backend"`  // "file" or "sqlite"
	Path     string `yaml:"path"`     // Flat file used by the file backend
	Database string `yaml:"database"` // SQLite file used by the sqlite backend
}

// PairingConfig contains button-press pairing settings
type PairingConfig struct {
	DeviceType string `yaml:"devicetype"` // Defaults to qhue@<hostname>
	Attempts   int    `yaml:"attempts"`
}

// RemoteConfig contains remote API and OAuth settings
type RemoteConfig struct {
	Username       string `yaml:"username"`
	ClientID       string `yaml:"client_id"`
	ClientSecret   string `yaml:"client_secret"`
	TokenFile      string `yaml:"token_file"`
	CallbackPort   int    `yaml:"callback_port"`
	CertFile       string `yaml:"cert_file"`
	KeyFile        string `yaml:"key_file"`
	UseLocalServer bool   `yaml:"use_local_server"` // Capture the redirect with the HTTPS receiver instead of asking for it
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	JSON   bool   `yaml:"json"`
	Colors bool   `yaml:"colors"`
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{Log: LogConfig{Colors: true}}
	applyDefaults(cfg)
	return cfg
}

// Load reads and parses the configuration file. A missing file yields the
// defaults so the CLI works with flags alone.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse parses configuration from YAML bytes and applies defaults
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	expanded := expandEnvVars(string(data))

	cfg := Config{Log: LogConfig{Colors: true}}
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	// Bridge defaults
	if cfg.Bridge.Timeout == 0 {
		cfg.Bridge.Timeout = Duration(5 * time.Second)
	}
	if cfg.Bridge.Scheme == "" {
		cfg.Bridge.Scheme = "http"
	}

	// Credential defaults
	if cfg.Credentials.Backend == "" {
		cfg.Credentials.Backend = "file"
	}
	if cfg.Credentials.Path == "" {
		cfg.Credentials.Path = "qhue_username.txt"
	}
	if cfg.Credentials.Database == "" {
		cfg.Credentials.Database = "./qhue.sqlite"
	}

	// Pairing defaults
	if cfg.Pairing.Attempts <= 0 {
		cfg.Pairing.Attempts = 3
	}

	// Remote defaults
	if cfg.Remote.TokenFile == "" {
		cfg.Remote.TokenFile = "qhue_token.json"
	}
	if cfg.Remote.CallbackPort == 0 {
		cfg.Remote.CallbackPort = 8584
	}
	if cfg.Remote.CertFile == "" {
		cfg.Remote.CertFile = "cert.pem"
	}
	if cfg.Remote.KeyFile == "" {
		cfg.Remote.KeyFile = "key.pem"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	// Match ${VAR} or ${VAR:default}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
