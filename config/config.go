// Package config loads chaincode process settings from the environment.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
)

// Config selects how the chaincode process runs. With an empty ServerAddress
// the peer launches the chaincode and the shim dials the peer; otherwise the
// process serves as an external chaincode (chaincode-as-a-service).
type Config struct {
	ServerAddress string `env:"CHAINCODE_SERVER_ADDRESS"`
	CCID          string `env:"CHAINCODE_ID"`
	TLSDisabled   bool   `env:"CHAINCODE_TLS_DISABLED" envDefault:"true"`
	TLSKeyFile    string `env:"CHAINCODE_TLS_KEY"`
	TLSCertFile   string `env:"CHAINCODE_TLS_CERT"`
	ClientCAFile  string `env:"CHAINCODE_CLIENT_CA_CERT"`
}

// TLSFiles holds the TLS material read from the configured files.
type TLSFiles struct {
	Key          []byte
	Cert         []byte
	ClientCACert []byte
}

// Load parses the environment and validates the combination of settings.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// External reports whether the chaincode runs as a service.
func (c Config) External() bool {
	return c.ServerAddress != ""
}

// Validate checks settings required by the selected mode.
func (c Config) Validate() error {
	if !c.External() {
		return nil
	}
	if c.CCID == "" {
		return fmt.Errorf("CHAINCODE_ID is required when CHAINCODE_SERVER_ADDRESS is set")
	}
	if !c.TLSDisabled && (c.TLSKeyFile == "" || c.TLSCertFile == "") {
		return fmt.Errorf("CHAINCODE_TLS_KEY and CHAINCODE_TLS_CERT are required when TLS is enabled")
	}
	return nil
}

// ReadTLSFiles loads the key, certificate and optional client CA. It returns
// empty material when TLS is disabled.
func (c Config) ReadTLSFiles() (TLSFiles, error) {
	if c.TLSDisabled {
		return TLSFiles{}, nil
	}
	key, err := os.ReadFile(c.TLSKeyFile)
	if err != nil {
		return TLSFiles{}, fmt.Errorf("read TLS key: %w", err)
	}
	cert, err := os.ReadFile(c.TLSCertFile)
	if err != nil {
		return TLSFiles{}, fmt.Errorf("read TLS cert: %w", err)
	}
	files := TLSFiles{Key: key, Cert: cert}
	if c.ClientCAFile != "" {
		ca, err := os.ReadFile(c.ClientCAFile)
		if err != nil {
			return TLSFiles{}, fmt.Errorf("read client CA cert: %w", err)
		}
		files.ClientCACert = ca
	}
	return files, nil
}
