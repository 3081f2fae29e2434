// Package lakegrant is a data-lake permission engine: a statement language
// for granting, revoking and inspecting permissions, an in-memory
// authorization engine with row-level filters, and an adapter running the
// same operations against AWS Lake Formation. The backend is always chosen
// explicitly through Config.
package lakegrant

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/lakegrant/lakegrant/pkg/awslf"
	"github.com/lakegrant/lakegrant/pkg/backend"
	"github.com/lakegrant/lakegrant/pkg/storage"
)

// BackendKind selects the backend strategy.
type BackendKind string

const (
	// BackendMemory runs everything locally.
	BackendMemory BackendKind = "memory"
	// BackendAWS runs against AWS Lake Formation.
	BackendAWS BackendKind = "aws"
)

// AWSConfig configures the AWS backend.
type AWSConfig struct {
	Region   string `yaml:"region"`
	Profile  string `yaml:"profile"`
	Endpoint string `yaml:"endpoint"`
}

// Config selects and configures a backend.
type Config struct {
	Backend BackendKind `yaml:"backend"`

	// StateFile persists the memory backend to a JSON snapshot file.
	StateFile string `yaml:"state_file"`
	// SQLiteFile persists the memory backend to a SQLite file instead.
	// Takes precedence over StateFile when both are set.
	SQLiteFile string `yaml:"sqlite_file"`

	AWS AWSConfig `yaml:"aws"`
}

// DefaultConfig is an ephemeral in-memory backend.
func DefaultConfig() Config {
	return Config{Backend: BackendMemory}
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// New builds the backend the config names.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (backend.Backend, error) {
	switch cfg.Backend {
	case BackendMemory, "":
		var persist storage.Store
		switch {
		case cfg.SQLiteFile != "":
			var err error
			persist, err = storage.NewSQLiteStore(cfg.SQLiteFile)
			if err != nil {
				return nil, err
			}
		case cfg.StateFile != "":
			persist = storage.NewFileStore(cfg.StateFile)
		}
		return backend.NewMemory(backend.MemoryOptions{Storage: persist, Logger: logger})

	case BackendAWS:
		return awslf.New(ctx, awslf.Options{
			Region:   cfg.AWS.Region,
			Profile:  cfg.AWS.Profile,
			Endpoint: cfg.AWS.Endpoint,
			Logger:   logger,
		})

	default:
		return nil, fmt.Errorf("unknown backend kind %q", cfg.Backend)
	}
}
