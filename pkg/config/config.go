package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
)

// Library name uniqueness policies. Whether library names must be unique per
// owner or globally is deployment policy, so it is a config knob rather than
// a hard rule.
const (
	NameUniquenessOff    = "off"
	NameUniquenessOwner  = "owner"
	NameUniquenessGlobal = "global"
)

type Config struct {
	DatabaseBusyTimeout       time.Duration
	DatabaseConnectRetryCount int
	DatabaseConnectRetryDelay time.Duration
	DatabaseDebug             bool
	DatabaseFilePath          string
	DatabaseMaxRetries        int
	Hostname                  string
	JWTSecret                 string
	LibraryNameUniqueness     string
	MaxBibcodesPerRequest     int
	MaxCombineLibraries       int
	ServerHost                string
	ServerPort                int
}

const environmentENV = "ENVIRONMENT"

func New() (*Config, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	cfg := &Config{
		DatabaseBusyTimeout:       5 * time.Second,
		DatabaseConnectRetryCount: 5,
		DatabaseConnectRetryDelay: 2 * time.Second,
		DatabaseMaxRetries:        5,
		Hostname:                  hostname,
		LibraryNameUniqueness:     NameUniquenessOwner,
		MaxBibcodesPerRequest:     2000,
		MaxCombineLibraries:       20,
		ServerPort:                6414,
	}

	switch os.Getenv(environmentENV) {
	case "development", "":
		loadDevelopmentConfig(cfg)
	case "test":
		loadTestConfig(cfg)
	case "production":
		loadProductionConfig(cfg)
	}

	if policy := os.Getenv("LIBRARY_NAME_UNIQUENESS"); policy != "" {
		switch policy {
		case NameUniquenessOff, NameUniquenessOwner, NameUniquenessGlobal:
			cfg.LibraryNameUniqueness = policy
		default:
			return nil, errors.Errorf("invalid LIBRARY_NAME_UNIQUENESS value: %q", policy)
		}
	}

	return cfg, nil
}
