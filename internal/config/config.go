// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store backends accepted in STORE_BACKEND.
const (
	BackendFirestore = "firestore"
	BackendMongo     = "mongo"
	BackendMemory    = "memory"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on.
	Port string `env:"PORT" envDefault:"8080"`

	// DatabaseURL is the Postgres connection string for the export file store. Required.
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	// LogLevel controls the minimum log level: debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// LogFormat is "json" or "text".
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// LogFile, when set, receives a rotated copy of every log line.
	LogFile string `env:"LOG_FILE"`

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"http://localhost:5173"`

	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64 `env:"MAX_BODY_BYTES" envDefault:"1048576"`

	Store Store
}

// Store selects and configures the document store that holds user records.
type Store struct {
	// Backend is one of firestore, mongo, memory.
	Backend string `env:"STORE_BACKEND" envDefault:"firestore"`

	// FirebaseProjectID overrides the project detected from credentials.
	FirebaseProjectID string `env:"FIREBASE_PROJECT_ID"`

	// FirebaseCredentialsFile is a service account JSON file. Empty means
	// application default credentials.
	FirebaseCredentialsFile string `env:"FIREBASE_CREDENTIALS_FILE"`

	MongoURI      string `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"MONGODB_DATABASE" envDefault:"community"`

	// SeedFile preloads the memory backend.
	SeedFile string `env:"STORE_SEED_FILE"`
}

// Load reads configuration from environment variables (and a .env file in
// the working directory, if present) and returns a Config.
// Returns an error naming any required variables that are not set.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config.Load: %w", err)
	}
	cfg.CORSOrigins = trimAll(cfg.CORSOrigins)

	if err := cfg.Store.validate(); err != nil {
		return Config{}, fmt.Errorf("config.Load: %w", err)
	}
	return cfg, nil
}

// LoadStore reads only the store settings. The command-line exporter uses
// it since it never touches Postgres.
func LoadStore() (Store, error) {
	_ = godotenv.Load()

	var s Store
	if err := env.Parse(&s); err != nil {
		return Store{}, fmt.Errorf("config.LoadStore: %w", err)
	}
	if err := s.validate(); err != nil {
		return Store{}, fmt.Errorf("config.LoadStore: %w", err)
	}
	return s, nil
}

func (s *Store) validate() error {
	s.Backend = strings.ToLower(strings.TrimSpace(s.Backend))
	switch s.Backend {
	case BackendFirestore, BackendMemory:
		return nil
	case BackendMongo:
		if s.MongoURI == "" || s.MongoDatabase == "" {
			return fmt.Errorf("STORE_BACKEND=mongo requires MONGODB_URI and MONGODB_DATABASE")
		}
		return nil
	default:
		return fmt.Errorf("unsupported STORE_BACKEND %q", s.Backend)
	}
}

// trimAll trims every entry and drops empty ones.
func trimAll(in []string) []string {
	var out []string
	for _, part := range in {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
