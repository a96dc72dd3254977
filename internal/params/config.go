// Package params holds the host driver's runtime configuration (loaded from
// .env/environment via godotenv, grounded on the teacher's params/config.go)
// and the registry of per-market Rules it serves to the batch driver and API
// server, grounded on the teacher's pkg/app/core/market/registry.go.
package params

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"

	"github.com/numo-labs/zkclob-core/pkg/clobtypes"
)

// API holds the host's API server settings.
type API struct {
	ListenAddr     string
	AllowedOrigins []string
}

// Driver holds the batch driver's admission and persistence settings.
type Driver struct {
	TreeStorePath     string
	BatchLogPath      string
	MaxBatchSize      int
	AdmissionQueueCap int
}

type Config struct {
	API    API
	Driver Driver
}

func Default() Config {
	return Config{
		API: API{
			ListenAddr:     ":8080",
			AllowedOrigins: []string{"*"},
		},
		Driver: Driver{
			TreeStorePath:     "./data/tree.db",
			BatchLogPath:      "./data/batches.log",
			MaxBatchSize:      256,
			AdmissionQueueCap: 1024,
		},
	}
}

// LoadFromEnv loads configuration from an .env file (if present, optional)
// and then environment variables, in that priority order over the defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if addr := os.Getenv("API_LISTEN_ADDR"); addr != "" {
		cfg.API.ListenAddr = addr
	}
	if store := os.Getenv("TREE_STORE_PATH"); store != "" {
		cfg.Driver.TreeStorePath = store
	}
	if log := os.Getenv("BATCH_LOG_PATH"); log != "" {
		cfg.Driver.BatchLogPath = log
	}
	if maxBatch := os.Getenv("MAX_BATCH_SIZE"); maxBatch != "" {
		if n, err := strconv.Atoi(maxBatch); err == nil {
			cfg.Driver.MaxBatchSize = n
		}
	}
	if queueCap := os.Getenv("ADMISSION_QUEUE_CAP"); queueCap != "" {
		if n, err := strconv.Atoi(queueCap); err == nil {
			cfg.Driver.AdmissionQueueCap = n
		}
	}

	return cfg
}

// RulesRegistry maps a market ID to the Rules governing it, thread-safe for
// concurrent lookup from the API server's request handlers.
type RulesRegistry struct {
	mu    sync.RWMutex
	rules map[clobtypes.Hash]*clobtypes.Rules
}

func NewRulesRegistry() *RulesRegistry {
	return &RulesRegistry{rules: make(map[clobtypes.Hash]*clobtypes.Rules)}
}

// Register adds the Rules for marketID. Returns an error if marketID is
// already registered; rules are immutable for the life of a market once a
// batch has referenced them.
func (reg *RulesRegistry) Register(marketID clobtypes.Hash, rules *clobtypes.Rules) error {
	if rules == nil {
		return fmt.Errorf("cannot register nil rules")
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, exists := reg.rules[marketID]; exists {
		return fmt.Errorf("market %x already registered", marketID)
	}
	reg.rules[marketID] = rules
	return nil
}

// Get returns the Rules registered for marketID, or an error if absent.
func (reg *RulesRegistry) Get(marketID clobtypes.Hash) (*clobtypes.Rules, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, exists := reg.rules[marketID]
	if !exists {
		return nil, fmt.Errorf("market %x not registered", marketID)
	}
	return r, nil
}

// List returns every registered market ID.
func (reg *RulesRegistry) List() []clobtypes.Hash {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	ids := make([]clobtypes.Hash, 0, len(reg.rules))
	for id := range reg.rules {
		ids = append(ids, id)
	}
	return ids
}

// Exists reports whether marketID has registered Rules.
func (reg *RulesRegistry) Exists(marketID clobtypes.Hash) bool {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	_, exists := reg.rules[marketID]
	return exists
}
