package app

import (
	"fmt"
	"strings"

	"github.com/yungbote/neurobridge-curriculum/internal/platform/envutil"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/logger"
)

type GraphStoreKind string

const (
	GraphStoreNeo4j    GraphStoreKind = "neo4j"
	GraphStorePostgres GraphStoreKind = "postgres"
	GraphStoreSQLite   GraphStoreKind = "sqlite"
	GraphStoreMemory   GraphStoreKind = "memory"
)

type Config struct {
	LogMode    string
	GraphStore GraphStoreKind
	SQLitePath string
	// RedisAddr enables the distributed course lock when set.
	RedisAddr         string
	MaterialsBucket   string
	MaterialsPrefix   string
	IngestConcurrency int
}

func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := Config{
		LogMode:           envutil.String("LOG_MODE", "development"),
		GraphStore:        GraphStoreKind(strings.ToLower(envutil.String("GRAPH_STORE", string(GraphStoreNeo4j)))),
		SQLitePath:        envutil.String("SQLITE_PATH", "curriculum.db"),
		RedisAddr:         envutil.String("REDIS_ADDR", ""),
		MaterialsBucket:   envutil.String("MATERIALS_GCS_BUCKET", ""),
		MaterialsPrefix:   envutil.String("MATERIALS_GCS_PREFIX", ""),
		IngestConcurrency: envutil.Int("INGEST_CONCURRENCY", 4),
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	if log != nil {
		log.Info("config loaded",
			"graph_store", cfg.GraphStore,
			"redis_lock", cfg.RedisAddr != "",
			"materials_bucket", cfg.MaterialsBucket,
			"ingest_concurrency", cfg.IngestConcurrency,
		)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.GraphStore {
	case GraphStoreNeo4j, GraphStorePostgres, GraphStoreSQLite, GraphStoreMemory:
	default:
		return fmt.Errorf("invalid GRAPH_STORE=%q (allowed: neo4j, postgres, sqlite, memory)", c.GraphStore)
	}
	if c.IngestConcurrency < 1 {
		return fmt.Errorf("invalid INGEST_CONCURRENCY=%d: must be at least 1", c.IngestConcurrency)
	}
	return nil
}
