package app

import (
	"context"
	"fmt"

	"github.com/yungbote/neurobridge-curriculum/internal/data/db"
	"github.com/yungbote/neurobridge-curriculum/internal/data/graph"
	perr "github.com/yungbote/neurobridge-curriculum/internal/pkg/errors"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/logger"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/neo4jdb"
)

// resolveGraphStore opens the backend named by cfg.GraphStore. A neo4j
// selection without NEO4J_URI is a configuration error.
func resolveGraphStore(ctx context.Context, log *logger.Logger, cfg Config) (graph.Store, error) {
	log.Info("Selecting graph store", "graph_store", cfg.GraphStore)

	switch cfg.GraphStore {
	case GraphStoreMemory:
		return graph.NewMemoryStore(), nil

	case GraphStoreNeo4j:
		ncfg := neo4jdb.ConfigFromEnv()
		if ncfg.URI == "" {
			return nil, &perr.ConfigurationError{Scope: perr.ScopeStore, Reason: "GRAPH_STORE=neo4j requires NEO4J_URI"}
		}
		client, err := neo4jdb.New(ctx, ncfg, log)
		if err != nil {
			return nil, perr.Unavailable("neo4j connect", err)
		}
		if client == nil {
			return nil, &perr.ConfigurationError{Scope: perr.ScopeStore, Reason: "neo4j client not configured"}
		}
		store, err := graph.NewNeo4jStore(ctx, client, log)
		if err != nil {
			_ = client.Close(ctx)
			return nil, err
		}
		return store, nil

	case GraphStorePostgres, GraphStoreSQLite:
		dcfg := db.Config{Driver: db.DriverSQLite, DSN: cfg.SQLitePath}
		if cfg.GraphStore == GraphStorePostgres {
			dcfg = db.Config{Driver: db.DriverPostgres, DSN: db.PostgresDSNFromEnv()}
		}
		svc, err := db.Open(dcfg, log)
		if err != nil {
			return nil, perr.Unavailable(string(cfg.GraphStore)+" connect", err)
		}
		store, err := graph.NewGormStore(svc.DB(), log)
		if err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("init %s graph store: %w", cfg.GraphStore, err)
		}
		return store, nil
	}
	return nil, &perr.ConfigurationError{Scope: perr.ScopeStore, Reason: fmt.Sprintf("unsupported graph store %q", cfg.GraphStore)}
}
