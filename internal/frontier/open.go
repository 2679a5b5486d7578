package frontier

import (
	"context"
	"fmt"
)

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// StoreConfig selects and configures a frontier backend.
type StoreConfig struct {
	// Driver is one of DriverSQLite, DriverPostgres or DriverMongo.
	// An empty driver selects SQLite.
	Driver string

	// SQLiteDir is the directory holding topiccrawl.db.
	SQLiteDir string

	// PostgresDSN is the pgx connection string.
	PostgresDSN string

	// PostgresMaxConns caps the connection pool. Zero keeps the pgxpool default.
	PostgresMaxConns int32

	// MongoURI is the MongoDB connection URI.
	MongoURI string

	// MongoDatabase is the MongoDB database name.
	MongoDatabase string

	// Table is the table (postgres) or collection (mongo) name.
	Table string
}

// Open returns the Store selected by cfg.Driver.
func Open(ctx context.Context, cfg StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", DriverSQLite:
		store, err := OpenSQLite(ctx, cfg.SQLiteDir, DefaultSQLiteOptions())
		if err != nil {
			return nil, err
		}
		return store, nil
	case DriverPostgres:
		store, err := OpenPostgres(ctx, cfg.PostgresDSN, cfg.Table, cfg.PostgresMaxConns)
		if err != nil {
			return nil, err
		}
		return store, nil
	case DriverMongo:
		store, err := OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.Table)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Driver)
	}
}
