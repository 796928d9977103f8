// Package storage provides execution storage backends.
//
// MemoryStorage keeps executions in a map and is meant for tests and one-shot
// CLI runs. SQLiteStorage persists executions with github.com/mattn/go-sqlite3
// in WAL mode: summary columns (case, status, start time, counts) are indexed
// for queries and the full execution is stored as a JSON payload.
//
//	store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
//	    Path:        "data/executions.db",
//	    WALMode:     true,
//	    BusyTimeout: 5 * time.Second,
//	})
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
package storage
