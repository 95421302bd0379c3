package sqliteutil

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

func isRemote(location string) bool {
	return strings.HasPrefix(location, "libsql://") ||
		strings.HasPrefix(location, "https://") ||
		strings.HasPrefix(location, "http://") ||
		strings.HasPrefix(location, "wss://")
}

// OpenDB opens the database at `location` and applies `schema` to it.
//
// location can be a local sqlite file, `:memory:` or a libsql url
// (ex. `libsql://<db>.turso.io?authToken=...`).
func OpenDB(schema, location string) (*sql.DB, error) {
	if location == "" {
		return nil, fmt.Errorf("a database location was not specified")
	}

	var db *sql.DB
	var err error
	if isRemote(location) {
		db, err = sql.Open("libsql", location)
		if err != nil {
			return nil, err
		}
	} else {
		db, err = openLocal(location)
		if err != nil {
			return nil, err
		}
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		db.Close()
		return nil, err
	}
	if schema != "" {
		_, err = db.Exec(schema)
		if err != nil && !strings.Contains(err.Error(), "already exists") {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	return db, nil
}

func openLocal(path string) (*sql.DB, error) {
	if path != ":memory:" {
		_, statErr := os.Stat(path)
		if os.IsNotExist(statErr) {
			f, err := os.Create(path)
			if err != nil {
				return nil, err
			}
			f.Close()
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// a single connection keeps `:memory:` databases and connection level
	// pragmas (foreign_keys) consistent, it also avoids SQLITE_BUSY on writes.
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		_, err = db.Exec("PRAGMA journal_mode=WAL")
		if err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}
