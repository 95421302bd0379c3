package testutil

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"vicharvest/lib/sqliteutil"
	"vicharvest/lib/telemetry"
)

type ServiceParams struct {
	Name string
	// if unspecified, it will skip setting up a db
	DbSchema string
	// if set, the db is a file in a temporary directory instead of `:memory:`
	DbFile bool
}

type ServiceResult struct {
	DB *sql.DB
}

func SetupService(t testing.TB, params ServiceParams) (ServiceResult, func()) {
	cleanup := telemetry.SetupForTesting(t, fmt.Sprintf("test:%s", params.Name))
	if params.DbSchema == "" {
		return ServiceResult{}, cleanup
	}

	dbpath := ":memory:"
	if params.DbFile {
		dbpath = filepath.Join(t.TempDir(), "test.db")
	}
	database, err := sqliteutil.OpenDB(params.DbSchema, dbpath)
	if err != nil {
		t.Fatal(err)
	}

	return ServiceResult{DB: database}, func() {
		database.Close()
		cleanup()
	}
}
