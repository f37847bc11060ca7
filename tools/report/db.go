package main

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
)

// openDuckDB opens an in-memory DuckDB with an "arena" and a "replay" view
// over the Parquet files under each root. A root with no files gets no view.
func openDuckDB(arenaDir, replayDir string) (*sql.DB, []string, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, nil, err
	}
	// Basic pragmas; ignore errors for compatibility across versions.
	_, _ = db.Exec("PRAGMA threads=4")

	var views []string
	for _, v := range []struct{ name, root string }{{"arena", arenaDir}, {"replay", replayDir}} {
		ok, err := createView(db, v.name, v.root)
		if err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("create %s view: %w", v.name, err)
		}
		if ok {
			views = append(views, v.name)
		}
	}
	return db, views, nil
}

func createView(db *sql.DB, name, root string) (bool, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return false, nil
	}
	// Only finished batches: in-progress files live in root/tmp and the glob
	// does not descend. read_parquet fails on a glob that matches nothing.
	glob := filepath.Join(root, "*.parquet")
	matches, _ := filepath.Glob(glob)
	if len(matches) == 0 {
		return false, nil
	}
	sqlText := `CREATE OR REPLACE VIEW ` + name + ` AS
		SELECT * FROM read_parquet(['` + escapeSQLString(glob) + `'], union_by_name=true)`
	if _, err := db.Exec(sqlText); err != nil {
		return false, err
	}
	return true, nil
}

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
