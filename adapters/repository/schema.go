package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"strings"

	"github.com/chararch/migbatch"
)

//go:embed schema.sql
var schema string

// Statements returns the DDL statements creating the tables used by the mysql Repository
func Statements() []string {
	stmts := make([]string, 0)
	for _, stmt := range strings.Split(schema, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// CreateTables creates the missing tables used by the mysql Repository
func CreateTables(ctx context.Context, db *sql.DB) migbatch.BatchError {
	for _, stmt := range Statements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return dbError(err, "create tables failed")
		}
	}
	return nil
}
