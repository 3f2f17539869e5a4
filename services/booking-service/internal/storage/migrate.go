package storage

import (
	"context"
	_ "embed"

	"github.com/servly/servly/libs/db"
)

//go:embed schema.sql
var schemaSQL string

// Migrate applies the idempotent schema. It is meant for local runs and tests;
// deployments manage the schema out of band.
func Migrate(ctx context.Context, pool *db.Pool) error {
	_, err := pool.Exec(ctx, schemaSQL)
	return err
}
