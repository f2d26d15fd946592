package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id           UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  filename     TEXT        NOT NULL,
  storage_path TEXT        NOT NULL UNIQUE,
  size         BIGINT      NOT NULL CHECK (size >= 0),
  content_type TEXT        NOT NULL,
  content_hash TEXT        NOT NULL UNIQUE,
  method       TEXT        NOT NULL,
  record_count INTEGER     NOT NULL DEFAULT 0,
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_documents_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents (created_at);`,
	},
	{
		Name: "create_table_invoice_records",
		SQL: `CREATE TABLE IF NOT EXISTS invoice_records (
  id                BIGSERIAL     PRIMARY KEY,
  document_id       UUID          NOT NULL REFERENCES documents (id) ON DELETE CASCADE,
  line_no           INTEGER       NOT NULL,
  invoice_id        TEXT,
  invoice_date      TEXT,
  customer_name     TEXT,
  customer_id       TEXT,
  customer_location TEXT          NOT NULL,
  customer_type     TEXT,
  customer_trn      TEXT,
  payment_status    TEXT,
  due_date          TEXT,
  product           TEXT          NOT NULL,
  qty               NUMERIC(18,4),
  unit_price        NUMERIC(18,4),
  total             NUMERIC(18,4),
  amount_excl_vat   NUMERIC(18,4),
  vat               NUMERIC(18,4),
  profit            NUMERIC(18,4),
  profit_margin     NUMERIC(9,4),
  cost_price        NUMERIC(18,4),
  days_to_payment   INTEGER,
  created_at        TIMESTAMPTZ   NOT NULL DEFAULT now(),
  UNIQUE (document_id, line_no)
);`,
	},
	{
		Name: "create_index_invoice_records_invoice_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_invoice_records_invoice_id ON invoice_records (invoice_id);`,
	},
}

// EnsureMigrated creates the schema when the documents table is missing.
func EnsureMigrated(ctx context.Context, db *sql.DB, log zerolog.Logger, dbHost string) error {
	start := time.Now()
	log = log.With().Str("component", "database").Str("db_host", dbHost).Logger()

	log.Info().Str("event", "db_migration_check").Str("status", "starting").Send()

	var exists bool
	err := db.QueryRowContext(ctx, "SELECT to_regclass('public.documents') IS NOT NULL").Scan(&exists)
	if err != nil {
		log.Error().Err(err).
			Str("event", "db_migration_failed").
			Str("status", "error").
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("failed to check sentinel table")
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info().
			Str("event", "db_migration_skip").
			Str("status", "success").
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("schema already exists, skipping migration")
		return nil
	}

	log.Info().Str("event", "db_migration_start").Str("status", "in_progress").Send()

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error().Err(err).
				Str("event", "db_migration_failed").
				Str("status", "error").
				Str("migration_step", step.Name).
				Int64("duration_ms", time.Since(start).Milliseconds()).
				Int64("step_duration_ms", time.Since(stepStart).Milliseconds()).
				Send()
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Info().
			Str("event", "db_migration_step").
			Str("status", "success").
			Str("migration_step", step.Name).
			Int64("step_duration_ms", time.Since(stepStart).Milliseconds()).
			Send()
	}

	log.Info().
		Str("event", "db_migration_success").
		Str("status", "success").
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Send()
	return nil
}
