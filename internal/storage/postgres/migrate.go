package postgres

import (
	"context"
	"fmt"

	"top-tickers/internal/storage/migrations"
)

// Migrate applies all embedded PostgreSQL migrations in lexical order.
// Migrations are expected to be idempotent.
func (p *Pool) Migrate(ctx context.Context) error {
	migs, err := migrations.Postgres()
	if err != nil {
		return err
	}

	for _, m := range migs {
		for _, stmt := range m.Statements {
			if _, err := p.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply migration %s: %w", m.Name, err)
			}
		}
	}

	return nil
}
