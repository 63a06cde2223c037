// Package identity checks that user and pro identities exist.
package identity

import (
	"context"
	"database/sql"
	"fmt"

	"marketguard/internal/fanout"
)

type Validator interface {
	Exists(ctx context.Context, identity fanout.Identity) (bool, error)
}

type PostgresValidator struct {
	db *sql.DB
}

func NewValidator(db *sql.DB) *PostgresValidator {
	return &PostgresValidator{db: db}
}

func tableFor(kind fanout.Kind) (string, error) {
	switch kind {
	case fanout.KindUser:
		return "users", nil
	case fanout.KindPro:
		return "pros", nil
	default:
		return "", fmt.Errorf("unknown identity kind %q", kind)
	}
}

func (v *PostgresValidator) Exists(ctx context.Context, identity fanout.Identity) (bool, error) {
	table, err := tableFor(identity.Kind)
	if err != nil {
		return false, err
	}

	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, table)

	var exists bool
	if err := v.db.QueryRowContext(ctx, query, identity.ID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to look up %s: %w", identity, err)
	}
	return exists, nil
}
