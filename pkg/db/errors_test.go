package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolationPostgres(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_idempotency_keys_token"}

	if !IsUniqueViolation(pgErr, "") {
		t.Fatal("expected unique violation without constraint filter")
	}
	if !IsUniqueViolation(pgErr, "ux_idempotency_keys_token") {
		t.Fatal("expected unique violation for matching constraint")
	}
	if IsUniqueViolation(pgErr, "ux_other") {
		t.Fatal("should not match a different constraint")
	}

	wrapped := fmt.Errorf("insert ledger record: %w", pgErr)
	if !IsUniqueViolation(wrapped, "ux_idempotency_keys_token") {
		t.Fatal("should unwrap to the pg error")
	}
}

func TestIsUniqueViolationNonUniquePGCode(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23503"}
	if IsUniqueViolation(pgErr, "") {
		t.Fatal("foreign key violation is not a unique violation")
	}
}

func TestIsUniqueViolationSQLiteMessage(t *testing.T) {
	err := errors.New("UNIQUE constraint failed: idempotency_keys.token")
	if !IsUniqueViolation(err, "") {
		t.Fatal("expected sqlite unique violation to match")
	}
}

func TestIsUniqueViolationNil(t *testing.T) {
	if IsUniqueViolation(nil, "") {
		t.Fatal("nil error is not a violation")
	}
}
