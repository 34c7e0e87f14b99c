package database

import (
	"errors"
	"testing"
)

func TestConvertPlaceholders(t *testing.T) {
	original := Driver()
	defer SetDriver(original)

	query := "SELECT id FROM sla_breach WHERE agency_id = $1 AND status = $2"

	SetDriver("postgres")
	if got := ConvertPlaceholders(query); got != query {
		t.Errorf("postgres queries must pass through unchanged, got %q", got)
	}

	want := "SELECT id FROM sla_breach WHERE agency_id = ? AND status = ?"
	for _, driver := range []string{"mysql", "sqlite3"} {
		SetDriver(driver)
		if got := ConvertPlaceholders(query); got != want {
			t.Errorf("%s: got %q, want %q", driver, got, want)
		}
	}
}

func TestConvertPlaceholdersILike(t *testing.T) {
	original := Driver()
	defer SetDriver(original)

	SetDriver("sqlite3")
	got := ConvertPlaceholders("SELECT id FROM sla_policy WHERE name ILIKE $1")
	want := "SELECT id FROM sla_policy WHERE name LIKE ?"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"postgres", errors.New(`pq: duplicate key value violates unique constraint "idx_sla_breach_active"`), true},
		{"mysql", errors.New("Error 1062: Duplicate entry 'sla-1-task-1' for key 'idx_sla_breach_active'"), true},
		{"sqlite", errors.New("UNIQUE constraint failed: sla_breach.sla_id, sla_breach.resource_id"), true},
		{"unrelated", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUniqueViolation(tt.err); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
