package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEntriesMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_entries.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS entries",
		"CHECK (balance_after >= 0)",
		"CREATE UNIQUE INDEX IF NOT EXISTS uniq_entries_idempotency_key",
		"WHERE idempotency_key IS NOT NULL",
		"FOREIGN KEY (parent_entry_id) REFERENCES entries(id)",
		"DROP TABLE IF EXISTS entries",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestHoldsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_holds.sql")

	checks := []string{
		"CREATE TYPE hold_status_enum AS ENUM ('pending', 'redeemed', 'released', 'expired')",
		"CHECK (quoted_amount >= 0)",
		"FOREIGN KEY (reward_id) REFERENCES rewards(id)",
		"DROP TABLE IF EXISTS holds",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestConsumedTokensMigrationUsesJTIPrimaryKey(t *testing.T) {
	content := readMigration(t, "*_create_consumed_tokens.sql")
	if !strings.Contains(content, "jti TEXT PRIMARY KEY") {
		t.Error("consumed tokens must key on jti to block replay")
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %q", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
