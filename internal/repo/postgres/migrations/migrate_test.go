package migrations

import (
	"strings"
	"testing"
)

func TestNamesAreSortedSQLFiles(t *testing.T) {
	names, err := Names()
	if err != nil {
		t.Fatalf("names: %v", err)
	}
	if len(names) == 0 {
		t.Fatalf("expected embedded migrations")
	}
	for i, name := range names {
		if !strings.HasSuffix(name, ".sql") {
			t.Fatalf("unexpected migration file %q", name)
		}
		if i > 0 && names[i-1] >= name {
			t.Fatalf("migrations are not sorted: %v", names)
		}
	}
	if names[0] != "0001_init.sql" {
		t.Fatalf("expected 0001_init.sql first, got %q", names[0])
	}
}

func TestInitMigrationDeclaresActiveInscriptionIndex(t *testing.T) {
	raw, err := files.ReadFile("0001_init.sql")
	if err != nil {
		t.Fatalf("read init migration: %v", err)
	}
	sql := string(raw)
	for _, fragment := range []string{
		"inscriptions_active_user_idx",
		"WHERE status = 'success'",
		"transactions_buy_order_key UNIQUE (buy_order)",
	} {
		if !strings.Contains(sql, fragment) {
			t.Fatalf("init migration is missing %q", fragment)
		}
	}
}
