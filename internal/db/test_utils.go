package db

import (
	"testing"
)

// SetupTestDB opens an in-memory SQLite store that is closed when the test ends
func SetupTestDB(t *testing.T) *Database {
	t.Helper()

	database, err := NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	t.Cleanup(func() {
		if database.GetDB() != nil {
			_ = database.Close()
		}
	})

	return database
}
