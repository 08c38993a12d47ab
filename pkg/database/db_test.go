package database

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		wantDriver string
		wantDSN    string
		wantErr    bool
	}{
		{"postgres", "postgres://u:p@localhost:5432/db?sslmode=disable", DriverPostgres, "postgres://u:p@localhost:5432/db?sslmode=disable", false},
		{"postgresql", "postgresql://localhost/db", DriverPostgres, "postgresql://localhost/db", false},
		{"sqlite relative", "sqlite://community.db", DriverSQLite, "file:community.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", false},
		{"sqlite absolute", "sqlite:///var/lib/app.db", DriverSQLite, "file:/var/lib/app.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", false},
		{"file with query", "file:app.db?mode=rwc", DriverSQLite, "file:app.db?mode=rwc&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", false},
		{"sqlite empty path", "sqlite://", "", "", true},
		{"unknown scheme", "mysql://localhost/db", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver, dsn, err := ParseURL(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDriver, driver)
			assert.Equal(t, tt.wantDSN, dsn)
		})
	}
}

func TestConnect_SQLite(t *testing.T) {
	db, err := Connect(Config{URL: "sqlite://" + filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, DriverSQLite, db.DriverName())
	assert.Equal(t, "SELECT 1 WHERE 1 = ?", db.Rebind("SELECT 1 WHERE 1 = ?"))
}

func TestViolatedConstraint_Postgres(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pq.Error{Code: "23505", Constraint: "uq_accounts_email"})
	name, ok := ViolatedConstraint(err)
	assert.True(t, ok)
	assert.Equal(t, "uq_accounts_email", name)

	_, ok = ViolatedConstraint(&pq.Error{Code: "23503", Constraint: "fk_replies_post"})
	assert.False(t, ok)
}

func TestViolatedConstraint_SQLite(t *testing.T) {
	db, err := Connect(Config{URL: "sqlite://" + filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE things (id INTEGER PRIMARY KEY, name TEXT NOT NULL UNIQUE)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO things (name) VALUES ('a')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO things (name) VALUES ('a')`)
	require.Error(t, err)

	name, ok := ViolatedConstraint(err)
	assert.True(t, ok)
	assert.Equal(t, "things.name", name)
	assert.True(t, IsUniqueViolation(err))
}

func TestViolatedConstraint_Other(t *testing.T) {
	assert.False(t, IsUniqueViolation(errors.New("boom")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestSQLiteConstraintTarget(t *testing.T) {
	assert.Equal(t, "accounts.email", sqliteConstraintTarget("constraint failed: UNIQUE constraint failed: accounts.email (2067)"))
	assert.Equal(t, "accounts.username", sqliteConstraintTarget("UNIQUE constraint failed: accounts.username"))
}
