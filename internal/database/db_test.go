package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "coach.db")

	db, err := NewDB(path, zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"plans", "execution_metrics"} {
		var name string
		err := db.SQL.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}
}

func TestRunMigrations_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coach.db")

	first, err := RunMigrations(path)
	require.NoError(t, err)
	second, err := RunMigrations(path)
	require.NoError(t, err)

	assert.Equal(t, uint(2), first)
	assert.Equal(t, first, second)
}
