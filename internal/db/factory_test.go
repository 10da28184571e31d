package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect_SQLiteInMemory(t *testing.T) {
	handle, err := Connect(Config{Type: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	require.NotNil(t, handle)

	var one int
	require.NoError(t, handle.Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)
}

func TestConnect_DefaultsToSQLite(t *testing.T) {
	handle, err := Connect(Config{DSN: ":memory:"})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", handle.Dialector.Name())
}

func TestConnect_RequiresDSN(t *testing.T) {
	_, err := Connect(Config{Type: "postgres"})
	assert.Error(t, err)

	_, err = Connect(Config{Type: "mysql"})
	assert.Error(t, err)
}

func TestConnect_UnsupportedType(t *testing.T) {
	_, err := Connect(Config{Type: "mongodb"})
	assert.ErrorContains(t, err, "unsupported database type")
}
