package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_Memory(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, NewDialect().AutoMigrate(db))
	assert.NoError(t, db.Ping())
}

func TestOpen_UnusablePathFails(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "missing", "dir", "mentorhub.db") + "?mode=rw"

	db, err := Open(dsn)
	require.Error(t, err)
	assert.Nil(t, db)
}
