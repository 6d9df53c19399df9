package db

import (
	"os"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListMigrations_SortedAndFiltered(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_notifications.sql": {Data: []byte("SELECT 2;")},
		"0001_init.sql":          {Data: []byte("SELECT 1;")},
		"README.md":              {Data: []byte("docs")},
		"archive/0000_old.sql":   {Data: []byte("SELECT 0;")},
	}

	names, err := ListMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_init.sql", "0002_notifications.sql"}, names)
}

func TestListMigrations_RepositoryMigrations(t *testing.T) {
	names, err := ListMigrations(os.DirFS("../../migrations"))
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "0001_init.sql", names[0])
}
