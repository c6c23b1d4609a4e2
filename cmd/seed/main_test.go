package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/recall-server/internal/config"
	"github.com/listenupapp/recall-server/internal/di/providers"
)

func TestRun_SeedsDemoFixture(t *testing.T) {
	dataPath := t.TempDir()

	err := run([]string{
		"-fixture", filepath.Join("..", "..", "testdata", "fixtures", "demo.yaml"),
		"-now", "2025-06-01T12:00:00Z",
		"-db-driver", config.DriverSQLite,
		"-data-path", dataPath,
		"-env-file", filepath.Join(dataPath, "none.env"),
	})
	require.NoError(t, err)

	st, err := providers.OpenStore(config.DatabaseConfig{Driver: config.DriverSQLite, DataPath: dataPath}, nil)
	require.NoError(t, err)
	defer st.Close()

	tags, err := st.ListTagsForUser(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, tags, 6)

	edges, err := st.ListEdgesForUser(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, edges, 5)
}

func TestRun_Errors(t *testing.T) {
	dataPath := t.TempDir()
	base := []string{"-data-path", dataPath, "-env-file", filepath.Join(dataPath, "none.env")}

	err := run(append(base, "-fixture", filepath.Join(dataPath, "missing.yaml")))
	assert.ErrorContains(t, err, "reading fixture")

	err = run(append(base, "-now", "noon"))
	assert.ErrorContains(t, err, "-now")
}
