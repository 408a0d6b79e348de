package ingest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teranos/smrt/am"
	"github.com/teranos/smrt/errors"
)

func TestNewSource(t *testing.T) {
	log := zap.NewNop().Sugar()

	t.Run("dir", func(t *testing.T) {
		src, err := NewSource(am.DataConfig{Source: am.SourceDir, Dir: "data"}, log)
		require.NoError(t, err)
		assert.Equal(t, "dir:data", src.Name())
	})

	t.Run("dir without path", func(t *testing.T) {
		_, err := NewSource(am.DataConfig{Source: am.SourceDir}, log)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrNotConfigured))
		assert.NotEmpty(t, errors.GetAllHints(err))
	})

	t.Run("remote", func(t *testing.T) {
		src, err := NewSource(am.DataConfig{Source: am.SourceRemote, RemoteURL: "https://example.com/data.zip"}, log)
		require.NoError(t, err)
		assert.Equal(t, "remote:https://example.com/data.zip", src.Name())
	})

	t.Run("sql sqlite", func(t *testing.T) {
		src, err := NewSource(am.DataConfig{
			Source:    am.SourceSQL,
			SQLDriver: "sqlite3",
			SQLDSN:    filepath.Join(t.TempDir(), "smrt.db"),
		}, log)
		require.NoError(t, err)
		assert.Equal(t, "sql:sqlite3", src.Name())
		assert.NoError(t, src.Close())
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := NewSource(am.DataConfig{Source: "ftp"}, log)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
	})
}
