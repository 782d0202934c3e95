package database

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMigrationRunner_MissingMigrationsDir(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	missing := filepath.Join(t.TempDir(), "does-not-exist")
	runner, err := NewMigrationRunner("postgres://localhost:5432/genome?sslmode=disable", missing, logger)

	require.Error(t, err)
	assert.Nil(t, runner)
	assert.Contains(t, err.Error(), "creating migration runner")
}
