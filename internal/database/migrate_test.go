package database

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/mehmetcc/medgate/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMigrationsAreEmbedded(t *testing.T) {
	names, err := fs.Glob(migrations.FS, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)

	for _, name := range names {
		body, err := fs.ReadFile(migrations.FS, name)
		require.NoError(t, err)
		assert.Contains(t, string(body), "-- +goose Up", name)
		assert.Contains(t, string(body), "-- +goose Down", name)
	}
}

func TestPersonsConstraintNamesMatchRepository(t *testing.T) {
	body, err := fs.ReadFile(migrations.FS, "00001_create_persons.sql")
	require.NoError(t, err)
	for _, constraint := range []string{"persons_email_key", "persons_username_key"} {
		assert.True(t, strings.Contains(string(body), constraint), constraint)
	}
}

func TestGooseLoggerNeverExits(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := gooseZapLogger{s: zap.New(core).Sugar()}

	l.Printf("applied %d", 2)
	l.Fatalf("broken %s", "migration")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "applied 2", entries[0].Message)
	assert.Equal(t, zap.ErrorLevel, entries[1].Level)
}
