package main

import (
	"bytes"
	"errors"
	"io/fs"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appmigrations "github.com/wolfman30/leadflow/migrations"
)

type fakeMigrator struct {
	upErr   error
	forced  int
	steps   int
	version uint
	verErr  error
}

func (f *fakeMigrator) Up() error               { return f.upErr }
func (f *fakeMigrator) Down() error             { return nil }
func (f *fakeMigrator) Steps(n int) error       { f.steps = n; return nil }
func (f *fakeMigrator) Force(version int) error { f.forced = version; return nil }
func (f *fakeMigrator) Version() (uint, bool, error) {
	return f.version, false, f.verErr
}

func run(t *testing.T, m *fakeMigrator, args ...string) (string, error) {
	t.Helper()
	var gotURL string
	cmd := newRootCmd(func(url string) (migrator, func(), error) {
		gotURL = url
		return m, func() {}, nil
	})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--database-url=postgres://localhost/leads"}, args...))
	err := cmd.Execute()
	if err == nil {
		assert.Equal(t, "postgres://localhost/leads", gotURL)
	}
	return out.String(), err
}

func TestMigrateCommands(t *testing.T) {
	m := &fakeMigrator{upErr: migrate.ErrNoChange, version: 2}

	out, err := run(t, m)
	require.NoError(t, err)
	assert.Contains(t, out, "migrations complete")

	out, err = run(t, m, "force", "1")
	require.NoError(t, err)
	assert.Equal(t, 1, m.forced)
	assert.Contains(t, out, "forced version to 1")

	_, err = run(t, m, "steps", "--", "-1")
	require.NoError(t, err)
	assert.Equal(t, -1, m.steps)

	out, err = run(t, m, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "version 2 (dirty=false)")

	_, err = run(t, m, "force")
	assert.Error(t, err)
	_, err = run(t, m, "force", "x")
	assert.Error(t, err)
	_, err = run(t, m, "sideways")
	assert.Error(t, err)
}

func TestMigrateUpFailure(t *testing.T) {
	_, err := run(t, &fakeMigrator{upErr: errors.New("dirty database")}, "up")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dirty database")
}

func TestMigrateVersionWithoutMigrations(t *testing.T) {
	out, err := run(t, &fakeMigrator{verErr: migrate.ErrNilVersion}, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "no migrations applied")
}

func TestMigrateRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	cmd := newRootCmd(func(string) (migrator, func(), error) {
		t.Fatal("open must not be called without a URL")
		return nil, nil, nil
	})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"up"})
	assert.Error(t, cmd.Execute())
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	ups, err := fs.Glob(appmigrations.FS, "*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(appmigrations.FS, "*.down.sql")
	require.NoError(t, err)
	assert.Len(t, ups, 2)
	assert.Equal(t, len(ups), len(downs))
}
