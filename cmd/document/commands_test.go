package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogotex/gogotex/backend/docservice/internal/document"
	"github.com/gogotex/gogotex/backend/docservice/internal/identity"
	"github.com/gogotex/gogotex/backend/docservice/internal/storage"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "none.env"))
	t.Setenv("JWT_SECRET", "cli-test-secret-32-bytes-xxxxxxxxxxx")

	out, err := execute(t, "token", "alice", "--email", "alice@example.com")
	require.NoError(t, err)

	tok, err := identity.NewHMACVerifier("cli-test-secret-32-bytes-xxxxxxxxxxx").Verify(context.Background(), strings.TrimSpace(out))
	require.NoError(t, err)
	var claims map[string]interface{}
	require.NoError(t, tok.Claims(&claims))
	assert.Equal(t, "alice", claims["sub"])
	assert.Equal(t, "alice@example.com", claims["email"])
}

func TestMigrateCommandSQLite(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "none.env"))
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "docs.db"))

	_, err := execute(t, "migrate", "up")
	require.NoError(t, err)
	_, err = execute(t, "migrate", "sideways")
	require.Error(t, err)
}

func TestHistoryCommandEmptyStore(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "none.env"))
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "docs.db"))

	out, err := execute(t, "history", "missing-doc")
	require.NoError(t, err)
	assert.Contains(t, out, "VERSION")
	assert.Contains(t, out, "TOTAL")
}

func TestHistoryCommandRejectsMemoryStore(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "none.env"))
	t.Setenv("STORE_DRIVER", "memory")

	_, err := execute(t, "history", "some-doc")
	require.ErrorIs(t, err, errMemoryHistory)
}

func TestHistoryArchivedNeedsMinIO(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "none.env"))
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("MINIO_ENDPOINT", "")
	t.Cleanup(func() { historyArchived = 0 })

	_, err := execute(t, "history", "some-doc", "--archived", "1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, errMemoryHistory)
}

type objects map[string][]byte

func (o objects) Put(_ context.Context, key string, data []byte, _ string) error {
	o[key] = data
	return nil
}

func (o objects) Get(_ context.Context, key string) ([]byte, error) {
	data, ok := o[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return data, nil
}

func TestPrintArchived(t *testing.T) {
	ctx := context.Background()
	archive := storage.NewVersionArchive(objects{})
	require.NoError(t, archive.Archive(ctx, []*document.Version{{
		ID: "v1", DocumentID: "d1", VersionNumber: 1, Title: "Intro", Content: "\\section{Intro}",
		Type: "text", ModifiedBy: "alice", ChangeDescription: "created",
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}}))

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	require.NoError(t, printArchived(ctx, cmd, archive, "d1", 1))
	assert.Contains(t, out.String(), "Intro")
	assert.Contains(t, out.String(), "alice")
	assert.Contains(t, out.String(), "2024-05-01T12:00:00Z")
	assert.Contains(t, out.String(), "\\section{Intro}")

	require.Error(t, printArchived(ctx, cmd, archive, "d1", 2))
}
