package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nilor/internal/codec"
	"nilor/internal/config"
	"nilor/internal/domain"
	"nilor/internal/repository"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSampleDocument(t *testing.T, path string) {
	t.Helper()
	data, err := codec.MarshalDocument(codec.Serialize(domain.SampleSnapshot()))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "graph.json")
	writeSampleDocument(t, good)

	out, err := execute(t, "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "ok (4 nodes, 3 edges)")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("nodes: []\n"), 0o644))
	_, err = execute(t, "validate", bad)
	assert.ErrorIs(t, err, codec.ErrMalformedDocument)

	_, err = execute(t, "validate", filepath.Join(dir, "graph.txt"))
	assert.ErrorIs(t, err, codec.ErrUnsupportedFormat)

	_, err = execute(t, "validate")
	assert.Error(t, err)
}

func TestConvertCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "graph.json")
	writeSampleDocument(t, in)

	yamlPath := filepath.Join(dir, "graph.yaml")
	_, err := execute(t, "convert", in, "--to", "yaml", "-o", yamlPath)
	require.NoError(t, err)

	out, err := execute(t, "validate", yamlPath)
	require.NoError(t, err)
	assert.Contains(t, out, "ok (4 nodes, 3 edges)")

	out, err = execute(t, "convert", yamlPath, "--to", "svg")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "<svg"))

	_, err = execute(t, "convert", in, "--to", "pdf")
	assert.ErrorIs(t, err, codec.ErrUnsupportedFormat)

	_, err = execute(t, "convert", in)
	assert.Error(t, err, "--to is required")
}

// closingExporter closes its file mid-export so the final close fails
type closingExporter struct{}

func (closingExporter) Format() string { return "json" }

func (closingExporter) Export(doc *codec.Document, w io.Writer) error {
	return w.(*os.File).Close()
}

func TestExportToFileReportsCloseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")
	doc := codec.Serialize(domain.SampleSnapshot())

	err := exportToFile(closingExporter{}, doc, path)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrClosed)

	require.NoError(t, exportToFile(codec.NewJSONCodec(), doc, path))
	out, err := execute(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "ok (4 nodes, 3 edges)")

	_, err = execute(t, "convert", path, "--to", "yaml", "-o", filepath.Join(t.TempDir(), "missing", "graph.yaml"))
	assert.ErrorContains(t, err, "failed to create")
}

func parseServe(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()
	var opts serveOptions
	cmd := &cobra.Command{Use: "serve"}
	bindServeFlags(cmd, &opts)
	require.NoError(t, cmd.ParseFlags(args))
	return loadServeConfig(cmd, opts)
}

func TestLoadServeConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "nilor.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
server:
  addr: ":9000"
storage:
  backend: sqlite
  path: /var/lib/nilor/graph.db
editor:
  sample_graph: true
`), 0o644))

	t.Run("file values", func(t *testing.T) {
		cfg, err := parseServe(t, "--config", cfgPath)
		require.NoError(t, err)
		assert.Equal(t, ":9000", cfg.Server.Addr)
		assert.Equal(t, "/var/lib/nilor/graph.db", cfg.Storage.Path)
		assert.True(t, cfg.Editor.SampleGraph)
	})

	t.Run("flags override", func(t *testing.T) {
		cfg, err := parseServe(t, "--config", cfgPath, "--addr", ":7000", "--sample=false", "--seed", "42")
		require.NoError(t, err)
		assert.Equal(t, ":7000", cfg.Server.Addr)
		assert.False(t, cfg.Editor.SampleGraph)
		assert.Equal(t, uint64(42), cfg.Editor.Seed)
	})

	t.Run("backend switch takes that backend's default path", func(t *testing.T) {
		cfg, err := parseServe(t, "--config", cfgPath, "--storage", "file")
		require.NoError(t, err)
		assert.Equal(t, config.BackendFile, cfg.Storage.Backend)
		assert.Equal(t, "./nilor-graph.json", cfg.Storage.Path)
	})

	t.Run("invalid backend", func(t *testing.T) {
		_, err := parseServe(t, "--config", cfgPath, "--storage", "postgres")
		assert.Error(t, err)
	})

	t.Run("watching the autosave file", func(t *testing.T) {
		autosave := filepath.Join(dir, "autosave.json")
		_, err := parseServe(t, "--config", cfgPath, "--storage", "file", "--path", autosave, "--watch", autosave)
		assert.ErrorContains(t, err, "autosave file")

		_, err = parseServe(t, "--config", cfgPath, "--storage", "file", "--path", autosave, "--watch", filepath.Join(dir, "other.json"))
		assert.NoError(t, err)
	})
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()
	tests := []config.StorageConfig{
		{Backend: config.BackendSQLite, Path: filepath.Join(dir, "nilor.db"), Key: "k"},
		{Backend: config.BackendFile, Path: filepath.Join(dir, "graph.json"), Key: "k"},
		{Backend: config.BackendMemory, Key: "k"},
	}

	for _, sc := range tests {
		t.Run(sc.Backend, func(t *testing.T) {
			store, err := openStore(sc)
			require.NoError(t, err)
			defer store.Close()

			ctx := context.Background()
			_, err = store.Load(ctx)
			assert.ErrorIs(t, err, repository.ErrNoDocument)

			require.NoError(t, store.Save(ctx, []byte(`{"nodes":[],"edges":[]}`)))
			data, err := store.Load(ctx)
			require.NoError(t, err)
			assert.JSONEq(t, `{"nodes":[],"edges":[]}`, string(data))
		})
	}

	_, err := openStore(config.StorageConfig{Backend: "etcd"})
	assert.Error(t, err)
}
