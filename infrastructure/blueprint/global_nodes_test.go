package blueprint

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDefaultCatalog(t *testing.T) {
	catalog, err := NewDefaultCatalog()
	require.NoError(t, err)

	nodes, err := catalog.ListGlobalNodes(context.Background())

	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "node1", nodes[0].ID().String())
	assert.Equal(t, "Global Node 1", nodes[0].Title())
	assert.Equal(t, []string{"email", "name"}, nodes[0].Fields())
	assert.Equal(t, []string{"role", "access"}, nodes[1].Fields())
	assert.True(t, nodes[1].IsGlobal())
	assert.NoError(t, catalog.Reload(), "static catalogs ignore reloads")
}

func TestBuildGlobalNodes_Errors(t *testing.T) {
	_, err := BuildGlobalNodes([]GlobalNodeSpec{{ID: "a"}, {ID: "a"}})
	assert.ErrorContains(t, err, "duplicate id")

	_, err = BuildGlobalNodes([]GlobalNodeSpec{{ID: ""}})
	assert.Error(t, err)
}

func writeGlobals(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func TestFileCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "globals.yaml")
	writeGlobals(t, path, `
nodes:
  - id: org
    title: Organisation
    fields: [name, vat_id]
`)

	catalog, err := NewFileCatalog(path, zap.NewNop())
	require.NoError(t, err)

	nodes, err := catalog.ListGlobalNodes(context.Background())
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "Organisation", nodes[0].Title())

	writeGlobals(t, path, "nodes: [broken")
	assert.Error(t, catalog.Reload())

	nodes, err = catalog.ListGlobalNodes(context.Background())
	require.NoError(t, err)
	assert.Len(t, nodes, 1, "a broken file keeps the previous nodes")

	_, err = NewFileCatalog(filepath.Join(t.TempDir(), "missing.yaml"), zap.NewNop())
	assert.Error(t, err)
}

func TestFileCatalog_WatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "globals.yaml")
	writeGlobals(t, path, "nodes:\n  - id: a\n    title: A\n    fields: [x]\n")

	catalog, err := NewFileCatalog(path, zap.NewNop())
	require.NoError(t, err)

	var reloads int32
	catalog.OnReload(func(int) { atomic.AddInt32(&reloads, 1) })
	require.NoError(t, catalog.Watch())
	defer catalog.Close()

	writeGlobals(t, path, "nodes:\n  - id: a\n    title: A\n    fields: [x]\n  - id: b\n    title: B\n    fields: [y]\n")

	require.Eventually(t, func() bool {
		nodes, _ := catalog.ListGlobalNodes(context.Background())
		return len(nodes) == 2
	}, 3*time.Second, 20*time.Millisecond)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&reloads), int32(1))
}

func TestStaticCatalog_WatchRequiresFile(t *testing.T) {
	catalog := NewStaticCatalog(nil)
	assert.Error(t, catalog.Watch())
	assert.NoError(t, catalog.Close())
}
