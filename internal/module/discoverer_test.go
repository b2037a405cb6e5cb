package module

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifestFile),
		[]byte(`{"schema":"0","library_path":"plugin.so"}`), 0o644))
}

func TestDiscovererScan(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, filepath.Join(root, "a"))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "b"), 0o755)) // no manifest

	d := NewDiscoverer(root)
	handles, err := d.Scan()
	require.NoError(t, err)
	require.Len(t, handles, 1)
	assert.Equal(t, filepath.Join(root, "a"), handles[0].Path)
}

func TestDiscovererWatch(t *testing.T) {
	root := t.TempDir()
	d := NewDiscoverer(root)
	events, err := d.Watch()
	require.NoError(t, err)
	defer d.Close()

	writeManifest(t, filepath.Join(root, "late"))

	select {
	case h := <-events:
		assert.Equal(t, filepath.Join(root, "late"), h.Path)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for discovery event")
	}
}

func TestDiscovererWatchTwiceRejected(t *testing.T) {
	root := t.TempDir()
	d := NewDiscoverer(root)
	_, err := d.Watch()
	require.NoError(t, err)
	defer d.Close()

	_, err = d.Watch()
	require.Error(t, err)
}
