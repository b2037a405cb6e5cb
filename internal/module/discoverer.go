package module

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/nylonring/corert/internal/errs"
)

// manifestFile is the sibling manifest fsnotify watches for, per
// spec.md §6's module manifest format.
const manifestFile = "module.json"

// Discoverer walks a plugin directory for sibling module.json
// manifests and optionally watches it for newly-appearing ones.
// Discovery never loads anything itself — spec.md's load_set "atomic
// batch" contract means the host always decides when to turn
// discovered handles into an actual LoadSet call. Grounded on the
// pack's fsnotify usage (bennypowers-cem's serve.fileWatcher), trimmed
// to the one event this component needs: "a module.json appeared".
type Discoverer struct {
	root string

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	events  chan ModuleHandle
	done    chan struct{}
}

// NewDiscoverer builds a Discoverer rooted at dir, where dir contains
// one subdirectory per candidate module.
func NewDiscoverer(dir string) *Discoverer {
	return &Discoverer{root: dir}
}

// Scan performs a single, non-watching walk of the root directory,
// returning a ModuleHandle for every immediate subdirectory that
// contains a module.json manifest.
func (d *Discoverer) Scan() ([]ModuleHandle, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, errs.E("module.Discoverer.Scan", errs.Internal, err)
	}
	var handles []ModuleHandle
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(d.root, e.Name())
		if manifestExists(dir) {
			handles = append(handles, ModuleHandle{Path: dir})
		}
	}
	return handles, nil
}

func manifestExists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, manifestFile))
	return err == nil
}

// Watch starts watching the root directory for newly-created
// subdirectories that gain a module.json, emitting a ModuleHandle on
// the returned channel for each one. The channel is closed when Close
// is called. Calling Watch twice without an intervening Close is an
// error.
func (d *Discoverer) Watch() (<-chan ModuleHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.watcher != nil {
		return nil, errs.E("module.Discoverer.Watch", errs.FailedPrecondition, nil)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errs.E("module.Discoverer.Watch", errs.Internal, err)
	}
	if err := w.Add(d.root); err != nil {
		_ = w.Close()
		return nil, errs.E("module.Discoverer.Watch", errs.Internal, err)
	}

	d.watcher = w
	d.events = make(chan ModuleHandle, 16)
	d.done = make(chan struct{})
	go d.loop()
	return d.events, nil
}

func (d *Discoverer) loop() {
	defer close(d.events)
	for {
		select {
		case ev, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if !(ev.Op&(fsnotify.Create|fsnotify.Write) != 0) {
				continue
			}
			// The watch is not recursive: a new module directory is added
			// to the watch so its manifest is seen, and a manifest that
			// is already inside it is reported at once.
			if ev.Op&fsnotify.Create != 0 && filepath.Dir(ev.Name) == filepath.Clean(d.root) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					_ = d.watcher.Add(ev.Name)
					if !manifestExists(ev.Name) {
						continue
					}
					ev.Name = filepath.Join(ev.Name, manifestFile)
				}
			}
			if filepath.Base(ev.Name) != manifestFile {
				continue
			}
			dir := filepath.Dir(ev.Name)
			select {
			case d.events <- ModuleHandle{Path: dir}:
			case <-d.done:
				return
			}
		case _, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
		case <-d.done:
			return
		}
	}
}

// Close stops a running Watch, if any. Safe to call without a prior
// Watch.
func (d *Discoverer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.watcher == nil {
		return nil
	}
	close(d.done)
	err := d.watcher.Close()
	d.watcher = nil
	return err
}
