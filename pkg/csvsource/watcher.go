package csvsource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/marmos91/vtable/internal/logger"
)

// ChangeKind classifies a file change.
type ChangeKind int

const (
	// ChangeModified means bytes were written and the file did not shrink.
	ChangeModified ChangeKind = iota
	// ChangeTruncated means the file is now smaller than before.
	ChangeTruncated
	// ChangeReplaced means a new file was created at the path.
	ChangeReplaced
	// ChangeRemoved means the file was removed or renamed away.
	ChangeRemoved
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeModified:
		return "modified"
	case ChangeTruncated:
		return "truncated"
	case ChangeReplaced:
		return "replaced"
	case ChangeRemoved:
		return "removed"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Change is delivered to the Watch callback.
type Change struct {
	Path string
	Kind ChangeKind
	Size int64 // size after the change, 0 when removed
}

// WatcherOps creates file system watchers. Tests substitute a fake.
type WatcherOps interface {
	NewWatcher() (WatcherInstance, error)
}

// WatcherInstance is the subset of fsnotify.Watcher used here.
type WatcherInstance interface {
	Add(name string) error
	Close() error
	Events() <-chan fsnotify.Event
	Errors() <-chan error
}

type fsnotifyOps struct{}

func (fsnotifyOps) NewWatcher() (WatcherInstance, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return fsnotifyWatcher{w}, nil
}

type fsnotifyWatcher struct {
	w *fsnotify.Watcher
}

func (f fsnotifyWatcher) Add(name string) error         { return f.w.Add(name) }
func (f fsnotifyWatcher) Close() error                  { return f.w.Close() }
func (f fsnotifyWatcher) Events() <-chan fsnotify.Event { return f.w.Events }
func (f fsnotifyWatcher) Errors() <-chan error          { return f.w.Errors }

// Watch reports changes to the file at path until ctx is done. The parent
// directory is watched so that replacement by rename is noticed. A Reader
// keeps serving its original bytes; hosts react to a change by opening a
// new Reader and swapping it into the block cache.
func Watch(ctx context.Context, path string, onChange func(Change)) error {
	return watch(ctx, path, onChange, fsnotifyOps{})
}

func watch(ctx context.Context, path string, onChange func(Change), ops WatcherOps) error {
	path, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w, err := ops.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	var lastSize int64
	if info, err := os.Stat(path); err == nil {
		lastSize = info.Size()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
			change, ok := classify(ev, path, &lastSize)
			if !ok {
				continue
			}
			logger.Debug("Flat file changed", logger.KeyPath, path, logger.KeyStatus, change.Kind.String())
			onChange(change)
		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", path, err)
		}
	}
}

func classify(ev fsnotify.Event, path string, lastSize *int64) (Change, bool) {
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		*lastSize = 0
		return Change{Path: path, Kind: ChangeRemoved}, true
	case ev.Has(fsnotify.Create):
		size := statSize(path)
		*lastSize = size
		return Change{Path: path, Kind: ChangeReplaced, Size: size}, true
	case ev.Has(fsnotify.Write):
		size := statSize(path)
		kind := ChangeModified
		if size < *lastSize {
			kind = ChangeTruncated
		}
		*lastSize = size
		return Change{Path: path, Kind: kind, Size: size}, true
	default:
		return Change{}, false
	}
}

func statSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
