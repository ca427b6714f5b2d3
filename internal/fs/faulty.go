package fs

import (
	"errors"
	"os"
	"strings"
	"sync"
)

// ErrInjected is the default error returned by FaultyFS faults.
var ErrInjected = errors.New("injected fault")

// Op identifies a file system operation that a fault can target.
type Op string

const (
	OpWrite   Op = "write"
	OpSync    Op = "sync"
	OpClose   Op = "close"
	OpRemove  Op = "remove"
	OpRename  Op = "rename"
	OpReadDir Op = "readdir"
)

// FaultyFS wraps a FileSystem and injects errors into matching operations.
//
// Faults are keyed by (op, substring-of-path). An empty pattern matches
// every path. FaultyFS is safe for concurrent use.
type FaultyFS struct {
	FS FileSystem

	mu     sync.Mutex
	faults map[Op][]faultRule
}

type faultRule struct {
	pattern string
	err     error
}

// NewFaultyFS creates a FaultyFS wrapping fs (or Default if nil).
func NewFaultyFS(fsys FileSystem) *FaultyFS {
	if fsys == nil {
		fsys = Default
	}
	return &FaultyFS{
		FS:     fsys,
		faults: make(map[Op][]faultRule),
	}
}

// FailOn makes every matching operation return err (ErrInjected if nil).
// pattern is matched as a substring of the path; "" matches all paths.
func (f *FaultyFS) FailOn(op Op, pattern string, err error) {
	if err == nil {
		err = ErrInjected
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults[op] = append(f.faults[op], faultRule{pattern: pattern, err: err})
}

// Clear removes all fault rules.
func (f *FaultyFS) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults = make(map[Op][]faultRule)
}

func (f *FaultyFS) check(op Op, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.faults[op] {
		if r.pattern == "" || strings.Contains(path, r.pattern) {
			return r.err
		}
	}
	return nil
}

func (f *FaultyFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	file, err := f.FS.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return &faultyFile{File: file, fs: f, name: name}, nil
}

func (f *FaultyFS) Remove(name string) error {
	if err := f.check(OpRemove, name); err != nil {
		return err
	}
	return f.FS.Remove(name)
}

func (f *FaultyFS) Rename(oldpath, newpath string) error {
	if err := f.check(OpRename, newpath); err != nil {
		return err
	}
	return f.FS.Rename(oldpath, newpath)
}

func (f *FaultyFS) Stat(name string) (os.FileInfo, error) { return f.FS.Stat(name) }

func (f *FaultyFS) MkdirAll(path string, perm os.FileMode) error {
	return f.FS.MkdirAll(path, perm)
}

func (f *FaultyFS) ReadDir(name string) ([]os.DirEntry, error) {
	if err := f.check(OpReadDir, name); err != nil {
		return nil, err
	}
	return f.FS.ReadDir(name)
}

type faultyFile struct {
	File
	fs   *FaultyFS
	name string
}

func (f *faultyFile) Write(p []byte) (int, error) {
	if err := f.fs.check(OpWrite, f.name); err != nil {
		return 0, err
	}
	return f.File.Write(p)
}

func (f *faultyFile) Sync() error {
	if err := f.fs.check(OpSync, f.name); err != nil {
		return err
	}
	return f.File.Sync()
}

func (f *faultyFile) Close() error {
	if err := f.fs.check(OpClose, f.name); err != nil {
		_ = f.File.Close()
		return err
	}
	return f.File.Close()
}
