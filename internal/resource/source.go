package resource

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
)

// ErrNotFound is returned when an identifier resolves to nothing.
var ErrNotFound = errors.New("resource not found")

// Opener opens a resource for reading. Each call returns a fresh reader.
type Opener func() (io.ReadCloser, error)

// Entry is a listed resource.
type Entry struct {
	ID   Identifier
	Open Opener
}

// Source resolves identifiers to resource contents.
type Source interface {
	// Resolve returns an opener for id, or false when id does not exist.
	Resolve(id Identifier) (Opener, bool)
	// List returns the resources of namespace below path that pass filter,
	// sorted by identifier. A nil filter accepts everything.
	List(namespace, path string, filter func(Identifier) bool) []Entry
}

// Dir is a Source over a directory tree laid out as <namespace>/<path>.
type Dir struct {
	fsys fs.FS
}

// NewDir returns a Source rooted at the directory root.
func NewDir(root string) (*Dir, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open resource directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("resource root %s is not a directory", root)
	}
	return &Dir{fsys: os.DirFS(root)}, nil
}

// FromFS returns a Source over an arbitrary file system.
func FromFS(fsys fs.FS) *Dir {
	return &Dir{fsys: fsys}
}

// Resolve implements Source.
func (d *Dir) Resolve(id Identifier) (Opener, bool) {
	name := id.FilePath()
	info, err := fs.Stat(d.fsys, name)
	if err != nil || info.IsDir() {
		return nil, false
	}
	return d.opener(name), true
}

// List implements Source.
func (d *Dir) List(namespace, dir string, filter func(Identifier) bool) []Entry {
	root := path.Join(namespace, dir)
	var entries []Entry
	// Walk errors only mean part of the tree is unreadable; list what is.
	_ = fs.WalkDir(d.fsys, root, func(name string, de fs.DirEntry, err error) error {
		if err != nil || de.IsDir() {
			return nil
		}
		id := Identifier{Namespace: namespace, Path: strings.TrimPrefix(name, namespace+"/")}
		if !validPath(id.Path) {
			return nil
		}
		if filter != nil && !filter(id) {
			return nil
		}
		entries = append(entries, Entry{ID: id, Open: d.opener(name)})
		return nil
	})
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID.Path < entries[j].ID.Path })
	return entries
}

func (d *Dir) opener(name string) Opener {
	return func() (io.ReadCloser, error) {
		f, err := d.fsys.Open(name)
		if err != nil {
			return nil, fmt.Errorf("failed to open resource: %w", err)
		}
		return f, nil
	}
}

// Layered consults its sources in order; earlier sources shadow later ones.
type Layered []Source

// Resolve implements Source.
func (l Layered) Resolve(id Identifier) (Opener, bool) {
	for _, s := range l {
		if open, ok := s.Resolve(id); ok {
			return open, true
		}
	}
	return nil, false
}

// List implements Source.
func (l Layered) List(namespace, dir string, filter func(Identifier) bool) []Entry {
	seen := make(map[Identifier]bool)
	var entries []Entry
	for _, s := range l {
		for _, e := range s.List(namespace, dir, filter) {
			if !seen[e.ID] {
				seen[e.ID] = true
				entries = append(entries, e)
			}
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID.Path < entries[j].ID.Path })
	return entries
}
