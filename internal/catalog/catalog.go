// Package catalog maintains the canonical store of playable effects:
// a flat directory of normalized audio files, one per effect. The
// directory listing is the catalog; there is no separate index.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const canonicalExt = ".wav"

// Effect is a published, playable clip. Effects are immutable once
// published; re-publishing under the same name is rejected.
type Effect struct {
	Name string
	Path string
}

type Catalog struct {
	dir string

	mu       sync.Mutex
	reserved map[string]struct{}
}

func New(dir string) (*Catalog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create effects directory: %w", err)
	}
	return &Catalog{
		dir:      dir,
		reserved: make(map[string]struct{}),
	}, nil
}

func (c *Catalog) Dir() string {
	return c.dir
}

// List returns the names of all published effects in directory order.
// Reservations, staging files, and stray files that are not in the
// canonical format are not listed; everything List returns resolves.
func (c *Catalog) List() ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read effects directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != canonicalExt {
			continue
		}
		names = append(names, strings.TrimSuffix(name, canonicalExt))
	}
	return names, nil
}

// Exists reports whether name is published or currently reserved by an
// in-flight ingestion.
func (c *Catalog) Exists(name string) bool {
	c.mu.Lock()
	_, held := c.reserved[name]
	c.mu.Unlock()
	return held || c.published(name)
}

// ResolvePath returns the canonical file for a published effect.
func (c *Catalog) ResolvePath(name string) (string, error) {
	path := c.canonicalPath(name)
	if _, err := os.Stat(path); err != nil {
		return "", &NotFoundError{Name: name}
	}
	return path, nil
}

// Reserve claims name for one ingestion. The claim is visible to Exists
// and blocks concurrent Reserve calls for the same name, so two uploads
// racing on one name fail deterministically instead of both encoding.
// The reservation must be released on failure or converted by Publish.
func (c *Catalog) Reserve(name string) (*Reservation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, held := c.reserved[name]; held {
		return nil, &CollisionError{Name: name}
	}
	if c.published(name) {
		return nil, &CollisionError{Name: name}
	}

	c.reserved[name] = struct{}{}
	return &Reservation{catalog: c, name: name}, nil
}

// Publish moves an encoded file into the canonical store under the
// reserved name. The effect becomes visible to List, Exists, and
// ResolvePath at the moment of the rename, not before.
func (c *Catalog) Publish(r *Reservation, sourcePath string) (Effect, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r.done {
		return Effect{}, fmt.Errorf("reservation for %q is no longer held", r.name)
	}

	dest := c.canonicalPath(r.name)
	if _, err := os.Stat(dest); err == nil {
		// Defense in depth: the reservation should make this unreachable.
		r.done = true
		delete(c.reserved, r.name)
		return Effect{}, &CollisionError{Name: r.name}
	}

	if err := os.Rename(sourcePath, dest); err != nil {
		return Effect{}, fmt.Errorf("failed to publish effect %q: %w", r.name, err)
	}

	r.done = true
	delete(c.reserved, r.name)
	return Effect{Name: r.name, Path: dest}, nil
}

func (c *Catalog) canonicalPath(name string) string {
	return filepath.Join(c.dir, name+canonicalExt)
}

func (c *Catalog) published(name string) bool {
	_, err := os.Stat(c.canonicalPath(name))
	return err == nil
}

// Reservation holds an effect name between the collision check and the
// publish (or failure) of one ingestion.
type Reservation struct {
	catalog *Catalog
	name    string
	done    bool
}

func (r *Reservation) Name() string {
	return r.name
}

// StagingPath is where the encoder writes before publish. It lives in
// the catalog directory so the publishing rename never crosses a
// filesystem boundary, and is dot-prefixed so List skips it.
func (r *Reservation) StagingPath() string {
	return filepath.Join(r.catalog.dir, "."+r.name+".pending"+canonicalExt)
}

// Release frees the name without publishing. Idempotent, and a no-op
// after Publish.
func (r *Reservation) Release() {
	r.catalog.mu.Lock()
	defer r.catalog.mu.Unlock()

	if r.done {
		return
	}
	r.done = true
	delete(r.catalog.reserved, r.name)
}
