package catalog_test

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/vgreer/soundbot/internal/catalog"
)

func newCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create catalog: %v", err)
	}
	return c
}

func publish(t *testing.T, c *catalog.Catalog, name string) catalog.Effect {
	t.Helper()
	reservation, err := c.Reserve(name)
	if err != nil {
		t.Fatalf("failed to reserve %q: %v", name, err)
	}
	if err := os.WriteFile(reservation.StagingPath(), []byte("audio"), 0o644); err != nil {
		t.Fatalf("failed to write staging file: %v", err)
	}
	effect, err := c.Publish(reservation, reservation.StagingPath())
	if err != nil {
		t.Fatalf("failed to publish %q: %v", name, err)
	}
	return effect
}

func TestListEmpty(t *testing.T) {
	c := newCatalog(t)

	names, err := c.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("List() = %v, want empty", names)
	}
}

func TestPublishThenList(t *testing.T) {
	c := newCatalog(t)

	effect := publish(t, c, "boop")
	if effect.Name != "boop" {
		t.Errorf("effect.Name = %q, want %q", effect.Name, "boop")
	}

	names, err := c.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"boop"}, names); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}

	if !c.Exists("boop") {
		t.Error("Exists(boop) = false after publish")
	}

	path, err := c.ResolvePath("boop")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != effect.Path {
		t.Errorf("ResolvePath() = %q, want %q", path, effect.Path)
	}
}

func TestListSkipsStagingFiles(t *testing.T) {
	c := newCatalog(t)

	reservation, err := c.Reserve("pending")
	if err != nil {
		t.Fatalf("failed to reserve: %v", err)
	}
	defer reservation.Release()
	if err := os.WriteFile(reservation.StagingPath(), []byte("partial"), 0o644); err != nil {
		t.Fatalf("failed to write staging file: %v", err)
	}

	names, err := c.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("List() = %v, want empty while staging", names)
	}
}

func TestListSkipsStrayFiles(t *testing.T) {
	c := newCatalog(t)
	publish(t, c, "boop")

	for _, stray := range []string{"notes.txt", "honk.mp3", "README"} {
		if err := os.WriteFile(filepath.Join(c.Dir(), stray), []byte("stray"), 0o644); err != nil {
			t.Fatalf("failed to write %q: %v", stray, err)
		}
	}

	names, err := c.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"boop"}, names); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}

	// Every listed name must resolve to a playable file.
	for _, name := range names {
		if _, err := c.ResolvePath(name); err != nil {
			t.Errorf("ResolvePath(%q) failed for listed name: %v", name, err)
		}
	}
}

func TestReserveCollisionWithPublished(t *testing.T) {
	c := newCatalog(t)
	publish(t, c, "boop")

	_, err := c.Reserve("boop")
	var collision *catalog.CollisionError
	if !errors.As(err, &collision) {
		t.Fatalf("expected CollisionError, got %v", err)
	}
	if collision.Name != "boop" {
		t.Errorf("CollisionError.Name = %q, want %q", collision.Name, "boop")
	}
}

func TestReserveCollisionWithReservation(t *testing.T) {
	c := newCatalog(t)

	first, err := c.Reserve("boop")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer first.Release()

	if _, err := c.Reserve("boop"); err == nil {
		t.Fatal("expected second Reserve to fail while reservation held")
	}
	if !c.Exists("boop") {
		t.Error("Exists(boop) = false while reserved")
	}
}

func TestReleaseFreesName(t *testing.T) {
	c := newCatalog(t)

	reservation, err := c.Reserve("boop")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reservation.Release()
	reservation.Release() // idempotent

	if c.Exists("boop") {
		t.Error("Exists(boop) = true after release")
	}
	if _, err := c.Reserve("boop"); err != nil {
		t.Errorf("Reserve after release failed: %v", err)
	}
}

func TestConcurrentReserveSingleWinner(t *testing.T) {
	c := newCatalog(t)

	const attempts = 16
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Reserve("boop")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var winners, losers int
	for err := range results {
		if err == nil {
			winners++
			continue
		}
		var collision *catalog.CollisionError
		if !errors.As(err, &collision) {
			t.Errorf("expected CollisionError, got %v", err)
		}
		losers++
	}
	if winners != 1 {
		t.Errorf("winners = %d, want exactly 1", winners)
	}
	if losers != attempts-1 {
		t.Errorf("losers = %d, want %d", losers, attempts-1)
	}
}

func TestResolvePathNotFound(t *testing.T) {
	c := newCatalog(t)

	_, err := c.ResolvePath("ghost")
	var notFound *catalog.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestPublishMovesStagingFile(t *testing.T) {
	c := newCatalog(t)

	reservation, err := c.Reserve("boop")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	staging := reservation.StagingPath()
	if err := os.WriteFile(staging, []byte("audio"), 0o644); err != nil {
		t.Fatalf("failed to write staging file: %v", err)
	}

	effect, err := c.Publish(reservation, staging)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := os.Stat(staging); !os.IsNotExist(err) {
		t.Error("staging file still present after publish")
	}
	if filepath.Base(effect.Path) != "boop.wav" {
		t.Errorf("canonical file = %q, want boop.wav", filepath.Base(effect.Path))
	}
}
