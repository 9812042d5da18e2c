// Package ingest turns user-submitted media into published effects:
// reserve the name, acquire the bytes, normalize with ffmpeg, publish
// atomically into the catalog. Failures at any step leave the catalog
// untouched and no temp files behind.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/vgreer/soundbot/internal/catalog"
)

// Normalizer is the media encoder. Implemented by encoder.FFmpeg.
type Normalizer interface {
	Normalize(ctx context.Context, inputPath, outputPath string) error
}

// Notifier receives progress notices at stage boundaries. Notices are
// observational; the pipeline's outcome never depends on them.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, string) {}

var _ Notifier = NopNotifier{}

// InvalidNameError indicates an uploaded filename that yields no usable
// effect name.
type InvalidNameError struct {
	Filename string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("cannot derive an effect name from %q", e.Filename)
}

var _ error = (*InvalidNameError)(nil)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

var safeName = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// EffectName derives the catalog key from an uploaded filename: base
// name with the extension stripped and unsafe characters collapsed.
// Names double as filenames in the canonical store, so nothing that
// could escape the directory survives.
func EffectName(filename string) (string, error) {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = unsafeNameChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "_")
	if base == "" {
		return "", &InvalidNameError{Filename: filename}
	}
	return base, nil
}

type Pipeline struct {
	catalog *catalog.Catalog
	encoder Normalizer
	tempDir string
}

func NewPipeline(cat *catalog.Catalog, enc Normalizer, tempDir string) *Pipeline {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Pipeline{
		catalog: cat,
		encoder: enc,
		tempDir: tempDir,
	}
}

// HandleUpload runs one ingestion to completion. Steps are strictly
// ordered: collision check, acquisition, encode, cleanup, publish. A
// collision aborts before any network or disk I/O. The temp input is
// removed on both the success and failure paths of the encode.
func (p *Pipeline) HandleUpload(ctx context.Context, source Source, requestedName string, notify Notifier) (catalog.Effect, error) {
	if notify == nil {
		notify = NopNotifier{}
	}

	// Names become filenames in the canonical store, so the pipeline
	// rejects anything EffectName would not have produced, even when the
	// caller derived the name itself.
	if !safeName.MatchString(requestedName) {
		return catalog.Effect{}, &InvalidNameError{Filename: requestedName}
	}

	reservation, err := p.catalog.Reserve(requestedName)
	if err != nil {
		return catalog.Effect{}, err
	}
	published := false
	defer func() {
		if !published {
			reservation.Release()
		}
	}()

	notify.Notify(ctx, fmt.Sprintf("Downloading %s...", source.Filename()))
	tempPath, err := p.acquire(ctx, source)
	if err != nil {
		return catalog.Effect{}, err
	}
	notify.Notify(ctx, "Download complete.")

	notify.Notify(ctx, fmt.Sprintf("Processing %s...", requestedName))
	stagingPath := reservation.StagingPath()
	encodeErr := p.encoder.Normalize(ctx, tempPath, stagingPath)
	if err := os.Remove(tempPath); err != nil {
		slog.Warn("failed to remove temp upload", "path", tempPath, "error", err)
	}
	if encodeErr != nil {
		removeIfPresent(stagingPath)
		return catalog.Effect{}, encodeErr
	}
	notify.Notify(ctx, "Processing complete.")

	effect, err := p.catalog.Publish(reservation, stagingPath)
	if err != nil {
		removeIfPresent(stagingPath)
		return catalog.Effect{}, err
	}
	published = true

	notify.Notify(ctx, fmt.Sprintf("Effect %q is ready.", effect.Name))
	return effect, nil
}

// acquire streams the source into a uniquely named temp file. On any
// failure the partial file is removed before returning.
func (p *Pipeline) acquire(ctx context.Context, source Source) (string, error) {
	body, err := source.Open(ctx)
	if err != nil {
		return "", err
	}
	defer body.Close()

	tempPath := filepath.Join(p.tempDir, "upload-"+uuid.NewString()+filepath.Ext(source.Filename()))
	file, err := os.Create(tempPath)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := io.Copy(file, body); err != nil {
		file.Close()
		removeIfPresent(tempPath)
		return "", &DownloadError{Source: source.Filename(), Err: err}
	}
	if err := file.Close(); err != nil {
		removeIfPresent(tempPath)
		return "", fmt.Errorf("failed to finalize temp file: %w", err)
	}
	return tempPath, nil
}

func removeIfPresent(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to remove file", "path", path, "error", err)
	}
}
