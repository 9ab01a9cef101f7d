// Package images implements the `images` task kind: PNG and JPEG files are
// re-encoded into the destination and any other file is copied. The smaller
// of the original and the re-encoded bytes is always kept.
package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/RoJaebl/portfolio/internal/config"
	"github.com/RoJaebl/portfolio/internal/ctxlog"
	"github.com/RoJaebl/portfolio/internal/fsutil"
	"github.com/RoJaebl/portfolio/internal/registry"
	"github.com/RoJaebl/portfolio/internal/task"
	"golang.org/x/sync/errgroup"
)

// DefaultQuality is the JPEG quality used when none is configured.
const DefaultQuality = 80

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the 'arguments' HCL block.
type Input struct {
	Src     []string `hcl:"src"`
	Dest    string   `hcl:"dest"`
	Quality *int     `hcl:"quality,optional"`
	// Workers bounds how many files are encoded at once.
	Workers *int `hcl:"workers,optional"`
}

// Optimize re-encodes data according to ext. It returns data unchanged for
// formats it does not handle or when re-encoding does not make it smaller.
func Optimize(data []byte, ext string, quality int) ([]byte, error) {
	var buf bytes.Buffer
	switch strings.ToLower(ext) {
	case ".png":
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding png: %w", err)
		}
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, err
		}
	case ".jpg", ".jpeg":
		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding jpeg: %w", err)
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, err
		}
	default:
		return data, nil
	}
	if buf.Len() >= len(data) {
		return data, nil
	}
	return buf.Bytes(), nil
}

// OnRunImages optimizes every file matched by input.Src that changed after
// since or has no output yet.
func OnRunImages(ctx context.Context, input *Input, since time.Time) error {
	logger := ctxlog.FromContext(ctx)

	matches, err := fsutil.Glob(input.Src)
	if err != nil {
		return err
	}
	matches = fsutil.Stale(matches, since, func(m fsutil.Match) string {
		return fsutil.Target(input.Dest, m)
	})

	quality := DefaultQuality
	if input.Quality != nil {
		quality = *input.Quality
	}
	workers := runtime.NumCPU()
	if input.Workers != nil && *input.Workers > 0 {
		workers = *input.Workers
	}

	var before, after atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, m := range matches {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(m.Path)
			if err != nil {
				return err
			}
			out, err := Optimize(data, filepath.Ext(m.Path), quality)
			if err != nil {
				return fmt.Errorf("%s: %w", m.Path, err)
			}
			before.Add(int64(len(data)))
			after.Add(int64(len(out)))
			return fsutil.WriteFile(fsutil.Target(input.Dest, m), out)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("🖼️ Optimized images", "files", len(matches), "saved_bytes", before.Load()-after.Load())
	return nil
}

func build(_ context.Context, _ *registry.Deps, _ *config.Task, in any) (task.Action, error) {
	input := in.(*Input)
	if input.Dest == "" {
		return nil, errors.New("dest must not be empty")
	}
	if q := input.Quality; q != nil && (*q < 1 || *q > 100) {
		return nil, fmt.Errorf("quality must be between 1 and 100, got %d", *q)
	}
	return func(ctx context.Context, rc task.RunContext) error {
		return OnRunImages(ctx, input, rc.Since)
	}, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind("images", &registry.RegisteredKind{
		NewInput: func() any { return new(Input) },
		Build:    build,
	})
}
