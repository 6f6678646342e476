package intake

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/amishk599/geolens/internal/model"
)

// Result describes the outcome of one ingest.
type Result struct {
	Sample    model.Sample
	Duplicate bool // image bytes were already analyzed; Sample is the earlier one
}

// Intake owns the pipeline for a single image:
// detect type -> digest -> dedup -> analyze -> save.
type Intake struct {
	analyzer SampleAnalyzer
	store    model.SampleStore
	logger   *slog.Logger
	now      func() time.Time
}

// New creates an intake wired with all its dependencies.
func New(analyzer SampleAnalyzer, store model.SampleStore, logger *slog.Logger) *Intake {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Intake{
		analyzer: analyzer,
		store:    store,
		logger:   logger,
		now:      time.Now,
	}
}

// Ingest analyzes one image and persists the result. Images whose bytes have
// been seen before are not sent to the model again.
func (in *Intake) Ingest(ctx context.Context, fileName string, data []byte, mimeType string) (Result, error) {
	if len(data) == 0 {
		return Result{}, fmt.Errorf("ingesting %s: %w: empty file", fileName, ErrUnsupportedMIME)
	}
	if len(data) > MaxImageBytes {
		return Result{}, fmt.Errorf("ingesting %s: %w: %d bytes", fileName, ErrImageTooLarge, len(data))
	}
	mt, err := DetectMIME(fileName, mimeType, data)
	if err != nil {
		return Result{}, fmt.Errorf("ingesting %s: %w", fileName, err)
	}

	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])

	existing, found, err := in.store.FindByDigest(ctx, digest)
	if err != nil {
		return Result{}, fmt.Errorf("ingesting %s: checking digest: %w", fileName, err)
	}
	if found {
		in.logger.Info("sample already analyzed", "file", fileName, "id", existing.ID)
		return Result{Sample: existing, Duplicate: true}, nil
	}

	start := in.now()
	analysis, err := in.analyzer.AnalyzeSample(ctx, base64.StdEncoding.EncodeToString(data), mt)
	if err != nil {
		return Result{}, fmt.Errorf("ingesting %s: %w", fileName, err)
	}

	sample := model.Sample{
		ID:        uuid.NewString(),
		FileName:  filepath.Base(fileName),
		MIMEType:  mt,
		Digest:    digest,
		Analysis:  analysis,
		CreatedAt: in.now().UTC(),
	}
	if err := in.store.Save(ctx, sample); err != nil {
		// A concurrent ingest of the same bytes won the insert.
		if errors.Is(err, model.ErrDuplicateDigest) {
			if existing, found, ferr := in.store.FindByDigest(ctx, digest); ferr == nil && found {
				in.logger.Info("sample saved concurrently", "file", fileName, "id", existing.ID)
				return Result{Sample: existing, Duplicate: true}, nil
			}
		}
		return Result{}, fmt.Errorf("ingesting %s: saving: %w", fileName, err)
	}

	in.logger.Info("analyzed sample",
		"file", sample.FileName,
		"id", sample.ID,
		"rock", analysis.RockName,
		"minerals", len(analysis.IdentifiedMinerals),
		"took", in.now().Sub(start).Round(time.Millisecond),
	)
	return Result{Sample: sample}, nil
}

// IngestFile reads path from disk and ingests it.
func (in *Intake) IngestFile(ctx context.Context, path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return in.Ingest(ctx, path, data, "")
}
