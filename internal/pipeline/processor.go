package pipeline

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"babylog-backend/internal/database"
	"babylog-backend/internal/imageprep"
	"babylog-backend/internal/llm"
	"babylog-backend/internal/storage"
)

// Store is the slice of the database the state machine drives.
type Store interface {
	CreateUpload(ctx context.Context, filename, storagePath string) (*database.Upload, error)
	GetUpload(ctx context.Context, uploadID int64) (*database.Upload, error)
	MarkProcessing(ctx context.Context, uploadID int64) error
	FinishUpload(ctx context.Context, uploadID int64, entries []database.NewEntry) error
	FailUpload(ctx context.Context, uploadID int64, message string) error
	ResetForReprocess(ctx context.Context, uploadID int64) error
	RecoverStuck(ctx context.Context) (int64, error)
}

// Extractor turns image bytes into validated records.
type Extractor interface {
	Parse(ctx context.Context, imageData []byte, mediaType string, year int) ([]llm.Record, error)
}

// Processor owns the upload lifecycle: pending -> processing -> done|failed,
// with terminal states reprocessable back to pending.
type Processor struct {
	store     Store
	blobs     storage.ContentStore
	extractor Extractor
	executor  Executor
	maxDim    int
	log       *zap.SugaredLogger
}

func NewProcessor(store Store, blobs storage.ContentStore, extractor Extractor, executor Executor, maxImageDimension int, log *zap.SugaredLogger) *Processor {
	return &Processor{
		store:     store,
		blobs:     blobs,
		extractor: extractor,
		executor:  executor,
		maxDim:    maxImageDimension,
		log:       log,
	}
}

// Submit persists the artifact, creates the pending upload row and
// schedules its run. It never blocks on extraction latency.
func (p *Processor) Submit(ctx context.Context, filename string, data []byte) (*database.Upload, error) {
	path := storage.GeneratePath(filename)
	if err := p.blobs.Write(ctx, path, data); err != nil {
		return nil, err
	}

	upload, err := p.store.CreateUpload(ctx, filename, path)
	if err != nil {
		return nil, err
	}

	p.scheduleRun(upload.ID)
	return upload, nil
}

// Reprocess purges the upload's entries, rewinds it to pending and
// schedules a fresh run. Uploads that are pending or still processing are
// rejected with database.ErrConflict and left untouched.
//
// The executor slot is claimed before the rewind. A run that has already
// written its terminal status can still hold the slot for a moment, and
// rewinding behind it would strand the upload in pending with no run
// scheduled.
func (p *Processor) Reprocess(ctx context.Context, uploadID int64) error {
	if !p.executor.Acquire(uploadID) {
		return fmt.Errorf("upload %d already has a run in flight: %w", uploadID, database.ErrConflict)
	}
	if err := p.store.ResetForReprocess(ctx, uploadID); err != nil {
		p.executor.Release(uploadID)
		return err
	}
	p.executor.Launch(uploadID, func() {
		p.Run(context.Background(), uploadID)
	})
	return nil
}

// RecoverStuck rewinds uploads abandoned in processing by a previous
// process to pending. Must complete before the HTTP layer accepts uploads.
func (p *Processor) RecoverStuck(ctx context.Context) error {
	recovered, err := p.store.RecoverStuck(ctx)
	if err != nil {
		return err
	}
	if recovered > 0 {
		p.log.Warnw("rewound uploads stuck in processing", "count", recovered)
	}
	return nil
}

func (p *Processor) scheduleRun(uploadID int64) {
	// Upload ids are freshly allocated here, so the slot is always free.
	if !p.executor.Acquire(uploadID) {
		p.log.Warnw("run already in flight, not scheduling", "upload_id", uploadID)
		return
	}
	p.executor.Launch(uploadID, func() {
		p.Run(context.Background(), uploadID)
	})
}

// Run advances one upload to a terminal status. Every failure past the
// processing transition is converted into a persisted failed status; none
// propagates to the scheduler.
func (p *Processor) Run(ctx context.Context, uploadID int64) {
	p.log.Infow("processing upload", "upload_id", uploadID)

	// Persisted first, independent of the outcome, so the in-flight state
	// is observable.
	if err := p.store.MarkProcessing(ctx, uploadID); err != nil {
		p.log.Errorw("failed to mark upload processing", "upload_id", uploadID, "error", err)
		return
	}

	entryCount, err := p.extractAndStore(ctx, uploadID)
	if err != nil {
		p.log.Warnw("upload processing failed", "upload_id", uploadID, "error", err)
		if failErr := p.store.FailUpload(ctx, uploadID, err.Error()); failErr != nil {
			// The failure transition itself must never be lost silently.
			p.log.Errorw("FATAL: could not persist failed status", "upload_id", uploadID, "error", failErr)
		}
		return
	}

	p.log.Infow("upload processed", "upload_id", uploadID, "entries", entryCount)
}

func (p *Processor) extractAndStore(ctx context.Context, uploadID int64) (int, error) {
	upload, err := p.store.GetUpload(ctx, uploadID)
	if err != nil {
		return 0, err
	}

	data, err := p.blobs.Read(ctx, upload.StoragePath)
	if err != nil {
		return 0, err
	}

	mediaType := inferMediaType(upload.Filename)
	data, mediaType = imageprep.Normalize(data, mediaType, p.maxDim)

	records, err := p.extractor.Parse(ctx, data, mediaType, time.Now().Year())
	if err != nil {
		return 0, err
	}

	entries := make([]database.NewEntry, 0, len(records))
	for _, r := range records {
		confidence := r.Confidence
		entries = append(entries, database.NewEntry{
			UploadID:   &upload.ID,
			EntryType:  r.EntryType,
			Subtype:    r.Subtype,
			OccurredAt: r.OccurredAt,
			Value:      r.Value,
			Notes:      r.Notes,
			Confidence: &confidence,
			RawText:    r.RawText,
		})
	}

	if err := p.store.FinishUpload(ctx, uploadID, entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// inferMediaType guesses the image type from the filename extension.
// Unrecognized extensions fall back to JPEG rather than aborting the run.
func inferMediaType(filename string) string {
	mediaType := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if mediaType == "" || !strings.HasPrefix(mediaType, "image/") {
		return "image/jpeg"
	}
	if idx := strings.IndexByte(mediaType, ';'); idx >= 0 {
		mediaType = mediaType[:idx]
	}
	return mediaType
}
