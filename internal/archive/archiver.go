// Package archive exports the execution audit trail to object storage as
// newline-delimited JSON, partitioned by day. Exports take a distributed
// lock first so that overlapping worker instances do not upload the same
// window twice.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/apexfx/brokerd/internal/domain"
)

// batchSize is how many audit entries are fetched per page.
const batchSize = 1000

// lockTTL bounds how long a crashed exporter can hold the archive lock.
const lockTTL = 5 * time.Minute

// multipartThreshold is the payload size above which exports switch to a
// multipart upload. Backfills over a long gap can exceed a single request.
const multipartThreshold = 8 * 1024 * 1024

// blobPutter uploads a single object. Satisfied by s3blob.Writer.
type blobPutter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// Archiver periodically exports audit entries written since the previous
// export. Deletion of exported rows from the primary store is intentionally
// not performed here; that is a separate, explicit step once the archive has
// been verified.
type Archiver struct {
	writer blobPutter
	audit  domain.AuditStore
	locks  domain.LockManager
	logger *slog.Logger

	lastExport time.Time
}

// NewArchiver creates an audit archiver. The first export covers entries
// from the last fullDay boundary.
func NewArchiver(writer blobPutter, audit domain.AuditStore, locks domain.LockManager, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer:     writer,
		audit:      audit,
		locks:      locks,
		logger:     logger.With(slog.String("component", "audit_archiver")),
		lastExport: time.Now().UTC().Truncate(24 * time.Hour),
	}
}

// Run exports on the given interval until ctx is cancelled.
func (a *Archiver) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			count, err := a.Export(ctx)
			if err != nil {
				a.logger.Error("audit export failed", slog.String("error", err.Error()))
				continue
			}
			if count > 0 {
				a.logger.Info("audit export complete", slog.Int64("entries", count))
			}
		}
	}
}

// Export uploads all audit entries written since the previous export. It
// returns the number of entries archived; zero with a nil error means either
// nothing new to export or another instance holds the archive lock.
func (a *Archiver) Export(ctx context.Context) (int64, error) {
	release, err := a.locks.Acquire(ctx, "audit_archive", lockTTL)
	if err != nil {
		a.logger.Debug("archive lock held elsewhere, skipping export")
		return 0, nil
	}
	defer release()

	entries, err := a.collectSince(ctx, a.lastExport)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(entries)
	if err != nil {
		return 0, fmt.Errorf("archive: marshal audit entries: %w", err)
	}

	now := time.Now().UTC()
	path := archivePath(now)
	if len(buf) >= multipartThreshold {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), multipartThreshold)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
	}
	if err != nil {
		return 0, fmt.Errorf("archive: upload %s: %w", path, err)
	}

	a.lastExport = entries[len(entries)-1].CreatedAt
	return int64(len(entries)), nil
}

// collectSince pages through the audit store, advancing the cursor past the
// last entry of each batch until a short page signals the end.
func (a *Archiver) collectSince(ctx context.Context, since time.Time) ([]domain.AuditEntry, error) {
	var all []domain.AuditEntry
	cursor := since
	for {
		batch, err := a.audit.ListSince(ctx, cursor, batchSize)
		if err != nil {
			return nil, fmt.Errorf("archive: list audit entries: %w", err)
		}
		all = append(all, batch...)
		if len(batch) < batchSize {
			return all, nil
		}
		cursor = batch[len(batch)-1].CreatedAt
	}
}

// archivePath builds the object key for an export, partitioned by day:
//
//	archive/audit/2026-08-26/150405.jsonl
func archivePath(at time.Time) string {
	return fmt.Sprintf("archive/audit/%s/%s.jsonl", at.Format("2006-01-02"), at.Format("150405"))
}

// marshalJSONL serialises entries as newline-delimited JSON, one compact
// line per entry.
func marshalJSONL(entries []domain.AuditEntry) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, e := range entries {
		if err := enc.Encode(e); err != nil {
			return nil, fmt.Errorf("jsonl encode entry %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
