package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quantfold/limitbot/internal/domain"
)

// AuditArchiveStore provides the read access the archiver needs. The full
// domain.OrderAuditStore satisfies it implicitly.
type AuditArchiveStore interface {
	// ListBefore returns all audit rows submitted strictly before the cutoff.
	ListBefore(ctx context.Context, before time.Time) ([]domain.OrderAudit, error)
}

// Archiver serialises old order audit rows to JSONL and uploads them to
// object storage.
//
// Deletion of the archived rows from Postgres is intentionally NOT performed
// here; the retention sweep runs it as a separate, explicit step after the
// archive upload has succeeded.
type Archiver struct {
	writer domain.BlobWriter
	audits AuditArchiveStore
}

// NewArchiver creates an Archiver.
func NewArchiver(writer domain.BlobWriter, audits AuditArchiveStore) *Archiver {
	return &Archiver{
		writer: writer,
		audits: audits,
	}
}

// ArchiveOrderAudits queries all audit rows before the cutoff, serialises
// them to JSONL, and uploads the file at archive/order_audit/YYYY-MM.jsonl.
// It returns the number of rows archived.
func (a *Archiver) ArchiveOrderAudits(ctx context.Context, before time.Time) (int64, error) {
	audits, err := a.audits.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive order audits query: %w", err)
	}
	if len(audits) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(audits)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive order audits marshal: %w", err)
	}

	path := archivePath("order_audit", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive order audits upload: %w", err)
	}

	return int64(len(audits)), nil
}

// archivePath builds the object key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/order_audit/2026-08.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON (JSONL).
// Each element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
