package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/glitchedstore/farmpanel/internal/domain"
)

// ScanArchiver implements domain.ScanArchiver by serializing completed
// scan snapshots to JSONL and uploading them to S3. Archived snapshots
// let a disputed price be replayed against the exact offers that
// produced it.
type ScanArchiver struct {
	writer domain.BlobWriter
	logger *slog.Logger
}

// NewScanArchiver creates a ScanArchiver over the given blob writer.
func NewScanArchiver(writer domain.BlobWriter, logger *slog.Logger) *ScanArchiver {
	return &ScanArchiver{
		writer: writer,
		logger: logger.With(slog.String("component", "scan_archiver")),
	}
}

// multipartThreshold is the serialized size above which a snapshot is
// uploaded via the multipart manager instead of a single PutObject.
const multipartThreshold = 8 * 1024 * 1024

// ArchiveScan uploads the snapshot as scans/YYYY-MM-DD/{cycleID}.jsonl:
// a header line with the scan metadata followed by one line per offer.
// Returns the object path.
func (a *ScanArchiver) ArchiveScan(ctx context.Context, snap domain.ScanSnapshot) (string, error) {
	path := fmt.Sprintf("scans/%s/%s.jsonl",
		snap.StartedAt.UTC().Format("2006-01-02"), snap.CycleID)

	buf, err := marshalSnapshot(snap)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive scan %s: %w", snap.CycleID, err)
	}

	if int64(buf.Len()) > multipartThreshold {
		err = a.writer.PutMultipart(ctx, path, buf, 0)
	} else {
		err = a.writer.Put(ctx, path, buf, "application/x-ndjson")
	}
	if err != nil {
		return "", fmt.Errorf("s3blob: archive scan %s: %w", snap.CycleID, err)
	}

	a.logger.Info("scan archived",
		slog.String("path", path),
		slog.String("query", snap.Query),
		slog.Int("offers", len(snap.Offers)))
	return path, nil
}

// marshalSnapshot writes the metadata header line, then one offer per
// line. The header omits the offer array so it stays a single short line.
func marshalSnapshot(snap domain.ScanSnapshot) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)

	header := snap
	header.Offers = nil
	if err := enc.Encode(header); err != nil {
		return nil, fmt.Errorf("encode header: %w", err)
	}
	for i, o := range snap.Offers {
		if err := enc.Encode(o); err != nil {
			return nil, fmt.Errorf("encode offer %d: %w", i, err)
		}
	}
	return &buf, nil
}

// Compile-time interface check.
var _ domain.ScanArchiver = (*ScanArchiver)(nil)
