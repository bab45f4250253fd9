package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"
)

// multipartThreshold is the payload size above which the archiver switches
// from a single PutObject to a multipart upload.
const multipartThreshold = 8 * 1024 * 1024

// RangeArchiver uploads the raw logs of each processed block range as a JSONL
// object, keyed by chain ID and range:
//
//	chainlogs/137/18000001-18000010.jsonl
//
// The archive is a forensic record of exactly what was fetched from the node;
// it is written after the range has been handled and is never read back by
// this service.
type RangeArchiver struct {
	writer  *Writer
	chainID int64
}

// NewRangeArchiver creates a RangeArchiver for the given chain.
func NewRangeArchiver(c *Client, chainID int64) *RangeArchiver {
	return &RangeArchiver{
		writer:  NewWriter(c),
		chainID: chainID,
	}
}

// ArchiveRange serialises the logs of one block range to JSONL and uploads
// the result. Empty ranges are skipped.
func (a *RangeArchiver) ArchiveRange(ctx context.Context, from, to uint64, logs []types.Log) error {
	if len(logs) == 0 {
		return nil
	}

	buf, err := marshalJSONL(logs)
	if err != nil {
		return fmt.Errorf("s3blob: archive range %d-%d: %w", from, to, err)
	}

	path := fmt.Sprintf("chainlogs/%d/%d-%d.jsonl", a.chainID, from, to)

	if int64(len(buf)) >= multipartThreshold {
		if err := a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize); err != nil {
			return fmt.Errorf("s3blob: archive range %d-%d: %w", from, to, err)
		}
		return nil
	}

	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return fmt.Errorf("s3blob: archive range %d-%d: %w", from, to, err)
	}
	return nil
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
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
