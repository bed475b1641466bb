// Package batch assembles job outcomes into the final result.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/paragraph-tools/multigrm/internal/model"
)

// Summary counts the outcomes of a run.
type Summary struct {
	Total   int
	Failed  int
	Elapsed time.Duration
}

// Result is the ordered collection of records, index aligned with the
// input events.
type Result struct {
	Records []model.Record
	Summary Summary
}

// Aggregate converts outcomes to records without touching their content.
func Aggregate(outcomes []model.Outcome, elapsed time.Duration) Result {
	records := make([]model.Record, len(outcomes))
	failed := 0
	for i, o := range outcomes {
		records[i] = o.Result()
		if o.Failed() {
			failed++
		}
	}
	return Result{
		Records: records,
		Summary: Summary{
			Total:   len(outcomes),
			Failed:  failed,
			Elapsed: elapsed,
		},
	}
}

// Log reports the summary, at warn level if any job failed.
func (s Summary) Log(ctx context.Context, logger *slog.Logger) {
	level := slog.LevelInfo
	if s.Failed > 0 {
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, "genotyping finished",
		slog.Int("total", s.Total),
		slog.Int("failed", s.Failed),
		slog.String("elapsed", s.Elapsed.String()),
	)
}

// Encode writes records as gzipped JSON. Object keys are sorted and
// indented by four spaces.
func Encode(w io.Writer, records []model.Record) error {
	if records == nil {
		records = []model.Record{}
	}
	zw := gzip.NewWriter(w)
	enc := json.NewEncoder(zw)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		_ = zw.Close()
		return fmt.Errorf("encoding result: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("compressing result: %w", err)
	}
	return nil
}

// Decode reads what Encode wrote.
func Decode(r io.Reader) ([]model.Record, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("decompressing result: %w", err)
	}
	defer func() {
		_ = zr.Close()
	}()
	var records []model.Record
	if err := model.DecodeJSON(zr, &records); err != nil {
		return nil, fmt.Errorf("decoding result: %w", err)
	}
	return records, nil
}
