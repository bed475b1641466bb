// Package input loads the list of events to genotype.
package input

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/paragraph-tools/multigrm/internal/model"
)

type Format int

const (
	FormatJSON Format = iota
	FormatJSONGz
	FormatVCF
	FormatVCFGz
)

// DetectFormat guesses the format from the file extension. Only json and
// vcf, optionally gzipped, are supported.
func DetectFormat(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".gz" {
		ext = strings.ToLower(filepath.Ext(strings.TrimSuffix(path, filepath.Ext(path)))) + ".gz"
	}
	switch ext {
	case ".json":
		return FormatJSON, nil
	case ".json.gz":
		return FormatJSONGz, nil
	case ".vcf":
		return FormatVCF, nil
	case ".vcf.gz":
		return FormatVCFGz, nil
	default:
		return 0, fmt.Errorf("%w: extension %q of %s, only VCF or JSON is allowed", model.ErrUnsupportedFormat, ext, path)
	}
}

// Converter turns a VCF into a JSON graph description file and returns
// its path.
type Converter interface {
	Convert(ctx context.Context, vcfPath string, outDir string) (string, error)
}

// GraphMaker derives the graph of an event which has none.
type GraphMaker interface {
	MakeGraph(ctx context.Context, event model.Event) (model.Event, error)
}

// Loader reads events, converting VCF input and constructing missing
// graphs through the configured collaborators. Both are optional.
type Loader struct {
	Converter  Converter
	GraphMaker GraphMaker
	Logger     *slog.Logger
}

// Load returns events in file order. Any error is fatal for the run.
func (l Loader) Load(ctx context.Context, path string, outDir string) ([]model.Event, error) {
	logger := l.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	if format == FormatVCF || format == FormatVCFGz {
		if l.Converter == nil {
			return nil, model.ErrNoConverter
		}
		logger.InfoContext(ctx, "input is a vcf, converting to JSON with graph description", "path", path)
		converted, err := l.Converter.Convert(ctx, path, outDir)
		if err != nil {
			return nil, fmt.Errorf("vcf to JSON conversion failed: %w", err)
		}
		logger.InfoContext(ctx, "graph JSON stored", "path", converted)
		path = converted
		format, err = DetectFormat(path)
		if err != nil {
			return nil, err
		}
		if format != FormatJSON && format != FormatJSONGz {
			return nil, fmt.Errorf("%w: converter produced %s", model.ErrUnsupportedFormat, path)
		}
	}

	events, err := readEvents(path, format == FormatJSONGz)
	if err != nil {
		return nil, err
	}

	if l.GraphMaker == nil {
		return events, nil
	}
	converted := 0
	for i, event := range events {
		if event == nil || !event.NeedsGraph() {
			continue
		}
		made, err := l.GraphMaker.MakeGraph(ctx, event)
		if err != nil {
			return nil, fmt.Errorf("making graph for event %d: %w", i, err)
		}
		events[i] = made
		converted++
	}
	if converted > 0 {
		logger.InfoContext(ctx, "constructed graphs for JSON events", "count", converted)
	}
	return events, nil
}

func readEvents(path string, gz bool) ([]model.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	var r io.Reader = f
	if gz {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("opening gzipped input: %w", err)
		}
		defer func() {
			_ = zr.Close()
		}()
		r = zr
	}

	var events []model.Event
	if err := model.DecodeJSON(r, &events); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return events, nil
}
