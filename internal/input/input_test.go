package input_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/paragraph-tools/multigrm/internal/input"
	"github.com/paragraph-tools/multigrm/internal/model"
	"github.com/stretchr/testify/require"
)

const eventsJSON = `[
  {"ID": "del1", "graph": {"nodes": [], "edges": []}},
  {"chrom": "chr1", "start": 1000, "end": 1200},
  {"ID": "raw-graph", "nodes": [], "edges": []}
]`

func writeFile(t *testing.T, path string, content string, gz bool) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, f.Close())
	}()
	if !gz {
		_, err = f.WriteString(content)
		require.NoError(t, err)
		return
	}
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
}

func TestDetectFormat(t *testing.T) {
	t.Parallel()
	var testCases = []struct {
		given string
		then  input.Format
		err   bool
	}{
		{"a.json", input.FormatJSON, false},
		{"dir.v1/a.JSON", input.FormatJSON, false},
		{"a.json.gz", input.FormatJSONGz, false},
		{"a.vcf", input.FormatVCF, false},
		{"a.vcf.gz", input.FormatVCFGz, false},
		{"a.bcf", 0, true},
		{"a.txt.gz", 0, true},
		{"a.gz", 0, true},
		{"noext", 0, true},
	}
	for _, tt := range testCases {
		t.Run(tt.given, func(t *testing.T) {
			t.Parallel()
			f, err := input.DetectFormat(tt.given)
			if tt.err {
				require.ErrorIs(t, err, model.ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.then, f)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()
	for _, gz := range []bool{false, true} {
		name := "events.json"
		if gz {
			name += ".gz"
		}
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), name)
			writeFile(t, path, eventsJSON, gz)

			events, err := input.Loader{}.Load(t.Context(), path, t.TempDir())
			require.NoError(t, err)
			require.Len(t, events, 3)
			require.Equal(t, model.PrebuiltGraph, events[0].Kind())
			require.Equal(t, model.RawVariant, events[1].Kind())
			require.Equal(t, "raw-graph", events[2].Name())
		})
	}
}

type graphMakerFunc func(context.Context, model.Event) (model.Event, error)

func (f graphMakerFunc) MakeGraph(ctx context.Context, e model.Event) (model.Event, error) {
	return f(ctx, e)
}

func TestLoad_GraphMaker(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "events.json")
	writeFile(t, path, eventsJSON, false)

	var calls int
	l := input.Loader{GraphMaker: graphMakerFunc(func(_ context.Context, e model.Event) (model.Event, error) {
		calls++
		e["type"] = "indel"
		e["graph"] = map[string]any{"nodes": []any{}}
		return e, nil
	})}
	events, err := l.Load(t.Context(), path, t.TempDir())
	require.NoError(t, err)
	// only the event without graph and without nodes/edges
	require.Equal(t, 1, calls)
	require.Equal(t, "indel", events[1]["type"])
	require.Equal(t, model.PrebuiltGraph, events[1].Kind())

	l.GraphMaker = graphMakerFunc(func(context.Context, model.Event) (model.Event, error) {
		return nil, errors.New("no reference")
	})
	_, err = l.Load(t.Context(), path, t.TempDir())
	require.ErrorContains(t, err, "making graph for event 1: no reference")
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	_, err := input.Loader{}.Load(t.Context(), filepath.Join(dir, "x.bam"), dir)
	require.ErrorIs(t, err, model.ErrUnsupportedFormat)

	_, err = input.Loader{}.Load(t.Context(), filepath.Join(dir, "x.vcf"), dir)
	require.ErrorIs(t, err, model.ErrNoConverter)

	_, err = input.Loader{}.Load(t.Context(), filepath.Join(dir, "missing.json"), dir)
	require.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.json")
	writeFile(t, bad, `{"not": "a list"}`, false)
	_, err = input.Loader{}.Load(t.Context(), bad, dir)
	require.ErrorContains(t, err, "parsing")

	trailing := filepath.Join(dir, "trailing.json")
	writeFile(t, trailing, eventsJSON+"\n[]", false)
	_, err = input.Loader{}.Load(t.Context(), trailing, dir)
	require.ErrorIs(t, err, model.ErrTrailingData)

	notGz := filepath.Join(dir, "plain.json.gz")
	writeFile(t, notGz, eventsJSON, false)
	_, err = input.Loader{}.Load(t.Context(), notGz, dir)
	require.ErrorContains(t, err, "opening gzipped input")
}

type converterFunc func(ctx context.Context, vcf, outDir string) (string, error)

func (f converterFunc) Convert(ctx context.Context, vcf, outDir string) (string, error) {
	return f(ctx, vcf, outDir)
}

func TestLoad_VCF(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	l := input.Loader{Converter: converterFunc(func(_ context.Context, vcf, outDir string) (string, error) {
		out := filepath.Join(outDir, input.ConvertedName)
		writeFile(t, out, eventsJSON, true)
		return out, nil
	})}
	events, err := l.Load(t.Context(), filepath.Join(dir, "calls.vcf.gz"), dir)
	require.NoError(t, err)
	require.Len(t, events, 3)

	l.Converter = converterFunc(func(context.Context, string, string) (string, error) {
		return filepath.Join(dir, "again.vcf"), nil
	})
	_, err = l.Load(t.Context(), filepath.Join(dir, "calls.vcf"), dir)
	require.ErrorIs(t, err, model.ErrUnsupportedFormat)
}

func TestExecConverter(t *testing.T) {
	t.Parallel()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skipf("skipped, binary sh not available: %v", err)
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "vcf2paragraph.py")
	// writes the event list to its second positional argument
	body := "#!/bin/sh\necho converting \"$1\"\nprintf '%s' '" + `[{"ID": "v1", "graph": {}}]` + "' > \"$2\"\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))

	opts := model.DefaultConfig().VCF
	opts.Converter = script
	opts.RetrieveReferenceSequence = true
	c := input.NewExecConverter("ref.fa", opts, nil)
	require.Equal(t, []string{
		"in.vcf", "out.json",
		"-r", "ref.fa",
		"--read-length", "150",
		"--max-ref-node-length", "1000",
		"--graph-type", "alleles",
		"--vcf-split", "lines",
		"--retrieve-reference-sequence",
	}, c.Args("in.vcf", "out.json"))

	out, err := c.Convert(t.Context(), "in.vcf", dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, input.ConvertedName), out)
	require.FileExists(t, out)

	c.Path = filepath.Join(dir, "missing")
	_, err = c.Convert(t.Context(), "in.vcf", dir)
	require.Error(t, err)
}
