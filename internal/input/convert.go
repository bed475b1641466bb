package input

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/paragraph-tools/multigrm/internal/grmpy"
	"github.com/paragraph-tools/multigrm/internal/log"
	"github.com/paragraph-tools/multigrm/internal/model"
)

// ConvertedName is the file the VCF conversion writes into the output
// directory.
const ConvertedName = "variants.json.gz"

// ExecConverter runs the vcf2paragraph program.
type ExecConverter struct {
	Path      string
	Reference string
	Options   model.VCF
	Logger    *slog.Logger
}

func NewExecConverter(reference string, opts model.VCF, logger *slog.Logger) ExecConverter {
	return ExecConverter{
		Path:      opts.Converter,
		Reference: reference,
		Options:   opts,
		Logger:    logger,
	}
}

func (c ExecConverter) Args(vcfPath, outPath string) []string {
	args := []string{
		vcfPath,
		outPath,
		"-r", c.Reference,
		"--read-length", strconv.Itoa(c.Options.ReadLength),
		"--max-ref-node-length", strconv.Itoa(c.Options.MaxRefNodeLength),
		"--graph-type", c.Options.GraphType,
		"--vcf-split", c.Options.SplitType,
	}
	if c.Options.RetrieveReferenceSequence {
		args = append(args, "--retrieve-reference-sequence")
	}
	return args
}

func (c ExecConverter) Convert(ctx context.Context, vcfPath string, outDir string) (string, error) {
	out := filepath.Join(outDir, ConvertedName)
	res := grmpy.Run(ctx, grmpy.Command{
		Path: c.Path,
		Args: c.Args(vcfPath, out),
	})
	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	level := slog.LevelInfo
	if res.Err != nil {
		level = slog.LevelError
	}
	log.Lines(ctx, logger, level, "vcf2paragraph", res.Output.String())
	if res.Err != nil {
		return "", fmt.Errorf("running %s: %w", c.Path, res.Err)
	}
	return out, nil
}
