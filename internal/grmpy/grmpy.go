// Package grmpy runs the external genotyper for a single job.
//
// The payload is written as JSON to the job input file, the genotyper is
// executed with an argument list (never through a shell) and its output
// file is parsed back. Everything the process prints is reported to the
// run logger at warn level.
package grmpy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/paragraph-tools/multigrm/internal/log"
	"github.com/paragraph-tools/multigrm/internal/model"
	"github.com/paragraph-tools/multigrm/internal/scratch"
)

// InvocationError describes a failed genotyper call.
type InvocationError struct {
	Op       string
	ExitCode int
	Err      error
}

func (e *InvocationError) Error() string {
	if e.ExitCode > 0 {
		return fmt.Sprintf("%s: exit code %d: %v", e.Op, e.ExitCode, e.Err)
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// Invoker calls the genotyper configured in RunConfig.
type Invoker struct {
	rc *model.RunConfig
}

func New(rc *model.RunConfig) Invoker {
	return Invoker{rc: rc}
}

// Args builds the argument list of a genotyper call for the given files.
func Args(rc *model.RunConfig, set scratch.Set) []string {
	args := []string{
		"-r", rc.Reference,
		"-m", rc.Manifest,
		"-g", set.Input,
		"-o", set.Output,
	}
	if rc.UseEM {
		args = append(args, "--useEM")
	}
	if rc.GenotypingParameters != "" {
		args = append(args, "-G", rc.GenotypingParameters)
	}
	return append(args, "--log-file", set.Log)
}

func (i Invoker) Command(set scratch.Set) Command {
	return Command{
		Path:    i.rc.Grmpy,
		Args:    Args(i.rc, set),
		Timeout: i.rc.JobTimeout,
	}
}

// Invoke serializes the payload, runs the genotyper and parses its output.
func (i Invoker) Invoke(ctx context.Context, payload model.Payload, set scratch.Set) (model.Record, error) {
	if err := writeJSON(set.Input, payload.Data); err != nil {
		return nil, &InvocationError{Op: "writing input", Err: err}
	}

	res := Run(ctx, i.Command(set))
	log.Lines(ctx, i.rc.Logger, slog.LevelWarn, "grmpy", res.Output.String())
	if res.Err != nil {
		return nil, &InvocationError{Op: "running " + res.Path, ExitCode: res.ExitCode(), Err: res.Err}
	}
	i.rc.Logger.DebugContext(ctx, "grmpy finished", "elapsed", res.Stopped.Sub(res.Started).String())

	record, err := readRecord(set.Output)
	if err != nil {
		return nil, &InvocationError{Op: "reading output", Err: err}
	}
	return record, nil
}

func writeJSON(path string, data any) error {
	b, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

func readRecord(path string) (model.Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, model.ErrEmptyOutput
	}
	var record model.Record
	if err := model.DecodeJSON(bytes.NewReader(b), &record); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if record == nil {
		return nil, fmt.Errorf("parsing %s: %w", path, errors.New("output is not a JSON object"))
	}
	return record, nil
}
