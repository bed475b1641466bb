// Package scratch manages the temporary files exchanged with the genotyper.
package scratch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"regexp"
)

const (
	logSuffix    = ".output.log"
	outputSuffix = ".grmpy.json"
)

// Set is the group of files owned by a single job.
type Set struct {
	Input  string // serialized job payload
	Log    string // genotyper diagnostic log
	Output string // genotyper result
}

func (s Set) Paths() []string {
	return []string{s.Input, s.Log, s.Output}
}

// Manager allocates and releases Sets inside a scratch directory.
// It holds no mutable state and is safe for concurrent use.
type Manager struct {
	dir    string
	keep   bool
	logger *slog.Logger
}

// NewManager returns a Manager creating files in dir, or in os.TempDir
// if dir is empty. With keep set, Release leaves the files in place.
func NewManager(dir string, keep bool, logger *slog.Logger) Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return Manager{dir: dir, keep: keep, logger: logger}
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// Acquire creates a uniquely named input file. The log and output names
// are derived from it, so they are unique as well. Only the input file
// exists on return.
func (m Manager) Acquire(jobID string) (Set, error) {
	pattern := "multigrm-" + unsafeChars.ReplaceAllString(jobID, "_") + "-*.json"
	f, err := os.CreateTemp(m.dir, pattern)
	if err != nil {
		return Set{}, fmt.Errorf("creating scratch file: %w", err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return Set{}, fmt.Errorf("closing scratch file: %w", err)
	}
	return Set{
		Input:  name,
		Log:    name + logSuffix,
		Output: name + outputSuffix,
	}, nil
}

// Release deletes all files of a set. Failures are logged and dropped.
// It does nothing if the Manager keeps scratch files.
func (m Manager) Release(ctx context.Context, s Set) {
	if m.keep {
		m.logger.DebugContext(ctx, "keeping scratch files", "files", s.Paths())
		return
	}
	for _, path := range s.Paths() {
		if path == "" {
			continue
		}
		err := os.Remove(path)
		switch {
		case err == nil:
		case errors.Is(err, fs.ErrNotExist):
			// the genotyper did not get that far
		default:
			m.logger.WarnContext(ctx, "removing scratch file", "path", path, "error", err)
		}
	}
}

// Keep reports whether scratch files survive Release.
func (m Manager) Keep() bool {
	return m.keep
}
