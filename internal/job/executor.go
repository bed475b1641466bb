package job

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/paragraph-tools/multigrm/internal/grmpy"
	"github.com/paragraph-tools/multigrm/internal/log"
	"github.com/paragraph-tools/multigrm/internal/metrics"
	"github.com/paragraph-tools/multigrm/internal/model"
	"github.com/paragraph-tools/multigrm/internal/scratch"
)

// Invoker runs the external computation of one job.
type Invoker interface {
	Invoke(ctx context.Context, payload model.Payload, set scratch.Set) (model.Record, error)
}

type Executor struct {
	rc      *model.RunConfig
	scratch scratch.Manager
	invoker Invoker
	metrics *metrics.Metrics
}

// NewExecutor returns an Executor running the genotyper from rc. Metrics
// may be nil.
func NewExecutor(rc *model.RunConfig, m *metrics.Metrics) *Executor {
	if rc.Logger == nil {
		c := *rc
		c.Logger = slog.New(slog.DiscardHandler)
		rc = &c
	}
	return &Executor{
		rc:      rc,
		scratch: scratch.NewManager(rc.ScratchDir, rc.KeepScratch, rc.Logger),
		invoker: grmpy.New(rc),
		metrics: m,
	}
}

// WithInvoker replaces the genotyper call. It exists for unit testing.
func (x *Executor) WithInvoker(invoker Invoker) *Executor {
	x.invoker = invoker
	return x
}

// Execute runs one job end to end and never fails: any error or panic is
// turned into a failed Outcome. Scratch files are released on every path.
func (x *Executor) Execute(ctx context.Context, d Descriptor) (outcome model.Outcome) {
	ctx = log.ContextAttrs(ctx,
		slog.Int("job", d.Index),
		slog.String("event", d.Event.Name()),
	)
	logger := x.rc.Logger

	var (
		set      scratch.Set
		acquired bool
		record   model.Record
	)
	start := time.Now()
	x.metrics.Start()
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "job panicked", "stack", string(debug.Stack()))
			outcome = x.fail(ctx, d, record, fmt.Errorf("panic: %v", r), set)
		}
		if acquired {
			if x.scratch.Keep() {
				logger.InfoContext(ctx, "scratch files kept", "paths", set.Paths())
			}
			x.scratch.Release(ctx, set)
		}
		x.metrics.Done(outcome.Failed(), time.Since(start))
		logger.InfoContext(ctx, "job finished", "failed", outcome.Failed(), "elapsed", time.Since(start).String())
	}()

	payload, err := d.Event.Resolve()
	if err != nil {
		return x.fail(ctx, d, nil, err, set)
	}

	set, err = x.scratch.Acquire(d.ID())
	if err != nil {
		return x.fail(ctx, d, nil, err, set)
	}
	acquired = true

	record, err = x.invoker.Invoke(ctx, payload, set)
	if err != nil {
		return x.fail(ctx, d, record, err, set)
	}
	return model.Success(record)
}

// fail logs the error together with the genotyper log file, if any.
func (x *Executor) fail(ctx context.Context, d Descriptor, partial model.Record, err error, set scratch.Set) model.Outcome {
	logger := x.rc.Logger
	logger.ErrorContext(ctx, "genotyping failed", "error", err, "event_kind", d.Event.Kind().String())

	var lines []string
	if set.Log != "" {
		var rerr error
		lines, rerr = readLines(set.Log)
		if rerr != nil {
			logger.DebugContext(ctx, "can't read grmpy log", "path", set.Log, "error", rerr)
		}
		for _, line := range lines {
			logger.ErrorContext(ctx, "grmpy log", "line", line)
		}
	}
	return model.Failure(partial, err, lines)
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}
