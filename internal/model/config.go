package model

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	GraphTypeAlleles    = "alleles"
	GraphTypeHaplotypes = "haplotypes"

	SplitLines = "lines"
	SplitFull  = "full"
	SplitByID  = "by_id"
)

// Config is the user facing configuration, loaded from a yaml file and
// overridden by command line flags.
type Config struct {
	Input                string        `yaml:"input"`
	Output               string        `yaml:"output"`
	Manifest             string        `yaml:"manifest"`
	Reference            string        `yaml:"reference"`
	Grmpy                string        `yaml:"grmpy"`
	Threads              int           `yaml:"threads"` // 0 => runtime.NumCPU()
	ScratchDir           string        `yaml:"scratch_dir,omitempty"`
	KeepScratch          bool          `yaml:"keep_scratch"`
	UseEM                bool          `yaml:"use_em"`
	GenotypingParameters string        `yaml:"genotyping_parameters,omitempty"`
	JobTimeout           time.Duration `yaml:"job_timeout,omitempty"` // 0 => no deadline
	Logfile              string        `yaml:"logfile,omitempty"`     // "-" => stderr
	Verbose              bool          `yaml:"verbose"`
	Quiet                bool          `yaml:"quiet"`
	Stdout               bool          `yaml:"stdout"` // write the result to stdout too
	MetricsFile          string        `yaml:"metrics_file,omitempty"`
	VCF                  VCF           `yaml:"vcf"`
	Upload               *Upload       `yaml:"upload,omitempty"`
}

// VCF holds settings of the vcf to graph conversion.
type VCF struct {
	Converter                 string `yaml:"converter"` // vcf2paragraph executable
	ReadLength                int    `yaml:"read_length"`
	MaxRefNodeLength          int    `yaml:"max_ref_node_length"`
	GraphType                 string `yaml:"graph_type"`
	SplitType                 string `yaml:"split_type"`
	RetrieveReferenceSequence bool   `yaml:"retrieve_reference_sequence"`
}

// Upload configures publication of the result to remote storage.
type Upload struct {
	S3 *S3 `yaml:"s3,omitempty"`
}

// S3 is an S3 compatible bucket.
type S3 struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region,omitempty"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix,omitempty"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
}

func DefaultConfig() Config {
	return Config{
		Grmpy: "grmpy",
		VCF: VCF{
			Converter:        "vcf2paragraph.py",
			ReadLength:       150,
			MaxRefNodeLength: 1000,
			GraphType:        GraphTypeAlleles,
			SplitType:        SplitLines,
		},
	}
}

// LoadConfig decodes yaml from r on top of DefaultConfig. Unknown keys are
// rejected. It does not call Validate, as flags are applied later.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// Validate checks that all values needed for a run are present and sane.
func (c Config) Validate() error {
	var errs []error
	required := []struct{ name, value string }{
		{"input", c.Input},
		{"output", c.Output},
		{"manifest", c.Manifest},
		{"reference", c.Reference},
		{"grmpy", c.Grmpy},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Errorf("%s: missing value", r.name))
		}
	}
	if c.Threads < 0 {
		errs = append(errs, fmt.Errorf("threads: must be >= 1, got %d", c.Threads))
	}
	if c.JobTimeout < 0 {
		errs = append(errs, fmt.Errorf("job_timeout: negative value %s", c.JobTimeout))
	}
	if c.Verbose && c.Quiet {
		errs = append(errs, errors.New("verbose and quiet are mutually exclusive"))
	}
	if c.UseEM && c.GenotypingParameters != "" {
		errs = append(errs, errors.New("use_em and genotyping_parameters are mutually exclusive"))
	}
	if !slices.Contains([]string{GraphTypeAlleles, GraphTypeHaplotypes}, c.VCF.GraphType) {
		errs = append(errs, fmt.Errorf("vcf.graph_type: unknown value %q", c.VCF.GraphType))
	}
	if !slices.Contains([]string{SplitLines, SplitFull, SplitByID}, c.VCF.SplitType) {
		errs = append(errs, fmt.Errorf("vcf.split_type: unknown value %q", c.VCF.SplitType))
	}
	if c.Upload != nil && c.Upload.S3 != nil {
		if err := c.Upload.S3.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("upload.s3: %w", err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

func (s S3) Validate() error {
	switch {
	case s.Endpoint == "":
		return errors.New("endpoint is required")
	case s.Bucket == "":
		return errors.New("bucket is required")
	case s.AccessKey == "" || s.SecretKey == "":
		return errors.New("access_key and secret_key are required")
	}
	return nil
}

// Level maps verbose and quiet flags to a log level. The default is warn.
func (c Config) Level() slog.Level {
	switch {
	case c.Verbose:
		return slog.LevelInfo
	case c.Quiet:
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// RunConfig is the read only configuration shared by all jobs of a run.
type RunConfig struct {
	ID                   string
	Grmpy                string
	Reference            string
	Manifest             string
	ScratchDir           string
	KeepScratch          bool
	UseEM                bool
	GenotypingParameters string
	JobTimeout           time.Duration
	Threads              int
	Logger               *slog.Logger
}

// RunConfig returns the immutable run configuration. Zero threads means
// all available CPUs.
func (c Config) RunConfig(id string, logger *slog.Logger) *RunConfig {
	threads := c.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RunConfig{
		ID:                   id,
		Grmpy:                c.Grmpy,
		Reference:            c.Reference,
		Manifest:             c.Manifest,
		ScratchDir:           c.ScratchDir,
		KeepScratch:          c.KeepScratch,
		UseEM:                c.UseEM,
		GenotypingParameters: c.GenotypingParameters,
		JobTimeout:           c.JobTimeout,
		Threads:              threads,
		Logger:               logger,
	}
}
