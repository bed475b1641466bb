package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/paragraph-tools/multigrm/internal/log"
	"github.com/paragraph-tools/multigrm/internal/model"
	"github.com/paragraph-tools/multigrm/internal/service"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const defaultLogfile = "GraphTyping.log"

var (
	configPath string // actual config file used (if loaded)
	config     = model.DefaultConfig()

	logger    *slog.Logger
	logCloser io.Closer = nopCloser{}

	flagConfigFilePath string // value of --config flag
)

func main() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagConfigFilePath, "config", "", "Config file to load, overridden by "+envConfig)

	flags.StringVarP(&config.Input, "input", "i", config.Input, "Input file of variants. Must be either JSON or VCF.")
	flags.StringVarP(&config.Manifest, "manifest", "m", config.Manifest, "Manifest of samples with path and bam stats.")
	flags.StringVarP(&config.Output, "output", "o", config.Output, "Output directory.")
	flags.StringVarP(&config.Reference, "reference-sequence", "r", config.Reference, "Reference genome fasta file.")
	flags.IntVarP(&config.Threads, "event-threads", "t", config.Threads, "Number of events to process in parallel, 0 means all CPUs.")
	flags.BoolVar(&config.KeepScratch, "keep-scratch", config.KeepScratch, "Do not delete temp files.")
	flags.StringVar(&config.ScratchDir, "scratch-dir", config.ScratchDir, "Directory for temp files.")
	flags.StringVar(&config.Grmpy, "grmpy", config.Grmpy, "Path to the grmpy executable.")
	flags.StringVar(&config.Logfile, "logfile", config.Logfile, "Write logging information into file, default is "+defaultLogfile+" in the output directory, - means stderr.")
	flags.BoolVar(&config.Verbose, "verbose", config.Verbose, "Raise logging level from warning to info.")
	flags.BoolVar(&config.Quiet, "quiet", config.Quiet, "Set logging level to output errors only.")
	flags.StringVarP(&config.GenotypingParameters, "genotyping-parameters", "G", config.GenotypingParameters, "JSON string or JSON file name with genotyping model parameters.")
	flags.BoolVar(&config.UseEM, "useEM", config.UseEM, "Use EM instead of grid search for genotyping.")
	flags.DurationVar(&config.JobTimeout, "job-timeout", config.JobTimeout, "Kill grmpy running longer than this, 0 means no limit.")
	flags.BoolVar(&config.Stdout, "stdout", config.Stdout, "Write the gzipped result to stdout as well.")
	flags.StringVar(&config.MetricsFile, "metrics-file", config.MetricsFile, "Store job metrics in prometheus text format.")

	flags.StringVar(&config.VCF.Converter, "vcf2paragraph", config.VCF.Converter, "Path to the vcf to graph converter.")
	flags.StringVar(&config.VCF.SplitType, "vcf-split", config.VCF.SplitType, "Mode for splitting the input VCF: lines, full or by_id.")
	flags.IntVarP(&config.VCF.ReadLength, "read-length", "p", config.VCF.ReadLength, "Read length, used to merge close variants.")
	flags.IntVarP(&config.VCF.MaxRefNodeLength, "max-ref-node-length", "l", config.VCF.MaxRefNodeLength, "Maximum length of reference nodes before they get padded and truncated.")
	flags.BoolVar(&config.VCF.RetrieveReferenceSequence, "retrieve-reference-sequence", config.VCF.RetrieveReferenceSequence, "Retrieve reference sequence for REF nodes.")
	flags.StringVar(&config.VCF.GraphType, "graph-type", config.VCF.GraphType, "Type of complex graph to generate: alleles or haplotypes.")

	// never print messages
	rootCmd.SilenceErrors = true

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(versionCmd)

	err := rootCmd.Execute()
	if cerr := logCloser.Close(); cerr != nil {
		slog.Error("closing logfile failed", "error", cerr)
	}
	if err != nil {
		slog.Error("multigrm failed", "error", err)
		os.Exit(1)
	}
}

const envConfig = "MULTIGRM_CONFIG"

var rootCmd = &cobra.Command{
	Use:          "multigrm",
	Short:        "Genotype a batch of variants or graphs with grmpy in parallel",
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:               "run",
	Short:             "run genotypes all input events and stores the result into the output directory",
	PersistentPreRunE: initMultigrm,
	RunE:              doRun,
}

var checkCmd = &cobra.Command{
	Use:               "check",
	Short:             "check validates the configuration, manifest and input without running grmpy",
	PersistentPreRunE: initMultigrm,
	RunE:              doCheck,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "version provide version of a multigrm",
	Run: func(cmd *cobra.Command, args []string) {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			fmt.Println("multigrm: version info not available")
			return
		}

		fmt.Printf("multigrm: %s\n", info.Main.Version)
		fmt.Printf("go:       %s\n", info.GoVersion)
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				fmt.Printf("commit:   %s\n", s.Value)
			case "vcs.time":
				fmt.Printf("date:     %s\n", s.Value)
			case "vcs.modified":
				fmt.Printf("dirty:    %s\n", s.Value)
			}
		}
		fmt.Println()
	},
}

func doRun(cmd *cobra.Command, args []string) error {
	ctx := log.ContextAttrs(cmd.Context(), slog.Group("multigrm",
		slog.String("cmd", "run"),
		slog.Int("pid", os.Getpid()),
	))

	svc, err := service.New(config, logger)
	if err != nil {
		return err
	}
	result, err := svc.Run(ctx)
	if err != nil {
		return err
	}
	if result.Summary.Failed > 0 {
		fmt.Fprintf(os.Stderr, "multigrm: %d of %d events failed, see %s\n", result.Summary.Failed, result.Summary.Total, logDestination(config.Logfile))
	}
	return nil
}

func doCheck(cmd *cobra.Command, args []string) error {
	ctx := log.ContextAttrs(cmd.Context(), slog.Group("multigrm",
		slog.String("cmd", "check"),
		slog.Int("pid", os.Getpid()),
	))

	svc, err := service.New(config, logger)
	if err != nil {
		return err
	}
	events, err := svc.Check(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("ok: %d events, %d threads\n", len(events), svc.RunConfig().Threads)
	return nil
}

// initMultigrm loads the config file, applies the flags on top of it and
// opens the log.
func initMultigrm(cmd *cobra.Command, _ []string) error {
	if env, ok := os.LookupEnv(envConfig); ok {
		configPath = env
	} else if flagConfigFilePath != "" {
		configPath = flagConfigFilePath
	}

	if configPath != "" {
		f, err := os.Open(configPath)
		if err != nil {
			return fmt.Errorf("opening config file: %w", err)
		}
		defer func() {
			_ = f.Close()
		}()
		loaded, err := model.LoadConfig(f)
		if err != nil {
			return fmt.Errorf("parsing config %s: %w", configPath, err)
		}

		// flags have a precedence over config file
		changed := make(map[*pflag.Flag]string)
		cmd.Flags().Visit(func(f *pflag.Flag) {
			if f.Name != "config" {
				changed[f] = f.Value.String()
			}
		})
		config = loaded
		var errs []error
		for f, value := range changed {
			if err := f.Value.Set(value); err != nil {
				errs = append(errs, fmt.Errorf("--%s: %w", f.Name, err))
			}
		}
		if err := errors.Join(errs...); err != nil {
			return err
		}
	}

	if config.Logfile == "" && config.Output != "" {
		config.Logfile = filepath.Join(config.Output, defaultLogfile)
	}
	var err error
	logger, logCloser, err = log.Open(config.Logfile, config.Level())
	if err != nil {
		return fmt.Errorf("opening logfile: %w", err)
	}

	logger.Info("multigrm started", "configPath", configPath, "input", config.Input, "output", config.Output)
	return nil
}

// logDestination names where log.Open sends the records of path.
func logDestination(path string) string {
	if path == "" || path == "-" {
		return "stderr"
	}
	return path
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
