package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"procpipe/internal/config"
	"procpipe/internal/process"
	"procpipe/internal/report"
	"procpipe/internal/runlog"
	"procpipe/internal/workspace"

	"github.com/spf13/cobra"
)

var (
	cfg *config.Config

	debug        bool
	pipelineFile string
	verbose      bool
	maxArgs      int
	runsDir      string

	format     string
	record     bool
	useTTY     bool
	trace      bool
	force      bool
	streamName string
)

// exitCodeError carries the exit code of the last stage out of a command.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

var rootCmd = &cobra.Command{
	Use:   "procpipe",
	Short: "procpipe - run and describe process pipelines",
	Long: `procpipe connects programs the way a shell pipe does, without a shell.

Stages are separated by a quoted "|" argument:

  procpipe run -- echo -e 'a\nb\nc' '|' grep b`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		level := slog.LevelInfo
		if debug || cfg.Debug {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return nil
	},
}

// displayVerbosity combines the configuration with the flags that were set.
func displayVerbosity(cmd *cobra.Command) process.Verbosity {
	v, n := cfg.Verbose, cfg.MaxArgs
	if cmd.Flags().Changed("verbose") {
		v = verbose
	}
	if cmd.Flags().Changed("max-args") {
		n = maxArgs
	}
	return process.VerboseIf(v, n)
}

func resolveRunsDir(cmd *cobra.Command) string {
	if cmd.Flags().Changed("runs-dir") {
		return runsDir
	}
	return cfg.RunsDir
}

var runCmd = &cobra.Command{
	Use:   "run [flags] -- program [args...] ['|' program [args...]]...",
	Short: "Run a pipeline",
	Long: `Run a pipeline and exit with the exit code of its last stage.

The first stage reads the standard input of procpipe. Only the last stage's
exit status is checked. A single stage is executed directly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadPipeline(pipelineFile, args)
		if err != nil {
			return err
		}
		slog.Debug("Running pipeline", "pipeline", p.Display(displayVerbosity(cmd)))

		status, err := runPipeline(p, runOptions{
			record:  record,
			runsDir: resolveRunsDir(cmd),
			tty:     useTTY,
			trace:   trace,
		})
		if err != nil {
			return err
		}
		if !status.Success() {
			code := status.Code
			if code <= 0 {
				code = 1
			}
			return &exitCodeError{code: code}
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show [flags] -- program [args...] ['|' program [args...]]...",
	Short: "Print a pipeline without running it",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadPipeline(pipelineFile, args)
		if err != nil {
			return err
		}
		v := displayVerbosity(cmd)

		switch format {
		case "text":
			fmt.Println(p.Display(v))
		case "markdown":
			fmt.Print(report.Markdown(p, v))
		case "html":
			fmt.Print(report.HTML(p, v))
		default:
			return fmt.Errorf("unknown format %q (use text, markdown or html)", format)
		}
		return nil
	},
}

var mkdirCmd = &cobra.Command{
	Use:   "mkdir PATH",
	Short: "Create a directory, failing if it exists unless --force is given",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		policy := workspace.Fail
		if force {
			policy = workspace.Force
		}
		return workspace.EnsureDirectory(args[0], policy)
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runs, err := workspace.ListRuns(resolveRunsDir(cmd))
		if err != nil {
			return err
		}
		for _, run := range runs {
			state := "running"
			if run.Completed {
				state = process.ExitStatus{Code: run.ExitCode, Signal: run.Signal}.String()
			}
			firstLine, _, _ := strings.Cut(run.Command, "\n")
			fmt.Printf("%s  %s  %-16s  %s\n", run.ID, run.StartTime.Local().Format(time.DateTime), state, firstLine)
		}
		return nil
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs RUN",
	Short: "Print the recorded output of a run",
	Long: `Print the recorded output of a run. RUN is a run ID or the path of a run
directory. Without --stream every stream is printed in the order it was written.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		if _, err := os.Stat(dir); err != nil {
			dir = filepath.Join(resolveRunsDir(cmd), args[0])
		}
		run, err := workspace.LoadRun(dir)
		if err != nil {
			return fmt.Errorf("failed to load run: %w", err)
		}

		f, err := os.Open(run.OutputFile())
		if err != nil {
			return fmt.Errorf("failed to open output.log: %w", err)
		}
		defer func() { _ = f.Close() }()

		reader := runlog.NewReader(f)
		for {
			chunk, err := reader.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to read output.log: %w", err)
			}
			if streamName == "" || chunk.Stream == streamName {
				_, _ = os.Stdout.Write(chunk.Data)
			}
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Log pipeline wiring (default: $PROCPIPE_DEBUG)")

	for _, c := range []*cobra.Command{runCmd, showCmd} {
		c.Flags().StringVarP(&pipelineFile, "file", "f", "", "Read the pipeline from a YAML file")
		c.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show all arguments (default: $PROCPIPE_VERBOSE)")
		c.Flags().IntVarP(&maxArgs, "max-args", "n", 5, "Arguments shown per stage unless verbose (default: $PROCPIPE_MAX_ARGS)")
	}
	for _, c := range []*cobra.Command{runCmd, runsCmd, logsCmd} {
		c.Flags().StringVar(&runsDir, "runs-dir", "", "Directory of recorded runs (default: $PROCPIPE_RUNS_DIR or .procpipe/runs)")
	}

	runCmd.Flags().BoolVar(&record, "record", false, "Record the output and exit status of the run")
	runCmd.Flags().BoolVarP(&useTTY, "tty", "t", false, "Run the last stage on a pseudo-terminal")
	runCmd.Flags().BoolVar(&trace, "trace", false, "Log a snapshot of the running stages")

	showCmd.Flags().StringVar(&format, "format", "text", "Output format: text, markdown or html")

	mkdirCmd.Flags().BoolVar(&force, "force", false, "Accept an existing directory")

	logsCmd.Flags().StringVar(&streamName, "stream", "", "Only print this stream (stdout or stderr)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(mkdirCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(logsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitCodeError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
