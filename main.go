// fdspp pre-processes Fire Dynamics Simulator input files.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/phobologic/fdspp/internal/config"
	"github.com/phobologic/fdspp/internal/discover"
	"github.com/phobologic/fdspp/internal/fds"
	"github.com/phobologic/fdspp/internal/logging"
	"github.com/phobologic/fdspp/internal/namelist"
	"github.com/phobologic/fdspp/internal/report"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// settings is the effective configuration after merging the config file and
// the command line.
type settings struct {
	input, output string
	inPlace       bool
	transforms    fds.Transforms
	format        report.Format
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) > 0 && args[0] == "init" {
		return runInit(args[1:], stdout, stderr)
	}

	fs := flag.NewFlagSet("fdspp", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		nMPI        int
		inPlace     bool
		asJSON      bool
		reportName  string
		countCells  bool
		configPath  string
		logLevel    string
		logFormat   string
		logFile     string
		showVersion bool
	)

	fs.IntVar(&nMPI, "n-mpi", 0, "number of MPI processes to allocate meshes to")
	fs.BoolVar(&inPlace, "i", false, "modify the input file in place")
	fs.BoolVar(&inPlace, "in-place", false, "modify the input file in place")
	fs.BoolVar(&asJSON, "json", false, "report the allocation as JSON (same as -report json)")
	fs.StringVar(&reportName, "report", "", "allocation report format: human, json or toon")
	fs.BoolVar(&countCells, "count-cells", false, "report the total number of mesh cells")
	fs.StringVar(&configPath, "config", "", "config file (default ./"+config.DefaultPath+" if present)")
	fs.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	fs.StringVar(&logFormat, "log-format", "", "log format: text or json")
	fs.StringVar(&logFile, "log-file", "", "also write logs to this file")
	fs.BoolVar(&showVersion, "V", false, "show version and exit")
	fs.BoolVar(&showVersion, "version", false, "show version and exit")

	fs.Usage = func() {
		fmt.Fprint(stderr, `Usage: fdspp [flags] INPUT [OUTPUT]
       fdspp init [-dry-run] [path-to-fdspp.hcl]

Rewrite an FDS input file. INPUT and OUTPUT may be '-' for stdin and stdout.
Either OUTPUT or -in-place is required. With -in-place, INPUT may be a
directory, in which case every .fds file below it is rewritten.

Flags:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}

	if showVersion {
		_, _ = fmt.Fprintf(stdout, "fdspp %s\n", version)
		return nil
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	s := settings{inPlace: inPlace}
	switch fs.NArg() {
	case 1:
		s.input = fs.Arg(0)
	case 2:
		s.input, s.output = fs.Arg(0), fs.Arg(1)
	default:
		fs.Usage()
		return fmt.Errorf("expected INPUT and optionally OUTPUT, got %d arguments", fs.NArg())
	}
	switch {
	case s.inPlace && s.output != "":
		return fmt.Errorf("-in-place cannot be combined with an output path")
	case !s.inPlace && s.output == "":
		return fmt.Errorf("either an output path or -in-place must be specified")
	case s.inPlace && s.input == "-":
		return fmt.Errorf("cannot use -in-place while reading from stdin")
	}

	s.transforms = fds.Transforms{CountCells: countCells, Schema: cfg.Schema()}
	if set["n-mpi"] {
		s.transforms.NMPI = &nMPI
	} else if cfg.NMPI != nil {
		s.transforms.NMPI = cfg.NMPI
	}

	switch {
	case asJSON:
		reportName = string(report.JSON)
	case reportName == "" && cfg.Report != nil:
		reportName = *cfg.Report
	case reportName == "":
		reportName = string(report.Human)
	}
	if s.format, err = report.ParseFormat(reportName); err != nil {
		return err
	}

	logger, closeLog, err := newLogger(cfg, logLevel, logFormat, logFile, stderr)
	if err != nil {
		return err
	}
	defer closeLog()
	ctx := logging.WithLogger(context.Background(), logger)
	logger.Debug("Settings resolved.", "input", s.input, "output", s.output, "in_place", s.inPlace, "report", s.format)

	if s.inPlace {
		if info, err := os.Stat(s.input); err == nil && info.IsDir() {
			return runBatch(ctx, s, stderr)
		}
	}

	outcome, err := transformFile(ctx, s.transforms, s.input, s.output, s.inPlace, stdin, stdout)
	if err != nil {
		return diagnostic(s.input, err)
	}
	return writeOutcome(stderr, s.format, outcome)
}

// loadConfig loads the named config file, or ./fdspp.hcl when none is named
// and it exists. A missing default file yields an empty config.
func loadConfig(path string) (*config.File, error) {
	if path == "" {
		if _, err := os.Stat(config.DefaultPath); err != nil {
			return &config.File{}, nil
		}
		path = config.DefaultPath
	}
	return config.Load(path)
}

// newLogger builds the run's logger from flags, falling back to config
// values. The returned func closes the log file, if any.
func newLogger(cfg *config.File, level, format, file string, stderr io.Writer) (*slog.Logger, func(), error) {
	if level == "" && cfg.LogLevel != nil {
		level = *cfg.LogLevel
	}
	if format == "" && cfg.LogFormat != nil {
		format = *cfg.LogFormat
	}
	if file == "" && cfg.LogFile != nil {
		file = *cfg.LogFile
	}
	if level == "" {
		level = "warn"
	}

	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}
	if err := logging.CheckFormat(format); err != nil {
		return nil, nil, err
	}

	outs := []io.Writer{stderr}
	closeLog := func() {}
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		outs = append(outs, f)
		closeLog = func() { _ = f.Close() }
	}
	return logging.New(lvl, format, outs...), closeLog, nil
}

// transformFile reads input, applies t and writes the result to output, to
// stdout when output is "-", or back over input when inPlace is set. Nothing
// is written unless the whole transform succeeds.
func transformFile(ctx context.Context, t fds.Transforms, input, output string, inPlace bool, stdin io.Reader, stdout io.Writer) (fds.Outcome, error) {
	logger := logging.FromContext(ctx)

	var (
		src []byte
		err error
	)
	if input == "-" {
		src, err = io.ReadAll(stdin)
	} else {
		src, err = os.ReadFile(input)
	}
	if err != nil {
		return fds.Outcome{}, &namelist.Error{Kind: namelist.KindResource, Err: err}
	}
	logger.Debug("Input read.", "path", input, "bytes", len(src))

	out, outcome, err := fds.Transform(src, t)
	if err != nil {
		return fds.Outcome{}, err
	}

	switch {
	case inPlace:
		err = replaceFile(input, out)
	case output == "-":
		_, err = stdout.Write(out)
	default:
		err = os.WriteFile(output, out, 0o644)
	}
	if err != nil {
		return fds.Outcome{}, &namelist.Error{Kind: namelist.KindResource, Err: err}
	}
	logger.Debug("Output written.", "path", input, "in_place", inPlace, "bytes", len(out))
	return outcome, nil
}

// replaceFile writes data to a temporary file next to path and renames it over
// path, so path is either fully replaced or left as it was.
func replaceFile(path string, data []byte) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), info.Mode().Perm()); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// diagnostic prefixes err with path and, when err carries one, a 1-based
// line:column position.
func diagnostic(path string, err error) error {
	if path == "-" {
		path = "<stdin>"
	}
	if span, ok := namelist.SpanOf(err); ok {
		return fmt.Errorf("%s:%d:%d: %w", path, span.Line+1, span.Column+1, err)
	}
	return fmt.Errorf("%s: %w", path, err)
}

func writeOutcome(w io.Writer, format report.Format, outcome fds.Outcome) error {
	if outcome.Cells != nil {
		if _, err := fmt.Fprintf(w, "Total cells: %d\n", *outcome.Cells); err != nil {
			return err
		}
	}
	if outcome.MeshAllocation != nil {
		return report.Write(w, format, *outcome.MeshAllocation)
	}
	return nil
}

// runBatch rewrites every FDS file under s.input in place.
func runBatch(ctx context.Context, s settings, stderr io.Writer) error {
	logger := logging.FromContext(ctx)

	files, err := discover.Files(s.input)
	if err != nil {
		return fmt.Errorf("discovering files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no %s files found under %s", discover.Extension, s.input)
	}
	logger.Debug("Discovered input files.", "root", s.input, "count", len(files))

	results := transformFilesConcurrent(ctx, s.input, files, s.transforms)

	var failed int
	for _, r := range results {
		if r.err != nil {
			failed++
			_, _ = fmt.Fprintf(stderr, "error: %v\n", diagnostic(r.path, r.err))
			continue
		}
		logger.Info("Transformed file.", "path", r.path)
		if r.outcome.Cells == nil && r.outcome.MeshAllocation == nil {
			continue
		}
		_, _ = fmt.Fprintf(stderr, "%s:\n", r.path)
		if err := writeOutcome(stderr, s.format, r.outcome); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}

type batchResult struct {
	path    string
	outcome fds.Outcome
	err     error
}

// transformFilesConcurrent transforms files in place using one worker per
// CPU. Results come back in the order of files.
func transformFilesConcurrent(ctx context.Context, root string, files []string, t fds.Transforms) []batchResult {
	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	work := make(chan int, len(files))
	results := make([]batchResult, len(files))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range work {
				path := filepath.Join(root, files[idx])
				outcome, err := transformFile(ctx, t, path, "", true, nil, nil)
				// each index is written by exactly one worker
				results[idx] = batchResult{path: path, outcome: outcome, err: err}
			}
		}()
	}

	for i := range files {
		work <- i
	}
	close(work)
	wg.Wait()

	return results
}

// flagsWithValue lists flags that take a value argument.
var flagsWithValue = map[string]bool{
	"-n-mpi": true, "--n-mpi": true,
	"-report": true, "--report": true,
	"-config": true, "--config": true,
	"-log-level": true, "--log-level": true,
	"-log-format": true, "--log-format": true,
	"-log-file": true, "--log-file": true,
}

// reorderArgs moves positional arguments after all flags so Go's flag package
// can parse them correctly (it stops at the first non-flag arg). A lone "-"
// is the stdin/stdout placeholder and counts as positional; positionals are
// passed after "--" so they are never read as flags.
func reorderArgs(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		if args[i] == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if len(args[i]) > 1 && args[i][0] == '-' {
			flags = append(flags, args[i])
			if flagsWithValue[args[i]] && i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		} else {
			positional = append(positional, args[i])
		}
	}
	if len(positional) == 0 {
		return flags
	}
	return append(append(flags, "--"), positional...)
}
