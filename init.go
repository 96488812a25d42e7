package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/phobologic/fdspp/internal/config"
	"github.com/phobologic/fdspp/internal/fds"
)

const (
	sentinelStart = "# fdspp:start"
	sentinelEnd   = "# fdspp:end"
)

// runInit implements the `fdspp init` subcommand, which writes (or updates)
// a block of default settings in an fdspp.hcl config file.
func runInit(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("fdspp init", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		dryRun bool
		nMPI   int
	)
	fs.BoolVar(&dryRun, "dry-run", false, "print what would be written without modifying the file")
	fs.IntVar(&nMPI, "n-mpi", 1, "number of MPI processes to record in the config")

	fs.Usage = func() {
		fmt.Fprintf(stderr, `Usage: fdspp init [flags] [path-to-fdspp.hcl]

Write the default fdspp settings to a config file. The settings are wrapped in
sentinel comments so they can be updated in place on subsequent runs without
touching surrounding content. Creates the file if it does not exist.

path-to-fdspp.hcl defaults to ./fdspp.hcl.

Flags:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if nMPI < 1 {
		return fmt.Errorf("-n-mpi must be at least 1, got %d", nMPI)
	}

	section := generateSection(nMPI)

	// --dry-run with no path: just print the section itself.
	if dryRun && fs.NArg() == 0 {
		_, _ = fmt.Fprintln(stdout, section)
		return nil
	}

	path := config.DefaultPath
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}

	existing, _ := os.ReadFile(path)
	updated := applySection(string(existing), section)

	// Never write a file fdspp itself could not load.
	if _, err := config.Parse([]byte(updated), path); err != nil {
		return fmt.Errorf("%s would not be a valid config after init: %w", path, err)
	}

	if dryRun {
		_, _ = fmt.Fprint(stdout, updated)
		return nil
	}

	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	_, _ = fmt.Fprintf(stderr, "wrote fdspp settings to %s\n", path)
	return nil
}

// generateSection returns the sentinel-wrapped block of default settings.
func generateSection(nMPI int) string {
	s := fds.DefaultSchema
	body := fmt.Sprintf(`# Settings for fdspp. Command-line flags override everything here.

# Number of MPI processes meshes are spread over.
n_mpi = %d

# Allocation report: "human", "json" or "toon".
report = "human"

log_level  = "warn"
log_format = "text"

# Names fdspp looks for on mesh records.
mesh {
  group      = %q
  size_param = %q
  tag_param  = %q
}`, nMPI, s.MeshGroup, s.SizeParam, s.TagParam)

	return sentinelStart + "\n" + body + "\n" + sentinelEnd
}

// applySection inserts section into content, replacing an existing sentinel
// block if present or appending if not. It is a pure function for easy testing.
func applySection(content, section string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(sentinelEnd):]
	}

	if content == "" {
		return section + "\n"
	}

	// Append, ensuring a blank line separator.
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + "\n" + section + "\n"
}
