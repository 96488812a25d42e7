// Package config loads fdspp settings from an HCL file.
//
// A config file may set any of:
//
//	n_mpi      = 8
//	report     = "human"   # human, json or toon
//	log_level  = "info"
//	log_format = "text"
//	log_file   = "fdspp.log"
//
//	mesh {
//	  group      = "MESH"
//	  size_param = "IJK"
//	  tag_param  = "MPI_PROCESS"
//	}
//
// Expressions can read the environment through env, e.g. n_mpi = env.NMPI.
// Command-line flags take precedence over anything set here.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/phobologic/fdspp/internal/fds"
)

// DefaultPath is looked up in the working directory when no file is named.
const DefaultPath = "fdspp.hcl"

// File is the decoded content of a config file. Unset attributes are nil.
type File struct {
	NMPI      *int    `hcl:"n_mpi,optional"`
	Report    *string `hcl:"report,optional"`
	LogLevel  *string `hcl:"log_level,optional"`
	LogFormat *string `hcl:"log_format,optional"`
	LogFile   *string `hcl:"log_file,optional"`
	Mesh      *Mesh   `hcl:"mesh,block"`
}

// Mesh overrides the names fdspp looks for on mesh records.
type Mesh struct {
	Group     string `hcl:"group,optional"`
	SizeParam string `hcl:"size_param,optional"`
	TagParam  string `hcl:"tag_param,optional"`
}

// Load parses and decodes the config file at path.
func Load(path string) (*File, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(src, path)
}

// Parse decodes config source. filename is only used in diagnostics.
func Parse(src []byte, filename string) (*File, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filename, diags)
	}

	var cfg File
	diags = gohcl.DecodeBody(file.Body, evalContext(), &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode config file %s: %w", filename, diags)
	}
	if cfg.NMPI != nil && *cfg.NMPI < 1 {
		return nil, fmt.Errorf("config file %s: n_mpi must be at least 1, got %d", filename, *cfg.NMPI)
	}
	return &cfg, nil
}

// Schema returns the mesh naming with unset fields left empty, which the fds
// package fills with its defaults.
func (f *File) Schema() fds.Schema {
	if f == nil || f.Mesh == nil {
		return fds.Schema{}
	}
	return fds.Schema{
		MeshGroup: f.Mesh.Group,
		SizeParam: f.Mesh.SizeParam,
		TagParam:  f.Mesh.TagParam,
	}
}

// evalContext exposes the process environment as env.
func evalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			vars[k] = cty.StringVal(v)
		}
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(vars),
		},
	}
}
