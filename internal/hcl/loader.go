package hcl

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/assetgrid/internal/config"
	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/fsutil"
)

// DefaultFilename is the name of the built-in pipeline file.
const DefaultFilename = "assetgrid.default.hcl"

//go:embed assetgrid.default.hcl
var defaultConfig []byte

// DefaultConfig returns the source of the built-in pipeline file.
func DefaultConfig() []byte {
	return append([]byte(nil), defaultConfig...)
}

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file found under paths (files or directories) and
// merges them into one model. Without paths the built-in file is used.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, config.Converter, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	parser := hclparse.NewParser()
	var files []*hcl.File

	if len(paths) == 0 {
		logger.Debug("No configuration paths given, using built-in pipeline file.")
		f, diags := parser.ParseHCL(defaultConfig, DefaultFilename)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to parse built-in configuration: %w", diags)
		}
		files = append(files, f)
	} else {
		filePaths, err := l.findAllHCLFiles(paths)
		if err != nil {
			return nil, nil, err
		}
		logger.Debug("Discovered HCL files.", "count", len(filePaths))
		for _, p := range filePaths {
			f, diags := parser.ParseHCLFile(p)
			if diags.HasErrors() {
				return nil, nil, fmt.Errorf("failed to parse HCL file %s: %w", p, diags)
			}
			files = append(files, f)
		}
	}

	conv := NewConverter()
	model := config.NewModel()
	var errs []string
	for _, f := range files {
		var root fileRoot
		if diags := gohcl.DecodeBody(f.Body, conv.evalCtx, &root); diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to decode configuration: %w", diags)
		}
		errs = append(errs, l.translate(&root, model)...)
	}
	if len(errs) > 0 {
		return nil, nil, fmt.Errorf("invalid configuration:\n- %s", strings.Join(errs, "\n- "))
	}

	logger.Debug("HCL loading complete.", "tasks", len(model.Tasks), "pipelines", len(model.Pipelines))
	return model, conv, nil
}

// findAllHCLFiles expands every path into a flat, de-duplicated list of .hcl files.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing configuration path %s: %w", path, err)
		}

		found := []string{path}
		if info.IsDir() {
			if found, err = fsutil.FindFilesByExtension(path, ".hcl"); err != nil {
				return nil, err
			}
		}
		for _, f := range found {
			if _, ok := seen[f]; !ok {
				seen[f] = struct{}{}
				allFiles = append(allFiles, f)
			}
		}
	}

	if len(allFiles) == 0 {
		return nil, fmt.Errorf("no .hcl files found in %s", strings.Join(paths, ", "))
	}
	return allFiles, nil
}
