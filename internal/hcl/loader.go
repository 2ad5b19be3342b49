package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/taskgrid/internal/config"
	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/fsutil"
	"github.com/zclconf/go-cty/cty"
)

// Loader is the HCL implementation of config.Loader.
type Loader struct {
	environ func() []string
}

// NewLoader creates a new HCL plan loader.
func NewLoader() *Loader {
	return &Loader{environ: os.Environ}
}

// Load discovers every .hcl file under paths, parses them, and merges their
// blocks into one model. Tasks keep file and declaration order.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl files found in %s", strings.Join(paths, ", "))
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	model := &config.Model{
		Remotes:     make(map[string]*config.Remote),
		EvalContext: l.evalContext(),
	}
	parser := hclparse.NewParser()
	var settingsSeen *hcl.Range

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, model.EvalContext, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, s := range root.Settings {
			if settingsSeen != nil {
				return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, hcl.Diagnostics{{
					Severity: hcl.DiagError,
					Summary:  `Duplicate "settings" block`,
					Detail:   fmt.Sprintf("Only one \"settings\" block is allowed; the first one is at %s.", settingsSeen),
					Subject:  s.DefRange.Ptr(),
				}})
			}
			r := s.DefRange
			settingsSeen = &r
			if err := translateSettings(s, &model.Settings); err != nil {
				return nil, fmt.Errorf("%s: %w", s.DefRange, err)
			}
		}
		for _, r := range root.Remotes {
			if _, dup := model.Remotes[r.Name]; dup {
				return nil, fmt.Errorf("%s: duplicate remote %q", r.DefRange, r.Name)
			}
			remote, err := translateRemote(r)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", r.DefRange, err)
			}
			model.Remotes[remote.Name] = remote
		}
		for _, t := range root.Tasks {
			model.Tasks = append(model.Tasks, translateTask(t))
		}
	}

	logger.Debug("HCL loading complete.", "tasks", len(model.Tasks), "remotes", len(model.Remotes))
	return model, nil
}

// evalContext exposes the process environment as `env.NAME` to plan files.
func (l *Loader) evalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value)
	for _, kv := range l.environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !hclsyntax.ValidIdentifier(name) {
			continue
		}
		vars[name] = cty.StringVal(value)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": cty.ObjectVal(vars)},
	}
}

func translateSettings(s *settingsBlock, out *config.Settings) error {
	if s.Workers != nil {
		if *s.Workers < 0 {
			return fmt.Errorf("workers cannot be negative, got %d", *s.Workers)
		}
		out.Workers = s.Workers
	}
	if s.Buffer != nil {
		if *s.Buffer < 0 {
			return fmt.Errorf("buffer cannot be negative, got %d", *s.Buffer)
		}
		out.Buffer = s.Buffer
	}
	if s.PollInterval != nil {
		d, err := time.ParseDuration(*s.PollInterval)
		if err != nil {
			return fmt.Errorf("invalid poll_interval: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("poll_interval must be positive, got %s", d)
		}
		out.PollInterval = &d
	}
	return nil
}

func translateRemote(r *remoteBlock) (*config.Remote, error) {
	out := &config.Remote{
		Name:               r.Name,
		Transport:          strings.ToLower(r.Transport),
		URL:                r.URL,
		Credential:         r.Credential,
		Namespace:          r.Namespace,
		InsecureSkipVerify: r.InsecureSkipVerify,
	}
	if out.Transport == "" {
		out.Transport = config.TransportHTTP
	}
	switch out.Transport {
	case config.TransportHTTP, config.TransportSocketIO:
	default:
		return nil, fmt.Errorf("remote %q: unknown transport %q", r.Name, r.Transport)
	}
	if r.Timeout != "" {
		d, err := time.ParseDuration(r.Timeout)
		if err != nil {
			return nil, fmt.Errorf("remote %q: invalid timeout: %w", r.Name, err)
		}
		out.Timeout = d
	}
	return out, nil
}

func translateTask(t *taskBlock) *config.Task {
	body := hcl.EmptyBody()
	if t.Arguments != nil && t.Arguments.Body != nil {
		body = t.Arguments.Body
	}
	return &config.Task{
		Kind:      t.Kind,
		Name:      t.Name,
		DependsOn: t.DependsOn,
		Arguments: body,
	}
}

// findAllHCLFiles walks all given paths and returns a flat, de-duplicated list
// of .hcl files. Directory contents are visited in lexical order.
func findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			allFiles = append(allFiles, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if !info.IsDir() {
			if filepath.Ext(path) == ".hcl" {
				add(path)
			}
			continue
		}
		files, err := fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			add(f)
		}
	}
	return allFiles, nil
}
