// Package prompt loads the system prompts sent with every edit request.
//
// A prompt is a Markdown file with optional YAML frontmatter. Prompts are
// looked up by name in the project directory, then the user's config
// directory, then the set compiled into the binary.
package prompt

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultName is the prompt used when none is configured.
const DefaultName = "edit"

// Output modes a template can declare in its frontmatter.
const (
	OutputFenced = "fenced"
	OutputRaw    = "raw"
)

// Source labels.
const (
	SourceProject = "project"
	SourceGlobal  = "global"
	SourceBuiltin = "built-in"
)

// Template is a system prompt with its metadata.
type Template struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Version     int    `yaml:"version,omitempty"`

	// Output is OutputRaw when the model is told to answer with bare file
	// text; anything else means fenced.
	Output string `yaml:"output,omitempty"`

	// Content is the prompt text after the frontmatter.
	Content string `yaml:"-"`

	// Source is one of the Source* labels.
	Source string `yaml:"-"`
}

// TemplateInfo provides template metadata for listing.
type TemplateInfo struct {
	Name        string
	Description string
	Source      string
	Overrides   string // source of the template this one hides, if any
}

// Dirs are the override directories searched before the built-ins.
// Empty entries are skipped.
type Dirs struct {
	Project string
	Global  string
}

// DefaultDirs returns .code-edit/prompts under workDir and prompts/ under
// the config directory.
func DefaultDirs(workDir, configDir string) Dirs {
	d := Dirs{Project: filepath.Join(workDir, ".code-edit", "prompts")}
	if configDir != "" {
		d.Global = filepath.Join(configDir, "prompts")
	}
	return d
}

// Load finds a template by name.
// Resolution order: project-local, user global, built-in.
func (d Dirs) Load(name string) (*Template, error) {
	if name == "" {
		name = DefaultName
	}
	if !validName(name) {
		return nil, fmt.Errorf("invalid prompt name %q", name)
	}

	for _, src := range d.sources() {
		tmpl, err := loadFromPath(src.dir, name)
		if err == nil {
			tmpl.Source = src.name
			return tmpl, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if tmpl, err := loadBuiltin(name); err == nil {
		tmpl.Source = SourceBuiltin
		return tmpl, nil
	}

	return nil, fmt.Errorf("prompt %q not found", name)
}

// List returns every available template. Overridden built-ins are reported
// on the template that hides them.
func (d Dirs) List() []TemplateInfo {
	seen := make(map[string]int)
	var templates []TemplateInfo

	for _, src := range d.sources() {
		infos, err := listFromPath(src.dir, src.name)
		if err != nil {
			continue
		}
		for _, info := range infos {
			if i, exists := seen[info.Name]; exists {
				if templates[i].Overrides == "" {
					templates[i].Overrides = info.Source
				}
				continue
			}
			seen[info.Name] = len(templates)
			templates = append(templates, info)
		}
	}

	for _, info := range listBuiltins() {
		if i, exists := seen[info.Name]; exists {
			if templates[i].Overrides == "" {
				templates[i].Overrides = SourceBuiltin
			}
			continue
		}
		templates = append(templates, info)
	}

	return templates
}

type source struct {
	name string
	dir  string
}

func (d Dirs) sources() []source {
	var out []source
	if d.Project != "" {
		out = append(out, source{SourceProject, d.Project})
	}
	if d.Global != "" {
		out = append(out, source{SourceGlobal, d.Global})
	}
	return out
}

// validName rejects names that would escape the prompt directories.
func validName(name string) bool {
	return !strings.ContainsAny(name, `/\`) && name != "." && name != ".."
}

func loadFromPath(dir, name string) (*Template, error) {
	path := filepath.Join(dir, name+".md")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	tmpl, err := parseTemplate(string(data))
	if err != nil {
		return nil, fmt.Errorf("prompt %s: %w", path, err)
	}
	if tmpl.Name == "" {
		tmpl.Name = name
	}
	return tmpl, nil
}

func listFromPath(dir, source string) ([]TemplateInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	var templates []TemplateInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		tmpl, err := parseTemplate(string(data))
		if err != nil {
			continue
		}

		templates = append(templates, TemplateInfo{
			Name:        strings.TrimSuffix(entry.Name(), ".md"),
			Description: tmpl.Description,
			Source:      source,
		})
	}

	return templates, nil
}

// parseTemplate parses a template from raw content with YAML frontmatter.
func parseTemplate(raw string) (*Template, error) {
	frontmatter, content := splitFrontmatter(raw)

	var tmpl Template
	if frontmatter != "" {
		if err := yaml.Unmarshal([]byte(frontmatter), &tmpl); err != nil {
			return nil, fmt.Errorf("invalid frontmatter: %w", err)
		}
	}

	tmpl.Content = strings.TrimSpace(content)
	if tmpl.Content == "" {
		return nil, errors.New("empty prompt")
	}
	return &tmpl, nil
}

// RawOutput reports whether responses to this template are bare file text.
func (t *Template) RawOutput() bool {
	return t.Output == OutputRaw
}

// splitFrontmatter separates YAML frontmatter from content.
// Frontmatter is delimited by --- at the start and end.
func splitFrontmatter(raw string) (frontmatter, content string) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "---") {
		return "", raw
	}

	before, after, ok := strings.Cut(raw[3:], "\n---")
	if !ok {
		return "", raw
	}

	return strings.TrimSpace(before), strings.TrimSpace(after)
}
