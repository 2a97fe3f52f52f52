package skills

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"clausewise/internal/logging"
)

var frontmatterRe = regexp.MustCompile(`(?s)\A---\s*\n(.*?)\n---\s*\n?`)

// stringList accepts both YAML list form and a comma-separated scalar for
// the allowed-tools field.
type stringList []string

func (l *stringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var raw string
		if err := node.Decode(&raw); err != nil {
			return err
		}
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				*l = append(*l, part)
			}
		}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	return fmt.Errorf("allowed-tools: unsupported YAML node kind %d", node.Kind)
}

// frontmatter is the SKILL.md header schema.
type frontmatter struct {
	Name                   string     `yaml:"name"`
	Description            string     `yaml:"description"`
	ArgumentHint           string     `yaml:"argument-hint"`
	DisableModelInvocation bool       `yaml:"disable-model-invocation"`
	UserInvocable          *bool      `yaml:"user-invocable"`
	AllowedTools           stringList `yaml:"allowed-tools"`
}

// supportingSubdirs are scanned for files a skill may reference.
var supportingSubdirs = []string{"scripts", "examples", "templates", "resources"}

// Loader reads skills/<name>/SKILL.md definitions from one directory.
// Reload-safe: LoadAll replaces the whole set atomically.
type Loader struct {
	dir string

	mu     sync.RWMutex
	skills map[string]*Skill
}

// NewLoader creates a loader over dir. The directory may not exist yet;
// LoadAll then returns an empty set.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir, skills: make(map[string]*Skill)}
}

// Dir returns the watched skills directory.
func (l *Loader) Dir() string { return l.dir }

// LoadAll scans the directory and replaces the loaded skill set. Skill
// directories without a SKILL.md are skipped; a malformed frontmatter skips
// that one skill, never the whole load.
func (l *Loader) LoadAll() []*Skill {
	loaded := make(map[string]*Skill)

	entries, err := os.ReadDir(l.dir)
	if err == nil {
		for _, entry := range entries {
			if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			skill, err := loadSkill(filepath.Join(l.dir, entry.Name()), entry.Name())
			if err != nil {
				logging.Debugf(logging.CategorySkills, "skipping skill %s: %v", entry.Name(), err)
				continue
			}
			if skill != nil {
				loaded[skill.Name] = skill
			}
		}
	}

	l.mu.Lock()
	l.skills = loaded
	l.mu.Unlock()

	logging.Debugf(logging.CategorySkills, "loaded %d skills from %s", len(loaded), l.dir)
	return l.List()
}

// Get returns a skill by name, or nil.
func (l *Loader) Get(name string) *Skill {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.skills[name]
}

// List returns the loaded skills sorted by name.
func (l *Loader) List() []*Skill {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Skill, 0, len(l.skills))
	for _, s := range l.skills {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ModelInvocable returns the skills the model may trigger automatically.
func (l *Loader) ModelInvocable() []*Skill {
	var out []*Skill
	for _, s := range l.List() {
		if s.CanModelInvoke() {
			out = append(out, s)
		}
	}
	return out
}

// UserInvocable returns the skills reachable as /commands.
func (l *Loader) UserInvocable() []*Skill {
	var out []*Skill
	for _, s := range l.List() {
		if s.CanUserInvoke() {
			out = append(out, s)
		}
	}
	return out
}

// loadSkill parses one skill directory. Returns (nil, nil) when there is no
// SKILL.md.
func loadSkill(dir, dirName string) (*Skill, error) {
	raw, err := os.ReadFile(filepath.Join(dir, "SKILL.md"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var fm frontmatter
	content := string(raw)
	if m := frontmatterRe.FindStringSubmatch(content); m != nil {
		if err := yaml.Unmarshal([]byte(m[1]), &fm); err != nil {
			return nil, fmt.Errorf("parse frontmatter: %w", err)
		}
		content = strings.TrimSpace(content[len(m[0]):])
	} else {
		content = strings.TrimSpace(content)
	}

	name := fm.Name
	if name == "" {
		name = dirName
	}
	description := fm.Description
	if description == "" {
		description = firstParagraph(content)
	}
	userInvocable := true
	if fm.UserInvocable != nil {
		userInvocable = *fm.UserInvocable
	}

	return &Skill{
		Path:                   dir,
		Name:                   name,
		Description:            description,
		Content:                content,
		ArgumentHint:           fm.ArgumentHint,
		DisableModelInvocation: fm.DisableModelInvocation,
		UserInvocable:          userInvocable,
		AllowedTools:           fm.AllowedTools,
		SupportingFiles:        discoverSupportingFiles(dir),
	}, nil
}

// firstParagraph extracts a description fallback from the markdown body:
// the first non-heading, non-empty line.
func firstParagraph(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return line
	}
	return ""
}

func discoverSupportingFiles(dir string) map[string]string {
	files := make(map[string]string)
	for _, sub := range supportingSubdirs {
		entries, err := os.ReadDir(filepath.Join(dir, sub))
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.Type().IsRegular() {
				key := sub + "/" + entry.Name()
				files[key] = filepath.Join(sub, entry.Name())
			}
		}
	}
	entries, err := os.ReadDir(dir)
	if err == nil {
		for _, entry := range entries {
			if entry.Type().IsRegular() && entry.Name() != "SKILL.md" {
				files[entry.Name()] = entry.Name()
			}
		}
	}
	return files
}
