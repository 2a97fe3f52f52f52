// Package skills loads and matches reusable skill definitions: one
// directory per skill holding a SKILL.md with YAML frontmatter, matched to
// user input either as an explicit /slash-command or automatically by
// keyword or embedding similarity.
package skills

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Skill is one loaded skill definition.
type Skill struct {
	// Path is the skill's directory.
	Path string

	// Name is the skill name, used as the /slash-command.
	Name string
	// Description helps the matcher decide when to use the skill.
	Description string
	// Content is the markdown body of SKILL.md, after the frontmatter.
	Content string

	// ArgumentHint documents the expected arguments, e.g. "[文件路径]".
	ArgumentHint string
	// DisableModelInvocation restricts the skill to explicit user calls.
	DisableModelInvocation bool
	// UserInvocable controls whether /name works; false hides the skill
	// from the menu and leaves it model-only.
	UserInvocable bool
	// AllowedTools restricts which tools the skill may direct the model to.
	AllowedTools []string

	// SupportingFiles maps discovered file keys (e.g. "templates/x.md") to
	// paths relative to Path.
	SupportingFiles map[string]string
}

// CanModelInvoke reports whether the model may trigger the skill on its own.
func (s *Skill) CanModelInvoke() bool { return !s.DisableModelInvocation }

// CanUserInvoke reports whether /name invocation works.
func (s *Skill) CanUserInvoke() bool { return s.UserInvocable }

// Render substitutes $ARGUMENTS and ${SESSION_ID} into the skill content.
// Content without an $ARGUMENTS placeholder gets the arguments appended so
// they are never silently dropped.
func (s *Skill) Render(arguments, sessionID string) string {
	content := s.Content
	if strings.Contains(content, "$ARGUMENTS") {
		content = strings.ReplaceAll(content, "$ARGUMENTS", arguments)
	} else if arguments != "" {
		content += "\n\nARGUMENTS: " + arguments
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return strings.ReplaceAll(content, "${SESSION_ID}", sessionID)
}

// PromptAddition renders the skill as a system-prompt injection block.
func (s *Skill) PromptAddition(arguments, sessionID string) string {
	content := s.Render(arguments, sessionID)
	if content == "" {
		return ""
	}
	return fmt.Sprintf("\n\n## 技能: %s\n%s", s.Name, content)
}

// SupportingFile reads one supporting file's content, or "" when absent.
func (s *Skill) SupportingFile(key string) string {
	rel, ok := s.SupportingFiles[key]
	if !ok {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(s.Path, rel))
	if err != nil {
		return ""
	}
	return string(data)
}
