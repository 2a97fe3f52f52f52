package skills

import (
	"fmt"
	"regexp"
	"strings"
)

// Matcher resolves user input to a skill, either as an explicit
// /slash-command or automatically from description keywords. An optional
// semantic matcher (embedding-based) takes precedence over keyword
// matching for model invocation when set.
type Matcher struct {
	loader   *Loader
	semantic SemanticMatcher
}

// SemanticMatcher ranks candidate skills for an input; nil score slices or
// errors fall back to keyword matching.
type SemanticMatcher interface {
	Best(input string, candidates []*Skill) (*Skill, error)
}

// NewMatcher creates a matcher over a loader. semantic may be nil.
func NewMatcher(loader *Loader, semantic SemanticMatcher) *Matcher {
	return &Matcher{loader: loader, semantic: semantic}
}

// MatchCommand resolves an explicit "/name arguments" invocation. Returns
// (nil, "") for input that is not a slash command or names no
// user-invocable skill.
func (m *Matcher) MatchCommand(input string) (*Skill, string) {
	if !strings.HasPrefix(input, "/") {
		return nil, ""
	}
	fields := strings.SplitN(strings.TrimPrefix(input, "/"), " ", 2)
	if fields[0] == "" {
		return nil, ""
	}
	name := strings.ToLower(fields[0])
	arguments := ""
	if len(fields) > 1 {
		arguments = strings.TrimSpace(fields[1])
	}

	if skill := m.loader.Get(name); skill != nil && skill.CanUserInvoke() {
		return skill, arguments
	}
	// Hyphen/space-insensitive fallback.
	normalized := strings.ReplaceAll(name, "-", " ")
	for _, skill := range m.loader.UserInvocable() {
		if strings.ReplaceAll(strings.ToLower(skill.Name), "-", " ") == normalized {
			return skill, arguments
		}
	}
	return nil, ""
}

// MatchForModel picks a skill the model may auto-invoke for this input, or
// nil when nothing matches.
func (m *Matcher) MatchForModel(input string) *Skill {
	candidates := m.loader.ModelInvocable()
	if len(candidates) == 0 {
		return nil
	}

	if m.semantic != nil {
		if skill, err := m.semantic.Best(input, candidates); err == nil && skill != nil {
			return skill
		}
	}

	lower := strings.ToLower(input)
	for _, skill := range candidates {
		for _, kw := range extractKeywords(skill.Description) {
			if strings.Contains(lower, kw) {
				return skill
			}
		}
	}
	return nil
}

// Commands lists every available /command.
func (m *Matcher) Commands() []string {
	var out []string
	for _, skill := range m.loader.UserInvocable() {
		out = append(out, "/"+skill.Name)
	}
	return out
}

// Descriptions renders the model-invocable skill list for context injection.
func (m *Matcher) Descriptions() string {
	var lines []string
	for _, skill := range m.loader.ModelInvocable() {
		hint := ""
		if skill.ArgumentHint != "" {
			hint = " " + skill.ArgumentHint
		}
		lines = append(lines, fmt.Sprintf("- /%s%s: %s", skill.Name, hint, skill.Description))
	}
	return strings.Join(lines, "\n")
}

var (
	quotedKeywordRe  = regexp.MustCompile(`[“”"'「」『』]([^“”"'「」『』]+)[“”"'「」『』]`)
	containsClauseRe = regexp.MustCompile(`包含[：:"“”']*([^时]+)[时]?`)
	useWhenRe        = regexp.MustCompile(`(?i)Use when\s+(.+?)(?:\.|$)`)
	keywordSplitRe   = regexp.MustCompile(`[、，,]`)
)

// extractKeywords pulls matchable phrases out of a skill description:
// quoted fragments, "包含 xxx、yyy 时" enumerations, and "Use when ..."
// clauses.
func extractKeywords(description string) []string {
	var keywords []string
	for _, m := range quotedKeywordRe.FindAllStringSubmatch(description, -1) {
		if kw := strings.ToLower(strings.TrimSpace(m[1])); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	if m := containsClauseRe.FindStringSubmatch(description); m != nil {
		for _, part := range keywordSplitRe.Split(m[1], -1) {
			if kw := strings.ToLower(strings.TrimSpace(part)); kw != "" {
				keywords = append(keywords, kw)
			}
		}
	}
	if m := useWhenRe.FindStringSubmatch(description); m != nil {
		keywords = append(keywords, strings.ToLower(strings.TrimSpace(m[1])))
	}
	return keywords
}
