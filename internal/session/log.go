// Package session records one review session's transcript (user turns,
// model output, tool activity) and saves it as a Markdown log on exit.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entry is one recorded transcript event.
type Entry struct {
	Time    time.Time
	Role    string
	Step    int // 0 when not tied to a loop step
	Content string
}

// Recorder accumulates transcript entries for one session. Not safe for
// concurrent use; the single session loop owns it.
type Recorder struct {
	id      string
	entries []Entry
	now     func() time.Time
}

// NewRecorder creates a recorder with a fresh session id.
func NewRecorder() *Recorder {
	return &Recorder{id: uuid.NewString(), now: time.Now}
}

// ID returns the session identifier.
func (r *Recorder) ID() string { return r.id }

// Record appends one entry. step may be 0.
func (r *Recorder) Record(role string, step int, content string) {
	r.entries = append(r.entries, Entry{
		Time:    r.now(),
		Role:    role,
		Step:    step,
		Content: content,
	})
}

// Len returns the number of recorded entries.
func (r *Recorder) Len() int { return len(r.entries) }

// Save writes the transcript under dir as
// "<contract>_会话日志_<ts>.md" and returns the path. An empty contract
// name drops the prefix.
func (r *Recorder) Save(dir, contractName string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	ts := r.now().Format("20060102_150405")
	filename := fmt.Sprintf("会话日志_%s.md", ts)
	if contractName != "" {
		name := strings.TrimSuffix(contractName, filepath.Ext(contractName))
		filename = fmt.Sprintf("%s_会话日志_%s.md", name, ts)
	}
	path := filepath.Join(dir, filename)

	var b strings.Builder
	b.WriteString("# 合同审核会话日志\n\n")
	fmt.Fprintf(&b, "**时间**: %s\n", r.now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "**会话**: %s\n", r.id)
	if contractName != "" {
		fmt.Fprintf(&b, "**合同**: %s\n", contractName)
	}
	b.WriteString("\n---\n\n")

	for _, entry := range r.entries {
		stepStr := ""
		if entry.Step > 0 {
			stepStr = fmt.Sprintf(" Step %d", entry.Step)
		}
		fmt.Fprintf(&b, "## [%s%s] %s\n\n", entry.Time.Format("15:04:05"), stepStr, entry.Role)
		fmt.Fprintf(&b, "%s\n\n", entry.Content)
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
