// Package review holds the in-memory state of one contract-review session:
// the segmented contract, the issue ledger, and the section cursor that the
// agent's tools navigate with.
package review

import (
	"encoding/json"
	"fmt"
	"time"
)

// Severity classifies how serious an issue is.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// ParseSeverity validates a raw severity value.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(s) {
	case SeverityHigh, SeverityMedium, SeverityLow:
		return Severity(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSeverity, s)
}

// Status tracks the review lifecycle of an issue.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusRejected  Status = "rejected"
	StatusResolved  Status = "resolved"
)

// ParseStatus validates a raw status value.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusConfirmed, StatusRejected, StatusResolved:
		return Status(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Section is one addressable slice of the contract. Immutable after
// creation; Index is assigned at insertion and doubles as the address
// issues and navigation refer to.
type Section struct {
	Index   int    `json:"index"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Issue is a recorded finding tied to a section.
type Issue struct {
	ID           string    `json:"id"`
	SectionIndex int       `json:"section_index"`
	Clause       string    `json:"clause"`
	Problem      string    `json:"problem"`
	Severity     Severity  `json:"severity"`
	Suggestion   string    `json:"suggestion"`
	Status       Status    `json:"status"`
	UserFeedback string    `json:"user_feedback,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IssueUpdate carries the mutable fields of an issue. Nil pointers leave
// the field unchanged.
type IssueUpdate struct {
	Problem    *string
	Severity   *Severity
	Suggestion *string
	Status     *Status
	Feedback   *string
}

// Ledger owns the sections, issues and navigation cursor of a single
// review session. It has no internal locking: one session owns it
// exclusively.
type Ledger struct {
	contractName string
	contractPath string
	sections     []Section
	issues       []*Issue
	cursor       int
	createdAt    time.Time

	now func() time.Time // injectable clock for tests
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{createdAt: time.Now(), now: time.Now}
}

// Reset clears everything back to a fresh session.
func (l *Ledger) Reset() {
	l.contractName = ""
	l.contractPath = ""
	l.sections = nil
	l.issues = nil
	l.cursor = 0
	l.createdAt = l.now()
}

// SetContract records the identity of the loaded document.
func (l *Ledger) SetContract(name, path string) {
	l.contractName = name
	l.contractPath = path
}

func (l *Ledger) ContractName() string { return l.contractName }
func (l *Ledger) ContractPath() string { return l.contractPath }
func (l *Ledger) CreatedAt() time.Time { return l.createdAt }

// AddSection appends a section; the index is the insertion order.
func (l *Ledger) AddSection(title, content string) Section {
	s := Section{Index: len(l.sections), Title: title, Content: content}
	l.sections = append(l.sections, s)
	return s
}

func (l *Ledger) Sections() []Section { return l.sections }
func (l *Ledger) TotalSections() int  { return len(l.sections) }
func (l *Ledger) CurrentIndex() int   { return l.cursor }

// CurrentSection returns the section under the cursor, or nil when the
// cursor sits past the last section (review complete) or nothing is loaded.
func (l *Ledger) CurrentSection() *Section {
	if l.cursor >= 0 && l.cursor < len(l.sections) {
		s := l.sections[l.cursor]
		return &s
	}
	return nil
}

// IsComplete reports whether the cursor has moved past the last section.
func (l *Ledger) IsComplete() bool {
	return l.cursor >= len(l.sections)
}

// NextSection advances the cursor. At the last section it returns nil and
// the cursor does not move.
func (l *Ledger) NextSection() *Section {
	if l.cursor < len(l.sections)-1 {
		l.cursor++
		return l.CurrentSection()
	}
	return nil
}

// PrevSection moves the cursor back. At index 0 it returns nil and the
// cursor does not move.
func (l *Ledger) PrevSection() *Section {
	if l.cursor > 0 {
		l.cursor--
		return l.CurrentSection()
	}
	return nil
}

// GoToSection jumps the cursor to index. Out-of-range indices return nil
// without moving the cursor.
func (l *Ledger) GoToSection(index int) *Section {
	if index >= 0 && index < len(l.sections) {
		l.cursor = index
		return l.CurrentSection()
	}
	return nil
}

// Advance moves the cursor one past the last section to mark the review
// complete. Used by the auto-review driver after the final section.
func (l *Ledger) Advance() {
	if l.cursor < len(l.sections) {
		l.cursor++
	}
}

// AddIssue records a finding against sectionIndex, or against the current
// section when sectionIndex is negative. The id is "{section+1}-{seq}"
// where seq derives from the current per-section count; if deletions left
// that id taken, the sequence is bumped until it is free, so ids stay
// unique without renumbering surviving issues.
func (l *Ledger) AddIssue(sectionIndex int, clause, problem string, severity Severity, suggestion string) (*Issue, error) {
	idx := sectionIndex
	if idx < 0 {
		idx = l.cursor
	}
	if idx < 0 || idx >= len(l.sections) {
		return nil, fmt.Errorf("%w: section %d", ErrNoSuchSection, idx)
	}

	seq := len(l.IssuesBySection(idx)) + 1
	id := fmt.Sprintf("%d-%d", idx+1, seq)
	for l.GetIssue(id) != nil {
		seq++
		id = fmt.Sprintf("%d-%d", idx+1, seq)
	}

	now := l.now()
	issue := &Issue{
		ID:           id,
		SectionIndex: idx,
		Clause:       clause,
		Problem:      problem,
		Severity:     severity,
		Suggestion:   suggestion,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	l.issues = append(l.issues, issue)
	return issue, nil
}

// GetIssue returns the issue with the given id, or nil.
func (l *Ledger) GetIssue(id string) *Issue {
	for _, i := range l.issues {
		if i.ID == id {
			return i
		}
	}
	return nil
}

// UpdateIssue applies the non-nil fields of upd and stamps UpdatedAt.
func (l *Ledger) UpdateIssue(id string, upd IssueUpdate) (*Issue, error) {
	issue := l.GetIssue(id)
	if issue == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchIssue, id)
	}
	if upd.Problem != nil {
		issue.Problem = *upd.Problem
	}
	if upd.Severity != nil {
		issue.Severity = *upd.Severity
	}
	if upd.Suggestion != nil {
		issue.Suggestion = *upd.Suggestion
	}
	if upd.Status != nil {
		issue.Status = *upd.Status
	}
	if upd.Feedback != nil {
		issue.UserFeedback = *upd.Feedback
	}
	issue.UpdatedAt = l.now()
	return issue, nil
}

// DeleteIssue removes the issue with the given id.
func (l *Ledger) DeleteIssue(id string) bool {
	for i, issue := range l.issues {
		if issue.ID == id {
			l.issues = append(l.issues[:i], l.issues[i+1:]...)
			return true
		}
	}
	return false
}

// ConfirmIssue marks an issue confirmed.
func (l *Ledger) ConfirmIssue(id string) (*Issue, error) {
	st := StatusConfirmed
	return l.UpdateIssue(id, IssueUpdate{Status: &st})
}

// RejectIssue marks an issue rejected, optionally recording the user's
// reasoning.
func (l *Ledger) RejectIssue(id, feedback string) (*Issue, error) {
	st := StatusRejected
	upd := IssueUpdate{Status: &st}
	if feedback != "" {
		upd.Feedback = &feedback
	}
	return l.UpdateIssue(id, upd)
}

func (l *Ledger) Issues() []*Issue { return l.issues }
func (l *Ledger) TotalIssues() int { return len(l.issues) }

// IssuesBySection returns the issues recorded against one section, in
// insertion order.
func (l *Ledger) IssuesBySection(index int) []*Issue {
	var out []*Issue
	for _, i := range l.issues {
		if i.SectionIndex == index {
			out = append(out, i)
		}
	}
	return out
}

// CurrentSectionIssues returns the issues of the section under the cursor.
func (l *Ledger) CurrentSectionIssues() []*Issue {
	return l.IssuesBySection(l.cursor)
}

// CountBySeverity tallies issues per severity level. All three keys are
// always present.
func (l *Ledger) CountBySeverity() map[string]int {
	counts := map[string]int{"high": 0, "medium": 0, "low": 0}
	for _, i := range l.issues {
		counts[string(i.Severity)]++
	}
	return counts
}

// Snapshot is the JSON representation of the whole session state.
type Snapshot struct {
	ContractName        string    `json:"contract_name"`
	ContractPath        string    `json:"contract_path"`
	Sections            []Section `json:"sections"`
	CurrentSectionIndex int       `json:"current_section_index"`
	Issues              []*Issue  `json:"issues"`
	CreatedAt           time.Time `json:"created_at"`
}

// MarshalJSON renders the ledger as a Snapshot.
func (l *Ledger) MarshalJSON() ([]byte, error) {
	return json.Marshal(Snapshot{
		ContractName:        l.contractName,
		ContractPath:        l.contractPath,
		Sections:            l.sections,
		CurrentSectionIndex: l.cursor,
		Issues:              l.issues,
		CreatedAt:           l.createdAt,
	})
}
