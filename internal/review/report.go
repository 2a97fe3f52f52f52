package review

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var statusGlyphs = map[Status]string{
	StatusPending:   "⏳",
	StatusConfirmed: "✅",
	StatusRejected:  "❌",
	StatusResolved:  "✔️",
}

var severityGlyphs = map[Severity]string{
	SeverityHigh:   "🔴",
	SeverityMedium: "🟡",
	SeverityLow:    "🟢",
}

// ExportReport renders the ledger as a Markdown review report: a title
// block, a severity summary, then per-section findings in section order.
// The structural ordering is stable; the exact bytes are not a contract.
func ExportReport(l *Ledger) string {
	var b strings.Builder

	b.WriteString("# 合同审核报告\n\n")
	fmt.Fprintf(&b, "**合同名称**: %s\n", l.ContractName())
	fmt.Fprintf(&b, "**审核时间**: %s\n", l.CreatedAt().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "**章节总数**: %d\n", l.TotalSections())
	fmt.Fprintf(&b, "**问题点总数**: %d\n\n", l.TotalIssues())

	counts := l.CountBySeverity()
	b.WriteString("## 问题统计\n\n")
	fmt.Fprintf(&b, "- 高风险: %d 个\n", counts["high"])
	fmt.Fprintf(&b, "- 中风险: %d 个\n", counts["medium"])
	fmt.Fprintf(&b, "- 低风险: %d 个\n\n", counts["low"])

	b.WriteString("## 问题详情\n\n")
	for _, section := range l.Sections() {
		issues := l.IssuesBySection(section.Index)
		if len(issues) == 0 {
			continue
		}
		fmt.Fprintf(&b, "### %s\n\n", section.Title)
		for _, issue := range issues {
			fmt.Fprintf(&b, "#### [%s] %s %s %s\n\n",
				issue.ID, severityGlyphs[issue.Severity], issue.Problem, statusGlyphs[issue.Status])
			fmt.Fprintf(&b, "**相关条款**: %s\n\n", issue.Clause)
			fmt.Fprintf(&b, "**建议**: %s\n\n", issue.Suggestion)
			if issue.UserFeedback != "" {
				fmt.Fprintf(&b, "**用户反馈**: %s\n\n", issue.UserFeedback)
			}
		}
	}
	return b.String()
}

// WriteReport exports the report into dir (created if needed) and returns
// the file path.
func WriteReport(l *Ledger, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := strings.TrimSuffix(l.ContractName(), filepath.Ext(l.ContractName()))
	if name == "" {
		name = "contract"
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_审核报告_%s.md", name, time.Now().Format("20060102_150405")))
	if err := os.WriteFile(path, []byte(ExportReport(l)), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
