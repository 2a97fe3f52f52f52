package review

import (
	"os"
	"regexp"
	"strings"
	"testing"
)

func TestExportReportStructure(t *testing.T) {
	led := newTestLedger(t, "第一条 付款", "第二条 违约", "第三条 保密")
	led.AddIssue(0, "三十日内付款", "付款期限过长", SeverityHigh, "改为十五日")
	led.AddIssue(0, "逾期利息", "未约定逾期利率", SeverityMedium, "补充日万分之五")
	led.AddIssue(2, "保密期限", "保密义务无期限", SeverityLow, "约定三年")
	issue, _ := led.AddIssue(2, "泄密责任", "违约金过低", SeverityHigh, "提高违约金")
	led.RejectIssue(issue.ID, "金额双方已确认")

	report := ExportReport(led)

	if !strings.HasPrefix(report, "# 合同审核报告") {
		t.Errorf("report missing title, starts %q", report[:30])
	}
	for _, want := range []string{
		"**合同名称**: 测试合同.docx",
		"**章节总数**: 3",
		"**问题点总数**: 4",
		"- 高风险: 2 个",
		"- 中风险: 1 个",
		"- 低风险: 1 个",
		"**用户反馈**: 金额双方已确认",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q", want)
		}
	}

	// Sections with no findings are omitted.
	if strings.Contains(report, "第二条 违约") {
		t.Error("issue-free section appeared in report")
	}

	// Findings appear grouped under their section, in section order.
	first := strings.Index(report, "### 第一条 付款")
	third := strings.Index(report, "### 第三条 保密")
	if first == -1 || third == -1 || first > third {
		t.Errorf("section ordering broken: first=%d third=%d", first, third)
	}
}

func TestExportReportSeverityCountsRoundTrip(t *testing.T) {
	led := newTestLedger(t, "第一条")
	led.AddIssue(0, "c", "p", SeverityHigh, "s")
	led.AddIssue(0, "c", "p", SeverityHigh, "s")
	led.AddIssue(0, "c", "p", SeverityLow, "s")

	report := ExportReport(led)
	re := regexp.MustCompile(`- (高|中|低)风险: (\d+) 个`)
	got := map[string]string{}
	for _, m := range re.FindAllStringSubmatch(report, -1) {
		got[m[1]] = m[2]
	}
	want := map[string]string{"高": "2", "中": "0", "低": "1"}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s风险 = %s, want %s", k, got[k], v)
		}
	}
}

func TestWriteReport(t *testing.T) {
	led := newTestLedger(t, "第一条")
	led.AddIssue(0, "c", "p", SeverityHigh, "s")

	dir := t.TempDir()
	path, err := WriteReport(led, dir)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(path, dir) {
		t.Errorf("report written outside dir: %s", path)
	}
	if !strings.Contains(path, "测试合同_审核报告_") || !strings.HasSuffix(path, ".md") {
		t.Errorf("unexpected report filename: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != ExportReport(led) {
		t.Error("file content differs from ExportReport output")
	}
}

func TestWriteReportCreatesDir(t *testing.T) {
	led := newTestLedger(t, "第一条")
	dir := t.TempDir() + "/nested/reports"
	if _, err := WriteReport(led, dir); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("reports dir not created: %v", err)
	}
}
