package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newFixedRecorder() *Recorder {
	r := NewRecorder()
	base := time.Date(2026, 8, 28, 14, 30, 0, 0, time.Local)
	tick := -1
	r.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return r
}

func TestRecorderIDUnique(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	if a.ID() == "" || a.ID() == b.ID() {
		t.Errorf("ids = %q, %q", a.ID(), b.ID())
	}
}

func TestRecordAndLen(t *testing.T) {
	r := newFixedRecorder()
	if r.Len() != 0 {
		t.Errorf("fresh recorder len = %d", r.Len())
	}
	r.Record("用户", 0, "审核合同 test.docx")
	r.Record("工具", 2, "manage_issues: 已添加问题点 [1-1]")
	if r.Len() != 2 {
		t.Errorf("len = %d", r.Len())
	}
}

func TestSaveTranscript(t *testing.T) {
	r := newFixedRecorder()
	r.Record("用户", 0, "请审核当前章节")
	r.Record("工具", 1, "get_current_section 完成")
	r.Record("助手", 0, "共发现 2 个问题点。")

	dir := t.TempDir()
	path, err := r.Save(dir, "服务合同.docx")
	if err != nil {
		t.Fatal(err)
	}
	name := filepath.Base(path)
	if !strings.HasPrefix(name, "服务合同_会话日志_") || !strings.HasSuffix(name, ".md") {
		t.Errorf("filename = %q", name)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	for _, want := range []string{
		"# 合同审核会话日志",
		"**会话**: " + r.ID(),
		"**合同**: 服务合同.docx",
		"] 用户",
		"Step 1] 工具",
		"共发现 2 个问题点。",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("log missing %q:\n%s", want, content)
		}
	}
	// Step 0 entries carry no step tag.
	if strings.Contains(content, "Step 0") {
		t.Error("step 0 rendered")
	}
}

func TestSaveWithoutContractName(t *testing.T) {
	r := newFixedRecorder()
	r.Record("用户", 0, "你好")

	path, err := r.Save(t.TempDir(), "")
	if err != nil {
		t.Fatal(err)
	}
	name := filepath.Base(path)
	if !strings.HasPrefix(name, "会话日志_") {
		t.Errorf("filename = %q", name)
	}
	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "**合同**") {
		t.Error("contract line rendered for empty name")
	}
}

func TestSaveCreatesDir(t *testing.T) {
	r := newFixedRecorder()
	r.Record("用户", 0, "x")
	dir := filepath.Join(t.TempDir(), "logs", "nested")
	if _, err := r.Save(dir, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("dir not created: %v", err)
	}
}
