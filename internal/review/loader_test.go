package review

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempContract(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadDocumentUnsupportedExtension(t *testing.T) {
	path := writeTempContract(t, "contract.pdf", "%PDF-1.4")
	if _, err := ReadDocument(path); !errors.Is(err, ErrUnsupportedFile) {
		t.Errorf("err = %v, want ErrUnsupportedFile", err)
	}
}

func TestReadDocumentPlainText(t *testing.T) {
	path := writeTempContract(t, "contract.txt", "第一条 总则\n内容。")
	text, err := ReadDocument(path)
	if err != nil {
		t.Fatal(err)
	}
	if text != "第一条 总则\n内容。" {
		t.Errorf("text = %q", text)
	}
}

func TestLoadContractMissingFile(t *testing.T) {
	led := NewLedger()
	if _, err := LoadContract(led, "/no/such/contract.txt"); err == nil {
		t.Fatal("expected error for missing file")
	}
	if led.TotalSections() != 0 {
		t.Error("ledger modified on failure")
	}
}

func TestLoadContractEmptyFile(t *testing.T) {
	led := NewLedger()
	path := writeTempContract(t, "empty.txt", "   \n\t\n")
	if _, err := LoadContract(led, path); !errors.Is(err, ErrUnreadableFile) {
		t.Errorf("err = %v, want ErrUnreadableFile", err)
	}
	if led.ContractName() != "" {
		t.Error("ledger modified on failure")
	}
}

func TestLoadContractSummary(t *testing.T) {
	led := NewLedger()
	path := writeTempContract(t, "服务合同.txt",
		"第一条 定义\n定义内容。\n第二条 付款\n付款内容。\n附件一：价格表\n价格内容。")

	summary, err := LoadContract(led, path)
	if err != nil {
		t.Fatal(err)
	}
	if led.TotalSections() != 3 {
		t.Fatalf("sections = %d", led.TotalSections())
	}
	if led.ContractName() != "服务合同.txt" {
		t.Errorf("contract name = %q", led.ContractName())
	}
	for _, want := range []string{"成功拆分合同", "共 3 个章节", "1. 第一条 定义", "3. 附件一：价格表"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q", want)
		}
	}
}

func TestLoadContractReplacesPreviousState(t *testing.T) {
	led := NewLedger()
	first := writeTempContract(t, "a.txt", "第一条 甲\n内容。\n第二条 乙\n内容。")
	if _, err := LoadContract(led, first); err != nil {
		t.Fatal(err)
	}
	led.AddIssue(0, "c", "p", SeverityHigh, "s")
	led.NextSection()

	second := writeTempContract(t, "b.txt", "第一条 新合同\n新内容。")
	if _, err := LoadContract(led, second); err != nil {
		t.Fatal(err)
	}
	if led.TotalSections() != 1 || led.TotalIssues() != 0 || led.CurrentIndex() != 0 {
		t.Errorf("stale state survived reload: sections=%d issues=%d cursor=%d",
			led.TotalSections(), led.TotalIssues(), led.CurrentIndex())
	}
}
