package review

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"clausewise/internal/logging"
)

// ReadDocument extracts plain text from a contract file. Word documents
// are unzipped and the paragraph text of word/document.xml is collected;
// .txt and .md are read directly. Anything else is rejected.
func ReadDocument(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".docx":
		return readDocx(path)
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Ext(path))
	}
}

// readDocx walks word/document.xml and joins non-empty paragraphs with
// newlines, which is all the structure the segmenter needs.
func readDocx(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer archive.Close()

	var doc *zip.File
	for _, f := range archive.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("%w: no word/document.xml", ErrUnreadableFile)
	}

	r, err := doc.Open()
	if err != nil {
		return "", fmt.Errorf("open document.xml: %w", err)
	}
	defer r.Close()

	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
	)
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if text := current.String(); strings.TrimSpace(text) != "" {
					paragraphs = append(paragraphs, text)
				}
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	return strings.Join(paragraphs, "\n"), nil
}

// LoadContract reads, segments and installs a contract into the ledger,
// returning a user-facing summary. On any failure the ledger is left
// untouched.
func LoadContract(led *Ledger, path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("文件不存在 %q", path)
	}
	content, err := ReadDocument(path)
	if err != nil {
		return "", fmt.Errorf("无法读取文件内容: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("无法读取文件内容: %w", ErrUnreadableFile)
	}

	sections := Segment(content)
	logging.Debugf(logging.CategorySegmenter, "segmented %s into %d sections", path, len(sections))

	led.Reset()
	led.SetContract(filepath.Base(path), path)
	for _, s := range sections {
		led.AddSection(s.Title, s.Body)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "成功拆分合同 %q\n", led.ContractName())
	fmt.Fprintf(&b, "共 %d 个章节：\n\n", len(sections))
	for i, s := range sections {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, s.Title)
	}
	b.WriteString("\n请输入「开始审核」或「下一章」开始审核。")
	return b.String(), nil
}
