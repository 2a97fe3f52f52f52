package review

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// RawSection is a segmented (title, body) pair before it is inserted into
// the ledger.
type RawSection struct {
	Title string
	Body  string
}

// Segmentation patterns. Appendix markers split the document into a main
// body and an appendix tail; clause markers are matched in Chinese-numeral
// form first, falling back to the Arabic form.
var (
	appendixMarkerRe   = regexp.MustCompile(`(?:^|\n)(附[件录][一二三四五六七八九十\d]+)[、：:\s]`)
	clauseMarkerRe     = regexp.MustCompile(`(?:^|\n)(第[一二三四五六七八九十百千零〇]+[条章])\s*([^\n]*)`)
	clauseFallbackRe   = regexp.MustCompile(`(?:^|\n)(第\s*\d+\s*[条章])\s*([^\n]*)`)
	titleSuffixPunctRe = regexp.MustCompile(`[、：:]\s*$`)
)

// Preambles shorter than this many runes are treated as header noise and
// dropped rather than emitted as a basic-information section.
const minPreambleRunes = 50

const (
	preambleTitle = "合同基本信息"
	fullTextTitle = "全文"
)

// Segment splits raw contract text into an ordered list of clause and
// appendix sections. It never returns an empty list for non-empty input:
// when no markers are found at all, the whole document comes back as one
// "full text" section. Everything after the first appendix marker is never
// re-scanned for main-body clauses, and duplicate appendix identifiers are
// resolved by keeping the longer body.
func Segment(content string) []RawSection {
	var sections []RawSection

	appendixLocs := appendixMarkerRe.FindAllStringSubmatchIndex(content, -1)
	mainEnd := len(content)
	if len(appendixLocs) > 0 {
		mainEnd = appendixLocs[0][2]
	}
	mainContent := content[:mainEnd]

	clauseLocs := clauseMarkerRe.FindAllStringSubmatchIndex(mainContent, -1)
	if len(clauseLocs) == 0 {
		clauseLocs = clauseFallbackRe.FindAllStringSubmatchIndex(mainContent, -1)
	}

	if len(clauseLocs) > 0 {
		if first := clauseLocs[0]; first[2] > 0 {
			header := strings.TrimSpace(mainContent[:first[2]])
			if header != "" && utf8.RuneCountInString(header) > minPreambleRunes {
				sections = append(sections, RawSection{Title: preambleTitle, Body: header})
			}
		}
		for i, loc := range clauseLocs {
			marker := mainContent[loc[2]:loc[3]]
			rest := mainContent[loc[4]:loc[5]]
			title := strings.TrimSpace(marker + " " + rest)

			bodyStart := loc[1]
			bodyEnd := len(mainContent)
			if i+1 < len(clauseLocs) {
				bodyEnd = clauseLocs[i+1][0]
			}
			sections = append(sections, RawSection{
				Title: title,
				Body:  strings.TrimSpace(mainContent[bodyStart:bodyEnd]),
			})
		}
	}

	seen := make(map[string]bool)
	for i, loc := range appendixLocs {
		id := content[loc[2]:loc[3]]

		lineEnd := len(content)
		if rel := strings.Index(content[loc[1]:], "\n"); rel >= 0 {
			lineEnd = loc[1] + rel
		}
		title := titleSuffixPunctRe.ReplaceAllString(strings.TrimSpace(content[loc[2]:lineEnd]), "")

		bodyStart := lineEnd
		if lineEnd < len(content) {
			bodyStart = lineEnd + 1
		}
		bodyEnd := len(content)
		if i+1 < len(appendixLocs) {
			bodyEnd = appendixLocs[i+1][0]
		}
		body := strings.TrimSpace(content[bodyStart:bodyEnd])

		if seen[id] {
			// Duplicate appendix numbering in the source document: keep
			// whichever body is longer under that identifier.
			for j, existing := range sections {
				if strings.HasPrefix(existing.Title, id) {
					if len(body) > len(existing.Body) {
						sections[j] = RawSection{Title: title, Body: body}
					}
					break
				}
			}
			continue
		}
		seen[id] = true
		sections = append(sections, RawSection{Title: title, Body: body})
	}

	if len(sections) == 0 {
		return []RawSection{{Title: fullTextTitle, Body: strings.TrimSpace(content)}}
	}
	return sections
}
