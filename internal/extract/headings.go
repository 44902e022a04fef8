package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	keywordHeadingMaxRunes  = 50
	isolatedHeadingMaxRunes = 30
	numberedHeadingMaxRunes = 120
)

var (
	subNumbered = regexp.MustCompile(`^\d+\.\d+(\.\d+)*\.?\s+\S`)
	topNumbered = regexp.MustCompile(`^(\d+)\.\s+\S`)
	numericOnly = regexp.MustCompile(`^[\d\s.\-/–]+$`)

	chapterKeyword = regexp.MustCompile(`(?i)(^|\s)(chapter|part|capítulo|chapitre|kapitel|capitolo|глава)(\s|$)|第.{1,6}[章部篇]`)
	sectionKeyword = regexp.MustCompile(`(?i)(^|\s)(section|sección|abschnitt|sezione|раздел)(\s|$)|第.{1,6}节`)
)

// MarkHeadings prefixes lines that look like headings with "#" markers.
func MarkHeadings(text string) string {
	lines := strings.Split(text, "\n")
	firstTenth := len(lines) / 10

	for i, line := range lines {
		t := strings.TrimSpace(line)
		if t == "" || strings.HasPrefix(t, "#") || numericOnly.MatchString(t) {
			continue
		}
		blankBefore := i == 0 || strings.TrimSpace(lines[i-1]) == ""
		blankAfter := i == len(lines)-1 || strings.TrimSpace(lines[i+1]) == ""

		if !isHeading(t, blankBefore, blankAfter) {
			continue
		}
		lines[i] = strings.Repeat("#", headingLevel(t, i < firstTenth)) + " " + t
	}
	return strings.Join(lines, "\n")
}

func isHeading(t string, blankBefore, blankAfter bool) bool {
	n := utf8.RuneCountInString(t)
	isolated := blankBefore && blankAfter
	switch {
	case isolated && isAllUpper(t):
		return true
	case n < numberedHeadingMaxRunes && (subNumbered.MatchString(t) || topNumbered.MatchString(t)):
		return true
	case n < keywordHeadingMaxRunes && (chapterKeyword.MatchString(t) || sectionKeyword.MatchString(t)):
		return true
	case isolated && n < isolatedHeadingMaxRunes:
		return true
	}
	return false
}

func headingLevel(t string, nearStart bool) int {
	if subNumbered.MatchString(t) {
		return 2
	}
	if m := topNumbered.FindStringSubmatch(t); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n <= 10 {
			return 1
		}
		return 2
	}
	if chapterKeyword.MatchString(t) {
		return 1
	}
	if sectionKeyword.MatchString(t) {
		return 2
	}
	if nearStart {
		return 1
	}
	return 3
}

func isAllUpper(t string) bool {
	letters := 0
	for _, r := range t {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters > 1
}
