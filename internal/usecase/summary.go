package usecase

import (
	"strings"
	"unicode"
)

const (
	summaryMaxLen = 240
	emptySummary  = "(sin contenido)"

	headerSymbolic      = "Resumen simbólico"
	headerSummary       = "Resumen"
	headerPsychological = "Análisis psicológico"
	headerGeneral       = "Interpretación general"
	headerAdvice        = "Consejo integrador"
	headerRule          = "---"
)

// Summarize derives the stored interpretation_summary: the general
// interpretation block when present, otherwise a short summary.
func Summarize(interpretation string) string {
	if block, ok := extractBlock(interpretation, headerGeneral); ok {
		return block
	}
	return shortSummary(interpretation, summaryMaxLen)
}

// extractBlock returns the text from title up to the next known header,
// without the header line itself.
func extractBlock(text, title string) (string, bool) {
	t := []rune(strings.TrimSpace(text))
	if len(t) == 0 {
		return "", false
	}
	start := indexFold(t, title)
	if start < 0 {
		return "", false
	}
	sub := t[start:]
	end := nextHeader(sub, headerPsychological, headerAdvice, headerSymbolic, headerRule)
	block := strings.TrimSpace(string(sub[:end]))

	lines := strings.Split(block, "\n")
	if strings.Contains(strings.ToLower(lines[0]), strings.ToLower(title)) {
		block = strings.TrimSpace(strings.Join(lines[1:], "\n"))
	}
	return block, block != ""
}

func shortSummary(text string, maxLen int) string {
	t := []rune(strings.TrimSpace(text))
	if len(t) == 0 {
		return emptySummary
	}

	var candidate string
	start := indexFold(t, headerSymbolic)
	if start < 0 {
		start = indexFold(t, headerSummary)
	}
	if start >= 0 {
		sub := t[start:]
		end := nextHeader(sub, headerPsychological, headerGeneral, headerAdvice, headerRule)
		candidate = strings.TrimSpace(string(sub[:end]))
	} else {
		candidate = strings.TrimSpace(strings.SplitN(string(t), "\n\n", 2)[0])
	}

	runes := []rune(candidate)
	if len(runes) > maxLen {
		return strings.TrimRightFunc(string(runes[:maxLen-1]), unicode.IsSpace) + "…"
	}
	return candidate
}

// nextHeader returns the offset of the nearest header after position 0, or
// len(sub) when none follows.
func nextHeader(sub []rune, headers ...string) int {
	end := len(sub)
	for _, h := range headers {
		if i := indexFold(sub, h); i > 0 && i < end {
			end = i
		}
	}
	return end
}

// indexFold is a case-insensitive rune index of needle in haystack.
func indexFold(haystack []rune, needle string) int {
	n := []rune(strings.ToLower(needle))
	if len(n) == 0 {
		return 0
	}
	for i := 0; i+len(n) <= len(haystack); i++ {
		match := true
		for j, r := range n {
			if unicode.ToLower(haystack[i+j]) != r {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
