package semantic

import (
	"strings"
	"unicode/utf8"
)

// splitTextIntoChunks splits on the most meaningful separator present and carries
// the last overlap runes of each chunk into the next. Sizes are in runes.
func splitTextIntoChunks(text string, limit int, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	// ordered from best to worst for keeping meaning together
	separators := []string{"\n\n", "\n", ". ", " "}

	splitChar := ""
	for _, s := range separators {
		if strings.Contains(text, s) {
			splitChar = s
			break
		}
	}
	if splitChar == "" {
		return hardSplit(text, limit, overlap)
	}

	var chunks []string
	var current []rune
	sepLen := utf8.RuneCountInString(splitChar)

	for _, part := range strings.Split(text, splitChar) {
		partRunes := []rune(part)
		if len(partRunes) > limit {
			// a single part can still be too long for the chunk
			if len(current) > 0 {
				chunks = append(chunks, string(current))
				current = nil
			}
			chunks = append(chunks, splitTextIntoChunks(part, limit, overlap)...)
			continue
		}

		if len(current)+len(partRunes)+sepLen > limit && len(current) > 0 {
			chunks = append(chunks, string(current))
			if len(current) > overlap {
				current = append([]rune{}, current[len(current)-overlap:]...)
			} else {
				current = current[:0]
			}
			if len(current)+len(partRunes)+sepLen > limit {
				current = current[:0]
			}
		}
		if len(current) > 0 {
			current = append(current, []rune(splitChar)...)
		}
		current = append(current, partRunes...)
	}
	if len(current) > 0 {
		chunks = append(chunks, string(current))
	}
	return chunks
}

func hardSplit(text string, limit int, overlap int) []string {
	runes := []rune(text)
	step := limit - overlap
	if step <= 0 {
		step = limit
	}
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := min(start+limit, len(runes))
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
