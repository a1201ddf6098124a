package retrieval

import (
	"strings"
	"unicode/utf8"
)

// Chunk splits text into pieces of at most size runes. Each piece after the
// first repeats up to overlap runes of trailing words from the one before.
// Blank-line separated sections (FAQ entries, paragraphs) are chunked on
// their own so one entry never bleeds into the next.
func Chunk(text string, size, overlap int) []string {
	if size <= 0 {
		return nil
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	var chunks []string
	for _, section := range splitSections(text) {
		chunks = append(chunks, chunkSection(section, size, overlap)...)
	}
	return chunks
}

func splitSections(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var sections []string
	for _, s := range strings.Split(text, "\n\n") {
		if s = strings.TrimSpace(s); s != "" {
			sections = append(sections, s)
		}
	}
	return sections
}

func chunkSection(section string, size, overlap int) []string {
	if utf8.RuneCountInString(section) <= size {
		return []string{section}
	}

	var words []string
	for _, w := range strings.Fields(section) {
		words = append(words, splitLongWord(w, size)...)
	}

	var (
		chunks  []string
		current []string
		length  int
	)
	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(current, " "))

		// Carry trailing words into the next chunk.
		var carried []string
		carriedLen := 0
		for i := len(current) - 1; i >= 0; i-- {
			n := utf8.RuneCountInString(current[i])
			if carriedLen+n+len(carried) > overlap {
				break
			}
			carried = append([]string{current[i]}, carried...)
			carriedLen += n
		}
		current = carried
		length = joinedLen(carried)
	}

	for _, w := range words {
		n := utf8.RuneCountInString(w)
		sep := 0
		if len(current) > 0 {
			sep = 1
		}
		if length+sep+n > size {
			flush()
			if len(current) > 0 && length+1+n > size {
				current, length = nil, 0
			}
			if len(current) > 0 {
				sep = 1
			} else {
				sep = 0
			}
		}
		current = append(current, w)
		length += sep + n
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

func joinedLen(words []string) int {
	if len(words) == 0 {
		return 0
	}
	n := len(words) - 1
	for _, w := range words {
		n += utf8.RuneCountInString(w)
	}
	return n
}

func splitLongWord(w string, size int) []string {
	runes := []rune(w)
	if len(runes) <= size {
		return []string{w}
	}
	var parts []string
	for len(runes) > size {
		parts = append(parts, string(runes[:size]))
		runes = runes[size:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}
