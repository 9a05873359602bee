package extractor

import "strings"

// Mask blanks everything in src that is not SQL code: line comments (-- and
// //), block comments, the contents of single-quoted literals and the
// bodies of $$-quoted blocks. Quote and $$ delimiters are kept. The result
// has the same length as src and keeps every newline, so byte offsets and
// line numbers found in the mask are valid in src.
func Mask(src string) string {
	out := []byte(src)
	blank := func(from, to int) {
		for i := from; i < to && i < len(out); i++ {
			if out[i] != '\n' && out[i] != '\r' {
				out[i] = ' '
			}
		}
	}

	i := 0
	for i < len(src) {
		switch {
		case hasAt(src, i, "--"), hasAt(src, i, "//"):
			end := i
			for end < len(src) && src[end] != '\n' {
				end++
			}
			blank(i, end)
			i = end

		case hasAt(src, i, "/*"):
			end := indexFrom(src, i+2, "*/")
			if end < 0 {
				end = len(src)
			} else {
				end += 2
			}
			blank(i, end)
			i = end

		case hasAt(src, i, "$$"):
			end := indexFrom(src, i+2, "$$")
			if end < 0 {
				blank(i+2, len(src))
				i = len(src)
				continue
			}
			blank(i+2, end)
			i = end + 2

		case src[i] == '\'':
			j := i + 1
			for j < len(src) {
				if src[j] == '\\' && j+1 < len(src) {
					j += 2
					continue
				}
				if src[j] == '\'' {
					if j+1 < len(src) && src[j+1] == '\'' {
						j += 2
						continue
					}
					break
				}
				j++
			}
			blank(i+1, j)
			i = j + 1

		default:
			i++
		}
	}
	return string(out)
}

func hasAt(s string, i int, sub string) bool {
	return len(s)-i >= len(sub) && s[i:i+len(sub)] == sub
}

func indexFrom(s string, from int, sub string) int {
	if from > len(s) {
		return -1
	}
	if i := strings.Index(s[from:], sub); i >= 0 {
		return from + i
	}
	return -1
}
