package extractor

import "strings"

// SplitParameters splits a definition's parameter list and returns the
// parameter names: the first token of each top-level segment, so
// "x INT DEFAULT 0" yields "x". Comments are ignored. An empty list yields
// no parameters.
func SplitParameters(list string) []string {
	masked := Mask(list)
	var names []string
	for _, seg := range splitTopLevel(masked) {
		fields := strings.Fields(masked[seg.start:seg.end])
		if len(fields) == 0 {
			continue
		}
		names = append(names, fields[0])
	}
	return names
}

// SplitArguments splits a call's argument list on top-level commas and
// returns the trimmed argument texts verbatim. Commas nested in
// parentheses, inside quotes or inside comments do not split, and a
// segment holding only a comment is not an argument.
func SplitArguments(list string) []string {
	masked := Mask(list)
	var args []string
	for _, seg := range splitTopLevel(masked) {
		if strings.TrimSpace(masked[seg.start:seg.end]) == "" {
			continue
		}
		args = append(args, strings.TrimSpace(list[seg.start:seg.end]))
	}
	return args
}

type segment struct {
	start, end int
}

// splitTopLevel finds the top-level comma separated segments of masked
// text. Single-quoted contents are already blank in the mask; double quotes
// are tracked here.
func splitTopLevel(s string) []segment {
	var (
		parts []segment
		depth int
		quote bool
		start int
	)
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote:
			if ch == '"' {
				quote = false
			}
		case ch == '"':
			quote = true
		case ch == '(':
			depth++
		case ch == ')':
			if depth > 0 {
				depth--
			}
		case ch == ',' && depth == 0:
			parts = append(parts, segment{start: start, end: i})
			start = i + 1
		}
	}
	return append(parts, segment{start: start, end: len(s)})
}
