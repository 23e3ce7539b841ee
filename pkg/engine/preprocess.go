package engine

import "strings"

// kwPrefix marks a keyword after preprocessing.
const kwPrefix = "__kw_"

// preprocessSource rewrites script source for zygomys:
//
//  1. :keyword becomes the string literal "__kw_keyword".
//  2. pick-mesh becomes pick_mesh; zygomys reads a hyphen as subtraction.
//  3. ; line comments become // comments.
//
// String literals, both "..." and `...`, pass through untouched.
func preprocessSource(src string) string {
	var out strings.Builder
	out.Grow(len(src) + len(src)/4)

	n := len(src)
	for i := 0; i < n; {
		c := src[i]
		switch {
		case c == '"' || c == '`':
			j := scanString(src, i)
			out.WriteString(src[i:j])
			i = j

		case c == ';':
			for i < n && src[i] == ';' {
				i++
			}
			j := strings.IndexByte(src[i:], '\n')
			if j < 0 {
				j = n - i
			}
			out.WriteString("//")
			out.WriteString(src[i : i+j])
			i += j

		case c == ':' && i+1 < n && src[i+1] == '=':
			out.WriteString(":=")
			i += 2

		case c == ':' && i+1 < n && isLetter(src[i+1]):
			j := i + 1
			for j < n && isKWChar(src[j]) {
				j++
			}
			out.WriteByte('"')
			out.WriteString(kwPrefix)
			out.WriteString(src[i+1 : j])
			out.WriteByte('"')
			i = j

		case c == '-' && i > 0 && i+1 < n && isIdentChar(src[i-1]) && isLetter(src[i+1]):
			out.WriteByte('_')
			i++

		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String()
}

// scanString returns the index just past the string literal starting at i.
// Double-quoted strings honour backslash escapes; raw strings do not.
func scanString(src string, i int) int {
	quote := src[i]
	j := i + 1
	for j < len(src) && src[j] != quote {
		if quote == '"' && src[j] == '\\' {
			j++
		}
		j++
	}
	return min(j+1, len(src))
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isKWChar(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '_'
}
