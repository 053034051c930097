package value

// needsEscape reports whether c is one of the four characters COPY text
// format treats as control characters.
func needsEscape(c byte) bool {
	return c == '\t' || c == '\n' || c == '\r' || c == '\\'
}

func escapeIndex(s string) int {
	for i := 0; i < len(s); i++ {
		if needsEscape(s[i]) {
			return i
		}
	}
	return -1
}

// Escape returns s with tab, line feed, carriage return and backslash
// replaced by their two character escapes. When s contains none of them it
// is returned as is.
func Escape(s string) string {
	i := escapeIndex(s)
	if i < 0 {
		return s
	}
	return string(appendEscaped(make([]byte, 0, len(s)+8), s, i))
}

// AppendEscaped appends the escaped form of s to dst.
func AppendEscaped(dst []byte, s string) []byte {
	i := escapeIndex(s)
	if i < 0 {
		return append(dst, s...)
	}
	return appendEscaped(dst, s, i)
}

// appendEscaped escapes s from index from onwards; s[:from] is known clean.
func appendEscaped(dst []byte, s string, from int) []byte {
	dst = append(dst, s[:from]...)
	for i := from; i < len(s); i++ {
		switch c := s[i]; c {
		case '\t':
			dst = append(dst, '\\', 't')
		case '\n':
			dst = append(dst, '\\', 'n')
		case '\r':
			dst = append(dst, '\\', 'r')
		case '\\':
			dst = append(dst, '\\', '\\')
		default:
			dst = append(dst, c)
		}
	}
	return dst
}
