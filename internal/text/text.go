// Package text holds small ASCII helpers for parsing header values.
package text

// TrimString returns s without leading and trailing ASCII space.
func TrimString(s string) string {
	i := 0
	j := len(s)

	for i < j && isASCIISpace(s[i]) {
		i++
	}

	for j > i && isASCIISpace(s[j-1]) {
		j--
	}

	if i > 0 || j != len(s) {
		return s[i:j]
	}

	return s
}

// CutPrefixFold is strings.CutPrefix with ASCII case folding.
func CutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) {
		return s, false
	}

	for i := 0; i < len(prefix); i++ {
		if lower(s[i]) != lower(prefix[i]) {
			return s, false
		}
	}

	return s[len(prefix):], true
}

// IsDigits reports whether s is a non-empty run of ASCII digits.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}

	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}

	return true
}

func isASCIISpace(b byte) bool {
	return b == '\n' || b == '\r' || b == ' ' || b == '\t'
}

func lower(b byte) byte {
	if 'A' <= b && b <= 'Z' {
		return b | 0x20
	}

	return b
}
