package protocol

// SanitizeText keeps printable ASCII (0x20-0x7E) and drops everything else,
// including any NUL terminator.
func SanitizeText(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= 0x20 && c <= 0x7e {
			out = append(out, c)
		}
	}
	return string(out)
}

// SanitizeName sanitizes a nickname and truncates it so that it fits a
// NameSize field with room for the terminating NUL.
func SanitizeName(s string) string {
	name := SanitizeText(s)
	if len(name) > NameSize-1 {
		name = name[:NameSize-1]
	}
	return name
}

// SanitizeMessage sanitizes chat text and truncates it to fit MaxMessageLength
// with the terminating NUL.
func SanitizeMessage(s string) string {
	text := SanitizeText(s)
	if len(text) > MaxMessageLength-1 {
		text = text[:MaxMessageLength-1]
	}
	return text
}

// cString returns b up to its first NUL.
func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
