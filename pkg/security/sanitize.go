package security

import (
	"html"
	"regexp"
	"strings"
	"unicode"
)

var (
	sqlInjectionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)union\s+select`),
		regexp.MustCompile(`(?i)insert\s+into`),
		regexp.MustCompile(`(?i)delete\s+from`),
		regexp.MustCompile(`(?i)drop\s+table`),
		regexp.MustCompile(`(?i)update\s+\S+\s+set`),
		regexp.MustCompile(`(?i)\bexec(ute)?\s*\(`),
		regexp.MustCompile(`(?i)script\s*>`),
		regexp.MustCompile(`(?i)javascript:`),
	}

	xssPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<script[^>]*>.*?</script[^>]*>`),
		regexp.MustCompile(`(?i)<script[^>]*>`),
		regexp.MustCompile(`(?i)</script[^>]*>`),
		regexp.MustCompile(`(?is)<iframe[^>]*>.*?</iframe[^>]*>`),
		regexp.MustCompile(`(?i)<iframe[^>]*>`),
		regexp.MustCompile(`(?i)</iframe[^>]*>`),
		regexp.MustCompile(`(?i)<embed[^>]*>`),
		regexp.MustCompile(`(?i)<object[^>]*>`),
		regexp.MustCompile(`(?i)\bon\w+\s*=`),
		regexp.MustCompile(`(?i)javascript:`),
	}

	htmlTagPattern = regexp.MustCompile(`<[^>]*>`)
	anyTagPattern  = regexp.MustCompile(`</?([a-zA-Z0-9]+)[^>]*/?>`)

	allowedHTMLTags = map[string]bool{
		"b": true, "i": true, "em": true, "strong": true,
		"p": true, "br": true, "span": true,
	}
)

// SanitizeString trims whitespace and strips control characters while
// preserving newlines and tabs.
func SanitizeString(s string) string {
	return strings.TrimSpace(removeControlCharacters(s))
}

// removeControlCharacters drops non-printable runes. Newlines, carriage
// returns and tabs survive so multi-line review text keeps its shape.
func removeControlCharacters(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// SanitizeHTML escapes HTML special characters.
func SanitizeHTML(s string) string {
	return html.EscapeString(s)
}

// SanitizeForSQL removes common SQL injection patterns. Queries always use
// bind parameters; this is defense for free-text fields that end up in logs
// or search indexes.
func SanitizeForSQL(s string) string {
	for _, p := range sqlInjectionPatterns {
		s = p.ReplaceAllString(s, "")
	}
	return s
}

// SanitizeForXSS removes script blocks, dangerous tags, inline event
// handlers and the javascript: protocol.
func SanitizeForXSS(s string) string {
	for _, p := range xssPatterns {
		s = p.ReplaceAllString(s, "")
	}
	return s
}

// SanitizeEmail lowercases and strips characters outside the email alphabet.
func SanitizeEmail(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '@' || r == '.' || r == '+' || r == '_' || r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SanitizePhone keeps digits and plus signs, dropping formatting.
func SanitizePhone(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '+' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SanitizeAlphanumeric keeps unicode letters and digits only.
func SanitizeAlphanumeric(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SanitizeFilename removes path separators and traversal sequences,
// replaces unsafe characters and caps the length at 255 bytes.
func SanitizeFilename(s string) string {
	s = strings.ReplaceAll(s, "/", "")
	s = strings.ReplaceAll(s, "\\", "")
	for strings.Contains(s, "..") {
		s = strings.ReplaceAll(s, "..", "")
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := b.String()
	if len(out) > 255 {
		out = out[:255]
	}
	return out
}

// SanitizeURL accepts only http(s) URLs and rejects anything carrying a
// javascript: payload.
func SanitizeURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	lower := strings.ToLower(s)
	if strings.Contains(lower, "javascript:") {
		return ""
	}
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return ""
	}
	return s
}

// StripHTMLTags removes every HTML tag, keeping inner text.
func StripHTMLTags(s string) string {
	return htmlTagPattern.ReplaceAllString(s, "")
}

// StripNonAllowedHTMLTags keeps a small whitelist of formatting tags with
// their attributes stripped, and removes everything else.
func StripNonAllowedHTMLTags(s string) string {
	return anyTagPattern.ReplaceAllStringFunc(s, func(tag string) string {
		m := anyTagPattern.FindStringSubmatch(tag)
		if len(m) < 2 {
			return ""
		}
		name := strings.ToLower(m[1])
		if !allowedHTMLTags[name] {
			return ""
		}
		if strings.HasPrefix(tag, "</") {
			return "</" + name + ">"
		}
		return "<" + name + ">"
	})
}

// TruncateString cuts s to at most maxLength bytes.
func TruncateString(s string, maxLength int) string {
	if maxLength <= 0 {
		return ""
	}
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength]
}

// NormalizeWhitespace collapses runs of whitespace into single spaces.
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ContainsSQLInjection reports whether s matches a known injection pattern.
func ContainsSQLInjection(s string) bool {
	for _, p := range sqlInjectionPatterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// ContainsXSS reports whether s matches a known XSS pattern.
func ContainsXSS(s string) bool {
	for _, p := range xssPatterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// SanitizeInput runs the full pipeline used for free-text fields such as
// review comments: control-char strip, XSS and SQL pattern removal,
// whitespace normalization and a length cap.
func SanitizeInput(s string, maxLength int) string {
	s = SanitizeString(s)
	s = SanitizeForXSS(s)
	s = SanitizeForSQL(s)
	s = NormalizeWhitespace(s)
	return TruncateString(s, maxLength)
}

// UserInput bundles the profile fields accepted from clients.
type UserInput struct {
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// Sanitize cleans every field in place.
func (u *UserInput) Sanitize() {
	u.Email = SanitizeEmail(u.Email)
	u.Phone = SanitizePhone(u.Phone)
	u.Name = SanitizeInput(u.Name, 100)
	u.Description = SanitizeInput(u.Description, 1000)
	u.URL = SanitizeURL(u.URL)
}
