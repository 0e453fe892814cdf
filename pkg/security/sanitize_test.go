package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"trims whitespace", "  great trade  ", "great trade"},
		{"removes null bytes", "great\x00trade", "greattrade"},
		{"removes control chars", "a\x01\x02\x03b", "ab"},
		{"preserves newlines", "line one\nline two", "line one\nline two"},
		{"preserves tabs", "a\tb", "a\tb"},
		{"preserves unicode", "fair deal 世界 👍", "fair deal 世界 👍"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeString(tt.input))
		})
	}
}

func TestSanitizeEmail(t *testing.T) {
	assert.Equal(t, "trader+swap@example.com", SanitizeEmail("  Trader+Swap@Example.COM  "))
	assert.Equal(t, "nospaces@ex.com", SanitizeEmail("no spaces@ex.com"))
	assert.Equal(t, "quotes@ex.com", SanitizeEmail(`"quotes"@ex.com`))
}

func TestSanitizePhone(t *testing.T) {
	assert.Equal(t, "+15551234567", SanitizePhone("+1 (555) 123-4567"))
	assert.Equal(t, "", SanitizePhone("no digits here"))
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "evidence.png", "evidence.png"},
		{"strips path separators", "../etc/passwd", "etcpasswd"},
		{"strips nested traversal", "....//secret", "secret"},
		{"replaces unsafe chars", "a b?.txt", "a_b_.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeFilename(tt.input))
		})
	}

	long := strings.Repeat("x", 300) + ".png"
	assert.Len(t, SanitizeFilename(long), 255)
}

func TestSanitizeURL(t *testing.T) {
	assert.Equal(t, "https://swapgrid.example/p/1", SanitizeURL(" https://swapgrid.example/p/1 "))
	assert.Equal(t, "", SanitizeURL("javascript:alert(1)"))
	assert.Equal(t, "", SanitizeURL("ftp://files.example"))
	assert.Equal(t, "", SanitizeURL("https://ex.com/?q=javascript:alert(1)"))
	assert.Equal(t, "", SanitizeURL(""))
}

func TestStripHTMLTags(t *testing.T) {
	assert.Equal(t, "smooth trade, would deal again",
		StripHTMLTags("<p>smooth trade, <b>would deal again</b></p>"))
}

func TestStripNonAllowedHTMLTags(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"keeps whitelist", "<b>fast</b> and <em>honest</em>", "<b>fast</b> and <em>honest</em>"},
		{"drops script", "<script>alert(1)</script>hi", "alert(1)hi"},
		{"strips attributes", `<b onclick="x()">bold</b>`, "<b>bold</b>"},
		{"drops unknown tags", "<marquee>wow</marquee>", "wow"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripNonAllowedHTMLTags(tt.input))
		})
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", NormalizeWhitespace("  a \t b\n\nc "))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "abc", TruncateString("abc", 10))
	assert.Equal(t, "ab", TruncateString("abcdef", 2))
	assert.Equal(t, "", TruncateString("abc", 0))
}

func TestContainsSQLInjection(t *testing.T) {
	assert.True(t, ContainsSQLInjection("1 UNION SELECT password FROM users"))
	assert.True(t, ContainsSQLInjection("; drop table reviews"))
	assert.False(t, ContainsSQLInjection("seller selected a great price"))
	assert.False(t, ContainsSQLInjection("we met at the union station"))
}

func TestContainsXSS(t *testing.T) {
	assert.True(t, ContainsXSS("<script>steal()</script>"))
	assert.True(t, ContainsXSS(`<img onerror=alert(1)>`))
	assert.True(t, ContainsXSS("javascript:void(0)"))
	assert.False(t, ContainsXSS("honest seller, on time"))
}

func TestSanitizeInput(t *testing.T) {
	got := SanitizeInput("  <script>x</script>great   seller\x00, met on time  ", 1000)
	assert.Equal(t, "great seller, met on time", got)

	assert.Len(t, SanitizeInput(strings.Repeat("a ", 600), 100), 100)
}

func TestUserInput_Sanitize(t *testing.T) {
	in := UserInput{
		Email:       " Buyer@Example.COM ",
		Phone:       "+1 555-000-1111",
		Name:        "  Avery <b>T</b>  ",
		Description: "trades\x00 electronics",
		URL:         "javascript:alert(1)",
	}
	in.Sanitize()

	assert.Equal(t, "buyer@example.com", in.Email)
	assert.Equal(t, "+15550001111", in.Phone)
	assert.Equal(t, "Avery <b>T</b>", in.Name)
	assert.Equal(t, "trades electronics", in.Description)
	assert.Equal(t, "", in.URL)
}
