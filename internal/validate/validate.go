package validate

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var (
	reEmail = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	rePhone = regexp.MustCompile(`^\+?[0-9 ().-]{6,20}$`)
)

func between(s string, min, max int) bool {
	n := utf8.RuneCountInString(s)
	return n >= min && n <= max
}

func Email(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || len(s) > 254 {
		return "", false
	}
	return s, reEmail.MatchString(s)
}

// Password checks length only; 72 bytes is bcrypt's limit.
func Password(s string) bool {
	return len(s) >= 8 && len(s) <= 72
}

// PersonName is a first or last name.
func PersonName(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, between(s, 2, 50)
}

// Phone is optional; the empty string is valid.
func Phone(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s == "" || rePhone.MatchString(s)
}

func ProductName(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, between(s, 3, 100)
}

func Description(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, between(s, 10, 2000)
}

// Price must be at least one cent and carry no more than two decimals.
func Price(d decimal.Decimal) bool {
	return d.GreaterThanOrEqual(decimal.New(1, -2)) && d.Equal(d.Round(2))
}

// URL accepts absolute http(s) URLs only.
func URL(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 2048 {
		return "", false
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", false
	}
	return s, true
}

// Q trims a search query and caps its length.
func Q(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > 100 {
		s = string([]rune(s)[:100])
	}
	return s
}

// Text is a free-form optional field such as notes or a shipping address.
func Text(s string, max int) (string, bool) {
	s = strings.TrimSpace(s)
	return s, utf8.RuneCountInString(s) <= max
}
