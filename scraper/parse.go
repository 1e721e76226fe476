package scraper

import (
	"regexp"
	"strconv"
	"strings"

	"iphone-price-catalog/utils"
)

var (
	amountRegexp      = regexp.MustCompile(`\d[\d,]*`)
	reservationRegexp = regexp.MustCompile(`の予約.*`)
)

// ParseYen returns the first amount in s ("128,000円" → 128000), or 0 when
// s holds no digits.
func ParseYen(s string) int {
	m := amountRegexp.FindString(utils.Fold(s))
	if m == "" {
		return 0
	}
	return parseAmount(m)
}

// FindYen returns the amount captured by the first group of re's first match
// in text, or 0. text is expected to be folded already.
func FindYen(re *regexp.Regexp, text string) int {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return 0
	}
	return parseAmount(m[1])
}

// FindAllYen returns the amounts captured by the first group of every
// match of re in text, skipping tokens that are not numeric.
func FindAllYen(re *regexp.Regexp, text string) []int {
	var out []int
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if len(m) < 2 {
			continue
		}
		if n, ok := parseAmountOK(m[1]); ok {
			out = append(out, n)
		}
	}
	return out
}

// CleanModelName strips reservation noise and bracketed or dotted suffixes
// from a page title fragment: "iPhone 17【予約・購入】" → "iPhone 17".
func CleanModelName(s string) string {
	s = reservationRegexp.ReplaceAllString(s, "")
	if i := strings.IndexAny(s, "【・"); i >= 0 {
		s = s[:i]
	}
	s = strings.ReplaceAll(s, "予約", "")
	return utils.NormaliseText(s)
}

func parseAmount(s string) int {
	n, _ := parseAmountOK(s)
	return n
}

func parseAmountOK(s string) (int, bool) {
	s = strings.NewReplacer(",", "", "-", "").Replace(s)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
