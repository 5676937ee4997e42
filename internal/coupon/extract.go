package coupon

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	datePattern       = regexp.MustCompile(`(\d{1,2}/\d{1,2}/\d{4})`)
	percentPattern    = regexp.MustCompile(`(\d+)%\s*(?:OFF|off|savings)`)
	dollarPattern     = regexp.MustCompile(`\$(\d+)\s*(?:OFF|off|savings)`)
	creditsPattern    = regexp.MustCompile(`\$(\d+)\s*CREDITS`)
	expiryLinePattern = regexp.MustCompile(`^Expiry:`)
	leadingOffPattern = regexp.MustCompile(`^\d+%?\s*OFF`)
	revealedCode      = regexp.MustCompile(`^[A-Za-z0-9]+$`)
)

// DefaultCreditsToken is emitted for loyalty-credit promotions that do not
// state an amount. It reflects the one credit value observed on the source page.
const DefaultCreditsToken = "$8CREDITS"

// minDescriptionLength is the length a plain-text line must exceed to be a description
const minDescriptionLength = 20

// ExtractCode infers the discount descriptor from a description and the wider
// search text. Rules are tried in a fixed order and the first match wins.
func ExtractCode(description, searchText string) string {
	combined := description + " " + searchText

	if m := percentPattern.FindStringSubmatch(combined); m != nil {
		return m[1] + "%OFF"
	}
	if m := dollarPattern.FindStringSubmatch(combined); m != nil {
		return "$" + m[1] + "OFF"
	}
	if strings.Contains(combined, "CREDITS") {
		if m := creditsPattern.FindStringSubmatch(combined); m != nil {
			return "$" + m[1] + "CREDITS"
		}
		// TODO: confirm with the source page whether unnamed credit amounts are always $8.
		return DefaultCreditsToken
	}
	if strings.Contains(combined, "GIFTCARD") || strings.Contains(combined, "GIFT CARD") {
		return "GIFTCARD"
	}
	return NA
}

// ExtractDate returns the first D/M/YYYY date in text, or NA
func ExtractDate(text string) string {
	if m := datePattern.FindString(text); m != "" {
		return m
	}
	return NA
}

// ExtractLabelledExpiry returns the date on the first line mentioning "Expiry", or NA
func ExtractLabelledExpiry(lines []string) string {
	for _, line := range lines {
		if !strings.Contains(line, "Expiry") {
			continue
		}
		if date := ExtractDate(line); date != NA {
			return date
		}
	}
	return NA
}

// ExtractDescriptionLine picks the first line that reads like a human sentence:
// not an expiry label, not a leading "N% OFF" badge, not a verification or
// navigation marker, not the trigger itself, and longer than 20 characters.
func ExtractDescriptionLine(lines []string, trigger string) string {
	for _, line := range lines {
		switch {
		case expiryLinePattern.MatchString(line):
			continue
		case leadingOffPattern.MatchString(line):
			continue
		case strings.Contains(line, "Verified"), strings.Contains(line, "arrow"):
			continue
		case trigger != "" && strings.Contains(line, trigger):
			continue
		}
		if utf8.RuneCountInString(line) > minDescriptionLength {
			return line
		}
	}
	return ""
}

// ValidRevealedCode reports whether text looks like an issued code shown in a
// reveal panel: 3 to 20 ASCII letters or digits.
func ValidRevealedCode(text string) bool {
	n := len(text)
	return n >= 3 && n <= 20 && revealedCode.MatchString(text)
}

// Extract pulls description, descriptor token and expiry from one block
func Extract(block RawItemBlock) Fields {
	var description, expiry string
	switch block.Strategy {
	case StrategyPlainText:
		description = ExtractDescriptionLine(block.Lines, DefaultTrigger)
		expiry = ExtractLabelledExpiry(block.Lines)
	default:
		description = block.PrimaryText
		expiry = ExtractDate(block.SearchText)
	}
	description = CleanText(description)

	token := ExtractCode(description, block.SearchText)
	return Fields{
		Description: description,
		Code:        token,
		Discount:    token,
		ExpiryDate:  expiry,
	}
}
