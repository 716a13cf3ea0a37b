// Package validation screens message text against prohibited patterns
// before it is persisted. Pure functions, no I/O. The patterns are
// heuristic; false positives and negatives are expected.
package validation

import "regexp"

// linkRegex catches full URLs, www-prefixed hosts and bare domain-like
// tokens with an optional path.
var linkRegex = regexp.MustCompile(`(?i)(https?://\S+|www\.\S+|\b[a-z0-9-]+\.[a-z]{2,}(?:/\S*)?)`)

// walletAddressRegexes cover the common chain address shapes. Go's regexp
// has no alternation limit but keeping them separate reads better and
// lets tests pin each one.
var walletAddressRegexes = []*regexp.Regexp{
	// Ethereum: 0x + exactly 40 hex chars.
	regexp.MustCompile(`\b0[xX][a-fA-F0-9]{40}\b`),
	// Bitcoin legacy: 1 or 3 + base58, 25-34 chars.
	regexp.MustCompile(`\b[13][a-km-zA-HJ-NP-Z1-9]{25,34}\b`),
	// Bitcoin bech32: bc1 + lowercase alphanumeric.
	regexp.MustCompile(`\bbc1[a-z0-9]{39,59}\b`),
	// Solana-length base58 (no 0, O, I, l).
	regexp.MustCompile(`\b[1-9A-HJ-NP-Za-km-z]{32,44}\b`),
	// Long hex strings: likely keys or addresses of other chains.
	regexp.MustCompile(`\b[a-fA-F0-9]{48,128}\b`),
}

// ContainsLink reports whether text contains a URL or a bare domain-like
// token.
func ContainsLink(text string) bool {
	return linkRegex.MatchString(text)
}

// ContainsWalletAddress reports whether text contains something shaped
// like a cryptocurrency address.
func ContainsWalletAddress(text string) bool {
	for _, re := range walletAddressRegexes {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// ContainsProhibited reports whether text trips any screen.
func ContainsProhibited(text string) bool {
	return ContainsLink(text) || ContainsWalletAddress(text)
}

// Reason returns the reason literal reported to the sender for flagged
// text, or "" if the text is clean.
func Reason(text string) string {
	switch {
	case ContainsLink(text):
		return "links"
	case ContainsWalletAddress(text):
		return "wallet_address"
	default:
		return ""
	}
}
