package moderation

// User-facing phrasing for internal flag reasons.
var reasonMessages = map[string]string{
	"asking for money": "asking for money",
	"harassment":       "harassment",
	"hate":             "hate speech",
	"sexual":           "inappropriate content",
	"spam":             "spam",
	"scam":             "suspicious activity",
	"doxx":             "sharing personal info",
	"other":            "policy violation",
}

// FormatReason maps an internal reason to its user-facing wording,
// falling back to the reason itself.
func FormatReason(reason string) string {
	if msg, ok := reasonMessages[reason]; ok {
		return msg
	}
	return reason
}
