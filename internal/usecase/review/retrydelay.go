package review

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultRetryDelay is used when a provider asks for a retry without
// naming a duration.
const DefaultRetryDelay = 5 * time.Second

// delayPatterns are tried in order against the lowercased message. Each
// captures the numeric delay in seconds. The retrydelay form matches the
// structured field Gemini embeds in quota errors ("retryDelay: 3s").
var delayPatterns = []*regexp.Regexp{
	regexp.MustCompile(`retry in (\d+(?:\.\d+)?) seconds?`),
	regexp.MustCompile(`retry after (\d+(?:\.\d+)?) seconds?`),
	regexp.MustCompile(`wait (\d+(?:\.\d+)?) seconds?`),
	regexp.MustCompile(`(\d+(?:\.\d+)?) seconds? before retry`),
	regexp.MustCompile(`retrydelay[^0-9]*(\d+(?:\.\d+)?)s`),
}

// bareRetryMarkers signal a rate limit without naming a duration; they
// map to DefaultRetryDelay. Checked only after the numeric patterns so
// an explicit delay always wins.
var bareRetryMarkers = []string{
	"429",
	"resource exhausted",
}

// ParseRetryDelay extracts a suggested wait duration from a free-text
// provider error message. A bare rate-limit marker without a numeric
// value yields DefaultRetryDelay. Malformed numbers never propagate an
// error: the pattern is skipped and matching continues.
func ParseRetryDelay(message string) (time.Duration, bool) {
	lower := strings.ToLower(message)

	for _, re := range delayPatterns {
		match := re.FindStringSubmatch(lower)
		if match == nil {
			continue
		}
		seconds, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			continue
		}
		return time.Duration(seconds * float64(time.Second)), true
	}

	for _, marker := range bareRetryMarkers {
		if strings.Contains(lower, marker) {
			return DefaultRetryDelay, true
		}
	}

	return 0, false
}
