package http

import (
	"fmt"
	"regexp"
)

// MaxLoggedResponseLength caps how much response text reaches the logs.
const MaxLoggedResponseLength = 200

// TruncateForLogging shortens a response string for log output so review
// text and any secrets it quotes never reach a log aggregator in full.
func TruncateForLogging(response string) string {
	if len(response) <= MaxLoggedResponseLength {
		return response
	}
	return response[:MaxLoggedResponseLength] + fmt.Sprintf("... [truncated, total length=%d bytes]", len(response))
}

var secretQueryParams = []string{"key", "apiKey", "api_key", "token", "access_token"}

// RedactURLSecrets redacts API keys and other secrets from URLs embedded
// in error messages. The Gemini endpoint carries the key as a ?key= query
// parameter, so any error that echoes the URL would otherwise leak it.
func RedactURLSecrets(text string) string {
	if text == "" {
		return text
	}
	result := text
	for _, param := range secretQueryParams {
		re := regexp.MustCompile(param + `=([^&"\s]+)`)
		result = re.ReplaceAllString(result, param+"=[REDACTED]")
	}
	return result
}
