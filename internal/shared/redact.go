package shared

import (
	"regexp"
	"strings"
)

const redactedPlaceholder = "[REDACTED]"

// secretPatterns matches common secret-bearing patterns in log/error strings.
var secretPatterns = []*regexp.Regexp{
	// Telegram bot tokens: "123456789:AAExxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx".
	regexp.MustCompile(`\b\d{6,12}:[A-Za-z0-9_-]{30,}\b`),
	// Generic secret-bearing key=value or key: value pairs.
	regexp.MustCompile(`(?i)(bot[_-]?token|jwt[_-]?secret|api[_-]?key|apikey|secret[_-]?key|auth[_-]?token|bearer|credentials?[_-]?json)\s*[:=]\s*"?([^\s"]{8,})"?`),
	// Bearer tokens in Authorization headers.
	regexp.MustCompile(`(?i)(Bearer\s+)([A-Za-z0-9_\-./+=]{16,})`),
	// Firebase service-account JSON blobs pasted inline (contain "private_key").
	regexp.MustCompile(`(?is)\{[^{}]*"private_key"[^{}]*\}`),
}

// Redact replaces secret-bearing patterns in the input string with
// [REDACTED]. Used by the logging ReplaceAttr hook and by the
// activation-log / audit writers before anything touches disk.
func Redact(input string) string {
	if input == "" {
		return input
	}
	result := input
	for _, pat := range secretPatterns {
		result = pat.ReplaceAllStringFunc(result, func(match string) string {
			submatch := pat.FindStringSubmatch(match)
			if len(submatch) >= 3 {
				return submatch[1] + redactedPlaceholder
			}
			return redactedPlaceholder
		})
	}
	return result
}

// RedactEnvValue returns redactedPlaceholder when the key name looks
// secret-bearing, otherwise returns value unchanged.
func RedactEnvValue(key, value string) string {
	keyLower := strings.ToLower(key)
	sensitiveKeys := []string{"bot_token", "api_key", "apikey", "secret", "token", "password", "credential"}
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(keyLower, sensitive) {
			return redactedPlaceholder
		}
	}
	return value
}
