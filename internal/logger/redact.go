package logger

import (
	"regexp"
	"strings"
)

// redactedValue replaces any value considered sensitive
const redactedValue = "[REDACTED]"

// sensitiveDataPatterns match credentials embedded in free-form strings
var sensitiveDataPatterns = []*regexp.Regexp{
	// Bearer tokens
	regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9-._~+/]+=*)`),

	// key=value style secrets
	regexp.MustCompile(`(?i)((api|access|auth|token|secret|key|passw(or)?d)[0-9a-z\-_\.]*[\s:=]+)([^;,\s]{5,})`),

	// user:password@ in URLs (MQTT brokers, Sentry DSNs)
	regexp.MustCompile(`(://[^:/@\s]+:)([^@\s]+)(@)`),
}

// sensitiveKeywords mark field keys whose values are always redacted
var sensitiveKeywords = []string{
	"password", "passwd", "secret", "credential", "token", "api_key",
	"apikey", "authorization", "cookie", "dsn",
}

// RedactSensitiveData replaces credentials embedded in input with [REDACTED]
func RedactSensitiveData(input string) string {
	if input == "" {
		return input
	}

	for i, pattern := range sensitiveDataPatterns {
		if i == len(sensitiveDataPatterns)-1 {
			input = pattern.ReplaceAllString(input, "${1}"+redactedValue+"${3}")
			continue
		}
		input = pattern.ReplaceAllString(input, "${1}"+redactedValue)
	}

	return input
}

// isSensitiveKey reports whether a field key names a credential
func isSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(keyLower, keyword) {
			return true
		}
	}
	return false
}

// redactField hides the whole value of sensitive keys and scrubs embedded
// credentials from the rest.
func redactField(key, value string) string {
	if value == "" {
		return value
	}
	if isSensitiveKey(key) {
		return redactedValue
	}
	if !strings.ContainsAny(value, "=:") {
		return value
	}
	return RedactSensitiveData(value)
}
