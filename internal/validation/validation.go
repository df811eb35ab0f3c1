package validation

import (
	"net/url"
	"regexp"
	"strings"
)

// DatabaseIDPattern matches a Notion object id, with or without dashes.
var DatabaseIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-?[0-9a-fA-F]{4}-?[0-9a-fA-F]{4}-?[0-9a-fA-F]{4}-?[0-9a-fA-F]{12}$`)

// ValidateDatabaseID checks that id looks like a Notion database id.
func ValidateDatabaseID(id string) bool {
	return DatabaseIDPattern.MatchString(strings.TrimSpace(id))
}

// NormalizeDatabaseID strips dashes and lowercases a Notion id so equal ids compare equal.
func NormalizeDatabaseID(id string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(id), "-", ""))
}

// ValidateURL checks if a URL is valid and uses an allowed scheme (http/https only).
func ValidateURL(urlStr string) (bool, string) {
	if urlStr == "" {
		return false, "URL is required"
	}

	// Parse the URL
	u, err := url.Parse(urlStr)
	if err != nil {
		return false, "Invalid URL format"
	}

	// Check scheme - only allow http and https
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return false, "URL must use http:// or https:// scheme"
	}

	// Ensure host is present
	if u.Host == "" {
		return false, "URL must have a valid host"
	}

	return true, ""
}
