package services

import (
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// illegalNameChars matches everything that may not appear in a display
// name: the Windows-reserved set plus control bytes. Both path separators
// are in the set, so a percent-encoded traversal that survives the path
// strip still gets neutralized.
var illegalNameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// SanitizeFileName normalizes a client-supplied filename into a safe
// display name. Path components are stripped first (both separator
// styles), percent-decoding is applied exactly once, illegal characters
// become underscores, and the result is capped at limit bytes with the
// extension preserved. An empty result is replaced with a generated
// placeholder so the invariant "display names are never empty" holds
// before any record is created.
func SanitizeFileName(name string, limit int) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}

	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}

	name = illegalNameChars.ReplaceAllString(name, "_")
	name = strings.TrimSpace(name)

	if strings.Trim(name, "_. ") == "" {
		name = "upload-" + uuid.New().String()[:8]
	}

	if limit > 0 && len(name) > limit {
		ext := filepath.Ext(name)
		if len(ext) >= limit {
			// Degenerate "all extension" name; a plain cut is the best we can do.
			return truncateAtRune(name, limit)
		}
		name = truncateAtRune(name, limit-len(ext)) + ext
	}

	return name
}

// truncateAtRune cuts s to at most n bytes without splitting a rune, so a
// capped multi-byte name stays valid UTF-8.
func truncateAtRune(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
