package storage

import (
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxFileNameLength = 120

// BuildObjectKey composes "<category>/<unix-millis>-<file name>" for an uploaded image.
// The file name is folded to ASCII so object keys stay URL safe.
func BuildObjectKey(category, fileName string, at time.Time) (string, error) {
	segment, err := validateSegment("category", category)
	if err != nil {
		return "", err
	}
	name, err := NormalizeFileName(fileName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%d-%s", segment, at.UnixMilli(), name), nil
}

// NormalizeFileName strips diacritics, replaces characters outside
// [A-Za-z0-9._-] with dashes and bounds the length while keeping the extension.
func NormalizeFileName(fileName string) (string, error) {
	base := strings.TrimSpace(path.Base(strings.ReplaceAll(fileName, "\\", "/")))
	if base == "" || base == "." || base == "/" {
		return "", fmt.Errorf("storage: fileName is required")
	}

	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), base)
	if err != nil {
		return "", fmt.Errorf("storage: normalise fileName: %w", err)
	}

	var b strings.Builder
	lastDash := false
	for _, r := range folded {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '_'):
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteRune('-')
				lastDash = true
			}
		}
	}
	name := strings.Trim(b.String(), "-.")
	for strings.Contains(name, "..") {
		name = strings.ReplaceAll(name, "..", ".")
	}
	if name == "" {
		return "", fmt.Errorf("storage: fileName %q has no usable characters", fileName)
	}
	if len(name) > maxFileNameLength {
		ext := path.Ext(name)
		if len(ext) > 10 {
			ext = ""
		}
		name = name[:maxFileNameLength-len(ext)] + ext
	}
	return name, nil
}

func validateSegment(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("storage: %s is required", name)
	}
	if strings.ContainsAny(value, "/\\") {
		return "", fmt.Errorf("storage: %s contains invalid path characters", name)
	}
	if strings.Contains(value, "..") {
		return "", fmt.Errorf("storage: %s contains invalid traversal sequence", name)
	}
	return value, nil
}
