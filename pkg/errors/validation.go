package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidatePopulationName validates a population label for safety and correctness.
// Labels are embedded in newick strings, tab-separated graph files and file names,
// so the validation rules are intentionally conservative:
//   - No empty names
//   - No control characters or whitespace
//   - No newick metacharacters ( ) , : ;
//   - No path separators or traversal sequences
//   - Maximum length of 64 characters
func ValidatePopulationName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "population name cannot be empty")
	}

	if len(name) > 64 {
		return New(ErrCodeInvalidInput, "population name too long (max 64 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidInput, "population name %q contains whitespace or control characters", name)
		}
	}

	// Characters with structural meaning in newick or graph files
	if strings.ContainsAny(name, "(),:;\"'") {
		return New(ErrCodeInvalidInput, "population name %q contains newick metacharacters", name)
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"/",    // Path separator
		"\\",   // Backslash (Windows path)
		"\x00", // Null byte
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidInput, "population name %q contains invalid characters: %q", name, pattern)
		}
	}

	return nil
}

// reservedLabelRegex matches labels the topology builder generates itself:
// sequential internal labels (n1, n2, ...) and admixture merge labels (a1, a2, ...).
var reservedLabelRegex = regexp.MustCompile(`^[na][0-9]+$`)

// ValidatePopulations validates a full population list against an outgroup label.
// It rejects duplicate labels and labels reserved for generated internal nodes,
// and requires at least two populations besides the outgroup.
func ValidatePopulations(populations []string, outgroup string) error {
	if outgroup == "" {
		return New(ErrCodeInvalidInput, "outgroup cannot be empty")
	}
	if err := ValidatePopulationName(outgroup); err != nil {
		return err
	}

	seen := make(map[string]bool, len(populations))
	rest := 0
	for _, name := range populations {
		if err := ValidatePopulationName(name); err != nil {
			return err
		}
		if reservedLabelRegex.MatchString(name) {
			return New(ErrCodeLabelCollision, "population name %q collides with generated internal labels", name)
		}
		if seen[name] {
			return New(ErrCodeLabelCollision, "duplicate population name %q", name)
		}
		seen[name] = true
		if name != outgroup {
			rest++
		}
	}

	if rest < 2 {
		return New(ErrCodeInvalidInput, "need at least two populations besides the outgroup, got %d", rest)
	}

	return nil
}

// ValidateOutputPrefix validates a file path prefix used for run artifacts.
//
// Validation rules:
//   - Prefix cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidateOutputPrefix(prefix string) error {
	if prefix == "" {
		return New(ErrCodeInvalidInput, "output prefix cannot be empty")
	}

	const maxPrefixLength = 500
	if len(prefix) > maxPrefixLength {
		return New(ErrCodeInvalidInput, "output prefix too long (max %d characters)", maxPrefixLength)
	}

	for _, r := range prefix {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "output prefix contains invalid characters")
		}
	}

	if strings.Contains(prefix, "..") {
		return New(ErrCodeInvalidInput, "output prefix cannot contain path traversal sequences (..)")
	}

	if strings.Contains(prefix, "\\") {
		return New(ErrCodeInvalidInput, "output prefix cannot contain backslashes")
	}

	return nil
}

// hashRegex matches the short hex hashes used to key evaluated graphs.
var hashRegex = regexp.MustCompile(`^[0-9a-f]{7,40}$`)

// ValidateGraphHash validates a graph hash as used in artifact file names.
func ValidateGraphHash(hash string) error {
	if hash == "" {
		return New(ErrCodeInvalidInput, "graph hash cannot be empty")
	}

	if !hashRegex.MatchString(hash) {
		return New(ErrCodeInvalidInput, "invalid graph hash: %q", hash)
	}

	return nil
}
