// Package semver checks host SDK versions against a supported SemVer range.
package semver

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	masterminds "github.com/Masterminds/semver/v3"
)

const logPrefix = "semver:compat"

var (
	// ErrVersionEmpty is returned when the host reports no SDK version.
	ErrVersionEmpty = errors.New("sdk version is empty")
	// ErrUnsupported is returned when the reported version is unparsable or
	// falls outside the supported range.
	ErrUnsupported = errors.New("sdk version not supported")
)

var majorOnlyRegex = regexp.MustCompile(`^\d+$`)

// IsMajorOnly checks if a range is a major-only specifier (e.g., "2").
func IsMajorOnly(rangeStr string) bool {
	return majorOnlyRegex.MatchString(rangeStr)
}

// NormalizeVersion extracts the SemVer part of an SDK version string. Hosts
// report forms such as "v1.4.2" or "1.4.2 (build 311)".
func NormalizeVersion(version string) string {
	fields := strings.Fields(version)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimPrefix(fields[0], "v")
}

// SatisfiesRange checks if a version string satisfies a range. A major-only
// range matches every version with that major.
func SatisfiesRange(version, rangeStr string) bool {
	sv, err := masterminds.NewVersion(NormalizeVersion(version))
	if err != nil {
		return false
	}

	if IsMajorOnly(rangeStr) {
		return fmt.Sprintf("%d", sv.Major()) == rangeStr
	}

	constraint, err := masterminds.NewConstraint(rangeStr)
	if err != nil {
		return false
	}
	return constraint.Check(sv)
}

// CheckSDKVersion reports whether version is acceptable under constraint.
// An empty constraint accepts any parsable version. Errors wrap
// ErrVersionEmpty or ErrUnsupported.
func CheckSDKVersion(version, constraint string) error {
	normalized := NormalizeVersion(version)
	if normalized == "" {
		return fmt.Errorf("%s - %w", logPrefix, ErrVersionEmpty)
	}
	if _, err := masterminds.NewVersion(normalized); err != nil {
		return fmt.Errorf("%s - cannot parse sdk version %q: %w", logPrefix, version, ErrUnsupported)
	}

	constraint = strings.TrimSpace(constraint)
	if constraint == "" {
		return nil
	}
	if !IsMajorOnly(constraint) {
		if _, err := masterminds.NewConstraint(constraint); err != nil {
			return fmt.Errorf("%s - invalid version constraint %q: %v", logPrefix, constraint, err)
		}
	}
	if !SatisfiesRange(normalized, constraint) {
		return fmt.Errorf("%s - sdk version %s outside %q: %w", logPrefix, normalized, constraint, ErrUnsupported)
	}
	return nil
}

// ValidateConstraint reports whether constraint can be used with CheckSDKVersion.
func ValidateConstraint(constraint string) error {
	constraint = strings.TrimSpace(constraint)
	if constraint == "" || IsMajorOnly(constraint) {
		return nil
	}
	if _, err := masterminds.NewConstraint(constraint); err != nil {
		return fmt.Errorf("%s - invalid version constraint %q: %w", logPrefix, constraint, err)
	}
	return nil
}
