/*
 * Copyright (c) 2019 The chirp authors.
 * See the LICENSE file for more information.
 */

package version

import (
	"fmt"
)

// ApplicationVersion represents chirp application version.
var ApplicationVersion = NewVersion(0, 1, 0)

// SemanticVersion represents a semantic version value.
type SemanticVersion struct {
	major uint
	minor uint
	patch uint
}

// NewVersion initializes a new instance of SemanticVersion.
func NewVersion(major, minor, patch uint) *SemanticVersion {
	return &SemanticVersion{
		major: major,
		minor: minor,
		patch: patch,
	}
}

// String returns a string that represents this instance.
func (v *SemanticVersion) String() string {
	return fmt.Sprintf("v%d.%d.%d", v.major, v.minor, v.patch)
}

// IsEqual returns true in case version instance is equal to the one passed as argument.
func (v *SemanticVersion) IsEqual(v2 *SemanticVersion) bool {
	return v == v2 || v.compare(v2) == 0
}

// IsLess returns true in case version instance is less than the one passed as argument.
func (v *SemanticVersion) IsLess(v2 *SemanticVersion) bool {
	return v != v2 && v.compare(v2) < 0
}

// IsLessOrEqual returns true in case version instance is less or equal than the one passed as argument.
func (v *SemanticVersion) IsLessOrEqual(v2 *SemanticVersion) bool {
	return v == v2 || v.compare(v2) <= 0
}

// IsGreater returns true in case version instance is greater than the one passed as argument.
func (v *SemanticVersion) IsGreater(v2 *SemanticVersion) bool {
	return v != v2 && v.compare(v2) > 0
}

// IsGreaterOrEqual returns true in case version instance is greater or equal than the one passed as argument.
func (v *SemanticVersion) IsGreaterOrEqual(v2 *SemanticVersion) bool {
	return v == v2 || v.compare(v2) >= 0
}

func (v *SemanticVersion) compare(v2 *SemanticVersion) int {
	if v.major != v2.major {
		return int(v.major) - int(v2.major)
	}
	if v.minor != v2.minor {
		return int(v.minor) - int(v2.minor)
	}
	return int(v.patch) - int(v2.patch)
}
