package protocol

import "fmt"

// Version is a version number as int
type Version uint32

// The version numbers, making grepping easier
const (
	VersionUnknown Version = 0
	Version1       Version = 0x1
	Version2       Version = 0x6b3343cf
)

// SupportedVersions lists the versions that the server supports,
// in descending order of preference.
var SupportedVersions = []Version{Version1, Version2}

// IsValidVersion says if the version is known and supported
func IsValidVersion(v Version) bool {
	return v == Version1 || IsSupportedVersion(SupportedVersions, v)
}

func (vn Version) String() string {
	switch vn {
	case VersionUnknown:
		return "unknown"
	case Version1:
		return "v1"
	case Version2:
		return "v2"
	default:
		return fmt.Sprintf("%#x", uint32(vn))
	}
}

// IsSupportedVersion returns true if the server supports this version
func IsSupportedVersion(supported []Version, v Version) bool {
	for _, t := range supported {
		if t == v {
			return true
		}
	}
	return false
}
