package constants

import "strings"

// AllowedExtensions holds the file extensions accepted for offer uploads.
// Only PDF offers are processed; everything else is rejected at the edge.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// MaxUploadBytesDefault caps uploaded offer documents (10 MB).
const MaxUploadBytesDefault = 10 << 20

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsAllowedExt reports whether the (possibly dotted, mixed-case) extension
// is accepted for upload.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}
