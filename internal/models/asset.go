package models

// IsDefaultAsset reports whether path is one of the shared default assets,
// which are never removed from storage.
func IsDefaultAsset(path string) bool {
	return path == "" || path == DefaultAvatar || path == DefaultThumbnail
}
