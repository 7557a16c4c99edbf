package storage

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// DefaultAllowedExtensions is the upload allow-list used when none is
// configured.
var DefaultAllowedExtensions = []string{
	"jpg", "jpeg", "png", "gif", "bmp", "webp", "svg",
	"pdf", "txt", "doc", "docx", "xls", "xlsx", "ppt", "pptx", "odt", "ods", "odp",
	"zip", "rar", "7z", "tar", "gz", "bz2", "xz", "zst",
	"mp3", "mp4", "avi", "mov", "wmv", "flv", "mkv", "webm", "ogg", "wav",
	"md", "json", "xml", "csv", "epub", "mobi",
}

// Extension returns the lower-cased text after the last dot of filename. A
// name without a dot is its own extension.
func Extension(filename string) string {
	if i := strings.LastIndex(filename, "."); i >= 0 {
		filename = filename[i+1:]
	}
	return strings.ToLower(filename)
}

// ExtensionAllowed reports whether ext is in allowed.
func ExtensionAllowed(ext string, allowed []string) bool {
	return ext != "" && slices.Contains(allowed, ext)
}

// NewName returns a fresh attachment name with the given extension. The
// random part is a version 4 UUID.
func NewName(ext string) string {
	return uuid.NewString() + "." + ext
}

// ValidateName rejects anything that is not a plain file name: separators,
// traversal and dot-files.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("storage: name is required")
	}
	if strings.ContainsAny(name, `/\`) || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("storage: invalid name: %s", name)
	}
	return nil
}
