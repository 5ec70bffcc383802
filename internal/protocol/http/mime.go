package http

// mimeTypes maps a file extension (without the dot) to its content type.
var mimeTypes = map[string]string{
	"gif":  "image/gif",
	"htm":  "text/html",
	"html": "text/html",
	"jpg":  "image/jpeg",
	"png":  "image/png",
}

// DefaultContentType is returned for unknown or missing extensions.
const DefaultContentType = "text/plain"

// ExtensionToType returns the content type registered for extension.
// Matching is exact; unknown extensions map to DefaultContentType.
func ExtensionToType(extension string) string {
	if t, ok := mimeTypes[extension]; ok {
		return t
	}
	return DefaultContentType
}

// PathExtension returns the extension of the last segment of path, without
// the leading dot. A dot inside a directory name does not count.
func PathExtension(path string) string {
	lastSlash := -1
	lastDot := -1
	for i := 0; i < len(path); i++ {
		switch path[i] {
		case '/':
			lastSlash = i
		case '.':
			lastDot = i
		}
	}
	if lastDot == -1 || lastDot < lastSlash {
		return ""
	}
	return path[lastDot+1:]
}
