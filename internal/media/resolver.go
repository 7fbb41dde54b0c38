package media

import (
	"context"
	"io"
	"path/filepath"
	"strings"
)

// Resolver turns a stored video reference into a readable byte stream. The
// pipeline only consumes streams; storage lifecycle belongs to the backend.
type Resolver interface {
	Resolve(ctx context.Context, storageRef string) (io.ReadCloser, error)
}

var allowedExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".mkv":  true,
	".webm": true,
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
}

func AllowedExtension(name string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(name))]
}
