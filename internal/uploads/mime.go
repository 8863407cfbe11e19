package uploads

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var allowedImageTypes = []string{"image/png", "image/jpeg", "image/webp", "image/gif"}

var allowedDescription = humanReadableList([]string{"PNG", "JPEG", "WebP", "GIF"})

// sniffImageType detects the MIME type from the payload bytes, ignoring any client-supplied header.
func sniffImageType(payload []byte) (string, bool) {
	detected := mimetype.Detect(payload)
	for _, allowed := range allowedImageTypes {
		if detected.Is(allowed) {
			return allowed, true
		}
	}
	return detected.String(), false
}

func humanReadableList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return fmt.Sprintf("%s or %s", items[0], items[1])
	default:
		return fmt.Sprintf("%s, or %s", strings.Join(items[:len(items)-1], ", "), items[len(items)-1])
	}
}
