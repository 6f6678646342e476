package intake

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// ErrUnsupportedMIME is returned for uploads that are not a supported image type.
var ErrUnsupportedMIME = errors.New("unsupported image type")

// ErrImageTooLarge is returned for images above MaxImageBytes.
var ErrImageTooLarge = errors.New("image too large")

// MaxImageBytes is the largest image sent inline to the model.
const MaxImageBytes = 20 << 20

var supportedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/heic": true,
	"image/heif": true,
}

// DetectMIME picks the image type for an upload. A declared image type
// wins, then the file extension, then content sniffing.
func DetectMIME(fileName, declared string, data []byte) (string, error) {
	candidates := []string{declared}
	if ext := strings.ToLower(filepath.Ext(fileName)); ext != "" {
		candidates = append(candidates, extensionFallback[ext], mime.TypeByExtension(ext))
	}
	candidates = append(candidates, http.DetectContentType(data))

	for _, c := range candidates {
		if c == "" {
			continue
		}
		mt, _, err := mime.ParseMediaType(c)
		if err != nil {
			continue
		}
		if supportedMIME[mt] {
			return mt, nil
		}
		// A declared image type is authoritative; generic types fall through.
		if c == declared && strings.HasPrefix(mt, "image/") {
			return "", fmt.Errorf("%w: %s", ErrUnsupportedMIME, mt)
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedMIME, fileName)
}

// Some platforms ship mime tables without these.
var extensionFallback = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".heic": "image/heic",
	".heif": "image/heif",
}
