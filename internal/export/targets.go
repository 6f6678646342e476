package export

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
)

// DirTarget saves downloads as files in a directory.
type DirTarget struct {
	dir string
}

// NewDirTarget returns a target writing into dir, created on first delivery.
func NewDirTarget(dir string) *DirTarget {
	return &DirTarget{dir: dir}
}

// Deliver writes the blob to dir/<link.Download> via a temp file and rename,
// so a failed write never leaves a partial file behind.
func (t *DirTarget) Deliver(_ context.Context, link Link, urls *ObjectURLs) (string, error) {
	blob, err := Resolve(link, urls)
	if err != nil {
		return "", err
	}
	name := filepath.Base(link.Download)
	if name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("invalid file name %q", link.Download)
	}
	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	tmp, err := os.CreateTemp(t.dir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(blob.Body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", name, err)
	}

	dest := filepath.Join(t.dir, name)
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("rename %s: %w", name, err)
	}
	return dest, nil
}

// ResponseTarget streams downloads to an HTTP client as attachments.
type ResponseTarget struct {
	w http.ResponseWriter
}

// NewResponseTarget wraps w.
func NewResponseTarget(w http.ResponseWriter) *ResponseTarget {
	return &ResponseTarget{w: w}
}

// Deliver writes the blob with Content-Disposition: attachment.
func (t *ResponseTarget) Deliver(_ context.Context, link Link, urls *ObjectURLs) (string, error) {
	blob, err := Resolve(link, urls)
	if err != nil {
		return "", err
	}

	h := t.w.Header()
	h.Set("Content-Type", blob.MIMEType)
	h.Set("Content-Length", strconv.Itoa(len(blob.Body)))
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": link.Download}))
	t.w.WriteHeader(http.StatusOK)
	if _, err := t.w.Write(blob.Body); err != nil {
		return "", fmt.Errorf("write response: %w", err)
	}
	return link.Download, nil
}
