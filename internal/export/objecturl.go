package export

import (
	"sync"

	"github.com/google/uuid"
)

// Blob is an in-memory payload tagged with its MIME type.
type Blob struct {
	Body     []byte
	MIMEType string
}

// ObjectURLs hands out transient "blob:" references to in-memory blobs.
// Every URL returned by Create must be released with Revoke.
type ObjectURLs struct {
	mu    sync.Mutex
	blobs map[string]Blob
}

// NewObjectURLs returns an empty registry.
func NewObjectURLs() *ObjectURLs {
	return &ObjectURLs{blobs: make(map[string]Blob)}
}

// Create registers b and returns its URL.
func (o *ObjectURLs) Create(b Blob) string {
	url := "blob:" + uuid.NewString()
	o.mu.Lock()
	o.blobs[url] = b
	o.mu.Unlock()
	return url
}

// Resolve returns the blob behind url, if it is still live.
func (o *ObjectURLs) Resolve(url string) (Blob, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	b, ok := o.blobs[url]
	return b, ok
}

// Revoke releases url. Revoking an unknown URL is a no-op.
func (o *ObjectURLs) Revoke(url string) {
	o.mu.Lock()
	delete(o.blobs, url)
	o.mu.Unlock()
}

// Len reports how many URLs are live.
func (o *ObjectURLs) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.blobs)
}
