package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

const (
	CSVMIMEType  = "text/csv;charset=utf-8;"
	TextMIMEType = "text/plain;charset=utf-8;"
)

// Link is a transient download link: the object URL of the payload and the
// file name the receiver should save it under.
type Link struct {
	Href     string
	Download string
}

// Target receives a download. It resolves link.Href through urls and returns
// where the file ended up (a path, a URL, or the file name for streamed responses).
type Target interface {
	Deliver(ctx context.Context, link Link, urls *ObjectURLs) (string, error)
}

// Downloader turns text into a file delivered to a Target.
type Downloader struct {
	target Target
	urls   *ObjectURLs
	logger *slog.Logger
}

// NewDownloader creates a downloader. urls may be shared between downloaders;
// nil allocates a private registry.
func NewDownloader(target Target, urls *ObjectURLs, logger *slog.Logger) *Downloader {
	if urls == nil {
		urls = NewObjectURLs()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Downloader{target: target, urls: urls, logger: logger}
}

// URLs exposes the registry backing this downloader.
func (d *Downloader) URLs() *ObjectURLs {
	return d.urls
}

// TriggerFileDownload wraps content in a blob tagged with mimeType, exposes it
// through a transient object URL and hands a link to the target. The object
// URL is revoked before returning on every path.
func (d *Downloader) TriggerFileDownload(ctx context.Context, content, fileName, mimeType string) (string, error) {
	url := d.urls.Create(Blob{Body: []byte(content), MIMEType: mimeType})
	defer d.urls.Revoke(url)

	location, err := d.target.Deliver(ctx, Link{Href: url, Download: fileName}, d.urls)
	if err != nil {
		return "", fmt.Errorf("deliver %s: %w", fileName, err)
	}
	d.logger.Debug("download delivered", "file", fileName, "mime", mimeType, "location", location)
	return location, nil
}

// DownloadAsCSV renders records with ToCSV and delivers them as a CSV file.
func (d *Downloader) DownloadAsCSV(ctx context.Context, records []Record, fileName string) (string, error) {
	return d.TriggerFileDownload(ctx, ToCSV(records), fileName, CSVMIMEType)
}

// DownloadAsText delivers text as a plain-text file.
func (d *Downloader) DownloadAsText(ctx context.Context, text, fileName string) (string, error) {
	return d.TriggerFileDownload(ctx, text, fileName, TextMIMEType)
}

// Resolve follows link to its blob.
func Resolve(link Link, urls *ObjectURLs) (Blob, error) {
	b, ok := urls.Resolve(link.Href)
	if !ok {
		return Blob{}, fmt.Errorf("object url %s is not live", link.Href)
	}
	return b, nil
}
