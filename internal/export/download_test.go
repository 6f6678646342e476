package export

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/amishk599/geolens/internal/model"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recordingTarget captures the link and blob it was handed.
type recordingTarget struct {
	link Link
	blob Blob
	err  error
}

func (r *recordingTarget) Deliver(_ context.Context, link Link, urls *ObjectURLs) (string, error) {
	r.link = link
	b, err := Resolve(link, urls)
	if err != nil {
		return "", err
	}
	r.blob = b
	if r.err != nil {
		return "", r.err
	}
	return "recorded:" + link.Download, nil
}

func TestDownloadAsCSV_ReleasesObjectURL(t *testing.T) {
	target := &recordingTarget{}
	d := NewDownloader(target, nil, nil)

	loc, err := d.DownloadAsCSV(context.Background(), []Record{{{Key: "a", Value: 1}}}, "samples.csv")
	if err != nil {
		t.Fatalf("DownloadAsCSV: %v", err)
	}
	if loc != "recorded:samples.csv" {
		t.Errorf("location = %q", loc)
	}
	if target.blob.MIMEType != "text/csv;charset=utf-8;" {
		t.Errorf("mime = %q, want csv mime", target.blob.MIMEType)
	}
	if string(target.blob.Body) != "a\n\"1\"" {
		t.Errorf("body = %q", target.blob.Body)
	}
	if target.link.Download != "samples.csv" {
		t.Errorf("link download = %q", target.link.Download)
	}
	if n := d.URLs().Len(); n != 0 {
		t.Errorf("live object urls = %d, want 0", n)
	}
	if _, ok := d.URLs().Resolve(target.link.Href); ok {
		t.Error("object url still resolvable after download")
	}
}

func TestDownloadAsText_ReleasesObjectURLOnFailure(t *testing.T) {
	target := &recordingTarget{err: errors.New("disk full")}
	urls := NewObjectURLs()
	d := NewDownloader(target, urls, nil)

	if _, err := d.DownloadAsText(context.Background(), "summary", "summary.txt"); err == nil {
		t.Fatal("expected delivery error")
	}
	if target.blob.MIMEType != "text/plain;charset=utf-8;" {
		t.Errorf("mime = %q, want text mime", target.blob.MIMEType)
	}
	if n := urls.Len(); n != 0 {
		t.Errorf("live object urls = %d, want 0", n)
	}
}

func TestDirTarget_WritesFileWithoutLeftovers(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	d := NewDownloader(NewDirTarget(dir), nil, nil)

	path, err := d.DownloadAsText(context.Background(), "# Digest", "digest.md")
	if err != nil {
		t.Fatalf("DownloadAsText: %v", err)
	}
	if path != filepath.Join(dir, "digest.md") {
		t.Errorf("path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "# Digest" {
		t.Errorf("content = %q", data)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("dir has %d entries, want only the export", len(entries))
	}
}

func TestDirTarget_StripsDirectories(t *testing.T) {
	dir := t.TempDir()
	d := NewDownloader(NewDirTarget(dir), nil, nil)

	path, err := d.DownloadAsText(context.Background(), "x", "../../escape.txt")
	if err != nil {
		t.Fatalf("DownloadAsText: %v", err)
	}
	if path != filepath.Join(dir, "escape.txt") {
		t.Errorf("path = %q, want file inside export dir", path)
	}
}

func TestResponseTarget_SetsAttachmentHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	d := NewDownloader(NewResponseTarget(rec), nil, nil)

	if _, err := d.DownloadAsCSV(context.Background(), []Record{{{Key: "a", Value: "b"}}}, "samples.csv"); err != nil {
		t.Fatalf("DownloadAsCSV: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != CSVMIMEType {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != "attachment; filename=samples.csv" {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if rec.Body.String() != "a\n\"b\"" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestSampleRecords(t *testing.T) {
	samples := []model.Sample{{
		ID:       "s1",
		FileName: "outcrop.jpg",
		Analysis: model.MineralAnalysis{
			RockName: "Granite",
			IdentifiedMinerals: []model.MineralEntry{
				{Name: "Quartz", Percentage: 35},
				{Name: "Feldspar", Percentage: 42.5},
			},
			EconomicPotential: `Used as "dimension stone"`,
		},
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}}

	got := ToCSV(SampleRecords(samples))
	want := "id,fileName,rockName,description,minerals,economicPotential,analyzedAt\n" +
		`"s1","outcrop.jpg","Granite","","Quartz (35%); Feldspar (42.5%)","Used as \"dimension stone\"","2026-03-01T12:00:00Z"`
	if got != want {
		t.Errorf("ToCSV(SampleRecords) =\n%s\nwant\n%s", got, want)
	}

	minerals := MineralRecords(samples)
	if len(minerals) != 2 {
		t.Fatalf("MineralRecords len = %d, want 2", len(minerals))
	}
	if v, _ := minerals[1].Lookup("percentage"); v != 42.5 {
		t.Errorf("percentage = %v, want 42.5", v)
	}
}
