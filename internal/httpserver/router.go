// Package httpserver exposes sample analysis, digests and exports over HTTP.
package httpserver

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/amishk599/geolens/internal/ai"
	"github.com/amishk599/geolens/internal/export"
	"github.com/amishk599/geolens/internal/filter"
	"github.com/amishk599/geolens/internal/intake"
	"github.com/amishk599/geolens/internal/model"
	"github.com/amishk599/geolens/internal/stats"
	"github.com/amishk599/geolens/internal/store"
)

// Deps are the components the router serves.
type Deps struct {
	Intake      *intake.Intake
	Reporter    *intake.Reporter
	Store       model.SampleStore
	URLs        *export.ObjectURLs // shared by every download; nil allocates one
	CORSOrigins []string
	Logger      *slog.Logger
}

type Router struct {
	intake   *intake.Intake
	reporter *intake.Reporter
	store    model.SampleStore
	urls     *export.ObjectURLs
	logger   *slog.Logger
}

// maxUploadBytes leaves room for multipart framing and base64 growth.
const maxUploadBytes = intake.MaxImageBytes*4/3 + 1<<20

func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	urls := d.URLs
	if urls == nil {
		urls = export.NewObjectURLs()
	}
	r := &Router{intake: d.Intake, reporter: d.Reporter, store: d.Store, urls: urls, logger: logger}

	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(requestLogger(logger))
	mux.Use(middleware.Recoverer)
	if len(d.CORSOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins: d.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			ExposedHeaders: []string{"Content-Disposition"},
			MaxAge:         300,
		}))
	}

	mux.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("ok"))
	})

	mux.Route("/v1", func(rt chi.Router) {
		rt.Post("/samples", r.wrap(r.handleCreateSample))
		rt.Get("/samples", r.wrap(r.handleListSamples))
		rt.Get("/samples/{id}", r.wrap(r.handleGetSample))
		rt.Delete("/samples/{id}", r.wrap(r.handleDeleteSample))
		rt.Post("/summary", r.wrap(r.handleSummary))
		rt.Get("/dashboard", r.wrap(r.handleDashboard))
		rt.Get("/export/samples.csv", r.wrap(r.handleExportSamples))
		rt.Get("/export/minerals.csv", r.wrap(r.handleExportMinerals))
		rt.Get("/export/summary.txt", r.wrap(r.handleExportSummary))
	})

	return mux
}

// badRequest marks client errors detected by handlers.
type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}

		var (
			br          badRequest
			unavailable *ai.UnavailableError
			tooLarge    *http.MaxBytesError
		)
		switch {
		case errors.As(err, &br):
			writeError(w, http.StatusBadRequest, br.msg)
		case errors.As(err, &unavailable):
			writeError(w, http.StatusBadGateway, unavailable.Message)
		case errors.Is(err, store.ErrSampleNotFound):
			writeError(w, http.StatusNotFound, "sample not found")
		case errors.Is(err, intake.ErrUnsupportedMIME):
			writeError(w, http.StatusUnsupportedMediaType, err.Error())
		case errors.Is(err, intake.ErrImageTooLarge), errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "image too large")
		default:
			r.logger.Error("request failed", "path", req.URL.Path, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type createSampleRequest struct {
	FileName    string `json:"fileName"`
	MIMEType    string `json:"mimeType"`
	ImageBase64 string `json:"imageBase64"`
}

type createSampleResponse struct {
	Sample    model.Sample `json:"sample"`
	Duplicate bool         `json:"duplicate"`
}

// POST /v1/samples
// Body: multipart form with an "image" file, or JSON createSampleRequest.
func (r *Router) handleCreateSample(w http.ResponseWriter, req *http.Request) error {
	req.Body = http.MaxBytesReader(w, req.Body, maxUploadBytes)

	var (
		name, declared string
		data           []byte
	)
	mt, _, _ := mime.ParseMediaType(req.Header.Get("Content-Type"))
	switch mt {
	case "multipart/form-data":
		file, header, err := req.FormFile("image")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return err
			}
			return badRequest{"multipart field \"image\" is required"}
		}
		defer file.Close()
		if data, err = io.ReadAll(file); err != nil {
			return err
		}
		name, declared = header.Filename, header.Header.Get("Content-Type")
	case "application/json":
		var body createSampleRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return err
			}
			return badRequest{"invalid JSON body"}
		}
		if body.ImageBase64 == "" {
			return badRequest{"imageBase64 is required"}
		}
		decoded, err := base64.StdEncoding.DecodeString(body.ImageBase64)
		if err != nil {
			return badRequest{"imageBase64 is not valid base64"}
		}
		name, declared, data = body.FileName, body.MIMEType, decoded
	default:
		return badRequest{"content type must be multipart/form-data or application/json"}
	}
	if name == "" {
		name = "upload"
	}

	res, err := r.intake.Ingest(req.Context(), name, data, declared)
	if err != nil {
		return err
	}
	status := http.StatusCreated
	if res.Duplicate {
		status = http.StatusOK
	}
	return writeJSON(w, status, createSampleResponse{Sample: res.Sample, Duplicate: res.Duplicate})
}

// GET /v1/samples?rock=&mineral=&min_pct=
func (r *Router) handleListSamples(w http.ResponseWriter, req *http.Request) error {
	samples, err := r.filteredSamples(req)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, samples)
}

// GET /v1/samples/{id}
func (r *Router) handleGetSample(w http.ResponseWriter, req *http.Request) error {
	s, err := r.store.Get(req.Context(), chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, s)
}

// DELETE /v1/samples/{id}
func (r *Router) handleDeleteSample(w http.ResponseWriter, req *http.Request) error {
	if err := r.store.Delete(req.Context(), chi.URLParam(req, "id")); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// POST /v1/summary?notify=true
func (r *Router) handleSummary(w http.ResponseWriter, req *http.Request) error {
	d, err := r.reporter.Digest(req.Context())
	if err != nil {
		return err
	}
	if notify, _ := strconv.ParseBool(req.URL.Query().Get("notify")); notify {
		if err := r.reporter.Publish(d); err != nil {
			return err
		}
	}
	return writeJSON(w, http.StatusOK, d)
}

// GET /v1/dashboard
func (r *Router) handleDashboard(w http.ResponseWriter, req *http.Request) error {
	samples, err := r.filteredSamples(req)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, stats.Build(samples))
}

// GET /v1/export/samples.csv
func (r *Router) handleExportSamples(w http.ResponseWriter, req *http.Request) error {
	samples, err := r.filteredSamples(req)
	if err != nil {
		return err
	}
	_, err = r.downloader(w).DownloadAsCSV(req.Context(), export.SampleRecords(samples), exportName("samples", "csv"))
	return err
}

// GET /v1/export/minerals.csv
func (r *Router) handleExportMinerals(w http.ResponseWriter, req *http.Request) error {
	samples, err := r.filteredSamples(req)
	if err != nil {
		return err
	}
	_, err = r.downloader(w).DownloadAsCSV(req.Context(), export.MineralRecords(samples), exportName("minerals", "csv"))
	return err
}

// GET /v1/export/summary.txt
func (r *Router) handleExportSummary(w http.ResponseWriter, req *http.Request) error {
	d, err := r.reporter.Digest(req.Context())
	if err != nil {
		return err
	}
	_, err = r.downloader(w).DownloadAsText(req.Context(), d.Summary, exportName("summary", "txt"))
	return err
}

func (r *Router) downloader(w http.ResponseWriter) *export.Downloader {
	return export.NewDownloader(export.NewResponseTarget(w), r.urls, r.logger)
}

// filteredSamples applies the reporter's configured filter, then any
// query-string narrowing.
func (r *Router) filteredSamples(req *http.Request) ([]model.Sample, error) {
	samples, err := r.reporter.Samples(req.Context())
	if err != nil {
		return nil, err
	}

	q := req.URL.Query()
	rock, mineral := splitParam(q.Get("rock")), splitParam(q.Get("mineral"))
	var minPct float64
	if v := q.Get("min_pct"); v != "" {
		minPct, err = strconv.ParseFloat(v, 64)
		if err != nil || minPct < 0 || minPct > 100 {
			return nil, badRequest{fmt.Sprintf("min_pct must be a number between 0 and 100, got %q", v)}
		}
	}
	if len(rock) == 0 && len(mineral) == 0 {
		return samples, nil
	}
	return filter.Apply(filter.NewRockAndMineralFilter(rock, mineral, minPct), samples), nil
}

func splitParam(v string) []string {
	if v == "" {
		return nil
	}
	return strings.Split(v, ",")
}

func exportName(base, ext string) string {
	return fmt.Sprintf("%s-%s.%s", base, time.Now().UTC().Format("20060102"), ext)
}
