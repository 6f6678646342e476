package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/amishk599/geolens/internal/ai"
	"github.com/amishk599/geolens/internal/config"
	"github.com/amishk599/geolens/internal/intake"
	"github.com/amishk599/geolens/internal/model"
	"github.com/amishk599/geolens/internal/store"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"generic", errors.New("boom"), exitError},
		{"unavailable", &ai.UnavailableError{Op: "analyze", Message: "bad reply"}, exitUnavailable},
		{"wrapped not found", fmt.Errorf("get: %w", store.ErrSampleNotFound), exitBadInput},
		{"unsupported", intake.ErrUnsupportedMIME, exitBadInput},
		{"joined", errors.Join(errors.New("a.jpg: x"), fmt.Errorf("b.jpg: %w", intake.ErrImageTooLarge)), exitBadInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestLoadConfig_MissingDefaultUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GEOLENS_CONFIG", "")

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.AI.Provider != config.Default().AI.Provider {
		t.Errorf("provider = %q", cfg.AI.Provider)
	}
}

func TestLoadConfig_MissingExplicitPathFails(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestLoadConfig_EnvVar(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "geo.yaml")
	body := "ai:\n  provider: static\n  static_dir: fixtures\nstore:\n  dsn: field.db\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GEOLENS_CONFIG", path)

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.AI.Provider != "static" || cfg.Store.DSN != "field.db" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestSetupGenerator(t *testing.T) {
	cfg := config.Default()
	for _, p := range []string{"gemini", "openai", "static"} {
		cfg.AI.Provider = p
		if _, err := setupGenerator(cfg); err != nil {
			t.Errorf("%s: %v", p, err)
		}
	}
	cfg.AI.Provider = "llama"
	if _, err := setupGenerator(cfg); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestSplitForBrowse(t *testing.T) {
	at := time.Date(2026, 4, 9, 0, 0, 0, 0, time.UTC)
	mk := func(id, rock string, minerals ...string) model.Sample {
		s := model.Sample{ID: id, CreatedAt: at, Analysis: model.MineralAnalysis{RockName: rock}}
		for _, m := range minerals {
			s.Analysis.IdentifiedMinerals = append(s.Analysis.IdentifiedMinerals, model.MineralEntry{Name: m, Percentage: 20})
		}
		return s
	}
	all := []model.Sample{
		mk("1", "Granite", "Quartz"),
		mk("2", "granite", "Biotite"),
		mk("3", "Basalt", "Quartz"),
		mk("4", ""),
	}

	pool, matched, title := splitForBrowse(all, "Granite", config.FilterConfig{Minerals: []string{"quartz"}})
	if len(pool) != 2 || len(matched) != 1 || matched[0].ID != "1" {
		t.Errorf("pool=%d matched=%v", len(pool), matched)
	}
	if title != "Granite · filtered" {
		t.Errorf("title = %q", title)
	}

	pool, _, _ = splitForBrowse(all, "Unidentified", config.FilterConfig{})
	if len(pool) != 1 || pool[0].ID != "4" {
		t.Errorf("unidentified pool = %v", pool)
	}

	pool, matched, _ = splitForBrowse(all, "", config.FilterConfig{})
	if len(pool) != 4 || len(matched) != 4 {
		t.Errorf("all pool=%d matched=%d", len(pool), len(matched))
	}
}

func TestBarWidth(t *testing.T) {
	if got := barWidth(1, 100, 30); got != 1 {
		t.Errorf("small share = %d, want 1", got)
	}
	if got := barWidth(10, 10, 30); got != 30 {
		t.Errorf("full share = %d, want 30", got)
	}
	if got := barWidth(0, 10, 30); got != 0 {
		t.Errorf("zero = %d", got)
	}
}

type countingSource struct{ listed chan struct{} }

func (c *countingSource) Samples(ctx context.Context) ([]model.Sample, error) {
	select {
	case c.listed <- struct{}{}:
	default:
	}
	return nil, nil
}

func (c *countingSource) Digest(ctx context.Context) (model.Digest, error) {
	return model.Digest{}, nil
}

func (c *countingSource) Publish(model.Digest) error { return nil }

func TestStartScheduler_DisabledIsDone(t *testing.T) {
	done := startScheduler(context.Background(), &countingSource{}, 0, nil)
	select {
	case <-done:
	default:
		t.Fatal("done should be closed when the interval is zero")
	}
}

func TestStartScheduler_DoneAfterCancel(t *testing.T) {
	src := &countingSource{listed: make(chan struct{}, 1)}
	ctx, cancel := context.WithCancel(context.Background())
	done := startScheduler(ctx, src, time.Hour, nil)

	<-src.listed
	select {
	case <-done:
		t.Fatal("done closed while the scheduler is running")
	default:
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not exit after cancel")
	}
}
