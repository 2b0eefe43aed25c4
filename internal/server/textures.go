// Package server provides an HTTP preview server that renders sphere
// textures on demand and caches the encoded results on disk.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MeKo-Tech/spheretex/internal/engine"
	"github.com/MeKo-Tech/spheretex/internal/noise"
	"github.com/MeKo-Tech/spheretex/internal/palette"
	"github.com/MeKo-Tech/spheretex/internal/synth"
)

type TexturesConfig struct {
	CacheDir                 string
	CacheControl             string
	Seed                     int64
	MaxConcurrentGenerations int
	GenerationTimeout        time.Duration
	DisableCache             bool
}

// Textures serves generated textures over HTTP. Identical requests share
// a per-file lock so a texture is only rendered once; distinct requests
// compete for a bounded semaphore.
type Textures struct {
	eng    *engine.Engine
	logger *slog.Logger
	sem    chan struct{}
	locks  sync.Map
	cfg    TexturesConfig

	activeRenders  atomic.Int32
	totalRendered  atomic.Int64
	totalFailed    atomic.Int64
	currentRenders sync.Map // filename -> start time
}

// RenderStatus contains current render operation status.
type RenderStatus struct {
	ActiveRenders   int      `json:"active_renders"`
	TotalRendered   int64    `json:"total_rendered"`
	TotalFailed     int64    `json:"total_failed"`
	CurrentTextures []string `json:"current_textures"`
	MaxConcurrent   int      `json:"max_concurrent"`
}

func NewTextures(eng *engine.Engine, cfg TexturesConfig, logger *slog.Logger) (*Textures, error) {
	if cfg.CacheDir == "" {
		cfg.CacheDir = "./textures"
	}
	if cfg.MaxConcurrentGenerations <= 0 {
		cfg.MaxConcurrentGenerations = 1
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = 2 * time.Minute
	}
	if cfg.CacheControl == "" {
		cfg.CacheControl = "no-store"
	}

	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}

	return &Textures{
		eng:    eng,
		cfg:    cfg,
		logger: logger,
		sem:    make(chan struct{}, cfg.MaxConcurrentGenerations),
	}, nil
}

// Status returns the current status of the texture generation system.
func (t *Textures) Status() RenderStatus {
	var current []string
	t.currentRenders.Range(func(key, _ any) bool {
		current = append(current, key.(string))
		return true
	})

	return RenderStatus{
		ActiveRenders:   int(t.activeRenders.Load()),
		TotalRendered:   t.totalRendered.Load(),
		TotalFailed:     t.totalFailed.Load(),
		CurrentTextures: current,
		MaxConcurrent:   t.cfg.MaxConcurrentGenerations,
	}
}

// StatusHandler returns an HTTP handler for the status endpoint (JSON).
func (t *Textures) StatusHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Cache-Control", "no-store")

		if err := json.NewEncoder(w).Encode(t.Status()); err != nil {
			t.log().Error("failed to encode status", "error", err)
			http.Error(w, "failed to encode status", http.StatusInternalServerError)
			return
		}
	})
}

// PalettesHandler returns an HTTP handler listing the named palettes (JSON).
func (t *Textures) PalettesHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")

		if err := json.NewEncoder(w).Encode(palette.Names()); err != nil {
			http.Error(w, "failed to encode palettes", http.StatusInternalServerError)
			return
		}
	})
}

func (t *Textures) Handler() http.Handler {
	return http.HandlerFunc(t.serveTexture)
}

// textureRequest is the parsed form of a texture URL.
type textureRequest struct {
	typ     synth.TextureType
	palette string
	width   int
	height  int
	seed    int64
	octaves int
	scale   float64
	mode    noise.CoordinateMode
}

func (q textureRequest) filename() string {
	return fmt.Sprintf("%s_%s_%dx%d_s%d_o%d_sc%g_%s.png",
		q.typ, q.palette, q.width, q.height, q.seed, q.octaves, q.scale, q.mode)
}

func (t *Textures) serveTexture(w http.ResponseWriter, r *http.Request) {
	// Allow browser-based previews to fetch textures cross-origin.
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	req, err := t.parseTexturePath(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	filename := req.filename()
	fullPath := filepath.Join(t.cfg.CacheDir, filename)

	w.Header().Set("Cache-Control", t.cfg.CacheControl)

	if !t.cfg.DisableCache && fileExists(fullPath) {
		http.ServeFile(w, r, fullPath)
		return
	}

	mu := t.getLock(filename)
	mu.Lock()
	defer mu.Unlock()

	if !t.cfg.DisableCache && fileExists(fullPath) {
		http.ServeFile(w, r, fullPath)
		return
	}

	select {
	case t.sem <- struct{}{}:
		defer func() { <-t.sem }()
	case <-r.Context().Done():
		http.Error(w, "request cancelled", http.StatusRequestTimeout)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), t.cfg.GenerationTimeout)
	defer cancel()

	start := time.Now()
	t.activeRenders.Add(1)
	t.currentRenders.Store(filename, start)

	err = t.renderToFile(ctx, req, fullPath)

	t.activeRenders.Add(-1)
	t.currentRenders.Delete(filename)

	if err != nil {
		t.totalFailed.Add(1)
		t.log().Error("failed to generate texture", "texture", filename, "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, engine.ErrConfiguration) || errors.Is(err, engine.ErrValidation) {
			status = http.StatusBadRequest
		}
		http.Error(w, fmt.Sprintf("failed to generate texture %s: %v", filename, err), status)
		return
	}
	t.totalRendered.Add(1)
	t.log().Info("texture generated on-demand", "texture", filename, "ms", time.Since(start).Milliseconds())

	http.ServeFile(w, r, fullPath)
}

func (t *Textures) renderToFile(ctx context.Context, req textureRequest, fullPath string) error {
	pal, err := palette.Lookup(req.palette)
	if err != nil {
		return fmt.Errorf("%w: %v", engine.ErrValidation, err)
	}
	cfg, err := noise.NewConfig(req.octaves, req.scale, req.mode)
	if err != nil {
		return fmt.Errorf("%w: %v", engine.ErrConfiguration, err)
	}

	buf, err := t.eng.Generate(ctx, engine.Request{
		Mode:    engine.ModeProcedural,
		Type:    req.typ,
		Width:   req.width,
		Height:  req.height,
		Seed:    req.seed,
		Noise:   cfg,
		Palette: pal,
	})
	if err != nil {
		return err
	}

	// Write through a temp file so a cancelled render never leaves a
	// truncated cache entry.
	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".texture-*.png")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if err := png.Encode(tmp, buf.ToNRGBA()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to encode png: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to move texture into cache: %w", err)
	}
	return nil
}

// parseTexturePath parses /textures/<type>/<width>x<height>.png with
// optional query parameters palette, seed, octaves, scale and mode.
func (t *Textures) parseTexturePath(r *http.Request) (textureRequest, error) {
	requestPath := r.URL.Path
	if !strings.HasPrefix(requestPath, "/textures/") {
		return textureRequest{}, fmt.Errorf("not a texture path: %s", requestPath)
	}

	rest := strings.TrimPrefix(requestPath, "/textures/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 {
		return textureRequest{}, fmt.Errorf("expected /textures/<type>/<width>x<height>.png, got %s", requestPath)
	}

	typ, err := synth.ParseTextureType(parts[0])
	if err != nil {
		return textureRequest{}, err
	}

	base := path.Base(parts[1])
	if !strings.HasSuffix(base, ".png") {
		return textureRequest{}, fmt.Errorf("only png previews are served")
	}
	dims := strings.TrimSuffix(base, ".png")
	wh := strings.SplitN(dims, "x", 2)
	if len(wh) != 2 {
		return textureRequest{}, fmt.Errorf("invalid dimensions %q", dims)
	}
	width, err := strconv.Atoi(wh[0])
	if err != nil {
		return textureRequest{}, fmt.Errorf("invalid width %q", wh[0])
	}
	height, err := strconv.Atoi(wh[1])
	if err != nil {
		return textureRequest{}, fmt.Errorf("invalid height %q", wh[1])
	}

	req := textureRequest{
		typ:     typ,
		palette: typ.DefaultPaletteName(),
		width:   width,
		height:  height,
		seed:    t.cfg.Seed,
		octaves: noise.DefaultConfig().Octaves(),
		scale:   noise.DefaultConfig().Scale(),
		mode:    defaultMode(typ),
	}

	q := r.URL.Query()
	if v := q.Get("palette"); v != "" {
		if _, err := palette.Lookup(v); err != nil {
			return textureRequest{}, fmt.Errorf("unknown palette %q", v)
		}
		req.palette = v
	}
	if v := q.Get("seed"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return textureRequest{}, fmt.Errorf("invalid seed %q", v)
		}
		req.seed = seed
	}
	if v := q.Get("octaves"); v != "" {
		octaves, err := strconv.Atoi(v)
		if err != nil {
			return textureRequest{}, fmt.Errorf("invalid octaves %q", v)
		}
		req.octaves = octaves
	}
	if v := q.Get("scale"); v != "" {
		scale, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return textureRequest{}, fmt.Errorf("invalid scale %q", v)
		}
		req.scale = scale
	}
	if v := q.Get("mode"); v != "" {
		mode, err := noise.ParseCoordinateMode(v)
		if err != nil {
			return textureRequest{}, err
		}
		req.mode = mode
	}

	return req, nil
}

// defaultMode picks the sampling mode that suits each texture type: banded
// types read latitude directly, the others need full spherical continuity.
func defaultMode(typ synth.TextureType) noise.CoordinateMode {
	if typ == synth.GasGiant {
		return noise.ModeXY
	}
	return noise.ModeXZ
}

func (t *Textures) getLock(key string) *sync.Mutex {
	if v, ok := t.locks.Load(key); ok {
		return v.(*sync.Mutex)
	}
	mu := &sync.Mutex{}
	actual, _ := t.locks.LoadOrStore(key, mu)
	return actual.(*sync.Mutex)
}

func (t *Textures) log() *slog.Logger {
	if t.logger != nil {
		return t.logger
	}
	return slog.Default()
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	if err != nil {
		return false
	}
	return !st.IsDir()
}
