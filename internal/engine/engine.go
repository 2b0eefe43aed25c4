// Package engine validates generation requests and drives the two-phase
// texture pipeline: synthesis or conversion first, pole correction second.
package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/MeKo-Tech/spheretex/internal/noise"
	"github.com/MeKo-Tech/spheretex/internal/palette"
	"github.com/MeKo-Tech/spheretex/internal/pole"
	"github.com/MeKo-Tech/spheretex/internal/project"
	"github.com/MeKo-Tech/spheretex/internal/synth"
)

// Error taxonomy. Configuration errors are invalid request fields that
// should have been caught upstream; validation errors are unknown texture
// or palette references. Both are fatal for the request. Out-of-range noise
// samples are never errors: they are clamped locally and logged as a
// warning.
var (
	ErrConfiguration = errors.New("invalid configuration")
	ErrValidation    = errors.New("validation failed")
)

// Mode selects between procedural synthesis and image conversion.
type Mode int

const (
	ModeProcedural Mode = iota
	ModeConvert
)

// String returns the wire name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeProcedural:
		return "procedural"
	case ModeConvert:
		return "convert"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "procedural" or "convert".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "procedural":
		return ModeProcedural, nil
	case "convert":
		return ModeConvert, nil
	default:
		return 0, fmt.Errorf("mode must be 'procedural' or 'convert', got %q", s)
	}
}

// Request describes a single texture generation. Exactly one of Type and
// Source is meaningful, matching Mode. All fields are read-only once the
// request enters Generate; nothing persists across requests.
type Request struct {
	Mode   Mode
	Type   synth.TextureType // procedural mode
	Source image.Image       // convert mode, already decoded

	Width  int
	Height int
	// AllowAspectOverride accepts non-2:1 dimensions with a compatibility
	// warning instead of rejecting them.
	AllowAspectOverride bool

	Seed    int64
	Noise   noise.Config      // procedural mode
	Palette palette.Palette   // procedural mode
	Workers int

	// SkipPoleFix leaves the raw phase-1 buffer uncorrected.
	SkipPoleFix bool
}

// Engine runs generation requests. It is stateless apart from its logger
// and safe for concurrent use.
type Engine struct {
	logger *slog.Logger
}

// New creates an engine. A nil logger falls back to slog.Default.
func New(logger *slog.Logger) *Engine {
	return &Engine{logger: logger}
}

// Generate produces the finished pixel buffer for a request. Phase 1 fills
// the buffer (synthesis or conversion); after a cancellation checkpoint,
// phase 2 applies pole correction into a fresh buffer. A fatal error
// returns no buffer at all.
func (e *Engine) Generate(ctx context.Context, req Request) (*synth.Buffer, error) {
	if err := e.validate(req); err != nil {
		return nil, err
	}

	var (
		buf *synth.Buffer
		err error
	)
	switch req.Mode {
	case ModeProcedural:
		buf, err = e.synthesize(ctx, req)
	case ModeConvert:
		buf, err = project.Convert(req.Source, req.Width, req.Height)
		if err != nil {
			err = fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
	}
	if err != nil {
		return nil, err
	}

	// Phase barrier: pole correction reads finished neighbors, so it must
	// not start until every phase-1 pixel is final. Cancellation is a
	// coarse checkpoint here, not a per-pixel interruption.
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if req.SkipPoleFix {
		return buf, nil
	}
	return pole.Correct(buf), nil
}

func (e *Engine) synthesize(ctx context.Context, req Request) (*synth.Buffer, error) {
	buf, anomalies, err := synth.Generate(ctx, req.Type, synth.Params{
		Width:   req.Width,
		Height:  req.Height,
		Seed:    req.Seed,
		Noise:   req.Noise,
		Palette: req.Palette,
		Workers: req.Workers,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if anomalies > 0 {
		e.log().Warn("Noise samples clamped back into range",
			"count", anomalies,
			"texture_type", req.Type.String(),
			"seed", req.Seed,
		)
	}
	return buf, nil
}

func (e *Engine) validate(req Request) error {
	if req.Width <= 0 || req.Height <= 0 {
		return fmt.Errorf("%w: dimensions must be positive, got %dx%d", ErrConfiguration, req.Width, req.Height)
	}
	if req.Width != 2*req.Height {
		if !req.AllowAspectOverride {
			return fmt.Errorf("%w: equirectangular textures require width == 2*height, got %dx%d (set the override to accept)",
				ErrConfiguration, req.Width, req.Height)
		}
		e.log().Warn("Non-standard aspect ratio; sphere mapping expects 2:1",
			"width", req.Width, "height", req.Height)
	}

	switch req.Mode {
	case ModeProcedural:
		if req.Source != nil {
			return fmt.Errorf("%w: procedural mode must not carry a source image", ErrConfiguration)
		}
		if !req.Noise.Valid() {
			return fmt.Errorf("%w: noise config must be built via noise.NewConfig", ErrConfiguration)
		}
		if _, err := synth.ParseTextureType(req.Type.String()); err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		if !req.Palette.Valid() {
			return fmt.Errorf("%w: palette is empty or unresolved", ErrValidation)
		}
	case ModeConvert:
		if req.Source == nil {
			return fmt.Errorf("%w: convert mode requires a source image", ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown mode %d", ErrConfiguration, int(req.Mode))
	}

	return nil
}

func (e *Engine) log() *slog.Logger {
	if e.logger != nil {
		return e.logger
	}
	return slog.Default()
}
