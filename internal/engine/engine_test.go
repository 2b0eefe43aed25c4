package engine

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/spheretex/internal/noise"
	"github.com/MeKo-Tech/spheretex/internal/palette"
	"github.com/MeKo-Tech/spheretex/internal/synth"
)

func earthRequest(t *testing.T) Request {
	t.Helper()

	cfg, err := noise.NewConfig(6, 100.0, noise.ModeXZ)
	require.NoError(t, err)

	pal, err := palette.Lookup("earth_default")
	require.NoError(t, err)

	return Request{
		Mode:    ModeProcedural,
		Type:    synth.Earth,
		Width:   256,
		Height:  128,
		Seed:    42,
		Noise:   cfg,
		Palette: pal,
	}
}

func TestGenerateDeterministic(t *testing.T) {
	eng := New(nil)
	req := earthRequest(t)

	first, err := eng.Generate(context.Background(), req)
	require.NoError(t, err)
	second, err := eng.Generate(context.Background(), req)
	require.NoError(t, err)

	require.True(t, bytes.Equal(first.ToNRGBA().Pix, second.ToNRGBA().Pix),
		"same request must produce byte-identical output")
}

// TestGenerateReferenceChecksum pins the earth/256x128/seed-42 output to a
// stored checksum so cross-version drift is caught, not just in-process
// nondeterminism. Delete the testdata file to re-record after an intentional
// rendering change.
func TestGenerateReferenceChecksum(t *testing.T) {
	eng := New(nil)
	req := earthRequest(t)

	buf, err := eng.Generate(context.Background(), req)
	require.NoError(t, err)

	sum := sha256.Sum256(buf.ToNRGBA().Pix)
	got := hex.EncodeToString(sum[:])

	golden := filepath.Join("testdata", "earth_256x128_seed42.sha256")
	want, err := os.ReadFile(golden)
	if os.IsNotExist(err) {
		require.NoError(t, os.MkdirAll(filepath.Dir(golden), 0o755))
		require.NoError(t, os.WriteFile(golden, []byte(got+"\n"), 0o644))
		t.Logf("recorded reference checksum %s", got)
		return
	}
	require.NoError(t, err)

	require.Equal(t, strings.TrimSpace(string(want)), got,
		"rendered output diverged from the stored reference")
}

func TestGenerateSeamAndPoles(t *testing.T) {
	eng := New(nil)
	req := earthRequest(t)

	buf, err := eng.Generate(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 256, buf.Width())
	require.Equal(t, 128, buf.Height())

	// Wrap seam: left and right edge columns must be close.
	var dist float64
	for y := 0; y < buf.Height(); y++ {
		lr, lg, lb := buf.At(0, y)
		rr, rg, rb := buf.At(buf.Width()-1, y)
		dist += math.Sqrt((lr-rr)*(lr-rr) + (lg-rg)*(lg-rg) + (lb-rb)*(lb-rb))
	}
	require.Less(t, dist/float64(buf.Height()), 0.1, "seam columns diverge")

	// Both pole rows are flattened to a single color each.
	for _, y := range []int{0, buf.Height() - 1} {
		r0, g0, b0 := buf.At(0, y)
		for x := 1; x < buf.Width(); x++ {
			r, g, b := buf.At(x, y)
			require.InDelta(t, r0, r, 1e-9)
			require.InDelta(t, g0, g, 1e-9)
			require.InDelta(t, b0, b, 1e-9)
		}
	}
}

func TestGenerateSkipPoleFix(t *testing.T) {
	eng := New(nil)
	req := earthRequest(t)
	req.SkipPoleFix = true

	buf, err := eng.Generate(context.Background(), req)
	require.NoError(t, err)

	corrected, err := eng.Generate(context.Background(), earthRequest(t))
	require.NoError(t, err)
	require.False(t, bytes.Equal(buf.ToNRGBA().Pix, corrected.ToNRGBA().Pix),
		"pole correction should change the output")
}

func TestValidateRejectsBadRequests(t *testing.T) {
	eng := New(nil)

	tests := []struct {
		name   string
		mutate func(*Request)
		want   error
	}{
		{"zero width", func(r *Request) { r.Width = 0 }, ErrConfiguration},
		{"non 2:1 aspect", func(r *Request) { r.Height = 100 }, ErrConfiguration},
		{"zero noise config", func(r *Request) { r.Noise = noise.Config{} }, ErrConfiguration},
		{"unknown texture type", func(r *Request) { r.Type = synth.TextureType(99) }, ErrValidation},
		{"empty palette", func(r *Request) { r.Palette = palette.Palette{} }, ErrValidation},
		{"source in procedural mode", func(r *Request) {
			r.Source = image.NewNRGBA(image.Rect(0, 0, 2, 1))
		}, ErrConfiguration},
		{"convert without source", func(r *Request) { r.Mode = ModeConvert }, ErrConfiguration},
		{"unknown mode", func(r *Request) { r.Mode = Mode(7) }, ErrConfiguration},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := earthRequest(t)
			tc.mutate(&req)
			_, err := eng.Generate(context.Background(), req)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestAspectOverrideWarnsButSucceeds(t *testing.T) {
	eng := New(nil)
	req := earthRequest(t)
	req.Width = 128
	req.Height = 128
	req.AllowAspectOverride = true

	buf, err := eng.Generate(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 128, buf.Width())
	require.Equal(t, 128, buf.Height())
}

func TestGenerateConvertMode(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for i := range src.Pix {
		src.Pix[i] = 0xff
	}
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i] = 40
		src.Pix[i+1] = 90
		src.Pix[i+2] = 160
	}

	eng := New(nil)
	buf, err := eng.Generate(context.Background(), Request{
		Mode:   ModeConvert,
		Source: src,
		Width:  128,
		Height: 64,
	})
	require.NoError(t, err)

	img := buf.ToNRGBA()
	// Uniform input survives resampling, seam blending and pole correction.
	for i := 0; i < len(img.Pix); i += 4 {
		require.InDelta(t, 40, int(img.Pix[i]), 3)
		require.InDelta(t, 90, int(img.Pix[i+1]), 3)
		require.InDelta(t, 160, int(img.Pix[i+2]), 3)
	}
}

func TestGenerateCancellation(t *testing.T) {
	eng := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	buf, err := eng.Generate(ctx, earthRequest(t))
	require.ErrorIs(t, err, context.Canceled)
	require.Nil(t, buf)
}

func TestModeParsing(t *testing.T) {
	for _, name := range []string{"procedural", "convert"} {
		m, err := ParseMode(name)
		require.NoError(t, err)
		require.Equal(t, name, m.String())
	}
	_, err := ParseMode("serve")
	require.Error(t, err)
}
