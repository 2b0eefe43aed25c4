package cmd

import (
	"context"
	"fmt"
	"image/jpeg"
	"image/png"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/spheretex/internal/engine"
	"github.com/MeKo-Tech/spheretex/internal/noise"
	"github.com/MeKo-Tech/spheretex/internal/palette"
	"github.com/MeKo-Tech/spheretex/internal/sphere"
	"github.com/MeKo-Tech/spheretex/internal/synth"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a procedural sphere texture",
	Long:  `Generate a seamless equirectangular texture from coherent noise.`,
	RunE:  runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringP("type", "t", "earth", "Texture type (earth, gas_giant, marble)")
	generateCmd.Flags().Int64("seed", 1337, "Deterministic seed for noise generation")
	generateCmd.Flags().Int("octaves", 6, "Number of fractal noise octaves")
	generateCmd.Flags().Float64("scale", 100.0, "Noise feature scale")
	generateCmd.Flags().String("coordinate-mode", "", "Noise sampling mode: xy or xz (default depends on type)")
	generateCmd.Flags().String("palette", "", "Palette name or JSON color list (default depends on type)")

	generateCmd.Flags().String("resolution", "", fmt.Sprintf("Resolution preset (%s)", strings.Join(sphere.ResolutionNames(), ", ")))
	generateCmd.Flags().Int("width", 0, "Texture width in pixels (alternative to --resolution)")
	generateCmd.Flags().Int("height", 0, "Texture height in pixels (defaults to width/2)")
	generateCmd.Flags().Bool("allow-aspect-override", false, "Accept dimensions that are not 2:1")

	generateCmd.Flags().StringP("output", "o", "", "Output file path (defaults to <output-dir>/<type>_<size>_seed<seed>.<ext>)")
	generateCmd.Flags().String("format", "png", "Output format: png or jpeg")
	generateCmd.Flags().Int("quality", 90, "JPEG quality (1-100)")
	generateCmd.Flags().String("png-compression", "default", "PNG compression (default, speed, best, none)")

	generateCmd.Flags().Bool("no-pole-fix", false, "Skip pole correction (leaves pinching at the poles)")
	generateCmd.Flags().IntP("workers", "w", 0, "Number of parallel row workers (default: number of CPUs)")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"generate.type", "type"},
		{"generate.seed", "seed"},
		{"generate.octaves", "octaves"},
		{"generate.scale", "scale"},
		{"generate.coordinate_mode", "coordinate-mode"},
		{"generate.palette", "palette"},
		{"generate.resolution", "resolution"},
		{"generate.width", "width"},
		{"generate.height", "height"},
		{"generate.allow_aspect_override", "allow-aspect-override"},
		{"generate.output", "output"},
		{"generate.format", "format"},
		{"generate.quality", "quality"},
		{"generate.png_compression", "png-compression"},
		{"generate.no_pole_fix", "no-pole-fix"},
		{"generate.workers", "workers"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, generateCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	typeName := viper.GetString("generate.type")
	seed := viper.GetInt64("generate.seed")
	octaves := viper.GetInt("generate.octaves")
	scale := viper.GetFloat64("generate.scale")
	modeStr := viper.GetString("generate.coordinate_mode")
	paletteStr := viper.GetString("generate.palette")
	resolution := viper.GetString("generate.resolution")
	width := viper.GetInt("generate.width")
	height := viper.GetInt("generate.height")
	allowAspect := viper.GetBool("generate.allow_aspect_override")
	output := viper.GetString("generate.output")
	format := viper.GetString("generate.format")
	quality := viper.GetInt("generate.quality")
	pngCompression := viper.GetString("generate.png_compression")
	noPoleFix := viper.GetBool("generate.no_pole_fix")
	workers := viper.GetInt("generate.workers")
	outputDir := viper.GetString("output-dir")

	if logger == nil {
		initLogging()
	}

	typ, err := synth.ParseTextureType(typeName)
	if err != nil {
		return err
	}

	width, height, err = resolveDimensions(resolution, width, height)
	if err != nil {
		return err
	}

	cfg, err := resolveNoiseConfig(typ, octaves, scale, modeStr)
	if err != nil {
		return err
	}

	pal, err := resolvePalette(typ, paletteStr)
	if err != nil {
		return err
	}

	if err := validateFormat(format, quality); err != nil {
		return err
	}

	if output == "" {
		output = filepath.Join(outputDir,
			fmt.Sprintf("%s_%dx%d_seed%d.%s", typ, width, height, seed, formatExt(format)))
	}

	logger.Info("Starting texture generation",
		"type", typ.String(),
		"size", fmt.Sprintf("%dx%d", width, height),
		"seed", seed,
		"octaves", cfg.Octaves(),
		"scale", cfg.Scale(),
		"mode", cfg.Mode().String(),
		"output", output,
	)

	ctx, cancel := signalContext()
	defer cancel()

	eng := engine.New(logger)
	buf, err := eng.Generate(ctx, engine.Request{
		Mode:                engine.ModeProcedural,
		Type:                typ,
		Width:               width,
		Height:              height,
		AllowAspectOverride: allowAspect,
		Seed:                seed,
		Noise:               cfg,
		Palette:             pal,
		Workers:             workers,
		SkipPoleFix:         noPoleFix,
	})
	if err != nil {
		return fmt.Errorf("failed to generate texture: %w", err)
	}

	if err := writeImage(buf, output, format, quality, pngCompression); err != nil {
		return err
	}

	logger.Info("Texture generated", "output", output)
	return nil
}

// resolveDimensions turns a preset name or explicit width/height flags into
// pixel dimensions. Height defaults to half the width.
func resolveDimensions(preset string, width, height int) (int, int, error) {
	if preset != "" {
		if width > 0 || height > 0 {
			return 0, 0, fmt.Errorf("--resolution and --width/--height are mutually exclusive")
		}
		res, err := sphere.ResolutionPreset(preset)
		if err != nil {
			return 0, 0, err
		}
		return res.Width, res.Height, nil
	}
	if width <= 0 {
		return 0, 0, fmt.Errorf("either --resolution or --width is required")
	}
	if height <= 0 {
		height = width / 2
	}
	return width, height, nil
}

// resolveNoiseConfig builds the noise configuration, defaulting the
// sampling mode per texture type: banded types read latitude directly, the
// others need full spherical continuity.
func resolveNoiseConfig(typ synth.TextureType, octaves int, scale float64, modeStr string) (noise.Config, error) {
	mode := noise.ModeXZ
	if typ == synth.GasGiant {
		mode = noise.ModeXY
	}
	if modeStr != "" {
		parsed, err := noise.ParseCoordinateMode(modeStr)
		if err != nil {
			return noise.Config{}, err
		}
		mode = parsed
	}
	return noise.NewConfig(octaves, scale, mode)
}

// resolvePalette parses a palette flag value, falling back to the texture
// type's default palette when empty.
func resolvePalette(typ synth.TextureType, s string) (palette.Palette, error) {
	if s == "" {
		s = typ.DefaultPaletteName()
	}
	return palette.Parse(s)
}

func validateFormat(format string, quality int) error {
	switch format {
	case "png":
		return nil
	case "jpeg", "jpg":
		if quality < 1 || quality > 100 {
			return fmt.Errorf("quality must be within [1,100], got %d", quality)
		}
		return nil
	default:
		return fmt.Errorf("invalid format %q: must be 'png' or 'jpeg'", format)
	}
}

func formatExt(format string) string {
	if format == "jpeg" || format == "jpg" {
		return "jpg"
	}
	return "png"
}

func pngCompressionLevel(name string) (png.CompressionLevel, error) {
	switch name {
	case "default", "":
		return png.DefaultCompression, nil
	case "speed":
		return png.BestSpeed, nil
	case "best":
		return png.BestCompression, nil
	case "none":
		return png.NoCompression, nil
	default:
		return 0, fmt.Errorf("invalid png-compression %q: must be default, speed, best or none", name)
	}
}

// writeImage encodes a pixel buffer to disk in the requested format.
func writeImage(buf *synth.Buffer, path, format string, quality int, pngCompression string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	img := buf.ToNRGBA()
	switch format {
	case "jpeg", "jpg":
		if err := jpeg.Encode(f, img, &jpeg.Options{Quality: quality}); err != nil {
			f.Close()
			return fmt.Errorf("failed to encode jpeg: %w", err)
		}
	default:
		level, err := pngCompressionLevel(pngCompression)
		if err != nil {
			f.Close()
			return err
		}
		enc := png.Encoder{CompressionLevel: level}
		if err := enc.Encode(f, img); err != nil {
			f.Close()
			return fmt.Errorf("failed to encode png: %w", err)
		}
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	return nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received interrupt signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
