package cmd

import (
	"fmt"
	"image"
	_ "image/jpeg" // decoder
	_ "image/png"  // decoder
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/spheretex/internal/engine"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert an image into a sphere-ready texture",
	Long: `Convert an existing image into a seamless equirectangular texture.

The source image is resampled to the target dimensions, the wrap seam is
cross-faded and the pole rows are corrected so the result maps cleanly
onto a sphere.`,
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringP("input", "i", "", "Input image path (png or jpeg, required)")
	convertCmd.Flags().String("resolution", "", "Resolution preset (alternative to --width/--height)")
	convertCmd.Flags().Int("width", 0, "Target width in pixels")
	convertCmd.Flags().Int("height", 0, "Target height in pixels (defaults to width/2)")
	convertCmd.Flags().Bool("allow-aspect-override", false, "Accept dimensions that are not 2:1")
	convertCmd.Flags().StringP("output", "o", "", "Output file path (required)")
	convertCmd.Flags().String("format", "png", "Output format: png or jpeg")
	convertCmd.Flags().Int("quality", 90, "JPEG quality (1-100)")
	convertCmd.Flags().String("png-compression", "default", "PNG compression (default, speed, best, none)")
	convertCmd.Flags().Bool("no-pole-fix", false, "Skip pole correction")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"convert.input", "input"},
		{"convert.resolution", "resolution"},
		{"convert.width", "width"},
		{"convert.height", "height"},
		{"convert.allow_aspect_override", "allow-aspect-override"},
		{"convert.output", "output"},
		{"convert.format", "format"},
		{"convert.quality", "quality"},
		{"convert.png_compression", "png-compression"},
		{"convert.no_pole_fix", "no-pole-fix"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, convertCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runConvert(cmd *cobra.Command, args []string) error {
	input := viper.GetString("convert.input")
	resolution := viper.GetString("convert.resolution")
	width := viper.GetInt("convert.width")
	height := viper.GetInt("convert.height")
	allowAspect := viper.GetBool("convert.allow_aspect_override")
	output := viper.GetString("convert.output")
	format := viper.GetString("convert.format")
	quality := viper.GetInt("convert.quality")
	pngCompression := viper.GetString("convert.png_compression")
	noPoleFix := viper.GetBool("convert.no_pole_fix")

	if logger == nil {
		initLogging()
	}

	if input == "" {
		return fmt.Errorf("--input is required")
	}
	if output == "" {
		return fmt.Errorf("--output is required")
	}

	src, srcFormat, err := decodeImage(input)
	if err != nil {
		return err
	}

	// Default to the source dimensions rounded to 2:1 when no target size
	// is given.
	if resolution == "" && width <= 0 {
		width = src.Bounds().Dx()
	}
	width, height, err = resolveDimensions(resolution, width, height)
	if err != nil {
		return err
	}

	if err := validateFormat(format, quality); err != nil {
		return err
	}

	logger.Info("Converting image",
		"input", input,
		"source_format", srcFormat,
		"source_size", fmt.Sprintf("%dx%d", src.Bounds().Dx(), src.Bounds().Dy()),
		"target_size", fmt.Sprintf("%dx%d", width, height),
		"output", output,
	)

	ctx, cancel := signalContext()
	defer cancel()

	eng := engine.New(logger)
	buf, err := eng.Generate(ctx, engine.Request{
		Mode:                engine.ModeConvert,
		Source:              src,
		Width:               width,
		Height:              height,
		AllowAspectOverride: allowAspect,
		SkipPoleFix:         noPoleFix,
	})
	if err != nil {
		return fmt.Errorf("failed to convert image: %w", err)
	}

	if err := writeImage(buf, output, format, quality, pngCompression); err != nil {
		return err
	}

	logger.Info("Conversion complete", "output", output)
	return nil
}

// decodeImage loads a png or jpeg image from disk.
func decodeImage(path string) (image.Image, string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".png" && ext != ".jpg" && ext != ".jpeg" {
		return nil, "", fmt.Errorf("unsupported input format %q: must be png or jpeg", ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open input image: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode input image: %w", err)
	}
	return img, format, nil
}
