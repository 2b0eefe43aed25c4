package cmd

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/spheretex/internal/engine"
	"github.com/MeKo-Tech/spheretex/internal/pack"
	"github.com/MeKo-Tech/spheretex/internal/palette"
	"github.com/MeKo-Tech/spheretex/internal/synth"
	"github.com/MeKo-Tech/spheretex/internal/worker"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Generate a texture pack",
	Long: `Generate a set of textures in parallel and store them in a SQLite
texture pack. By default every texture type is rendered with each of its
matching palettes.`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringP("output", "o", "", "Output pack file path (required, e.g. textures.pack)")
	batchCmd.Flags().String("types", "", "Comma-separated texture types (default: all)")
	batchCmd.Flags().String("palettes", "", "Comma-separated palette names (default: matching palettes per type)")
	batchCmd.Flags().String("resolution", "1k", "Resolution preset for all textures")
	batchCmd.Flags().Int64("seed", 1337, "Deterministic seed for noise generation")
	batchCmd.Flags().Int("octaves", 6, "Number of fractal noise octaves")
	batchCmd.Flags().Float64("scale", 100.0, "Noise feature scale")
	batchCmd.Flags().IntP("workers", "w", 0, "Number of parallel workers (default: number of CPUs)")
	batchCmd.Flags().Bool("progress", true, "Show progress bar")
	batchCmd.Flags().Bool("allow-failures", false, "Continue even if some textures fail")
	batchCmd.Flags().String("name", "SphereTex Pack", "Pack name stored in metadata")
	batchCmd.Flags().String("description", "Seamless sphere textures", "Pack description")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"batch.output", "output"},
		{"batch.types", "types"},
		{"batch.palettes", "palettes"},
		{"batch.resolution", "resolution"},
		{"batch.seed", "seed"},
		{"batch.octaves", "octaves"},
		{"batch.scale", "scale"},
		{"batch.workers", "workers"},
		{"batch.progress", "progress"},
		{"batch.allow_failures", "allow-failures"},
		{"batch.name", "name"},
		{"batch.description", "description"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, batchCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

// batchPalettes maps each texture type to the named palettes rendered for
// it when no explicit palette list is given.
var batchPalettes = map[synth.TextureType][]string{
	synth.Earth: {"earth_default"},
	synth.GasGiant: {
		"jupiter", "neptune", "saturn", "venus", "mars",
		"mercury", "uranus", "pluto", "titan", "europa",
	},
	synth.Marble: {"marble_classic", "marble_onyx", "marble_emerald"},
}

// packGenerator renders one texture per key and encodes it as PNG. It
// implements worker.Generator.
type packGenerator struct {
	eng     *engine.Engine
	octaves int
	scale   float64
}

func (g *packGenerator) Generate(ctx context.Context, key pack.Key) ([]byte, error) {
	typ, err := synth.ParseTextureType(key.Type)
	if err != nil {
		return nil, err
	}
	cfg, err := resolveNoiseConfig(typ, g.octaves, g.scale, "")
	if err != nil {
		return nil, err
	}
	pal, err := palette.Lookup(key.Palette)
	if err != nil {
		return nil, err
	}

	buf, err := g.eng.Generate(ctx, engine.Request{
		Mode:    engine.ModeProcedural,
		Type:    typ,
		Width:   key.Width,
		Height:  key.Height,
		Seed:    key.Seed,
		Noise:   cfg,
		Palette: pal,
	})
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := png.Encode(&out, buf.ToNRGBA()); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return out.Bytes(), nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	output := viper.GetString("batch.output")
	typesStr := viper.GetString("batch.types")
	palettesStr := viper.GetString("batch.palettes")
	resolution := viper.GetString("batch.resolution")
	seed := viper.GetInt64("batch.seed")
	octaves := viper.GetInt("batch.octaves")
	scale := viper.GetFloat64("batch.scale")
	workers := viper.GetInt("batch.workers")
	showProgress := viper.GetBool("batch.progress")
	allowFailures := viper.GetBool("batch.allow_failures")
	name := viper.GetString("batch.name")
	description := viper.GetString("batch.description")

	if logger == nil {
		initLogging()
	}

	if output == "" {
		return fmt.Errorf("--output is required")
	}

	width, height, err := resolveDimensions(resolution, 0, 0)
	if err != nil {
		return err
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	tasks, err := buildBatchTasks(typesStr, palettesStr, width, height, seed)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return fmt.Errorf("no textures selected")
	}

	logger.Info("Starting batch texture generation",
		"textures", len(tasks),
		"size", fmt.Sprintf("%dx%d", width, height),
		"seed", seed,
		"workers", workers,
		"output", output,
	)

	writer, err := pack.NewWriter(output, pack.Metadata{
		Name:        name,
		Format:      "png",
		Description: description,
		Generator:   "spheretex",
		Version:     "1.0",
		Created:     time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to create pack writer: %w", err)
	}
	defer writer.Close()

	ctx, cancel := signalContext()
	defer cancel()

	progress := worker.NewProgress(len(tasks), showProgress)

	pool := worker.New(worker.Config{
		Workers:    workers,
		Generator:  &packGenerator{eng: engine.New(logger), octaves: octaves, scale: scale},
		OnProgress: progress.Callback(),
	})

	results := pool.Run(ctx, tasks)
	progress.Done()

	var failedCount int
	for _, r := range results {
		if r.Err != nil {
			failedCount++
			logger.Error("Texture generation failed", "texture", r.Task.Key.String(), "error", r.Err)
			continue
		}
		if err := writer.WriteTexture(r.Task.Key, r.Data); err != nil {
			return fmt.Errorf("failed to store texture %s: %w", r.Task.Key, err)
		}
	}

	logger.Info(progress.Summary())

	if failedCount > 0 {
		if allowFailures {
			logger.Warn("Some textures failed to generate, but continuing due to --allow-failures flag", "failed_count", failedCount)
		} else {
			return fmt.Errorf("%d textures failed to generate", failedCount)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush pack: %w", err)
	}

	logger.Info("Pack generation complete", "output", output, "textures", len(tasks)-failedCount)
	return nil
}

// buildBatchTasks expands the type and palette selections into the list of
// textures to render.
func buildBatchTasks(typesStr, palettesStr string, width, height int, seed int64) ([]worker.Task, error) {
	var types []synth.TextureType
	if typesStr == "" {
		types = synth.TextureTypes()
	} else {
		for _, name := range strings.Split(typesStr, ",") {
			typ, err := synth.ParseTextureType(strings.TrimSpace(name))
			if err != nil {
				return nil, err
			}
			types = append(types, typ)
		}
	}

	var explicit []string
	if palettesStr != "" {
		for _, name := range strings.Split(palettesStr, ",") {
			name = strings.TrimSpace(name)
			if _, err := palette.Lookup(name); err != nil {
				return nil, err
			}
			explicit = append(explicit, name)
		}
	}

	var tasks []worker.Task
	for _, typ := range types {
		names := explicit
		if names == nil {
			names = batchPalettes[typ]
		}
		for _, pal := range names {
			tasks = append(tasks, worker.Task{Key: pack.Key{
				Type:    typ.String(),
				Palette: pal,
				Width:   width,
				Height:  height,
				Seed:    seed,
			}})
		}
	}
	return tasks, nil
}
