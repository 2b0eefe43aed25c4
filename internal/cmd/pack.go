package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/spheretex/internal/pack"
)

var packCmd = &cobra.Command{
	Use:   "pack",
	Short: "Inspect and unpack texture packs",
}

var packLsCmd = &cobra.Command{
	Use:   "ls <pack-file>",
	Short: "List the textures stored in a pack",
	Args:  cobra.ExactArgs(1),
	RunE:  runPackLs,
}

var packExtractCmd = &cobra.Command{
	Use:   "extract <pack-file>",
	Short: "Extract pack textures to PNG files",
	Args:  cobra.ExactArgs(1),
	RunE:  runPackExtract,
}

func init() {
	rootCmd.AddCommand(packCmd)
	packCmd.AddCommand(packLsCmd)
	packCmd.AddCommand(packExtractCmd)

	packExtractCmd.Flags().StringP("dir", "d", ".", "Directory to write extracted textures into")
}

func runPackLs(cmd *cobra.Command, args []string) error {
	r, err := pack.OpenReader(args[0])
	if err != nil {
		return err
	}
	defer r.Close()

	return listPack(os.Stdout, r)
}

func runPackExtract(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	dir, err := cmd.Flags().GetString("dir")
	if err != nil {
		return err
	}

	r, err := pack.OpenReader(args[0])
	if err != nil {
		return err
	}
	defer r.Close()

	n, err := extractPack(r, dir)
	if err != nil {
		return err
	}

	logger.Info("pack extracted", "textures", n, "dir", dir)
	return nil
}

func listPack(w io.Writer, r *pack.Reader) error {
	meta, err := r.Metadata()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Pack: %s (%s, created %s)\n", meta.Name, meta.Version, meta.Created)
	if meta.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", meta.Description)
	}

	keys, err := r.Keys()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tPALETTE\tSIZE\tSEED")
	for _, k := range keys {
		fmt.Fprintf(tw, "%s\t%s\t%dx%d\t%d\n", k.Type, k.Palette, k.Width, k.Height, k.Seed)
	}
	return tw.Flush()
}

func extractPack(r *pack.Reader, dir string) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	keys, err := r.Keys()
	if err != nil {
		return 0, err
	}

	for i, k := range keys {
		data, err := r.ReadTexture(k)
		if err != nil {
			return i, err
		}
		path := filepath.Join(dir, packEntryFilename(k))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return i, fmt.Errorf("failed to write %s: %w", path, err)
		}
	}

	return len(keys), nil
}

func packEntryFilename(k pack.Key) string {
	return fmt.Sprintf("%s_%s_%dx%d_s%d.png", k.Type, k.Palette, k.Width, k.Height, k.Seed)
}
