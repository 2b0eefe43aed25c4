package cmd

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/spheretex/internal/engine"
	"github.com/MeKo-Tech/spheretex/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve textures over HTTP, generating them on-demand",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Listen address (host:port)")
	serveCmd.Flags().String("cache-dir", "", "Directory for cached textures (defaults to --output-dir)")
	serveCmd.Flags().Bool("disable-cache", false, "Always regenerate textures (still writes to disk)")
	serveCmd.Flags().Int("max-concurrent-generations", runtime.NumCPU(), "Max concurrent texture generations (default: number of CPUs)")
	serveCmd.Flags().Duration("generation-timeout", 2*time.Minute, "Timeout per texture generation")
	serveCmd.Flags().String("cache-control", "no-store", "Cache-Control header for served textures")
	serveCmd.Flags().Int64("seed", 1337, "Default seed for textures requested without one")

	mustBind := func(key string, name string) {
		if err := viper.BindPFlag(key, serveCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}

	mustBind("serve.addr", "addr")
	mustBind("serve.cache_dir", "cache-dir")
	mustBind("serve.disable_cache", "disable-cache")
	mustBind("serve.max_concurrent_generations", "max-concurrent-generations")
	mustBind("serve.generation_timeout", "generation-timeout")
	mustBind("serve.cache_control", "cache-control")
	mustBind("serve.seed", "seed")
}

func runServe(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	addr := viper.GetString("serve.addr")
	cacheDir := viper.GetString("serve.cache_dir")
	if cacheDir == "" {
		cacheDir = viper.GetString("output-dir")
	}
	disableCache := viper.GetBool("serve.disable_cache")
	maxConc := viper.GetInt("serve.max_concurrent_generations")
	genTimeout := viper.GetDuration("serve.generation_timeout")
	cacheControl := viper.GetString("serve.cache_control")
	seed := viper.GetInt64("serve.seed")

	srv, err := server.NewTextures(engine.New(logger), server.TexturesConfig{
		CacheDir:                 cacheDir,
		Seed:                     seed,
		DisableCache:             disableCache,
		MaxConcurrentGenerations: maxConc,
		GenerationTimeout:        genTimeout,
		CacheControl:             cacheControl,
	}, logger)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/textures/", srv.Handler())
	mux.Handle("/status", srv.StatusHandler())
	mux.Handle("/palettes", srv.PalettesHandler())

	logger.Info("texture server listening",
		"addr", addr,
		"cache_dir", cacheDir,
		"max_concurrent_generations", maxConc,
	)

	httpSrv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	return httpSrv.ListenAndServe()
}
