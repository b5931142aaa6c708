package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/armchr/imagesearch/internal/config"
	"github.com/armchr/imagesearch/internal/controller"
	"github.com/armchr/imagesearch/internal/handler"
	init_services "github.com/armchr/imagesearch/internal/init"
	"github.com/armchr/imagesearch/internal/metrics"
	"github.com/armchr/imagesearch/internal/model"
	"github.com/armchr/imagesearch/internal/util"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// stringSliceFlag is a custom flag type that allows multiple values
type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, value)
	return nil
}

// parseLogLevel converts a string log level to zapcore.Level
func parseLogLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel // default to info
	}
}

func main() {
	var appConfigPath = flag.String("config", "app.yaml", "Path to app configuration file")
	var mode = flag.String("mode", "api", "Run mode: api, index or query")
	var collection = flag.String("collection", "", "Collection name, overrides qdrant.collection")
	var recreate = flag.Bool("recreate", false, "Drop the collection and its duplicate filter before starting, overrides qdrant.recreate")
	var dir = flag.String("dir", "", "Directory to index (index mode)")
	var pattern = flag.String("pattern", util.ImagePattern, "Glob of image files under -dir (index mode)")
	var excludes stringSliceFlag
	flag.Var(&excludes, "exclude", "Glob of files to skip, relative to -dir (can be specified multiple times)")
	var queries stringSliceFlag
	flag.Var(&queries, "q", "Query text (can be specified multiple times, query mode)")
	var nSimilar = flag.Int("n", 5, "Candidates per query (query mode)")
	var outDir = flag.String("out", "", "Directory to write matching images to (query mode)")
	flag.Parse()

	cfg, err := config.LoadConfig(*appConfigPath)
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}
	if *collection != "" {
		cfg.Qdrant.Collection = *collection
	}
	if *recreate {
		cfg.Qdrant.Recreate = true
	}

	cfgZap := zap.NewProductionConfig()
	cfgZap.Level.SetLevel(parseLogLevel(cfg.App.LogLevel))
	logger, err := cfgZap.Build()
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded successfully",
		zap.String("mode", *mode),
		zap.String("qdrant_host", cfg.Qdrant.Host),
		zap.String("collection", cfg.Qdrant.Collection),
		zap.Bool("recreate", cfg.Qdrant.Recreate),
		zap.String("embedding_provider", string(cfg.Embedding.Provider)))

	metrics.Register()

	switch *mode {
	case "api":
		ServeCommand(cfg, logger)
	case "index":
		if *dir == "" {
			logger.Fatal("-dir is required in index mode")
		}
		IndexCommand(cfg, logger, *dir, *pattern, excludes)
	case "query":
		if len(queries) == 0 {
			logger.Fatal("at least one -q is required in query mode")
		}
		QueryCommand(cfg, logger, queries, *nSimilar, *outDir)
	default:
		logger.Fatal("Unknown mode", zap.String("mode", *mode))
	}
}

// ServeCommand serves the HTTP API until SIGINT or SIGTERM, then drains
// pending indexing jobs
func ServeCommand(cfg *config.Config, logger *zap.Logger) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := init_services.NewServiceContainer(ctx, cfg, init_services.GetServerModeOptions(cfg), logger)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer closeServices(container, logger)

	searchController := controller.NewSearchController(container.Store, container.IndexProcessor, logger)
	router := handler.SetupRouter(searchController, cfg, logger)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to shut down server", zap.Error(err))
		}
	}()

	logger.Info("Starting server",
		zap.Int("port", cfg.App.Port),
		zap.String("collection", container.Store.Collection()))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		closeServices(container, logger)
		logger.Fatal("Failed to start server", zap.Error(err))
	}
	logger.Info("Server stopped")
}

// IndexCommand indexes every image under dir synchronously
func IndexCommand(cfg *config.Config, logger *zap.Logger, dir, pattern string, excludes []string) {
	ctx := context.Background()

	files, err := util.FindImageFiles(dir, pattern, excludes, logger)
	if err != nil {
		logger.Fatal("Failed to list images", zap.String("dir", dir), zap.Error(err))
	}
	logger.Info("Index command started",
		zap.String("dir", dir),
		zap.Int("files", len(files)))

	container, err := init_services.NewServiceContainer(ctx, cfg, init_services.GetIndexingOptions(cfg), logger)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}

	start := time.Now()
	stats, err := container.IndexProcessor.IndexFiles(ctx, files)
	closeServices(container, logger)
	if err != nil {
		logger.Fatal("Index command failed",
			zap.Int("indexed", stats.Indexed),
			zap.Int("duplicates", stats.Duplicates),
			zap.Error(err))
	}

	logger.Info("Index command completed",
		zap.String("collection", container.Store.Collection()),
		zap.Int("indexed", stats.Indexed),
		zap.Int("duplicates", stats.Duplicates),
		zap.Duration("duration", time.Since(start)))
}

// QueryCommand prints the candidates of each query. With outDir, image
// candidates are written there as PNG files.
func QueryCommand(cfg *config.Config, logger *zap.Logger, queries []string, nSimilar int, outDir string) {
	ctx := context.Background()

	container, err := init_services.NewServiceContainer(ctx, cfg, init_services.GetQueryModeOptions(cfg), logger)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer closeServices(container, logger)

	results, err := container.Store.QuerySimilar(ctx, nSimilar, model.Texts(queries...)...)
	if err != nil {
		closeServices(container, logger)
		logger.Fatal("Query failed", zap.Error(err))
	}

	if outDir != "" {
		if err := os.MkdirAll(outDir, 0755); err != nil {
			closeServices(container, logger)
			logger.Fatal("Failed to create output directory", zap.Error(err))
		}
	}

	for q, candidates := range results {
		fmt.Printf("%q:\n", queries[q])
		for rank, candidate := range candidates {
			switch candidate.Kind {
			case model.KindText:
				fmt.Printf("  %d. [%.4f] text: %s\n", rank+1, candidate.Score, candidate.Text)
			case model.KindImage:
				if outDir == "" {
					fmt.Printf("  %d. [%.4f] image (%d bytes)\n", rank+1, candidate.Score, len(candidate.Pixels))
					continue
				}
				path := filepath.Join(outDir, fmt.Sprintf("q%d_%d.png", q, rank+1))
				if err := os.WriteFile(path, candidate.Pixels, 0644); err != nil {
					logger.Error("Failed to write image", zap.String("path", path), zap.Error(err))
					continue
				}
				fmt.Printf("  %d. [%.4f] image: %s\n", rank+1, candidate.Score, path)
			}
		}
	}
}

// closeServices drains indexing and closes connections. logger.Fatal skips
// deferred calls, so fatal paths call it first.
func closeServices(container *init_services.ServiceContainer, logger *zap.Logger) {
	if err := container.Close(); err != nil {
		logger.Error("Failed to close services", zap.Error(err))
	}
}
