// overfly - inspection mission KPIs from the command line
// Load a building mesh and a waypoint path, print the mission KPIs as JSON,
// and optionally reorder the path, export a coverage preview or scrub
// through the mission in the terminal.
//
// Controls (-tui):
//
//	Left/Right  - Step back/forward one waypoint
//	Home/End    - Jump to the first/last waypoint
//	Q/Esc       - Quit
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/taigrr/overfly/internal/config"
	"github.com/taigrr/overfly/internal/logging"
	"github.com/taigrr/overfly/internal/observability"
	"github.com/taigrr/overfly/pkg/kpi"
	"github.com/taigrr/overfly/pkg/math3d"
	"github.com/taigrr/overfly/pkg/mission"
	"github.com/taigrr/overfly/pkg/models"
	"github.com/taigrr/overfly/pkg/planner"
)

var (
	meshPath    = flag.String("mesh", "", "Building mesh (.json, .glb or .gltf)")
	optimizeRun = flag.Bool("optimize", false, "Reorder the path before computing KPIs")
	outPath     = flag.String("out", "", "Write the (optimized) path as JSON to this file")
	pngPath     = flag.String("png", "", "Write a top-down coverage preview PNG")
	pngWidth    = flag.Int("png-width", 800, "Preview width in pixels")
	pngHeight   = flag.Int("png-height", 600, "Preview height in pixels")
	tui         = flag.Bool("tui", false, "Scrub through the mission in the terminal")
	targetFPS   = flag.Int("fps", 30, "Terminal preview FPS")
	metricsAddr = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address (overrides OVERFLY_METRICS_ADDR)")
	logLevel    = flag.String("log-level", "", "Log level (overrides OVERFLY_LOG_LEVEL)")
	logFormat   = flag.String("log-format", "", "Log format text|json (overrides OVERFLY_LOG_FORMAT)")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "overfly - inspection mission KPIs\n\n")
		fmt.Fprintf(os.Stderr, "Usage: overfly [options] <path.json>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nTunables are read from OVERFLY_* environment variables.\n")
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(pathFile string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *logFormat != "" {
		cfg.LogFormat = *logFormat
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var mesh *models.Mesh
	if *meshPath != "" {
		mesh, err = loadMesh(*meshPath, cfg.Placement())
		if err != nil {
			return err
		}
		logger.Info("mesh loaded",
			"file", filepath.Base(*meshPath),
			"vertices", mesh.VertexCount(),
			"triangles", mesh.TriangleCount(),
			"bounds", mesh.Bounds())
	}

	path, err := mission.Load(pathFile)
	if err != nil {
		return fmt.Errorf("load path: %w", err)
	}

	opts := []planner.Option{planner.WithLogger(logger)}
	if cfg.MetricsAddr != "" {
		collector, err := observability.NewCollector(nil)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		opts = append(opts,
			planner.WithKPIRecorder(collector),
			planner.WithOptimizationRecorder(collector))
		stop := serveMetrics(cfg.MetricsAddr, collector.Handler(), logger)
		defer stop()
	}

	p := planner.New(mesh, path, cfg.Planner(), opts...)
	defer p.Close()

	if *optimizeRun {
		report, err := p.Optimize(ctx)
		if err != nil {
			return fmt.Errorf("optimize: %w", err)
		}
		logger.Info("path optimized",
			"cost", report.Cost,
			"baseline", report.BaselineCost,
			"passes", report.Passes,
			"elapsed", report.Duration)
	}

	if *outPath != "" {
		if err := writePath(*outPath, p.Store().Path()); err != nil {
			return err
		}
	}

	metrics, err := p.ComputeNow(ctx)
	if err != nil {
		return fmt.Errorf("compute kpis: %w", err)
	}
	if err := printMetrics(metrics); err != nil {
		return err
	}

	if *pngPath != "" {
		fb := renderFrame(p, metrics, p.Store().Len(), *pngWidth, *pngHeight)
		if err := fb.SavePNG(*pngPath); err != nil {
			return fmt.Errorf("write preview: %w", err)
		}
		logger.Info("preview written", "file", *pngPath)
	}

	if *tui {
		return runTUI(ctx, p, metrics, *targetFPS)
	}
	return nil
}

// loadMesh reads a mesh and moves it into world space.
func loadMesh(name string, placement math3d.Mat4) (*models.Mesh, error) {
	mesh, err := models.Load(name)
	if err != nil {
		return nil, fmt.Errorf("load mesh: %w", err)
	}
	return mesh.Placed(placement), nil
}

func printMetrics(m kpi.Metrics) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

func writePath(name string, path mission.Path) error {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("write path: %w", err)
	}
	if err := mission.Encode(f, path); err != nil {
		f.Close()
		return fmt.Errorf("write path: %w", err)
	}
	return f.Close()
}

// serveMetrics starts the /metrics endpoint and returns a shutdown func.
func serveMetrics(addr string, handler http.Handler, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "err", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
