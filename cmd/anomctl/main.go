// Command anomctl runs the anomaly scoring engine over feature CSV files:
// training a model, scoring a table, or analyzing a scored table.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"market-anomaly/internal/alert"
	"market-anomaly/internal/cfg"
	"market-anomaly/internal/engine"
	"market-anomaly/internal/frame"
	"market-anomaly/internal/metrics"
	"market-anomaly/internal/storage"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	var (
		mode       = flag.String("mode", "score", "Mode: train, score, pipeline, analyze")
		inputPath  = flag.String("input", "", "Input feature CSV (date index + feature columns)")
		outputPath = flag.String("output", "", "Output CSV for scored tables (score/pipeline modes)")
	)
	flag.Parse()

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *inputPath == "" {
		log.Fatal().Msg("-input is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	mw := metrics.NewWrapper(m)
	startMetricsServer(ctx, c)

	eng := engine.New(
		engine.WithEstimators(c.Estimators),
		engine.WithMaxDepth(c.MaxDepth),
		engine.WithSeed(c.Seed),
		engine.WithMetrics(mw),
	)

	table, err := readTable(*inputPath)
	if err != nil {
		log.Fatal().Err(err).Str("input", *inputPath).Msg("failed to read input table")
	}

	switch *mode {
	case "train":
		runTrain(eng, table, c, mw)
	case "score":
		runScore(eng, table, c, *outputPath, true)
	case "pipeline":
		runPipeline(eng, table, c, *outputPath)
	case "analyze":
		runAnalyze(eng, table, c)
	default:
		log.Fatal().Str("mode", *mode).Msg("unknown mode")
	}
}

func runTrain(eng *engine.Engine, table *frame.Table, c cfg.Settings, mw *metrics.Wrapper) {
	if err := eng.Train(table); err != nil {
		log.Fatal().Err(err).Msg("training failed")
	}
	if err := eng.Save(c.ModelPath); err != nil {
		log.Fatal().Err(err).Str("path", c.ModelPath).Msg("model save failed")
	}
	if info, err := os.Stat(c.ModelPath); err == nil {
		mw.ModelAgeSet(time.Since(info.ModTime()).Seconds())
	}
}

func runScore(eng *engine.Engine, table *frame.Table, c cfg.Settings, outputPath string, loadModel bool) {
	if loadModel {
		if err := eng.Load(c.ModelPath); err != nil {
			log.Fatal().Err(err).Str("path", c.ModelPath).Msg("model load failed")
		}
	}

	scored := eng.Predict(table)

	if outputPath != "" {
		if err := writeTable(outputPath, scored); err != nil {
			log.Fatal().Err(err).Str("output", outputPath).Msg("failed to write scored table")
		}
	}
	journalScores(c, scored)

	report, err := eng.Analyze(scored)
	if err != nil {
		log.Fatal().Err(err).Msg("analysis failed")
	}
	printReport(report)
	notify(c, report)
}

func runPipeline(eng *engine.Engine, table *frame.Table, c cfg.Settings, outputPath string) {
	scored := eng.TrainAndPredict(table)

	if err := eng.Save(c.ModelPath); err != nil {
		log.Warn().Err(err).Str("path", c.ModelPath).Msg("model save skipped")
	}
	if outputPath != "" {
		if err := writeTable(outputPath, scored); err != nil {
			log.Fatal().Err(err).Str("output", outputPath).Msg("failed to write scored table")
		}
	}
	journalScores(c, scored)

	report, err := eng.Analyze(scored)
	if err != nil {
		log.Fatal().Err(err).Msg("analysis failed")
	}
	printReport(report)
	notify(c, report)
}

func runAnalyze(eng *engine.Engine, table *frame.Table, c cfg.Settings) {
	report, err := eng.Analyze(table)
	if err != nil {
		log.Fatal().Err(err).Msg("analysis failed")
	}
	printReport(report)
	notify(c, report)
}

func journalScores(c cfg.Settings, scored *frame.Table) {
	if c.DataPath == "" {
		return
	}
	store, err := storage.New(c.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("journal unavailable, continuing without persistence")
		return
	}
	defer store.Close()

	stored, err := store.StoreScoredTable(c.Symbol, scored)
	if err != nil {
		log.Warn().Err(err).Msg("journal write failed")
		return
	}
	log.Info().Int("rows", stored).Str("symbol", c.Symbol).Msg("scores journaled")
}

func notify(c cfg.Settings, report *engine.Report) {
	if c.WebhookURL == "" {
		return
	}
	notifier := alert.New(c.WebhookURL, c.WebhookTimeout)
	if err := notifier.Send(c.Symbol, report); err != nil {
		log.Warn().Err(err).Msg("alert delivery failed")
	}
}

func printReport(report *engine.Report) {
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("failed to render report")
		return
	}
	fmt.Println(string(out))
}

func readTable(path string) (*frame.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return frame.ReadCSV(f)
}

func writeTable(path string, t *frame.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return frame.WriteCSV(f, t)
}

// startMetricsServer serves Prometheus metrics for the duration of the run.
func startMetricsServer(ctx context.Context, c cfg.Settings) {
	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
		mux.Handle("/metrics", promhttp.Handler())

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", c.MetricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
		}

		go func() {
			<-ctx.Done()
			if err := server.Shutdown(context.Background()); err != nil {
				log.Error().Err(err).Msg("failed to shutdown metrics server")
			}
		}()

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn().Err(err).Msg("metrics server unavailable")
		}
	}()
}
