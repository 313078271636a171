package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ronypadmani/AI-meeting-Assistant/internal/ai"
	"github.com/ronypadmani/AI-meeting-Assistant/internal/annotate"
	"github.com/ronypadmani/AI-meeting-Assistant/internal/archive"
	"github.com/ronypadmani/AI-meeting-Assistant/internal/audio"
	"github.com/ronypadmani/AI-meeting-Assistant/internal/config"
	"github.com/ronypadmani/AI-meeting-Assistant/internal/metrics"
	"github.com/ronypadmani/AI-meeting-Assistant/internal/server"
	"github.com/ronypadmani/AI-meeting-Assistant/internal/session"
	"github.com/ronypadmani/AI-meeting-Assistant/internal/stitch"
	"github.com/ronypadmani/AI-meeting-Assistant/internal/storage"
)

func main() {
	log.Println("meeting-assistant: starting")

	configPath := flag.String("config", os.Getenv(config.EnvPrefix+"CONFIG"), "path to YAML config file")
	flag.Parse()

	cfg, warnings, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	for _, warning := range warnings {
		log.Printf("warning: %s", warning)
	}

	var store session.Store
	sqlStore, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Printf("warning: storage init failed, sessions will not survive restarts: %v", err)
		store = storage.NewNoopStore()
	} else {
		store = sqlStore
		defer func() { _ = sqlStore.Close() }()
	}

	reg := metrics.NewMetrics(nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := server.NewHub(cfg.ParsedHeartbeatInterval(), cfg.ParsedIdleTimeout(), reg)
	go hub.Sweep(ctx)

	var (
		transcriber annotate.Transcriber
		diarizer    annotate.Diarizer
		emotions    annotate.EmotionClassifier
		keyTerms    annotate.KeyTermExtractor
		entities    annotate.EntityExtractor
		summarizer  annotate.Summarizer
	)
	if cfg.OpenAIAPIKey != "" {
		transcriber = ai.NewWhisper(cfg.OpenAIAPIKey, "")
		annotator := ai.NewLanguageAnnotator(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		emotions = annotator
		keyTerms = annotator
		entities = annotator
		summarizer = ai.NewSummarizer(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	}
	if cfg.SummaryModel != "" {
		provider, _, perr := ai.ParseModel(cfg.SummaryModel)
		if perr != nil {
			log.Printf("warning: invalid summary_model %q: %v", cfg.SummaryModel, perr)
		} else if routed, serr := ai.NewSummarizerForModel(cfg.SummaryModel, cfg.SummaryAPIKey(provider)); serr != nil {
			log.Printf("warning: summary model unavailable, using default summarizer: %v", serr)
		} else {
			summarizer = routed
		}
	}
	if cfg.DeepgramAPIKey != "" {
		diarizer = ai.NewDeepgram(cfg.DeepgramAPIKey, cfg.DeepgramModel)
	}

	pipeline := annotate.NewPipeline(transcriber, diarizer, emotions, keyTerms, entities, ai.NewWikipedia(), summarizer, annotate.Options{
		StageTimeout:    cfg.ParsedStageTimeout(),
		MinJargonScore:  cfg.MinJargonScore,
		MaxJargonTerms:  cfg.MaxJargonTerms,
		MaxSummaryInput: cfg.MaxSummaryInput,
	})
	stitcher := stitch.New(summarizer, cfg.MaxSummaryInput)

	mic, sampleRate := openMic(cfg)

	recorder := audio.NewRecorder(cfg.AudioDir, sampleRate)
	exporter := storage.NewWriter(cfg.ExportDir)

	var archiver session.Archiver = archive.NewLocalArchiver(exporter)
	if cfg.GDriveFolderID != "" {
		driveArchiver, driveErr := archive.NewDriveArchiver(ctx, cfg.GoogleCredentialsFile, cfg.GDriveFolderID, exporter)
		if driveErr != nil {
			log.Printf("warning: drive archiving disabled: %v", driveErr)
		} else {
			archiver = driveArchiver
		}
	}

	manager := session.NewManager(store, pipeline, stitcher, hub, recorder, archiver, reg, session.Config{
		SampleRate:     sampleRate,
		ChunkDuration:  cfg.ParsedChunkDuration(),
		QueueDepth:     cfg.QueueDepth,
		SilenceTimeout: cfg.ParsedSilenceTimeout(),
	})

	if mic != nil {
		if err := mic.Start(); err != nil {
			log.Printf("warning: microphone start failed, running API only: %v", err)
			mic = nil
		} else {
			go func() {
				if err := mic.Stream(ctx, audio.SampleWriter(manager.PushSamples)); err != nil && ctx.Err() == nil {
					log.Printf("mic stream error: %v", err)
					manager.FailActive(err)
				}
			}()
		}
	}

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: server.Handler(hub, manager)}
	go func() {
		log.Printf("meeting-assistant: listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("meeting-assistant: shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := manager.Shutdown(shutdownCtx); err != nil {
		log.Printf("warning: session shutdown failed: %v", err)
	}

	if mic != nil {
		_ = mic.Stop()
		_ = mic.Close()
		audio.TeardownDevices()
	}

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("warning: http shutdown failed: %v", err)
	}
}

// openMic tries each candidate sample rate and returns the first device that
// opens along with its rate. A nil mic means no capture device is available;
// the preferred rate is still returned so downstream components agree on one.
func openMic(cfg config.Config) (*audio.Mic, int) {
	if err := audio.InitDevices(); err != nil {
		log.Printf("warning: audio device init failed, running API only: %v", err)
		return nil, cfg.MicSampleRate
	}

	for _, rate := range cfg.SampleRateCandidates() {
		mic, err := audio.OpenMic(rate, 0)
		if err != nil {
			log.Printf("warning: microphone open failed at %d Hz: %v", rate, err)
			continue
		}
		if rate != cfg.MicSampleRate {
			log.Printf("microphone opened at %d Hz instead of preferred %d Hz", rate, cfg.MicSampleRate)
		}
		return mic, rate
	}
	log.Printf("warning: microphone unavailable, running API only")
	return nil, cfg.MicSampleRate
}
