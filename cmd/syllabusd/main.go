package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/syllabus-tracker/internal/async"
	"github.com/joseph-ayodele/syllabus-tracker/internal/calendar"
	"github.com/joseph-ayodele/syllabus-tracker/internal/calendar/ics"
	"github.com/joseph-ayodele/syllabus-tracker/internal/capture"
	"github.com/joseph-ayodele/syllabus-tracker/internal/common"
	"github.com/joseph-ayodele/syllabus-tracker/internal/courses"
	"github.com/joseph-ayodele/syllabus-tracker/internal/export"
	"github.com/joseph-ayodele/syllabus-tracker/internal/ingest"
	"github.com/joseph-ayodele/syllabus-tracker/internal/llm/provider"
	"github.com/joseph-ayodele/syllabus-tracker/internal/ocr"
	"github.com/joseph-ayodele/syllabus-tracker/internal/pipeline"
	repo "github.com/joseph-ayodele/syllabus-tracker/internal/repository"
	svc "github.com/joseph-ayodele/syllabus-tracker/internal/server"
)

func main() {
	cfg := common.LoadConfig()

	// Setup structured logger that outputs messages with variables but no time/level
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	addr := cfg.Server.GRPCAddr
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}
	loc := cfg.Location()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := svc.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer svc.CloseDB(db, logger)

	if err := svc.PingDB(ctx, db, logger, 5*time.Second); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	courseRepo := repo.NewCourseRepository(db, logger)
	settingsRepo := repo.NewSettingsRepository(db, logger)

	// Text extraction: tesseract/pdftoppm per file, pages joined in order
	extractor := ocr.NewExtractor(ocr.Config{
		Tesseract:           cfg.OCR.Tesseract,
		TesseractLang:       cfg.OCR.Language,
		HeicConverter:       cfg.OCR.HeicConverter,
		TessdataDir:         cfg.OCR.TessdataDir,
		ArtifactCacheDir:    cfg.OCR.ArtifactCacheDir,
		EnableTSVConfidence: true,
	}, logger)
	pageExtractor := ocr.NewPageExtractor(extractor, ocr.ParsePolicy(cfg.OCR.InvalidPagePolicy), logger)

	parser, err := provider.New(cfg.LLM, logger)
	if err != nil {
		logger.Error("failed to build parser", "error", err)
		os.Exit(2)
	}

	// A headless daemon can only consent up front through configuration.
	var prompter calendar.Prompter
	if cfg.Calendar.AutoConsent {
		prompter = calendar.PrompterFunc(func(context.Context) (bool, error) { return true, nil })
	}
	store := ics.New(cfg.Calendar.Dir, cfg.Calendar.Name, settingsRepo, logger)
	calendarService := calendar.NewService(store, settingsRepo, prompter, loc, logger)

	loop := async.NewLoop(logger,
		async.WithQueueSize(cfg.Pipeline.QueueSize),
		async.WithTaskTimeout(30*time.Second),
	)
	coordinator := pipeline.NewCoordinator(loop,
		pipeline.NewProcessor(logger, pageExtractor, parser),
		courses.NewGateway(courseRepo, loc, logger),
		calendarService,
		courseRepo,
		pipeline.Config{RunTimeout: cfg.Pipeline.RunTimeout},
		logger,
	)
	loader := capture.NewLoader(logger, capture.WithWorkers(cfg.OCR.LoadWorkers))

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", addr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer()

	syllabusService := svc.NewSyllabusService(coordinator, loader,
		courses.NewCatalog(courseRepo, loc, logger),
		export.NewService(courseRepo, loc, logger),
		loc, logger)
	svc.RegisterSyllabusServiceServer(grpcServer, syllabusService)

	// Register gRPC health service
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(svc.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	// Reflection for grpcurl
	reflection.Register(grpcServer)

	if cfg.Inbox.Dir != "" {
		if err := os.MkdirAll(cfg.Inbox.Dir, 0o755); err != nil {
			logger.Error("failed to create inbox", "dir", cfg.Inbox.Dir, "error", err)
			os.Exit(1)
		}
		batches, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
			Roots:      []string{cfg.Inbox.Dir},
			SkipHidden: true,
			Debounce:   cfg.Inbox.Debounce,
		}, logger)
		if err != nil {
			logger.Error("failed to watch inbox", "dir", cfg.Inbox.Dir, "error", err)
			os.Exit(1)
		}
		inbox := ingest.NewInbox(coordinator, loader, logger)
		go func() {
			for err := range errs {
				logger.Warn("inbox.watch.error", "error", err)
			}
		}()
		go func() {
			if err := inbox.Run(ctx, batches); err != nil && ctx.Err() == nil {
				logger.Error("inbox stopped", "error", err)
			}
		}()
		logger.Info("inbox watching", "dir", cfg.Inbox.Dir)
	}

	logger.Info("syllabusd listening", "addr", addr, "provider", cfg.LLM.Provider, "calendar", cfg.Calendar.Name)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			slog.Error("gRPC serve error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	healthServer.Shutdown()
	grpcServer.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	coordinator.Close(shutdownCtx)
	loop.Shutdown(shutdownCtx)
	logger.Info("syllabusd stopped")
}
