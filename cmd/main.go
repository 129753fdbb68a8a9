package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"chess_review/internal/adapters"
	"chess_review/internal/bootstrap"
	"chess_review/internal/chessrules"
	analysesDelivery "chess_review/internal/delivery/analyses"
	analysisDelivery "chess_review/internal/delivery/analysis"
	puzzleDelivery "chess_review/internal/delivery/puzzle"
	reportDelivery "chess_review/internal/delivery/report"
	ownMiddleware "chess_review/internal/middleware"
	repo "chess_review/internal/repository"
	analysesUC "chess_review/internal/usecase/analyses"
	analysisUC "chess_review/internal/usecase/analysis"
	"chess_review/internal/usecase/grading"
	puzzleUC "chess_review/internal/usecase/puzzle"
	reportUC "chess_review/internal/usecase/report"
	engineRPC "chess_review/microservices/proto"
)

type mainDeliveryHandler struct {
	analysis *analysisDelivery.AnalysisHandler
	report   *reportDelivery.ReportHandler
	puzzle   *puzzleDelivery.PuzzleHandler
	analyses *analysesDelivery.AnalysesHandler
}

type dataBaseAdapters struct {
	redisAdapter *adapters.AdapterRedis
	mongoAdapter *adapters.AdapterMongo
}

// engineBackend is either the in-process scheduler or a remote engine
// service. run blocks until ctx is done.
type engineBackend struct {
	engine analysisUC.Engine
	run    func(ctx context.Context) error
	close  func(ctx context.Context) error
}

func main() {
	cfg, err := bootstrap.Setup(".env")
	if err != nil {
		zap.NewExample().Sugar().Fatalf("failed to setup configuration: %v", err)
	}
	logger := bootstrap.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	databaseAdapters := initDatabaseAdapters(ctx, logger, cfg)
	defer databaseAdapters.mongoAdapter.Close(context.Background())
	defer databaseAdapters.redisAdapter.Close(context.Background())

	backend, err := initEngineBackend(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize engine", zap.Error(err))
	}

	r := chi.NewRouter()
	handlers := initializeDeliveryHandlers(*cfg, logger, backend.engine, databaseAdapters)
	handlers.Router(r, cfg.IsLocalCors)

	server := &http.Server{Addr: ":" + cfg.ServerPort, Handler: r}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return backend.run(ctx)
	})
	g.Go(func() error {
		logger.Infof("Server is running on port %s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Received shutdown signal")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("http shutdown: %v", err)
		}
		return backend.close(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Errorf("server stopped: %v", err)
		os.Exit(1)
	}
}

func (h *mainDeliveryHandler) Router(r *chi.Mux, isLocalCors bool) {
	if isLocalCors {
		r.Use(ownMiddleware.CORS)
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/analyze", h.analysis.HandleAnalyze)
	r.Get("/health/engine", h.analysis.HandleEngineHealth)

	h.report.Register(r)

	r.Get("/puzzles", h.puzzle.HandleList)
	r.Post("/puzzles", h.puzzle.HandleCreate)
	r.Get("/puzzles/random", h.puzzle.HandleRandom)
	r.Post("/puzzles/attempt", h.puzzle.HandleAttempt)

	r.Get("/analyses", h.analyses.HandleList)
	r.Post("/analyses", h.analyses.HandleCreate)
}

func initDatabaseAdapters(ctx context.Context, log *zap.SugaredLogger, cfg *bootstrap.Config) *dataBaseAdapters {
	mongoAdapter := adapters.NewAdapterMongo(cfg, log)
	if err := mongoAdapter.Init(ctx); err != nil {
		log.Fatal("Failed to initialize MongoDB", zap.Error(err))
	}

	redisAdapter := adapters.NewAdapterRedis(cfg, log)
	if err := redisAdapter.Init(ctx); err != nil {
		log.Fatal("Failed to initialize Redis", zap.Error(err))
	}

	log.Info("Database adapters initialized")
	return &dataBaseAdapters{
		redisAdapter: redisAdapter,
		mongoAdapter: mongoAdapter,
	}
}

func initEngineBackend(cfg *bootstrap.Config, log *zap.SugaredLogger) (*engineBackend, error) {
	if cfg.EngineGrpcAddr != "" {
		conn, err := grpc.NewClient(cfg.EngineGrpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, err
		}
		log.Infof("using remote engine service at %s", cfg.EngineGrpcAddr)
		return &engineBackend{
			engine: engineRPC.NewRemoteEngine(conn, log.Named("remote-engine")),
			run: func(ctx context.Context) error {
				<-ctx.Done()
				return nil
			},
			close: func(context.Context) error { return conn.Close() },
		}, nil
	}

	client, sched := bootstrap.NewLocalEngine(cfg, log)
	return &engineBackend{
		engine: sched,
		run:    sched.Run,
		close:  client.Close,
	}, nil
}

func initializeDeliveryHandlers(
	cfg bootstrap.Config,
	log *zap.SugaredLogger,
	engine analysisUC.Engine,
	databaseAdapters *dataBaseAdapters,
) *mainDeliveryHandler {
	db := databaseAdapters.mongoAdapter.Database

	cache := repo.NewRedisAnalysisCache(databaseAdapters.redisAdapter.GetClient(), cfg.AnalysisCacheTTL, log)
	analysisUseCase := analysisUC.NewAnalysisUseCase(engine, cache, cfg.DefaultDepth, log)

	puzzleRepo := repo.NewPuzzleRepository(log, db)
	grader := grading.NewGrader(analysisUseCase, chessrules.Resolver{}, cfg.MultiPV, log)
	reportUseCase := reportUC.NewReportUseCase(grader, repo.NewReportRepository(log, db), puzzleRepo, cfg.DefaultDepth, log)

	return &mainDeliveryHandler{
		analysis: analysisDelivery.NewAnalysisHandler(cfg, log, analysisUseCase),
		report:   reportDelivery.NewReportHandler(cfg, log, reportUseCase),
		puzzle:   puzzleDelivery.NewPuzzleHandler(cfg, log, puzzleUC.NewPuzzleUseCase(puzzleRepo, cfg.PageLimitPuzzles, log)),
		analyses: analysesDelivery.NewAnalysesHandler(cfg, log, analysesUC.NewAnalysesUseCase(repo.NewAnalysesRepository(log, db), cfg.PageLimitAnalyses)),
	}
}
