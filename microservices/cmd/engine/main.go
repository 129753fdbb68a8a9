package main

import (
	"context"
	"errors"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"chess_review/internal/bootstrap"
	"chess_review/internal/usecase/analysis"
	engineRPC "chess_review/microservices/proto"
	"chess_review/microservices/usecase"
)

func main() {
	cfg, err := bootstrap.Setup(".env")
	if err != nil {
		zap.NewExample().Sugar().Fatalf("failed to setup configuration: %v", err)
	}
	logger := bootstrap.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, sched := bootstrap.NewLocalEngine(cfg, logger)
	analysisUC := analysis.NewAnalysisUseCase(sched, nil, cfg.DefaultDepth, logger)

	lis, err := net.Listen("tcp", ":"+cfg.GrpcPort)
	if err != nil {
		logger.Fatal("cant listen port", zap.Error(err))
	}
	server := grpc.NewServer()
	engineRPC.RegisterEngineServiceServer(server, usecase.NewEngineUseCase(analysisUC, logger))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sched.Run(ctx)
	})
	g.Go(func() error {
		logger.Infof("engine service listening on :%s", cfg.GrpcPort)
		if err := server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down engine service")
		server.GracefulStop()
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return client.Close(closeCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Errorf("engine service stopped: %v", err)
		os.Exit(1)
	}
}
