package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"chess_review/internal/domain"
)

const analysesCollection = "analyses"

type AnalysesRepository struct {
	log   *zap.SugaredLogger
	mongo *mongo.Database
}

func NewAnalysesRepository(log *zap.SugaredLogger, mongo *mongo.Database) *AnalysesRepository {
	return &AnalysesRepository{
		log:   log,
		mongo: mongo,
	}
}

func (a *AnalysesRepository) ListAnalyses(ctx context.Context, limit int) ([]domain.SavedAnalysis, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(limit))
	cursor, err := a.mongo.Collection(analysesCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		a.log.Errorf("failed to list analyses: %v", err)
		return nil, fmt.Errorf("find analyses: %w", err)
	}
	defer cursor.Close(ctx)

	out := make([]domain.SavedAnalysis, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode analyses: %w", err)
	}
	return out, nil
}

func (a *AnalysesRepository) CreateAnalysis(ctx context.Context, an domain.SavedAnalysis) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if an.ID == "" {
		an.ID = uuid.NewString()
	}
	if an.CreatedAt.IsZero() {
		an.CreatedAt = time.Now().UTC()
	}
	if _, err := a.mongo.Collection(analysesCollection).InsertOne(ctx, an); err != nil {
		a.log.Errorf("failed to insert analysis: %v", err)
		return "", fmt.Errorf("insert analysis: %w", err)
	}
	return an.ID, nil
}
