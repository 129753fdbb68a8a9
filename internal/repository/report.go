package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"chess_review/internal/domain/report"
	errs "chess_review/internal/errors"
)

const reportsCollection = "reports"

type ReportRepository struct {
	log   *zap.SugaredLogger
	mongo *mongo.Database
}

func NewReportRepository(log *zap.SugaredLogger, mongo *mongo.Database) *ReportRepository {
	return &ReportRepository{
		log:   log,
		mongo: mongo,
	}
}

func (r *ReportRepository) CreateReport(ctx context.Context, rep report.Report) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if rep.ID == "" {
		rep.ID = uuid.NewString()
	}
	if rep.CreatedAt.IsZero() {
		rep.CreatedAt = time.Now().UTC()
	}

	if _, err := r.mongo.Collection(reportsCollection).InsertOne(ctx, rep); err != nil {
		r.log.Errorf("failed to insert report: %v", err)
		return "", fmt.Errorf("insert report: %w", err)
	}
	return rep.ID, nil
}

func (r *ReportRepository) GetReport(ctx context.Context, id string) (report.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var rep report.Report
	err := r.mongo.Collection(reportsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&rep)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return report.Report{}, errs.ErrReportNotFound
	}
	if err != nil {
		r.log.Errorf("failed to load report %s: %v", id, err)
		return report.Report{}, fmt.Errorf("find report: %w", err)
	}
	return rep, nil
}

func (r *ReportRepository) GetLatestReport(ctx context.Context) (report.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	var rep report.Report
	err := r.mongo.Collection(reportsCollection).FindOne(ctx, bson.M{}, opts).Decode(&rep)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return report.Report{}, errs.ErrReportNotFound
	}
	if err != nil {
		r.log.Errorf("failed to load latest report: %v", err)
		return report.Report{}, fmt.Errorf("find latest report: %w", err)
	}
	return rep, nil
}

// UpdateGrades stores regenerated per-ply grades and their aggregates.
func (r *ReportRepository) UpdateGrades(ctx context.Context, id string, grades []report.PlyGrade, agg report.Aggregates) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{"per_move": grades, "aggregates": agg}}
	res, err := r.mongo.Collection(reportsCollection).UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		r.log.Errorf("failed to update report %s: %v", id, err)
		return fmt.Errorf("update report: %w", err)
	}
	if res.MatchedCount == 0 {
		return errs.ErrReportNotFound
	}
	return nil
}
