package repo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"chess_review/internal/domain/puzzle"
	errs "chess_review/internal/errors"
)

const (
	puzzlesCollection  = "puzzles"
	attemptsCollection = "puzzle_attempts"
)

type PuzzleRepository struct {
	log   *zap.SugaredLogger
	mongo *mongo.Database
}

func NewPuzzleRepository(log *zap.SugaredLogger, mongo *mongo.Database) *PuzzleRepository {
	return &PuzzleRepository{
		log:   log,
		mongo: mongo,
	}
}

func motifFilter(motif string) bson.M {
	if motif == "" {
		return bson.M{}
	}
	return bson.M{"motifs": primitive.Regex{Pattern: regexp.QuoteMeta(motif), Options: "i"}}
}

func (p *PuzzleRepository) ListPuzzles(ctx context.Context, filter puzzle.ListFilter) ([]puzzle.Puzzle, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(filter.Limit))
	cursor, err := p.mongo.Collection(puzzlesCollection).Find(ctx, motifFilter(filter.Motif), opts)
	if err != nil {
		p.log.Errorf("failed to list puzzles: %v", err)
		return nil, fmt.Errorf("find puzzles: %w", err)
	}
	defer cursor.Close(ctx)

	puzzles := make([]puzzle.Puzzle, 0)
	if err := cursor.All(ctx, &puzzles); err != nil {
		return nil, fmt.Errorf("decode puzzles: %w", err)
	}
	return puzzles, nil
}

func (p *PuzzleRepository) RandomPuzzle(ctx context.Context, motif string) (puzzle.Puzzle, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: motifFilter(motif)}},
		{{Key: "$sample", Value: bson.M{"size": 1}}},
	}
	cursor, err := p.mongo.Collection(puzzlesCollection).Aggregate(ctx, pipeline)
	if err != nil {
		p.log.Errorf("failed to sample puzzle: %v", err)
		return puzzle.Puzzle{}, fmt.Errorf("sample puzzle: %w", err)
	}
	defer cursor.Close(ctx)

	if !cursor.Next(ctx) {
		if err := cursor.Err(); err != nil {
			return puzzle.Puzzle{}, err
		}
		return puzzle.Puzzle{}, errs.ErrPuzzleNotFound
	}
	var pz puzzle.Puzzle
	if err := cursor.Decode(&pz); err != nil {
		return puzzle.Puzzle{}, fmt.Errorf("decode puzzle: %w", err)
	}
	return pz, nil
}

func (p *PuzzleRepository) GetPuzzle(ctx context.Context, id string) (puzzle.Puzzle, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var pz puzzle.Puzzle
	err := p.mongo.Collection(puzzlesCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&pz)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return puzzle.Puzzle{}, errs.ErrPuzzleNotFound
	}
	if err != nil {
		return puzzle.Puzzle{}, fmt.Errorf("find puzzle: %w", err)
	}
	return pz, nil
}

func (p *PuzzleRepository) CreatePuzzle(ctx context.Context, pz puzzle.Puzzle) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if pz.ID == "" {
		pz.ID = uuid.NewString()
	}
	if pz.CreatedAt.IsZero() {
		pz.CreatedAt = time.Now().UTC()
	}
	if _, err := p.mongo.Collection(puzzlesCollection).InsertOne(ctx, pz); err != nil {
		p.log.Errorf("failed to insert puzzle: %v", err)
		return "", fmt.Errorf("insert puzzle: %w", err)
	}
	return pz.ID, nil
}

func (p *PuzzleRepository) CreateAttempt(ctx context.Context, a puzzle.Attempt) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if _, err := p.mongo.Collection(attemptsCollection).InsertOne(ctx, a); err != nil {
		p.log.Errorf("failed to insert puzzle attempt: %v", err)
		return "", fmt.Errorf("insert attempt: %w", err)
	}
	return a.ID, nil
}
