package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"quiz-app-service/internal/domain"
)

type resultDoc struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	QuizID          string             `bson:"quiz"`
	ParticipantName string             `bson:"participant_name"`
	Score           int                `bson:"score"`
	SubmittedAt     time.Time          `bson:"submitted_at"`
}

func (d resultDoc) toDomain() domain.Result {
	return domain.Result{
		ID:              d.ID.Hex(),
		QuizID:          d.QuizID,
		ParticipantName: d.ParticipantName,
		Score:           d.Score,
		SubmittedAt:     d.SubmittedAt.UTC(),
	}
}

// ResultStore appends to the resultats collection.
type ResultStore struct {
	col *mongo.Collection
}

func NewResultStore(db *mongo.Database) *ResultStore {
	return &ResultStore{col: db.Collection(resultsCollection)}
}

func (s *ResultStore) Add(ctx context.Context, r domain.Result) (domain.Result, error) {
	if err := domain.ValidateResult(r); err != nil {
		return domain.Result{}, err
	}
	doc := resultDoc{
		QuizID:          r.QuizID,
		ParticipantName: r.ParticipantName,
		Score:           r.Score,
		SubmittedAt:     time.Now().UTC().Truncate(time.Millisecond),
	}
	res, err := s.col.InsertOne(ctx, doc)
	if err != nil {
		return domain.Result{}, fmt.Errorf("mongo insert result: %w", err)
	}
	doc.ID = res.InsertedID.(primitive.ObjectID)
	return doc.toDomain(), nil
}

// Leaderboard sorts by score, then submission time and insertion id so ties keep
// their arrival order.
func (s *ResultStore) Leaderboard(ctx context.Context, quizID string) ([]domain.Result, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "score", Value: -1},
		{Key: "submitted_at", Value: 1},
		{Key: "_id", Value: 1},
	})
	cur, err := s.col.Find(ctx, bson.M{"quiz": quizID}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo find results: %w", err)
	}
	defer cur.Close(ctx)

	var docs []resultDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo decode results: %w", err)
	}
	board := make([]domain.Result, 0, len(docs))
	for _, d := range docs {
		board = append(board, d.toDomain())
	}
	return board, nil
}
