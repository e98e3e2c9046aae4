package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"quiz-app-service/internal/domain"
)

type questionDoc struct {
	Statement          string   `bson:"statement"`
	Options            []string `bson:"options"`
	CorrectOptionIndex int      `bson:"correct_option_index"`
	Difficulty         string   `bson:"difficulty"`
}

// quizDoc stores the creator as the user id string so a Postgres credential store
// can own quizzes too.
type quizDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Title     string             `bson:"title"`
	Category  string             `bson:"category"`
	Creator   string             `bson:"creator"`
	Questions []questionDoc      `bson:"questions"`
	CreatedAt time.Time          `bson:"created_at"`

	// populated by the $lookup stage only
	CreatorDocs []userDoc `bson:"creator_doc,omitempty"`
}

func newQuizDoc(q domain.Quiz) quizDoc {
	questions := make([]questionDoc, 0, len(q.Questions))
	for _, question := range q.Questions {
		questions = append(questions, questionDoc{
			Statement:          question.Statement,
			Options:            question.Options,
			CorrectOptionIndex: question.CorrectOptionIndex,
			Difficulty:         string(question.Difficulty),
		})
	}
	return quizDoc{
		Title:     q.Title,
		Category:  q.Category,
		Creator:   q.Creator.UserID(),
		Questions: questions,
		CreatedAt: q.CreatedAt,
	}
}

func (d quizDoc) toDomain() domain.Quiz {
	questions := make([]domain.Question, 0, len(d.Questions))
	for _, q := range d.Questions {
		questions = append(questions, domain.Question{
			Statement:          q.Statement,
			Options:            q.Options,
			CorrectOptionIndex: q.CorrectOptionIndex,
			Difficulty:         domain.Difficulty(q.Difficulty),
		})
	}
	creator := domain.ReferenceTo(d.Creator)
	if len(d.CreatorDocs) > 0 {
		creator = domain.ExpandedTo(d.Creator, d.CreatorDocs[0].Username)
	}
	return domain.Quiz{
		ID:        d.ID.Hex(),
		Title:     d.Title,
		Category:  d.Category,
		Creator:   creator,
		Questions: questions,
		CreatedAt: d.CreatedAt.UTC(),
	}
}

// QuizStore keeps quizzes in the quizzs collection. Reads join the users collection
// and return expanded creators when the owner is found there.
type QuizStore struct {
	col *mongo.Collection
}

func NewQuizStore(db *mongo.Database) *QuizStore {
	return &QuizStore{col: db.Collection(quizzesCollection)}
}

func (s *QuizStore) Create(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	if err := domain.ValidateQuiz(quiz); err != nil {
		return domain.Quiz{}, err
	}
	quiz.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	res, err := s.col.InsertOne(ctx, newQuizDoc(quiz))
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("mongo insert quiz: %w", err)
	}
	return s.Get(ctx, res.InsertedID.(primitive.ObjectID).Hex())
}

func (s *QuizStore) Get(ctx context.Context, id string) (domain.Quiz, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	quizzes, err := s.aggregate(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return domain.Quiz{}, err
	}
	if len(quizzes) == 0 {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quizzes[0], nil
}

func (s *QuizStore) List(ctx context.Context) ([]domain.Quiz, error) {
	return s.aggregate(ctx, bson.D{})
}

func (s *QuizStore) ListByCategory(ctx context.Context, category string) ([]domain.Quiz, error) {
	return s.aggregate(ctx, bson.D{{Key: "category", Value: category}})
}

func (s *QuizStore) Update(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	if err := domain.ValidateQuiz(quiz); err != nil {
		return domain.Quiz{}, err
	}
	oid, err := primitive.ObjectIDFromHex(quiz.ID)
	if err != nil {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	doc := newQuizDoc(quiz)
	res, err := s.col.UpdateByID(ctx, oid, bson.M{"$set": bson.M{
		"title":     doc.Title,
		"questions": doc.Questions,
	}})
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("mongo update quiz: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return s.Get(ctx, quiz.ID)
}

func (s *QuizStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrQuizNotFound
	}
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("mongo delete quiz: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func (s *QuizStore) aggregate(ctx context.Context, match bson.D) ([]domain.Quiz, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: usersCollection},
			{Key: "let", Value: bson.D{{Key: "cid", Value: "$creator"}}},
			{Key: "pipeline", Value: bson.A{
				bson.D{{Key: "$match", Value: bson.D{{Key: "$expr", Value: bson.D{
					{Key: "$eq", Value: bson.A{bson.D{{Key: "$toString", Value: "$_id"}}, "$$cid"}},
				}}}}},
				bson.D{{Key: "$project", Value: bson.D{{Key: "username", Value: 1}}}},
			}},
			{Key: "as", Value: "creator_doc"},
		}}},
	}
	cur, err := s.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("mongo aggregate quizzes: %w", err)
	}
	defer cur.Close(ctx)

	var docs []quizDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo decode quizzes: %w", err)
	}
	quizzes := make([]domain.Quiz, 0, len(docs))
	for _, d := range docs {
		quizzes = append(quizzes, d.toDomain())
	}
	return quizzes, nil
}
