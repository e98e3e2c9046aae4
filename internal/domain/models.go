package domain

import (
	"encoding/json"
	"errors"
	"time"
)

// Difficulty grades a question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// User is a registered account. PasswordHash never leaves the server.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// Identity is the caller recovered from a verified token.
type Identity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// Question is embedded in a Quiz and has no identity of its own.
type Question struct {
	Statement          string     `json:"statement" validate:"required"`
	Options            []string   `json:"options" validate:"min=2,dive,required"`
	CorrectOptionIndex int        `json:"correctOptionIndex" validate:"gte=0"`
	Difficulty         Difficulty `json:"difficulty" validate:"difficulty"`
}

// CreatorKind tags which form of Creator a quiz carries.
type CreatorKind int

const (
	// CreatorReference holds only the owning user's id.
	CreatorReference CreatorKind = iota
	// CreatorExpanded also carries the username, as returned by joined reads.
	CreatorExpanded
)

// Creator is either Reference(id) or Expanded(id, username).
type Creator struct {
	Kind     CreatorKind
	ID       string
	Username string
}

// ReferenceTo builds a Reference creator.
func ReferenceTo(userID string) Creator {
	return Creator{Kind: CreatorReference, ID: userID}
}

// ExpandedTo builds an Expanded creator.
func ExpandedTo(userID, username string) Creator {
	return Creator{Kind: CreatorExpanded, ID: userID, Username: username}
}

// UserID normalizes both variants to the owning user id.
func (c Creator) UserID() string {
	return c.ID
}

// DisplayName returns the username when known, otherwise the id.
func (c Creator) DisplayName() string {
	switch c.Kind {
	case CreatorExpanded:
		return c.Username
	default:
		return c.ID
	}
}

type expandedCreatorJSON struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// MarshalJSON writes a Reference as a bare id string and an Expanded as an object.
func (c Creator) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case CreatorExpanded:
		return json.Marshal(expandedCreatorJSON{ID: c.ID, Username: c.Username})
	default:
		return json.Marshal(c.ID)
	}
}

// UnmarshalJSON accepts either wire form.
func (c *Creator) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		*c = ReferenceTo(id)
		return nil
	}
	var exp expandedCreatorJSON
	if err := json.Unmarshal(data, &exp); err != nil {
		return errors.New("creator must be an id or an object with id")
	}
	if exp.Username == "" {
		*c = ReferenceTo(exp.ID)
		return nil
	}
	*c = ExpandedTo(exp.ID, exp.Username)
	return nil
}

// Quiz is a titled, categorized, ordered list of questions owned by its creator.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title" validate:"required"`
	Category  string     `json:"category" validate:"required"`
	Creator   Creator    `json:"creator"`
	Questions []Question `json:"questions" validate:"min=1,dive"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Result is one completed playthrough. Immutable once stored.
type Result struct {
	ID              string    `json:"id"`
	QuizID          string    `json:"quizId" validate:"required"`
	ParticipantName string    `json:"participantName" validate:"participant_name"`
	Score           int       `json:"score" validate:"gte=0"`
	SubmittedAt     time.Time `json:"submittedAt"`
}
