package domain

import (
	"errors"
	"strings"
)

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrUserNotFound is returned when no user matches the given id.
	ErrUserNotFound = errors.New("user not found")
	// ErrForbidden is returned when a valid identity tries to mutate a quiz it does not own.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidCredentials hides whether the username or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenMissing covers absent or structurally malformed bearer tokens.
	ErrTokenMissing = errors.New("missing or malformed token")
	// ErrTokenInvalid covers tokens that fail signature or expiry checks.
	ErrTokenInvalid = errors.New("invalid or expired token")
	// ErrUsernameTaken is wrapped into a ValidationError on registration.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrSessionNotFound is returned when a quiz session has not been opened.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionStarted is returned when Start is called twice.
	ErrSessionStarted = errors.New("quiz session already started")
	// ErrSessionNotActive is returned for commands outside the in-progress state.
	ErrSessionNotActive = errors.New("quiz session is not in progress")
	// ErrQuestionNotFound indicates a command aimed at a question that is not the current one.
	ErrQuestionNotFound = errors.New("question is not the current one")
	// ErrOptionNotFound indicates a selected option index is out of range.
	ErrOptionNotFound = errors.New("option not found")
	// ErrNoSelection is returned when "next" is confirmed without a selected option.
	ErrNoSelection = errors.New("no option selected")
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when input fails domain rules. Nothing is persisted.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidationError builds a single-field ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
