package domain

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	// ParticipantNameMin and ParticipantNameMax bound a leaderboard name, in characters.
	ParticipantNameMin = 2
	ParticipantNameMax = 30
)

var participantNamePattern = regexp.MustCompile(`^[a-zA-Z0-9À-ÿ\s_-]+$`)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func engine() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("difficulty", func(fl validator.FieldLevel) bool {
			switch Difficulty(fl.Field().String()) {
			case DifficultyEasy, DifficultyMedium, DifficultyHard:
				return true
			}
			return false
		})
		_ = v.RegisterValidation("participant_name", func(fl validator.FieldLevel) bool {
			return CheckParticipantName(fl.Field().String()) == nil
		})
		v.RegisterStructValidation(func(sl validator.StructLevel) {
			q := sl.Current().Interface().(Question)
			if len(q.Options) >= 2 && q.CorrectOptionIndex >= len(q.Options) {
				sl.ReportError(q.CorrectOptionIndex, "correctOptionIndex", "CorrectOptionIndex", "correct_option", "")
			}
		}, Question{})
		validate = v
	})
	return validate
}

// NormalizeParticipantName trims surrounding whitespace before validation and storage.
func NormalizeParticipantName(name string) string {
	return strings.TrimSpace(name)
}

// CheckParticipantName applies the leaderboard name rule shared by the play session
// and the result store.
func CheckParticipantName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < ParticipantNameMin || n > ParticipantNameMax {
		return NewValidationError("participantName",
			fmt.Sprintf("must contain between %d and %d characters", ParticipantNameMin, ParticipantNameMax))
	}
	if !participantNamePattern.MatchString(name) {
		return NewValidationError("participantName", "contains characters that are not allowed")
	}
	return nil
}

// ValidateQuiz checks title, category and every question.
func ValidateQuiz(q Quiz) error {
	return structErr(engine().Struct(q))
}

// ValidateResult checks a result before it is persisted.
func ValidateResult(r Result) error {
	if err := CheckParticipantName(r.ParticipantName); err != nil {
		return err
	}
	return structErr(engine().Struct(r))
}

// ValidateStruct runs tag validation on any request payload.
func ValidateStruct(v any) error {
	return structErr(engine().Struct(v))
}

func structErr(err error) error {
	if err == nil {
		return nil
	}
	if ve := translate(err); ve != nil {
		return ve
	}
	return err
}

func translate(err error) *ValidationError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	ve := &ValidationError{}
	for _, fe := range verrs {
		ve.Fields = append(ve.Fields, FieldError{
			Field:   fieldPath(fe.Namespace()),
			Message: message(fe),
		})
	}
	return ve
}

// fieldPath drops the root struct name: "Quiz.questions[0].options" -> "questions[0].options".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return "needs at least " + fe.Param() + " entries"
		}
		return "is too short"
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "difficulty":
		return "must be one of easy, medium, hard"
	case "correct_option":
		return "must reference an existing option"
	case "participant_name":
		return "must be 2-30 letters, digits, spaces or hyphens"
	default:
		return "is invalid"
	}
}
