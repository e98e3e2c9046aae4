package app

import "quiz-app-service/internal/domain"

// AuthorizeMutation allows update and delete only for the quiz's creator.
// Reads and creation are not gated by this policy.
func AuthorizeMutation(quiz domain.Quiz, caller domain.Identity) error {
	owner := quiz.Creator.UserID()
	if owner == "" || caller.UserID == "" || owner != caller.UserID {
		return domain.ErrForbidden
	}
	return nil
}
