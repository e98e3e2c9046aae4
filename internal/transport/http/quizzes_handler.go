package http

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"quiz-app-service/internal/domain"
)

type quizRequest struct {
	Quiz *domain.Quiz `json:"quiz"`
}

func (a *API) ListQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := a.quizzes.List(r.Context())
	if err != nil {
		respondError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quizzs": quizzes})
}

// ListQuizzesByCategory matches the decoded path segment exactly.
func (a *API) ListQuizzesByCategory(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "categorie")
	// chi routes on RawPath when the client kept escapes Go would not add itself
	if r.URL.RawPath != "" {
		decoded, err := url.PathUnescape(category)
		if err != nil {
			respondError(w, r, a.log, domain.NewValidationError("categorie", "is not a valid path segment"))
			return
		}
		category = decoded
	}
	quizzes, err := a.quizzes.ListByCategory(r.Context(), category)
	if err != nil {
		respondError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quizzs": quizzes})
}

func (a *API) GetQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := a.quizzes.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quiz": quiz})
}

// AddQuiz creates a quiz owned by the caller. A creator in the body is ignored.
func (a *API) AddQuiz(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFrom(r.Context())
	quiz, err := decodeQuiz(r)
	if err != nil {
		respondError(w, r, a.log, err)
		return
	}
	created, err := a.quizzes.Create(r.Context(), caller, quiz)
	if err != nil {
		respondError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"quiz": created})
}

func (a *API) UpdateQuiz(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFrom(r.Context())
	quiz, err := decodeQuiz(r)
	if err != nil {
		respondError(w, r, a.log, err)
		return
	}
	updated, err := a.quizzes.Update(r.Context(), caller, quiz)
	if err != nil {
		respondError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quiz": updated})
}

func (a *API) DeleteQuiz(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFrom(r.Context())
	if err := a.quizzes.Delete(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		respondError(w, r, a.log, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func decodeQuiz(r *http.Request) (domain.Quiz, error) {
	var req quizRequest
	if err := decodeJSON(r, &req); err != nil {
		return domain.Quiz{}, err
	}
	if req.Quiz == nil {
		return domain.Quiz{}, domain.NewValidationError("quiz", "is required")
	}
	return *req.Quiz, nil
}
