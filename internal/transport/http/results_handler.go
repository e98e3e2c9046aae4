package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"quiz-app-service/internal/domain"
)

type resultRequest struct {
	Result *domain.Result `json:"resultat"`
}

func (a *API) AddResult(w http.ResponseWriter, r *http.Request) {
	var req resultRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, a.log, err)
		return
	}
	if req.Result == nil {
		respondError(w, r, a.log, domain.NewValidationError("resultat", "is required"))
		return
	}
	stored, err := a.results.Submit(r.Context(), *req.Result)
	if err != nil {
		respondError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"resultat": stored})
}

// Leaderboard lists results for one quiz, best score first.
func (a *API) Leaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := a.results.Leaderboard(r.Context(), chi.URLParam(r, "quizId"))
	if err != nil {
		respondError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"classement": board})
}
