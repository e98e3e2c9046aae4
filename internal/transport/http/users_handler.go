package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"quiz-app-service/internal/app"
	"quiz-app-service/internal/domain"
)

type credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type generateTokenRequest struct {
	UserLogin *credentials `json:"userlogin" validate:"required"`
}

type userRequest struct {
	User *app.UserInput `json:"user"`
}

type checkUsernameRequest struct {
	Name string `json:"nom"`
}

// GenerateToken exchanges credentials for a signed token.
func (a *API) GenerateToken(w http.ResponseWriter, r *http.Request) {
	var req generateTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, a.log, err)
		return
	}
	if err := domain.ValidateStruct(req); err != nil {
		respondError(w, r, a.log, err)
		return
	}
	token, ok, err := a.tokens.Issue(r.Context(), req.UserLogin.Username, req.UserLogin.Password)
	if err != nil {
		respondError(w, r, a.log, err)
		return
	}
	if !ok {
		respondError(w, r, a.log, domain.ErrInvalidCredentials)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (a *API) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.users.List(r.Context())
	if err != nil {
		respondError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (a *API) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := a.users.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (a *API) AddUser(w http.ResponseWriter, r *http.Request) {
	in, err := decodeUser(r)
	if err != nil {
		respondError(w, r, a.log, err)
		return
	}
	u, err := a.users.Register(r.Context(), in)
	if err != nil {
		respondError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": u})
}

func (a *API) UpdateUser(w http.ResponseWriter, r *http.Request) {
	in, err := decodeUser(r)
	if err != nil {
		respondError(w, r, a.log, err)
		return
	}
	u, err := a.users.Update(r.Context(), in)
	if err != nil {
		respondError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (a *API) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := a.users.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, a.log, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// CheckUsername reports whether a username is still free.
func (a *API) CheckUsername(w http.ResponseWriter, r *http.Request) {
	var req checkUsernameRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, a.log, err)
		return
	}
	unique, err := a.users.UsernameAvailable(r.Context(), req.Name)
	if err != nil {
		respondError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"unique": unique})
}

func decodeUser(r *http.Request) (app.UserInput, error) {
	var req userRequest
	if err := decodeJSON(r, &req); err != nil {
		return app.UserInput{}, err
	}
	if req.User == nil {
		return app.UserInput{}, domain.NewValidationError("user", "is required")
	}
	return *req.User, nil
}
