package users

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/adube/placeshare/internal/auth"
	"github.com/adube/placeshare/internal/files"
	"github.com/adube/placeshare/internal/httperr"
	"github.com/adube/placeshare/internal/models"
	"github.com/adube/placeshare/internal/store"
)

// UserStore defines the user persistence the handlers need.
type UserStore interface {
	InsertUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}

// Handler holds the user and auth HTTP handlers.
type Handler struct {
	users    UserStore
	uploads  files.Store
	tokens   *auth.TokenService
	validate *validator.Validate
	log      zerolog.Logger
}

func NewHandler(users UserStore, uploads files.Store, tokens *auth.TokenService, log zerolog.Logger) *Handler {
	return &Handler{
		users:    users,
		uploads:  uploads,
		tokens:   tokens,
		validate: validator.New(),
		log:      log,
	}
}

// authResponse is the body returned by signup and login.
type authResponse struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Token  string `json:"token"`
}

// List handles GET /users. Password hashes are excluded by the model's
// json tags.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		httperr.Write(w, h.log, httperr.Persistence("Fetching users failed, please try again later.", err))
		return
	}
	if users == nil {
		users = []models.User{}
	}
	httperr.WriteJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

// Signup handles POST /users/signup. Accepts JSON or multipart form data
// with an optional avatar image.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	var imageKey string

	if isMultipart(r) {
		if err := r.ParseMultipartForm(files.MaxImageSize + 64<<10); err != nil {
			httperr.Write(w, h.log, httperr.Validation("Invalid inputs passed, please check your data."))
			return
		}
		req.Name = r.FormValue("name")
		req.Email = r.FormValue("email")
		req.Password = r.FormValue("password")

		key, err := files.SaveUpload(r.Context(), h.uploads, r, "image")
		if err != nil {
			if files.IsBadImage(err) {
				httperr.Write(w, h.log, httperr.Validation("Invalid image, only png/jpeg up to 512KB are accepted."))
				return
			}
			httperr.Write(w, h.log, httperr.Persistence("Uploading image failed, please try again.", err))
			return
		}
		imageKey = key
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httperr.Write(w, h.log, httperr.Validation("Invalid inputs passed, please check your data."))
			return
		}
	}

	req.Email = NormalizeEmail(req.Email)
	if err := h.validate.Struct(req); err != nil {
		httperr.Write(w, h.log, httperr.Validation("Invalid inputs passed, please check your data."))
		return
	}

	// Uniqueness check before insert; the unique index catches races.
	if _, err := h.users.GetUserByEmail(r.Context(), req.Email); err == nil {
		httperr.Write(w, h.log, httperr.Conflict("User exists already, please login instead."))
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		httperr.Write(w, h.log, httperr.Persistence("Signing up failed, please try again later.", err))
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		httperr.Write(w, h.log, httperr.Credential("Could not create user, please try again.", err))
		return
	}

	user := &models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: hashed,
		Image:    imageKey,
	}
	if err := h.users.InsertUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			httperr.Write(w, h.log, httperr.Conflict("User exists already, please login instead."))
			return
		}
		httperr.Write(w, h.log, httperr.Persistence("Signing up failed, please try again later.", err))
		return
	}

	token, err := h.tokens.Issue(user.ID.Hex(), user.Email)
	if err != nil {
		httperr.Write(w, h.log, httperr.Credential("Signing up failed, please try again later.", err))
		return
	}

	httperr.WriteJSON(w, http.StatusCreated, authResponse{
		UserID: user.ID.Hex(),
		Email:  user.Email,
		Token:  token,
	})
}

// Login handles POST /users/login. Unknown email and wrong password produce
// the same response.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperr.Write(w, h.log, httperr.Validation("Invalid inputs passed, please check your data."))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httperr.Write(w, h.log, httperr.Validation("Invalid inputs passed, please check your data."))
		return
	}

	user, err := h.users.GetUserByEmail(r.Context(), NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httperr.Write(w, h.log, httperr.Unauthorized("Invalid credentials, could not log you in."))
			return
		}
		httperr.Write(w, h.log, httperr.Persistence("Logging in failed, please try again later.", err))
		return
	}

	if !auth.VerifyPassword(req.Password, user.Password) {
		httperr.Write(w, h.log, httperr.Unauthorized("Invalid credentials, could not log you in."))
		return
	}

	token, err := h.tokens.Issue(user.ID.Hex(), user.Email)
	if err != nil {
		httperr.Write(w, h.log, httperr.Credential("Logging in failed, please try again later.", err))
		return
	}

	httperr.WriteJSON(w, http.StatusOK, authResponse{
		UserID: user.ID.Hex(),
		Email:  user.Email,
		Token:  token,
	})
}

// NormalizeEmail lowercases and trims an email so uniqueness is
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}
