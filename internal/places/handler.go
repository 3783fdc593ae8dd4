package places

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/adube/placeshare/internal/files"
	"github.com/adube/placeshare/internal/httperr"
	"github.com/adube/placeshare/internal/middleware"
	"github.com/adube/placeshare/internal/models"
)

// Handler holds the place HTTP handlers.
type Handler struct {
	service  *Service
	uploads  files.Store
	validate *validator.Validate
	log      zerolog.Logger
}

func NewHandler(service *Service, uploads files.Store, log zerolog.Logger) *Handler {
	return &Handler{
		service:  service,
		uploads:  uploads,
		validate: validator.New(),
		log:      log,
	}
}

// Get handles GET /places/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	place, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httperr.Write(w, h.log, err)
		return
	}
	httperr.WriteJSON(w, http.StatusOK, map[string]interface{}{"place": place})
}

// ListByUser handles GET /places/user/{userId}. A user with no places gets
// an empty list.
func (h *Handler) ListByUser(w http.ResponseWriter, r *http.Request) {
	places, err := h.service.ListByCreator(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		httperr.Write(w, h.log, err)
		return
	}
	httperr.WriteJSON(w, http.StatusOK, map[string]interface{}{"places": places})
}

// Create handles POST /places. Accepts JSON or multipart form data with an
// optional image file.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		httperr.Write(w, h.log, httperr.Unauthorized("Authorization failed"))
		return
	}

	var req models.CreatePlaceRequest
	var imageKey string

	if isMultipart(r) {
		if err := r.ParseMultipartForm(files.MaxImageSize + 64<<10); err != nil {
			httperr.Write(w, h.log, httperr.Validation("Invalid inputs passed, please check your data."))
			return
		}
		req.Title = r.FormValue("title")
		req.Description = r.FormValue("description")
		req.Address = r.FormValue("address")
		if loc, ok := parseLocation(r.FormValue("lat"), r.FormValue("lng")); ok {
			req.Location = loc
		}

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

	if err := h.validate.Struct(req); err != nil {
		httperr.Write(w, h.log, httperr.Validation("Invalid inputs passed, please check your data."))
		return
	}

	place, err := h.service.CreateLinked(r.Context(), userID, req, imageKey)
	if err != nil {
		httperr.Write(w, h.log, err)
		return
	}
	httperr.WriteJSON(w, http.StatusCreated, map[string]interface{}{"place": place})
}

// Update handles PATCH /places/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		httperr.Write(w, h.log, httperr.Unauthorized("Authorization failed"))
		return
	}

	var req models.UpdatePlaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperr.Write(w, h.log, httperr.Validation("Invalid inputs passed, please check your data."))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httperr.Write(w, h.log, httperr.Validation("Invalid inputs passed, please check your data."))
		return
	}

	place, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), userID, req)
	if err != nil {
		httperr.Write(w, h.log, err)
		return
	}
	httperr.WriteJSON(w, http.StatusOK, map[string]interface{}{"place": place})
}

// Delete handles DELETE /places/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		httperr.Write(w, h.log, httperr.Unauthorized("Authorization failed"))
		return
	}

	if err := h.service.DeleteLinked(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		httperr.Write(w, h.log, err)
		return
	}
	httperr.WriteJSON(w, http.StatusOK, map[string]string{"message": "Deleted place."})
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// parseLocation reads optional lat/lng form fields. Both must parse for the
// location to be set.
func parseLocation(latStr, lngStr string) (*models.Location, bool) {
	if latStr == "" || lngStr == "" {
		return nil, false
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, false
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return nil, false
	}
	return &models.Location{Lat: lat, Lng: lng}, true
}
