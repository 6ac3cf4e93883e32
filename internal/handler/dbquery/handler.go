package dbquery

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/geeksondemand/chatbot/internal/store"
	"github.com/geeksondemand/chatbot/pkg/utils"
)

// Handler exposes read access to the provider directory.
type Handler struct {
	dir store.DirectoryStore
}

func New(dir store.DirectoryStore) *Handler {
	return &Handler{dir: dir}
}

// RegisterRoutes mounts the directory query endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/get_all_geeks", h.handleAllGeeks)
	r.Get("/get_geek/{id}", h.handleGeekByID)
	r.Get("/get_service_categories", h.handleServiceCategories)
	r.Get("/get_subcategories/{slug}", h.handleSubCategories)
	r.Get("/get_brands/{slug}", h.handleBrands)
}

func (h *Handler) handleAllGeeks(w http.ResponseWriter, r *http.Request) {
	geeks, err := h.dir.AllGeeks(r.Context())
	if err != nil {
		log.Printf("[dbquery] geek listing failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Error fetching geeks")
		return
	}
	if len(geeks) == 0 {
		utils.RespondError(w, http.StatusNotFound, "Geeks not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"geeks": geeks})
}

func (h *Handler) handleGeekByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	geek, err := h.dir.GeekByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		utils.RespondError(w, http.StatusNotFound, "Geek not found")
		return
	}
	if err != nil {
		log.Printf("[dbquery] geek lookup failed id=%s: %v", id, err)
		utils.RespondError(w, http.StatusInternalServerError, "Error fetching geek")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"geek": geek})
}

func (h *Handler) handleServiceCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.dir.AllCategories(r.Context())
	if err != nil {
		log.Printf("[dbquery] category listing failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Error fetching service categories")
		return
	}
	if len(categories) == 0 {
		utils.RespondError(w, http.StatusNotFound, "Service categories not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (h *Handler) handleSubCategories(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	titles, err := h.dir.SubCategoryTitlesBySlug(r.Context(), slug)
	if err != nil {
		log.Printf("[dbquery] subcategory listing failed slug=%s: %v", slug, err)
		utils.RespondError(w, http.StatusInternalServerError, "Error fetching subcategories")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"subcategories": titles})
}

func (h *Handler) handleBrands(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	names, err := h.dir.BrandNamesBySlug(r.Context(), slug)
	if err != nil {
		log.Printf("[dbquery] brand listing failed slug=%s: %v", slug, err)
		utils.RespondError(w, http.StatusInternalServerError, "Error fetching brands")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"brands": names})
}
