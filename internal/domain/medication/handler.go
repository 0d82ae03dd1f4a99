package medication

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/healthflow/rxguard/internal/platform/auth"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// Summary is the search result row returned by GET /medications/search.
type Summary struct {
	ID             int        `json:"id"`
	CommercialName string     `json:"commercial_name"`
	GenericName    string     `json:"generic_name"`
	DosageForm     DosageForm `json:"dosage_form"`
	Strength       string     `json:"strength"`
	IsHighAlert    bool       `json:"is_high_alert"`
}

// Detail is the full medication view returned by GET /medications/:id.
type Detail struct {
	ID                int        `json:"id"`
	CommercialName    string     `json:"commercial_name"`
	GenericName       string     `json:"generic_name"`
	ArabicName        string     `json:"arabic_name,omitempty"`
	ActiveIngredients []string   `json:"active_ingredients"`
	DosageForm        DosageForm `json:"dosage_form"`
	Strength          string     `json:"strength"`
	IsHighAlert       bool       `json:"is_high_alert"`
	Similar           []Related  `json:"similar_medications"`
}

// Related is a compact pointer to another product sharing the generic.
type Related struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Handler struct {
	catalog *Catalog
	loader  *Loader

	// DefaultSource is the catalog file used by /admin/load-database when
	// the request names none. Usually config.CatalogPath.
	DefaultSource string
}

func NewHandler(catalog *Catalog, loader *Loader) *Handler {
	return &Handler{catalog: catalog, loader: loader}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/medications/search", h.SearchMedications)
	api.GET("/medications/:id", h.GetMedication)

	admin := api.Group("/admin", auth.RequireLevel(auth.LevelAdmin))
	admin.POST("/load-database", h.LoadDatabase)
}

func (h *Handler) SearchMedications(c echo.Context) error {
	if !h.catalog.Loaded() {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "database_not_loaded")
	}
	q := strings.TrimSpace(c.QueryParam("q"))
	if len(q) < 2 {
		return echo.NewHTTPError(http.StatusBadRequest, "query must be at least 2 characters")
	}
	limit := defaultSearchLimit
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	meds := h.catalog.Search(q, limit)
	results := make([]Summary, len(meds))
	for i, m := range meds {
		results[i] = Summary{
			ID:             m.ID,
			CommercialName: m.CommercialName,
			GenericName:    m.GenericName,
			DosageForm:     m.DosageForm,
			Strength:       m.Strength,
			IsHighAlert:    h.catalog.IsHighAlert(m.ID),
		}
	}
	return c.JSON(http.StatusOK, results)
}

func (h *Handler) GetMedication(c echo.Context) error {
	if !h.catalog.Loaded() {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "database_not_loaded")
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	m, err := h.catalog.Get(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "medication not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	similar := h.catalog.Similar(id)
	if len(similar) > 5 {
		similar = similar[:5]
	}
	related := make([]Related, len(similar))
	for i, s := range similar {
		related[i] = Related{ID: s.ID, Name: s.CommercialName}
	}
	return c.JSON(http.StatusOK, Detail{
		ID:                m.ID,
		CommercialName:    m.CommercialName,
		GenericName:       m.GenericName,
		ArabicName:        m.ArabicName,
		ActiveIngredients: m.ActiveIngredients,
		DosageForm:        m.DosageForm,
		Strength:          m.Strength,
		IsHighAlert:       h.catalog.IsHighAlert(m.ID),
		Similar:           related,
	})
}

func (h *Handler) LoadDatabase(c echo.Context) error {
	var req struct {
		Source string `json:"source"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	source := req.Source
	if source == "" {
		source = h.DefaultSource
	}
	if source == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "no catalog source configured")
	}
	count, err := h.loader.LoadFile(source)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":             "success",
		"medications_loaded": count,
		"statistics":         h.catalog.Statistics(),
	})
}
