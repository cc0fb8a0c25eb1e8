// Package handler exposes HTTP handlers for both authenticated and public endpoints.
// This file defines handlers for the public browsing API. These routes allow
// unauthenticated users to browse venues and shows and to check how many
// seats are left in each section. Deletion timestamps and other internal
// fields are filtered from responses.

package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/show-reservation/internal/catalog"
    "github.com/iliyamo/show-reservation/internal/model"
)

// PublicHandler serves unauthenticated browsing.
type PublicHandler struct {
    Catalog *catalog.Catalog
}

// VenueView is a venue as exposed over HTTP.
type VenueView struct {
    ID        uint64          `json:"id"`
    Name      string          `json:"name"`
    Address   string          `json:"address"`
    Image     string          `json:"image,omitempty"`
    Sections  []model.Section `json:"sections"`
    CreatedAt time.Time       `json:"created_at"`
}

// ShowView is a show as exposed over HTTP.
type ShowView struct {
    ID           uint64           `json:"id"`
    Name         string           `json:"name"`
    Category     model.Category   `json:"category"`
    VenueID      uint64           `json:"venue_id"`
    Detail       string           `json:"detail,omitempty"`
    Image        string           `json:"image,omitempty"`
    Prices       map[string]int64 `json:"prices"`
    Dates        []time.Time      `json:"dates"`
    EarliestDate time.Time        `json:"earliest_date"`
}

func toVenueView(v model.Venue) VenueView {
    return VenueView{ID: v.ID, Name: v.Name, Address: v.Address, Image: v.Image, Sections: v.Sections, CreatedAt: v.CreatedAt}
}

func toShowView(s model.Show) ShowView {
    return ShowView{
        ID: s.ID, Name: s.Name, Category: s.Category, VenueID: s.VenueID,
        Detail: s.Detail, Image: s.Image, Prices: s.Prices,
        Dates: s.Dates, EarliestDate: s.EarliestDate,
    }
}

func toShowViews(in []model.Show) []ShowView {
    out := make([]ShowView, 0, len(in))
    for _, s := range in {
        out = append(out, toShowView(s))
    }
    return out
}

// ListVenues: GET /v1/venues
func (h *PublicHandler) ListVenues(c echo.Context) error {
    venues, err := h.Catalog.ListVenues(c.Request().Context())
    if err != nil {
        return writeError(c, err)
    }
    out := make([]VenueView, 0, len(venues))
    for _, v := range venues {
        out = append(out, toVenueView(v))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// GetVenue: GET /v1/venues/:id
func (h *PublicHandler) GetVenue(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return writeError(c, err)
    }
    v, err := h.Catalog.GetVenue(c.Request().Context(), id)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, toVenueView(v))
}

// ListShows: GET /v1/shows?category=MUSICAL
func (h *PublicHandler) ListShows(c echo.Context) error {
    shows, err := h.Catalog.ListShows(c.Request().Context(), c.QueryParam("category"))
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": toShowViews(shows)})
}

// SearchShows: GET /v1/shows/search?keyword=...
func (h *PublicHandler) SearchShows(c echo.Context) error {
    shows, err := h.Catalog.SearchShows(c.Request().Context(), c.QueryParam("keyword"))
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": toShowViews(shows)})
}

// GetShow: GET /v1/shows/:id, with the hosting venue embedded.
func (h *PublicHandler) GetShow(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return writeError(c, err)
    }
    ctx := c.Request().Context()
    s, err := h.Catalog.GetShow(ctx, id)
    if err != nil {
        return writeError(c, err)
    }
    resp := struct {
        ShowView
        Venue *VenueView `json:"venue,omitempty"`
    }{ShowView: toShowView(s)}
    if v, err := h.Catalog.ResolveVenue(ctx, s.VenueID); err == nil {
        vv := toVenueView(v)
        resp.Venue = &vv
    }
    return c.JSON(http.StatusOK, resp)
}

// Availability: GET /v1/shows/:id/availability
func (h *PublicHandler) Availability(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return writeError(c, err)
    }
    sections, err := h.Catalog.Availability(c.Request().Context(), id)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"show_id": id, "sections": sections})
}
