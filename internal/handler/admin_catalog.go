package handler // handler defines http handlers

import (
    "context"  // detached context for cache purges
    "net/http" // status codes
    "time"     // request DTO dates

    "github.com/labstack/echo/v4"      // echo request context
    "github.com/redis/go-redis/v9"     // response cache client
    "go.uber.org/zap"                  // purge failures are logged

    "github.com/iliyamo/show-reservation/internal/catalog"    // venue and show management
    "github.com/iliyamo/show-reservation/internal/logger"     // request logger
    "github.com/iliyamo/show-reservation/internal/middleware" // cache purge helper
    "github.com/iliyamo/show-reservation/internal/model"      // sections and categories
)

// AdminHandler manages the catalog. Every successful write purges the public
// response cache so browsing reflects it at once.
type AdminHandler struct {
    Catalog     *catalog.Catalog
    Redis       *redis.Client // optional
    CachePrefix string
}

type venueReq struct {
    Name     string          `json:"name"`
    Address  string          `json:"address"`
    Image    string          `json:"image"`
    Sections []model.Section `json:"sections"`
}

func (r venueReq) input() catalog.VenueInput {
    return catalog.VenueInput{Name: r.Name, Address: r.Address, Image: r.Image, Sections: r.Sections}
}

type showReq struct {
    Name     string           `json:"name"`
    Category string           `json:"category"`
    VenueID  uint64           `json:"venue_id"`
    Detail   string           `json:"detail"`
    Image    string           `json:"image"`
    Prices   map[string]int64 `json:"prices"`
    Dates    []time.Time      `json:"dates"` // RFC 3339
}

func (r showReq) input() catalog.ShowInput {
    return catalog.ShowInput{
        Name: r.Name, Category: model.Category(r.Category), VenueID: r.VenueID,
        Detail: r.Detail, Image: r.Image, Prices: r.Prices, Dates: r.Dates,
    }
}

func (h *AdminHandler) purge(c echo.Context) {
    if h.Redis == nil {
        return
    }
    ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), 2*time.Second)
    defer cancel()
    if err := middleware.PurgeCache(ctx, h.Redis, h.CachePrefix); err != nil {
        logger.FromContext(ctx).Warn("cache purge failed", zap.Error(err))
    }
}

// CreateVenue: POST /v1/admin/venues
func (h *AdminHandler) CreateVenue(c echo.Context) error {
    var req venueReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    v, err := h.Catalog.CreateVenue(c.Request().Context(), req.input())
    if err != nil {
        return writeError(c, err)
    }
    h.purge(c)
    return c.JSON(http.StatusCreated, toVenueView(v))
}

// UpdateVenue: PUT /v1/admin/venues/:id
func (h *AdminHandler) UpdateVenue(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return writeError(c, err)
    }
    var req venueReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    v, err := h.Catalog.UpdateVenue(c.Request().Context(), id, req.input())
    if err != nil {
        return writeError(c, err)
    }
    h.purge(c)
    return c.JSON(http.StatusOK, toVenueView(v))
}

// DeleteVenue: DELETE /v1/admin/venues/:id
func (h *AdminHandler) DeleteVenue(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return writeError(c, err)
    }
    if err := h.Catalog.DeleteVenue(c.Request().Context(), id); err != nil {
        return writeError(c, err)
    }
    h.purge(c)
    return c.NoContent(http.StatusNoContent)
}

// CreateShow: POST /v1/admin/shows
func (h *AdminHandler) CreateShow(c echo.Context) error {
    var req showReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    s, err := h.Catalog.CreateShow(c.Request().Context(), req.input())
    if err != nil {
        return writeError(c, err)
    }
    h.purge(c)
    return c.JSON(http.StatusCreated, toShowView(s))
}

// UpdateShow: PUT /v1/admin/shows/:id
func (h *AdminHandler) UpdateShow(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return writeError(c, err)
    }
    var req showReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    s, err := h.Catalog.UpdateShow(c.Request().Context(), id, req.input())
    if err != nil {
        return writeError(c, err)
    }
    h.purge(c)
    return c.JSON(http.StatusOK, toShowView(s))
}

// DeleteShow: DELETE /v1/admin/shows/:id
func (h *AdminHandler) DeleteShow(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return writeError(c, err)
    }
    if err := h.Catalog.DeleteShow(c.Request().Context(), id); err != nil {
        return writeError(c, err)
    }
    h.purge(c)
    return c.NoContent(http.StatusNoContent)
}
