package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/show-reservation/internal/ledger"
)

// PointsHandler exposes the caller's ledger.
type PointsHandler struct {
	Ledger *ledger.Ledger
}

type chargeReq struct {
	Amount int64 `json:"amount"`
}

// Balance: GET /v1/points
func (h *PointsHandler) Balance(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	bal, err := h.Ledger.Balance(c.Request().Context(), uid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user_id": uid, "points": bal})
}

// Charge: POST /v1/points/charge {"amount": n}
func (h *PointsHandler) Charge(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	var req chargeReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	before, after, err := h.Ledger.Charge(c.Request().Context(), uid, req.Amount)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"points_before": before, "points_after": after})
}

// History: GET /v1/points/history?limit=n
func (h *PointsHandler) History(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	entries, err := h.Ledger.History(c.Request().Context(), uid, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": entries})
}
