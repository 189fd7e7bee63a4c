package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// GetRecord returns a persisted session record.
// GET /v1/records/:record_id
func (h *Handler) GetRecord(c echo.Context) error {
	record, err := h.service.GetRecord(c.Request().Context(), c.Param("record_id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, record)
}

// ListRecords lists an owner's session records, newest first.
// GET /v1/users/:owner_id/sessions
func (h *Handler) ListRecords(c echo.Context) error {
	limit := 20
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil {
			limit = val
		}
	}

	records, err := h.service.ListRecords(c.Request().Context(), c.Param("owner_id"), limit)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"records": records,
	})
}
