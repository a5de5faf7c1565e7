package snapshots

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apierrors "codeberg.org/codeshare/server/internal/errors"
	"codeberg.org/codeshare/server/internal/versions"
)

// appends a code snapshot for a session outside the websocket path
// (manual save button, scripted backups)
func SaveHandler(store versions.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Query("sessionId")
		if sessionID == "" {
			apierrors.BadRequest(c, "sessionId query parameter is required", nil)
			return
		}

		var req SaveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apierrors.BadRequest(c, "invalid request body", err)
			return
		}

		if _, err := store.Append(c.Request.Context(), sessionID, req.Code); err != nil {
			apierrors.InternalError(c, "failed to save code version", err)
			return
		}

		c.JSON(http.StatusOK, SaveResponse{Status: "success"})
	}
}

// loads a single code snapshot by its record ID
func LoadHandler(store versions.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		record, err := store.GetByID(c.Request.Context(), id)

		if errors.Is(err, versions.ErrNotFound) {
			c.JSON(http.StatusNotFound, LoadResponse{
				Status:  "error",
				Message: "code version not found",
			})
			return
		}

		if err != nil {
			apierrors.InternalError(c, "failed to load code version", err)
			return
		}

		c.JSON(http.StatusOK, LoadResponse{
			Status: "success",
			Code:   record.Code,
		})
	}
}
