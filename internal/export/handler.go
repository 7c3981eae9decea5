package export

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/daybook/daybook/internal/entry"
	"github.com/daybook/daybook/pkg/logger"
	"github.com/daybook/daybook/pkg/middleware"
)

// RegisterRoutes mounts POST /entry/export on an authenticated group.
func RegisterRoutes(r gin.IRoutes, x *Exporter) {
	r.POST("/entry/export", func(c *gin.Context) {
		res, err := x.Export(c.Request.Context(), middleware.OwnerID(c))
		if err != nil {
			if errors.Is(err, entry.ErrUnauthorized) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
				return
			}
			logger.Errorf("export failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export entries"})
			return
		}
		c.JSON(http.StatusOK, res)
	})
}
