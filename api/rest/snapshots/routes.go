package snapshots

import (
	"github.com/gin-gonic/gin"

	"codeberg.org/codeshare/server/internal/versions"
)

func RegisterRoutes(router *gin.RouterGroup, store versions.Store) {
	router.POST("/save", SaveHandler(store))
	router.GET("/load/:id", LoadHandler(store))
}
