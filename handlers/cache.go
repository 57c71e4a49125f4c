package handlers

import (
	"net/http"

	"projector-server/usecases"

	"github.com/gin-gonic/gin"
)

// CacheHandler exposes the command catalog cache.
type CacheHandler struct {
	commands *usecases.CommandsUseCase
}

func NewCacheHandler(commands *usecases.CommandsUseCase) *CacheHandler {
	return &CacheHandler{commands: commands}
}

// GET /projectors/catalog-cache/stats
func (h *CacheHandler) GetCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"stats":  h.commands.CatalogStats(),
	})
}

// POST /projectors/catalog-cache/flush
func (h *CacheHandler) Flush(c *gin.Context) {
	h.commands.FlushCatalog()
	c.JSON(http.StatusOK, gin.H{"status": "flushed"})
}
