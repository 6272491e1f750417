package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/icap-edu/icap-portal-gateway/internal/middleware"
	"github.com/icap-edu/icap-portal-gateway/internal/models"
)

func sessionFromContext(c *gin.Context) *models.Session {
	return middleware.SessionFromContext(c)
}
