package handlers

import (
	"errors"
	"net/http"

	"bvbit-exchange/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// respondError переводит ошибку сервисного слоя в HTTP-ответ.
// Пользовательские ошибки возвращаются с текстом причины, внутренние
// скрываются за общим сообщением.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case service.IsUserError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Errorf("Internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
