package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-hub-api/internal/middleware"
	appErrors "github.com/noah-isme/school-hub-api/pkg/errors"
)

func accountIDFromContext(c *gin.Context) (string, error) {
	claims := middleware.Claims(c)
	if claims == nil || claims.AccountID == "" {
		return "", appErrors.ErrUnauthorized
	}
	return claims.AccountID, nil
}

// refreshRequested reads ?refresh=true; anything unparsable means false.
func refreshRequested(c *gin.Context) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(c.Query("refresh")))
	return err == nil && v
}

func intQuery(c *gin.Context, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, name+" must be an integer")
	}
	return v, nil
}
