package middleware

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/school-hub-api/pkg/errors"
	"github.com/noah-isme/school-hub-api/pkg/response"
)

// RequireFeature answers FEATURE_DISABLED for every route of a switched-off feature.
func RequireFeature(enabled bool, name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			response.Error(c, appErrors.Clone(appErrors.ErrFeatureDisabled, name+" is disabled"))
			c.Abort()
			return
		}
		c.Next()
	}
}
