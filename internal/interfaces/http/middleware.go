package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tworscontab/nfse-engine/internal/domain/entity"
	"github.com/tworscontab/nfse-engine/internal/repository"
)

// issuerKey is the gin context key the principal middleware stores the
// authenticated issuer under.
const issuerKey = "issuer"

// principalMiddleware resolves the acting issuer from the X-Issuer-ID header.
// The deployment fronts this service with a gateway that authenticates the
// caller and forwards the resolved issuer id.
func (s *Server) principalMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-Issuer-ID")
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "missing issuer identity",
			})
			return
		}

		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "invalid issuer identity",
			})
			return
		}

		issuer, err := s.issuerRepo.GetByID(c.Request.Context(), id)
		if errors.Is(err, repository.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "unknown issuer",
			})
			return
		}
		if err != nil {
			s.logger.Error("Failed to resolve issuer", zap.Int64("issuer_id", id), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, Response{
				Success: false,
				Error:   "internal error",
			})
			return
		}

		c.Set(issuerKey, issuer)
		c.Next()
	}
}

// actor returns the authenticated issuer stored by the principal middleware.
func actor(c *gin.Context) *entity.Issuer {
	return c.MustGet(issuerKey).(*entity.Issuer)
}
