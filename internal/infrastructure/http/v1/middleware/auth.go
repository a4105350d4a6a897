package middleware

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"stocktally/internal/core/apperror"
	appctx "stocktally/internal/core/context"
)

// HeaderBranchID lets admins pick a working branch for the session.
const HeaderBranchID = "X-Branch-ID"

// JWTValidator interface for token validation.
type JWTValidator interface {
	ValidateToken(tokenString string) (*appctx.UserContext, error)
}

// Auth middleware validates JWT tokens and populates user context.
// Admins may select a working branch via the X-Branch-ID header; branch-bound
// users cannot override their assignment.
func Auth(validator JWTValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		user, err := validator.ValidateToken(parts[1])
		if err != nil {
			_ = c.Error(apperror.NewUnauthorized("invalid token"))
			c.Abort()
			return
		}

		if selected := c.GetHeader(HeaderBranchID); selected != "" && user.IsAdmin {
			if branchID, err := strconv.ParseInt(selected, 10, 64); err == nil && branchID > 0 {
				user.SelectedBranchID = &branchID
			}
		}

		ctx := appctx.WithUser(c.Request.Context(), user)
		c.Request = c.Request.WithContext(ctx)

		c.Set("user_id", user.UserID)

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	_ = c.Error(apperror.NewUnauthorized(message))
	c.Abort()
}
