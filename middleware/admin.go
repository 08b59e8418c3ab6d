package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yonaskd/fleetms/config"
	"github.com/yonaskd/fleetms/utils"
)

// AdminOnly rejects requests whose authenticated username is not listed in
// config.AdminUsernames. Must run after AuthRequired.
func AdminOnly() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		unameVal, exists := ctx.Get(ContextUsernameKey)
		uname, _ := unameVal.(string)
		if !exists || uname == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40106, "unauthorized")
			ctx.Abort()
			return
		}

		cfg := config.Get()
		for _, u := range cfg.AdminUsernames {
			if strings.EqualFold(strings.TrimSpace(u), strings.TrimSpace(uname)) {
				ctx.Next()
				return
			}
		}

		utils.Error(ctx, http.StatusForbidden, 40107, "admin privileges required")
		ctx.Abort()
	}
}
