package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"relayhub/middleware"
	"relayhub/service/hub"
	"relayhub/tools/errs"
)

// PresenceReader reads the presence mirror. Nil falls back to the
// hub's own registry (single-node view).
type PresenceReader interface {
	PresenceLookup(ctx context.Context, user string) (nodeID string, online bool, err error)
}

type notifyReq struct {
	UserID  string `json:"userId" binding:"required"`
	Type    string `json:"type" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// NewRouter assembles the HTTP surface: the websocket endpoint plus a
// small operational REST API for the rest of the platform.
func NewRouter(s *hub.Server, presence PresenceReader, apiSecret []byte) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/ws", s.HandleWS)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "node": s.NodeID()})
	})

	api := r.Group("/api")
	api.GET("/presence/:user", func(c *gin.Context) {
		user := c.Param("user")
		if presence == nil {
			c.JSON(http.StatusOK, gin.H{"userId": user, "online": s.Registry().Online(user)})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		node, online, err := presence.PresenceLookup(ctx, user)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "presence lookup failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"userId": user, "online": online, "node": node})
	})

	api.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.Stats())
	})

	// backend services push notifications here; delivery reaches every
	// open tab of the target user
	api.POST("/notify", middleware.Bearer(apiSecret), func(c *gin.Context) {
		var req notifyReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": errs.CodeBadPayload, "msg": err.Error()})
			return
		}
		if err := s.Notify(req.UserID, req.Type, req.Message); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "notify failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"delivered": true})
	})

	return r
}
