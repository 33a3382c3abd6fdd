// Package webserver is the read-mostly admin API: password login issuing
// a short-lived JWT, then authenticated reads over the same engines the
// bot drives. Nothing here mutates request state.
package webserver

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sendcrew/reqbot/src/ReqBot/components/admission"
	"github.com/sendcrew/reqbot/src/ReqBot/components/cooldown"
	"github.com/sendcrew/reqbot/src/ReqBot/components/requests"
	"github.com/sendcrew/reqbot/src/eventlog"
)

type Config struct {
	JWTSecret         string
	AdminPasswordHash string
}

type Deps struct {
	Requests  *requests.Controller
	Cooldowns *cooldown.Engine
	Admission *admission.Controller
	Events    *eventlog.Logger
}

func New(cfg Config, deps Deps) *gin.Engine {
	g := gin.New()
	g.Use(gin.Logger(), gin.Recovery())
	attachRoutes(g, cfg, deps)
	return g
}

func attachRoutes(r *gin.Engine, cfg Config, deps Deps) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	authH := NewAuth([]byte(cfg.JWTSecret), cfg.AdminPasswordHash)
	apiH := NewAPI(deps)

	v1 := r.Group("/v1")
	{
		v1.POST("/auth/login", authH.Login)

		secured := v1.Use(JWTMiddleware([]byte(cfg.JWTSecret)))
		secured.GET("/queue", apiH.QueueStatus)
		secured.GET("/requests/pending", apiH.PendingRequests)
		secured.GET("/cooldowns/:entity", apiH.Cooldowns)
		secured.GET("/events", apiH.Events)
	}
}
