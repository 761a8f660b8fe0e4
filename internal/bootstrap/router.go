package bootstrap

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	httpapi "github.com/imprimeturecuerdo/memorial-backend/internal/api/http"
	apimw "github.com/imprimeturecuerdo/memorial-backend/internal/api/http/middleware"
	"github.com/imprimeturecuerdo/memorial-backend/internal/auth"
	authhttp "github.com/imprimeturecuerdo/memorial-backend/internal/auth/http"
	authmw "github.com/imprimeturecuerdo/memorial-backend/internal/auth/middleware"
	"github.com/imprimeturecuerdo/memorial-backend/internal/content"
	memorialhttp "github.com/imprimeturecuerdo/memorial-backend/internal/memorial/http"
	"github.com/imprimeturecuerdo/memorial-backend/internal/memorial/service"
	"github.com/imprimeturecuerdo/memorial-backend/internal/realtime"
	"github.com/imprimeturecuerdo/memorial-backend/internal/roles"
)

type RouterDeps struct {
	ServiceName    string
	Version        string
	AllowedOrigins []string

	Store    httpapi.Pinger
	DB       httpapi.Pinger
	Verifier auth.TokenVerifier

	Services *service.Services
	Gate     *roles.Gate
	Content  content.Source
	Registry *realtime.Registry

	// optional, nil without a database
	Visitors  authhttp.VisitorDirectory
	Audit     memorialhttp.AuditLog
	Snapshots memorialhttp.SnapshotLog

	Limiter *apimw.RateLimiter
	Log     zerolog.Logger
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(apimw.RequestIDMiddleware(dep.Log))
	r.Use(cors.New(corsConfig(dep.AllowedOrigins)))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.Store, dep.DB)
	healthHandler.RegisterRoutes(r)

	api := r.Group("/api/v1")

	var admins authhttp.AdminChecker
	if dep.Gate != nil {
		admins = dep.Gate
	}
	authHandler := authhttp.New(dep.Visitors, admins, dep.Log)
	authHandler.RegisterPublic(api)

	signedIn := api.Group("")
	signedIn.Use(authmw.FirebaseAuthMiddleware(dep.Verifier))
	authHandler.Register(signedIn)

	var writeLimit gin.HandlerFunc
	if dep.Limiter != nil {
		writeLimit = dep.Limiter.Middleware()
	}

	pages := api.Group("")
	pages.Use(authmw.OptionalFirebaseAuth(dep.Verifier, dep.Log))
	memorialhttp.New(memorialhttp.Deps{
		Services:       dep.Services,
		Gate:           dep.Gate,
		Content:        dep.Content,
		Registry:       dep.Registry,
		Audit:          dep.Audit,
		Snapshots:      dep.Snapshots,
		WriteLimit:     writeLimit,
		AllowedOrigins: dep.AllowedOrigins,
		Log:            dep.Log,
	}).Register(pages)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-Id", "X-Device-Id"},
		ExposeHeaders: []string{"X-Request-Id", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}
