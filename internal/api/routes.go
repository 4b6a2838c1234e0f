package api

import (
	"database/sql"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/saxenaaman628/election-observer/config"
	"github.com/saxenaaman628/election-observer/internal/controller"
	"github.com/saxenaaman628/election-observer/internal/middleware"
	"github.com/saxenaaman628/election-observer/internal/services"
	"github.com/saxenaaman628/election-observer/internal/utils"
)

const geoEntity = "GEOGRAPHIC_DATA"

type Dependencies struct {
	Services *services.Services
	Tokens   *utils.TokenManager
	// Limiter may be nil, which disables rate limiting.
	Limiter middleware.Limiter
	SQLDB   *sql.DB
	Config  *config.Config
	Log     *zap.Logger
}

func RegisterRoutes(r *gin.Engine, d Dependencies) {
	svc := d.Services
	audit := func(action, entity string) gin.HandlerFunc {
		return middleware.Audit(svc.Audit, action, entity)
	}
	authn := middleware.JWTAuthMiddleware(d.Tokens, svc.Users)
	admin := middleware.RequireAdmin()
	superAdmin := middleware.RequireSuperAdmin()
	device := middleware.RequireDevice()

	health := NewHealthHandler(d.SQLDB, d.Config.Server.Environment)
	r.GET("/health", health.Health)

	api := r.Group("/api")
	if d.Limiter != nil {
		api.Use(middleware.RateLimit(d.Limiter, d.Log))
	}

	users := controller.NewUserController(svc.Users)

	authH := NewAuthHandler(svc.Auth)
	auth := api.Group("/auth")
	{
		auth.POST("/login", authH.Login)
		auth.POST("/refresh", authH.Refresh)
		auth.POST("/logout", authn, authH.Logout)
		auth.GET("/me", authn, authH.Me)
		auth.PUT("/change-password", authn, audit("PASSWORD_CHANGE", "User"), authH.ChangePassword)
		auth.POST("/register", authn, admin, audit("CREATE", "User"), users.Create)
	}

	u := api.Group("/users", authn, admin)
	{
		u.GET("", users.List)
		u.GET("/stats/overview", users.Overview)
		u.GET("/:id", users.Get)
		u.POST("", audit("CREATE", "User"), users.Create)
		u.PUT("/:id", audit("UPDATE", "User"), users.Update)
		u.PUT("/:id/change-password", audit("PASSWORD_CHANGE", "User"), users.ChangePassword)
		u.PUT("/:id/activate", audit("ACTIVATE", "User"), users.Activate)
		u.PUT("/:id/deactivate", audit("DEACTIVATE", "User"), users.Deactivate)
		u.DELETE("/:id", superAdmin, audit("DELETE", "User"), users.Delete)
		u.POST("/bulk/activate", superAdmin, audit("BULK_ACTIVATE", "User"), users.BulkActivate)
		u.POST("/bulk/deactivate", superAdmin, audit("BULK_DEACTIVATE", "User"), users.BulkDeactivate)
	}

	counties := controller.NewCountyController(svc.Counties, svc.Stats)
	cg := api.Group("/counties", authn)
	{
		cg.GET("", counties.List)
		cg.GET("/:id", counties.Get)
		cg.POST("", admin, audit("CREATE", "County"), counties.Create)
		cg.PUT("/:id", admin, audit("UPDATE", "County"), counties.Update)
		cg.DELETE("/:id", admin, audit("DELETE", "County"), counties.Delete)
		cg.POST("/bulk-import", admin, audit("BULK_IMPORT", "County"), counties.BulkImport)
	}

	constituencies := controller.NewConstituencyController(svc.Constituencies, svc.Stats)
	kg := api.Group("/constituencies", authn)
	{
		kg.GET("", constituencies.List)
		kg.GET("/stats", constituencies.Stats)
		kg.GET("/:id", constituencies.Get)
		kg.POST("", admin, audit("CREATE", "Constituency"), constituencies.Create)
		kg.PUT("/:id", admin, audit("UPDATE", "Constituency"), constituencies.Update)
		kg.DELETE("/:id", admin, audit("DELETE", "Constituency"), constituencies.Delete)
		kg.POST("/bulk-import", admin, audit("BULK_IMPORT", "Constituency"), constituencies.BulkImport)
	}

	wards := controller.NewWardController(svc.Wards, svc.Stats)
	wg := api.Group("/wards", authn)
	{
		wg.GET("", wards.List)
		wg.GET("/:id", wards.Get)
		wg.POST("", admin, audit("CREATE", "Ward"), wards.Create)
		wg.PUT("/:id", admin, audit("UPDATE", "Ward"), wards.Update)
		wg.DELETE("/:id", admin, audit("DELETE", "Ward"), wards.Delete)
		wg.POST("/bulk-import", admin, audit("BULK_IMPORT", "Ward"), wards.BulkImport)
	}

	stations := controller.NewStationController(svc.Stations)
	sg := api.Group("/polling-stations", authn)
	{
		sg.GET("", stations.List)
		sg.GET("/:id", stations.Get)
		sg.GET("/:id/voter-registrations", stations.Registrations)
		sg.POST("", admin, audit("CREATE", "PollingStation"), stations.Create)
		sg.PUT("/:id", admin, audit("UPDATE", "PollingStation"), stations.Update)
		sg.DELETE("/:id", admin, audit("DELETE", "PollingStation"), stations.Delete)
		sg.POST("/:id/voter-registrations", admin, audit("CREATE", "VoterRegistration"), stations.AddRegistration)
	}

	stats := controller.NewStatsController(svc.Stats)
	api.GET("/stats/electoral-area", authn, stats.ElectoralArea)

	candidates := controller.NewCandidateController(svc.Candidates)
	cand := api.Group("/candidates", authn)
	{
		cand.GET("", candidates.List)
		cand.GET("/:id", candidates.Get)
		cand.POST("", admin, audit("CREATE", "Candidate"), candidates.Create)
		cand.PUT("/:id", admin, audit("UPDATE", "Candidate"), candidates.Update)
		cand.DELETE("/:id", admin, audit("DELETE", "Candidate"), candidates.Delete)
	}

	results := controller.NewResultController(svc.Results)
	rg := api.Group("/election-results", authn)
	{
		rg.GET("", results.List)
		rg.GET("/:id", results.Get)
		rg.POST("", device, audit("CREATE", "ElectionResult"), results.Create)
		rg.PUT("/:id", device, audit("UPDATE", "ElectionResult"), results.Update)
		rg.PUT("/:id/verify", admin, audit("VERIFY", "ElectionResult"), results.Verify)
	}

	incidents := controller.NewIncidentController(svc.Incidents)
	ig := api.Group("/incidents", authn)
	{
		ig.GET("", incidents.List)
		ig.GET("/:id", incidents.Get)
		ig.POST("", device, audit("CREATE", "Incident"), incidents.Create)
		ig.PUT("/:id", device, audit("UPDATE", "Incident"), incidents.Update)
		ig.PUT("/:id/resolve", admin, audit("RESOLVE", "Incident"), incidents.Resolve)
	}

	auditLogs := controller.NewAuditController(svc.Audit)
	ag := api.Group("/audit", authn, admin)
	{
		ag.GET("", auditLogs.List)
		ag.GET("/stats/overview", auditLogs.Stats)
		ag.GET("/:id", auditLogs.Get)
	}

	imports := controller.NewImportController(svc.Imports, d.Config.Server.MaxUploadBytes)
	bg := api.Group("/bulk-upload", authn, admin)
	{
		bg.POST("/hierarchical", audit("HIERARCHICAL_BULK_UPLOAD", geoEntity), imports.Hierarchical)
		bg.POST("/upload-csv", imports.Preview)
		bg.POST("/import-file", audit("UPLOAD_CSV", geoEntity), imports.ImportFile)
		bg.GET("/template", imports.Template)
		bg.GET("/status", imports.Status)
	}

	r.NoRoute(middleware.NotFound)
}
