package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/homeservices-coverage/internal/audit"
	"github.com/BruksfildServices01/homeservices-coverage/internal/config"
	"github.com/BruksfildServices01/homeservices-coverage/internal/domain/coverage"
	"github.com/BruksfildServices01/homeservices-coverage/internal/geo"
	"github.com/BruksfildServices01/homeservices-coverage/internal/handlers"
	"github.com/BruksfildServices01/homeservices-coverage/internal/middleware"
	"github.com/BruksfildServices01/homeservices-coverage/internal/postalcode"
	ucCoverage "github.com/BruksfildServices01/homeservices-coverage/internal/usecase/coverage"
)

// Deps are the long-lived singletons main builds once.
type Deps struct {
	Repo     coverage.Repository
	Registry *postalcode.Registry
	Cache    coverage.Cache
	// nil disables geocoding of unknown codes
	Enricher ucCoverage.Enricher
	Audit    *audit.Dispatcher
}

func RegisterRoutes(r *gin.Engine, deps Deps, cfg *config.Config) {

	// ======================================================
	// MIDDLEWARE GLOBAL
	// ======================================================
	r.Use(middleware.RequestID())
	r.Use(middleware.Observe())
	r.Use(middleware.CORSMiddleware())

	// ======================================================
	// USE CASES
	// ======================================================
	resolver := ucCoverage.NewResolver(deps.Registry, ucCoverage.ResolverOptions{
		RefineCentroids: cfg.RefineCentroids,
	})

	hulls := ucCoverage.NewHullSynthesizer(deps.Registry, deps.Enricher, geo.HullOptions{
		ConcaveMinPoints: cfg.HullConcaveMin,
		ConcaveMaxPoints: cfg.HullConcaveMax,
		Concavity:        cfg.HullConcavity,
	})

	reconciler := ucCoverage.NewReconciler(deps.Repo, resolver, deps.Cache)
	aggregator := ucCoverage.NewAggregator(deps.Repo, deps.Registry, resolver, cfg.NationalTotal)
	queries := ucCoverage.NewQueries(deps.Repo, deps.Cache, hulls)
	workers := ucCoverage.NewWorkers(deps.Repo, deps.Audit)
	importer := ucCoverage.NewImportPostalCodes(
		postalcode.NewImporter(deps.Registry, cfg.ImportChunkSize),
		deps.Audit,
	)

	// ======================================================
	// HANDLERS
	// ======================================================
	workersHandler := handlers.NewWorkersHandler(workers, queries)
	areasHandler := handlers.NewAreasHandler(reconciler, queries)
	coverageHandler := handlers.NewCoverageHandler(resolver, hulls, aggregator, queries)
	postalCodesHandler := handlers.NewPostalCodesHandler(importer, deps.Registry)
	auditLogsHandler := handlers.NewAuditLogsHandler(queries, cfg.ReportTimezone)

	// ======================================================
	// API (JSON)
	// ======================================================
	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(cfg))
	{
		// ------------------------------
		// BOOKING PLATFORM
		// ------------------------------
		api.GET("/coverage/zipcodes/:code/workers", coverageHandler.WorkersForCode)

		// ------------------------------
		// ADMIN
		// ------------------------------
		admin := api.Group("/admin")
		admin.Use(middleware.RequireRole(middleware.RoleAdmin))
		{
			admin.GET("/workers", workersHandler.List)
			admin.POST("/workers", workersHandler.Create)
			admin.GET("/workers/:workerId/coverage", workersHandler.Coverage)
			admin.GET("/workers/:workerId/areas", workersHandler.Areas)

			// membership changes
			admin.POST("/workers/:workerId/polygon-areas", areasHandler.CreateFromPolygon)
			admin.POST("/workers/:workerId/zipcode-areas", areasHandler.CreateFromZipList)
			admin.POST("/workers/:workerId/areas/:areaId/zipcodes", areasHandler.AddZipcodes)
			admin.DELETE("/workers/:workerId/zipcodes/:code", areasHandler.RemoveZipcode)
			admin.POST("/workers/:workerId/merge-areas", areasHandler.Merge)

			admin.PATCH("/areas/:areaId", areasHandler.Rename)
			admin.PATCH("/areas/:areaId/active", areasHandler.Toggle)
			admin.DELETE("/areas/:areaId", areasHandler.Delete)
			admin.GET("/areas/:areaId/hull", areasHandler.Hull)

			admin.POST("/coverage/resolve", coverageHandler.Resolve)
			admin.POST("/coverage/hull", coverageHandler.Hull)
			admin.GET("/coverage/stats", coverageHandler.Stats)

			admin.POST("/postal-codes/import", postalCodesHandler.Import)
			admin.GET("/postal-codes/:code", postalCodesHandler.Get)

			admin.GET("/audit-logs", auditLogsHandler.List)
		}
	}
}
