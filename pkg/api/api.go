// Package api builds the REST api server.
package api

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/opst/yeastregulatorydb/pkg/api/auth"
	"github.com/opst/yeastregulatorydb/pkg/api/handlers"
	"github.com/opst/yeastregulatorydb/pkg/db"
	"github.com/opst/yeastregulatorydb/pkg/domain"
	"github.com/opst/yeastregulatorydb/pkg/echoutil"
	"github.com/opst/yeastregulatorydb/pkg/metrics"
	"github.com/opst/yeastregulatorydb/pkg/tasks"
)

type Deps struct {
	DB       db.Database
	Gate     handlers.Gate
	Chains   handlers.Chainer
	Exporter handlers.Exporter
	Queue    tasks.Queue

	// HMACKey verifies bearer tokens.
	HMACKey []byte

	// Admins may register reference data, delete records and trigger stages.
	Admins []string

	// Metrics is served at /metrics, if not nil.
	Metrics *metrics.Metrics

	LogLevel string
	Now      func() time.Time
}

// New creates an echo server with all routes of the api.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.AddTrailingSlash())

	echoutil.SetLevel(e, d.LogLevel)
	e.HTTPErrorHandler = echoutil.ErrorHandler(e)
	e.Use(echoutil.LogHandlerFunc)

	if d.Metrics != nil {
		e.GET("/metrics/", echo.WrapHandler(d.Metrics.Handler()))
	}

	api := e.Group("/api", auth.Middleware(d.HMACKey, d.Now))
	admin := auth.AdminOnly(d.Admins)

	{
		bindings := d.DB.Bindings()
		api.GET("/binding/", handlers.FindBindingHandler(bindings))
		api.POST("/binding/", handlers.PostBindingHandler(d.Gate, d.Chains))
		api.POST("/binding/bulk_upload/", handlers.BulkBindingHandler(d.Gate, d.Chains))
		api.GET("/binding/:id/", handlers.GetHandler(bindings.Get))
		api.DELETE("/binding/:id/", handlers.DeleteHandler(d.Gate, domain.CategoryBinding), admin)
		api.GET("/binding/:id/qc/", handlers.GetBindingQCHandler(d.DB))
		api.PUT("/binding/:id/qc/", handlers.PutBindingQCHandler(d.DB, d.Chains, d.Now))
	}

	{
		expressions := d.DB.Expressions()
		api.GET("/expression/", handlers.FindExpressionHandler(expressions))
		api.POST("/expression/", handlers.PostExpressionHandler(d.Gate, d.Chains))
		api.POST("/expression/bulk_upload/", handlers.BulkExpressionHandler(d.Gate, d.Chains))
		api.GET("/expression/:id/", handlers.GetHandler(expressions.Get))
		api.DELETE("/expression/:id/", handlers.DeleteHandler(d.Gate, domain.CategoryExpression), admin)
	}

	{
		backgrounds := d.DB.Backgrounds()
		api.GET("/callingcardsbackground/", handlers.ListHandler(backgrounds.List))
		api.POST("/callingcardsbackground/", handlers.PostBackgroundHandler(d.Gate), admin)
		api.GET("/callingcardsbackground/:id/", handlers.GetHandler(backgrounds.Get))
		api.DELETE("/callingcardsbackground/:id/", handlers.DeleteHandler(d.Gate, domain.CategoryBackground), admin)

		promoters := d.DB.PromoterSets()
		api.GET("/promoterset/", handlers.ListHandler(promoters.List))
		api.POST("/promoterset/", handlers.PostPromoterSetHandler(d.Gate), admin)
		api.GET("/promoterset/:id/", handlers.GetHandler(promoters.Get))
		api.DELETE("/promoterset/:id/", handlers.DeleteHandler(d.Gate, domain.CategoryPromoterSet), admin)
	}

	{
		sigs := d.DB.PromoterSetSigs()
		upload := handlers.PostPromoterSetSigHandler(d.Gate, d.Chains)
		trigger := admin(handlers.TriggerPromoterSetSigHandler(d.Chains))
		api.GET("/promotersetsig/", handlers.FindPromoterSetSigHandler(sigs))
		api.POST("/promotersetsig/", func(c echo.Context) error {
			if handlers.IsJSON(c) {
				return trigger(c)
			}
			return upload(c)
		})
		api.GET("/promotersetsig/combined/", handlers.CombinedPromoterSetSigHandler(d.Exporter))
		api.GET("/promotersetsig/:id/", handlers.GetHandler(sigs.Get))
		api.DELETE("/promotersetsig/:id/", handlers.DeleteHandler(d.Gate, domain.CategoryPromoterSetSig), admin)

		rrs := d.DB.RankResponses()
		api.GET("/rankresponse/", handlers.FindRankResponseHandler(rrs))
		api.POST("/rankresponse/", handlers.PostRankResponseHandler(d.Chains), admin)
		api.GET("/rankresponse/:id/", handlers.GetHandler(rrs.Get))
		api.DELETE("/rankresponse/:id/", handlers.DeleteHandler(d.Gate, domain.CategoryRankResponse), admin)
	}

	{
		formats := d.DB.FileFormats()
		refs := d.DB.References()
		api.GET("/fileformat/", handlers.ListHandler(formats.List))
		api.POST("/fileformat/", handlers.PostFileFormatHandler(formats), admin)
		api.GET("/fileformat/:id/", handlers.GetHandler(formats.Get))

		api.GET("/chrmap/", handlers.GetChrMapHandler(refs))
		api.POST("/chrmap/", handlers.PostChrMapHandler(refs), admin)

		api.POST("/datasource/", handlers.PostDataSourceHandler(d.DB, d.Now), admin)
		api.GET("/datasource/:id/", handlers.GetHandler(refs.GetDataSource))

		api.POST("/genomicfeature/", handlers.PostGenomicFeatureHandler(refs), admin)
	}

	api.GET("/tasks/:id/", handlers.GetTaskHandler(d.Queue))

	return e
}
