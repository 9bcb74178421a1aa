package http

import (
	"github.com/gin-gonic/gin"
	"github.com/jmanzanog/portfolio-tracker/internal/infrastructure/metrics"
)

// SetupRoutes registers the API on router. Middleware must already be
// attached, since gin binds it to routes at registration time. A nil m
// leaves the metrics endpoint out.
func SetupRoutes(router *gin.Engine, handler *Handler, m *metrics.Metrics) error {
	if err := RegisterValidators(); err != nil {
		return err
	}

	router.GET("/", handler.Index)

	stocks := router.Group("/stocks")
	{
		stocks.GET("", handler.ListStocks)
		stocks.POST("", handler.CreateStock)
		stocks.GET("/:symbol", handler.GetStock)
		stocks.PUT("/:symbol", handler.UpdateStock)
		stocks.DELETE("/:symbol", handler.DeleteStock)
	}

	router.GET("/view_portfolio", handler.ViewPortfolio)
	router.GET("/historical_prices", handler.HistoricalPrices)
	router.GET("/health", handler.Health)

	if m != nil {
		router.GET(metrics.Path, gin.WrapH(m.Handler()))
	}

	return nil
}
