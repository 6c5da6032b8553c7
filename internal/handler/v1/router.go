package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/curaflow/curaflow/pkg/metrics"
)

type RouterDeps struct {
	Blocks    *BlockHandler
	Bookings  *BookingHandler
	Providers *ProviderHandler
	Visits    *VisitHandler
	Sweeps    *SweepHandler
	Metrics   *metrics.Collector
	Log       *zap.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger(deps.Log), Metrics(deps.Metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	api := r.Group("/api/v1")

	blocks := api.Group("/slot-blocks")
	{
		blocks.POST("", deps.Blocks.Create)
		blocks.GET("/:id", deps.Blocks.Get)
		blocks.POST("/:id/confirm", deps.Blocks.Confirm)
		blocks.POST("/:id/post", deps.Blocks.Post)
		blocks.POST("/:id/reset", deps.Blocks.Reset)
		blocks.DELETE("/:id", deps.Blocks.Delete)
	}

	api.POST("/bookings", deps.Bookings.Book)

	appts := api.Group("/appointments")
	{
		appts.GET("/:id", deps.Bookings.Get)
		appts.POST("/:id/schedule", deps.Bookings.Schedule)
		appts.POST("/:id/check-in", deps.Bookings.CheckIn)
		appts.POST("/:id/check-out", deps.Bookings.CheckOut)
		appts.POST("/:id/cancel", deps.Bookings.Cancel)
		appts.POST("/:id/reschedule", deps.Bookings.Reschedule)
	}

	api.GET("/patients/:id/appointments", deps.Bookings.ListPatientAppointments)

	api.GET("/doctors", deps.Providers.ListDoctors)
	api.GET("/providers/:id/availability", deps.Providers.Availability)

	visits := api.Group("/visits")
	{
		visits.GET("/:id", deps.Visits.Get)
		visits.POST("/:id/end", deps.Visits.End)
		visits.DELETE("/:id", deps.Visits.Delete)
		visits.GET("/:id/encounters", deps.Visits.Encounters)
		visits.GET("/:id/diagnoses", deps.Visits.Diagnoses)
	}
	api.POST("/visit-notes", deps.Visits.RecordNote)

	sweeps := api.Group("/sweeps")
	{
		sweeps.POST("/missed", deps.Sweeps.SweepMissed)
		sweeps.POST("/expired-slots", deps.Sweeps.SweepExpiredSlots)
	}

	return r
}
