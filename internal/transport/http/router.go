package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ActiveCounter reports how many quiz sessions are open.
type ActiveCounter interface {
	Active() int
}

type RouterConfig struct {
	Feed     *Feed
	Sessions ActiveCounter
	Gatherer prometheus.Gatherer
}

// NewRouter serves health, metrics and the result feed.
func NewRouter(c RouterConfig) *gin.Engine {
	if c.Gatherer == nil {
		c.Gatherer = prometheus.DefaultGatherer
	}
	e := gin.New()
	e.Use(gin.Recovery())

	e.GET("/healthz", func(ctx *gin.Context) {
		body := gin.H{"status": "ok"}
		if c.Sessions != nil {
			body["activeSessions"] = c.Sessions.Active()
		}
		if c.Feed != nil {
			body["feedSubscribers"] = c.Feed.Subscribers()
		}
		ctx.JSON(http.StatusOK, body)
	})
	e.GET("/metrics", gin.WrapH(promhttp.HandlerFor(c.Gatherer, promhttp.HandlerOpts{})))
	if c.Feed != nil {
		e.GET("/ws", gin.WrapF(c.Feed.ServeWS))
	}
	return e
}
