package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Nono8Six/ia-learning-sub000/core/connect"
)

type healthApi struct {
	conn *connect.Service
}

func registerHealthAPI(g *echo.Group, deps ServerDeps) {
	api := healthApi{conn: deps.ConnSvc}

	hg := g.Group("/health")
	hg.GET("", api.status)
	hg.POST("/check", api.check)

	// device/environment reachability signals
	hg.POST("/offline", api.offline)
	hg.POST("/online", api.online)
}

func (api *healthApi) status(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.conn.Status())
}

// check actively probes the backend instead of reporting the cached status.
func (api *healthApi) check(ctx echo.Context) error {
	ok, _ := api.conn.CheckConnection(ctx.Request().Context())
	code := http.StatusOK
	if !ok {
		code = http.StatusServiceUnavailable
	}
	return ctx.JSON(code, api.conn.Status())
}

type offlineRequest struct {
	Reason string `json:"reason"`
}

func (api *healthApi) offline(ctx echo.Context) error {
	var data offlineRequest
	_ = ctx.Bind(&data) // reason is optional
	api.conn.SetOffline(data.Reason)
	return ctx.JSON(http.StatusOK, api.conn.Status())
}

func (api *healthApi) online(ctx echo.Context) error {
	ok := api.conn.SetOnline(ctx.Request().Context())
	code := http.StatusOK
	if !ok {
		code = http.StatusServiceUnavailable
	}
	return ctx.JSON(code, api.conn.Status())
}
