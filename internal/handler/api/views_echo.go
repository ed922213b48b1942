package api

import (
	"time"

	"MarketPulse/internal/domain/faults"
	models "MarketPulse/internal/domain/models"
	viewmetrics "MarketPulse/internal/service/metrics"
	"MarketPulse/internal/service/ratelimit"
	"MarketPulse/internal/usecase"
	xhttp "MarketPulse/pkg/http"
	xlogger "MarketPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ViewsHandler serves aggregated views and session state over HTTP.
type ViewsHandler struct {
	logger *xlogger.Logger
	agg    *usecase.ViewAggregator
	ingest *usecase.SessionIngest
	rl     *ratelimit.Limiter
}

func NewViewsHandler(logger *xlogger.Logger, agg *usecase.ViewAggregator, ingest *usecase.SessionIngest) *ViewsHandler {
	viewmetrics.Register()
	return &ViewsHandler{logger: logger, agg: agg, ingest: ingest, rl: ratelimit.New()}
}

func (h *ViewsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/view/:kind", h.View)
	g.DELETE("/view/:kind/cache", h.InvalidateView)
	g.GET("/sessions", h.Sessions)
	g.GET("/session", h.Session)
	g.GET("/session/next", h.NextSession)
	g.GET("/session/:key/levels", h.Levels)
	g.POST("/session/:key/tick", h.IngestTick)
	g.POST("/session/:key/sweep", h.IngestSweep)
	g.POST("/session/:key/ib/complete", h.CompleteIB)
	g.POST("/session/:key/reset", h.ResetSession)
}

// View returns the aggregated view for a kind, rebuilding when stale.
// ?refresh=true forces a rebuild.
func (h *ViewsHandler) View(c echo.Context) error {
	start := time.Now()
	defer func() {
		viewmetrics.ViewLatency.WithLabelValues("view").Observe(time.Since(start).Seconds())
	}()

	req := &models.ViewRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":view", 10, 5) {
		return xhttp.TooManyRequestsResponse(c)
	}

	view, err := h.agg.Aggregate(c.Request().Context(), models.ViewKind(req.Kind), req.Refresh)
	if err != nil {
		viewmetrics.ViewErrors.WithLabelValues("view").Inc()
		h.logger.Error("view aggregation failed",
			xlogger.String("kind", req.Kind),
			xlogger.Error(err),
		)
		if faults.Is(err, faults.ErrUnknownView) {
			return xhttp.NotFoundResponse(c, err.Error())
		}
		if faults.Is(err, faults.ErrAllSourcesFailed) {
			return xhttp.DataResponse(c, 503, err.Error())
		}
		return xhttp.AppErrorResponse(c, err)
	}
	// ?top= caps the driver list in the response. The cached view is shared;
	// truncate a copy.
	if top := xhttp.ParseIntDefault(c.QueryParam("top"), 0); top > 0 && top < len(view.Drivers) {
		cp := *view
		cp.Drivers = cp.Drivers[:top]
		view = &cp
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, view)
}

// InvalidateView drops the cached view so the next read rebuilds it.
func (h *ViewsHandler) InvalidateView(c echo.Context) error {
	kind := models.ViewKind(c.Param("kind"))
	if err := h.agg.Invalidate(c.Request().Context(), kind); err != nil {
		if faults.Is(err, faults.ErrUnknownView) {
			return xhttp.NotFoundResponse(c, err.Error())
		}
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.NoContentResponse(c)
}

// Sessions lists the configured session table.
func (h *ViewsHandler) Sessions(c echo.Context) error {
	defs := h.ingest.Definitions()
	return xhttp.ListResponse(c, defs, int64(len(defs)))
}

// Session resolves the active session window; ?at= overrides the instant.
func (h *ViewsHandler) Session(c echo.Context) error {
	req := &models.SessionQueryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	at, err := parseInstant(req.At, h.ingest.Location())
	if err != nil {
		return xhttp.BadRequestResponse(c, err.Error())
	}
	win := h.ingest.Resolve(at)
	return xhttp.SuccessResponse(c, win)
}

// NextSession reports the upcoming session and minutes until it opens.
func (h *ViewsHandler) NextSession(c echo.Context) error {
	req := &models.SessionQueryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	at, err := parseInstant(req.At, h.ingest.Location())
	if err != nil {
		return xhttp.BadRequestResponse(c, err.Error())
	}
	def, minutes := h.ingest.Next(at)
	return xhttp.SuccessResponse(c, echo.Map{
		"session":      def,
		"minutesUntil": minutes,
	})
}

// Levels returns the accumulated levels and IB range for one session.
func (h *ViewsHandler) Levels(c echo.Context) error {
	key := models.SessionKey(c.Param("key"))
	levels, err := h.ingest.Levels(key)
	if err != nil {
		return xhttp.NotFoundResponse(c, err.Error())
	}
	ib, err := h.ingest.InitialBalance(key)
	if err != nil {
		return xhttp.NotFoundResponse(c, err.Error())
	}
	return xhttp.SuccessResponse(c, echo.Map{
		"session":        key,
		"levels":         levels,
		"initialBalance": ib,
	})
}

// IngestTick applies a tick via the webhook path. The :key parameter is
// advisory; the session is resolved from the tick timestamp.
func (h *ViewsHandler) IngestTick(c echo.Context) error {
	req := &models.TickRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":tick", 50, 25) {
		return xhttp.TooManyRequestsResponse(c)
	}
	ts := req.Timestamp
	if ts == 0 {
		ts = time.Now().Unix()
	}
	err := h.ingest.ApplyTick(c.Request().Context(), &models.Tick{
		Symbol:    req.Symbol,
		Price:     req.Price,
		Volume:    req.Volume,
		Delta:     req.Delta,
		Timestamp: ts,
	})
	if err != nil {
		h.logger.Error("tick webhook failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.NoContentResponse(c)
}

// IngestSweep records a liquidity sweep against the active session.
func (h *ViewsHandler) IngestSweep(c echo.Context) error {
	req := &models.SweepRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	var at time.Time
	if req.Timestamp > 0 {
		at = time.Unix(req.Timestamp, 0)
	}
	err := h.ingest.ApplySweep(c.Request().Context(), &models.SweepEvent{
		Level:     req.Level,
		Price:     req.Price,
		Time:      at,
		Reclaimed: req.Reclaimed,
	})
	if err != nil {
		h.logger.Error("sweep webhook failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.NoContentResponse(c)
}

// CompleteIB freezes the initial-balance range for a session. Normally the
// scheduler does this; the endpoint exists for manual correction.
func (h *ViewsHandler) CompleteIB(c echo.Context) error {
	key := models.SessionKey(c.Param("key"))
	if err := h.ingest.CompleteInitialBalance(key); err != nil {
		return xhttp.NotFoundResponse(c, err.Error())
	}
	h.logger.Info("initial balance completed", xlogger.String("session", string(key)))
	return xhttp.NoContentResponse(c)
}

// ResetSession clears a session's accumulated state.
func (h *ViewsHandler) ResetSession(c echo.Context) error {
	key := models.SessionKey(c.Param("key"))
	if err := h.ingest.Reset(key); err != nil {
		return xhttp.NotFoundResponse(c, err.Error())
	}
	h.logger.Info("session reset", xlogger.String("session", string(key)))
	return xhttp.NoContentResponse(c)
}

// parseInstant accepts RFC3339 or unix seconds; empty means now.
func parseInstant(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Now().In(loc), nil
	}
	if t, ok := xhttp.ParseTime(s); ok {
		return t.In(loc), nil
	}
	return time.Time{}, echo.NewHTTPError(400, "at must be RFC3339 or unix seconds")
}
