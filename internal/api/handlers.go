package api

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"InvestDash/internal/dashboard"
	"InvestDash/internal/errs"
	"InvestDash/internal/model"
	"InvestDash/internal/recorder"
	"InvestDash/internal/store"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Handler serves the query and command API.
type Handler struct {
	store   *store.Store
	service *dashboard.Service
	history recorder.Recorder
	hub     *Hub
	log     zerolog.Logger
}

// NewHandler creates the API handler. history and hub may be nil.
func NewHandler(st *store.Store, svc *dashboard.Service, history recorder.Recorder, hub *Hub, log zerolog.Logger) *Handler {
	if history == nil {
		history = recorder.NewNoopRecorder()
	}
	return &Handler{
		store:   st,
		service: svc,
		history: history,
		hub:     hub,
		log:     log.With().Str("component", "api").Logger(),
	}
}

// RegisterRoutes mounts every route on e.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.health)

	e.GET("/buckets", h.listBuckets)
	e.POST("/buckets", h.createBucket)
	e.PATCH("/buckets/rename", h.renameBucket)
	e.DELETE("/buckets/:name", h.deleteBucket)

	e.GET("/tickers", h.listTickers)
	e.POST("/tickers", h.addTicker)
	e.POST("/tickers/move", h.moveTicker)
	e.DELETE("/tickers/:symbol", h.removeTicker)

	e.GET("/signals", h.signals)
	e.GET("/breadth", h.breadth)
	e.GET("/breadth/history", h.breadthHistory)
	e.GET("/analyst/:symbol", h.analyst)

	e.POST("/save", h.save)

	if h.hub != nil {
		e.GET("/ws", h.hub.ServeWS)
	}
}

type okResponse struct {
	OK bool `json:"ok"`
}

var okBody = okResponse{OK: true}

type createBucketRequest struct {
	Name string `json:"name" validate:"required,max=64"`
}

type renameBucketRequest struct {
	Old string `json:"old" validate:"required"`
	New string `json:"new" validate:"required,max=64"`
}

type addTickerRequest struct {
	Symbol string `json:"symbol" validate:"required,max=32"`
	Bucket string `json:"bucket" validate:"max=64"`
	Type   string `json:"type" validate:"omitempty,oneof=equity etf"`
}

type moveTickerRequest struct {
	Symbol string `json:"symbol" validate:"required"`
	// Empty moves the ticker out of every bucket.
	Bucket string `json:"bucket" validate:"max=64"`
}

type historyQuery struct {
	Limit int `query:"limit" default:"50" validate:"min=1,max=500"`
}

func (h *Handler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":   "ok",
		"revision": h.store.Revision(),
	})
}

func (h *Handler) listBuckets(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"buckets": h.store.ListBuckets()})
}

func (h *Handler) createBucket(c echo.Context) error {
	var req createBucketRequest
	if err := bindAndValidate(c, &req); err != nil {
		return errorResponse(c, err)
	}
	if err := h.store.CreateBucket(req.Name); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, okBody)
}

func (h *Handler) renameBucket(c echo.Context) error {
	var req renameBucketRequest
	if err := bindAndValidate(c, &req); err != nil {
		return errorResponse(c, err)
	}
	if err := h.store.RenameBucket(req.Old, req.New); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, okBody)
}

func (h *Handler) deleteBucket(c echo.Context) error {
	if err := h.store.DeleteBucket(pathParam(c, "name")); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, okBody)
}

func (h *Handler) listTickers(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"tickers": h.store.ListTickers()})
}

func (h *Handler) addTicker(c echo.Context) error {
	var req addTickerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return errorResponse(c, err)
	}
	sym, err := h.store.AddTicker(req.Symbol, req.Bucket, req.Type)
	if err != nil {
		return errorResponse(c, err)
	}
	h.log.Info().Str("symbol", sym).Str("bucket", req.Bucket).Msg("ticker added")
	return c.JSON(http.StatusCreated, map[string]any{"ok": true, "symbol": sym})
}

func (h *Handler) moveTicker(c echo.Context) error {
	var req moveTickerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return errorResponse(c, err)
	}
	var err error
	if req.Bucket == "" {
		err = h.store.UnassignTicker(req.Symbol)
	} else {
		err = h.store.MoveTicker(req.Symbol, req.Bucket)
	}
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, okBody)
}

func (h *Handler) removeTicker(c echo.Context) error {
	if err := h.store.RemoveTicker(pathParam(c, "symbol")); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, okBody)
}

func (h *Handler) signals(c echo.Context) error {
	includeAnalyst := true
	if v := c.QueryParam("include_analyst"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errorResponse(c, errs.Invalid("signals", "include_analyst must be a boolean"))
		}
		includeAnalyst = b
	}
	snap := h.service.Signals(c.Request().Context(), includeAnalyst)
	return c.JSON(http.StatusOK, struct {
		Signals []model.SignalRow  `json:"signals"`
		Breadth model.BreadthState `json:"breadth"`
		AsOf    time.Time          `json:"as_of"`
	}{snap.Signals, snap.Breadth, snap.AsOf})
}

func (h *Handler) breadth(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service.Breadth(c.Request().Context()))
}

func (h *Handler) breadthHistory(c echo.Context) error {
	var q historyQuery
	if err := bindAndValidate(c, &q); err != nil {
		return errorResponse(c, err)
	}
	points, err := h.history.RecentBreadth(c.Request().Context(), q.Limit)
	if err != nil {
		h.log.Error().Err(err).Msg("read breadth history")
		return errorResponse(c, errs.Wrap(errs.KindInternal, "breadth history", err))
	}
	return c.JSON(http.StatusOK, map[string]any{"history": points})
}

func (h *Handler) analyst(c echo.Context) error {
	sym := pathParam(c, "symbol")
	snap, err := h.service.Analyst(c.Request().Context(), sym)
	if err != nil {
		if errs.KindOf(err) == errs.KindUpstreamUnavailable {
			h.log.Debug().Err(err).Str("symbol", sym).Msg("analyst data unavailable")
			return c.JSON(http.StatusOK, map[string]any{"symbol": sym, "note": "Analyst data unavailable"})
		}
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

func (h *Handler) save(c echo.Context) error {
	if err := h.store.Persist(); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, okBody)
}

// pathParam returns an unescaped path parameter.
func pathParam(c echo.Context, name string) string {
	raw := c.Param(name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
