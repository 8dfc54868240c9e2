package analysis

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Additional-Code/salesboard/internal/chart"
	"github.com/Additional-Code/salesboard/internal/dataset"
	"github.com/Additional-Code/salesboard/internal/presentation/http/response"
	service "github.com/Additional-Code/salesboard/internal/service/analysis"
	"github.com/Additional-Code/salesboard/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/salesboard/transport/http/analysis")

// Handler exposes the dashboard reports over HTTP.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// NewHandler constructs an analysis Handler.
func NewHandler(svc *service.Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/api/v1")
	g.GET("/filters", h.filters)
	g.GET("/overview", h.overview)
	g.GET("/catalog", h.catalog)
	g.GET("/exploratory", h.exploratory)
	g.GET("/intervals/mean", h.meanInterval)
	g.GET("/intervals/proportion", h.proportionInterval)
	g.GET("/intervals/categories", h.categoryComparison)
	g.GET("/tests/t-test", h.tTest)
	g.GET("/tests/chi-square", h.chiSquare)
	g.GET("/charts", h.charts)
	g.GET("/charts/:name", h.chart)
}

func reply(c echo.Context, base service.Base, data any, err error) error {
	b := response.New(c)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithDataset(base.DatasetVersion, base.Warnings).WithData(data).Build()
}

func (h *Handler) filters(c echo.Context) error {
	out, err := h.svc.Filters(c.Request().Context())
	return reply(c, out.Base, out, err)
}

func (h *Handler) overview(c echo.Context) error {
	f, err := parseFilter(c)
	if err != nil {
		return response.New(c).WithError(err).Build()
	}
	out, err := h.svc.Overview(c.Request().Context(), f)
	return reply(c, out.Base, out, err)
}

func (h *Handler) catalog(c echo.Context) error {
	f, err := parseFilter(c)
	if err != nil {
		return response.New(c).WithError(err).Build()
	}
	out, err := h.svc.Catalog(c.Request().Context(), f)
	return reply(c, out.Base, out, err)
}

func (h *Handler) exploratory(c echo.Context) error {
	f, err := parseFilter(c)
	if err != nil {
		return response.New(c).WithError(err).Build()
	}
	out, err := h.svc.Exploratory(c.Request().Context(), f)
	return reply(c, out.Base, out, err)
}

func (h *Handler) meanInterval(c echo.Context) error {
	f, level, err := filterAndLevel(c)
	if err != nil {
		return response.New(c).WithError(err).Build()
	}
	out, err := h.svc.MeanInterval(c.Request().Context(), f, level)
	return reply(c, out.Base, out, err)
}

func (h *Handler) proportionInterval(c echo.Context) error {
	f, level, err := filterAndLevel(c)
	if err != nil {
		return response.New(c).WithError(err).Build()
	}
	out, err := h.svc.ProportionInterval(c.Request().Context(), f, level)
	return reply(c, out.Base, out, err)
}

func (h *Handler) categoryComparison(c echo.Context) error {
	f, level, err := filterAndLevel(c)
	if err != nil {
		return response.New(c).WithError(err).Build()
	}
	out, err := h.svc.CategoryComparison(c.Request().Context(), f, c.QueryParam("category_a"), c.QueryParam("category_b"), level)
	return reply(c, out.Base, out, err)
}

func (h *Handler) tTest(c echo.Context) error {
	f, err := parseFilter(c)
	if err != nil {
		return response.New(c).WithError(err).Build()
	}
	out, err := h.svc.TTest(c.Request().Context(), f, c.QueryParam("category_a"), c.QueryParam("category_b"))
	return reply(c, out.Base, out, err)
}

func (h *Handler) chiSquare(c echo.Context) error {
	f, err := parseFilter(c)
	if err != nil {
		return response.New(c).WithError(err).Build()
	}
	out, err := h.svc.ChiSquare(c.Request().Context(), f)
	return reply(c, out.Base, out, err)
}

func (h *Handler) charts(c echo.Context) error {
	return response.New(c).WithData(chart.Names).Build()
}

func (h *Handler) chart(c echo.Context) error {
	b := response.New(c)
	name := c.Param("name")
	if !chart.Known(name) {
		return b.WithError(errorbank.NotFound("unknown chart", errorbank.WithDetail("chart", name))).Build()
	}
	format, err := chart.ParseFormat(c.QueryParam("format"))
	if err != nil {
		return b.WithError(errorbank.BadRequest(err.Error(), errorbank.WithDetail("format", c.QueryParam("format")))).Build()
	}
	f, level, err := filterAndLevel(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "charts.render", trace.WithAttributes(
		attribute.String("chart.name", name),
		attribute.String("chart.format", string(format)),
	))
	defer span.End()

	var buf bytes.Buffer
	q := chart.Query{
		Filter:    f,
		Level:     level,
		CategoryA: c.QueryParam("category_a"),
		CategoryB: c.QueryParam("category_b"),
	}
	base, err := chart.Render(ctx, h.svc, name, format, q, &buf)
	if errors.Is(err, chart.ErrNoData) {
		err = errorbank.Unprocessable(
			"the filtered data cannot support this chart",
			errorbank.WithCause(err),
			errorbank.WithDetail("chart", name),
			errorbank.WithDetail("warnings", base.Warnings),
		)
	}
	if err != nil {
		span.RecordError(err)
		var appErr *errorbank.AppError
		if !errors.As(err, &appErr) {
			h.logger.Error("chart render failed", zap.String("chart", name), zap.Error(err))
		}
		return b.WithDataset(base.DatasetVersion, nil).WithError(err).Build()
	}

	c.Response().Header().Set("X-Dataset-Version", base.DatasetVersion)
	return c.Blob(http.StatusOK, format.ContentType(), buf.Bytes())
}

func filterAndLevel(c echo.Context) (dataset.Filter, float64, error) {
	f, err := parseFilter(c)
	if err != nil {
		return f, 0, err
	}
	level, err := parseLevel(c)
	return f, level, err
}
