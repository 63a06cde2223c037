package location

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"marketguard/internal/geo"
	"marketguard/internal/logger"
	"marketguard/pkg/errors"
)

type Handler struct {
	service Service
	logger  logger.Logger
}

func NewHandler(service Service, log logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

func (h *Handler) handleError(c *gin.Context, err error) {
	status := errors.ToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)
	}
	c.JSON(status, errors.ToErrorResponse(err))
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	v1 := r.Group("/api/v1")
	{
		v1.GET("/jobs/:id/location", h.GetJobLocation)
		v1.POST("/jobs/:id/geocode", h.GeocodeJob)
		v1.GET("/pros/nearby", h.NearbyPros)
		v1.PUT("/pros/:id/location", h.UpdateProLocation)
	}
}

// GetJobLocation godoc
// @Summary      Get job location
// @Description  Exact coordinates once an appointment is confirmed, an obfuscated point otherwise
// @Tags         locations
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  JobLocation
// @Failure      400  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}
// @Router       /api/v1/jobs/{id}/location [get]
func (h *Handler) GetJobLocation(c *gin.Context) {
	loc, err := h.service.JobLocation(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, loc)
}

// GeocodeJob godoc
// @Summary      Geocode a job address
// @Description  Resolves the address inline when possible and queues it for the geocoding service otherwise
// @Tags         locations
// @Accept       json
// @Produce      json
// @Param        id       path      string             true  "Job ID"
// @Param        request  body      GeocodeJobRequest  true  "Address"
// @Success      200      {object}  GeocodeResult
// @Success      202      {object}  GeocodeResult
// @Failure      400      {object}  map[string]interface{}
// @Failure      404      {object}  map[string]interface{}
// @Router       /api/v1/jobs/{id}/geocode [post]
func (h *Handler) GeocodeJob(c *gin.Context) {
	var req GeocodeJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	result, err := h.service.GeocodeJob(c.Request.Context(), c.Param("id"), req.Address)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(geocodeStatus(result), result)
}

// NearbyPros godoc
// @Summary      Find nearby pros
// @Description  Pros within radius_km of the given point, closest first
// @Tags         locations
// @Produce      json
// @Param        lat        query     number  true   "Latitude"
// @Param        lon        query     number  true   "Longitude"
// @Param        radius_km  query     number  false  "Search radius in kilometers"
// @Param        limit      query     int     false  "Maximum number of pros"
// @Success      200        {array}   NearbyPro
// @Failure      400        {object}  map[string]interface{}
// @Router       /api/v1/pros/nearby [get]
func (h *Handler) NearbyPros(c *gin.Context) {
	lat, err := parseFinite(c.Query("lat"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithDetail("message", "lat must be a finite number")))
		return
	}
	lon, err := parseFinite(c.Query("lon"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithDetail("message", "lon must be a finite number")))
		return
	}

	query := NearbyQuery{Center: geo.GeoPoint{Latitude: lat, Longitude: lon}}
	if raw := c.Query("radius_km"); raw != "" {
		query.RadiusKm, err = parseFinite(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithDetail("message", "radius_km must be a finite number")))
			return
		}
	}
	query.Limit, _ = strconv.Atoi(c.Query("limit"))

	pros, err := h.service.NearbyPros(c.Request.Context(), query)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, pros)
}

// UpdateProLocation godoc
// @Summary      Set a pro's base location
// @Description  Stores coordinates directly or geocodes the given address
// @Tags         locations
// @Accept       json
// @Produce      json
// @Param        id       path      string                    true  "Pro ID"
// @Param        request  body      UpdateProLocationRequest  true  "Coordinates or address"
// @Success      200      {object}  GeocodeResult
// @Success      202      {object}  GeocodeResult
// @Failure      400      {object}  map[string]interface{}
// @Router       /api/v1/pros/{id}/location [put]
func (h *Handler) UpdateProLocation(c *gin.Context) {
	var req UpdateProLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	result, err := h.service.UpdateProLocation(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(geocodeStatus(result), result)
}

// parseFinite is strconv.ParseFloat without the NaN and Inf spellings.
func parseFinite(raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a finite number", raw)
	}
	return v, nil
}

func geocodeStatus(result *GeocodeResult) int {
	if result.Status == GeocodeResolved {
		return http.StatusOK
	}
	return http.StatusAccepted
}
