// README: Location handlers; the host pushes device fixes and permission changes here.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"courier/internal/modules/location"
	"courier/internal/types"
)

// FixFeeder is the host-facing side of the in-process task runtime.
type FixFeeder interface {
	Feed(fixes ...location.Fix) int
	FeedError(err error)
}

type PermissionSetter interface {
	Set(granted bool)
}

// Waker schedules a coordinator reconcile.
type Waker interface {
	Poke()
}

// NearbyFinder searches recorded last positions.
type NearbyFinder interface {
	NearbyDrivers(ctx context.Context, dspr types.ID, p types.Point, radiusKm float64) ([]types.ID, error)
}

type LocationHandler struct {
	feeder FixFeeder
	perm   PermissionSetter
	wake   Waker
	nearby NearbyFinder
}

// NewLocationHandler builds the handler; nearby may be nil when no
// breadcrumb recorder is configured.
func NewLocationHandler(feeder FixFeeder, perm PermissionSetter, wake Waker, nearby NearbyFinder) *LocationHandler {
	return &LocationHandler{feeder: feeder, perm: perm, wake: wake, nearby: nearby}
}

type fixReq struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
}

type feedReq struct {
	Fixes []fixReq `json:"fixes"`
}

// Feed queues fixes for the running task. accepted is zero when the task is
// not running, which is normal while the driver is off call.
func (h *LocationHandler) Feed(c *gin.Context) {
	var req feedReq
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Fixes) == 0 {
		writeError(c, http.StatusBadRequest, "fixes are required")
		return
	}
	fixes := make([]location.Fix, 0, len(req.Fixes))
	for _, f := range req.Fixes {
		if f.Lat < -90 || f.Lat > 90 || f.Lng < -180 || f.Lng > 180 {
			writeError(c, http.StatusBadRequest, "coordinates out of range")
			return
		}
		fixes = append(fixes, location.Fix{
			Point:     types.Point{Lat: f.Lat, Lng: f.Lng},
			Accuracy:  f.Accuracy,
			Timestamp: f.Timestamp,
		})
	}
	writeJSON(c, http.StatusAccepted, gin.H{"accepted": h.feeder.Feed(fixes...) > 0})
}

type permissionReq struct {
	Granted *bool `json:"granted"`
}

func (h *LocationHandler) SetPermission(c *gin.Context) {
	var req permissionReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Granted == nil {
		writeError(c, http.StatusBadRequest, "granted is required")
		return
	}
	h.perm.Set(*req.Granted)
	h.wake.Poke()
	writeJSON(c, http.StatusOK, gin.H{"granted": *req.Granted})
}

type errorReq struct {
	Message string `json:"message"`
}

// ReportError forwards a host location-service error to the running task.
func (h *LocationHandler) ReportError(c *gin.Context) {
	var req errorReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Message == "" {
		writeError(c, http.StatusBadRequest, "message is required")
		return
	}
	h.feeder.FeedError(errors.New(req.Message))
	c.Status(http.StatusAccepted)
}

const defaultNearbyRadiusKm = 5

// Nearby lists the DSPR's drivers around lat,lng by last recorded position.
func (h *LocationHandler) Nearby(c *gin.Context) {
	dspr, ok := pathID(c, "id")
	if !ok {
		return
	}
	if h.nearby == nil {
		writeError(c, http.StatusNotImplemented, "location recording is not configured")
		return
	}
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		writeError(c, http.StatusBadRequest, "lat and lng are required")
		return
	}
	radius := float64(defaultNearbyRadiusKm)
	if v := c.Query("radius_km"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil || r <= 0 {
			writeError(c, http.StatusBadRequest, "invalid radius_km")
			return
		}
		radius = r
	}
	ids, err := h.nearby.NearbyDrivers(c.Request.Context(), dspr, types.Point{Lat: lat, Lng: lng}, radius)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"drivers": ids})
}
