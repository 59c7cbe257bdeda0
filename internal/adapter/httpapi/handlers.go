package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/emberline/wildfire-map-service/internal/cluster"
	"github.com/emberline/wildfire-map-service/internal/domain"
	"github.com/emberline/wildfire-map-service/internal/store"
)

// defaultNearbyRadiusMiles applies when the nearby query omits a radius.
const defaultNearbyRadiusMiles = 100

// handleListFires returns all fires, or only those inside the optional
// bounds query parameter, a JSON object {north,south,east,west}. A malformed
// bounds value falls back to the full listing.
func (s *Server) handleListFires(c *gin.Context) {
	var (
		fires []domain.Fire
		err   error
	)
	if b, ok := boundsFromJSONQuery(c.Query("bounds")); ok {
		fires, err = s.store.FiresInBounds(c.Request.Context(), b)
	} else {
		fires, err = s.store.ListFires(c.Request.Context())
	}
	if err != nil {
		s.serverError(c, "fetch wildfires", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wildfires": emptyable(fires)})
}

func (s *Server) handleGetFire(c *gin.Context) {
	fire, err := s.store.GetFire(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Wildfire not found"})
		return
	}
	if err != nil {
		s.serverError(c, "fetch wildfire", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wildfire": fire})
}

func (s *Server) handleNearbyFires(c *gin.Context) {
	lat, latErr := strconv.ParseFloat(c.Query("latitude"), 64)
	lng, lngErr := strconv.ParseFloat(c.Query("longitude"), 64)
	if latErr != nil || lngErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Latitude and longitude are required"})
		return
	}
	radius := float64(defaultNearbyRadiusMiles)
	if v := c.Query("radius"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil || r <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid radius"})
			return
		}
		radius = r
	}

	fires, err := s.store.NearbyFires(c.Request.Context(), lat, lng, radius)
	if err != nil {
		s.serverError(c, "fetch nearby wildfires", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wildfires": emptyable(fires)})
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.store.Stats(c.Request.Context())
	if err != nil {
		s.serverError(c, "fetch wildfire stats", err)
		return
	}

	nearby := 0
	lat, latErr := strconv.ParseFloat(c.Query("latitude"), 64)
	lng, lngErr := strconv.ParseFloat(c.Query("longitude"), 64)
	if latErr == nil && lngErr == nil {
		fires, err := s.store.NearbyFires(c.Request.Context(), lat, lng, defaultNearbyRadiusMiles)
		if err != nil {
			s.serverError(c, "fetch nearby wildfires", err)
			return
		}
		nearby = len(fires)
	}
	stats.NearbyFiresCount = &nearby

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func (s *Server) handleActiveAlerts(c *gin.Context) {
	alerts, err := s.store.ActiveAlerts(c.Request.Context())
	if err != nil {
		s.serverError(c, "fetch active alerts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": emptyable(alerts)})
}

func (s *Server) handleAlertsByFire(c *gin.Context) {
	alerts, err := s.store.AlertsByFire(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.serverError(c, "fetch wildfire alerts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": emptyable(alerts)})
}

type subscribeRequest struct {
	WildfireID string `json:"wildfireId"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
}

func (s *Server) handleSubscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	if req.WildfireID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Wildfire ID is required"})
		return
	}
	if req.Email == "" && req.Phone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email or phone number is required"})
		return
	}

	err := s.store.Subscribe(c.Request.Context(), domain.Subscription{
		WildfireID: req.WildfireID,
		Email:      req.Email,
		Phone:      req.Phone,
		CreatedAt:  domain.Clock().Now(),
	})
	if err != nil {
		s.serverError(c, "subscribe to alerts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleUpdatesByFire(c *gin.Context) {
	updates, err := s.store.RecentUpdates(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.serverError(c, "fetch wildfire updates", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updates": emptyable(updates)})
}

// clusterResponse is one node of a viewport cluster query.
type clusterResponse struct {
	ID        string  `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Count     int     `json:"count"`
	FireID    string  `json:"fireId,omitempty"`
}

// handleClusters answers GET /api/clusters?north&south&east&west&zoom with
// the cluster nodes visible in the box.
func (s *Server) handleClusters(c *gin.Context) {
	b, err := boundsFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	zoom, err := strconv.ParseFloat(c.DefaultQuery("zoom", "0"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid zoom parameter"})
		return
	}

	nodes := s.index.Query(cluster.Bounds{
		North: b.North, South: b.South, East: b.East, West: b.West,
	}, zoom)

	out := make([]clusterResponse, len(nodes))
	for i, n := range nodes {
		out[i] = clusterResponse{
			ID:        n.ID,
			Latitude:  n.Lat,
			Longitude: n.Lng,
			Count:     n.Count,
			FireID:    n.FireID(),
		}
	}
	c.JSON(http.StatusOK, gin.H{"clusters": out})
}

func (s *Server) serverError(c *gin.Context, action string, err error) {
	s.logger.Error(action+" failed", "error", err, "path", c.Request.URL.Path)
	c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to " + action})
}

// boundsFromJSONQuery parses the wildfires listing's bounds parameter, a
// JSON object in a query string.
func boundsFromJSONQuery(raw string) (domain.Bounds, bool) {
	if raw == "" {
		return domain.Bounds{}, false
	}
	var b domain.Bounds
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		return domain.Bounds{}, false
	}
	if !b.Valid() {
		return domain.Bounds{}, false
	}
	return b, true
}

// boundsFromQuery parses the four separate coordinate parameters used by the
// clusters endpoint.
func boundsFromQuery(c *gin.Context) (domain.Bounds, error) {
	parse := func(name string) (float64, error) {
		v, err := strconv.ParseFloat(c.Query(name), 64)
		if err != nil {
			return 0, errors.New("invalid " + name + " parameter")
		}
		return v, nil
	}
	var b domain.Bounds
	var err error
	if b.North, err = parse("north"); err != nil {
		return b, err
	}
	if b.South, err = parse("south"); err != nil {
		return b, err
	}
	if b.East, err = parse("east"); err != nil {
		return b, err
	}
	if b.West, err = parse("west"); err != nil {
		return b, err
	}
	return b, nil
}

// emptyable renders a nil slice as [] instead of null.
func emptyable[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
