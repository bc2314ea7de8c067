package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/ifta-backend-go/internal/analysis"
	"github.com/jengzang/ifta-backend-go/internal/config"
	"github.com/jengzang/ifta-backend-go/internal/database"
	"github.com/jengzang/ifta-backend-go/internal/geocode"
	"github.com/jengzang/ifta-backend-go/internal/jurisdiction"
	"github.com/jengzang/ifta-backend-go/internal/repository"
	"github.com/jengzang/ifta-backend-go/internal/service"
	"github.com/jengzang/ifta-backend-go/internal/spatial"
	"github.com/jengzang/ifta-backend-go/pkg/session"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type testServer struct {
	router *gin.Engine
	tasks  *service.AnalysisTaskService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Setup(database.Config{Path: ":memory:"}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	resolver := geocode.ResolverFunc(func(_ context.Context, p spatial.GeoPoint) (jurisdiction.Code, error) {
		if p.Longitude < -119.995 {
			return "CA", nil
		}
		return "NV", nil
	})

	trips := repository.NewTripRepository(db)
	fixes := repository.NewFixRepository(db)
	rates := service.NewTaxRateService(repository.NewTaxRateRepository(db))
	fuel := repository.NewFuelRepository(db)

	svc := Services{
		Trips: service.NewTripService(trips, fixes),
		Tracking: service.NewTrackingService(trips, fixes, resolver,
			session.NewIssuer("test-secret", time.Hour), service.TrackingOptions{}, zerolog.Nop()),
		Fuel:     service.NewFuelService(fuel, resolver),
		TaxRates: rates,
		Reports:  service.NewReportService(trips, fuel, rates),
		Tasks: service.NewAnalysisTaskService(repository.NewAnalysisTaskRepository(db),
			analysis.Deps{DB: db, Resolver: resolver, Logger: zerolog.Nop()}),
	}
	t.Cleanup(svc.Tasks.Wait)

	cfg := config.DefaultConfig()
	cfg.Server.RateLimit = 0

	return &testServer{router: SetupRouter(cfg, svc, zerolog.Nop()), tasks: svc.Tasks}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, token string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w, _ := s.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	w, _ := s.do(t, http.MethodOptions, "/api/v1/trips", nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestTrackingFlow(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodPost, "/api/v1/trips/start", gin.H{"latitude": 39.0, "longitude": -120.2}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var started struct {
		Trip struct {
			ID                string `json:"id"`
			StartJurisdiction string `json:"start_jurisdiction"`
		} `json:"trip"`
		SessionToken string `json:"session_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &started))
	tripID, token := started.Trip.ID, started.SessionToken
	require.NotEmpty(t, tripID)
	require.NotEmpty(t, token)
	assert.Equal(t, "CA", started.Trip.StartJurisdiction)

	w, _ = s.do(t, http.MethodPost, "/api/v1/trips/start", gin.H{"latitude": 39.0, "longitude": -120.2}, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	fix := gin.H{"latitude": 39.0, "longitude": -120.2, "timestamp_ms": 1_746_000_000_000}

	w, _ = s.do(t, http.MethodPost, "/api/v1/trips/"+tripID+"/fixes", fix, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/v1/trips/"+tripID+"/fixes", fix, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/v1/trips/another-trip/fixes", fix, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "token is bound to its trip")

	for i := 0; i < 41; i++ {
		fix := gin.H{
			"latitude":     39.0,
			"longitude":    -120.2 + float64(i)*0.01,
			"timestamp_ms": 1_746_000_000_000 + int64(i)*60_000,
		}
		w, env = s.do(t, http.MethodPost, "/api/v1/trips/"+tripID+"/fixes", fix, token)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Contains(t, string(env.Data), `"decision":"accepted"`)
	}

	w, _ = s.do(t, http.MethodPost, "/api/v1/trips/"+tripID+"/fixes", gin.H{"latitude": 91.0, "longitude": 0.0}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/v1/trips/active", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), tripID)

	w, _ = s.do(t, http.MethodDelete, "/api/v1/trips/"+tripID, nil, "")
	assert.Equal(t, http.StatusConflict, w.Code, "active trips cannot be deleted")

	w, env = s.do(t, http.MethodPost, "/api/v1/trips/"+tripID+"/stop", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var stopped struct {
		TotalMiles          float64            `json:"total_miles"`
		MilesByJurisdiction map[string]float64 `json:"miles_by_jurisdiction"`
		IsActive            bool               `json:"is_active"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &stopped))
	assert.False(t, stopped.IsActive)
	assert.InDelta(t, 21.5, stopped.TotalMiles, 0.2)
	assert.Contains(t, stopped.MilesByJurisdiction, "CA")
	assert.Contains(t, stopped.MilesByJurisdiction, "NV")

	w, _ = s.do(t, http.MethodPost, "/api/v1/trips/"+tripID+"/stop", nil, token)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/v1/trips/"+tripID+"/fixes", fix, token)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/trips/active", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/v1/trips/"+tripID+"/route", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"point_count":41`)

	w, env = s.do(t, http.MethodGet, "/api/v1/trips/"+tripID+"/route?smooth=5", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"point_count":41`)

	w, _ = s.do(t, http.MethodGet, "/api/v1/trips/"+tripID+"/route?smooth=-2", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = s.do(t, http.MethodGet, "/api/v1/trips/"+tripID+"/route?smooth=lots", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/trips/"+tripID+"/route.kml", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.google-earth.kml+xml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "<LineString>")

	w, env = s.do(t, http.MethodGet, "/api/v1/trips?active=false", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"total":1`)

	w, _ = s.do(t, http.MethodDelete, "/api/v1/trips/"+tripID, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/trips/"+tripID, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFuelPurchases(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodPost, "/api/v1/fuel-purchases", gin.H{
		"purchased_at":     time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC).UnixMilli(),
		"jurisdiction":     "California",
		"gallons":          50,
		"price_per_gallon": 5,
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		ID           string  `json:"id"`
		Jurisdiction string  `json:"jurisdiction"`
		TotalCost    float64 `json:"total_cost"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "CA", created.Jurisdiction)
	assert.Equal(t, 250.0, created.TotalCost)

	w, env = s.do(t, http.MethodPost, "/api/v1/fuel-purchases", gin.H{"jurisdiction": "CA", "gallons": -1, "price_per_gallon": 5}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Message, "gallons")

	w, _ = s.do(t, http.MethodGet, "/api/v1/fuel-purchases/"+created.ID, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/v1/fuel-purchases?year=2025&quarter=2", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"total":1`)

	w, _ = s.do(t, http.MethodGet, "/api/v1/fuel-purchases?year=2025&quarter=9", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodDelete, "/api/v1/fuel-purchases/"+created.ID, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/fuel-purchases/"+created.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTaxRates(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodGet, "/api/v1/tax-rates?year=2025&quarter=2", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"jurisdiction":"CA","name":"California","rate":0.4`)

	w, _ = s.do(t, http.MethodPut, "/api/v1/tax-rates/CA", gin.H{"rate": 0.5, "effective_date": "2025-07-01"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = s.do(t, http.MethodGet, "/api/v1/tax-rates?q=2025-Q3", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"jurisdiction":"CA","name":"California","rate":0.5`)

	w, _ = s.do(t, http.MethodPut, "/api/v1/tax-rates/XX", gin.H{"rate": 0.5}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/tax-rates?year=abc&quarter=1", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQuarterlyReport(t *testing.T) {
	s := newTestServer(t)

	_, _ = s.do(t, http.MethodPost, "/api/v1/fuel-purchases", gin.H{
		"purchased_at":     time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC).UnixMilli(),
		"jurisdiction":     "NV",
		"gallons":          10,
		"price_per_gallon": 4,
	}, "")

	w, env := s.do(t, http.MethodGet, "/api/v1/reports/quarterly?year=2025&quarter=2&units=metric", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(env.Data), `"units":"metric"`)
	assert.Contains(t, string(env.Data), `"purchase_count":1`)

	w, _ = s.do(t, http.MethodGet, "/api/v1/reports/quarterly?year=2025&quarter=2&units=cubits", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/reports/quarterly.csv?year=2025&quarter=2", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="ifta_Q2_2025.csv"`, w.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "Quarter,Year,Jurisdiction"))
	assert.Contains(t, w.Body.String(), "2,2025,NV,")
}

func TestJurisdictions(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodGet, "/api/v1/jurisdictions", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var list []struct {
		Code string `json:"code"`
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, len(jurisdiction.All()))
	assert.Contains(t, string(env.Data), `"code":"ON","name":"Ontario"`)
}

func TestAnalysisTasks(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodPost, "/api/v1/analysis/tasks", gin.H{"skill_name": "no_such_skill"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/analysis/tasks/abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/analysis/tasks/999", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(t, http.MethodDelete, "/api/v1/analysis/tasks/999", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env := s.do(t, http.MethodGet, "/api/v1/analysis/tasks", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"tasks":[]`)
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := config.DefaultConfig()
	cfg.Server.RateLimit = 2
	cfg.Server.RateWindow = time.Hour

	r := SetupRouter(cfg, Services{}, zerolog.Nop())
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
