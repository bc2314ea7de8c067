package service

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"time"

	"github.com/twpayne/go-kml"
	"github.com/twpayne/go-polyline"

	"github.com/jengzang/ifta-backend-go/internal/analysis/mileage"
	"github.com/jengzang/ifta-backend-go/internal/models"
	"github.com/jengzang/ifta-backend-go/internal/repository"
	"github.com/jengzang/ifta-backend-go/internal/spatial"
)

// TripRoute is the recorded path of a trip
type TripRoute struct {
	TripID            string             `json:"trip_id"`
	Polyline          string             `json:"polyline"` // Google encoded polyline, precision 5
	PointCount        int                `json:"point_count"`
	Bounds            *spatial.Bounds    `json:"bounds,omitempty"`
	Stops             []spatial.Stop     `json:"stops"`
	Crossings         []mileage.Crossing `json:"crossings"`
	TotalMiles        float64            `json:"total_miles"`
	UnattributedMiles float64            `json:"unattributed_miles"`
}

// MaxSmoothWindow bounds RouteOptions.SmoothWindow
const MaxSmoothWindow = 25

// RouteOptions controls how a route is drawn
type RouteOptions struct {
	// SmoothWindow applies a moving average over this many fixes to the
	// polyline only. 0 draws the recorded fixes.
	SmoothWindow int `form:"smooth"`
}

// TripService handles business logic for trips
type TripService struct {
	repo  *repository.TripRepository
	fixes *repository.FixRepository
}

// NewTripService creates a new trip service
func NewTripService(repo *repository.TripRepository, fixes *repository.FixRepository) *TripService {
	return &TripService{repo: repo, fixes: fixes}
}

// GetTrips retrieves trips with filtering and pagination
func (s *TripService) GetTrips(ctx context.Context, filter models.TripFilter) ([]models.Trip, int64, error) {
	return s.repo.List(ctx, filter)
}

// GetTripByID retrieves a single trip by ID
func (s *TripService) GetTripByID(ctx context.Context, id string) (*models.Trip, error) {
	trip, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if trip == nil {
		return nil, ErrTripNotFound
	}
	return trip, nil
}

// GetFixes retrieves the accepted fixes of a trip
func (s *TripService) GetFixes(ctx context.Context, id string) ([]models.TrackFix, error) {
	if _, err := s.GetTripByID(ctx, id); err != nil {
		return nil, err
	}
	return s.fixes.ListByTrip(ctx, id)
}

// Route builds the encoded path, stops and boundary crossings of a trip
func (s *TripService) Route(ctx context.Context, id string, opts RouteOptions) (*TripRoute, error) {
	if opts.SmoothWindow < 0 || opts.SmoothWindow > MaxSmoothWindow {
		return nil, fmt.Errorf("%w: smooth must be between 0 and %d", ErrInvalidRoute, MaxSmoothWindow)
	}
	rows, err := s.GetFixes(ctx, id)
	if err != nil {
		return nil, err
	}

	tracked := models.TrackedFixes(rows)
	points := make([]spatial.GeoPoint, len(rows))
	timed := make([]spatial.TimedPoint, len(rows))
	for i, f := range tracked {
		points[i] = f.Point
		timed[i] = spatial.TimedPoint{GeoPoint: f.Point, TimestampMs: f.TimestampMs}
	}

	drawn := points
	if opts.SmoothWindow > 1 {
		drawn = spatial.Smooth(points, opts.SmoothWindow)
	}
	coords := make([][]float64, len(drawn))
	for i, p := range drawn {
		coords[i] = []float64{p.Latitude, p.Longitude}
	}

	summary := mileage.Summarize(tracked)
	route := &TripRoute{
		TripID:            id,
		Polyline:          string(polyline.EncodeCoords(coords)),
		PointCount:        len(rows),
		Stops:             spatial.DetectStops(timed, spatial.DefaultStopMinDuration, spatial.DefaultStopRadiusM),
		Crossings:         summary.Crossings,
		TotalMiles:        summary.TotalMiles,
		UnattributedMiles: summary.UnattributedMiles,
	}
	if route.Stops == nil {
		route.Stops = []spatial.Stop{}
	}
	if route.Crossings == nil {
		route.Crossings = []mileage.Crossing{}
	}
	if len(points) > 0 {
		b := spatial.BoundingBox(points)
		route.Bounds = &b
	}
	return route, nil
}

// WriteKML writes the trip path, its boundary crossings and stops as a KML
// document
func (s *TripService) WriteKML(ctx context.Context, id string, w io.Writer) error {
	trip, err := s.GetTripByID(ctx, id)
	if err != nil {
		return err
	}
	rows, err := s.fixes.ListByTrip(ctx, id)
	if err != nil {
		return err
	}

	coords := make([]kml.Coordinate, len(rows))
	for i, f := range rows {
		coords[i] = kml.Coordinate{Lon: f.Longitude, Lat: f.Latitude}
	}

	started := time.UnixMilli(trip.StartedAt).UTC().Format(time.RFC3339)
	children := []kml.Element{
		kml.Name("Trip " + started),
		kml.Description(fmt.Sprintf("%.2f mi, %d fixes", trip.TotalMiles, len(rows))),
		kml.SharedStyle("route",
			kml.LineStyle(
				kml.Color(color.RGBA{R: 0, G: 102, B: 204, A: 255}),
				kml.Width(4),
			),
		),
		kml.Placemark(
			kml.Name("Route"),
			kml.StyleURL("#route"),
			kml.LineString(
				kml.Tessellate(true),
				kml.Coordinates(coords...),
			),
		),
	}

	tracked := models.TrackedFixes(rows)
	for _, c := range mileage.DetectCrossings(tracked) {
		children = append(children, kml.Placemark(
			kml.Name(fmt.Sprintf("%s → %s", c.From, c.To)),
			kml.Point(kml.Coordinates(kml.Coordinate{Lon: c.Location.Longitude, Lat: c.Location.Latitude})),
		))
	}

	timed := make([]spatial.TimedPoint, len(tracked))
	for i, f := range tracked {
		timed[i] = spatial.TimedPoint{GeoPoint: f.Point, TimestampMs: f.TimestampMs}
	}
	for _, stop := range spatial.DetectStops(timed, spatial.DefaultStopMinDuration, spatial.DefaultStopRadiusM) {
		children = append(children, kml.Placemark(
			kml.Name(fmt.Sprintf("Stop (%.0f min)", stop.DurationMinutes)),
			kml.Point(kml.Coordinates(kml.Coordinate{Lon: stop.Location.Longitude, Lat: stop.Location.Latitude})),
		))
	}

	doc := kml.KML(kml.Document(children...))
	if err := doc.WriteIndent(w, "", "  "); err != nil {
		return fmt.Errorf("failed to write kml: %w", err)
	}
	return nil
}

// DeleteTrip removes a closed trip and its fixes
func (s *TripService) DeleteTrip(ctx context.Context, id string) error {
	trip, err := s.GetTripByID(ctx, id)
	if err != nil {
		return err
	}
	if trip.IsActive {
		return ErrTripStillActive
	}
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrTripNotFound
	}
	return nil
}
