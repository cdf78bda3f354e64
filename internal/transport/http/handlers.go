package http

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"fleet-sentinel/internal/access"
	"fleet-sentinel/internal/attendance"
	"fleet-sentinel/internal/domain"
	"fleet-sentinel/internal/metrics"
	"fleet-sentinel/internal/pipeline"
	"fleet-sentinel/internal/store"
	"fleet-sentinel/internal/trend"
)

// identityHeader carries the requester's PE email for access-scoped reads.
const identityHeader = "X-Requester-Email"

type Server struct {
	dispatcher *pipeline.Dispatcher
	scanRunner *pipeline.ScanRunner
	filter     *access.Filter
	classifier *attendance.Classifier
	aggregator *trend.Aggregator
	db         *store.PostgresStore
	redis      *store.RedisStore
	fleetID    string
	logger     *zap.Logger
}

func NewServer(
	dispatcher *pipeline.Dispatcher,
	scanRunner *pipeline.ScanRunner,
	filter *access.Filter,
	classifier *attendance.Classifier,
	aggregator *trend.Aggregator,
	db *store.PostgresStore,
	redis *store.RedisStore,
	fleetID string,
	logger *zap.Logger,
) *Server {
	return &Server{
		dispatcher: dispatcher,
		scanRunner: scanRunner,
		filter:     filter,
		classifier: classifier,
		aggregator: aggregator,
		db:         db,
		redis:      redis,
		fleetID:    fleetID,
		logger:     logger,
	}
}

func (s *Server) Router(authMW *AuthMiddleware) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", metrics.HandleMetrics)
	r.Get("/ws/alerts", s.handleAlertStream)

	r.Route("/api/v1", func(r chi.Router) {
		r.With(authMW.Wrap).Post("/telemetry", s.handleTelemetry)
		r.Get("/assets", s.handleAssets)
		r.Post("/scan", s.handleScan)
		r.Post("/attendance/days", s.handleAttendanceDays)
		r.Post("/trends", s.handleTrends)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	if err := s.db.Ping(r.Context()); err != nil {
		status["status"] = "degraded"
		status["db"] = err.Error()
	}
	if err := s.redis.Ping(r.Context()); err != nil {
		status["status"] = "degraded"
		status["redis"] = err.Error()
	}
	writeJSON(w, http.StatusOK, status)
}

type telemetryRequest struct {
	Timestamp  int64   `json:"timestamp"`
	AssetID    string  `json:"asset_id"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	SpeedMph   float64 `json:"speed_mph"`
	OdometerMi float64 `json:"odometer_mi"`
	IsMoving   bool    `json:"is_moving"`
	IgnitionOn bool    `json:"ignition_on"`
}

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	var req telemetryRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.AssetID == "" {
		writeError(w, http.StatusBadRequest, "asset_id is required")
		return
	}

	msg := &domain.TelemetryMessage{
		ReceivedAt: time.Now(),
		Timestamp:  time.Unix(req.Timestamp, 0),
		AssetID:    req.AssetID,
		FleetID:    s.fleetID,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		SpeedMph:   req.SpeedMph,
		OdometerMi: req.OdometerMi,
		IsMoving:   req.IsMoving,
		IgnitionOn: req.IgnitionOn,
		RawPayload: body,
	}
	if req.Timestamp == 0 {
		msg.Timestamp = msg.ReceivedAt
	}

	metrics.MessagesReceived.Add(1)
	s.dispatcher.Dispatch(msg)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	identity := r.Header.Get(identityHeader)
	if identity == "" {
		writeError(w, http.StatusBadRequest, "missing "+identityHeader+" header")
		return
	}

	assets, err := s.redis.FleetAssets(r.Context(), s.fleetID)
	if err != nil {
		s.logger.Error("fleet snapshot load failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "snapshot unavailable")
		return
	}

	visible := s.filter.VisibleAssets(assets, identity)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(visible),
		"assets": assetViews(visible),
	})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	report, err := s.scanRunner.RunOnce(r.Context())
	if err != nil {
		s.logger.Error("scan failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "scan failed")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type attendanceEventRequest struct {
	Timestamp int64   `json:"timestamp"`
	Type      string  `json:"event_type"`
	Location  string  `json:"location"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type daySheetRequest struct {
	AssetID     string                   `json:"asset_id"`
	AssetLabel  string                   `json:"asset_label"`
	Date        string                   `json:"date"` // "2006-01-02"
	DriverID    string                   `json:"driver_id"`
	DriverName  string                   `json:"driver_name"`
	Department  string                   `json:"department"`
	JobSiteID   string                   `json:"job_site_id"`
	JobSiteZone string                   `json:"job_site_zone"`
	Events      []attendanceEventRequest `json:"events"`
}

func (s *Server) handleAttendanceDays(w http.ResponseWriter, r *http.Request) {
	var days []daySheetRequest
	if err := json.NewDecoder(r.Body).Decode(&days); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	processed, skipped, flagged := 0, 0, 0
	for _, d := range days {
		date, err := time.ParseInLocation("2006-01-02", d.Date, time.Local)
		if err != nil {
			skipped++
			continue
		}

		sheet := attendance.DaySheet{
			AssetID:    d.AssetID,
			AssetLabel: d.AssetLabel,
			Date:       date,
		}
		if d.DriverName != "" {
			sheet.Driver = &domain.Driver{
				ID:         d.DriverID,
				Name:       d.DriverName,
				Department: d.Department,
				JobSiteID:  d.JobSiteID,
			}
		}
		if d.JobSiteID != "" {
			sheet.JobSite = &domain.JobSite{ID: d.JobSiteID, Zone: d.JobSiteZone}
		}
		for _, e := range d.Events {
			sheet.Events = append(sheet.Events, domain.AttendanceEvent{
				Timestamp: time.Unix(e.Timestamp, 0),
				Type:      domain.EventType(e.Type),
				Location:  e.Location,
				Latitude:  e.Latitude,
				Longitude: e.Longitude,
			})
		}

		result, ok := s.classifier.Record(r.Context(), s.db, sheet)
		if !ok {
			skipped++
			metrics.AttendanceDaysSkipped.Add(1)
			continue
		}
		processed++
		flagged += len(result.Records)
		metrics.AttendanceRecords.Add(int64(len(result.Records)))

		// A key-on counts as the day's worker check-in for the
		// orphaned-equipment detector.
		if len(sheet.Events) > 0 {
			if err := s.db.RecordCheckin(r.Context(), d.AssetID, result.DriverID, date); err != nil {
				s.logger.Warn("check-in record failed",
					zap.String("asset_id", d.AssetID), zap.Error(err))
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]int{
		"processed": processed,
		"skipped":   skipped,
		"records":   flagged,
	})
}

type trendsRequest struct {
	Date string `json:"date"` // "2006-01-02"
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	var req trendsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	date, err := time.ParseInLocation("2006-01-02", req.Date, time.Local)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	if err := s.aggregator.UpdateTrends(r.Context(), date); err != nil {
		s.logger.Error("trend update failed", zap.String("date", req.Date), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "trend update failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "date": req.Date})
}

type assetView struct {
	ID         string    `json:"id"`
	Label      string    `json:"label,omitempty"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	IgnitionOn bool      `json:"ignition_on"`
	IsMoving   bool      `json:"is_moving"`
	LastUpdate time.Time `json:"last_update"`
}

func assetViews(assets []domain.Asset) []assetView {
	views := make([]assetView, len(assets))
	for i, a := range assets {
		views[i] = assetView{
			ID:         a.ID,
			Label:      a.Label,
			Latitude:   a.Latitude,
			Longitude:  a.Longitude,
			IgnitionOn: a.IgnitionOn,
			IsMoving:   a.IsMoving,
			LastUpdate: a.LastUpdate,
		}
	}
	return views
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
