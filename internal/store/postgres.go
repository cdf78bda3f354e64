package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fleet-sentinel/internal/config"
	"fleet-sentinel/internal/domain"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, cfg *config.Config) (*PostgresStore, error) {
	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?pool_max_conns=%d",
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBName,
		cfg.DBMaxConns,
	)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create db pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

var telemetryColumns = []string{
	"timestamp",
	"asset_id",
	"fleet_id",
	"latitude",
	"longitude",
	"speed_mph",
	"odometer_mi",
	"is_moving",
	"ignition_on",
	"raw_payload",
}

func (s *PostgresStore) BatchInsertTelemetry(ctx context.Context, msgs []*domain.TelemetryMessage) error {
	if len(msgs) == 0 {
		return nil
	}

	rows := make([][]interface{}, len(msgs))
	for i, m := range msgs {
		rows[i] = []interface{}{
			m.Timestamp,
			m.AssetID,
			m.FleetID,
			m.Latitude,
			m.Longitude,
			m.SpeedMph,
			m.OdometerMi,
			m.IsMoving,
			m.IgnitionOn,
			string(m.RawPayload),
		}
	}

	_, err := s.pool.CopyFrom(
		ctx,
		pgx.Identifier{"asset_telemetry"},
		telemetryColumns,
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("CopyFrom failed for batch of %d: %w", len(msgs), err)
	}

	return nil
}

func (s *PostgresStore) InsertAlert(ctx context.Context, fleetID string, alert domain.Alert) error {
	query := `
		INSERT INTO asset_alerts
			(id, asset_id, fleet_id, alert_type, severity, zone, details, latitude, longitude, created_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT DO NOTHING
	`
	_, err := s.pool.Exec(
		ctx,
		query,
		alert.ID,
		alert.AssetID,
		fleetID,
		string(alert.Type),
		string(alert.Severity),
		alert.Zone,
		alert.Details,
		alert.Latitude,
		alert.Longitude,
		alert.Timestamp,
	)
	return err
}

// UpsertAttendanceRecord writes one (driver, date, status) exception row,
// replacing any previous classification of the same day.
func (s *PostgresStore) UpsertAttendanceRecord(ctx context.Context, rec domain.AttendanceRecord) error {
	query := `
		INSERT INTO attendance_records
			(driver_id, driver_name, department, report_date, status_type,
			 expected_start, actual_start, expected_end, actual_end,
			 minutes_late, minutes_early, expected_job_site, actual_location, notes, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW())
		ON CONFLICT (driver_id, report_date, status_type) DO UPDATE SET
			driver_name       = EXCLUDED.driver_name,
			department        = EXCLUDED.department,
			expected_start    = EXCLUDED.expected_start,
			actual_start      = EXCLUDED.actual_start,
			expected_end      = EXCLUDED.expected_end,
			actual_end        = EXCLUDED.actual_end,
			minutes_late      = EXCLUDED.minutes_late,
			minutes_early     = EXCLUDED.minutes_early,
			expected_job_site = EXCLUDED.expected_job_site,
			actual_location   = EXCLUDED.actual_location,
			notes             = EXCLUDED.notes,
			updated_at        = NOW()
	`
	_, err := s.pool.Exec(
		ctx,
		query,
		rec.DriverID,
		rec.DriverName,
		rec.Department,
		rec.ReportDate,
		string(rec.Status),
		nullableTime(rec.ExpectedStart),
		nullableTime(rec.ActualStart),
		nullableTime(rec.ExpectedEnd),
		nullableTime(rec.ActualEnd),
		rec.MinutesLate,
		rec.MinutesEarly,
		rec.ExpectedJobSite,
		rec.ActualLocation,
		rec.Notes,
	)
	if err != nil {
		return fmt.Errorf("upsert attendance record: %w", err)
	}
	return nil
}

func (s *PostgresStore) AttendanceRecordsOn(ctx context.Context, date time.Time) ([]domain.AttendanceRecord, error) {
	query := `
		SELECT driver_id, driver_name, department, report_date, status_type,
		       minutes_late, minutes_early, expected_job_site, actual_location, notes
		FROM attendance_records
		WHERE report_date = $1
	`
	rows, err := s.pool.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("query attendance records: %w", err)
	}
	defer rows.Close()

	var records []domain.AttendanceRecord
	for rows.Next() {
		var rec domain.AttendanceRecord
		var status string
		err := rows.Scan(
			&rec.DriverID,
			&rec.DriverName,
			&rec.Department,
			&rec.ReportDate,
			&status,
			&rec.MinutesLate,
			&rec.MinutesEarly,
			&rec.ExpectedJobSite,
			&rec.ActualLocation,
			&rec.Notes,
		)
		if err != nil {
			return nil, fmt.Errorf("scan attendance record: %w", err)
		}
		rec.Status = domain.StatusType(status)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// TrendTotal returns the stored incident total for one (date, type, entity)
// row. The bool is false when no row exists for that date.
func (s *PostgresStore) TrendTotal(ctx context.Context, date time.Time, typ domain.TrendType, entityID string) (int, bool, error) {
	var total int
	err := s.pool.QueryRow(ctx, `
		SELECT total_incidents
		FROM attendance_trends
		WHERE trend_date = $1 AND trend_type = $2 AND entity_id = $3
	`, date, string(typ), entityID).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("query trend total: %w", err)
	}
	return total, true, nil
}

func (s *PostgresStore) UpsertTrend(ctx context.Context, t domain.AttendanceTrend) error {
	query := `
		INSERT INTO attendance_trends
			(trend_date, trend_type, entity_id,
			 late_start_count, early_end_count, not_on_job_count, total_incidents,
			 week_over_week_change, month_over_month_change,
			 recurring_pattern, recurring_description, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (trend_date, trend_type, entity_id) DO UPDATE SET
			late_start_count        = EXCLUDED.late_start_count,
			early_end_count         = EXCLUDED.early_end_count,
			not_on_job_count        = EXCLUDED.not_on_job_count,
			total_incidents         = EXCLUDED.total_incidents,
			week_over_week_change   = EXCLUDED.week_over_week_change,
			month_over_month_change = EXCLUDED.month_over_month_change,
			recurring_pattern       = EXCLUDED.recurring_pattern,
			recurring_description   = EXCLUDED.recurring_description,
			updated_at              = NOW()
	`
	_, err := s.pool.Exec(
		ctx,
		query,
		t.TrendDate,
		string(t.Type),
		t.EntityID,
		t.LateStartCount,
		t.EarlyEndCount,
		t.NotOnJobCount,
		t.TotalIncidents,
		t.WeekOverWeekChange,
		t.MonthOverMonthChange,
		t.RecurringPattern,
		t.RecurringDescription,
	)
	if err != nil {
		return fmt.Errorf("upsert attendance trend: %w", err)
	}
	return nil
}

// CheckedIn satisfies the scanner's worker check-in source using timecard
// rows imported by the attendance pipeline. A driver counts as checked in
// for an asset when a key-on was recorded for it that day.
func (s *PostgresStore) CheckedIn(assetID string, at time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM asset_checkins
			WHERE asset_id = $1 AND checkin_date = $2
		)
	`, assetID, time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, at.Location())).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query check-in: %w", err)
	}
	return exists, nil
}

// RecordCheckin marks a worker as checked in for an asset-day.
func (s *PostgresStore) RecordCheckin(ctx context.Context, assetID, driverID string, day time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO asset_checkins (asset_id, driver_id, checkin_date)
		VALUES ($1, $2, $3)
		ON CONFLICT (asset_id, checkin_date) DO UPDATE SET driver_id = EXCLUDED.driver_id
	`, assetID, driverID, time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location()))
	return err
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
