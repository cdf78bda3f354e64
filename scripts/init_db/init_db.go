package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found — using system environment variables")
	}

	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		dbGetEnv("DB_USER", "sentinel_user"),
		dbGetEnv("DB_PASSWORD", "sentinel_password"),
		dbGetEnv("DB_HOST", "localhost"),
		dbGetEnv("DB_PORT", "5432"),
		dbGetEnv("DB_NAME", "fleet_sentinel"),
	)

	ctx := context.Background()

	fmt.Println("Connecting to Postgres...")
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		log.Fatalf("Connection failed: %v\n\nMake sure Postgres is running:\n  docker-compose up -d postgres", err)
	}
	defer conn.Close(ctx)
	fmt.Println("✓ Connected")

	step1_telemetry_table(ctx, conn)
	step2_alerts_table(ctx, conn)
	step3_attendance_tables(ctx, conn)
	step4_indexes(ctx, conn)
	step5_verify(ctx, conn)

	fmt.Println("\n✅ Database initialised successfully")
	fmt.Println("   Run next: go run scripts/seed_redis/seed_redis.go")
}

func step1_telemetry_table(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 1: asset_telemetry table ───────────────")

	execOrFatal(ctx, conn, `
		CREATE TABLE IF NOT EXISTS asset_telemetry (

			-- Device clock vs server receipt; device clocks drift
			timestamp    TIMESTAMPTZ      NOT NULL,
			received_at  TIMESTAMPTZ      NOT NULL DEFAULT NOW(),

			asset_id     TEXT             NOT NULL,
			fleet_id     TEXT             NOT NULL,

			latitude     DOUBLE PRECISION NOT NULL,
			longitude    DOUBLE PRECISION NOT NULL,

			speed_mph    DOUBLE PRECISION NOT NULL DEFAULT 0,
			odometer_mi  DOUBLE PRECISION NOT NULL DEFAULT 0,

			is_moving    BOOLEAN          NOT NULL DEFAULT false,
			ignition_on  BOOLEAN          NOT NULL DEFAULT false,

			-- Original JSON payload — kept for debugging and replay
			raw_payload  JSONB
		);
	`, "asset_telemetry table created")
}

func step2_alerts_table(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 2: asset_alerts table ──────────────────")

	execOrFatal(ctx, conn, `
		CREATE TABLE IF NOT EXISTS asset_alerts (

			id          UUID             PRIMARY KEY,

			asset_id    TEXT             NOT NULL,
			fleet_id    TEXT             NOT NULL,

			-- Must exactly match domain.AlertType constants
			alert_type  TEXT             NOT NULL,

			-- Must exactly match domain.AlertSeverity constants
			severity    TEXT             NOT NULL,

			zone        TEXT,
			details     TEXT,
			latitude    DOUBLE PRECISION,
			longitude   DOUBLE PRECISION,

			created_at  TIMESTAMPTZ      NOT NULL DEFAULT NOW(),

			-- Operator acknowledgment — NULL means not yet acknowledged
			acknowledged_at TIMESTAMPTZ,
			acknowledged_by TEXT,

			CONSTRAINT chk_alert_type CHECK (
				alert_type IN ('GEOFENCE_VIOLATION', 'OFF_HOURS_MOVEMENT',
				               'ORPHANED_EQUIPMENT', 'LONG_OFFLINE')
			),

			CONSTRAINT chk_severity CHECK (
				severity IN ('HIGH', 'MEDIUM', 'LOW')
			)
		);
	`, "asset_alerts table created")
}

func step3_attendance_tables(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 3: attendance tables ───────────────────")

	execOrFatal(ctx, conn, `
		CREATE TABLE IF NOT EXISTS attendance_records (

			driver_id         TEXT        NOT NULL,
			driver_name       TEXT        NOT NULL DEFAULT '',
			department        TEXT        NOT NULL DEFAULT '',
			report_date       DATE        NOT NULL,

			-- Must exactly match domain.StatusType constants
			status_type       TEXT        NOT NULL,

			expected_start    TIMESTAMPTZ,
			actual_start      TIMESTAMPTZ,
			expected_end      TIMESTAMPTZ,
			actual_end        TIMESTAMPTZ,
			minutes_late      INTEGER     NOT NULL DEFAULT 0,
			minutes_early     INTEGER     NOT NULL DEFAULT 0,

			expected_job_site TEXT        NOT NULL DEFAULT '',
			actual_location   TEXT        NOT NULL DEFAULT '',
			notes             TEXT        NOT NULL DEFAULT '',
			updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),

			-- One row per driver-day-status; re-classification upserts
			PRIMARY KEY (driver_id, report_date, status_type),

			CONSTRAINT chk_status_type CHECK (
				status_type IN ('LATE_START', 'EARLY_END', 'NOT_ON_JOB')
			)
		);
	`, "attendance_records table created")

	execOrFatal(ctx, conn, `
		CREATE TABLE IF NOT EXISTS attendance_trends (

			trend_date              DATE             NOT NULL,
			trend_type              TEXT             NOT NULL,
			entity_id               TEXT             NOT NULL,

			late_start_count        INTEGER          NOT NULL DEFAULT 0,
			early_end_count         INTEGER          NOT NULL DEFAULT 0,
			not_on_job_count        INTEGER          NOT NULL DEFAULT 0,
			total_incidents         INTEGER          NOT NULL DEFAULT 0,

			-- NULL means no prior-period baseline, not 0% change
			week_over_week_change   DOUBLE PRECISION,
			month_over_month_change DOUBLE PRECISION,

			recurring_pattern       BOOLEAN          NOT NULL DEFAULT false,
			recurring_description   TEXT             NOT NULL DEFAULT '',
			updated_at              TIMESTAMPTZ      NOT NULL DEFAULT NOW(),

			PRIMARY KEY (trend_date, trend_type, entity_id),

			CONSTRAINT chk_trend_type CHECK (
				trend_type IN ('DRIVER', 'JOB_SITE', 'DEPARTMENT', 'OVERALL')
			)
		);
	`, "attendance_trends table created")

	execOrFatal(ctx, conn, `
		CREATE TABLE IF NOT EXISTS asset_checkins (
			asset_id     TEXT NOT NULL,
			driver_id    TEXT NOT NULL,
			checkin_date DATE NOT NULL,

			PRIMARY KEY (asset_id, checkin_date)
		);
	`, "asset_checkins table created")
}

func step4_indexes(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 4: Indexes ─────────────────────────────")

	indexes := []struct {
		name string
		sql  string
		why  string
	}{
		{
			name: "idx_telemetry_asset_time",
			sql: `CREATE INDEX IF NOT EXISTS idx_telemetry_asset_time
				  ON asset_telemetry (asset_id, timestamp DESC);`,
			why: "query: telemetry history for one asset",
		},
		{
			name: "idx_telemetry_fleet_time",
			sql: `CREATE INDEX IF NOT EXISTS idx_telemetry_fleet_time
				  ON asset_telemetry (fleet_id, timestamp DESC);`,
			why: "query: all assets in a fleet",
		},
		{
			name: "idx_alerts_asset",
			sql: `CREATE INDEX IF NOT EXISTS idx_alerts_asset
				  ON asset_alerts (asset_id, created_at DESC);`,
			why: "query: alerts for one asset",
		},
		{
			name: "idx_alerts_unacknowledged",
			sql: `CREATE INDEX IF NOT EXISTS idx_alerts_unacknowledged
				  ON asset_alerts (fleet_id, created_at DESC)
				  WHERE acknowledged_at IS NULL;`,
			why: "query: unacknowledged alerts only (partial index)",
		},
		{
			name: "idx_attendance_date",
			sql: `CREATE INDEX IF NOT EXISTS idx_attendance_date
				  ON attendance_records (report_date);`,
			why: "query: all records for a trend date",
		},
		{
			name: "idx_trends_entity",
			sql: `CREATE INDEX IF NOT EXISTS idx_trends_entity
				  ON attendance_trends (trend_type, entity_id, trend_date DESC);`,
			why: "query: baseline lookups per entity",
		},
	}

	for _, idx := range indexes {
		execOrFatal(ctx, conn, idx.sql,
			fmt.Sprintf("%-40s ← %s", idx.name, idx.why),
		)
	}
}

func step5_verify(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 5: Verification ────────────────────────")

	tables := []string{"asset_telemetry", "asset_alerts", "attendance_records", "attendance_trends", "asset_checkins"}
	for _, table := range tables {
		var exists bool
		err := conn.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM information_schema.tables
				WHERE table_name = $1
			)
		`, table).Scan(&exists)
		if err != nil || !exists {
			log.Fatalf("Table %s was not created: %v", table, err)
		}
		fmt.Printf("  ✓ table: %s\n", table)
	}

	var indexCount int
	err := conn.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM pg_indexes
		WHERE tablename IN ('asset_telemetry', 'asset_alerts', 'attendance_records', 'attendance_trends')
		AND indexname LIKE 'idx_%'
	`).Scan(&indexCount)
	if err != nil {
		log.Fatalf("Index check failed: %v", err)
	}
	fmt.Printf("  ✓ indexes created: %d\n", indexCount)
}

// execOrFatal runs a SQL statement and prints result or exits on error
func execOrFatal(ctx context.Context, conn *pgx.Conn, sql, label string) {
	_, err := conn.Exec(ctx, sql)
	if err != nil {
		log.Fatalf("FAILED — %s\nError: %v\nSQL: %s", label, err, sql)
	}
	fmt.Printf("  ✓ %s\n", label)
}

func dbGetEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
