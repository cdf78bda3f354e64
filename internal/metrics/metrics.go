package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	MessagesReceived  atomic.Int64
	DBWriteSuccess    atomic.Int64
	DBWriteFailures   atomic.Int64
	DBChannelDrops    atomic.Int64
	StateChannelDrops atomic.Int64

	AssetsScanned         atomic.Int64
	AlertsRaised          atomic.Int64
	AttendanceRecords     atomic.Int64
	AttendanceDaysSkipped atomic.Int64
	TrendRowsUpserted     atomic.Int64
)

func HandleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "sentinel_messages_received_total %d\n", MessagesReceived.Load())
	fmt.Fprintf(w, "sentinel_db_write_success_total %d\n", DBWriteSuccess.Load())
	fmt.Fprintf(w, "sentinel_db_write_failures_total %d\n", DBWriteFailures.Load())
	fmt.Fprintf(w, "sentinel_db_channel_drops_total %d\n", DBChannelDrops.Load())
	fmt.Fprintf(w, "sentinel_state_channel_drops_total %d\n", StateChannelDrops.Load())
	fmt.Fprintf(w, "sentinel_assets_scanned_total %d\n", AssetsScanned.Load())
	fmt.Fprintf(w, "sentinel_alerts_raised_total %d\n", AlertsRaised.Load())
	fmt.Fprintf(w, "sentinel_attendance_records_total %d\n", AttendanceRecords.Load())
	fmt.Fprintf(w, "sentinel_attendance_days_skipped_total %d\n", AttendanceDaysSkipped.Load())
	fmt.Fprintf(w, "sentinel_trend_rows_upserted_total %d\n", TrendRowsUpserted.Load())
}
