package domain

import "time"

type StatusType string

const (
	StatusLateStart StatusType = "LATE_START"
	StatusEarlyEnd  StatusType = "EARLY_END"
	StatusNotOnJob  StatusType = "NOT_ON_JOB"
)

type Driver struct {
	ID         string
	Name       string
	Department string
	JobSiteID  string
}

type JobSite struct {
	ID        string
	Name      string
	Zone      string
	Latitude  float64
	Longitude float64
}

type EventType string

const (
	EventKeyOn  EventType = "KEY_ON"
	EventKeyOff EventType = "KEY_OFF"
	EventPing   EventType = "PING"
)

// AttendanceEvent is one timestamped ignition/location reading from the
// event-log import. Latitude/Longitude may be zero when the source only
// carries a free-text location.
type AttendanceEvent struct {
	Timestamp time.Time
	Type      EventType
	Location  string
	Latitude  float64
	Longitude float64
}

func (e *AttendanceEvent) HasFix() bool {
	return !(e.Latitude == 0 && e.Longitude == 0)
}

// AttendanceRecord is one exception for one driver-day. At most one record
// exists per (driver, date, status type); re-classification upserts.
type AttendanceRecord struct {
	DriverID   string
	DriverName string
	Department string
	ReportDate time.Time
	Status     StatusType

	ExpectedStart time.Time
	ActualStart   time.Time
	ExpectedEnd   time.Time
	ActualEnd     time.Time
	MinutesLate   int
	MinutesEarly  int

	ExpectedJobSite string
	ActualLocation  string
	Notes           string
}

type TrendType string

const (
	TrendDriver     TrendType = "DRIVER"
	TrendJobSite    TrendType = "JOB_SITE"
	TrendDepartment TrendType = "DEPARTMENT"
	TrendOverall    TrendType = "OVERALL"
)

// AttendanceTrend is the rollup for one (date, type, entity). Change fields
// are nil when there is no prior-period baseline to compare against.
type AttendanceTrend struct {
	TrendDate time.Time
	Type      TrendType
	EntityID  string

	LateStartCount int
	EarlyEndCount  int
	NotOnJobCount  int
	TotalIncidents int

	WeekOverWeekChange   *float64
	MonthOverMonthChange *float64

	RecurringPattern     bool
	RecurringDescription string
}
