package garmin

import (
	"github.com/goccy/go-json"
)

// ActivitySummary is one entry from the activity list endpoint. Raw holds the
// complete response object for forward compatibility.
type ActivitySummary struct {
	ActivityID     int64        `json:"activityId"`
	ActivityName   string       `json:"activityName"`
	StartTimeLocal string       `json:"startTimeLocal"`
	ActivityType   ActivityType `json:"activityType"`
	Distance       float64      `json:"distance"`
	Duration       float64      `json:"duration"`
	Calories       float64      `json:"calories"`

	Raw json.RawMessage `json:"-"`
}

type ActivityType struct {
	TypeKey string `json:"typeKey"`
}

// ActivityDetail carries the extended metrics fetched per activity. All fields
// are optional; devices without the matching sensors simply omit them.
type ActivityDetail struct {
	AverageHR     *int     `json:"averageHR"`
	MaxHR         *int     `json:"maxHR"`
	AverageSpeed  *float64 `json:"averageSpeed"`
	MaxSpeed      *float64 `json:"maxSpeed"`
	ElevationGain *float64 `json:"elevationGain"`
	ElevationLoss *float64 `json:"elevationLoss"`

	Raw json.RawMessage `json:"-"`
}

// DailySummary is the user daily summary payload for one calendar day.
type DailySummary struct {
	CalendarDate             string   `json:"calendarDate"`
	TotalSteps               int      `json:"totalSteps"`
	RestingHeartRate         *int     `json:"restingHeartRate"`
	AverageSpO2              *float64 `json:"averageSpo2"`
	AvgWakingRespirationRate *float64 `json:"avgWakingRespirationValue"`
	AverageStressLevel       *int     `json:"averageStressLevel"`
	MaxStressLevel           *int     `json:"maxStressLevel"`

	Raw json.RawMessage `json:"-"`
}

// SleepData is the nightly sleep payload for one calendar day.
type SleepData struct {
	SleepTimeSeconds  *int `json:"sleepTimeSeconds"`
	SleepScore        *int `json:"sleepScore"`
	DeepSleepSeconds  *int `json:"deepSleepSeconds"`
	LightSleepSeconds *int `json:"lightSleepSeconds"`
	RemSleepSeconds   *int `json:"remSleepSeconds"`
	AwakeSleepSeconds *int `json:"awakeSleepSeconds"`

	Raw json.RawMessage `json:"-"`
}

// BodyBatteryData is the body battery payload for one calendar day.
type BodyBatteryData struct {
	Charged *int `json:"charged"`
	Drained *int `json:"drained"`
	Highest *int `json:"highestBodyBatteryValue"`
	Lowest  *int `json:"lowestBodyBatteryValue"`

	Raw json.RawMessage `json:"-"`
}

// StressData is the stress payload for one calendar day.
type StressData struct {
	AvgStressLevel *int `json:"avgStressLevel"`
	MaxStressLevel *int `json:"maxStressLevel"`

	Raw json.RawMessage `json:"-"`
}

// HRVData is the heart-rate-variability payload for one calendar day. Status
// is the endpoint-provided classification (e.g. BALANCED, UNBALANCED) and is
// authoritative; it is never derived from other signals.
type HRVData struct {
	Status          string `json:"status"`
	LastNightAvg    *int   `json:"lastNightAvg"`
	WeeklyAvg       *int   `json:"weeklyAvg"`
	LastNight5MinHi *int   `json:"lastNight5MinHigh"`

	Raw json.RawMessage `json:"-"`
}
