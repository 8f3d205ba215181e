package health

import "time"

// ProviderGarmin is the only provider currently synced. Activities are keyed
// by (provider, id) so other sources can coexist later.
const ProviderGarmin = "garmin"

// Activity is one recorded workout/activity. ID is the provider's numeric
// identifier stored as a string. The pointer fields come from the best-effort
// detail fetch and stay nil when enrichment was unavailable. Raw and DetailRaw
// hold the full provider payloads for forward compatibility.
type Activity struct {
	ID        string    `json:"id"`
	Provider  string    `json:"provider"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	StartTime time.Time `json:"startTime"`

	DistanceMeters  float64 `json:"distanceMeters"`
	DurationSeconds float64 `json:"durationSeconds"`
	Calories        float64 `json:"calories"`

	AvgHeartRate  *int     `json:"avgHeartRate,omitempty"`
	MaxHeartRate  *int     `json:"maxHeartRate,omitempty"`
	AvgSpeed      *float64 `json:"avgSpeed,omitempty"`
	MaxSpeed      *float64 `json:"maxSpeed,omitempty"`
	ElevationGain *float64 `json:"elevationGain,omitempty"`
	ElevationLoss *float64 `json:"elevationLoss,omitempty"`

	Raw       []byte `json:"-"`
	DetailRaw []byte `json:"-"`
}

// DailyMetric is the merged wellness record for one calendar day. Day is the
// natural key in YYYY-MM-DD form. Every pointer field is nullable because the
// corresponding sub-resource is frequently missing for a given day/device.
type DailyMetric struct {
	Day   string `json:"day"`
	Steps int    `json:"steps"`

	RestingHeartRate *int `json:"restingHeartRate,omitempty"`

	BodyBatteryHigh    *int `json:"bodyBatteryHigh,omitempty"`
	BodyBatteryLow     *int `json:"bodyBatteryLow,omitempty"`
	BodyBatteryCharged *int `json:"bodyBatteryCharged,omitempty"`
	BodyBatteryDrained *int `json:"bodyBatteryDrained,omitempty"`

	SleepSeconds      *int `json:"sleepSeconds,omitempty"`
	SleepScore        *int `json:"sleepScore,omitempty"`
	DeepSleepSeconds  *int `json:"deepSleepSeconds,omitempty"`
	LightSleepSeconds *int `json:"lightSleepSeconds,omitempty"`
	RemSleepSeconds   *int `json:"remSleepSeconds,omitempty"`
	AwakeSleepSeconds *int `json:"awakeSleepSeconds,omitempty"`

	AvgSpO2        *float64 `json:"avgSpo2,omitempty"`
	AvgRespiration *float64 `json:"avgRespiration,omitempty"`
	AvgStress      *int     `json:"avgStress,omitempty"`
	MaxStress      *int     `json:"maxStress,omitempty"`

	HRVStatus       *string `json:"hrvStatus,omitempty"`
	HRVLastNightAvg *int    `json:"hrvLastNightAvg,omitempty"`

	Raw []byte `json:"-"`
}

// SyncStatus is the lifecycle state of a sync log entry.
type SyncStatus string

const (
	SyncStatusRunning SyncStatus = "running"
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusError   SyncStatus = "error"
)

// SyncLogEntry is one append-only audit record of a sync run. EndedAt is nil
// while the run is in flight.
type SyncLogEntry struct {
	ID        int64      `json:"id"`
	StartedAt time.Time  `json:"startedAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
	Status    SyncStatus `json:"status"`
	Details   string     `json:"details"`
}
