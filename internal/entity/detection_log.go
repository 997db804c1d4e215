package entity

import "time"

type DetectionLog struct {
	ID          string    `db:"id"`
	OperatorID  string    `db:"operator_id"`
	EAR         *float64  `db:"ear"`
	Yawn        float64   `db:"yawn"`
	Status      string    `db:"status"`
	SnapshotURL *string   `db:"snapshot_url"`
	Source      LogSource `db:"source"`
	CreatedAt   time.Time `db:"created_at"`
}

type LogSource uint8

const (
	LogSourceUnknown LogSource = 0
	LogSourceManual  LogSource = 1
	LogSourceAlert   LogSource = 2
)

var LogSourceMap = map[LogSource]string{
	LogSourceManual: "Manual",
	LogSourceAlert:  "Alert",
}

func (s LogSource) String() string {
	return LogSourceMap[s]
}

func (s LogSource) Value() uint8 {
	return uint8(s)
}
