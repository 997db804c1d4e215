package drowsinessRepository

import (
	"context"
	"database/sql"
	"time"

	"DrowsyGuard/internal/entity"
	contextPkg "DrowsyGuard/pkg/context"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type DetectionLogDB struct {
	ID          sql.NullString  `db:"id"`
	OperatorID  sql.NullString  `db:"operator_id"`
	EAR         sql.NullFloat64 `db:"ear"`
	Yawn        sql.NullFloat64 `db:"yawn"`
	Status      sql.NullString  `db:"status"`
	SnapshotURL sql.NullString  `db:"snapshot_url"`
	Source      sql.NullInt16   `db:"source"`
	CreatedAt   time.Time       `db:"created_at"`
}

func (d DetectionLogDB) toEntity() entity.DetectionLog {
	l := entity.DetectionLog{
		ID:         d.ID.String,
		OperatorID: d.OperatorID.String,
		Yawn:       d.Yawn.Float64,
		Status:     d.Status.String,
		Source:     entity.LogSource(d.Source.Int16),
		CreatedAt:  d.CreatedAt,
	}
	if d.EAR.Valid {
		ear := d.EAR.Float64
		l.EAR = &ear
	}
	if d.SnapshotURL.Valid {
		url := d.SnapshotURL.String
		l.SnapshotURL = &url
	}
	return l
}

func (r *detectionLogRepository) CreateLog(c context.Context, detectionLog entity.DetectionLog) error {
	requestID := contextPkg.GetRequestID(c)

	createdAt := detectionLog.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	argsKV := map[string]interface{}{
		"id":           detectionLog.ID,
		"operator_id":  detectionLog.OperatorID,
		"ear":          detectionLog.EAR,
		"yawn":         detectionLog.Yawn,
		"status":       detectionLog.Status,
		"snapshot_url": detectionLog.SnapshotURL,
		"source":       detectionLog.Source.Value(),
		"created_at":   createdAt,
	}

	query, args, err := sqlx.Named(queryCreateDetectionLog, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for CreateLog")
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(c, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when creating detection log")
		return err
	}

	return nil
}

func (r *detectionLogRepository) ListLogs(c context.Context, limit, offset int) ([]entity.DetectionLog, error) {
	requestID := contextPkg.GetRequestID(c)

	argsKV := map[string]interface{}{
		"limit":  limit,
		"offset": offset,
	}

	query, args, err := sqlx.Named(queryListDetectionLogs, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("ListLogs named query preparation err")
		return nil, err
	}
	query = r.q.Rebind(query)

	var rows []DetectionLogDB
	if err := r.q.SelectContext(c, &rows, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when listing detection logs")
		return nil, err
	}

	logs := make([]entity.DetectionLog, 0, len(rows))
	for _, row := range rows {
		logs = append(logs, row.toEntity())
	}

	return logs, nil
}

func (r *detectionLogRepository) CountLogs(c context.Context) (int, error) {
	var total int
	if err := r.q.GetContext(c, &total, queryCountDetectionLogs); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(c),
			"error":      err.Error(),
		}).Error("Database error when counting detection logs")
		return 0, err
	}

	return total, nil
}
