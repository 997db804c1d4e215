package drowsinessRepository

const (
	queryCreateDetectionLog = `
		INSERT INTO detection_logs (
			id,
			operator_id,
			ear,
			yawn,
			status,
			snapshot_url,
			source,
			created_at
		) VALUES (
			:id,
			:operator_id,
			:ear,
			:yawn,
			:status,
			:snapshot_url,
			:source,
			:created_at
		)
	`

	queryListDetectionLogs = `
		SELECT
			id,
			operator_id,
			ear,
			yawn,
			status,
			snapshot_url,
			source,
			created_at
		FROM detection_logs
		ORDER BY created_at DESC, id DESC
		LIMIT :limit OFFSET :offset
	`

	queryCountDetectionLogs = `
		SELECT COUNT(*) FROM detection_logs
	`
)
