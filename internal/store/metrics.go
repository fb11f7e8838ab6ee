package store

import (
	"context"

	"zenith-backend/internal/models"
)

func (p *Postgres) PlatformCounters(ctx context.Context) (models.PlatformCounters, error) {
	var counters models.PlatformCounters
	err := p.db.GetContext(ctx, &counters, `
SELECT
  (SELECT count(*) FROM users) AS users_total,
  (SELECT count(*) FROM skill_transfers WHERE status = 'pending') AS transfers_pending,
  (SELECT count(*) FROM skill_transfers WHERE status = 'in_progress') AS transfers_in_progress,
  (SELECT count(*) FROM skill_transfers WHERE status = 'finished') AS transfers_finished,
  (SELECT COALESCE(SUM(points), 0) FROM student_profiles) AS points_in_circulation
`)
	return counters, mapError(err)
}

func (p *Postgres) SaveMetricSample(ctx context.Context, sample models.ServerMetricSample) error {
	_, err := p.db.NamedExecContext(ctx, `
INSERT INTO server_metric_samples (
  id, captured_at, process_rss_bytes, system_memory_total_bytes, system_memory_used_bytes,
  disk_total_bytes, disk_used_bytes, process_cpu_load, system_cpu_load,
  users_total, transfers_pending, transfers_in_progress, transfers_finished, points_in_circulation
) VALUES (
  :id, :captured_at, :process_rss_bytes, :system_memory_total_bytes, :system_memory_used_bytes,
  :disk_total_bytes, :disk_used_bytes, :process_cpu_load, :system_cpu_load,
  :users_total, :transfers_pending, :transfers_in_progress, :transfers_finished, :points_in_circulation
)`, sample)
	return mapError(err)
}

// LatestMetricSamples returns up to limit samples, oldest first.
func (p *Postgres) LatestMetricSamples(ctx context.Context, limit int) ([]models.ServerMetricSample, error) {
	rows := []models.ServerMetricSample{}
	if err := p.db.SelectContext(ctx, &rows, `
SELECT id, captured_at, process_rss_bytes, system_memory_total_bytes, system_memory_used_bytes,
       disk_total_bytes, disk_used_bytes, process_cpu_load, system_cpu_load,
       users_total, transfers_pending, transfers_in_progress, transfers_finished, points_in_circulation
FROM server_metric_samples
ORDER BY captured_at DESC
LIMIT $1
`, limit); err != nil {
		return nil, mapError(err)
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}
