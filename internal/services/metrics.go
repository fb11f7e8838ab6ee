package services

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"zenith-backend/internal/models"
	"zenith-backend/internal/store"
)

const (
	MetricsRoom        = "metrics"
	EventMetricSample  = "metricSample"
	DefaultHistorySize = 120
	MaxHistorySize     = 500
)

type MetricsService struct {
	store    store.Metrics
	notifier Notifier
	diskPath string
	log      *zap.Logger
}

func NewMetricsService(s store.Metrics, notifier Notifier, diskPath string, log *zap.Logger) *MetricsService {
	if diskPath == "" {
		diskPath = "/"
	}
	return &MetricsService{store: s, notifier: notifier, diskPath: diskPath, log: nopIfNil(log)}
}

// Capture reads host gauges and platform counters. Host probes that fail
// leave their gauges at zero.
func (m *MetricsService) Capture(ctx context.Context) (models.ServerMetricSample, error) {
	counters, err := m.store.PlatformCounters(ctx)
	if err != nil {
		return models.ServerMetricSample{}, WrapError(err, "platform counters")
	}
	sample := models.ServerMetricSample{
		ID:                  uuid.NewString(),
		CapturedAt:          time.Now().UTC(),
		UsersTotal:          counters.UsersTotal,
		TransfersPending:    counters.TransfersPending,
		TransfersInProgress: counters.TransfersInProgress,
		TransfersFinished:   counters.TransfersFinished,
		PointsInCirculation: counters.PointsInCirculation,
	}

	if proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if rss, err := proc.MemoryInfoWithContext(ctx); err == nil && rss != nil {
			sample.ProcessRSSBytes = int64(rss.RSS)
		}
		if perc, err := proc.CPUPercentWithContext(ctx); err == nil {
			sample.ProcessCpuLoad = perc / 100.0
		}
	}
	if memStat, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		sample.SystemMemoryTotal = int64(memStat.Total)
		sample.SystemMemoryUsed = int64(memStat.Total - memStat.Available)
	}
	diskStat, err := disk.UsageWithContext(ctx, m.diskPath)
	if err != nil {
		diskStat, err = disk.UsageWithContext(ctx, "/")
	}
	if err == nil {
		sample.DiskTotalBytes = int64(diskStat.Total)
		sample.DiskUsedBytes = int64(diskStat.Used)
	}
	if sysCPU, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(sysCPU) > 0 {
		sample.SystemCpuLoad = sysCPU[0] / 100.0
	}
	return sample, nil
}

// Sample captures, stores and broadcasts one sample.
func (m *MetricsService) Sample(ctx context.Context) (models.ServerMetricSample, error) {
	sample, err := m.Capture(ctx)
	if err != nil {
		return models.ServerMetricSample{}, err
	}
	if err := m.store.SaveMetricSample(ctx, sample); err != nil {
		return models.ServerMetricSample{}, WrapError(err, "save metric sample")
	}
	if m.notifier != nil {
		if err := m.notifier.Notify(ctx, MetricsRoom, EventMetricSample, SamplePayload(sample)); err != nil {
			m.log.Warn("metric sample broadcast failed", zap.Error(err))
		}
	}
	return sample, nil
}

// Run samples every interval until ctx is done.
func (m *MetricsService) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := m.Sample(ctx); err != nil && ctx.Err() == nil {
				m.log.Error("metric sample failed", zap.Error(err))
			}
		}
	}
}

func (m *MetricsService) History(ctx context.Context, limit int) ([]models.ServerMetricSample, error) {
	if limit <= 0 {
		limit = DefaultHistorySize
	}
	if limit > MaxHistorySize {
		limit = MaxHistorySize
	}
	items, err := m.store.LatestMetricSamples(ctx, limit)
	if err != nil {
		return nil, WrapError(err, "load metric history")
	}
	return items, nil
}

// MetricSampleView is the wire form of a sample.
type MetricSampleView struct {
	ID                     string  `json:"id"`
	CapturedAt             string  `json:"capturedAt"`
	ProcessRSSBytes        int64   `json:"processRssBytes"`
	SystemMemoryTotalBytes int64   `json:"systemMemoryTotalBytes"`
	SystemMemoryUsedBytes  int64   `json:"systemMemoryUsedBytes"`
	DiskTotalBytes         int64   `json:"diskTotalBytes"`
	DiskUsedBytes          int64   `json:"diskUsedBytes"`
	ProcessCpuLoad         float64 `json:"processCpuLoad"`
	SystemCpuLoad          float64 `json:"systemCpuLoad"`
	UsersTotal             int64   `json:"usersTotal"`
	TransfersPending       int64   `json:"transfersPending"`
	TransfersInProgress    int64   `json:"transfersInProgress"`
	TransfersFinished      int64   `json:"transfersFinished"`
	PointsInCirculation    int64   `json:"pointsInCirculation"`
}

func SamplePayload(s models.ServerMetricSample) MetricSampleView {
	return MetricSampleView{
		ID:                     s.ID,
		CapturedAt:             s.CapturedAt.UTC().Format(time.RFC3339),
		ProcessRSSBytes:        s.ProcessRSSBytes,
		SystemMemoryTotalBytes: s.SystemMemoryTotal,
		SystemMemoryUsedBytes:  s.SystemMemoryUsed,
		DiskTotalBytes:         s.DiskTotalBytes,
		DiskUsedBytes:          s.DiskUsedBytes,
		ProcessCpuLoad:         s.ProcessCpuLoad,
		SystemCpuLoad:          s.SystemCpuLoad,
		UsersTotal:             s.UsersTotal,
		TransfersPending:       s.TransfersPending,
		TransfersInProgress:    s.TransfersInProgress,
		TransfersFinished:      s.TransfersFinished,
		PointsInCirculation:    s.PointsInCirculation,
	}
}
