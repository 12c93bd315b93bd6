package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/eldercare-platform/eldercare/internal/adapters/dataset"
	"github.com/eldercare-platform/eldercare/internal/domain/model"
)

const (
	dashboardReadingsLimit = 100
	dashboardAlertsLimit   = 50
	reportRowsLimit        = 50
	onlineReportLimit      = 1000
)

// Report formats.
const (
	ReportCSV  = "csv"
	ReportXLSX = "xlsx"
)

// OnlineDashboard is the dashboard body when backed by the database.
type OnlineDashboard struct {
	RecentReadings []model.SensorReading `json:"recent_readings"`
	Alerts         []model.Alert         `json:"alerts"`
}

// Dashboard returns OfflineDashboard in offline mode and OnlineDashboard otherwise.
func (s *Service) Dashboard(ctx context.Context, userID int64) (any, error) {
	if s.offline {
		return s.offlineDashboard(userID), nil
	}
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	readings, err := s.store.RecentReadings(ctx, userID, dashboardReadingsLimit)
	if err != nil {
		return nil, fmt.Errorf("dashboard readings: %w", err)
	}
	alerts, err := s.store.AlertsForUser(ctx, userID, dashboardAlertsLimit)
	if err != nil {
		return nil, fmt.Errorf("dashboard alerts: %w", err)
	}
	if readings == nil {
		readings = []model.SensorReading{}
	}
	if alerts == nil {
		alerts = []model.Alert{}
	}
	return OnlineDashboard{RecentReadings: readings, Alerts: alerts}, nil
}

// Report is tabular report data. Table is nil when no data is available.
type Report struct {
	Type   string
	UserID int64
	Table  *dataset.Table
}

// ParseReportType accepts csv (the default) and xlsx.
func ParseReportType(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", ReportCSV:
		return ReportCSV, nil
	case ReportXLSX:
		return ReportXLSX, nil
	default:
		return "", fmt.Errorf("%w: unknown report type %q", ErrInvalidInput, s)
	}
}

// BuildReport collects the rows of a user report: the head of the merged dataset offline,
// the user's device readings online.
func (s *Service) BuildReport(ctx context.Context, userID int64, kind string) (Report, error) {
	kind, err := ParseReportType(kind)
	if err != nil {
		return Report{}, err
	}
	rep := Report{Type: kind, UserID: userID}

	if s.offline {
		if merged, ok := s.datasets.Table(dataset.MergedScored); ok {
			rep.Table = merged.Head(reportRowsLimit)
		}
		return rep, nil
	}

	if err := s.requireStore(); err != nil {
		return Report{}, err
	}
	readings, err := s.store.RecentReadings(ctx, userID, onlineReportLimit)
	if err != nil {
		return Report{}, fmt.Errorf("report readings: %w", err)
	}
	rows := make([][]any, len(readings))
	for i, r := range readings {
		rows[i] = []any{r.TS.Format(time.RFC3339), r.SensorType, r.Value}
	}
	rep.Table = dataset.NewTable("report", []string{"timestamp", "sensor", "value"}, rows)
	return rep, nil
}
