package service

import (
	"context"
	"sort"
	"time"

	"solar_crm_backend/internal/leads/domain"
	"solar_crm_backend/internal/leads/repository"
	"solar_crm_backend/internal/leads/transport"
	"solar_crm_backend/platform/apperr"

	"github.com/google/uuid"
)

// Revenue attributed to each closed-won project in chart and stat rollups.
const projectValueINR = 150000

// DashboardStats returns the headline counters scoped to the actor. Masters
// may narrow to a single vendor and a date window.
func (s *Service) DashboardStats(ctx context.Context, actor Actor, query transport.DashboardQuery) (transport.DashboardStatsResponse, error) {
	stats, err := s.loadStats(ctx, actor, query)
	if err != nil {
		return transport.DashboardStatsResponse{}, err
	}

	resp := transport.DashboardStatsResponse{TotalLeads: len(stats)}
	for _, stat := range stats {
		if stat.OTPVerified {
			resp.VerifiedLeads++
		}
		if stat.PipelineStage == domain.StageClosedWon {
			resp.ProjectsWon++
		}
	}
	resp.PipelineValue = "₹ " + formatINR(int64(resp.ProjectsWon)*projectValueINR)
	return resp, nil
}

// DashboardCharts returns the lead-volume and revenue time series plus the
// source breakdown, grouped by day, week or month.
func (s *Service) DashboardCharts(ctx context.Context, actor Actor, query transport.DashboardQuery) (transport.ChartDataResponse, error) {
	stats, err := s.loadStats(ctx, actor, query)
	if err != nil {
		return transport.ChartDataResponse{}, err
	}

	groupBy := query.GroupBy
	if groupBy == "" {
		groupBy = "month"
	}

	leadsByTime := map[string]int{}
	revenueByTime := map[string]int{}
	bySource := map[string]int{}
	for _, stat := range stats {
		key := bucketKey(stat.CreatedAt, groupBy)
		leadsByTime[key]++
		if stat.PipelineStage == domain.StageClosedWon {
			revenueByTime[key] += projectValueINR
		}

		source := stat.Source
		if source == "" {
			source = "Unknown"
		}
		bySource[source]++
	}

	keys := make([]string, 0, len(leadsByTime))
	for key := range leadsByTime {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	resp := transport.ChartDataResponse{
		TimeSeriesLeads:   make([]transport.TimeSeriesPoint, 0, len(keys)),
		TimeSeriesRevenue: make([]transport.TimeSeriesPoint, 0, len(keys)),
		LeadSources:       make([]transport.TimeSeriesPoint, 0, len(bySource)),
	}
	for _, key := range keys {
		name := bucketLabel(key, groupBy)
		resp.TimeSeriesLeads = append(resp.TimeSeriesLeads, transport.TimeSeriesPoint{Name: name, Value: leadsByTime[key]})
		resp.TimeSeriesRevenue = append(resp.TimeSeriesRevenue, transport.TimeSeriesPoint{Name: name, Value: revenueByTime[key]})
	}

	sources := make([]string, 0, len(bySource))
	for source := range bySource {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	for _, source := range sources {
		resp.LeadSources = append(resp.LeadSources, transport.TimeSeriesPoint{Name: source, Value: bySource[source]})
	}
	return resp, nil
}

func (s *Service) loadStats(ctx context.Context, actor Actor, query transport.DashboardQuery) ([]repository.LeadStat, error) {
	scope := actor.scope()
	if scope == nil && query.VendorID != "" && query.VendorID != "all" {
		vendorID, err := uuid.Parse(query.VendorID)
		if err != nil {
			return nil, apperr.BadRequest("invalid vendor id")
		}
		scope = &vendorID
	}

	stats, err := s.repo.ListStats(ctx, scope)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load dashboard data", err)
	}
	return filterByDateRange(stats, query.StartDate, query.EndDate)
}

// filterByDateRange keeps stats inside [startDate, end of endDate].
func filterByDateRange(stats []repository.LeadStat, startDate, endDate string) ([]repository.LeadStat, error) {
	if startDate == "" && endDate == "" {
		return stats, nil
	}

	var start, end time.Time
	if startDate != "" {
		t, err := time.Parse("2006-01-02", startDate)
		if err != nil {
			return nil, apperr.BadRequest("invalid startDate")
		}
		start = t
	}
	if endDate != "" {
		t, err := time.Parse("2006-01-02", endDate)
		if err != nil {
			return nil, apperr.BadRequest("invalid endDate")
		}
		end = t.Add(24*time.Hour - time.Millisecond)
	}

	filtered := make([]repository.LeadStat, 0, len(stats))
	for _, stat := range stats {
		if !start.IsZero() && stat.CreatedAt.Before(start) {
			continue
		}
		if !end.IsZero() && stat.CreatedAt.After(end) {
			continue
		}
		filtered = append(filtered, stat)
	}
	return filtered, nil
}

func bucketKey(t time.Time, groupBy string) string {
	t = t.UTC()
	switch groupBy {
	case "day":
		return t.Format("2006-01-02")
	case "week":
		// Key is the week's Sunday.
		return t.AddDate(0, 0, -int(t.Weekday())).Format("2006-01-02")
	default:
		return t.Format("2006-01")
	}
}

func bucketLabel(key, groupBy string) string {
	switch groupBy {
	case "day":
		t, _ := time.Parse("2006-01-02", key)
		return t.Format("Jan 2")
	case "week":
		t, _ := time.Parse("2006-01-02", key)
		return "W/O " + t.Format("Jan 2")
	default:
		t, _ := time.Parse("2006-01", key)
		return t.Format("Jan 06")
	}
}
