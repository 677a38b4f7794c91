package service

import (
	"context"
	"testing"
	"time"

	"solar_crm_backend/internal/leads/domain"
	"solar_crm_backend/internal/leads/repository"
	"solar_crm_backend/internal/leads/transport"

	"github.com/google/uuid"
)

func TestDashboardStats(t *testing.T) {
	store := newFakeStore()
	store.addLead(repository.Lead{OTPVerified: true, PipelineStage: domain.StageClosedWon, CreatedAt: time.Now()})
	store.addLead(repository.Lead{OTPVerified: true, CreatedAt: time.Now()})
	store.addLead(repository.Lead{CreatedAt: time.Now()})
	svc, _ := newTestService(store)

	resp, err := svc.DashboardStats(context.Background(), master(), transport.DashboardQuery{})
	if err != nil {
		t.Fatalf("DashboardStats: %v", err)
	}
	if resp.TotalLeads != 3 || resp.VerifiedLeads != 2 || resp.ProjectsWon != 1 {
		t.Errorf("unexpected counters: %+v", resp)
	}
	if resp.PipelineValue != "₹ 1,50,000" {
		t.Errorf("pipeline value = %q", resp.PipelineValue)
	}
}

func TestDashboardStatsVendorScoped(t *testing.T) {
	store := newFakeStore()
	vendorID := uuid.New()
	store.addLead(repository.Lead{AssignedVendorID: &vendorID, CreatedAt: time.Now()})
	store.addLead(repository.Lead{CreatedAt: time.Now()})
	svc, _ := newTestService(store)

	vendor := Actor{ID: vendorID, Name: "V", Role: RoleVendor}
	resp, err := svc.DashboardStats(context.Background(), vendor, transport.DashboardQuery{})
	if err != nil {
		t.Fatalf("DashboardStats: %v", err)
	}
	if resp.TotalLeads != 1 {
		t.Errorf("vendor must only count own leads, got %d", resp.TotalLeads)
	}
}

func TestDashboardStatsDateWindow(t *testing.T) {
	store := newFakeStore()
	inWindow := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store.addLead(repository.Lead{CreatedAt: inWindow})
	store.addLead(repository.Lead{CreatedAt: inWindow.AddDate(0, -2, 0)})
	svc, _ := newTestService(store)

	resp, err := svc.DashboardStats(context.Background(), master(), transport.DashboardQuery{
		StartDate: "2026-03-01",
		EndDate:   "2026-03-31",
	})
	if err != nil {
		t.Fatalf("DashboardStats: %v", err)
	}
	if resp.TotalLeads != 1 {
		t.Errorf("expected 1 lead in window, got %d", resp.TotalLeads)
	}
}

func TestDashboardChartsMonthlyBuckets(t *testing.T) {
	store := newFakeStore()
	jan := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)
	store.addLead(repository.Lead{CreatedAt: jan, Source: "Website"})
	store.addLead(repository.Lead{CreatedAt: jan, Source: "Referral", PipelineStage: domain.StageClosedWon})
	store.addLead(repository.Lead{CreatedAt: feb, Source: "Website"})
	svc, _ := newTestService(store)

	resp, err := svc.DashboardCharts(context.Background(), master(), transport.DashboardQuery{GroupBy: "month"})
	if err != nil {
		t.Fatalf("DashboardCharts: %v", err)
	}

	if len(resp.TimeSeriesLeads) != 2 {
		t.Fatalf("expected 2 monthly buckets, got %d", len(resp.TimeSeriesLeads))
	}
	if resp.TimeSeriesLeads[0].Name != "Jan 26" || resp.TimeSeriesLeads[0].Value != 2 {
		t.Errorf("january bucket = %+v", resp.TimeSeriesLeads[0])
	}
	if resp.TimeSeriesLeads[1].Name != "Feb 26" || resp.TimeSeriesLeads[1].Value != 1 {
		t.Errorf("february bucket = %+v", resp.TimeSeriesLeads[1])
	}
	if resp.TimeSeriesRevenue[0].Value != projectValueINR {
		t.Errorf("january revenue = %d", resp.TimeSeriesRevenue[0].Value)
	}
	if resp.TimeSeriesRevenue[1].Value != 0 {
		t.Errorf("february revenue = %d", resp.TimeSeriesRevenue[1].Value)
	}

	if len(resp.LeadSources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(resp.LeadSources))
	}
	for _, point := range resp.LeadSources {
		switch point.Name {
		case "Website":
			if point.Value != 2 {
				t.Errorf("Website count = %d", point.Value)
			}
		case "Referral":
			if point.Value != 1 {
				t.Errorf("Referral count = %d", point.Value)
			}
		default:
			t.Errorf("unexpected source %q", point.Name)
		}
	}
}

func TestBucketKeyWeekStartsSunday(t *testing.T) {
	// 2026-03-11 is a Wednesday; its week key is Sunday 2026-03-08.
	wed := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
	if got := bucketKey(wed, "week"); got != "2026-03-08" {
		t.Errorf("bucketKey(week) = %q", got)
	}
	sun := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)
	if got := bucketKey(sun, "week"); got != "2026-03-08" {
		t.Errorf("sunday maps to itself, got %q", got)
	}
}
