package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stwalsh4118/farmboard/internal/farmapi"
	"github.com/stwalsh4118/farmboard/internal/inventory"
	"github.com/stwalsh4118/farmboard/internal/logger"
)

// UpcomingWindow is how far ahead the dashboard lists scheduled operations.
const UpcomingWindow = 7 * 24 * time.Hour

// Counts holds the number of each farm resource.
type Counts struct {
	Parcels    int `json:"parcels"`
	Personnel  int `json:"personnel"`
	Equipment  int `json:"equipment"`
	Inputs     int `json:"inputs"`
	Operations int `json:"operations"`
}

// Dashboard is the landing page summary.
type Dashboard struct {
	GeneratedAt time.Time           `json:"generated_at"`
	LowStock    []farmapi.Input     `json:"low_stock"`
	Upcoming    []farmapi.Operation `json:"upcoming_operations"`
	Counts      Counts              `json:"counts"`
	// TotalAreaHa sums the server-computed parcel areas.
	TotalAreaHa float64 `json:"total_area_ha"`
}

// DashboardService assembles the dashboard.
type DashboardService interface {
	// Summary loads all lists concurrently. Any failed call fails the summary.
	Summary(ctx context.Context, sess *farmapi.Session) (*Dashboard, error)
}

type dashboardService struct {
	client FarmClient
	now    func() time.Time
	log    *logger.Logger
}

// NewDashboardService creates a new instance of DashboardService.
func NewDashboardService(client FarmClient, log *logger.Logger) DashboardService {
	return &dashboardService{client: client, now: time.Now, log: log.Component("dashboard")}
}

func (s *dashboardService) Summary(ctx context.Context, sess *farmapi.Session) (*Dashboard, error) {
	var (
		parcels    []farmapi.Parcel
		personnel  []farmapi.Personnel
		equipment  []farmapi.Equipment
		inputs     []farmapi.Input
		operations []farmapi.Operation
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		parcels, err = s.client.ListParcels(gctx, sess)
		return err
	})
	g.Go(func() (err error) {
		personnel, err = s.client.ListPersonnel(gctx, sess)
		return err
	})
	g.Go(func() (err error) {
		equipment, err = s.client.ListEquipment(gctx, sess)
		return err
	})
	g.Go(func() (err error) {
		inputs, err = s.client.ListInputs(gctx, sess)
		return err
	})
	g.Go(func() (err error) {
		operations, err = s.client.ListOperations(gctx, sess)
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Warn("Dashboard load failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, fmt.Errorf("failed to load dashboard: %w", err)
	}

	now := s.now()
	d := &Dashboard{
		GeneratedAt: now,
		Counts: Counts{
			Parcels:    len(parcels),
			Personnel:  len(personnel),
			Equipment:  len(equipment),
			Inputs:     len(inputs),
			Operations: len(operations),
		},
		TotalAreaHa: totalArea(parcels),
		LowStock:    inventory.LowStock(inputs),
		Upcoming:    s.upcoming(operations, now),
	}
	return d, nil
}

// upcoming returns operations dated from today through the window, soonest first.
// Operations with unreadable dates are left out.
func (s *dashboardService) upcoming(ops []farmapi.Operation, now time.Time) []farmapi.Operation {
	y, m, d := now.UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	end := today.Add(UpcomingWindow)

	type dated struct {
		at time.Time
		op farmapi.Operation
	}
	var found []dated
	for _, op := range ops {
		at, err := op.ScheduledOn()
		if err != nil {
			s.log.Debug("Skipping operation with unreadable date", map[string]interface{}{
				"operation_id": op.ID,
				"date":         op.Date,
			})
			continue
		}
		if !at.Before(today) && !at.After(end) {
			found = append(found, dated{at: at, op: op})
		}
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].at.Before(found[j].at) })

	out := make([]farmapi.Operation, 0, len(found))
	for _, d := range found {
		out = append(out, d.op)
	}
	return out
}

func totalArea(parcels []farmapi.Parcel) float64 {
	var sum float64
	for _, p := range parcels {
		if p.Area != nil {
			sum += *p.Area
		}
	}
	return math.Round(sum*100) / 100
}
