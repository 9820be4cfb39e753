package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/stwalsh4118/farmboard/internal/farmapi"
	"github.com/stwalsh4118/farmboard/internal/logger"
	"github.com/stwalsh4118/farmboard/internal/mapview"
)

// MapService builds the map canvas from the farm's parcels, equipment and
// personnel.
type MapService interface {
	// Entities fetches everything that can appear on the map.
	Entities(ctx context.Context, sess *farmapi.Session) ([]mapview.Entity, error)

	// View computes the canvas view: markers, polygons, center and zoom.
	View(ctx context.Context, sess *farmapi.Session) (mapview.View, error)
}

type mapService struct {
	client FarmClient
	log    *logger.Logger
	opts   mapview.Options
}

// NewMapService creates a new instance of MapService.
func NewMapService(client FarmClient, opts mapview.Options, log *logger.Logger) MapService {
	return &mapService{client: client, opts: opts, log: log.Component("map")}
}

func (s *mapService) Entities(ctx context.Context, sess *farmapi.Session) ([]mapview.Entity, error) {
	var (
		parcels   []farmapi.Parcel
		equipment []farmapi.Equipment
		personnel []farmapi.Personnel
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		parcels, err = s.client.ListParcels(gctx, sess)
		return err
	})
	g.Go(func() (err error) {
		equipment, err = s.client.ListEquipment(gctx, sess)
		return err
	})
	g.Go(func() (err error) {
		personnel, err = s.client.ListPersonnel(gctx, sess)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load map entities: %w", err)
	}

	entities := make([]mapview.Entity, 0, len(parcels)+len(equipment)+len(personnel))
	for _, p := range parcels {
		entities = append(entities, mapview.Entity{
			ID:   string(p.ID),
			Name: p.Name,
			Kind: mapview.KindParcel,
			Ring: p.Boundary.Ring,
		})
	}
	for _, e := range equipment {
		entities = append(entities, mapview.Entity{
			ID:    string(e.ID),
			Name:  e.Name,
			Kind:  mapview.KindEquipment,
			Point: farmapi.Position(e.Latitude, e.Longitude),
		})
	}
	for _, p := range personnel {
		entities = append(entities, mapview.Entity{
			ID:    string(p.ID),
			Name:  p.FullName(),
			Kind:  mapview.KindPersonnel,
			Point: farmapi.Position(p.Latitude, p.Longitude),
		})
	}
	return entities, nil
}

func (s *mapService) View(ctx context.Context, sess *farmapi.Session) (mapview.View, error) {
	entities, err := s.Entities(ctx, sess)
	if err != nil {
		return mapview.View{}, err
	}

	view := mapview.Compute(entities, s.opts)
	s.log.Debug("Map view computed", map[string]interface{}{
		"entities": len(entities),
		"markers":  len(view.Markers),
		"polygons": len(view.Polygons),
		"zoom":     view.Zoom,
	})
	return view, nil
}
