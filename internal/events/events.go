// Package events announces committed and cleared parcel boundaries to other
// services.
package events

import (
	"context"
	"time"

	"github.com/stwalsh4118/farmboard/internal/editor"
	"github.com/stwalsh4118/farmboard/internal/logger"
	"github.com/stwalsh4118/farmboard/internal/measure"
)

// SubjectPrefix is the NATS subject root; the publication kind is appended.
const SubjectPrefix = "farm.parcel.boundary."

// BoundaryEvent is the message published for every editor publication.
type BoundaryEvent struct {
	At          time.Time              `json:"at"`
	SessionID   string                 `json:"session_id"`
	ParcelID    string                 `json:"parcel_id,omitempty"`
	Kind        editor.PublicationKind `json:"kind"`
	Measurement measure.Measurement    `json:"measurement"`
	Ring        [][]float64            `json:"ring"`
	PerimeterKm float64                `json:"perimeter_km"`
	AreaHa      float64                `json:"area_ha"`
	Revision    int                    `json:"revision"`
}

// Subject returns the subject the event is published on.
func (e BoundaryEvent) Subject() string {
	return SubjectPrefix + string(e.Kind)
}

// NewBoundaryEvent builds the message for pub. The ring is longitude-first.
func NewBoundaryEvent(sessionID, parcelID string, pub editor.Publication) BoundaryEvent {
	return BoundaryEvent{
		At:          pub.At,
		SessionID:   sessionID,
		ParcelID:    parcelID,
		Kind:        pub.Kind,
		Measurement: pub.Measurement,
		Ring:        pub.Ring.LngLat(),
		PerimeterKm: pub.Values.PerimeterKm,
		AreaHa:      pub.Values.AreaHectares,
		Revision:    pub.Revision,
	}
}

// Publisher delivers boundary events.
type Publisher interface {
	PublishBoundary(ctx context.Context, event BoundaryEvent) error
	Close()
}

// ForSession adapts p to the editor's per-session publisher, attaching the parcel
// the session edits.
func ForSession(p Publisher, parcelID string) editor.Publisher {
	return editor.PublisherFunc(func(ctx context.Context, sessionID string, pub editor.Publication) error {
		return p.PublishBoundary(ctx, NewBoundaryEvent(sessionID, parcelID, pub))
	})
}

// LogPublisher writes events to the log. It is used when no broker is configured.
type LogPublisher struct {
	log *logger.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(log *logger.Logger) *LogPublisher {
	return &LogPublisher{log: log.Component("events")}
}

// PublishBoundary logs the event.
func (p *LogPublisher) PublishBoundary(_ context.Context, event BoundaryEvent) error {
	p.log.Info("Boundary event", map[string]interface{}{
		"subject":    event.Subject(),
		"session_id": event.SessionID,
		"parcel_id":  event.ParcelID,
		"revision":   event.Revision,
		"perimeter":  event.Measurement.Perimeter,
		"area":       event.Measurement.Area,
	})
	return nil
}

// Close does nothing.
func (p *LogPublisher) Close() {}
