package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stwalsh4118/farmboard/internal/editor"
	"github.com/stwalsh4118/farmboard/internal/farmapi"
	"github.com/stwalsh4118/farmboard/internal/geo"
	"github.com/stwalsh4118/farmboard/internal/logger"
)

// ParcelDetails are the form fields submitted with a drawn boundary.
type ParcelDetails struct {
	Name     string `json:"name" binding:"required,max=255"`
	Culture  string `json:"culture" binding:"max=100"`
	SoilType string `json:"soil_type" binding:"max=100"`
}

// ParcelService reads parcels and turns editor drafts into Farm API parcels.
type ParcelService interface {
	// ListParcels returns every parcel visible to the session.
	ListParcels(ctx context.Context, sess *farmapi.Session) ([]farmapi.Parcel, error)

	// GetParcel returns one parcel. A 404 from the API is returned as a
	// farmapi.APIError; see farmapi.IsNotFound.
	GetParcel(ctx context.Context, sess *farmapi.Session, id farmapi.ID) (*farmapi.Parcel, error)

	// Submit sends the editor session's committed ring with details to the Farm
	// API: an update when the session edits an existing parcel, a create
	// otherwise. A created parcel is attached to the session.
	// Returns ErrSessionNotFound, ErrNotCommitted, validator.ValidationErrors or
	// an error wrapping farmapi.ErrInvalidBoundary before any network call.
	Submit(ctx context.Context, sess *farmapi.Session, sessionID string, details ParcelDetails) (*farmapi.Parcel, error)

	// DeleteParcel removes a parcel.
	DeleteParcel(ctx context.Context, sess *farmapi.Session, id farmapi.ID) error
}

type parcelService struct {
	client  FarmClient
	editors EditorService
	log     *logger.Logger
}

// NewParcelService creates a new instance of ParcelService.
func NewParcelService(client FarmClient, editors EditorService, log *logger.Logger) ParcelService {
	return &parcelService{
		client:  client,
		editors: editors,
		log:     log.Component("parcels"),
	}
}

func (s *parcelService) ListParcels(ctx context.Context, sess *farmapi.Session) ([]farmapi.Parcel, error) {
	parcels, err := s.client.ListParcels(ctx, sess)
	if err != nil {
		return nil, fmt.Errorf("failed to list parcels: %w", err)
	}
	s.log.Debug("Parcels listed", map[string]interface{}{
		"count": len(parcels),
	})
	return parcels, nil
}

func (s *parcelService) GetParcel(ctx context.Context, sess *farmapi.Session, id farmapi.ID) (*farmapi.Parcel, error) {
	parcel, err := s.client.GetParcel(ctx, sess, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get parcel %s: %w", id, err)
	}
	return parcel, nil
}

func (s *parcelService) Submit(ctx context.Context, sess *farmapi.Session, sessionID string, details ParcelDetails) (*farmapi.Parcel, error) {
	session, err := s.editors.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.State.Mode != editor.ModeCommitted || !session.State.HasRing() {
		s.log.Warn("Submit without committed boundary", map[string]interface{}{
			"session_id": sessionID,
			"mode":       session.State.Mode,
		})
		return nil, fmt.Errorf("%w: session is %s", ErrNotCommitted, session.State.Mode)
	}

	in := farmapi.ParcelInput{
		Name:     strings.TrimSpace(details.Name),
		Culture:  strings.TrimSpace(details.Culture),
		SoilType: strings.TrimSpace(details.SoilType),
		Boundary: geo.Boundary{Ring: session.State.Ring},
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var parcel *farmapi.Parcel
	if session.ParcelID != "" {
		parcel, err = s.client.UpdateParcel(ctx, sess, farmapi.ID(session.ParcelID), in)
	} else {
		parcel, err = s.client.CreateParcel(ctx, sess, in)
	}
	if err != nil {
		s.log.Warn("Parcel submission failed", map[string]interface{}{
			"session_id": sessionID,
			"parcel_id":  session.ParcelID,
			"error":      err.Error(),
		})
		return nil, fmt.Errorf("failed to submit parcel: %w", err)
	}

	if session.ParcelID == "" {
		if err := s.editors.AttachParcel(ctx, sessionID, string(parcel.ID)); err != nil && !errors.Is(err, ErrSessionNotFound) {
			// The parcel was created upstream, so the submit still succeeds
			s.log.Error("Failed to attach parcel to session", err, map[string]interface{}{
				"session_id": sessionID,
				"parcel_id":  parcel.ID,
			})
		}
	}

	s.log.Info("Parcel submitted", map[string]interface{}{
		"session_id": sessionID,
		"parcel_id":  parcel.ID,
		"name":       parcel.Name,
		"measured":   session.State.Measurement.Area,
	})
	return parcel, nil
}

func (s *parcelService) DeleteParcel(ctx context.Context, sess *farmapi.Session, id farmapi.ID) error {
	if err := s.client.DeleteParcel(ctx, sess, id); err != nil {
		return fmt.Errorf("failed to delete parcel %s: %w", id, err)
	}
	s.log.Info("Parcel deleted", map[string]interface{}{
		"parcel_id": id,
	})
	return nil
}
