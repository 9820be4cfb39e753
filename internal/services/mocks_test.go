package services

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/stwalsh4118/farmboard/internal/events"
	"github.com/stwalsh4118/farmboard/internal/farmapi"
	"github.com/stwalsh4118/farmboard/internal/repository"
)

// MockFarmClient is a mock implementation of FarmClient for testing
type MockFarmClient struct {
	mock.Mock
}

func (m *MockFarmClient) Register(ctx context.Context, reg farmapi.Registration) (*farmapi.User, error) {
	args := m.Called(ctx, reg)
	user, _ := args.Get(0).(*farmapi.User)
	return user, args.Error(1)
}

func (m *MockFarmClient) Login(ctx context.Context, creds farmapi.Credentials) (farmapi.Tokens, error) {
	args := m.Called(ctx, creds)
	return args.Get(0).(farmapi.Tokens), args.Error(1)
}

func (m *MockFarmClient) RefreshTokens(ctx context.Context, refresh string) (farmapi.Tokens, error) {
	args := m.Called(ctx, refresh)
	return args.Get(0).(farmapi.Tokens), args.Error(1)
}

func (m *MockFarmClient) ListParcels(ctx context.Context, sess *farmapi.Session) ([]farmapi.Parcel, error) {
	args := m.Called(ctx, sess)
	parcels, _ := args.Get(0).([]farmapi.Parcel)
	return parcels, args.Error(1)
}

func (m *MockFarmClient) GetParcel(ctx context.Context, sess *farmapi.Session, id farmapi.ID) (*farmapi.Parcel, error) {
	args := m.Called(ctx, sess, id)
	parcel, _ := args.Get(0).(*farmapi.Parcel)
	return parcel, args.Error(1)
}

func (m *MockFarmClient) CreateParcel(ctx context.Context, sess *farmapi.Session, in farmapi.ParcelInput) (*farmapi.Parcel, error) {
	args := m.Called(ctx, sess, in)
	parcel, _ := args.Get(0).(*farmapi.Parcel)
	return parcel, args.Error(1)
}

func (m *MockFarmClient) UpdateParcel(ctx context.Context, sess *farmapi.Session, id farmapi.ID, in farmapi.ParcelInput) (*farmapi.Parcel, error) {
	args := m.Called(ctx, sess, id, in)
	parcel, _ := args.Get(0).(*farmapi.Parcel)
	return parcel, args.Error(1)
}

func (m *MockFarmClient) DeleteParcel(ctx context.Context, sess *farmapi.Session, id farmapi.ID) error {
	return m.Called(ctx, sess, id).Error(0)
}

func (m *MockFarmClient) ListPersonnel(ctx context.Context, sess *farmapi.Session) ([]farmapi.Personnel, error) {
	args := m.Called(ctx, sess)
	personnel, _ := args.Get(0).([]farmapi.Personnel)
	return personnel, args.Error(1)
}

func (m *MockFarmClient) ListEquipment(ctx context.Context, sess *farmapi.Session) ([]farmapi.Equipment, error) {
	args := m.Called(ctx, sess)
	equipment, _ := args.Get(0).([]farmapi.Equipment)
	return equipment, args.Error(1)
}

func (m *MockFarmClient) ListInputs(ctx context.Context, sess *farmapi.Session) ([]farmapi.Input, error) {
	args := m.Called(ctx, sess)
	inputs, _ := args.Get(0).([]farmapi.Input)
	return inputs, args.Error(1)
}

func (m *MockFarmClient) ListOperations(ctx context.Context, sess *farmapi.Session) ([]farmapi.Operation, error) {
	args := m.Called(ctx, sess)
	ops, _ := args.Get(0).([]farmapi.Operation)
	return ops, args.Error(1)
}

// recordingPublisher collects boundary events. err, when set, fails every publish.
type recordingPublisher struct {
	err    error
	events []events.BoundaryEvent
	mu     sync.Mutex
}

func (p *recordingPublisher) PublishBoundary(_ context.Context, e events.BoundaryEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() {}

func (p *recordingPublisher) published() []events.BoundaryEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.BoundaryEvent(nil), p.events...)
}

// MockBoundarySessionRepository is a mock implementation of
// repository.BoundarySessionRepository for testing failure paths
type MockBoundarySessionRepository struct {
	mock.Mock
}

func (m *MockBoundarySessionRepository) Create(ctx context.Context, s *repository.BoundarySession) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockBoundarySessionRepository) FindByID(ctx context.Context, id string) (*repository.BoundarySession, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(*repository.BoundarySession)
	return s, args.Error(1)
}

func (m *MockBoundarySessionRepository) Save(ctx context.Context, s *repository.BoundarySession) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockBoundarySessionRepository) AttachParcel(ctx context.Context, id, parcelID string) error {
	return m.Called(ctx, id, parcelID).Error(0)
}

func (m *MockBoundarySessionRepository) Delete(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockBoundarySessionRepository) Touch(ctx context.Context, ids []string) error {
	return m.Called(ctx, ids).Error(0)
}

func (m *MockBoundarySessionRepository) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}
