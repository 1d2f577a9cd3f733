package property

import (
	"context"

	"github.com/google/uuid"
	"github.com/nivaasi/backend/internal/application/tenancy"
	"github.com/nivaasi/backend/internal/domain/property"
	"github.com/nivaasi/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// PropertyService handles property registration and layout edits.
// Bed occupancy changes go through the tenancy coordinator; this service only blocks and unblocks beds.
type PropertyService struct {
	repo           property.PropertyRepository
	locker         tenancy.Locker
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewPropertyService creates a new PropertyService
func NewPropertyService(repo property.PropertyRepository, locker tenancy.Locker, logger *zap.Logger) *PropertyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PropertyService{repo: repo, locker: locker, logger: logger.Named("property")}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *PropertyService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// CreatePropertyInput describes a new property and its initial layout
type CreatePropertyInput struct {
	Name          string
	Address       string
	ContactNumber string
	Floors        []property.Floor
}

// Create registers a property
func (s *PropertyService) Create(ctx context.Context, in CreatePropertyInput) (*property.Property, error) {
	p, err := property.NewProperty(in.Name, in.Address, in.ContactNumber, in.Floors)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("Property created",
		zap.String("property_id", p.ID.String()),
		zap.Int("beds", p.Stats().Total))
	s.publishDomainEvents(ctx, p)
	return p, nil
}

// GetByID returns a property
func (s *PropertyService) GetByID(ctx context.Context, id uuid.UUID) (*property.Property, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns one page of properties and the total match count
func (s *PropertyService) List(ctx context.Context, filter shared.Filter) ([]property.Property, int64, error) {
	items, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// UpdateDetails changes name, address and contact number
func (s *PropertyService) UpdateDetails(ctx context.Context, id uuid.UUID, name, address, contact string) (*property.Property, error) {
	return s.mutate(ctx, id, func(p *property.Property) error {
		return p.UpdateDetails(name, address, contact)
	})
}

// AddFloor appends an empty floor
func (s *PropertyService) AddFloor(ctx context.Context, id uuid.UUID, name string) (*property.Property, error) {
	return s.mutate(ctx, id, func(p *property.Property) error {
		return p.AddFloor(name)
	})
}

// AddRoom appends an empty room to a floor
func (s *PropertyService) AddRoom(ctx context.Context, id uuid.UUID, floorName, roomNumber string, capacity int) (*property.Property, error) {
	return s.mutate(ctx, id, func(p *property.Property) error {
		return p.AddRoom(floorName, roomNumber, capacity)
	})
}

// AddBed appends an Available bed to a room
func (s *PropertyService) AddBed(ctx context.Context, id uuid.UUID, floorName, roomNumber, bedID string) (*property.Property, error) {
	return s.mutate(ctx, id, func(p *property.Property) error {
		return p.AddBed(floorName, roomNumber, bedID)
	})
}

// BlockBed takes an Available bed out of circulation
func (s *PropertyService) BlockBed(ctx context.Context, id uuid.UUID, loc property.BedLocation) (*property.Property, error) {
	return s.mutate(ctx, id, func(p *property.Property) error {
		return p.Block(loc)
	})
}

// UnblockBed returns a Blocked bed to Available
func (s *PropertyService) UnblockBed(ctx context.Context, id uuid.UUID, loc property.BedLocation) (*property.Property, error) {
	return s.mutate(ctx, id, func(p *property.Property) error {
		return p.Unblock(loc)
	})
}

// Delete removes a property that has no residents
func (s *PropertyService) Delete(ctx context.Context, id uuid.UUID) error {
	unlock, err := s.locker.Lock(ctx, tenancy.PropertyLockKey(id))
	if err != nil {
		return err
	}
	defer unlock()

	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := p.EnsureDeletable(); err != nil {
		return err
	}
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Property deleted", zap.String("property_id", id.String()))
	return nil
}

// mutate applies fn to a freshly loaded property under its lock and saves it
func (s *PropertyService) mutate(ctx context.Context, id uuid.UUID, fn func(p *property.Property) error) (*property.Property, error) {
	unlock, err := s.locker.Lock(ctx, tenancy.PropertyLockKey(id))
	if err != nil {
		return nil, err
	}
	defer unlock()

	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	before := p.UpdatedAt
	if err := fn(p); err != nil {
		return nil, err
	}
	if p.UpdatedAt.Equal(before) {
		// no-op transitions such as blocking a Blocked bed
		return p, nil
	}
	if err := s.repo.SaveWithLock(ctx, p); err != nil {
		if shared.HasCode(err, shared.CodeOptimisticLockFailed) {
			return nil, shared.WrapDomainError(shared.CodeConflict, "Concurrent modification, retry the operation", err)
		}
		return nil, err
	}
	s.publishDomainEvents(ctx, p)
	return p, nil
}

// publishDomainEvents publishes all domain events from the property
func (s *PropertyService) publishDomainEvents(ctx context.Context, p *property.Property) {
	if s.eventPublisher == nil {
		return
	}
	events := p.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	// Publish events (errors are logged by the event bus, not propagated)
	_ = s.eventPublisher.Publish(ctx, events...)
	// Clear events after publishing
	p.ClearDomainEvents()
}
