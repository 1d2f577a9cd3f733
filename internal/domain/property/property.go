package property

import (
	"fmt"
	"iter"
	"strings"

	"github.com/google/uuid"
	"github.com/nivaasi/backend/internal/domain/shared"
)

// Property is the aggregate root for a building and its floor -> room -> bed tree.
// Beds have no identity outside the property that owns them.
type Property struct {
	shared.BaseAggregateRoot
	Name          string
	Address       string
	ContactNumber string
	Floors        Floors
}

// NewProperty creates a property from its initial layout.
// Beds may only start Available or Blocked; occupancy is assigned by move-in.
func NewProperty(name, address, contactNumber string, floors []Floor) (*Property, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError(shared.CodeValidation, "Property name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError(shared.CodeValidation, "Property name cannot exceed 200 characters")
	}

	layout := make(Floors, len(floors))
	for fi, f := range floors {
		layout[fi] = Floor{Name: f.Name, Rooms: make([]Room, len(f.Rooms))}
		for ri, r := range f.Rooms {
			beds := make([]Bed, len(r.Beds))
			for bi, b := range r.Beds {
				status := b.Status
				if status == "" {
					status = BedStatusAvailable
				}
				if status != BedStatusAvailable && status != BedStatusBlocked {
					return nil, shared.NewDomainError(shared.CodeValidation,
						fmt.Sprintf("Bed %s can only be created Available or Blocked", b.ID))
				}
				beds[bi] = Bed{ID: b.ID, Status: status}
			}
			layout[fi].Rooms[ri] = Room{Number: r.Number, Capacity: r.Capacity, Beds: beds}
		}
	}
	if err := layout.validate(); err != nil {
		return nil, err
	}

	p := &Property{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Address:           strings.TrimSpace(address),
		ContactNumber:     strings.TrimSpace(contactNumber),
		Floors:            layout,
	}
	p.AddDomainEvent(NewPropertyCreatedEvent(p))
	return p, nil
}

// FindBed locates a bed by exact match on floor name, room number and bed id.
// Traversal is floor -> room -> bed in stored order and the first match wins.
func (p *Property) FindBed(loc BedLocation) (*Bed, error) {
	for fi := range p.Floors {
		floor := &p.Floors[fi]
		if floor.Name != loc.FloorName {
			continue
		}
		for ri := range floor.Rooms {
			room := &floor.Rooms[ri]
			if room.Number != loc.RoomNumber {
				continue
			}
			for bi := range room.Beds {
				if room.Beds[bi].ID == loc.BedID {
					return &room.Beds[bi], nil
				}
			}
		}
	}
	return nil, shared.NewDomainError(shared.CodeNotFound,
		fmt.Sprintf("Bed %s not found in property", loc)).
		WithDetail("property_id", p.ID.String())
}

// Occupy assigns the bed to a tenant. The bed must be Available.
func (p *Property) Occupy(loc BedLocation, tenantID uuid.UUID) error {
	if tenantID == uuid.Nil {
		return shared.NewDomainError(shared.CodeValidation, "Tenant ID cannot be empty")
	}
	bed, err := p.FindBed(loc)
	if err != nil {
		return err
	}
	if bed.Status != BedStatusAvailable {
		return shared.NewDomainError(shared.CodeConflict,
			fmt.Sprintf("Bed %s is %s, not Available", loc, bed.Status)).
			WithDetail("bed_status", string(bed.Status))
	}

	id := tenantID
	bed.Status = BedStatusOccupied
	bed.TenantID = &id
	p.touch()

	p.AddDomainEvent(NewBedOccupiedEvent(p, loc, tenantID))
	return nil
}

// Release returns the bed to Available and clears its tenant reference.
// Releasing an Available bed is a no-op.
func (p *Property) Release(loc BedLocation) error {
	bed, err := p.FindBed(loc)
	if err != nil {
		return err
	}
	if bed.Status == BedStatusAvailable && bed.TenantID == nil {
		return nil
	}

	previous := bed.TenantID
	bed.Status = BedStatusAvailable
	bed.TenantID = nil
	p.touch()

	p.AddDomainEvent(NewBedReleasedEvent(p, loc, previous))
	return nil
}

// MarkNotice moves an Occupied bed to Notice, keeping its tenant.
func (p *Property) MarkNotice(loc BedLocation) error {
	bed, err := p.FindBed(loc)
	if err != nil {
		return err
	}
	if bed.Status != BedStatusOccupied {
		return shared.NewDomainError(shared.CodeConflict,
			fmt.Sprintf("Bed %s is %s, not Occupied", loc, bed.Status)).
			WithDetail("bed_status", string(bed.Status))
	}
	if bed.TenantID == nil {
		return shared.NewDomainError(shared.CodeInconsistentState,
			fmt.Sprintf("Bed %s is Occupied without a tenant", loc))
	}

	bed.Status = BedStatusNotice
	p.touch()

	p.AddDomainEvent(NewBedNoticeMarkedEvent(p, loc, *bed.TenantID))
	return nil
}

// Block takes an Available bed out of circulation.
func (p *Property) Block(loc BedLocation) error {
	bed, err := p.FindBed(loc)
	if err != nil {
		return err
	}
	if bed.Status == BedStatusBlocked {
		return nil
	}
	if bed.Status != BedStatusAvailable {
		return shared.NewDomainError(shared.CodeConflict,
			fmt.Sprintf("Bed %s is %s and cannot be blocked", loc, bed.Status))
	}

	bed.Status = BedStatusBlocked
	p.touch()

	p.AddDomainEvent(NewBedBlockChangedEvent(p, loc, true))
	return nil
}

// Unblock returns a Blocked bed to Available.
func (p *Property) Unblock(loc BedLocation) error {
	bed, err := p.FindBed(loc)
	if err != nil {
		return err
	}
	if bed.Status != BedStatusBlocked {
		return shared.NewDomainError(shared.CodeConflict,
			fmt.Sprintf("Bed %s is %s, not Blocked", loc, bed.Status))
	}

	bed.Status = BedStatusAvailable
	p.touch()

	p.AddDomainEvent(NewBedBlockChangedEvent(p, loc, false))
	return nil
}

// Stats counts beds by status with a full traversal.
func (p *Property) Stats() OccupancyStats {
	var s OccupancyStats
	for _, bed := range p.Beds() {
		s.Total++
		switch bed.Status {
		case BedStatusAvailable:
			s.Available++
		case BedStatusOccupied:
			s.Occupied++
		case BedStatusNotice:
			s.Notice++
		case BedStatusBlocked:
			s.Blocked++
		}
	}
	return s
}

// Beds yields every bed with its location in stored order.
func (p *Property) Beds() iter.Seq2[BedLocation, Bed] {
	return func(yield func(BedLocation, Bed) bool) {
		for _, f := range p.Floors {
			for _, r := range f.Rooms {
				for _, b := range r.Beds {
					if !yield(BedLocation{FloorName: f.Name, RoomNumber: r.Number, BedID: b.ID}, b) {
						return
					}
				}
			}
		}
	}
}

// FindBedByTenant returns the location of the first bed referencing tenantID.
func (p *Property) FindBedByTenant(tenantID uuid.UUID) (BedLocation, bool) {
	for loc, bed := range p.Beds() {
		if bed.TenantID != nil && *bed.TenantID == tenantID {
			return loc, true
		}
	}
	return BedLocation{}, false
}

// HasResidents reports whether any bed is Occupied or on Notice.
func (p *Property) HasResidents() bool {
	s := p.Stats()
	return s.Occupied+s.Notice > 0
}

// UpdateDetails replaces the descriptive fields of the property.
func (p *Property) UpdateDetails(name, address, contactNumber string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError(shared.CodeValidation, "Property name cannot be empty")
	}
	p.Name = name
	p.Address = strings.TrimSpace(address)
	p.ContactNumber = strings.TrimSpace(contactNumber)
	p.touch()
	return nil
}

// AddFloor appends an empty floor.
func (p *Property) AddFloor(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError(shared.CodeValidation, "Floor name cannot be empty")
	}
	if p.floor(name) != nil {
		return shared.NewDomainError(shared.CodeAlreadyExists, fmt.Sprintf("Floor %q already exists", name))
	}
	p.Floors = append(p.Floors, Floor{Name: name, Rooms: []Room{}})
	p.touch()
	return nil
}

// AddRoom appends an empty room to an existing floor.
func (p *Property) AddRoom(floorName, roomNumber string, capacity int) error {
	roomNumber = strings.TrimSpace(roomNumber)
	if roomNumber == "" {
		return shared.NewDomainError(shared.CodeValidation, "Room number cannot be empty")
	}
	if capacity < 0 {
		return shared.NewDomainError(shared.CodeValidation, "Room capacity cannot be negative")
	}
	floor := p.floor(floorName)
	if floor == nil {
		return shared.NewDomainError(shared.CodeNotFound, fmt.Sprintf("Floor %q not found", floorName))
	}
	for _, r := range floor.Rooms {
		if r.Number == roomNumber {
			return shared.NewDomainError(shared.CodeAlreadyExists,
				fmt.Sprintf("Room %q already exists on floor %q", roomNumber, floorName))
		}
	}
	floor.Rooms = append(floor.Rooms, Room{Number: roomNumber, Capacity: capacity, Beds: []Bed{}})
	p.touch()
	return nil
}

// AddBed appends an Available bed to an existing room, honouring the room capacity.
func (p *Property) AddBed(floorName, roomNumber, bedID string) error {
	bedID = strings.TrimSpace(bedID)
	if bedID == "" {
		return shared.NewDomainError(shared.CodeValidation, "Bed ID cannot be empty")
	}
	floor := p.floor(floorName)
	if floor == nil {
		return shared.NewDomainError(shared.CodeNotFound, fmt.Sprintf("Floor %q not found", floorName))
	}
	for ri := range floor.Rooms {
		room := &floor.Rooms[ri]
		if room.Number != roomNumber {
			continue
		}
		if room.Capacity > 0 && len(room.Beds) >= room.Capacity {
			return shared.NewDomainError(shared.CodeValidation,
				fmt.Sprintf("Room %q is at capacity (%d)", roomNumber, room.Capacity))
		}
		for _, b := range room.Beds {
			if b.ID == bedID {
				return shared.NewDomainError(shared.CodeAlreadyExists,
					fmt.Sprintf("Bed %q already exists in room %q", bedID, roomNumber))
			}
		}
		room.Beds = append(room.Beds, Bed{ID: bedID, Status: BedStatusAvailable})
		p.touch()
		return nil
	}
	return shared.NewDomainError(shared.CodeNotFound,
		fmt.Sprintf("Room %q not found on floor %q", roomNumber, floorName))
}

// EnsureDeletable refuses deletion while any resident still holds a bed.
func (p *Property) EnsureDeletable() error {
	if p.HasResidents() {
		return shared.NewDomainError(shared.CodeConflict, "Property still has occupied beds")
	}
	return nil
}

// CheckInvariants verifies that a bed carries a tenant exactly when it is Occupied or on Notice.
func (p *Property) CheckInvariants() error {
	for loc, bed := range p.Beds() {
		holds := bed.Status == BedStatusOccupied || bed.Status == BedStatusNotice
		if holds != (bed.TenantID != nil) {
			return shared.NewDomainError(shared.CodeInconsistentState,
				fmt.Sprintf("Bed %s has status %s but tenant reference present=%t", loc, bed.Status, bed.TenantID != nil))
		}
	}
	return nil
}

func (p *Property) floor(name string) *Floor {
	for i := range p.Floors {
		if p.Floors[i].Name == name {
			return &p.Floors[i]
		}
	}
	return nil
}

func (p *Property) touch() {
	p.Touch()
}
