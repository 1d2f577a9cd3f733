package property

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/nivaasi/backend/internal/domain/shared"
)

// BedStatus represents the occupancy state of a bed
type BedStatus string

const (
	BedStatusAvailable BedStatus = "Available"
	BedStatusOccupied  BedStatus = "Occupied"
	BedStatusNotice    BedStatus = "Notice"
	BedStatusBlocked   BedStatus = "Blocked"
)

// IsValid checks if the bed status is valid
func (s BedStatus) IsValid() bool {
	switch s {
	case BedStatusAvailable, BedStatusOccupied, BedStatusNotice, BedStatusBlocked:
		return true
	}
	return false
}

// Bed is the atomic allocatable unit.
// TenantID is a weak reference; the tenant record is owned elsewhere.
type Bed struct {
	ID       string     `json:"bed_id"`
	Status   BedStatus  `json:"status"`
	TenantID *uuid.UUID `json:"tenant_id,omitempty"`
}

// Room groups beds. Capacity of zero means unbounded.
type Room struct {
	Number   string `json:"room_number"`
	Capacity int    `json:"capacity"`
	Beds     []Bed  `json:"beds"`
}

// Floor groups rooms.
type Floor struct {
	Name  string `json:"floor_name"`
	Rooms []Room `json:"rooms"`
}

// Floors is the ordered floor list of a property, stored as JSONB
type Floors []Floor

// Value implements driver.Valuer interface for GORM to store as JSONB
func (f Floors) Value() (driver.Value, error) {
	if f == nil {
		return "[]", nil
	}
	return json.Marshal(f)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (f *Floors) Scan(value any) error {
	if value == nil {
		*f = Floors{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan Floors: unsupported type")
	}

	if len(bytes) == 0 {
		*f = Floors{}
		return nil
	}
	return json.Unmarshal(bytes, f)
}

func (f Floors) validate() error {
	floors := make(map[string]struct{}, len(f))
	for _, floor := range f {
		if strings.TrimSpace(floor.Name) == "" {
			return shared.NewDomainError(shared.CodeValidation, "Floor name cannot be empty")
		}
		if _, dup := floors[floor.Name]; dup {
			return shared.NewDomainError(shared.CodeValidation, fmt.Sprintf("Duplicate floor %q", floor.Name))
		}
		floors[floor.Name] = struct{}{}

		rooms := make(map[string]struct{}, len(floor.Rooms))
		for _, room := range floor.Rooms {
			if strings.TrimSpace(room.Number) == "" {
				return shared.NewDomainError(shared.CodeValidation,
					fmt.Sprintf("Room number cannot be empty on floor %q", floor.Name))
			}
			if _, dup := rooms[room.Number]; dup {
				return shared.NewDomainError(shared.CodeValidation,
					fmt.Sprintf("Duplicate room %q on floor %q", room.Number, floor.Name))
			}
			rooms[room.Number] = struct{}{}
			if room.Capacity < 0 {
				return shared.NewDomainError(shared.CodeValidation, "Room capacity cannot be negative")
			}
			if room.Capacity > 0 && len(room.Beds) > room.Capacity {
				return shared.NewDomainError(shared.CodeValidation,
					fmt.Sprintf("Room %q has %d beds but capacity %d", room.Number, len(room.Beds), room.Capacity))
			}

			beds := make(map[string]struct{}, len(room.Beds))
			for _, bed := range room.Beds {
				if strings.TrimSpace(bed.ID) == "" {
					return shared.NewDomainError(shared.CodeValidation,
						fmt.Sprintf("Bed ID cannot be empty in room %q", room.Number))
				}
				if _, dup := beds[bed.ID]; dup {
					return shared.NewDomainError(shared.CodeValidation,
						fmt.Sprintf("Duplicate bed %q in room %q", bed.ID, room.Number))
				}
				beds[bed.ID] = struct{}{}
			}
		}
	}
	return nil
}

// BedLocation identifies a bed inside a property.
type BedLocation struct {
	FloorName  string `json:"floor_name"`
	RoomNumber string `json:"room_number"`
	BedID      string `json:"bed_id"`
}

// String renders the location as floor/room/bed.
func (l BedLocation) String() string {
	return l.FloorName + "/" + l.RoomNumber + "/" + l.BedID
}

// OccupancyStats holds bed counts by status. Always derived, never stored.
type OccupancyStats struct {
	Total     int `json:"total"`
	Available int `json:"available"`
	Occupied  int `json:"occupied"`
	Notice    int `json:"notice"`
	Blocked   int `json:"blocked"`
}
