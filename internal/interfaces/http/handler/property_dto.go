package handler

import (
	"time"

	"github.com/nivaasi/backend/internal/domain/property"
)

// BedRequest describes one bed in an initial layout
type BedRequest struct {
	BedID  string `json:"bed_id" binding:"required,max=50"`
	Status string `json:"status" binding:"omitempty,oneof=Available Blocked"`
}

// RoomRequest describes one room in an initial layout
type RoomRequest struct {
	RoomNumber string       `json:"room_number" binding:"required,max=50"`
	Capacity   int          `json:"capacity" binding:"gte=0"`
	Beds       []BedRequest `json:"beds" binding:"dive"`
}

// FloorRequest describes one floor in an initial layout
type FloorRequest struct {
	FloorName string        `json:"floor_name" binding:"required,max=100"`
	Rooms     []RoomRequest `json:"rooms" binding:"dive"`
}

// CreatePropertyRequest registers a property with its floor -> room -> bed tree
type CreatePropertyRequest struct {
	Name          string         `json:"name" binding:"required,min=1,max=200"`
	Address       string         `json:"address" binding:"max=500"`
	ContactNumber string         `json:"contact_number" binding:"max=20"`
	Floors        []FloorRequest `json:"floors" binding:"dive"`
}

func (r CreatePropertyRequest) toFloors() []property.Floor {
	floors := make([]property.Floor, len(r.Floors))
	for fi, f := range r.Floors {
		floors[fi] = property.Floor{Name: f.FloorName, Rooms: make([]property.Room, len(f.Rooms))}
		for ri, room := range f.Rooms {
			beds := make([]property.Bed, len(room.Beds))
			for bi, b := range room.Beds {
				beds[bi] = property.Bed{ID: b.BedID, Status: property.BedStatus(b.Status)}
			}
			floors[fi].Rooms[ri] = property.Room{Number: room.RoomNumber, Capacity: room.Capacity, Beds: beds}
		}
	}
	return floors
}

// UpdatePropertyRequest replaces the descriptive fields of a property
type UpdatePropertyRequest struct {
	Name          string `json:"name" binding:"required,min=1,max=200"`
	Address       string `json:"address" binding:"max=500"`
	ContactNumber string `json:"contact_number" binding:"max=20"`
}

// AddFloorRequest appends an empty floor
type AddFloorRequest struct {
	FloorName string `json:"floor_name" binding:"required,max=100"`
}

// AddRoomRequest appends an empty room to a floor
type AddRoomRequest struct {
	RoomNumber string `json:"room_number" binding:"required,max=50"`
	Capacity   int    `json:"capacity" binding:"gte=0"`
}

// AddBedRequest appends an Available bed to a room
type AddBedRequest struct {
	BedID string `json:"bed_id" binding:"required,max=50"`
}

// BedLocationRequest addresses a bed inside a property
type BedLocationRequest struct {
	FloorName  string `json:"floor_name" binding:"required"`
	RoomNumber string `json:"room_number" binding:"required"`
	BedID      string `json:"bed_id" binding:"required"`
}

func (r BedLocationRequest) location() property.BedLocation {
	return property.BedLocation{FloorName: r.FloorName, RoomNumber: r.RoomNumber, BedID: r.BedID}
}

// PropertyResponse is the API view of a property including derived occupancy counts
type PropertyResponse struct {
	ID            string                  `json:"id"`
	Name          string                  `json:"name"`
	Address       string                  `json:"address"`
	ContactNumber string                  `json:"contact_number"`
	Floors        []property.Floor        `json:"floors"`
	Stats         property.OccupancyStats `json:"stats"`
	Version       int                     `json:"version"`
	CreatedAt     time.Time               `json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`
}

func toPropertyResponse(p *property.Property) PropertyResponse {
	floors := []property.Floor(p.Floors)
	if floors == nil {
		floors = []property.Floor{}
	}
	return PropertyResponse{
		ID:            p.ID.String(),
		Name:          p.Name,
		Address:       p.Address,
		ContactNumber: p.ContactNumber,
		Floors:        floors,
		Stats:         p.Stats(),
		Version:       p.GetVersion(),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func toPropertyResponses(items []property.Property) []PropertyResponse {
	out := make([]PropertyResponse, len(items))
	for i := range items {
		out[i] = toPropertyResponse(&items[i])
	}
	return out
}
