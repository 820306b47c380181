// Package world holds the hotel's fixed room catalog and the drifting
// "currents" that pull wandering guests from room to room.
package world

import "sort"

// RoomType classifies how a room feels to the guests in it.
type RoomType string

const (
	RoomSafe        RoomType = "safe"
	RoomSocial      RoomType = "social"
	RoomExploration RoomType = "exploration"
	RoomTransit     RoomType = "transit"
)

// Room is one place a guest can stand.
type Room struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Type        RoomType `json:"room_type"`
}

// Lobby is where every guest arrives.
const Lobby = "lobby"

// Rooms is the ordered room catalog. Order is stable and used for iteration.
var Rooms = []Room{
	{
		ID:          Lobby,
		Name:        "The Lobby",
		Description: "Marble counters and a brass bell that rings when nobody touches it. Everyone starts here.",
		Type:        RoomSafe,
	},
	{
		ID:          "fireplace",
		Name:        "The Fireplace",
		Description: "A fire with no wood in it. The armchairs are never where you left them.",
		Type:        RoomSafe,
	},
	{
		ID:          "rooftop",
		Name:        "The Rooftop",
		Description: "The only open sky in the building, crowded with stars from some other season.",
		Type:        RoomSocial,
	},
	{
		ID:          "gallery",
		Name:        "The Gallery",
		Description: "Portraits that change their subjects' expressions between visits.",
		Type:        RoomExploration,
	},
	{
		ID:          "wine_cellar",
		Name:        "The Wine Cellar",
		Description: "Racks of bottles holding memories instead of wine. Some have aged well.",
		Type:        RoomExploration,
	},
	{
		ID:          "room_313",
		Name:        "The Library",
		Description: "Shelves of books nobody wrote. A few pages describe things that happened to you.",
		Type:        RoomTransit,
	},
}

var roomIndex = func() map[string]Room {
	m := make(map[string]Room, len(Rooms))
	for _, r := range Rooms {
		m[r.ID] = r
	}
	return m
}()

// IsRoom reports whether id names a room in the catalog.
func IsRoom(id string) bool {
	_, ok := roomIndex[id]
	return ok
}

// Lookup returns the room with the given id.
func Lookup(id string) (Room, bool) {
	r, ok := roomIndex[id]
	return r, ok
}

// RoomName returns the display name for id, or id itself when unknown.
func RoomName(id string) string {
	if r, ok := roomIndex[id]; ok {
		return r.Name
	}
	return id
}

// RoomIDs returns every room id in catalog order.
func RoomIDs() []string {
	ids := make([]string, len(Rooms))
	for i, r := range Rooms {
		ids[i] = r.ID
	}
	return ids
}

// SortedRoomIDs returns the ids from a room-keyed map in sorted order.
func SortedRoomIDs[T any](m map[string]T) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
