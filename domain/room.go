package domain

type RoomID int64

// RoomDetails is the durable description of a room.
type RoomDetails struct {
	ID        RoomID
	Name      string
	IsPrivate bool
}

// RoomStats pairs the live member count with the durable message count.
type RoomStats struct {
	ActiveMembers int
	TotalMessages int
}
