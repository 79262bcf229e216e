package repository

import "time"

type Repositories struct {
	Room RoomRepository
}

func NewRepositories(now func() time.Time) *Repositories {
	return &Repositories{
		Room: NewRoomRepository(now),
	}
}
