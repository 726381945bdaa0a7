// Package directory exposes the narrow read contracts the realtime engine
// needs from the application's durable store: rooms and their membership,
// user identities, accepted friendships and block lists. The engine owns none
// of that data; it only reads it through this interface.
package directory

import "context"

type Room struct {
	ID           string
	OwnerID      string
	MaxMembers   int
	PasswordHash string
	Type         string
}

type User struct {
	ID       string
	Username string
}

// Member is a durable room member; the online flag is overlaid elsewhere.
type Member struct {
	ID       string
	Username string
}

type Friend struct {
	UserID   string
	Username string
}

type Directory interface {
	// FindRoomByID returns nil when the room does not exist.
	FindRoomByID(ctx context.Context, roomID string) (*Room, error)
	IsRoomMember(ctx context.Context, roomID, userID string) (bool, error)
	RoomMembers(ctx context.Context, roomID string) ([]Member, error)
	// FindUserByID returns nil when the user does not exist.
	FindUserByID(ctx context.Context, userID string) (*User, error)
	// Friends returns accepted friendships only.
	Friends(ctx context.Context, userID string) ([]Friend, error)
	// BlockedUserIDs returns the users this user has blocked.
	BlockedUserIDs(ctx context.Context, userID string) ([]string, error)
}
