package directory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDirectory reads the application's relational schema through a pgx
// connection pool.
type PostgresDirectory struct {
	pool *pgxpool.Pool
}

var _ Directory = (*PostgresDirectory)(nil)

func NewPostgresDirectory(ctx context.Context, databaseURL string) (*PostgresDirectory, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresDirectory{pool: pool}, nil
}

func (d *PostgresDirectory) Close() {
	d.pool.Close()
}

func (d *PostgresDirectory) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

func (d *PostgresDirectory) FindRoomByID(ctx context.Context, roomID string) (*Room, error) {
	room := &Room{}
	err := d.pool.QueryRow(ctx, `
		SELECT id::text, owner_id::text, max_members, COALESCE(password_hash, ''), type
		FROM rooms WHERE id::text = $1
	`, roomID).Scan(&room.ID, &room.OwnerID, &room.MaxMembers, &room.PasswordHash, &room.Type)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return room, nil
}

func (d *PostgresDirectory) IsRoomMember(ctx context.Context, roomID, userID string) (bool, error) {
	var exists bool
	err := d.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM room_members
			WHERE room_id::text = $1 AND user_id::text = $2
		)
	`, roomID, userID).Scan(&exists)
	return exists, err
}

func (d *PostgresDirectory) RoomMembers(ctx context.Context, roomID string) ([]Member, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT u.id::text, u.username
		FROM room_members rm
		JOIN users u ON u.id = rm.user_id
		WHERE rm.room_id::text = $1
		ORDER BY u.username
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.Username); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (d *PostgresDirectory) FindUserByID(ctx context.Context, userID string) (*User, error) {
	user := &User{}
	err := d.pool.QueryRow(ctx, `
		SELECT id::text, username FROM users WHERE id::text = $1
	`, userID).Scan(&user.ID, &user.Username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func (d *PostgresDirectory) Friends(ctx context.Context, userID string) ([]Friend, error) {
	// Friendships are stored one row per direction; accepted rows in either
	// direction count.
	rows, err := d.pool.Query(ctx, `
		SELECT u.id::text, u.username
		FROM friendships f
		JOIN users u ON u.id = CASE WHEN f.user_id::text = $1 THEN f.friend_id ELSE f.user_id END
		WHERE (f.user_id::text = $1 OR f.friend_id::text = $1) AND f.status = 'accepted'
		ORDER BY u.username
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var friends []Friend
	for rows.Next() {
		var f Friend
		if err := rows.Scan(&f.UserID, &f.Username); err != nil {
			return nil, err
		}
		friends = append(friends, f)
	}
	return friends, rows.Err()
}

func (d *PostgresDirectory) BlockedUserIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT friend_id::text FROM friendships
		WHERE user_id::text = $1 AND status = 'blocked'
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
