/*
Package store is the durable storage layer for accounts, buddy relationships
and message history, backed by PostgreSQL. It also keeps the durable side of
presence (the is_online flag and last_seen_at), parallel to but independent of
the in-memory tracker in the im package.

PG satisfies the narrow im.Store interface consumed by the hub; the request
layer uses the full surface.
*/
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"retroim/internal/app/db"
	"retroim/internal/app/im"
	"retroim/internal/app/user"
	"retroim/internal/pkg/randx"
)

// ErrNotFound is returned when a referenced user, buddy row or message does
// not exist.
var ErrNotFound = errors.New("store: not found")

// PG implements the storage collaborator on a pgx connection pool.
type PG struct {
	pool *pgxpool.Pool
}

// New wraps an initialized pool.
func New(pool *pgxpool.Pool) *PG {
	return &PG{pool: pool}
}

const userColumns = `id, screen_name, status, away_message, profile_text, buddy_icon_url, created_at`

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.ScreenName, &u.Status, &u.AwayMessage, &u.ProfileText, &u.BuddyIconURL, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return user.User{}, ErrNotFound
	}
	if err != nil {
		return user.User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

// GetUser fetches a user by id.
func (p *PG) GetUser(ctx context.Context, id int64) (user.User, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetUserByScreenName fetches a user by screen name, case-insensitively.
func (p *PG) GetUserByScreenName(ctx context.Context, screenName string) (user.User, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(screen_name) = lower($1)`, screenName)
	return scanUser(row)
}

// CreateUser inserts a new account. A unique violation on screen_name is
// surfaced as-is so callers can map it to a conflict response.
func (p *PG) CreateUser(ctx context.Context, screenName, passwordHash string) (user.User, error) {
	row := p.pool.QueryRow(ctx,
		`INSERT INTO users (screen_name, password_hash) VALUES ($1, $2) RETURNING `+userColumns,
		screenName, passwordHash)
	return scanUser(row)
}

// GetCredentials returns the user record plus the stored password hash for
// sign-on verification.
func (p *PG) GetCredentials(ctx context.Context, screenName string) (user.User, string, error) {
	var u user.User
	var hash string
	err := p.pool.QueryRow(ctx,
		`SELECT `+userColumns+`, password_hash FROM users WHERE lower(screen_name) = lower($1)`, screenName).
		Scan(&u.ID, &u.ScreenName, &u.Status, &u.AwayMessage, &u.ProfileText, &u.BuddyIconURL, &u.CreatedAt, &hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return user.User{}, "", ErrNotFound
	}
	if err != nil {
		return user.User{}, "", fmt.Errorf("get credentials: %w", err)
	}
	return u, hash, nil
}

// UpdateUserPassword replaces the stored password hash.
func (p *PG) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	tag, err := p.pool.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateUserProfile updates the profile blurb and buddy icon.
func (p *PG) UpdateUserProfile(ctx context.Context, id int64, profileText, buddyIconURL string) (user.User, error) {
	row := p.pool.QueryRow(ctx,
		`UPDATE users SET profile_text = $2, buddy_icon_url = $3 WHERE id = $1 RETURNING `+userColumns,
		id, profileText, buddyIconURL)
	return scanUser(row)
}

// UpdateUserStatus updates the advertised status and away message.
func (p *PG) UpdateUserStatus(ctx context.Context, id int64, status user.Status, awayMessage string) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE users SET status = $2, away_message = $3 WHERE id = $1`, id, status, awayMessage)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetUserOnline sets the durable online flag.
func (p *PG) SetUserOnline(ctx context.Context, id int64) error {
	_, err := p.pool.Exec(ctx, `UPDATE users SET is_online = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("set online: %w", err)
	}
	return nil
}

// SetUserOffline clears the durable online flag and records last_seen_at.
func (p *PG) SetUserOffline(ctx context.Context, id int64) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE users SET is_online = FALSE, last_seen_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("set offline: %w", err)
	}
	return nil
}

// GetBuddyList returns the owner's buddy list with each buddy's identity,
// durable presence fields and the owner's per-buddy preferences.
func (p *PG) GetBuddyList(ctx context.Context, ownerID int64) ([]user.BuddyEntry, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT u.id, u.screen_name, u.status, u.away_message, u.profile_text, u.buddy_icon_url, u.created_at,
		       b.group_name, b.enable_alerts, b.custom_sound_alert
		FROM buddies b
		JOIN users u ON u.id = b.buddy_id
		WHERE b.owner_id = $1
		ORDER BY b.group_name, lower(u.screen_name)`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("get buddy list: %w", err)
	}
	defer rows.Close()

	var entries []user.BuddyEntry
	for rows.Next() {
		var e user.BuddyEntry
		var customSound pgtype.Text
		err := rows.Scan(&e.ID, &e.ScreenName, &e.Status, &e.AwayMessage, &e.ProfileText, &e.BuddyIconURL, &e.CreatedAt,
			&e.GroupName, &e.EnableAlerts, &customSound)
		if err != nil {
			return nil, fmt.Errorf("scan buddy entry: %w", err)
		}
		e.CustomSoundAlert = customSound.String
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// AddBuddy adds buddyID to ownerID's list under the given group.
func (p *PG) AddBuddy(ctx context.Context, ownerID, buddyID int64, groupName string) error {
	if groupName == "" {
		groupName = "Buddies"
	}
	_, err := p.pool.Exec(ctx,
		`INSERT INTO buddies (owner_id, buddy_id, group_name) VALUES ($1, $2, $3)`,
		ownerID, buddyID, groupName)
	if err != nil {
		return fmt.Errorf("add buddy: %w", err)
	}
	return nil
}

// RemoveBuddy removes buddyID from ownerID's list.
func (p *PG) RemoveBuddy(ctx context.Context, ownerID, buddyID int64) error {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM buddies WHERE owner_id = $1 AND buddy_id = $2`, ownerID, buddyID)
	if err != nil {
		return fmt.Errorf("remove buddy: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetBuddyAlertSettings returns the observer's alert preference for the
// subject. An observer with no stored preference gets the defaults; that is a
// branch, not an error.
func (p *PG) GetBuddyAlertSettings(ctx context.Context, observerID, subjectID int64) (im.AlertSettings, error) {
	var enable bool
	var customSound pgtype.Text
	err := p.pool.QueryRow(ctx,
		`SELECT enable_alerts, custom_sound_alert FROM buddies WHERE owner_id = $1 AND buddy_id = $2`,
		observerID, subjectID).Scan(&enable, &customSound)
	if errors.Is(err, pgx.ErrNoRows) {
		return im.DefaultAlertSettings(), nil
	}
	if err != nil {
		return im.AlertSettings{}, fmt.Errorf("get alert settings: %w", err)
	}
	return im.AlertSettings{EnableAlerts: enable, CustomSoundAlert: customSound.String}, nil
}

// UpdateBuddyAlertSettings stores the observer's alert preference for the subject.
func (p *PG) UpdateBuddyAlertSettings(ctx context.Context, observerID, subjectID int64, settings im.AlertSettings) error {
	customSound := pgtype.Text{String: settings.CustomSoundAlert, Valid: settings.CustomSoundAlert != ""}
	tag, err := p.pool.Exec(ctx,
		`UPDATE buddies SET enable_alerts = $3, custom_sound_alert = $4 WHERE owner_id = $1 AND buddy_id = $2`,
		observerID, subjectID, settings.EnableAlerts, customSound)
	if err != nil {
		return fmt.Errorf("update alert settings: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveMessage persists a submitted message and returns the canonical stored
// record with its generated id and timestamp.
func (p *PG) SaveMessage(ctx context.Context, in im.IncomingMessage) (im.Message, error) {
	var formatting []byte
	if in.Formatting != nil {
		var err error
		formatting, err = json.Marshal(in.Formatting)
		if err != nil {
			return im.Message{}, fmt.Errorf("marshal formatting: %w", err)
		}
	}

	msg := im.Message{
		ID:         randx.MessageID(),
		FromUserID: in.FromUserID,
		ToUserID:   in.ToUserID,
		Content:    in.Content,
		Formatting: in.Formatting,
		ImageURL:   in.ImageURL,
	}

	err := p.pool.QueryRow(ctx, `
		INSERT INTO messages (id, sender_id, recipient_id, content, formatting, image_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING sent_at`,
		msg.ID, msg.FromUserID, msg.ToUserID, msg.Content, formatting, msg.ImageURL).
		Scan(&msg.SentAt)
	if db.IsForeignKeyViolation(err) {
		return im.Message{}, fmt.Errorf("save message: %w", ErrNotFound)
	}
	if err != nil {
		return im.Message{}, fmt.Errorf("save message: %w", err)
	}

	return msg, nil
}

// GetConversation returns the most recent messages between two users, newest
// last.
func (p *PG) GetConversation(ctx context.Context, userID, buddyID int64, limit int) ([]im.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := p.pool.Query(ctx, `
		SELECT id, sender_id, recipient_id, content, formatting, image_url, read, sent_at
		FROM (
			SELECT * FROM messages
			WHERE (sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1)
			ORDER BY sent_at DESC
			LIMIT $3
		) recent
		ORDER BY sent_at ASC`, userID, buddyID, limit)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	defer rows.Close()

	var msgs []im.Message
	for rows.Next() {
		var m im.Message
		var formatting []byte
		if err := rows.Scan(&m.ID, &m.FromUserID, &m.ToUserID, &m.Content, &formatting, &m.ImageURL, &m.Read, &m.SentAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if len(formatting) > 0 {
			var f im.Formatting
			if err := json.Unmarshal(formatting, &f); err == nil {
				m.Formatting = &f
			}
		}
		msgs = append(msgs, m)
	}

	return msgs, rows.Err()
}

// MarkConversationRead marks every message from senderID to readerID as read.
func (p *PG) MarkConversationRead(ctx context.Context, readerID, senderID int64) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE messages SET read = TRUE WHERE recipient_id = $1 AND sender_id = $2 AND NOT read`,
		readerID, senderID)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}
