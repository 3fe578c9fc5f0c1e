package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Merrick1307/chat-core/internal/domain/model"
)

var _ MessageStore = (*SQLiteStore)(nil)

// SQLiteStore implements MessageStore with modernc.org/sqlite, grounded
// on the store facade idiom of the teacher's sibling example and the
// exact query shapes of the original service's messaging.py.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLite opens (creating if necessary) a WAL-mode SQLite database at
// dbPath and runs schema migrations.
func NewSQLite(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	dsn := dbPath
	if dbPath == ":memory:" {
		// A bare ":memory:" DSN gives each new connection its own
		// throwaway database under modernc.org/sqlite; shared cache
		// keeps every pooled connection pointed at the same one.
		dsn = "file::memory:?cache=shared"
	} else {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("store: create database directory: %w", err)
		}
		dsn = dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("store: ping database: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("store: initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	const schema = `
	PRAGMA busy_timeout = 5000;

	CREATE TABLE IF NOT EXISTS users (
		user_id  TEXT PRIMARY KEY,
		username TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		message_id   TEXT PRIMARY KEY,
		sender_id    TEXT NOT NULL,
		recipient_id TEXT NOT NULL,
		content      TEXT NOT NULL,
		message_type TEXT NOT NULL DEFAULT 'text',
		created_at   INTEGER NOT NULL,
		delivered_at INTEGER,
		read_at      INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation
		ON messages(sender_id, recipient_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_messages_unread
		ON messages(recipient_id, read_at);

	CREATE TABLE IF NOT EXISTS groups (
		group_id   TEXT PRIMARY KEY,
		group_name TEXT NOT NULL,
		creator_id TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS group_members (
		group_id  TEXT NOT NULL,
		user_id   TEXT NOT NULL,
		role      TEXT NOT NULL DEFAULT 'member',
		joined_at INTEGER NOT NULL,
		PRIMARY KEY (group_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS group_messages (
		message_id   TEXT PRIMARY KEY,
		group_id     TEXT NOT NULL,
		sender_id    TEXT NOT NULL,
		content      TEXT NOT NULL,
		message_type TEXT NOT NULL DEFAULT 'text',
		created_at   INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_group_messages_group
		ON group_messages(group_id, created_at);

	CREATE TABLE IF NOT EXISTS group_message_reads (
		message_id TEXT NOT NULL,
		user_id    TEXT NOT NULL,
		read_at    INTEGER NOT NULL,
		PRIMARY KEY (message_id, user_id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) SaveDirectMessage(ctx context.Context, msg *model.Message) error {
	const query = `
		INSERT INTO messages (message_id, sender_id, recipient_id, content, message_type, created_at, delivered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	var deliveredAt any
	if msg.DeliveredAt != 0 {
		deliveredAt = msg.DeliveredAt
	}

	_, err := s.db.ExecContext(ctx, query,
		msg.ID.String(), msg.SenderID.String(), msg.RecipientID.String(),
		msg.Content, msg.Kind, msg.CreatedAt, deliveredAt,
	)
	if err != nil {
		return fmt.Errorf("store: save direct message: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetMessage(ctx context.Context, messageID uuid.UUID) (*model.Message, error) {
	const query = `
		SELECT message_id, sender_id, recipient_id, content, message_type,
		       created_at, delivered_at, read_at
		FROM messages WHERE message_id = ?`

	row := s.db.QueryRowContext(ctx, query, messageID.String())
	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get message: %w", err)
	}
	return msg, nil
}

func (s *SQLiteStore) GetConversation(ctx context.Context, userA, userB uuid.UUID, limit, offset int) ([]*model.Message, error) {
	const query = `
		SELECT message_id, sender_id, recipient_id, content, message_type,
		       created_at, delivered_at, read_at
		FROM messages
		WHERE (sender_id = ? AND recipient_id = ?)
		   OR (sender_id = ? AND recipient_id = ?)
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`

	rows, err := s.db.QueryContext(ctx, query,
		userA.String(), userB.String(), userB.String(), userA.String(), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("store: get conversation: %w", err)
	}
	defer rows.Close()

	var out []*model.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan conversation row: %w", err)
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetUnreadMessages(ctx context.Context, userID uuid.UUID) ([]*model.Message, error) {
	const query = `
		SELECT message_id, sender_id, recipient_id, content, message_type,
		       created_at, delivered_at, read_at
		FROM messages
		WHERE recipient_id = ? AND read_at IS NULL
		ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("store: get unread messages: %w", err)
	}
	defer rows.Close()

	var out []*model.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan unread row: %w", err)
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) MarkDelivered(ctx context.Context, messageID uuid.UUID) (bool, error) {
	const query = `
		UPDATE messages SET delivered_at = ?
		WHERE message_id = ? AND delivered_at IS NULL`

	res, err := s.db.ExecContext(ctx, query, time.Now().UnixMilli(), messageID.String())
	if err != nil {
		return false, fmt.Errorf("store: mark delivered: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *SQLiteStore) MarkRead(ctx context.Context, messageID, userID uuid.UUID) (bool, error) {
	const query = `
		UPDATE messages SET read_at = ?
		WHERE message_id = ? AND recipient_id = ? AND read_at IS NULL`

	res, err := s.db.ExecContext(ctx, query, time.Now().UnixMilli(), messageID.String(), userID.String())
	if err != nil {
		return false, fmt.Errorf("store: mark read: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *SQLiteStore) CreateGroup(ctx context.Context, group *model.Group, memberIDs []uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin create group tx: %w", err)
	}
	defer tx.Rollback()

	const insertGroup = `
		INSERT INTO groups (group_id, group_name, creator_id, created_at)
		VALUES (?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, insertGroup,
		group.ID.String(), group.Name, group.CreatorID.String(), group.CreatedAt); err != nil {
		return fmt.Errorf("store: insert group: %w", err)
	}

	const insertMember = `
		INSERT INTO group_members (group_id, user_id, role, joined_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(group_id, user_id) DO NOTHING`

	now := group.CreatedAt
	if _, err := tx.ExecContext(ctx, insertMember,
		group.ID.String(), group.CreatorID.String(), model.RoleCreator, now); err != nil {
		return fmt.Errorf("store: insert creator membership: %w", err)
	}
	for _, memberID := range memberIDs {
		if memberID == group.CreatorID {
			continue
		}
		if _, err := tx.ExecContext(ctx, insertMember,
			group.ID.String(), memberID.String(), model.RoleMember, now); err != nil {
			return fmt.Errorf("store: insert member: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) AddMember(ctx context.Context, groupID, userID uuid.UUID, role model.MemberRole) error {
	const query = `
		INSERT INTO group_members (group_id, user_id, role, joined_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(group_id, user_id) DO NOTHING`

	_, err := s.db.ExecContext(ctx, query, groupID.String(), userID.String(), role, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("store: add member: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error {
	const query = `DELETE FROM group_members WHERE group_id = ? AND user_id = ?`
	_, err := s.db.ExecContext(ctx, query, groupID.String(), userID.String())
	if err != nil {
		return fmt.Errorf("store: remove member: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetGroup(ctx context.Context, groupID uuid.UUID) (*model.Group, error) {
	const query = `
		SELECT group_id, group_name, creator_id, created_at
		FROM groups WHERE group_id = ?`

	var g model.Group
	var id, creatorID string
	err := s.db.QueryRowContext(ctx, query, groupID.String()).Scan(&id, &g.Name, &creatorID, &g.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get group: %w", err)
	}
	g.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("store: parse group id: %w", err)
	}
	g.CreatorID, err = uuid.Parse(creatorID)
	if err != nil {
		return nil, fmt.Errorf("store: parse creator id: %w", err)
	}
	return &g, nil
}

func (s *SQLiteStore) GetGroupMembers(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, error) {
	const query = `SELECT user_id FROM group_members WHERE group_id = ?`
	rows, err := s.db.QueryContext(ctx, query, groupID.String())
	if err != nil {
		return nil, fmt.Errorf("store: get group members: %w", err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("store: scan member id: %w", err)
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("store: parse member id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	const query = `SELECT 1 FROM group_members WHERE group_id = ? AND user_id = ?`
	var dummy int
	err := s.db.QueryRowContext(ctx, query, groupID.String(), userID.String()).Scan(&dummy)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: is member: %w", err)
	}
	return true, nil
}

func (s *SQLiteStore) SaveGroupMessage(ctx context.Context, msg *model.GroupMessage) error {
	const query = `
		INSERT INTO group_messages (message_id, group_id, sender_id, content, message_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		msg.ID.String(), msg.GroupID.String(), msg.SenderID.String(), msg.Content, msg.Kind, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: save group message: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetGroupMessage(ctx context.Context, messageID uuid.UUID) (*model.GroupMessage, error) {
	const query = `
		SELECT message_id, group_id, sender_id, content, message_type, created_at
		FROM group_messages WHERE message_id = ?`

	row := s.db.QueryRowContext(ctx, query, messageID.String())
	msg, err := scanGroupMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get group message: %w", err)
	}
	return msg, nil
}

func (s *SQLiteStore) GetGroupMessages(ctx context.Context, groupID uuid.UUID, limit, offset int) ([]*model.GroupMessage, error) {
	const query = `
		SELECT message_id, group_id, sender_id, content, message_type, created_at
		FROM group_messages
		WHERE group_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`

	rows, err := s.db.QueryContext(ctx, query, groupID.String(), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("store: get group messages: %w", err)
	}
	defer rows.Close()

	var out []*model.GroupMessage
	for rows.Next() {
		msg, err := scanGroupMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan group message row: %w", err)
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) MarkGroupMessageRead(ctx context.Context, messageID, userID uuid.UUID) (bool, error) {
	const query = `
		INSERT INTO group_message_reads (message_id, user_id, read_at)
		VALUES (?, ?, ?)
		ON CONFLICT(message_id, user_id) DO NOTHING`

	res, err := s.db.ExecContext(ctx, query, messageID.String(), userID.String(), time.Now().UnixMilli())
	if err != nil {
		return false, fmt.Errorf("store: mark group message read: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *SQLiteStore) GetUnreadGroupMessages(ctx context.Context, groupID, userID uuid.UUID) ([]*model.GroupMessage, error) {
	const query = `
		SELECT gm.message_id, gm.group_id, gm.sender_id, gm.content, gm.message_type, gm.created_at
		FROM group_messages gm
		LEFT JOIN group_message_reads gmr
			ON gm.message_id = gmr.message_id AND gmr.user_id = ?
		WHERE gm.group_id = ?
		  AND gm.sender_id != ?
		  AND gmr.message_id IS NULL
		ORDER BY gm.created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, userID.String(), groupID.String(), userID.String())
	if err != nil {
		return nil, fmt.Errorf("store: get unread group messages: %w", err)
	}
	defer rows.Close()

	var out []*model.GroupMessage
	for rows.Next() {
		msg, err := scanGroupMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan unread group message row: %w", err)
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetUsername(ctx context.Context, userID uuid.UUID) (string, error) {
	const query = `SELECT username FROM users WHERE user_id = ?`
	var username string
	err := s.db.QueryRowContext(ctx, query, userID.String()).Scan(&username)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: get username: %w", err)
	}
	return username, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*model.Message, error) {
	var m model.Message
	var id, senderID, recipientID string
	var deliveredAt, readAt sql.NullInt64

	if err := row.Scan(&id, &senderID, &recipientID, &m.Content, &m.Kind,
		&m.CreatedAt, &deliveredAt, &readAt); err != nil {
		return nil, err
	}

	var err error
	if m.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if m.SenderID, err = uuid.Parse(senderID); err != nil {
		return nil, err
	}
	if m.RecipientID, err = uuid.Parse(recipientID); err != nil {
		return nil, err
	}
	m.DeliveredAt = deliveredAt.Int64
	m.ReadAt = readAt.Int64
	return &m, nil
}

func scanGroupMessage(row rowScanner) (*model.GroupMessage, error) {
	var m model.GroupMessage
	var id, groupID, senderID string

	if err := row.Scan(&id, &groupID, &senderID, &m.Content, &m.Kind, &m.CreatedAt); err != nil {
		return nil, err
	}

	var err error
	if m.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if m.GroupID, err = uuid.Parse(groupID); err != nil {
		return nil, err
	}
	if m.SenderID, err = uuid.Parse(senderID); err != nil {
		return nil, err
	}
	return &m, nil
}
