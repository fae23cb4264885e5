package devrelay

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/VanshAg283/FCS-Project/internal/domain"
)

var (
	errNotFound  = errors.New("not found")
	errForbidden = errors.New("forbidden")
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT NOT NULL UNIQUE,
    hashed_password TEXT NOT NULL,
    public_key TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS groups_ (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS group_members (
    group_id INTEGER NOT NULL REFERENCES groups_(id) ON DELETE CASCADE,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    PRIMARY KEY (group_id, user_id)
);
CREATE TABLE IF NOT EXISTS blocks (
    blocker_id INTEGER NOT NULL,
    blocked_id INTEGER NOT NULL,
    PRIMARY KEY (blocker_id, blocked_id)
);
CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    sender_id INTEGER NOT NULL,
    receiver_id TEXT NOT NULL,
    is_group INTEGER NOT NULL DEFAULT 0,
    envelope TEXT NOT NULL,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS messages_conv ON messages (is_group, receiver_id, sender_id);
CREATE TABLE IF NOT EXISTS attachments (
    id TEXT PRIMARY KEY,
    message_id INTEGER NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
    file_type TEXT NOT NULL,
    file_url TEXT NOT NULL
);`

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store is the relay's sqlite persistence.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

type userRow struct {
	ID             domain.UserID
	Username       string
	HashedPassword string
	PublicKey      domain.PublicKeyString
}

func (s *Store) CreateUser(username, hashedPassword string) (domain.UserID, error) {
	res, err := s.db.Exec("INSERT INTO users (username, hashed_password) VALUES (?, ?)", username, hashedPassword)
	if err != nil {
		return "", err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", err
	}
	return domain.UserID(strconv.FormatInt(id, 10)), nil
}

func (s *Store) userBy(column string, v any) (userRow, error) {
	var (
		u  userRow
		id int64
	)
	err := s.db.QueryRow(
		"SELECT id, username, hashed_password, public_key FROM users WHERE "+column+" = ?", v,
	).Scan(&id, &u.Username, &u.HashedPassword, &u.PublicKey)
	if errors.Is(err, sql.ErrNoRows) {
		return u, errNotFound
	}
	u.ID = domain.UserID(strconv.FormatInt(id, 10))
	return u, err
}

func (s *Store) UserByName(username string) (userRow, error) { return s.userBy("username", username) }

func (s *Store) User(id domain.UserID) (userRow, error) { return s.userBy("id", id.String()) }

func (s *Store) SetPublicKey(id domain.UserID, key domain.PublicKeyString) error {
	_, err := s.db.Exec("UPDATE users SET public_key = ? WHERE id = ?", key, id.String())
	return err
}

// CreateGroup creates a group holding members.
func (s *Store) CreateGroup(name string, members []domain.UserID) (domain.GroupID, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec("INSERT INTO groups_ (name) VALUES (?)", name)
	if err != nil {
		return "", err
	}
	gid, err := res.LastInsertId()
	if err != nil {
		return "", err
	}
	for _, m := range members {
		if _, err := tx.Exec(
			"INSERT OR IGNORE INTO group_members (group_id, user_id) VALUES (?, ?)", gid, m.String(),
		); err != nil {
			return "", err
		}
	}
	return groupID(gid), tx.Commit()
}

// Group ids are namespaced with a "g" prefix so a receiver string names
// either a user or a group unambiguously.
const groupPrefix = "g"

func groupID(n int64) domain.GroupID { return domain.GroupID(groupPrefix + strconv.FormatInt(n, 10)) }

// isGroupID reports whether receiver names a group.
func isGroupID(receiver string) bool { return strings.HasPrefix(receiver, groupPrefix) }

func groupKey(g domain.GroupID) string { return strings.TrimPrefix(g.String(), groupPrefix) }

func (s *Store) Members(group domain.GroupID) ([]domain.UserID, error) {
	rows, err := s.db.Query("SELECT user_id FROM group_members WHERE group_id = ? ORDER BY user_id", groupKey(group))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.UserID{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, domain.UserID(strconv.FormatInt(id, 10)))
	}
	return out, rows.Err()
}

func (s *Store) IsMember(group domain.GroupID, user domain.UserID) (bool, error) {
	var n int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM group_members WHERE group_id = ? AND user_id = ?", groupKey(group), user.String(),
	).Scan(&n)
	return n > 0, err
}

func (s *Store) Block(blocker, blocked domain.UserID) error {
	_, err := s.db.Exec(
		"INSERT OR IGNORE INTO blocks (blocker_id, blocked_id) VALUES (?, ?)", blocker.String(), blocked.String(),
	)
	return err
}

// IsBlocked reports whether recipient blocked sender.
func (s *Store) IsBlocked(recipient, sender domain.UserID) (bool, error) {
	var n int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM blocks WHERE blocker_id = ? AND blocked_id = ?", recipient.String(), sender.String(),
	).Scan(&n)
	return n > 0, err
}

// SaveMessage stores env with a relay-assigned id and timestamp.
func (s *Store) SaveMessage(
	sender domain.UserID,
	receiver string,
	group bool,
	env domain.Envelope,
	attachments []domain.Attachment,
) (domain.StoredMessage, error) {
	now := time.Now().UTC()
	env.SenderID = sender
	env.Timestamp = now
	raw, err := json.Marshal(env)
	if err != nil {
		return domain.StoredMessage{}, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return domain.StoredMessage{}, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(
		"INSERT INTO messages (sender_id, receiver_id, is_group, envelope, created_at) VALUES (?, ?, ?, ?, ?)",
		sender.String(), receiver, group, string(raw), now.Format(timeLayout),
	)
	if err != nil {
		return domain.StoredMessage{}, err
	}
	mid, err := res.LastInsertId()
	if err != nil {
		return domain.StoredMessage{}, err
	}
	for _, a := range attachments {
		if _, err := tx.Exec(
			"INSERT INTO attachments (id, message_id, file_type, file_url) VALUES (?, ?, ?, ?)",
			a.ID, mid, string(a.FileType), a.FileURL,
		); err != nil {
			return domain.StoredMessage{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.StoredMessage{}, err
	}
	return domain.StoredMessage{
		ID:          domain.MessageID(strconv.FormatInt(mid, 10)),
		SenderID:    sender,
		ReceiverID:  receiver,
		IsSender:    true,
		Envelope:    &env,
		Timestamp:   now,
		Attachments: attachments,
	}, nil
}

// Message returns one stored message as seen by viewer.
func (s *Store) Message(id domain.MessageID, viewer domain.UserID) (domain.StoredMessage, bool, error) {
	ms, err := s.queryMessages(viewer, "WHERE m.id = ?", id.String())
	if err != nil {
		return domain.StoredMessage{}, false, err
	}
	if len(ms) == 0 {
		return domain.StoredMessage{}, false, errNotFound
	}
	var group int
	if err := s.db.QueryRow("SELECT is_group FROM messages WHERE id = ?", id.String()).Scan(&group); err != nil {
		return domain.StoredMessage{}, false, err
	}
	return ms[0], group == 1, nil
}

// DirectHistory returns the messages between a and b, oldest first.
func (s *Store) DirectHistory(a, b domain.UserID) ([]domain.StoredMessage, error) {
	return s.queryMessages(a,
		"WHERE m.is_group = 0 AND ((m.sender_id = ? AND m.receiver_id = ?) OR (m.sender_id = ? AND m.receiver_id = ?))",
		a.String(), b.String(), b.String(), a.String(),
	)
}

// GroupHistory returns the messages of group, oldest first.
func (s *Store) GroupHistory(group domain.GroupID, viewer domain.UserID) ([]domain.StoredMessage, error) {
	return s.queryMessages(viewer, "WHERE m.is_group = 1 AND m.receiver_id = ?", group.String())
}

// DeleteMessage removes id if sender wrote it.
func (s *Store) DeleteMessage(id domain.MessageID, sender domain.UserID) error {
	var owner int64
	err := s.db.QueryRow("SELECT sender_id FROM messages WHERE id = ?", id.String()).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return errNotFound
	}
	if err != nil {
		return err
	}
	if strconv.FormatInt(owner, 10) != sender.String() {
		return errForbidden
	}
	_, err = s.db.Exec("DELETE FROM messages WHERE id = ?", id.String())
	return err
}

func (s *Store) queryMessages(viewer domain.UserID, where string, args ...any) ([]domain.StoredMessage, error) {
	rows, err := s.db.Query(
		"SELECT m.id, m.sender_id, m.receiver_id, m.envelope, m.created_at FROM messages m "+
			where+" ORDER BY m.created_at, m.id", args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.StoredMessage{}
	for rows.Next() {
		var (
			id, sender int64
			receiver   string
			raw, ts    string
			env        domain.Envelope
		)
		if err := rows.Scan(&id, &sender, &receiver, &raw, &ts); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			return nil, fmt.Errorf("message %d: %w", id, err)
		}
		created, err := time.Parse(timeLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", id, err)
		}
		senderID := domain.UserID(strconv.FormatInt(sender, 10))
		out = append(out, domain.StoredMessage{
			ID:         domain.MessageID(strconv.FormatInt(id, 10)),
			SenderID:   senderID,
			ReceiverID: receiver,
			IsSender:   senderID == viewer,
			Envelope:   &env,
			Timestamp:  created,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Attachments, err = s.attachments(out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) attachments(id domain.MessageID) ([]domain.Attachment, error) {
	rows, err := s.db.Query("SELECT id, file_type, file_url FROM attachments WHERE message_id = ? ORDER BY id", id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Attachment
	for rows.Next() {
		var a domain.Attachment
		if err := rows.Scan(&a.ID, &a.FileType, &a.FileURL); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
