package main

import (
	"database/sql"
	_ "embed"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// DB is the query layer over the SQLite store. Every statement is
// parameterized; callers never hand in query fragments. The injected
// opCounter records one increment per operation call.
type DB struct {
	conn *sqlx.DB
	ops  opCounter
}

func openDB(path string) (*sqlx.DB, error) {
	return sqlx.Open("sqlite3", path)
}

func newDB(conn *sqlx.DB, ops opCounter) *DB {
	if ops == nil {
		ops = nopCounter{}
	}
	return &DB{conn: conn, ops: ops}
}

// Init creates the tables if they do not exist yet.
func (d *DB) Init() error {
	_, err := d.conn.Exec(schemaSQL)
	return err
}

func (d *DB) Close() error {
	return d.conn.Close()
}

// UserID looks up the id for a username. Returns ErrNotFound if the
// username is not registered.
func (d *DB) UserID(username string) (int64, error) {
	d.ops.inc(opUserID)
	var id int64
	err := d.conn.Get(&id, "SELECT user_id FROM user WHERE username = ?", username)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return id, err
}

func (d *DB) UserByID(id int64) (*User, error) {
	d.ops.inc(opUserByID)
	var u User
	err := d.conn.Get(&u, "SELECT user_id, username, email, pw_hash FROM user WHERE user_id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UserByUsername fetches the full user row, hash included. Login uses
// it to get the candidate hash for verification.
func (d *DB) UserByUsername(username string) (*User, error) {
	d.ops.inc(opUserByUsername)
	var u User
	err := d.conn.Get(&u, "SELECT user_id, username, email, pw_hash FROM user WHERE username = ?", username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser registers a new user and returns its id. The username is
// checked before inserting so a duplicate yields ErrUsernameTaken; the
// UNIQUE constraint catches the race where two registrations pass the
// check simultaneously.
func (d *DB) CreateUser(username, email, pwHash string) (int64, error) {
	d.ops.inc(opCreateUser)
	if _, err := d.UserID(username); err == nil {
		return 0, ErrUsernameTaken
	} else if !errors.Is(err, ErrNotFound) {
		return 0, err
	}

	res, err := d.conn.Exec("INSERT INTO user (username, email, pw_hash) VALUES (?, ?, ?)",
		username, email, pwHash)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return 0, ErrUsernameTaken
		}
		return 0, err
	}
	return res.LastInsertId()
}

// CreateMessage records a new unflagged message. Empty text is
// rejected with ErrEmptyText.
func (d *DB) CreateMessage(authorID int64, text string, pubDate int64) (int64, error) {
	d.ops.inc(opCreateMessage)
	if text == "" {
		return 0, ErrEmptyText
	}
	res, err := d.conn.Exec("INSERT INTO message (author_id, text, pub_date, flagged) VALUES (?, ?, ?, 0)",
		authorID, text, pubDate)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (d *DB) IsFollowing(whoID, whomID int64) (bool, error) {
	d.ops.inc(opIsFollowing)
	var exists int
	err := d.conn.Get(&exists, "SELECT 1 FROM follower WHERE who_id = ? AND whom_id = ?", whoID, whomID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Follow adds a follow edge. A duplicate edge is a no-op; the follower
// table's composite primary key keeps the pair unique.
func (d *DB) Follow(whoID, whomID int64) error {
	d.ops.inc(opFollow)
	_, err := d.conn.Exec("INSERT OR IGNORE INTO follower (who_id, whom_id) VALUES (?, ?)", whoID, whomID)
	return err
}

// Unfollow removes a follow edge. Removing an absent edge is a no-op.
func (d *DB) Unfollow(whoID, whomID int64) error {
	d.ops.inc(opUnfollow)
	_, err := d.conn.Exec("DELETE FROM follower WHERE who_id = ? AND whom_id = ?", whoID, whomID)
	return err
}

const messageColumns = `message.message_id, message.author_id, message.text,
		message.pub_date, message.flagged, user.username, user.email`

// Messages returns one timeline page. Flagged messages never appear.
// Ordering is newest first with message_id as tie-break, so pages are
// stable across identical timestamps. Pages past the end are empty.
func (d *DB) Messages(sc scope, subjectID int64, page, perPage int) ([]Message, error) {
	d.ops.inc(opMessages)
	if page < 0 {
		page = 0
	}
	offset := page * perPage

	var query string
	var args []interface{}
	switch sc {
	case scopePublic:
		query = `SELECT ` + messageColumns + `
			FROM message JOIN user ON message.author_id = user.user_id
			WHERE message.flagged = 0
			ORDER BY message.pub_date DESC, message.message_id DESC
			LIMIT ? OFFSET ?`
		args = []interface{}{perPage, offset}
	case scopeHome:
		query = `SELECT ` + messageColumns + `
			FROM message JOIN user ON message.author_id = user.user_id
			WHERE message.flagged = 0 AND (
				user.user_id = ? OR
				user.user_id IN (SELECT whom_id FROM follower WHERE who_id = ?))
			ORDER BY message.pub_date DESC, message.message_id DESC
			LIMIT ? OFFSET ?`
		args = []interface{}{subjectID, subjectID, perPage, offset}
	case scopeProfile:
		query = `SELECT ` + messageColumns + `
			FROM message JOIN user ON message.author_id = user.user_id
			WHERE message.flagged = 0 AND user.user_id = ?
			ORDER BY message.pub_date DESC, message.message_id DESC
			LIMIT ? OFFSET ?`
		args = []interface{}{subjectID, perPage, offset}
	}

	var messages []Message
	if err := d.conn.Select(&messages, query, args...); err != nil {
		return nil, err
	}
	return messages, nil
}
