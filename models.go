package main

// User represents a registered user.
type User struct {
	UserID   int64  `db:"user_id"`
	Username string `db:"username"`
	Email    string `db:"email"`
	PwHash   string `db:"pw_hash"`
}

// Message is a posted message joined with its author's user row,
// as the timeline views render it.
type Message struct {
	MessageID int64  `db:"message_id"`
	AuthorID  int64  `db:"author_id"`
	Text      string `db:"text"`
	PubDate   int64  `db:"pub_date"`
	Flagged   int    `db:"flagged"`
	Username  string `db:"username"`
	Email     string `db:"email"`
}
