// Package models defines the persisted records of Quire.
package models

// Note is a user-authored rich-text record.
//
// Time is a Unix timestamp in seconds, refreshed on every save. Files is
// derived from Content at save time and never edited directly.
type Note struct {
	ID      string   `json:"id"`
	Content string   `json:"content"`
	Time    int64    `json:"time"`
	Deleted bool     `json:"deleted"`
	Files   []string `json:"files"`
}

// Config is the singleton operator record. Its presence marks the
// application as initialized.
type Config struct {
	Password string `json:"password"`
	Secret   string `json:"secret"`
}
