// Package uuid issues the time-ordered identifiers used as primary keys.
package uuid

import (
	googleuuid "github.com/google/uuid"
)

// New returns a UUIDv7 string. Version 7 sorts by creation time, which keeps
// primary key inserts append-only.
func New() string {
	id, err := googleuuid.NewV7()
	if err != nil {
		return googleuuid.NewString()
	}
	return id.String()
}

// Canonical parses s and returns it in lower-case hyphenated form.
func Canonical(s string) (string, error) {
	id, err := googleuuid.Parse(s)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
