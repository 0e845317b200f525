package model

import (
	"time"

	"github.com/oklog/ulid/v2"
)

type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// MigrationLogEntry records one execution attempt of a migration batch. Entries
// are only ever appended to a scope's log.
type MigrationLogEntry struct {
	ID             string    `json:"id" yaml:"id"`
	InitialVersion string    `json:"initialVersion" yaml:"initial_version"`
	TargetVersion  string    `json:"targetVersion" yaml:"target_version"`
	Direction      Direction `json:"direction" yaml:"direction"`
	CreatedAt      time.Time `json:"createdAt" yaml:"created_at"`
	Success        bool      `json:"success" yaml:"success"`
	Details        []string  `json:"details" yaml:"details"`
}

// Generate a sorted id for a new log entry
func GenerateLogEntryID() string {
	return ulid.Make().String()
}

func NewMigrationLogEntry(initial, target string, direction Direction) *MigrationLogEntry {
	return &MigrationLogEntry{
		ID:             GenerateLogEntryID(),
		InitialVersion: initial,
		TargetVersion:  target,
		Direction:      direction,
		CreatedAt:      time.Now().UTC(),
		Details:        []string{},
	}
}
