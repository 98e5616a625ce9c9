package model

import "time"

// AuthSession is the locally persisted user session. At most one row exists;
// the bearer token is the only part the backend ever sees again.
type AuthSession struct {
	ID        uint `gorm:"primaryKey"`
	Token     string
	UserID    string
	Email     string
	ExpiresAt *time.Time
	UpdatedAt time.Time
}

// GroupSelection remembers the group the user last worked in. The selection is
// UI state only and is re-validated against the freshest group list on load.
type GroupSelection struct {
	ID        uint `gorm:"primaryKey"`
	GroupID   int
	UpdatedAt time.Time
}

// LocalTeam is a client-local roster grouping scoped to a group. It has no
// server-side counterpart and can diverge from the backend player records.
type LocalTeam struct {
	ID        string `gorm:"primaryKey"`
	GroupID   int    `gorm:"index"`
	Name      string
	Players   []LocalTeamPlayer `gorm:"foreignKey:TeamID"`
	CreatedAt time.Time
}

type LocalTeamPlayer struct {
	TeamID     string `gorm:"primaryKey"`
	PlayerID   int    `gorm:"primaryKey"`
	Name       string
	Backnumber string
	Team       *LocalTeam `gorm:"foreignKey:TeamID;references:ID"`
}

// CachedGroup mirrors the backend group catalog so screens can render a group
// list while the backend is unreachable. Refreshed by cron.
type CachedGroup struct {
	ID          int `gorm:"primaryKey"`
	Name        string
	Description string
}

// CachedLogItem mirrors the backend action catalog per group.
type CachedLogItem struct {
	ID      int `gorm:"primaryKey"`
	GroupID int `gorm:"index"`
	Name    string
	Value   int
}
