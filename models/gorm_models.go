// models/gorm_models.go
package models

import (
	"time"
)

// GormRoom 房间快照表
type GormRoom struct {
	ID        uint      `gorm:"primaryKey"`
	RoomID    string    `gorm:"uniqueIndex;not null"`
	Name      string    `gorm:"not null"`
	Language  string    `gorm:"not null"`
	State     string    `gorm:"not null"`
	Snapshot  Room      `gorm:"serializer:json;type:jsonb;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (GormRoom) TableName() string {
	return "rooms"
}

// GormStats 服务器统计，只有一行
type GormStats struct {
	ID                  uint  `gorm:"primaryKey"`
	MaxConnectedPlayers int   `gorm:"default:0"`
	TotalGamesPlayed    int64 `gorm:"default:0"`
	UpdatedAt           time.Time
}

func (GormStats) TableName() string {
	return "server_stats"
}
