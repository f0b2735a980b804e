// persistence/gorm_postgresql.go
package persistence

import (
	"errors"
	"time"

	"github.com/wfunc/phrasegame/logger"
	"github.com/wfunc/phrasegame/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/clause"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// gormWriter 把 GORM 日志转到 zap
type gormWriter struct{}

func (gormWriter) Printf(format string, args ...interface{}) {
	logger.Log.Infof(format, args...)
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(dsn string) (*GormPostgreSQL, error) {
	gormLogger := gormlogger.New(
		gormWriter{},
		gormlogger.Config{
			SlowThreshold:             time.Second, // 慢SQL阈值
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	// 获取通用数据库对象 sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	if err := db.AutoMigrate(&models.GormRoom{}, &models.GormStats{}); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

// LoadRooms 加载所有房间快照
func (p *GormPostgreSQL) LoadRooms() ([]*models.Room, error) {
	var rows []models.GormRoom
	if err := p.db.Order("created_at").Find(&rows).Error; err != nil {
		return nil, err
	}

	rooms := make([]*models.Room, 0, len(rows))
	for i := range rows {
		r := rows[i].Snapshot
		rooms = append(rooms, &r)
	}
	return rooms, nil
}

// SaveRooms 在一个事务里 upsert 当前房间并删除已消失的房间
func (p *GormPostgreSQL) SaveRooms(rooms []*models.Room) error {
	return p.db.Transaction(func(tx *gorm.DB) error {
		ids := make([]string, 0, len(rooms))
		for _, r := range rooms {
			row := models.GormRoom{
				RoomID:   r.ID,
				Name:     r.Name,
				Language: r.Language,
				State:    string(r.GameState),
				Snapshot: *r,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "room_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "language", "state", "snapshot", "updated_at"}),
			}).Create(&row).Error
			if err != nil {
				return err
			}
			ids = append(ids, r.ID)
		}

		stale := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		if len(ids) > 0 {
			stale = stale.Where("room_id NOT IN ?", ids)
		}
		return stale.Delete(&models.GormRoom{}).Error
	})
}

// LoadStats 加载统计，没有记录时返回零值
func (p *GormPostgreSQL) LoadStats() (models.Stats, error) {
	var row models.GormStats
	if err := p.db.First(&row, 1).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Stats{}, nil
		}
		return models.Stats{}, err
	}
	return models.Stats{
		MaxConnectedPlayers: row.MaxConnectedPlayers,
		TotalGamesPlayed:    row.TotalGamesPlayed,
	}, nil
}

// SaveStats 保存统计
func (p *GormPostgreSQL) SaveStats(stats models.Stats) error {
	row := models.GormStats{
		ID:                  1,
		MaxConnectedPlayers: stats.MaxConnectedPlayers,
		TotalGamesPlayed:    stats.TotalGamesPlayed,
	}
	return p.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"max_connected_players", "total_games_played", "updated_at"}),
	}).Create(&row).Error
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
