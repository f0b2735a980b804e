// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq" // PostgreSQL 驱动
	"github.com/wfunc/phrasegame/models"
)

const queryTimeout = 5 * time.Second

// PostgreSQL 基于 lib/pq 的会话存储
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname, sslmode string) (*PostgreSQL, error) {
	db, err := sql.Open("postgres", DSN(host, port, user, password, dbname, sslmode))
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构，与 GORM 存储使用同一套表
func initTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS rooms (
            id BIGSERIAL PRIMARY KEY,
            room_id TEXT UNIQUE NOT NULL,
            name TEXT NOT NULL,
            language TEXT NOT NULL,
            state TEXT NOT NULL,
            snapshot JSONB NOT NULL,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS server_stats (
            id BIGSERIAL PRIMARY KEY,
            max_connected_players BIGINT DEFAULT 0,
            total_games_played BIGINT DEFAULT 0,
            updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
        )
    `)
	return err
}

// LoadRooms 加载所有房间快照
func (p *PostgreSQL) LoadRooms() ([]*models.Room, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := p.db.QueryContext(ctx, `SELECT snapshot FROM rooms ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []*models.Room
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var r models.Room
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, err
		}
		rooms = append(rooms, &r)
	}
	return rooms, rows.Err()
}

// SaveRooms 用当前快照替换房间表：更新存在的，删除已经消失的
func (p *PostgreSQL) SaveRooms(rooms []*models.Room) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ids := make([]string, 0, len(rooms))
	for _, r := range rooms {
		snapshot, err := json.Marshal(r)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
            INSERT INTO rooms (room_id, name, language, state, snapshot)
            VALUES ($1, $2, $3, $4, $5)
            ON CONFLICT (room_id)
            DO UPDATE SET name = $2, language = $3, state = $4, snapshot = $5, updated_at = CURRENT_TIMESTAMP
        `, r.ID, r.Name, r.Language, string(r.GameState), snapshot)
		if err != nil {
			return err
		}
		ids = append(ids, r.ID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE NOT (room_id = ANY($1))`, pq.Array(ids)); err != nil {
		return err
	}
	return tx.Commit()
}

// LoadStats 加载统计，没有记录时返回零值
func (p *PostgreSQL) LoadStats() (models.Stats, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var stats models.Stats
	err := p.db.QueryRowContext(ctx,
		`SELECT max_connected_players, total_games_played FROM server_stats WHERE id = 1`,
	).Scan(&stats.MaxConnectedPlayers, &stats.TotalGamesPlayed)
	if err == sql.ErrNoRows {
		return models.Stats{}, nil
	}
	return stats, err
}

// SaveStats 保存统计
func (p *PostgreSQL) SaveStats(stats models.Stats) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	_, err := p.db.ExecContext(ctx, `
        INSERT INTO server_stats (id, max_connected_players, total_games_played)
        VALUES (1, $1, $2)
        ON CONFLICT (id)
        DO UPDATE SET max_connected_players = $1, total_games_played = $2, updated_at = CURRENT_TIMESTAMP
    `, stats.MaxConnectedPlayers, stats.TotalGamesPlayed)
	return err
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
