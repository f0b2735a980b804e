// persistence/store.go
package persistence

import (
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/wfunc/phrasegame/config"
	"github.com/wfunc/phrasegame/models"
)

// Store 会话存储接口。没有后端存储也是合法的配置。
type Store interface {
	LoadRooms() ([]*models.Room, error)
	SaveRooms(rooms []*models.Room) error
	LoadStats() (models.Stats, error)
	SaveStats(stats models.Stats) error
	Close() error
}

// NopStore keeps nothing: rooms start empty and stats start at zero.
type NopStore struct{}

func (NopStore) LoadRooms() ([]*models.Room, error)  { return nil, nil }
func (NopStore) SaveRooms(rooms []*models.Room) error { return nil }
func (NopStore) LoadStats() (models.Stats, error)     { return models.Stats{}, nil }
func (NopStore) SaveStats(stats models.Stats) error   { return nil }
func (NopStore) Close() error                         { return nil }

// New 根据配置创建存储，非 none 的存储都包一层防抖写入
func New(cfg config.PersistenceConfig, db config.PostgresConfig, clock clockwork.Clock) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if (driver == "" || driver == "none") && cfg.Path != "" {
		driver = "file"
	}

	var (
		store Store
		err   error
	)
	switch driver {
	case "", "none":
		return NopStore{}, nil
	case "file":
		store, err = NewFileStore(cfg.Path)
	case "postgres":
		store, err = NewPostgreSQL(db.Host, db.Port, db.User, db.Password, db.DBName, db.SSLMode)
	case "gorm":
		store, err = NewGormPostgreSQL(DSN(db.Host, db.Port, db.User, db.Password, db.DBName, db.SSLMode))
	default:
		return nil, fmt.Errorf("unknown persistence driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.SaveDelay > 0 {
		store = NewDebounced(store, clock, cfg.SaveDelay)
	}
	return store, nil
}

// DSN builds a key/value PostgreSQL connection string.
func DSN(host string, port int, user, password, dbname, sslmode string) string {
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)
}
