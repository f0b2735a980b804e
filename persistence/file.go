package persistence

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/wfunc/phrasegame/logger"
	"github.com/wfunc/phrasegame/models"
)

const (
	roomsFile = "rooms.json"
	statsFile = "stats.json"
)

// FileStore keeps rooms.json and stats.json under one directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) LoadRooms() ([]*models.Room, error) {
	var byID map[string]*models.Room
	found, err := s.read(roomsFile, &byID)
	if err != nil || !found {
		if !found {
			logger.Log.Info("No rooms file found, starting fresh")
		}
		return nil, err
	}

	rooms := make([]*models.Room, 0, len(byID))
	for id, r := range byID {
		if r == nil {
			continue
		}
		if r.ID == "" {
			r.ID = id
		}
		rooms = append(rooms, r)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].CreatedAt.Before(rooms[j].CreatedAt) })
	logger.Log.Infof("Loaded %d rooms from %s", len(rooms), s.dir)
	return rooms, nil
}

func (s *FileStore) SaveRooms(rooms []*models.Room) error {
	byID := make(map[string]*models.Room, len(rooms))
	for _, r := range rooms {
		byID[r.ID] = r
	}
	return s.write(roomsFile, byID)
}

func (s *FileStore) LoadStats() (models.Stats, error) {
	var stats models.Stats
	_, err := s.read(statsFile, &stats)
	return stats, err
}

func (s *FileStore) SaveStats(stats models.Stats) error {
	return s.write(statsFile, stats)
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) read(name string, v interface{}) (bool, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(data, v)
}

func (s *FileStore) write(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
