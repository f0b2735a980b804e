// services/stats_service.go
package services

import (
	"sync"

	"github.com/wfunc/phrasegame/logger"
	"github.com/wfunc/phrasegame/models"
	"github.com/wfunc/phrasegame/persistence"
)

// ConnectionCounter reports the number of live transport connections.
type ConnectionCounter interface {
	Count() int
}

// PhraseCounter reports the catalog size per language.
type PhraseCounter interface {
	Counts() map[string]int
}

// StatsService 统计峰值连接数和累计游戏局数
type StatsService struct {
	store       persistence.Store
	connections ConnectionCounter
	phrases     PhraseCounter
	stats       models.Stats
	mutex       sync.Mutex
}

func NewStatsService(store persistence.Store, connections ConnectionCounter, phrases PhraseCounter) *StatsService {
	return &StatsService{
		store:       store,
		connections: connections,
		phrases:     phrases,
	}
}

// Load 从存储恢复持久化的计数
func (s *StatsService) Load() error {
	stats, err := s.store.LoadStats()
	if err != nil {
		return err
	}
	s.mutex.Lock()
	s.stats = stats
	s.mutex.Unlock()
	return nil
}

// ObserveConnections 读取当前连接数并更新峰值
func (s *StatsService) ObserveConnections() int {
	current := s.connections.Count()

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if current > s.stats.MaxConnectedPlayers {
		s.stats.MaxConnectedPlayers = current
		s.persist()
	}
	return current
}

// GameStarted 累计游戏局数
func (s *StatsService) GameStarted() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.stats.TotalGamesPlayed++
	s.persist()
}

func (s *StatsService) Stats() models.Stats {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.stats
}

// Snapshot 返回 stats:update 使用的快照
func (s *StatsService) Snapshot() models.StatsSnapshot {
	current := s.ObserveConnections()

	s.mutex.Lock()
	stats := s.stats
	s.mutex.Unlock()

	var counts map[string]int
	if s.phrases != nil {
		counts = s.phrases.Counts()
	}
	return models.StatsSnapshot{
		ConnectedPlayers:    current,
		MaxConnectedPlayers: stats.MaxConnectedPlayers,
		TotalGamesPlayed:    stats.TotalGamesPlayed,
		PhrasesCount:        counts,
	}
}

// persist 需要持有锁
func (s *StatsService) persist() {
	if err := s.store.SaveStats(s.stats); err != nil {
		logger.Log.Errorw("failed to save stats", "error", err)
	}
}
