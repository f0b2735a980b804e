package persistence

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/wfunc/phrasegame/logger"
	"github.com/wfunc/phrasegame/models"
)

// Debounced coalesces saves per key: only the latest snapshot is written once no
// newer save arrived for delay. Save errors are logged and dropped.
type Debounced struct {
	inner Store
	clock clockwork.Clock
	delay time.Duration

	mutex        sync.Mutex
	pendingRooms []*models.Room
	pendingStats *models.Stats
	roomsTimer   clockwork.Timer
	statsTimer   clockwork.Timer
	hasRooms     bool
	roomsSeq     uint64
	statsSeq     uint64

	// 已写入的最新序号，旧的快照不会覆盖新的
	writeMutex   sync.Mutex
	writtenRooms uint64
	writtenStats uint64
}

func NewDebounced(inner Store, clock clockwork.Clock, delay time.Duration) *Debounced {
	return &Debounced{inner: inner, clock: clock, delay: delay}
}

func (d *Debounced) LoadRooms() ([]*models.Room, error) {
	return d.inner.LoadRooms()
}

func (d *Debounced) LoadStats() (models.Stats, error) {
	return d.inner.LoadStats()
}

func (d *Debounced) SaveRooms(rooms []*models.Room) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.pendingRooms = rooms
	d.hasRooms = true
	d.roomsSeq++
	if d.roomsTimer != nil {
		d.roomsTimer.Stop()
	}
	d.roomsTimer = d.clock.AfterFunc(d.delay, d.flushRooms)
	return nil
}

func (d *Debounced) SaveStats(stats models.Stats) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.pendingStats = &stats
	d.statsSeq++
	if d.statsTimer != nil {
		d.statsTimer.Stop()
	}
	d.statsTimer = d.clock.AfterFunc(d.delay, d.flushStats)
	return nil
}

// Flush writes any pending snapshots immediately.
func (d *Debounced) Flush() {
	d.mutex.Lock()
	if d.roomsTimer != nil {
		d.roomsTimer.Stop()
	}
	if d.statsTimer != nil {
		d.statsTimer.Stop()
	}
	d.mutex.Unlock()

	d.flushRooms()
	d.flushStats()
}

func (d *Debounced) Close() error {
	d.Flush()
	return d.inner.Close()
}

func (d *Debounced) flushRooms() {
	rooms, seq, ok := d.takeRooms()
	if ok {
		d.writeRooms(rooms, seq)
	}
}

func (d *Debounced) takeRooms() ([]*models.Room, uint64, bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	rooms, ok := d.pendingRooms, d.hasRooms
	d.pendingRooms, d.hasRooms = nil, false
	return rooms, d.roomsSeq, ok
}

func (d *Debounced) writeRooms(rooms []*models.Room, seq uint64) {
	d.writeMutex.Lock()
	defer d.writeMutex.Unlock()
	if seq <= d.writtenRooms {
		return
	}
	d.writtenRooms = seq
	if err := d.inner.SaveRooms(rooms); err != nil {
		logger.Log.Errorw("failed to save rooms", "count", len(rooms), "error", err)
	}
}

func (d *Debounced) flushStats() {
	stats, seq := d.takeStats()
	if stats != nil {
		d.writeStats(*stats, seq)
	}
}

func (d *Debounced) takeStats() (*models.Stats, uint64) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	stats := d.pendingStats
	d.pendingStats = nil
	return stats, d.statsSeq
}

func (d *Debounced) writeStats(stats models.Stats, seq uint64) {
	d.writeMutex.Lock()
	defer d.writeMutex.Unlock()
	if seq <= d.writtenStats {
		return
	}
	d.writtenStats = seq
	if err := d.inner.SaveStats(stats); err != nil {
		logger.Log.Errorw("failed to save stats", "error", err)
	}
}
