package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/cors"
	"github.com/wfunc/phrasegame/broadcast"
	"github.com/wfunc/phrasegame/game"
	"github.com/wfunc/phrasegame/logger"
	"github.com/wfunc/phrasegame/monitor"
	"github.com/wfunc/phrasegame/network"
	"github.com/wfunc/phrasegame/services"
	"github.com/wfunc/phrasegame/session"
)

type Options struct {
	Addr          string
	CORSOrigins   []string
	StatsInterval time.Duration
	Heartbeat     time.Duration
}

type Dependencies struct {
	Engine      *game.Engine
	Sessions    *session.Manager
	Broadcaster broadcast.Broadcaster
	Stats       *services.StatsService
	Monitor     *monitor.Monitor
	Clock       clockwork.Clock
}

type GameServer struct {
	opts         Options
	upgrader     websocket.Upgrader
	engine       *game.Engine
	sessions     *session.Manager
	broadcaster  broadcast.Broadcaster
	stats        *services.StatsService
	monitor      *monitor.Monitor
	clock        clockwork.Clock
	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once

	// 在线连接的处理协程，关闭时需等待它们退出
	connMutex sync.Mutex
	closing   bool
	conns     sync.WaitGroup
}

func NewGameServer(opts Options, deps Dependencies) *GameServer {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	s := &GameServer{
		opts:         opts,
		engine:       deps.Engine,
		sessions:     deps.Sessions,
		broadcaster:  deps.Broadcaster,
		stats:        deps.Stats,
		monitor:      deps.Monitor,
		clock:        deps.Clock,
		shutdownChan: make(chan struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Handler 返回带 CORS 的路由
func (s *GameServer) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/ws", s.handleWebSocket)
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	router.HandleFunc("/rooms", s.handleRooms).Methods(http.MethodGet)
	if s.monitor != nil {
		router.Handle("/metrics", s.monitor.Handler()).Methods(http.MethodGet)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   s.opts.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowCredentials: true,
	})
	return c.Handler(router)
}

// Start 启动统计广播并阻塞在 HTTP 服务上。Shutdown 后返回 nil。
func (s *GameServer) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go s.statsLoop()

	logger.Log.Infof("Game server listening on %s", s.opts.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown closes every websocket and stops the HTTP listener.
// Shutdown stops accepting connections, closes every session and waits until
// all connection handlers have finished their disconnect handling.
func (s *GameServer) Shutdown(ctx context.Context) error {
	s.connMutex.Lock()
	s.closing = true
	s.connMutex.Unlock()

	s.shutdownOnce.Do(func() { close(s.shutdownChan) })
	for _, sess := range s.sessions.All() {
		sess.Close()
	}

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}

	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()
	select {
	case <-done:
		return err
	case <-ctx.Done():
		logger.Log.Warnw("connection handlers still running at shutdown", "error", ctx.Err())
		return ctx.Err()
	}
}

func (s *GameServer) statsLoop() {
	if s.opts.StatsInterval <= 0 {
		return
	}
	ticker := s.clock.NewTicker(s.opts.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			s.broadcastStats()
		case <-s.shutdownChan:
			return
		}
	}
}

func (s *GameServer) broadcastStats() {
	s.broadcaster.BroadcastAll(network.EventStatsUpdate, s.stats.Snapshot())
}

func (s *GameServer) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.opts.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logger.Log.Warnw("websocket origin rejected", "origin", origin)
	return false
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Debugw("failed to write response", "error", err)
	}
}

func (s *GameServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *GameServer) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stats.Snapshot())
}

func (s *GameServer) handleRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.ListRooms())
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(network.NewWSConnection(conn))
}

func (s *GameServer) handleConnection(conn network.Connection) {
	s.connMutex.Lock()
	if s.closing {
		s.connMutex.Unlock()
		conn.Close()
		return
	}
	s.conns.Add(1)
	s.connMutex.Unlock()
	defer s.conns.Done()

	sess := session.NewSession(uuid.NewString(), conn)
	s.sessions.Add(sess)
	if s.opts.Heartbeat > 0 {
		conn.SetHeartbeat(s.opts.Heartbeat)
	}
	s.monitor.SetOnlinePlayers(s.stats.ObserveConnections())
	logger.Log.Infof("New connection from %s, session ID: %s", conn.RemoteAddr(), sess.GetID())

	sess.Send(network.EventStatsUpdate, s.stats.Snapshot())
	sess.Send(network.EventRoomListUpdate, s.engine.ListRooms())

	defer s.onDisconnect(sess)

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
		}

		packet, err := conn.ReadPacket()
		if err != nil {
			if errors.Is(err, network.ErrMalformedPacket) {
				sess.Send(network.EventRoomError, game.NewErrorPayload(err))
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Log.Debugw("read failed", "session", sess.GetID(), "error", err)
			}
			return
		}
		s.handlePacket(sess, packet)
	}
}

func (s *GameServer) onDisconnect(sess *session.Session) {
	logger.Log.Infof("Connection closed from %s, session ID: %s", sess.Conn.RemoteAddr(), sess.GetID())
	s.sessions.Remove(sess.GetID())
	sess.Close()
	s.engine.Disconnect(sess.GetID())

	s.monitor.SetOnlinePlayers(s.stats.ObserveConnections())
	s.broadcastStats()
}

var gameActions = map[string]game.Action{
	network.EventGameStart:         game.ActionStart,
	network.EventGameValidatePoint: game.ActionValidatePoint,
	network.EventGameSkip:          game.ActionSkip,
	network.EventGameNextRound:     game.ActionNextRound,
	network.EventGameEnd:           game.ActionEnd,
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	start := time.Now()
	sess.Touch()
	s.monitor.IncMessagesReceived(packet.Event)
	defer func() { s.monitor.ObserveMessageLatency(time.Since(start)) }()

	id := sess.GetID()
	switch packet.Event {
	case network.EventRoomCreate:
		var req game.CreateRoomRequest
		if err := packet.Decode(&req); err != nil {
			s.replyError(sess, network.EventRoomError, err)
			return
		}
		if _, err := s.engine.CreateRoom(id, req); err != nil {
			s.replyError(sess, network.EventRoomError, err)
		}
	case network.EventRoomJoin:
		var req game.JoinRoomRequest
		if err := packet.Decode(&req); err != nil {
			s.replyError(sess, network.EventRoomError, err)
			return
		}
		if _, err := s.engine.JoinRoom(id, req); err != nil {
			s.replyError(sess, network.EventRoomError, err)
		}
	case network.EventRoomRejoin:
		var req game.RejoinRoomRequest
		if err := packet.Decode(&req); err != nil {
			s.replyError(sess, network.EventRoomRejoinFailed, err)
			return
		}
		if _, err := s.engine.RejoinRoom(id, req); err != nil {
			s.replyError(sess, network.EventRoomRejoinFailed, err)
		}
	case network.EventRoomLeave:
		if err := s.engine.LeaveRoom(id); err != nil {
			s.replyError(sess, network.EventRoomError, err)
		}
	case network.EventRoomList:
		sess.Send(network.EventRoomListUpdate, s.engine.ListRooms())
	default:
		action, ok := gameActions[packet.Event]
		if !ok {
			s.replyError(sess, network.EventRoomError, fmt.Errorf("%w: %s", game.ErrUnknownAction, packet.Event))
			return
		}
		if err := s.engine.ManagerAction(id, action); err != nil {
			s.replyError(sess, network.EventGameError, err)
		}
	}
}

func (s *GameServer) replyError(sess *session.Session, event string, err error) {
	logger.Log.Debugw("request failed", "session", sess.GetID(), "event", event, "error", err)
	if sendErr := sess.Send(event, game.NewErrorPayload(err)); sendErr != nil {
		logger.Log.Debugw("failed to send error", "session", sess.GetID(), "error", sendErr)
	}
}
