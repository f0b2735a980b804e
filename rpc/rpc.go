// Package rpc exposes the admin service over net/rpc and the gRPC health service.
package rpc

import (
	"errors"
	"net"
	"net/rpc"

	"github.com/wfunc/phrasegame/logger"
	"github.com/wfunc/phrasegame/models"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
	rpc      *rpc.Server
}

// NewServer 监听 addr 并注册管理服务
func NewServer(addr string, admin *AdminService) (*Server, error) {
	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName("Admin", admin); err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  listener.Addr().String(),
		rpc:      rpcServer,
	}, nil
}

// Addr is the bound address, useful when listening on port 0.
func (s *Server) Addr() string {
	return s.address
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// StatsProvider is satisfied by services.StatsService.
type StatsProvider interface {
	Snapshot() models.StatsSnapshot
}

// RoomLister is satisfied by game.Engine.
type RoomLister interface {
	ListRooms() []models.RoomSummary
}

// AdminService 只读的运维接口，注册名为 Admin
type AdminService struct {
	stats StatsProvider
	rooms RoomLister
}

func NewAdminService(stats StatsProvider, rooms RoomLister) *AdminService {
	return &AdminService{stats: stats, rooms: rooms}
}

type StatsArgs struct {
	IncludePhrases bool
}

type StatsReply struct {
	Stats models.StatsSnapshot
}

// Stats returns the current server counters.
func (a *AdminService) Stats(args *StatsArgs, reply *StatsReply) error {
	reply.Stats = a.stats.Snapshot()
	if !args.IncludePhrases {
		reply.Stats.PhrasesCount = nil
	}
	return nil
}

// RoomsArgs filters by game state; empty means every room.
type RoomsArgs struct {
	State models.GameState
}

type RoomsReply struct {
	Rooms []models.RoomSummary
}

// Rooms returns the lobby snapshot.
func (a *AdminService) Rooms(args *RoomsArgs, reply *RoomsReply) error {
	for _, r := range a.rooms.ListRooms() {
		if args.State == "" || r.GameState == args.State {
			reply.Rooms = append(reply.Rooms, r)
		}
	}
	return nil
}
