package room

import "errors"

// 房间注册表的错误定义
var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrPlayerNotFound  = errors.New("player not found")
	ErrInvalidPassword = errors.New("invalid password")
	ErrAlreadyInRoom   = errors.New("already in room")
	ErrNameTaken       = errors.New("name already used in this room")
	ErrInvalidSession  = errors.New("invalid session: this name is used by another player")
	ErrInvalidName     = errors.New("player name is required")
)
