package network

// 客户端 -> 服务器
const (
	EventRoomCreate        = "room:create"
	EventRoomJoin          = "room:join"
	EventRoomRejoin        = "room:rejoin"
	EventRoomLeave         = "room:leave"
	EventRoomList          = "room:list"
	EventGameStart         = "game:start"
	EventGameValidatePoint = "game:validate-point"
	EventGameSkip          = "game:skip"
	EventGameNextRound     = "game:next-round"
	EventGameEnd           = "game:end"
)

// 服务器 -> 客户端
const (
	EventRoomListUpdate     = "room:list-update"
	EventRoomJoined         = "room:joined"
	EventRoomRejoined       = "room:rejoined"
	EventRoomRejoinFailed   = "room:rejoin-failed"
	EventRoomPlayerJoined   = "room:player-joined"
	EventRoomPlayerLeft     = "room:player-left"
	EventRoomManagerChanged = "room:manager-changed"
	EventRoomError          = "room:error"
	EventGameStarted        = "game:started"
	EventGameRound          = "game:round"
	EventGameTimer          = "game:timer"
	EventGamePointAwarded   = "game:point-awarded"
	EventGameRoundEnd       = "game:round-end"
	EventGameEnded          = "game:ended"
	EventGameError          = "game:error"
	EventStatsUpdate        = "stats:update"
)
