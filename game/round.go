// game/round.go
package game

import (
	"fmt"
	"time"

	"github.com/wfunc/phrasegame/logger"
	"github.com/wfunc/phrasegame/models"
	"github.com/wfunc/phrasegame/network"
	"github.com/wfunc/phrasegame/state"
	"github.com/wfunc/phrasegame/turn"
)

// ManagerAction 执行房主命令。调用者必须是所在房间的当前房主。
func (e *Engine) ManagerAction(connectionID string, action Action) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	r, ok := e.rooms.RoomForConnection(connectionID)
	if !ok {
		return ErrNotInRoom
	}
	if r.ManagerID != connectionID {
		return ErrNotManager
	}

	switch action {
	case ActionStart:
		return e.startGameLocked(r)
	case ActionValidatePoint:
		return e.validatePointLocked(r)
	case ActionSkip:
		if r.GameState != models.StatePlaying || r.CurrentRound == nil {
			return ErrNoActiveRound
		}
		logger.Log.Infow("round skipped", "room", r.ID)
		return e.endRoundLocked(r, false)
	case ActionNextRound:
		return e.nextRoundLocked(r)
	case ActionEnd:
		return e.endGameLocked(r)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
}

func requireState(r *models.Room, want, to models.GameState) error {
	if r.GameState != want {
		return fmt.Errorf("%w: %s -> %s", state.ErrTransitionNotAllowed, r.GameState, to)
	}
	return nil
}

func (e *Engine) startGameLocked(r *models.Room) error {
	if len(r.Players) < 2 {
		return ErrNeedsMorePlayers
	}
	if err := requireState(r, models.StateWaiting, models.StatePlaying); err != nil {
		return err
	}
	if len(e.phrases.GetPhrases(r.Language)) == 0 {
		return ErrNoPhrases
	}

	for _, p := range r.Players {
		p.Score = 0
	}
	turn.Reset(r.Players)
	r.ResetUsedPhrases()
	r.CurrentRound = nil
	if err := e.machine.ChangeState(r, models.StatePlaying); err != nil {
		return err
	}

	if e.stats != nil {
		e.stats.GameStarted()
	}
	e.monitor.IncGamesStarted()
	logger.Log.Infow("game started", "room", r.ID, "players", len(r.Players))

	e.out.SendToRoom(r.ID, network.EventGameStarted, PlayersPayload{Players: r.PlayerViews()})
	if err := e.startRoundLocked(r); err != nil {
		return err
	}
	e.broadcastLobbyLocked()
	e.saveLocked()
	return nil
}

// startRoundLocked 选出猜词者，抽取短语并启动本轮计时
func (e *Engine) startRoundLocked(r *models.Room) error {
	phrases := e.phrases.GetPhrases(r.Language)
	if len(phrases) == 0 {
		return ErrNoPhrases
	}

	previous := ""
	if r.CurrentRound != nil {
		previous = r.CurrentRound.GuesserID
	}
	guesser := turn.Next(r.Players, previous)
	if guesser == nil {
		return ErrNeedsMorePlayers
	}
	turn.Commit(r.Players, guesser, previous)

	index := e.drawPhraseLocked(r, len(phrases))
	r.MarkPhraseUsed(index)

	e.cancelRoundTimerLocked(r.ID)
	now := e.clock.Now()
	r.CurrentRound = &models.Round{
		GuesserID:            guesser.ConnectionID,
		Phrase:               phrases[index],
		PhraseIndex:          index,
		StartedAt:            now,
		RoundDurationSeconds: r.RoundDurationSeconds,
	}
	e.armRoundTimerLocked(r)
	logger.Log.Infow("round started", "room", r.ID, "guesser", guesser.Name, "phrase", index)

	for _, p := range r.Players {
		e.out.SendToPlayer(p.ConnectionID, network.EventGameRound, roundView(r.CurrentRound, p.ConnectionID, now))
	}
	return nil
}

// drawPhraseLocked 在未使用的短语中均匀随机抽取；全部用完后清空已用集合。
func (e *Engine) drawPhraseLocked(r *models.Room, total int) int {
	available := make([]int, 0, total)
	for i := 0; i < total; i++ {
		if !r.IsPhraseUsed(i) {
			available = append(available, i)
		}
	}
	if len(available) == 0 {
		logger.Log.Infow("phrase catalog exhausted, reshuffling", "room", r.ID, "total", total)
		r.ResetUsedPhrases()
		for i := 0; i < total; i++ {
			available = append(available, i)
		}
	}
	return available[e.rng.IntN(len(available))]
}

// roundView builds the payload one player sees for the round.
func roundView(round *models.Round, connectionID string, now time.Time) RoundView {
	v := RoundView{
		GuesserID:     round.GuesserID,
		TimeRemaining: round.RemainingSeconds(now),
		Coded:         round.Phrase.Coded,
		IsGuesser:     round.GuesserID == connectionID,
	}
	if v.IsGuesser {
		v.Phrase = round.Phrase.Coded
	} else {
		v.Phrase = round.Phrase.Original
		v.Original = round.Phrase.Original
	}
	return v
}

func (e *Engine) armRoundTimerLocked(r *models.Room) {
	roomID, round := r.ID, r.CurrentRound
	id := e.timers.AddTimer(e.opts.TickInterval, e.opts.TickInterval, func() {
		e.tick(roomID, round)
	})
	e.roundTimers[roomID] = id
}

func (e *Engine) cancelRoundTimerLocked(roomID string) {
	if id, ok := e.roundTimers[roomID]; ok {
		e.timers.RemoveTimer(id)
		delete(e.roundTimers, roomID)
	}
}

// tick 从开始时间重新计算剩余时间。round 不再是当前轮时说明计时器已过期。
func (e *Engine) tick(roomID string, round *models.Round) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	r, ok := e.rooms.GetRoom(roomID)
	if !ok || r.GameState != models.StatePlaying || r.CurrentRound != round {
		return
	}

	now := e.clock.Now()
	e.out.SendToRoom(roomID, network.EventGameTimer, TimerPayload{TimeRemaining: round.RemainingSeconds(now)})
	if round.Remaining(now) <= 0 {
		logger.Log.Infow("round timed out", "room", roomID)
		if err := e.endRoundLocked(r, false); err != nil {
			logger.Log.Warnw("failed to end round", "room", roomID, "error", err)
		}
	}
}

func (e *Engine) validatePointLocked(r *models.Room) error {
	round := r.CurrentRound
	if round != nil && round.PointAwarded {
		return ErrPointAlreadyAwarded
	}
	if r.GameState != models.StatePlaying || round == nil {
		return ErrNoActiveRound
	}
	if err := e.rooms.UpdatePlayerScore(r.ID, round.GuesserID, 1); err != nil {
		return err
	}
	round.PointAwarded = true
	logger.Log.Infow("point awarded", "room", r.ID, "player", round.GuesserID)

	e.out.SendToRoom(r.ID, network.EventGamePointAwarded, PointAwardedPayload{
		PlayerID: round.GuesserID,
		Players:  r.PlayerViews(),
	})
	return e.endRoundLocked(r, true)
}

// endRoundLocked 结束本轮并预告下一位猜词者（不提交轮换计数）
func (e *Engine) endRoundLocked(r *models.Room, guessed bool) error {
	e.cancelRoundTimerLocked(r.ID)
	if err := e.machine.ChangeState(r, models.StateBetweenRounds); err != nil {
		return err
	}

	payload := RoundEndPayload{Guessed: guessed, Players: r.PlayerViews()}
	previous := ""
	if r.CurrentRound != nil {
		payload.Phrase = r.CurrentRound.Phrase
		previous = r.CurrentRound.GuesserID
	}
	if next := turn.Next(r.Players, previous); next != nil {
		payload.NextGuesser = &GuesserRef{ID: next.ConnectionID, Name: next.Name}
	}

	e.monitor.IncRoundsEnded(guessed)
	logger.Log.Infow("round ended", "room", r.ID, "guessed", guessed)
	e.out.SendToRoom(r.ID, network.EventGameRoundEnd, payload)
	e.broadcastLobbyLocked()
	e.saveLocked()
	return nil
}

func (e *Engine) nextRoundLocked(r *models.Room) error {
	if err := requireState(r, models.StateBetweenRounds, models.StatePlaying); err != nil {
		return err
	}
	if len(e.phrases.GetPhrases(r.Language)) == 0 {
		return ErrNoPhrases
	}
	if err := e.machine.ChangeState(r, models.StatePlaying); err != nil {
		return err
	}
	if err := e.startRoundLocked(r); err != nil {
		return err
	}
	e.broadcastLobbyLocked()
	e.saveLocked()
	return nil
}

// endGameLocked 结束游戏。平分时取加入最早的玩家。
func (e *Engine) endGameLocked(r *models.Room) error {
	e.cancelRoundTimerLocked(r.ID)
	if err := e.machine.ChangeState(r, models.StateWaiting); err != nil {
		return err
	}
	r.CurrentRound = nil

	payload := GameEndedPayload{Players: r.PlayerViews()}
	if len(r.Players) > 0 {
		winner := r.Players[0]
		for _, p := range r.Players[1:] {
			if p.Score > winner.Score {
				winner = p
			}
		}
		view := winner.View()
		payload.Winner = &view
		logger.Log.Infow("game ended", "room", r.ID, "winner", winner.Name, "score", winner.Score)
	}

	e.out.SendToRoom(r.ID, network.EventGameEnded, payload)
	e.broadcastLobbyLocked()
	e.saveLocked()
	return nil
}
