// Package turn picks the guesser for each round.
package turn

import (
	"sort"

	"github.com/wfunc/phrasegame/models"
)

// MaxConsecutive is how many rounds in a row one player may guess while someone else is eligible.
const MaxConsecutive = 2

// Next returns the player who should guess the next round, or nil for an empty room.
// Players with the fewest rounds as guesser go first, ties broken by join time. The previous
// guesser is skipped once it has guessed MaxConsecutive rounds in a row.
func Next(players []*models.Player, previousGuesserID string) *models.Player {
	if len(players) == 0 {
		return nil
	}

	candidates := make([]*models.Player, 0, len(players))
	for _, p := range players {
		if p.ConnectionID == previousGuesserID && p.ConsecutiveGuesserRounds >= MaxConsecutive {
			continue
		}
		candidates = append(candidates, p)
	}

	if len(candidates) == 0 {
		return earliest(players)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.RoundsAsGuesser != b.RoundsAsGuesser {
			return a.RoundsAsGuesser < b.RoundsAsGuesser
		}
		return a.JoinedAt.Before(b.JoinedAt)
	})
	return candidates[0]
}

// Commit records that chosen is guessing the round following previousGuesserID's.
func Commit(players []*models.Player, chosen *models.Player, previousGuesserID string) {
	for _, p := range players {
		if p != chosen {
			p.ConsecutiveGuesserRounds = 0
		}
	}
	if chosen == nil {
		return
	}
	chosen.RoundsAsGuesser++
	if chosen.ConnectionID == previousGuesserID {
		chosen.ConsecutiveGuesserRounds++
	} else {
		chosen.ConsecutiveGuesserRounds = 1
	}
}

// Reset clears the rotation counters at the start of a game.
func Reset(players []*models.Player) {
	for _, p := range players {
		p.RoundsAsGuesser = 0
		p.ConsecutiveGuesserRounds = 0
	}
}

func earliest(players []*models.Player) *models.Player {
	first := players[0]
	for _, p := range players[1:] {
		if p.JoinedAt.Before(first.JoinedAt) {
			first = p
		}
	}
	return first
}
