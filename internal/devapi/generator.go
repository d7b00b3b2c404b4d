// Package devapi is a local stand-in for the sportsdata.io player endpoint.
// It serves generated players so the provisioning run can be exercised
// without an API subscription.
package devapi

import (
	"math/rand"

	"github.com/google/uuid"
)

// Player mirrors the fields of a sportsdata.io player that the lake table
// reads, plus a few it does not, so consumers see extra keys as in production.
type Player struct {
	PlayerID           int    `json:"PlayerID"`
	SportRadarPlayerID string `json:"SportRadarPlayerID"`
	FirstName          string `json:"FirstName"`
	LastName           string `json:"LastName"`
	Team               string `json:"Team"`
	Position           string `json:"Position"`
	Jersey             int    `json:"Jersey"`
	Status             string `json:"Status"`
	Points             int    `json:"Points"`
}

// Value pools for generated players.
var (
	firstNames = []string{"Luka", "Jayson", "Nikola", "Shai", "Anthony", "Tyrese", "Jalen", "Devin", "Bam", "Zion"}         //nolint:gochecknoglobals // static pool
	lastNames  = []string{"Brown", "Davis", "Edwards", "Green", "Holiday", "Johnson", "Murray", "Porter", "Smith", "Young"} //nolint:gochecknoglobals // static pool
	teams      = []string{"BOS", "DEN", "DAL", "LAL", "MIA", "MIL", "NYK", "OKC", "PHX", "SAC"}                             //nolint:gochecknoglobals // static pool
	positions  = []string{"PG", "SG", "SF", "PF", "C"}                                                                      //nolint:gochecknoglobals // static pool
)

// Generation constants.
const (
	basePlayerID = 20000000
	maxJersey    = 100
	maxPoints    = 2500
)

// GeneratePlayers returns n players. The same seed always yields the same
// players, including their SportRadar ids.
func GeneratePlayers(n int, seed int64) []Player {
	if n <= 0 {
		return []Player{}
	}
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // test data, not security sensitive

	players := make([]Player, n)
	for i := range players {
		id, err := uuid.NewRandomFromReader(rng)
		if err != nil {
			// math/rand readers never fail
			panic(err)
		}
		players[i] = Player{
			PlayerID:           basePlayerID + i + 1,
			SportRadarPlayerID: id.String(),
			FirstName:          firstNames[rng.Intn(len(firstNames))],
			LastName:           lastNames[rng.Intn(len(lastNames))],
			Team:               teams[rng.Intn(len(teams))],
			Position:           positions[rng.Intn(len(positions))],
			Jersey:             rng.Intn(maxJersey),
			Status:             "Active",
			Points:             rng.Intn(maxPoints),
		}
	}
	return players
}

