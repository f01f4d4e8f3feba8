package registry

import (
	"github.com/riverrake/holdem/pkg/engine"
	"github.com/riverrake/holdem/pkg/poker"
)

// PlayerWire is one seat's row in the bit-stable wire schema (spec.md
// §6). poker.Card already marshals as {"rank":int,"suit":int}, so
// hole cards need no further translation at this boundary.
type PlayerWire struct {
	Seat       int         `json:"seat"`
	Stack      int64       `json:"stack"`
	Status     string      `json:"status"`
	CurrentBet int64       `json:"current_bet"`
	Cards      []poker.Card `json:"cards"`
}

// PotWire mirrors one Pot for the wire schema.
type PotWire struct {
	Amount   int64 `json:"amount"`
	Eligible []int `json:"eligible"`
}

// ViewWire is the wire-schema rendering of engine.View from spec.md
// §6 ("State view schema"), with TableID threaded in since the engine
// itself is table-agnostic.
type ViewWire struct {
	TableID            string       `json:"table_id"`
	Street             string       `json:"street"`
	CommunityCards     []poker.Card `json:"community_cards"`
	Pot                int64        `json:"pot"`
	Pots               []PotWire    `json:"pots"`
	CurrentBet         int64        `json:"current_bet"`
	MinRaise           int64        `json:"min_raise"`
	ActorSeat          int          `json:"actor_seat"`
	TurnDeadlineUnixMs int64        `json:"turn_deadline_unix_ms"`
	Players            []PlayerWire `json:"players"`
	HandInProgress     bool         `json:"hand_in_progress"`
}

// Envelope is the broadcast message envelope (spec.md §6): a state
// view plus the recipient's own seat, so the client can identify its
// own row without the server tagging every field.
type Envelope struct {
	ViewWire
	YourSeat int `json:"your_seat"`
}

// NewViewWire renders an engine.View into its wire form. Nil slices
// become empty arrays so the JSON shape is stable regardless of
// street or hole-card visibility.
func NewViewWire(tableID string, v engine.View) ViewWire {
	players := make([]PlayerWire, 0, len(v.Players))
	for _, p := range v.Players {
		cards := p.Cards
		if cards == nil {
			cards = []poker.Card{}
		}
		players = append(players, PlayerWire{
			Seat:       p.Seat,
			Stack:      p.Stack,
			Status:     p.Status.String(),
			CurrentBet: p.CurrentBet,
			Cards:      cards,
		})
	}

	pots := make([]PotWire, 0, len(v.Pots))
	for _, p := range v.Pots {
		elig := p.Eligible
		if elig == nil {
			elig = []int{}
		}
		pots = append(pots, PotWire{Amount: p.Amount, Eligible: elig})
	}

	community := v.CommunityCards
	if community == nil {
		community = []poker.Card{}
	}

	return ViewWire{
		TableID:            tableID,
		Street:             v.Street.String(),
		CommunityCards:     community,
		Pot:                v.Pot,
		Pots:               pots,
		CurrentBet:         v.CurrentBet,
		MinRaise:           v.MinRaise,
		ActorSeat:          v.ActorSeat,
		TurnDeadlineUnixMs: v.TurnDeadlineUnix,
		Players:            players,
		HandInProgress:     v.HandInProgress,
	}
}
