package tabletop

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawPatch(t *testing.T, fields map[string]any) SeatPatch {
	t.Helper()
	patch := make(SeatPatch, len(fields))
	for k, v := range fields {
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		patch[k] = raw
	}
	return patch
}

func TestSeatZeroMirrorsZonesAfterEveryMutation(t *testing.T) {
	s := newTestStore(t)
	seedLibrary(s, "A", "B", "C")

	s.Draw(2)

	players := s.Players()
	require.NotEmpty(t, players)
	hand := s.ZoneCards(ZoneHand)
	require.Len(t, players[0].Hand, len(hand))
	assert.Equal(t, hand[0].ID, players[0].Hand[0].ID)

	s.MoveCard(hand[0].ID, ZoneBattlefield, -1)
	players = s.Players()
	require.Len(t, players[0].Battlefield, 1)
	assert.Equal(t, hand[0].ID, players[0].Battlefield[0].ID)
}

func TestMySeatMirrorsWhenSet(t *testing.T) {
	s := newTestStore(t)
	seedLibrary(s, "A")
	s.SetMySeat(2)

	s.Draw(1)

	players := s.Players()
	require.GreaterOrEqual(t, len(players), 3)
	require.Len(t, players[2].Hand, 1)
	assert.Equal(t, players[0].Hand[0].ID, players[2].Hand[0].ID)
}

func TestSetRemoteSeatUpsert(t *testing.T) {
	s := newTestStore(t)

	s.SetRemoteSeat("conn-1", rawPatch(t, map[string]any{
		"name":      "Bob",
		"seat":      1,
		"playerKey": "bob-key",
		"life":      37,
	}))

	seats := s.RemoteSeats()
	require.Len(t, seats, 1)
	seat := seats["conn-1"]
	assert.Equal(t, "Bob", seat.Name)
	assert.Equal(t, 1, seat.Seat)
	assert.Equal(t, 37, seat.Life)
	assert.NotZero(t, seat.UpdatedAt)
}

func TestSetRemoteSeatPartialMergeKeepsAbsentFields(t *testing.T) {
	s := newTestStore(t)
	s.SetRemoteSeat("conn-1", rawPatch(t, map[string]any{
		"name": "Bob",
		"life": 30,
	}))

	s.SetRemoteSeat("conn-1", rawPatch(t, map[string]any{
		"life": 28,
	}))

	seat := s.RemoteSeats()["conn-1"]
	assert.Equal(t, "Bob", seat.Name, "absent fields retain previous values")
	assert.Equal(t, 28, seat.Life)
}

func TestSetRemoteSeatExplicitNullClears(t *testing.T) {
	s := newTestStore(t)
	s.SetRemoteSeat("conn-1", rawPatch(t, map[string]any{
		"name":    "Bob",
		"playmat": "volcano",
	}))

	patch := rawPatch(t, map[string]any{"name": "Bob"})
	patch["playmat"] = json.RawMessage("null")
	s.SetRemoteSeat("conn-1", patch)

	seat := s.RemoteSeats()["conn-1"]
	assert.Empty(t, seat.Playmat)
	assert.Equal(t, "Bob", seat.Name)
}

func TestSetRemoteSeatInvalidFieldSkipped(t *testing.T) {
	s := newTestStore(t)
	s.SetRemoteSeat("conn-1", rawPatch(t, map[string]any{"life": 30}))

	patch := SeatPatch{"life": json.RawMessage(`"not a number"`)}
	s.SetRemoteSeat("conn-1", patch)

	assert.Equal(t, 30, s.RemoteSeats()["conn-1"].Life)
}

func TestRemoteSeatCollisionPurgeByPlayerKey(t *testing.T) {
	s := newTestStore(t)
	s.SetRemoteSeat("conn-old", rawPatch(t, map[string]any{
		"name":      "Bob",
		"playerKey": "bob-key",
	}))

	// Same logical player reconnects with a new transport id.
	s.SetRemoteSeat("conn-new", rawPatch(t, map[string]any{
		"name":      "Bob",
		"playerKey": "bob-key",
	}))

	seats := s.RemoteSeats()
	require.Len(t, seats, 1, "ghost seat must be purged")
	_, ok := seats["conn-new"]
	assert.True(t, ok, "entry keyed by the most recent transport id")
}

func TestRemoteSeatCollisionPurgeBySeatIndex(t *testing.T) {
	s := newTestStore(t)
	s.SetRemoteSeat("conn-a", rawPatch(t, map[string]any{"name": "Bob", "seat": 1}))
	s.SetRemoteSeat("conn-b", rawPatch(t, map[string]any{"name": "Carol", "seat": 2}))

	s.SetRemoteSeat("conn-c", rawPatch(t, map[string]any{"name": "Bob II", "seat": 1}))

	seats := s.RemoteSeats()
	require.Len(t, seats, 2)
	assert.Contains(t, seats, "conn-b")
	assert.Contains(t, seats, "conn-c")
	assert.NotContains(t, seats, "conn-a")
}

func TestRemoteSeatUnseatedPeersDoNotCollide(t *testing.T) {
	s := newTestStore(t)
	s.SetRemoteSeat("conn-a", rawPatch(t, map[string]any{
		"name": "Bob", "seat": -1, "playerKey": "bob-key",
	}))
	s.SetRemoteSeat("conn-b", rawPatch(t, map[string]any{
		"name": "Carol", "seat": -1, "playerKey": "carol-key",
	}))

	seats := s.RemoteSeats()
	require.Len(t, seats, 2, "peers that have not picked a seat are distinct participants")
	assert.Equal(t, -1, seats["conn-a"].Seat)
	assert.Equal(t, -1, seats["conn-b"].Seat)
}

func TestRemoteSeatZeroDoesNotPurgeUnseatedPeer(t *testing.T) {
	s := newTestStore(t)
	s.SetRemoteSeat("conn-a", rawPatch(t, map[string]any{"name": "Bob"}))
	s.SetRemoteSeat("conn-b", rawPatch(t, map[string]any{"name": "Carol", "seat": 0}))

	seats := s.RemoteSeats()
	require.Len(t, seats, 2)
	assert.Equal(t, -1, seats["conn-a"].Seat, "a record that never carried a seat stays unseated")
	assert.Equal(t, 0, seats["conn-b"].Seat)
}

func TestRemoteSeatNoPurgeWithoutExplicitSeat(t *testing.T) {
	s := newTestStore(t)
	s.SetRemoteSeat("conn-a", rawPatch(t, map[string]any{"name": "Bob"}))
	s.SetRemoteSeat("conn-b", rawPatch(t, map[string]any{"name": "Carol"}))

	assert.Len(t, s.RemoteSeats(), 2, "patches without identity fields must not purge")
}

func TestClearRemoteSeats(t *testing.T) {
	s := newTestStore(t)
	s.SetRemoteSeat("conn-a", rawPatch(t, map[string]any{"name": "Bob", "seat": 1}))
	s.SetRemoteSeat("conn-b", rawPatch(t, map[string]any{"name": "Carol", "seat": 2}))

	s.ClearRemoteSeat("conn-a")
	assert.Len(t, s.RemoteSeats(), 1)

	s.ClearAllRemoteSeats()
	assert.Empty(t, s.RemoteSeats())
}

func TestClearRemoteSeatUnknownIsNoop(t *testing.T) {
	s := newTestStore(t)
	var n int
	s.Subscribe(func(Event) { n++ })

	s.ClearRemoteSeat("nope")

	assert.Zero(t, n, "no change notification for unknown ids")
}

func TestRemoteSeatZonesDecodedFromPatch(t *testing.T) {
	s := newTestStore(t)
	s.SetRemoteSeat("conn-1", rawPatch(t, map[string]any{
		"battlefield": []Card{{ID: "r1", Name: "Dragon", Tapped: true}},
		"handCount":   4,
	}))

	seat := s.RemoteSeats()["conn-1"]
	require.Len(t, seat.Battlefield, 1)
	assert.Equal(t, "Dragon", seat.Battlefield[0].Name)
	assert.True(t, seat.Battlefield[0].Tapped)
	assert.Equal(t, 4, seat.HandCount)
}

func TestSetSeatsExtendsPlayersAndTurnOrder(t *testing.T) {
	s := newTestStore(t)

	s.SetSeats([]string{"Alice", "Bob", "Carol"})

	players := s.Players()
	require.Len(t, players, 3)
	assert.Equal(t, "Bob", players[1].Name)
	order, _ := s.TurnState()
	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, order)
}

func TestSetSeatNamePreservesZoneContents(t *testing.T) {
	s := newTestStore(t)
	seedLibrary(s, "A")
	s.Draw(1)

	s.SetSeatName(0, "Renamed")

	players := s.Players()
	assert.Equal(t, "Renamed", players[0].Name)
	assert.Len(t, players[0].Hand, 1)
}

func TestLocalActionsDoNotTouchRemoteSeats(t *testing.T) {
	s := newTestStore(t)
	s.SetRemoteSeat("conn-1", rawPatch(t, map[string]any{
		"name":        "Bob",
		"battlefield": []Card{{ID: "r1", Name: "Dragon"}},
	}))
	seedLibrary(s, "A", "B")

	s.Draw(2)
	s.UntapAll()

	seat := s.RemoteSeats()["conn-1"]
	require.Len(t, seat.Battlefield, 1)
	assert.Equal(t, "Dragon", seat.Battlefield[0].Name)
}
