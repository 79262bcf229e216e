package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"party_lobby/internal/game"
	"party_lobby/internal/models"
)

func TestJoin_FirstPlayerIsHostAndOpensLobby(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, models.PhaseTitle, h.state().Phase)

	_, alice := h.join("Alice", "dev-a")
	assert.True(t, alice.Player.IsHost)
	assert.False(t, alice.Player.IsAdmin)
	assert.True(t, alice.Player.IsConnected)
	assert.NotEmpty(t, alice.SessionToken)
	assert.Equal(t, models.PhaseLobby, alice.State.Phase)

	_, bob := h.join("Bob", "dev-b")
	assert.False(t, bob.Player.IsHost)

	s := h.state()
	require.Len(t, s.Players, 2)
	assert.Equal(t, alice.Player.ID, s.Players[0].ID, "join order")
	require.NotNil(t, s.Voting)
	assert.Len(t, s.Voting.ReadyStates, 2)
}

func TestJoin_BroadcastsRoomState(t *testing.T) {
	h := newHarness(t)
	watcher := NewClient(nil, "10.0.0.9:1", nil)
	h.send(watcher, models.MsgWatch, models.WatchRequest{RoomID: testRoom})
	_, ok := find(drain(watcher), models.MsgRoomState)
	require.True(t, ok)

	h.join("Alice", "dev-a")

	env, ok := find(drain(watcher), models.MsgRoomState)
	require.True(t, ok)
	var payload models.RoomStatePayload
	require.NoError(t, env.Decode(&payload))
	require.Len(t, payload.State.Players, 1)
	assert.Equal(t, "Alice", payload.State.Players[0].Nickname)
}

func TestJoin_AdminSuffix(t *testing.T) {
	h := newHarness(t)
	_, host := h.join("Host~", "dev-h")
	assert.True(t, host.Player.IsAdmin)
	assert.Equal(t, "Host", host.Player.Nickname)
}

func TestJoin_Rejections(t *testing.T) {
	h := newHarness(t)
	c := NewClient(nil, "10.0.0.1:1", nil)

	h.send(c, models.MsgJoin, models.JoinRequest{RoomID: testRoom, Nickname: "RoboBot"})
	assert.Equal(t, models.CodeInvalidNick, errorCode(t, c))

	h.send(c, models.MsgJoin, models.JoinRequest{RoomID: testRoom, Nickname: "   "})
	assert.Equal(t, models.CodeInvalidNick, errorCode(t, c))

	h.send(c, models.MsgJoin, models.JoinRequest{RoomID: "NOPE", Nickname: "Alice"})
	assert.Equal(t, models.CodeRoomNotFound, errorCode(t, c))

	h.send(c, models.MsgJoin, nil)
	assert.Equal(t, models.CodeInvalidMessage, errorCode(t, c))

	h.send(c, "lobby:dance", nil)
	assert.Equal(t, models.CodeInvalidMessage, errorCode(t, c))

	s := h.state()
	assert.Empty(t, s.Players)
	assert.Equal(t, models.PhaseTitle, s.Phase, "validation failures never mutate state")
}

func TestJoin_RoomFull(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.rooms.UpdateConfig(testRoom, models.RoomConfig{CountdownSeconds: 5, MaxPlayers: 2}))
	h.join("Alice", "dev-a")
	h.join("Bob", "dev-b")

	c := NewClient(nil, "10.0.0.1:1", nil)
	h.send(c, models.MsgJoin, models.JoinRequest{RoomID: testRoom, Nickname: "Carol", DeviceID: "dev-c"})
	assert.Equal(t, models.CodeRoomFull, errorCode(t, c))

	// 同一個裝置重新加入會取代原本的玩家，不受人數限制
	_, again := h.join("Bobby", "dev-b")
	assert.Equal(t, "Bobby", again.Player.Nickname)
	assert.Len(t, h.state().Players, 2)
}

func TestJoin_DeviceDedup(t *testing.T) {
	h := newHarness(t)
	first, alice := h.join("Alice", "phone-1")
	_, again := h.join("Alice", "phone-1")

	s := h.state()
	require.Len(t, s.Players, 1)
	assert.Equal(t, again.Player.ID, s.Players[0].ID)
	assert.NotEqual(t, alice.Player.ID, again.Player.ID)

	// 被取代的連接不再代表任何玩家
	h.send(first, models.MsgVoteGame, models.VoteGameRequest{GameID: game.FakeFactsID})
	assert.Equal(t, models.CodeNotInRoom, errorCode(t, first))
}

func TestJoin_DeviceFallsBackToRemoteAddress(t *testing.T) {
	h := newHarness(t)
	for _, name := range []string{"Alice", "Alicia"} {
		c := NewClient(nil, "192.168.1.7:4000", nil)
		h.send(c, models.MsgJoin, models.JoinRequest{RoomID: testRoom, Nickname: name})
	}
	s := h.state()
	require.Len(t, s.Players, 1)
	assert.Equal(t, "Alicia", s.Players[0].Nickname)
}

func TestJoin_ScoreTransplantByNickname(t *testing.T) {
	h := newHarness(t)
	admin, _ := h.join("Host~", "dev-h")
	_, alice := h.join("Alice", "dev-a")

	score := 7
	_, err := h.rooms.UpdatePlayer(testRoom, alice.Player.ID, models.PlayerPatch{Score: &score})
	require.NoError(t, err)

	h.send(admin, models.MsgAdminBoot, models.BootPlayerRequest{PlayerID: alice.Player.ID})
	require.Len(t, h.state().Players, 1)

	_, back := h.join("alice", "dev-other")
	assert.Equal(t, 7, back.Player.Score)
}

func TestJoin_DuringCountdownIsRejected(t *testing.T) {
	h := newHarness(t)
	alice, _ := h.join("Alice", "dev-a")
	voteAndReady(h, alice, game.FakeFactsID)
	require.Equal(t, models.PhaseCountdown, h.state().Phase)

	c := NewClient(nil, "10.0.0.1:1", nil)
	h.send(c, models.MsgJoin, models.JoinRequest{RoomID: testRoom, Nickname: "Late", DeviceID: "dev-l"})
	assert.Equal(t, models.CodeGameInProgress, errorCode(t, c))
}

func TestJoin_MidGameJoinsRunningInstance(t *testing.T) {
	h := newHarness(t)
	alice, _ := h.join("Alice", "dev-a")
	voteAndReady(h, alice, game.MovieNightID)
	require.Equal(t, models.PhasePlaying, h.state().Phase)

	_, late := h.join("Late", "dev-l")
	assert.Equal(t, models.PhasePlaying, late.State.Phase)

	gs := h.state().Playing.GameState.(game.MovieNightState)
	require.Len(t, gs.Scores, 2)
	assert.Equal(t, late.Player.ID, gs.Scores[1].PlayerID)
}

func TestRestoreSession(t *testing.T) {
	h := newHarness(t)
	first, alice := h.join("Alice", "dev-a")
	h.co.Disconnect(first)
	require.False(t, h.player(alice.Player.ID).IsConnected)

	c := NewClient(nil, "10.0.0.1:1", nil)
	h.send(c, models.MsgRestoreSession, models.RestoreSessionRequest{
		RoomID: testRoom, PlayerID: alice.Player.ID, SessionToken: "forged",
	})
	envs := drain(c)
	assert.Equal(t, []string{models.MsgRestoreFailed}, types(envs))
	assert.False(t, h.player(alice.Player.ID).IsConnected)

	h.send(c, models.MsgRestoreSession, models.RestoreSessionRequest{
		RoomID: testRoom, PlayerID: alice.Player.ID, SessionToken: alice.SessionToken,
	})
	_, ok := find(drain(c), models.MsgJoinSuccess)
	require.True(t, ok)
	assert.True(t, h.player(alice.Player.ID).IsConnected)

	lobby := h.state().Voting
	require.NotNil(t, lobby)
	assert.Len(t, lobby.ReadyStates, 1, "restored player is re-admitted to voting")

	ok, err := h.co.CheckSession(testRoom, alice.Player.ID, alice.SessionToken)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRestoreSession_UnknownRoomOrPlayer(t *testing.T) {
	h := newHarness(t)
	c := NewClient(nil, "10.0.0.1:1", nil)

	h.send(c, models.MsgRestoreSession, models.RestoreSessionRequest{RoomID: "NOPE", PlayerID: "x", SessionToken: "y"})
	assert.Equal(t, []string{models.MsgRestoreFailed}, types(drain(c)))

	h.send(c, models.MsgRestoreSession, models.RestoreSessionRequest{RoomID: testRoom, PlayerID: "x", SessionToken: "y"})
	assert.Equal(t, []string{models.MsgRestoreFailed}, types(drain(c)))
}

func TestDisconnect_StaleConnectionIsIgnored(t *testing.T) {
	h := newHarness(t)
	first, alice := h.join("Alice", "dev-a")

	second := NewClient(nil, "10.0.0.1:2", nil)
	h.send(second, models.MsgRestoreSession, models.RestoreSessionRequest{
		RoomID: testRoom, PlayerID: alice.Player.ID, SessionToken: alice.SessionToken,
	})

	h.co.Disconnect(first)
	assert.True(t, h.player(alice.Player.ID).IsConnected, "old connection no longer speaks for the player")

	h.co.Disconnect(second)
	assert.False(t, h.player(alice.Player.ID).IsConnected)
}

func TestVoting_Errors(t *testing.T) {
	h := newHarness(t)
	stranger := NewClient(nil, "10.0.0.1:1", nil)
	h.send(stranger, models.MsgVoteGame, models.VoteGameRequest{GameID: game.FakeFactsID})
	assert.Equal(t, models.CodeNotInRoom, errorCode(t, stranger))

	alice, _ := h.join("Alice", "dev-a")
	h.join("Bob", "dev-b")

	h.send(alice, models.MsgVoteGame, models.VoteGameRequest{GameID: "chess"})
	assert.Equal(t, models.CodeInvalidMessage, errorCode(t, alice))

	h.send(alice, models.MsgReadyToggle, models.ReadyToggleRequest{IsReady: true})
	assert.Equal(t, models.CodeInvalidMessage, errorCode(t, alice), "ready requires a vote")

	voteAndReady(h, alice, game.FakeFactsID)
	envs := drain(alice)
	_, ok := find(envs, models.MsgVotingUpdate)
	assert.True(t, ok)
	assert.Equal(t, models.PhaseLobby, h.state().Phase, "bob has not voted")
}

func TestVoting_TieDoesNotStart(t *testing.T) {
	h := newHarness(t)
	alice, _ := h.join("Alice", "dev-a")
	bob, _ := h.join("Bob", "dev-b")

	voteAndReady(h, alice, game.FakeFactsID)
	voteAndReady(h, bob, game.MovieNightID)

	s := h.state()
	assert.Equal(t, models.PhaseLobby, s.Phase)
	assert.Empty(t, s.Voting.SelectedGame)
	assert.False(t, s.Voting.AllReady)
}

func TestCountdown_LaunchesAfterTicks(t *testing.T) {
	h := newHarness(t)
	alice, _ := h.join("Alice", "dev-a")
	voteAndReady(h, alice, game.FakeFactsID)

	env, ok := find(drain(alice), models.MsgCountdown)
	require.True(t, ok)
	var cd models.CountdownPayload
	require.NoError(t, env.Decode(&cd))
	assert.Equal(t, 5, cd.Countdown)
	assert.Equal(t, game.FakeFactsID, cd.SelectedGame)

	h.advance(4*time.Second, alice)
	s := h.state()
	require.Equal(t, models.PhaseCountdown, s.Phase)
	assert.Equal(t, 1, s.Countdown.SecondsRemaining)

	h.advance(time.Second, alice)
	s = h.state()
	require.Equal(t, models.PhasePlaying, s.Phase)
	assert.Equal(t, game.FakeFactsID, s.Playing.GameID)

	_, ok = find(drain(alice), models.MsgGameStart)
	assert.True(t, ok)
}

func TestFastPath_SkipsCountdown(t *testing.T) {
	h := newHarness(t)
	alice, _ := h.join("Alice", "dev-a")
	bob, _ := h.join("Bob", "dev-b")
	voteAndReady(h, alice, game.MovieNightID)
	voteAndReady(h, bob, game.MovieNightID)

	s := h.state()
	assert.Equal(t, models.PhasePlaying, s.Phase)
	envs := drain(bob)
	_, ok := find(envs, models.MsgCountdown)
	assert.False(t, ok)
	env, ok := find(envs, models.MsgGameStart)
	require.True(t, ok)
	var start models.GameStartPayload
	require.NoError(t, env.Decode(&start))
	assert.Equal(t, game.MovieNightID, start.GameID)
}

func TestDisconnect_CancelsCountdown(t *testing.T) {
	h := newHarness(t)
	alice, _ := h.join("Alice", "dev-a")
	bob, bobJoin := h.join("Bob", "dev-b")
	voteAndReady(h, alice, game.FakeFactsID)
	voteAndReady(h, bob, game.FakeFactsID)
	require.Equal(t, models.PhaseCountdown, h.state().Phase)
	drain(alice)

	h.advance(2*time.Second, alice, bob)
	h.co.Disconnect(bob)

	s := h.state()
	require.Equal(t, models.PhaseLobby, s.Phase)
	assert.False(t, h.player(bobJoin.Player.ID).IsConnected)
	require.Len(t, s.Voting.ReadyStates, 1, "disconnected player leaves voting")
	assert.False(t, s.Voting.ReadyStates[0].IsReady, "readiness is reset")
	assert.True(t, s.Voting.ReadyStates[0].HasVoted, "votes are kept")

	envs := drain(alice)
	_, ok := find(envs, models.MsgCountdownCancelled)
	assert.True(t, ok)

	// 已取消的倒數不會再觸發
	h.advance(5*time.Second, alice)
	assert.Equal(t, models.PhaseLobby, h.state().Phase)
}

func TestCountdown_CancelDequeuedFirstWins(t *testing.T) {
	h := newHarness(t)
	alice, _ := h.join("Alice", "dev-a")
	bob, bobJoin := h.join("Bob", "dev-b")
	voteAndReady(h, alice, game.FakeFactsID)
	voteAndReady(h, bob, game.FakeFactsID)
	h.advance(4*time.Second, alice, bob)

	a := h.actor()
	block := make(chan struct{})
	a.post(func() { <-block })
	a.post(func() { h.co.connectionLost(a, bob, bobJoin.Player.ID) })
	h.clock.Advance(time.Second) // 最後一次倒數排在取消之後
	close(block)
	h.flush()

	assert.Equal(t, models.PhaseLobby, h.state().Phase)
}

func TestCountdown_FinalTickDequeuedFirstWins(t *testing.T) {
	h := newHarness(t)
	alice, _ := h.join("Alice", "dev-a")
	bob, bobJoin := h.join("Bob", "dev-b")
	voteAndReady(h, alice, game.FakeFactsID)
	voteAndReady(h, bob, game.FakeFactsID)
	h.advance(4*time.Second, alice, bob)

	a := h.actor()
	block := make(chan struct{})
	a.post(func() { <-block })
	h.clock.Advance(time.Second)
	a.post(func() { h.co.connectionLost(a, bob, bobJoin.Player.ID) })
	close(block)
	h.flush()

	assert.Equal(t, models.PhasePlaying, h.state().Phase)
	assert.False(t, h.player(bobJoin.Player.ID).IsConnected)
}

func TestGameAction_Rules(t *testing.T) {
	h := newHarness(t)
	admin, _ := h.join("Host~", "dev-h")
	alice, aliceJoin := h.join("Alice", "dev-a")

	h.send(alice, models.MsgGameAction, models.GameActionRequest{Type: game.ActionGuess})
	assert.Equal(t, models.CodeInvalidPhase, errorCode(t, alice))

	voteAndReady(h, admin, game.MovieNightID)
	voteAndReady(h, alice, game.MovieNightID)
	require.Equal(t, models.PhasePlaying, h.state().Phase)

	h.send(alice, models.MsgGameAction, models.GameActionRequest{PlayerID: "someone-else", Type: game.ActionGuess})
	assert.Equal(t, models.CodeUnauthorized, errorCode(t, alice))

	h.send(alice, models.MsgGameAction, models.GameActionRequest{Type: "dance"})
	assert.Equal(t, models.CodeInvalidMessage, errorCode(t, alice))

	h.send(admin, models.MsgAdminPause, nil)
	s := h.state()
	require.NotNil(t, s.PauseState)
	assert.True(t, s.PauseState.IsPaused)
	assert.Equal(t, "Host", s.PauseState.PausedByName)

	h.send(alice, models.MsgGameAction, models.GameActionRequest{
		PlayerID: aliceJoin.Player.ID, Type: game.ActionGuess, Payload: []byte(`{"title":"Jaws"}`),
	})
	assert.Equal(t, models.CodeGamePaused, errorCode(t, alice))

	h.send(admin, models.MsgAdminUnpause, nil)
	h.send(alice, models.MsgGameAction, models.GameActionRequest{
		PlayerID: aliceJoin.Player.ID, Type: game.ActionGuess, Payload: []byte(`{"title":"Jaws"}`),
	})
	_, ok := find(drain(alice), models.MsgError)
	assert.False(t, ok)

	gs := h.state().Playing.GameState.(game.MovieNightState)
	assert.Equal(t, []string{aliceJoin.Player.ID}, gs.Guessed)
}

func TestEndToEnd_AliceAndBob(t *testing.T) {
	h := newHarness(t)
	alice, aliceJoin := h.join("Alice", "dev-a")
	bob, bobJoin := h.join("Bob", "dev-b")

	voteAndReady(h, alice, game.FakeFactsID)
	voteAndReady(h, bob, game.FakeFactsID)
	require.Equal(t, models.PhaseCountdown, h.state().Phase)

	h.advance(6*time.Second, alice, bob)
	require.Equal(t, models.PhasePlaying, h.state().Phase)
	assert.True(t, h.player(aliceJoin.Player.ID).IsConnected)
	assert.True(t, h.player(bobJoin.Player.ID).IsConnected)

	action := func(c *Client, actionType, body string) {
		h.send(c, models.MsgGameAction, models.GameActionRequest{Type: actionType, Payload: []byte(body)})
		_, failed := find(drain(c), models.MsgError)
		require.False(t, failed, "%s %s", actionType, body)
	}
	action(alice, game.ActionSubmitFact, `{"text":"eight"}`)
	action(bob, game.ActionSubmitFact, `{"text":"two"}`)

	gs := h.state().Playing.GameState.(game.FakeFactsState)
	require.Equal(t, "voting", gs.Stage)
	var bobsBluff string
	for _, o := range gs.Options {
		if o.Text == "two" {
			bobsBluff = o.ID
		}
	}
	require.NotEmpty(t, bobsBluff)

	action(alice, game.ActionVote, `{"optionId":"`+bobsBluff+`"}`)
	h.send(bob, models.MsgGameAction, models.GameActionRequest{Type: game.ActionVote, Payload: []byte(`{"optionId":"truth"}`)})

	s := h.state()
	require.Equal(t, models.PhaseResults, s.Phase)
	assert.Equal(t, []string{bobJoin.Player.ID}, s.Results.Winners)
	assert.Equal(t, 3, h.player(bobJoin.Player.ID).Score)
	assert.Equal(t, 0, h.player(aliceJoin.Player.ID).Score)

	env, ok := find(drain(alice), models.MsgGameEnd)
	require.True(t, ok)
	var end models.GameEndPayload
	require.NoError(t, env.Decode(&end))
	assert.Equal(t, []string{bobJoin.Player.ID}, end.Winners)

	// 只有房主或管理員可以開始下一輪
	h.send(bob, models.MsgNextRound, nil)
	assert.Equal(t, models.CodeUnauthorized, errorCode(t, bob))

	h.send(alice, models.MsgNextRound, nil)
	s = h.state()
	require.Equal(t, models.PhaseLobby, s.Phase)
	assert.Len(t, s.Voting.ReadyStates, 2)
	assert.Empty(t, s.Voting.Votes)
}

func TestJoin_OtherRoomRejectedKeepsCurrentRoom(t *testing.T) {
	h := newHarness(t)
	_, err := h.co.CreateRoom("ROOM2")
	require.NoError(t, err)

	alice, _ := h.join("Alice", "dev-a")
	bob, bobJoin := h.join("Bob", "dev-b")
	voteAndReady(h, alice, game.FakeFactsID)
	voteAndReady(h, bob, game.FakeFactsID)
	require.Equal(t, models.PhaseCountdown, h.state().Phase)
	drain(bob)

	h.send(bob, models.MsgJoin, models.JoinRequest{RoomID: "BOGUS", Nickname: "Bob", DeviceID: "dev-b"})
	assert.Equal(t, models.CodeRoomNotFound, errorCode(t, bob))

	h.send(bob, models.MsgJoin, models.JoinRequest{RoomID: "ROOM2", Nickname: "MegaBOT", DeviceID: "dev-b"})
	assert.Equal(t, models.CodeInvalidNick, errorCode(t, bob))

	h.send(bob, models.MsgRestoreSession, models.RestoreSessionRequest{RoomID: "ROOM2", PlayerID: bobJoin.Player.ID, SessionToken: bobJoin.SessionToken})
	_, failed := find(drain(bob), models.MsgRestoreFailed)
	assert.True(t, failed)

	assert.Equal(t, models.PhaseCountdown, h.state().Phase)
	assert.True(t, h.player(bobJoin.Player.ID).IsConnected)
	roomID, playerID := bob.Binding()
	assert.Equal(t, testRoom, roomID)
	assert.Equal(t, bobJoin.Player.ID, playerID)

	// 新房間接受之後才離開原本的房間
	h.send(bob, models.MsgJoin, models.JoinRequest{RoomID: "ROOM2", Nickname: "Bob", DeviceID: "dev-b"})
	_, ok := find(drain(bob), models.MsgJoinSuccess)
	require.True(t, ok)

	assert.Equal(t, models.PhaseLobby, h.state().Phase, "leaving cancels the countdown")
	assert.False(t, h.player(bobJoin.Player.ID).IsConnected)
	roomID, _ = bob.Binding()
	assert.Equal(t, "ROOM2", roomID)
}

func TestNextRound_AnyPlayerWhenHostOffline(t *testing.T) {
	h := newHarness(t)
	alice, aliceJoin := h.join("Alice", "dev-a")
	bob, _ := h.join("Bob", "dev-b")
	require.True(t, aliceJoin.Player.IsHost)

	voteAndReady(h, alice, game.MovieNightID)
	voteAndReady(h, bob, game.MovieNightID)
	require.Equal(t, models.PhasePlaying, h.state().Phase)

	for range 3 {
		for _, c := range []*Client{alice, bob} {
			h.send(c, models.MsgGameAction, models.GameActionRequest{Type: game.ActionGuess, Payload: []byte(`{"title":"nope"}`)})
		}
	}
	require.Equal(t, models.PhaseResults, h.state().Phase)
	drain(bob)

	h.send(bob, models.MsgNextRound, nil)
	assert.Equal(t, models.CodeUnauthorized, errorCode(t, bob))

	h.co.Disconnect(alice)
	require.False(t, h.player(aliceJoin.Player.ID).IsConnected)

	h.send(bob, models.MsgNextRound, nil)
	assert.Equal(t, models.PhaseLobby, h.state().Phase)
}
