package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"party_lobby/internal/game"
	"party_lobby/internal/models"
	"party_lobby/internal/repository"
	"party_lobby/internal/utils"
)

const testRoom = "ROOM1"

var testStart = time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)

type harness struct {
	t     *testing.T
	clock *fakeClock
	rooms repository.RoomRepository
	co    *Coordinator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := newFakeClock(testStart)
	repos := repository.NewRepositories(clock.Now)
	registry := game.NewRegistry(
		game.NewFakeFacts(game.WithRounds(1), game.WithPicker(func(int) int { return 0 })),
		game.NewMovieNight(),
	)
	co := NewCoordinator(CoordinatorConfig{
		DefaultRoom:       models.RoomConfig{CountdownSeconds: 5, MaxPlayers: 12},
		HeartbeatInterval: time.Second,
		DisconnectAfter:   5 * time.Second,
		RemoveAfter:       60 * time.Second,
	}, repos.Room, NewLauncher(registry), utils.NewTokenIssuer("test-secret", time.Hour, bcrypt.MinCost), NewHub(), clock)

	_, err := co.CreateRoom(testRoom)
	require.NoError(t, err)
	t.Cleanup(co.Close)

	return &harness{t: t, clock: clock, rooms: repos.Room, co: co}
}

func (h *harness) send(c *Client, msgType string, payload any) {
	h.t.Helper()
	var data json.RawMessage
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(h.t, err)
		data = raw
	}
	h.co.Dispatch(c, models.Envelope{Type: msgType, Data: data})
}

// join 以指定的裝置加入測試房間，並清空該連接收到的訊息
func (h *harness) join(nickname, deviceID string) (*Client, models.JoinSuccessPayload) {
	h.t.Helper()
	c := NewClient(nil, "10.0.0.1:5000", nil)
	h.send(c, models.MsgJoin, models.JoinRequest{RoomID: testRoom, Nickname: nickname, DeviceID: deviceID})

	env, ok := find(drain(c), models.MsgJoinSuccess)
	require.True(h.t, ok, "join:success for %s", nickname)
	var js models.JoinSuccessPayload
	require.NoError(h.t, env.Decode(&js))
	return c, js
}

func (h *harness) actor() *roomActor {
	a := h.co.actor(testRoom)
	require.NotNil(h.t, a)
	return a
}

// flush 等待房間佇列中已排入的工作都執行完畢
func (h *harness) flush() {
	h.t.Helper()
	require.NoError(h.t, h.actor().do(func() {}))
}

// advance 以一秒為單位推進時間，每一步都讓 pingers 送出心跳
func (h *harness) advance(d time.Duration, pingers ...*Client) {
	h.t.Helper()
	for step := time.Duration(0); step < d; step += time.Second {
		h.clock.Advance(time.Second)
		h.flush()
		for _, c := range pingers {
			h.send(c, models.MsgHeartbeatPing, nil)
		}
	}
}

func (h *harness) state() models.RoomState {
	h.t.Helper()
	s, err := h.co.Snapshot(testRoom)
	require.NoError(h.t, err)
	return s
}

func (h *harness) player(id string) *models.Player {
	for _, p := range h.state().Players {
		if p.ID == id {
			return &p
		}
	}
	return nil
}

func drain(c *Client) []models.Envelope {
	var out []models.Envelope
	for {
		select {
		case raw, ok := <-c.send:
			if !ok {
				return out
			}
			var env models.Envelope
			if err := json.Unmarshal(raw, &env); err == nil {
				out = append(out, env)
			}
		default:
			return out
		}
	}
}

// find 回傳最後一則指定類型的訊息
func find(envs []models.Envelope, msgType string) (models.Envelope, bool) {
	for i := len(envs) - 1; i >= 0; i-- {
		if envs[i].Type == msgType {
			return envs[i], true
		}
	}
	return models.Envelope{}, false
}

func types(envs []models.Envelope) []string {
	out := make([]string, len(envs))
	for i, e := range envs {
		out[i] = e.Type
	}
	return out
}

func errorCode(t *testing.T, c *Client) models.ErrorCode {
	t.Helper()
	env, ok := find(drain(c), models.MsgError)
	require.True(t, ok, "expected an error reply")
	var pe models.ProtocolError
	require.NoError(t, env.Decode(&pe))
	return pe.Code
}

func voteAndReady(h *harness, c *Client, gameID string) {
	h.t.Helper()
	h.send(c, models.MsgVoteGame, models.VoteGameRequest{GameID: gameID})
	h.send(c, models.MsgReadyToggle, models.ReadyToggleRequest{IsReady: true})
}
