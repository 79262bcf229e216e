package models

import (
	"time"

	"party_lobby/internal/voting"
)

const (
	MinCountdownSeconds = 1
	MaxCountdownSeconds = 60
	MaxRoomCapacity     = 12
)

// RoomConfig 房間可由管理員調整的設定
type RoomConfig struct {
	CountdownSeconds int `json:"countdownSeconds"`
	MaxPlayers       int `json:"maxPlayers"`
}

// Validate 檢查設定值是否在允許範圍內
func (c RoomConfig) Validate() error {
	if c.CountdownSeconds < MinCountdownSeconds || c.CountdownSeconds > MaxCountdownSeconds {
		return ErrInvalidConfig
	}
	if c.MaxPlayers < 1 || c.MaxPlayers > MaxRoomCapacity {
		return ErrInvalidConfig
	}
	return nil
}

// Room 是房間聚合，玩家依加入順序排列
type Room struct {
	ID           string
	Phase        Phase
	Players      []*Player
	Config       RoomConfig
	HostAssigned bool // 房間重置前是否已經指派過房主
	CreatedAt    time.Time
}

// FindPlayer 依 ID 尋找玩家
func (r *Room) FindPlayer(playerID string) *Player {
	for _, p := range r.Players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

// Lobby 在大廳階段時回傳該階段，否則回傳 nil
func (r *Room) Lobby() *LobbyPhase {
	if l, ok := r.Phase.(*LobbyPhase); ok {
		return l
	}
	return nil
}

// RoomState 房間在傳輸層的快照
type RoomState struct {
	RoomID     string         `json:"roomId"`
	Phase      PhaseName      `json:"phase"`
	Players    []Player       `json:"players"`
	Config     RoomConfig     `json:"config"`
	Voting     *voting.State  `json:"votingState,omitempty"`
	Countdown  *CountdownInfo `json:"countdown,omitempty"`
	Playing    *PlayingInfo   `json:"playing,omitempty"`
	Results    *ResultsInfo   `json:"results,omitempty"`
	PauseState *PauseState    `json:"pauseState,omitempty"`
}

type CountdownInfo struct {
	SelectedGame     string `json:"selectedGame"`
	SecondsRemaining int    `json:"secondsRemaining"`
}

type PlayingInfo struct {
	GameID    string `json:"gameId"`
	GameState any    `json:"gameState"`
}

type ResultsInfo struct {
	GameID  string        `json:"gameId,omitempty"`
	Winners []string      `json:"winners"`
	Scores  []PlayerScore `json:"scores"`
}

// Snapshot 複製目前的房間狀態，回傳值不與房間共用任何可變資料
func (r *Room) Snapshot() RoomState {
	s := RoomState{
		RoomID:  r.ID,
		Phase:   r.Phase.Name(),
		Players: make([]Player, 0, len(r.Players)),
		Config:  r.Config,
	}
	for _, p := range r.Players {
		s.Players = append(s.Players, *p)
	}

	switch ph := r.Phase.(type) {
	case *LobbyPhase:
		v := ph.Voting.State()
		s.Voting = &v
	case *CountdownPhase:
		s.Countdown = &CountdownInfo{SelectedGame: ph.SelectedGame, SecondsRemaining: ph.SecondsRemaining}
	case *PlayingPhase:
		s.Playing = &PlayingInfo{GameID: ph.GameID, GameState: ph.GameState}
	case *ResultsPhase:
		s.Results = &ResultsInfo{
			GameID:  ph.GameID,
			Winners: append([]string{}, ph.Winners...),
			Scores:  append([]PlayerScore{}, ph.Scores...),
		}
	}
	if p, ok := r.Phase.(Pausable); ok {
		ps := *p.PauseState()
		s.PauseState = &ps
	}
	return s
}
