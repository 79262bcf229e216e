// Package voting 彙整大廳階段的遊戲投票與準備狀態。
//
// Aggregator 只處理投票規則本身，不知道網路連線或計時器的存在；
// 呼叫者（房間的派送佇列）負責序列化所有操作。
package voting

import "errors"

var (
	ErrUnknownPlayer = errors.New("voting: player is not part of the lobby")
	ErrVoteRequired  = errors.New("voting: a vote is required before getting ready")
)

// Vote 是 votes 映射在傳輸層的一筆資料
type Vote struct {
	PlayerID string `json:"playerId"`
	GameID   string `json:"gameId"`
}

// ReadyState 是 readyStates 映射在傳輸層的一筆資料
type ReadyState struct {
	PlayerID string `json:"playerId"`
	HasVoted bool   `json:"hasVoted"`
	IsReady  bool   `json:"isReady"`
}

// State 是投票狀態的快照，映射一律序列化為陣列
type State struct {
	Votes        []Vote       `json:"votes"`
	ReadyStates  []ReadyState `json:"readyStates"`
	SelectedGame string       `json:"selectedGame,omitempty"`
	AllReady     bool         `json:"allReady"`
}

type entry struct {
	gameID  string
	isReady bool
}

// Aggregator 追蹤每位玩家的投票與準備旗標
type Aggregator struct {
	order   []string
	entries map[string]*entry
}

func NewAggregator() *Aggregator {
	return &Aggregator{entries: make(map[string]*entry)}
}

// AddPlayer 讓玩家可以投票與切換準備狀態，已存在時不做任何事
func (a *Aggregator) AddPlayer(playerID string) {
	if _, ok := a.entries[playerID]; ok {
		return
	}
	a.entries[playerID] = &entry{}
	a.order = append(a.order, playerID)
}

func (a *Aggregator) HasPlayer(playerID string) bool {
	_, ok := a.entries[playerID]
	return ok
}

func (a *Aggregator) RemovePlayer(playerID string) {
	if _, ok := a.entries[playerID]; !ok {
		return
	}
	delete(a.entries, playerID)
	for i, id := range a.order {
		if id == playerID {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
}

// RecordVote 記錄或更換玩家的投票，準備旗標維持不變
func (a *Aggregator) RecordVote(playerID, gameID string) error {
	e, ok := a.entries[playerID]
	if !ok {
		return ErrUnknownPlayer
	}
	e.gameID = gameID
	return nil
}

// RecordReady 設定準備旗標。取消準備會一併清除投票，玩家必須重新投票。
func (a *Aggregator) RecordReady(playerID string, isReady bool) error {
	e, ok := a.entries[playerID]
	if !ok {
		return ErrUnknownPlayer
	}
	if !isReady {
		e.isReady = false
		e.gameID = ""
		return nil
	}
	if e.gameID == "" {
		return ErrVoteRequired
	}
	e.isReady = true
	return nil
}

// ResetReadiness 清除所有準備旗標但保留投票
func (a *Aggregator) ResetReadiness() {
	for _, e := range a.entries {
		e.isReady = false
	}
}

// SelectedGame 回傳得票數唯一最高的遊戲，平手或無人投票時回傳空字串
func (a *Aggregator) SelectedGame() string {
	counts := make(map[string]int)
	for _, id := range a.order {
		if g := a.entries[id].gameID; g != "" {
			counts[g]++
		}
	}

	best, bestCount, tied := "", 0, false
	for game, n := range counts {
		switch {
		case n > bestCount:
			best, bestCount, tied = game, n, false
		case n == bestCount:
			tied = true
		}
	}
	if tied {
		return ""
	}
	return best
}

// AllReady 需要已選出遊戲，且 readyStates 中每位玩家都已準備
func (a *Aggregator) AllReady() bool {
	if len(a.order) == 0 || a.SelectedGame() == "" {
		return false
	}
	for _, id := range a.order {
		if !a.entries[id].isReady {
			return false
		}
	}
	return true
}

func (a *Aggregator) State() State {
	s := State{
		Votes:        make([]Vote, 0, len(a.order)),
		ReadyStates:  make([]ReadyState, 0, len(a.order)),
		SelectedGame: a.SelectedGame(),
	}
	for _, id := range a.order {
		e := a.entries[id]
		if e.gameID != "" {
			s.Votes = append(s.Votes, Vote{PlayerID: id, GameID: e.gameID})
		}
		s.ReadyStates = append(s.ReadyStates, ReadyState{
			PlayerID: id,
			HasVoted: e.gameID != "",
			IsReady:  e.isReady,
		})
	}
	s.AllReady = a.AllReady()
	return s
}
