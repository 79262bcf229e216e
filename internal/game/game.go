// Package game 定義可插拔的遊戲模組。
//
// 大廳只把遊戲狀態當作不透明資料轉送，規則完全由各模組自行負責。
package game

import (
	"encoding/json"
	"errors"
	"sort"
)

var (
	ErrUnknownGame    = errors.New("game: unknown game")
	ErrUnknownAction  = errors.New("game: unknown action")
	ErrInvalidAction  = errors.New("game: action not allowed now")
	ErrNotParticipant = errors.New("game: player is not a participant")
	ErrFinished       = errors.New("game: already finished")
)

// Participant 開始遊戲時傳給模組的玩家資料
type Participant struct {
	ID       string
	Nickname string
}

// Module 描述一款遊戲
type Module interface {
	ID() string
	Name() string
	// SkipsCountdown 為 true 時，大廳全員準備後直接進入遊戲，不經過倒數
	SkipsCountdown() bool
	New(players []Participant) Instance
}

// Instance 是一局進行中的遊戲，只會在房間的派送佇列上被呼叫
type Instance interface {
	State() any
	HandleAction(playerID, actionType string, payload json.RawMessage) (Outcome, error)
	AddPlayer(p Participant)
	// RemovePlayer 讓遊戲不再等待離開的玩家，必要時會直接推進或結束遊戲
	RemovePlayer(playerID string) Outcome
}

// Outcome 描述一次動作的結果。Finished 為 true 時 Scores 是這局每位玩家得到的分數。
type Outcome struct {
	Finished bool
	Winners  []string
	Scores   map[string]int
}

// Registry 依 ID 查詢遊戲模組
type Registry struct {
	modules map[string]Module
	order   []string
}

func NewRegistry(modules ...Module) *Registry {
	r := &Registry{modules: make(map[string]Module)}
	for _, m := range modules {
		if _, ok := r.modules[m.ID()]; !ok {
			r.order = append(r.order, m.ID())
		}
		r.modules[m.ID()] = m
	}
	return r
}

// DefaultRegistry 內建的遊戲
func DefaultRegistry() *Registry {
	return NewRegistry(NewFakeFacts(), NewMovieNight())
}

func (r *Registry) Get(id string) (Module, bool) {
	m, ok := r.modules[id]
	return m, ok
}

// IDs 依註冊順序回傳所有遊戲 ID
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

// scoreboard 依加入順序記錄分數
type scoreboard struct {
	order  []string
	points map[string]int
}

func newScoreboard(players []Participant) *scoreboard {
	s := &scoreboard{points: make(map[string]int)}
	for _, p := range players {
		s.join(p.ID)
	}
	return s
}

func (s *scoreboard) join(id string) {
	if _, ok := s.points[id]; ok {
		return
	}
	s.points[id] = 0
	s.order = append(s.order, id)
}

func (s *scoreboard) leave(id string) {
	if _, ok := s.points[id]; !ok {
		return
	}
	delete(s.points, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *scoreboard) has(id string) bool {
	_, ok := s.points[id]
	return ok
}

func (s *scoreboard) add(id string, n int) {
	if s.has(id) {
		s.points[id] += n
	}
}

// winners 回傳最高分的所有玩家
func (s *scoreboard) winners() []string {
	best := 0
	for _, id := range s.order {
		if s.points[id] > best {
			best = s.points[id]
		}
	}
	var out []string
	for _, id := range s.order {
		if s.points[id] == best {
			out = append(out, id)
		}
	}
	return out
}

func (s *scoreboard) snapshot() map[string]int {
	out := make(map[string]int, len(s.points))
	for id, n := range s.points {
		out[id] = n
	}
	return out
}

// ScoreEntry 分數在遊戲狀態中的陣列形式
type ScoreEntry struct {
	PlayerID string `json:"playerId"`
	Score    int    `json:"score"`
}

func (s *scoreboard) entries() []ScoreEntry {
	out := make([]ScoreEntry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, ScoreEntry{PlayerID: id, Score: s.points[id]})
	}
	return out
}

func (s *scoreboard) finish() Outcome {
	return Outcome{Finished: true, Winners: s.winners(), Scores: s.snapshot()}
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func decode(payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		return ErrInvalidAction
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return ErrInvalidAction
	}
	return nil
}
