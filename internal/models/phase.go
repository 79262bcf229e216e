package models

import "party_lobby/internal/voting"

// PhaseName 房間階段的名稱，同時也是傳輸層的 phase 欄位
type PhaseName string

const (
	PhaseTitle     PhaseName = "title"
	PhaseLobby     PhaseName = "lobby"
	PhaseCountdown PhaseName = "countdown"
	PhasePlaying   PhaseName = "playing"
	PhaseResults   PhaseName = "results"
)

// Phase 是房間階段的標記聯合型別，每個實作只攜帶該階段有效的欄位
type Phase interface {
	Name() PhaseName
}

// Pausable 由可暫停的階段（倒數、遊戲中、結算）實作
type Pausable interface {
	Phase
	PauseState() *PauseState
}

// PauseState 暫停狀態
type PauseState struct {
	IsPaused     bool   `json:"isPaused"`
	PausedByName string `json:"pausedByName,omitempty"`
}

type TitlePhase struct{}

// LobbyPhase 大廳階段，持有該輪的投票彙整器
type LobbyPhase struct {
	Voting *voting.Aggregator
}

type CountdownPhase struct {
	SelectedGame     string
	SecondsRemaining int
	Pause            PauseState
}

// PlayingPhase 的 GameState 由遊戲模組擁有，這裡只當作不透明的資料轉送
type PlayingPhase struct {
	GameID    string
	GameState any
	Pause     PauseState
}

type ResultsPhase struct {
	GameID  string
	Winners []string
	Scores  []PlayerScore
	Pause   PauseState
}

// PlayerScore 是分數映射在傳輸層的一筆資料
type PlayerScore struct {
	PlayerID string `json:"playerId"`
	Score    int    `json:"score"`
}

func (*TitlePhase) Name() PhaseName     { return PhaseTitle }
func (*LobbyPhase) Name() PhaseName     { return PhaseLobby }
func (*CountdownPhase) Name() PhaseName { return PhaseCountdown }
func (*PlayingPhase) Name() PhaseName   { return PhasePlaying }
func (*ResultsPhase) Name() PhaseName   { return PhaseResults }

func (p *CountdownPhase) PauseState() *PauseState { return &p.Pause }
func (p *PlayingPhase) PauseState() *PauseState   { return &p.Pause }
func (p *ResultsPhase) PauseState() *PauseState   { return &p.Pause }

// NewLobbyPhase 建立一個空的大廳階段
func NewLobbyPhase() *LobbyPhase {
	return &LobbyPhase{Voting: voting.NewAggregator()}
}

// transitions 列出允許的階段轉換。
// 任何階段都能被管理員拉回 lobby 或 title；lobby → playing 只給快速通道的遊戲使用。
var transitions = map[PhaseName]map[PhaseName]bool{
	PhaseTitle:     {PhaseTitle: true, PhaseLobby: true},
	PhaseLobby:     {PhaseTitle: true, PhaseLobby: true, PhaseCountdown: true, PhasePlaying: true},
	PhaseCountdown: {PhaseTitle: true, PhaseLobby: true, PhasePlaying: true},
	PhasePlaying:   {PhaseTitle: true, PhaseLobby: true, PhaseResults: true},
	PhaseResults:   {PhaseTitle: true, PhaseLobby: true},
}

// CanTransition 回報 from → to 是否為合法的階段轉換
func CanTransition(from, to PhaseName) bool {
	return transitions[from][to]
}
