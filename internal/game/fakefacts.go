package game

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
)

const (
	FakeFactsID = "fake-facts"

	ActionSubmitFact = "submit-fact"
	ActionVote       = "vote"

	truthOption = "truth"
)

const (
	stageWriting = "writing"
	stageVoting  = "voting"
)

type fact struct {
	Prompt string
	Answer string
}

var defaultFacts = []fact{
	{Prompt: "An octopus has this many hearts.", Answer: "three"},
	{Prompt: "The national animal of Scotland is the ____.", Answer: "unicorn"},
	{Prompt: "Bananas are botanically classified as ____.", Answer: "berries"},
	{Prompt: "A group of flamingos is called a ____.", Answer: "flamboyance"},
	{Prompt: "Honey found in ancient Egyptian tombs was still ____.", Answer: "edible"},
	{Prompt: "Wombat droppings are shaped like ____.", Answer: "cubes"},
}

// FakeFacts 每位玩家為題目編一個假答案，再從所有答案中找出真的那一個。
// 選中真答案得 2 分，每騙到一位玩家得 1 分。
type FakeFacts struct {
	rounds int
	facts  []fact
	pick   func(n int) int
}

type FakeFactsOption func(*FakeFacts)

// WithRounds 設定每局的回合數
func WithRounds(n int) FakeFactsOption {
	return func(f *FakeFacts) {
		if n > 0 {
			f.rounds = n
		}
	}
}

// WithPicker 替換題目的挑選方式，測試時用來固定題目
func WithPicker(pick func(n int) int) FakeFactsOption {
	return func(f *FakeFacts) { f.pick = pick }
}

func NewFakeFacts(opts ...FakeFactsOption) *FakeFacts {
	f := &FakeFacts{rounds: 2, facts: defaultFacts, pick: rand.IntN}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *FakeFacts) ID() string           { return FakeFactsID }
func (f *FakeFacts) Name() string         { return "Fake Facts" }
func (f *FakeFacts) SkipsCountdown() bool { return false }

func (f *FakeFacts) New(players []Participant) Instance {
	g := &fakeFactsGame{
		module: f,
		scores: newScoreboard(players),
	}
	g.startRound()
	return g
}

type factOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type fakeFactsGame struct {
	module *FakeFacts
	scores *scoreboard

	round       int
	stage       string
	current     fact
	submissions map[string]string // playerID → 假答案
	options     []factOption
	authors     map[string]string // optionID → playerID，真答案沒有作者
	voters      map[string]bool   // 投票開始時需要投票的玩家
	votes       map[string]string // playerID → optionID
}

// FakeFactsState 傳給客戶端的狀態，投票階段前不會揭露任何答案
type FakeFactsState struct {
	Round       int          `json:"round"`
	TotalRounds int          `json:"totalRounds"`
	Stage       string       `json:"stage"`
	Prompt      string       `json:"prompt"`
	Submitted   []string     `json:"submitted"`
	Options     []factOption `json:"options,omitempty"`
	Voted       []string     `json:"voted"`
	Scores      []ScoreEntry `json:"scores"`
}

func (g *fakeFactsGame) startRound() {
	g.round++
	g.stage = stageWriting
	g.current = g.module.facts[g.module.pick(len(g.module.facts))]
	g.submissions = make(map[string]string)
	g.options = nil
	g.authors = nil
	g.voters = nil
	g.votes = make(map[string]string)
}

func (g *fakeFactsGame) State() any {
	s := FakeFactsState{
		Round:       g.round,
		TotalRounds: g.module.rounds,
		Stage:       g.stage,
		Prompt:      g.current.Prompt,
		Submitted:   make([]string, 0, len(g.submissions)),
		Voted:       make([]string, 0, len(g.votes)),
		Scores:      g.scores.entries(),
	}
	for _, id := range g.scores.order {
		if _, ok := g.submissions[id]; ok {
			s.Submitted = append(s.Submitted, id)
		}
		if _, ok := g.votes[id]; ok {
			s.Voted = append(s.Voted, id)
		}
	}
	if g.stage == stageVoting {
		s.Options = append([]factOption(nil), g.options...)
	}
	return s
}

func (g *fakeFactsGame) AddPlayer(p Participant) {
	g.scores.join(p.ID)
}

func (g *fakeFactsGame) HandleAction(playerID, actionType string, payload json.RawMessage) (Outcome, error) {
	if !g.scores.has(playerID) {
		return Outcome{}, ErrNotParticipant
	}
	switch actionType {
	case ActionSubmitFact:
		var req struct {
			Text string `json:"text"`
		}
		if err := decode(payload, &req); err != nil {
			return Outcome{}, err
		}
		return g.submit(playerID, req.Text)
	case ActionVote:
		var req struct {
			OptionID string `json:"optionId"`
		}
		if err := decode(payload, &req); err != nil {
			return Outcome{}, err
		}
		return g.vote(playerID, req.OptionID)
	default:
		return Outcome{}, fmt.Errorf("%s: %w", actionType, ErrUnknownAction)
	}
}

func (g *fakeFactsGame) submit(playerID, text string) (Outcome, error) {
	text = strings.TrimSpace(text)
	if g.stage != stageWriting || text == "" {
		return Outcome{}, ErrInvalidAction
	}
	if strings.EqualFold(text, g.current.Answer) {
		return Outcome{}, ErrInvalidAction
	}
	g.submissions[playerID] = text

	g.advance()
	return Outcome{}, nil
}

// advance 在所有人都交出答案後開放投票
func (g *fakeFactsGame) advance() {
	if g.stage == stageWriting && len(g.scores.order) > 0 && len(g.submissions) == len(g.scores.order) {
		g.openVoting()
	}
}

// openVoting 依文字排序所有答案，相同的假答案會合併成一個選項
func (g *fakeFactsGame) openVoting() {
	g.stage = stageVoting
	g.authors = make(map[string]string)
	g.voters = make(map[string]bool)

	byText := map[string]string{strings.ToLower(g.current.Answer): ""}
	texts := []string{g.current.Answer}
	for _, id := range g.scores.order {
		text, ok := g.submissions[id]
		if !ok {
			continue
		}
		g.voters[id] = true
		key := strings.ToLower(text)
		if _, dup := byText[key]; dup {
			continue
		}
		byText[key] = id
		texts = append(texts, text)
	}
	sort.Strings(texts)

	for i, text := range texts {
		author := byText[strings.ToLower(text)]
		optID := fmt.Sprintf("opt-%d", i+1)
		if author == "" {
			optID = truthOption
		}
		g.options = append(g.options, factOption{ID: optID, Text: text})
		g.authors[optID] = author
	}
}

func (g *fakeFactsGame) vote(playerID, optionID string) (Outcome, error) {
	if g.stage != stageVoting || !g.voters[playerID] {
		return Outcome{}, ErrInvalidAction
	}
	author, ok := g.authors[optionID]
	if !ok || author == playerID {
		return Outcome{}, ErrInvalidAction
	}
	g.votes[playerID] = optionID
	return g.resolveVotes(), nil
}

func (g *fakeFactsGame) RemovePlayer(playerID string) Outcome {
	if !g.scores.has(playerID) {
		return Outcome{}
	}
	g.scores.leave(playerID)
	delete(g.submissions, playerID)
	delete(g.votes, playerID)
	delete(g.voters, playerID)

	switch g.stage {
	case stageWriting:
		g.advance()
	case stageVoting:
		return g.resolveVotes()
	}
	return Outcome{}
}

// resolveVotes 在需要投票的玩家都投完後計分，並進入下一回合或結束
func (g *fakeFactsGame) resolveVotes() Outcome {
	if g.stage != stageVoting || len(g.votes) < len(g.voters) {
		return Outcome{}
	}

	for _, voter := range sortedKeys(g.voters) {
		choice := g.votes[voter]
		if choice == truthOption {
			g.scores.add(voter, 2)
			continue
		}
		g.scores.add(g.authors[choice], 1)
	}
	if g.round >= g.module.rounds || len(g.scores.order) == 0 {
		g.stage = ""
		return g.scores.finish()
	}
	g.startRound()
	return Outcome{}
}
