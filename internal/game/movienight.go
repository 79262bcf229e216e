package game

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	MovieNightID = "movie-night"

	ActionGuess = "guess"
)

type scene struct {
	Description string
	Title       string
}

var defaultScenes = []scene{
	{Description: "A shark terrorises a beach town on the Fourth of July.", Title: "Jaws"},
	{Description: "A boy and his alien friend fly a bicycle across the moon.", Title: "E.T."},
	{Description: "Toys come to life whenever their owner leaves the room.", Title: "Toy Story"},
	{Description: "An ocean liner meets an iceberg on its maiden voyage.", Title: "Titanic"},
	{Description: "A hacker takes the red pill.", Title: "The Matrix"},
}

// MovieNight 依場景描述猜電影，第一個猜中的得 2 分，之後猜中的得 1 分。
// 不需要倒數，大廳全員準備後直接開始。
type MovieNight struct {
	scenes []scene
}

func NewMovieNight() *MovieNight {
	return &MovieNight{scenes: defaultScenes[:3]}
}

func (m *MovieNight) ID() string           { return MovieNightID }
func (m *MovieNight) Name() string         { return "Movie Night" }
func (m *MovieNight) SkipsCountdown() bool { return true }

func (m *MovieNight) New(players []Participant) Instance {
	return &movieNightGame{
		scenes:  m.scenes,
		scores:  newScoreboard(players),
		guessed: make(map[string]bool),
	}
}

type movieNightGame struct {
	scenes  []scene
	index   int
	scores  *scoreboard
	guessed map[string]bool
	solved  bool
	done    bool
}

type MovieNightState struct {
	Scene       int          `json:"scene"`
	TotalScenes int          `json:"totalScenes"`
	Description string       `json:"description,omitempty"`
	Guessed     []string     `json:"guessed"`
	Scores      []ScoreEntry `json:"scores"`
}

func (g *movieNightGame) State() any {
	s := MovieNightState{
		Scene:       g.index + 1,
		TotalScenes: len(g.scenes),
		Guessed:     make([]string, 0, len(g.guessed)),
		Scores:      g.scores.entries(),
	}
	if !g.done {
		s.Description = g.scenes[g.index].Description
	}
	for _, id := range g.scores.order {
		if g.guessed[id] {
			s.Guessed = append(s.Guessed, id)
		}
	}
	return s
}

func (g *movieNightGame) AddPlayer(p Participant) {
	g.scores.join(p.ID)
}

func (g *movieNightGame) HandleAction(playerID, actionType string, payload json.RawMessage) (Outcome, error) {
	if !g.scores.has(playerID) {
		return Outcome{}, ErrNotParticipant
	}
	if g.done {
		return Outcome{}, ErrFinished
	}
	if actionType != ActionGuess {
		return Outcome{}, fmt.Errorf("%s: %w", actionType, ErrUnknownAction)
	}

	var req struct {
		Title string `json:"title"`
	}
	if err := decode(payload, &req); err != nil {
		return Outcome{}, err
	}
	if g.guessed[playerID] {
		return Outcome{}, ErrInvalidAction
	}
	g.guessed[playerID] = true

	if normalizeTitle(req.Title) == normalizeTitle(g.scenes[g.index].Title) {
		if g.solved {
			g.scores.add(playerID, 1)
		} else {
			g.scores.add(playerID, 2)
			g.solved = true
		}
	}

	return g.advance(), nil
}

func (g *movieNightGame) RemovePlayer(playerID string) Outcome {
	if g.done || !g.scores.has(playerID) {
		return Outcome{}
	}
	g.scores.leave(playerID)
	delete(g.guessed, playerID)
	return g.advance()
}

// advance 在所有人都猜過後換下一個場景，最後一個場景結束時遊戲結束
func (g *movieNightGame) advance() Outcome {
	if len(g.guessed) < len(g.scores.order) {
		return Outcome{}
	}
	if g.index+1 >= len(g.scenes) || len(g.scores.order) == 0 {
		g.done = true
		return g.scores.finish()
	}
	g.index++
	g.guessed = make(map[string]bool)
	g.solved = false
	return Outcome{}
}

func normalizeTitle(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "the ")
	return strings.NewReplacer(".", "", ",", "", "!", "", "'", "").Replace(s)
}
