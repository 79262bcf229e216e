package service

import (
	"errors"
	"runtime/debug"

	"github.com/rs/zerolog/log"

	"party_lobby/internal/game"
	"party_lobby/internal/voting"
)

var ErrRoomClosed = errors.New("room dispatch queue is closed")

const jobQueueSize = 64

// roomActor 是單一房間的派送佇列。
// 房間的所有變更（玩家訊息、心跳檢查、倒數）都在這個 goroutine 上依序執行，
// 下面的欄位只能在佇列中的工作裡存取。
type roomActor struct {
	id   string
	jobs chan func()
	quit chan struct{}

	countdownTimer Timer
	countdownGen   uint64
	suspendedVotes *voting.Aggregator // 倒數期間保留的大廳投票，取消倒數時還原

	heartbeat *HeartbeatMonitor
	instance  game.Instance
	conns     map[string]*Client // playerID → 目前的連接
}

func newRoomActor(id string) *roomActor {
	return &roomActor{
		id:    id,
		jobs:  make(chan func(), jobQueueSize),
		quit:  make(chan struct{}),
		conns: make(map[string]*Client),
	}
}

func (a *roomActor) run() {
	for {
		select {
		case job := <-a.jobs:
			a.exec(job)
		case <-a.quit:
			return
		}
	}
}

func (a *roomActor) exec(job func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("room", a.id).Interface("panic", r).Bytes("stack", debug.Stack()).Msg("room job panicked")
		}
	}()
	job()
}

// do 把工作放進佇列並等待它執行完畢。不能在佇列中的工作裡呼叫。
func (a *roomActor) do(fn func()) error {
	done := make(chan struct{})
	job := func() {
		defer close(done)
		fn()
	}

	select {
	case a.jobs <- job:
	case <-a.quit:
		return ErrRoomClosed
	}
	select {
	case <-done:
		return nil
	case <-a.quit:
		return ErrRoomClosed
	}
}

// post 把工作放進佇列但不等待，給計時器的回呼使用
func (a *roomActor) post(fn func()) {
	select {
	case a.jobs <- fn:
	case <-a.quit:
	}
}

func (a *roomActor) stop() {
	close(a.quit)
}
