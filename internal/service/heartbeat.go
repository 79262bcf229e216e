package service

import "time"

// HeartbeatMonitor 以固定間隔觸發房間的心跳檢查。
// 每次檢查都透過 post 排進房間的派送佇列，Start 和 Stop 也只能在佇列中呼叫。
type HeartbeatMonitor struct {
	clock    Clock
	interval time.Duration
	post     func(func())
	sweep    func()

	running bool
	gen     uint64
	timer   Timer
}

func NewHeartbeatMonitor(clock Clock, interval time.Duration, post func(func()), sweep func()) *HeartbeatMonitor {
	return &HeartbeatMonitor{
		clock:    clock,
		interval: interval,
		post:     post,
		sweep:    sweep,
	}
}

// Start 開始週期檢查，已在執行時不做任何事
func (h *HeartbeatMonitor) Start() {
	if h.running {
		return
	}
	h.running = true
	h.gen++
	h.schedule(h.gen)
}

// Stop 停止週期檢查，已排入佇列但尚未執行的檢查會被忽略
func (h *HeartbeatMonitor) Stop() {
	if !h.running {
		return
	}
	h.running = false
	h.gen++
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
}

func (h *HeartbeatMonitor) Running() bool {
	return h.running
}

func (h *HeartbeatMonitor) schedule(gen uint64) {
	h.timer = h.clock.AfterFunc(h.interval, func() {
		h.post(func() {
			if !h.running || gen != h.gen {
				return
			}
			defer h.schedule(gen)
			h.sweep()
		})
	})
}
