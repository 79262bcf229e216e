package service

import "time"

// Timer 是可取消的排程
type Timer interface {
	Stop() bool
}

// Clock 抽象化時間來源，測試時可以替換成手動推進的時鐘
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock 回傳使用系統時間的 Clock
func RealClock() Clock { return realClock{} }
