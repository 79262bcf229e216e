package utils

import (
	"crypto/rand"
	"errors"
	"math/big"
)

const (
	RoomCodeLength = 5
	// 去掉容易看錯的 0/O、1/I
	RoomCodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	maxRoomCodeAttempts = 32
)

var ErrRoomCodeExhausted = errors.New("could not find a free room code")

// GenerateRoomCode 產生一個隨機的房間代碼
func GenerateRoomCode() (string, error) {
	code := make([]byte, RoomCodeLength)
	limit := big.NewInt(int64(len(RoomCodeChars)))
	for i := range code {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		code[i] = RoomCodeChars[n.Int64()]
	}
	return string(code), nil
}

// UniqueRoomCode 產生一個 exists 回報為未使用的房間代碼
func UniqueRoomCode(exists func(string) bool) (string, error) {
	for range maxRoomCodeAttempts {
		code, err := GenerateRoomCode()
		if err != nil {
			return "", err
		}
		if !exists(code) {
			return code, nil
		}
	}
	return "", ErrRoomCodeExhausted
}
