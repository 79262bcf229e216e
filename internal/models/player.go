package models

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// AdminSuffix 暱稱以此結尾的玩家加入時取得管理員身分
	AdminSuffix = "~"
	// ReservedSuffix 保留給機器人的暱稱字尾，不分大小寫
	ReservedSuffix = "bot"

	MaxNicknameLength = 24
)

// Player 表示一位已加入房間的玩家，和底層裝置或連線是分開的身分
type Player struct {
	ID          string    `json:"id"`
	RoomID      string    `json:"roomId"`
	Nickname    string    `json:"nickname"`
	DeviceID    string    `json:"-"`
	SessionHash []byte    `json:"-"` // session token nonce 的 bcrypt 雜湊
	IsAdmin     bool      `json:"isAdmin"`
	IsHost      bool      `json:"isHost"`
	Score       int       `json:"score"`
	IsConnected bool      `json:"isConnected"`
	ConnectedAt time.Time `json:"connectedAt"`
	LastSeenAt  time.Time `json:"lastSeenAt"`
}

// PlayerPatch 描述部分欄位的更新，nil 表示不變
type PlayerPatch struct {
	IsConnected *bool
	ConnectedAt *time.Time
	LastSeenAt  *time.Time
	Score       *int
	SessionHash []byte
}

func (p PlayerPatch) Apply(player *Player) {
	if p.IsConnected != nil {
		player.IsConnected = *p.IsConnected
	}
	if p.ConnectedAt != nil {
		player.ConnectedAt = *p.ConnectedAt
	}
	if p.LastSeenAt != nil {
		player.LastSeenAt = *p.LastSeenAt
	}
	if p.Score != nil {
		player.Score = *p.Score
	}
	if p.SessionHash != nil {
		player.SessionHash = p.SessionHash
	}
}

// ParseNickname 驗證暱稱並剝除管理員字尾。
// 以 bot 結尾（不分大小寫）的暱稱會被拒絕，只包含 bot 的暱稱（例如 Botticelli）可以使用。
func ParseNickname(raw string) (nickname string, isAdmin bool, err error) {
	nickname = strings.TrimSpace(raw)
	if strings.HasSuffix(nickname, AdminSuffix) {
		isAdmin = true
		nickname = strings.TrimSpace(strings.TrimSuffix(nickname, AdminSuffix))
	}

	switch {
	case nickname == "":
		return "", false, ErrInvalidNickname
	case utf8.RuneCountInString(nickname) > MaxNicknameLength:
		return "", false, ErrInvalidNickname
	case strings.HasSuffix(strings.ToLower(nickname), ReservedSuffix):
		return "", false, ErrInvalidNickname
	}
	return nickname, isAdmin, nil
}

// NicknameKey 是分數延續時使用的暱稱鍵
func NicknameKey(nickname string) string {
	return strings.ToLower(strings.TrimSpace(nickname))
}
