package models

import "errors"

var (
	ErrInvalidNickname = errors.New("models: invalid nickname")
	ErrInvalidConfig   = errors.New("models: invalid room config")
)

// ErrorCode 是傳給客戶端的錯誤代碼
type ErrorCode string

const (
	CodeRoomNotFound   ErrorCode = "ROOM_NOT_FOUND"
	CodeRoomFull       ErrorCode = "ROOM_FULL"
	CodeGameInProgress ErrorCode = "GAME_IN_PROGRESS"
	CodeUnauthorized   ErrorCode = "UNAUTHORIZED"
	CodeCannotBootSelf ErrorCode = "CANNOT_BOOT_SELF"
	CodeInvalidNick    ErrorCode = "INVALID_NICKNAME"
	CodeNotInRoom      ErrorCode = "NOT_IN_ROOM"
	CodePlayerNotFound ErrorCode = "PLAYER_NOT_FOUND"
	CodeInvalidMessage ErrorCode = "INVALID_MESSAGE"
	CodeInvalidPhase   ErrorCode = "INVALID_PHASE"
	CodeGamePaused     ErrorCode = "GAME_PAUSED"
	CodeRateLimited    ErrorCode = "RATE_LIMITED"
	CodeInternal       ErrorCode = "INTERNAL_ERROR"
)

var codeMessages = map[ErrorCode]string{
	CodeRoomNotFound:   "找不到房間",
	CodeRoomFull:       "房間已滿",
	CodeGameInProgress: "遊戲進行中，請稍後再試",
	CodeUnauthorized:   "沒有權限執行此操作",
	CodeCannotBootSelf: "不能踢除自己",
	CodeInvalidNick:    "暱稱無效",
	CodeNotInRoom:      "尚未加入房間",
	CodePlayerNotFound: "找不到玩家",
	CodeInvalidMessage: "訊息格式錯誤",
	CodeInvalidPhase:   "目前階段不允許此操作",
	CodeGamePaused:     "遊戲已暫停",
	CodeRateLimited:    "訊息傳送太頻繁",
	CodeInternal:       "伺服器內部錯誤",
}

// ProtocolError 是只回覆給發送者的協定錯誤
type ProtocolError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *ProtocolError) Error() string {
	return string(e.Code) + ": " + e.Message
}

// NewProtocolError 以代碼預設的訊息建立錯誤
func NewProtocolError(code ErrorCode) *ProtocolError {
	return &ProtocolError{Code: code, Message: codeMessages[code]}
}

// AsProtocolError 把任意錯誤轉成協定錯誤，無法辨識的錯誤視為 INTERNAL_ERROR
func AsProtocolError(err error) *ProtocolError {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return pe
	}
	return NewProtocolError(CodeInternal)
}
