package utils

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken  = errors.New("session token is invalid or expired")
	ErrTokenMismatch = errors.New("session token does not belong to this player")
)

// SessionClaims 是 session token 攜帶的資料。
// Nonce 只存在 token 裡，伺服器端只保留它的 bcrypt 雜湊。
type SessionClaims struct {
	PlayerID string `json:"playerId"`
	RoomID   string `json:"roomId"`
	Nonce    string `json:"nonce"`
	jwt.StandardClaims
}

// TokenIssuer 簽發與驗證玩家的 session token
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	cost   int
}

// NewTokenIssuer 建立 TokenIssuer，超出範圍的 cost 一律用 bcrypt.MinCost
func NewTokenIssuer(secret string, ttl time.Duration, bcryptCost int) *TokenIssuer {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.MinCost
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, cost: bcryptCost}
}

// Issue 生成一個新的 session token，並回傳要存在玩家身上的 nonce 雜湊
func (t *TokenIssuer) Issue(playerID, roomID string) (string, []byte, error) {
	nonce, err := randomHex(16)
	if err != nil {
		return "", nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(nonce), t.cost)
	if err != nil {
		return "", nil, fmt.Errorf("hash session nonce: %w", err)
	}

	nowTime := time.Now()
	claims := SessionClaims{
		PlayerID: playerID,
		RoomID:   roomID,
		Nonce:    nonce,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: nowTime.Add(t.ttl).Unix(),
			IssuedAt:  nowTime.Unix(),
		},
	}

	tokenClaims := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err := tokenClaims.SignedString(t.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign session token: %w", err)
	}
	return token, hash, nil
}

// Parse 解析和驗證 session token 的簽章與期限
func (t *TokenIssuer) Parse(token string) (*SessionClaims, error) {
	tokenClaims, err := jwt.ParseWithClaims(token, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := tokenClaims.Claims.(*SessionClaims)
	if !ok || !tokenClaims.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Verify 確認 token 屬於指定的玩家與房間，且 nonce 和儲存的雜湊相符
func (t *TokenIssuer) Verify(token, playerID, roomID string, hash []byte) error {
	claims, err := t.Parse(token)
	if err != nil {
		return err
	}
	if claims.PlayerID != playerID || claims.RoomID != roomID || len(hash) == 0 {
		return ErrTokenMismatch
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(claims.Nonce)); err != nil {
		return ErrTokenMismatch
	}
	return nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
