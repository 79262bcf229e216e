package repository

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"party_lobby/internal/models"
)

var (
	ErrRoomNotFound      = errors.New("repository: room not found")
	ErrRoomExists        = errors.New("repository: room already exists")
	ErrPlayerNotFound    = errors.New("repository: player not found")
	ErrPlayerExists      = errors.New("repository: player already in room")
	ErrInvalidTransition = errors.New("repository: invalid phase transition")
)

type RoomRepository interface {
	CreateRoom(id string, config models.RoomConfig) (*models.Room, error)
	GetRoom(id string) (*models.Room, bool)
	Exists(id string) bool
	List() []string // 依建立時間排序的房間 ID

	AddPlayer(roomID string, player *models.Player) error
	RemovePlayer(roomID, playerID string) (*models.Player, error)
	UpdatePlayer(roomID, playerID string, patch models.PlayerPatch) (*models.Player, error)
	PlayerByDevice(roomID, deviceID string) (*models.Player, bool)
	TakeDepartedScore(roomID, nickname string) (int, bool)

	UpdateRoomState(roomID string, phase models.Phase) error
	UpdateConfig(roomID string, config models.RoomConfig) error
	ResetRoom(roomID string) error
}

// roomRecord 房間本體加上和玩家集合一起維護的索引
type roomRecord struct {
	room           *models.Room
	devices        map[string]string // deviceID → playerID
	departedScores map[string]int    // 暱稱鍵 → 離開時的分數
}

type roomRepository struct {
	mu    sync.RWMutex
	rooms map[string]*roomRecord
	now   func() time.Time
}

// NewRoomRepository 建立記憶體內的房間儲存，所有操作都是同步的
func NewRoomRepository(now func() time.Time) RoomRepository {
	if now == nil {
		now = time.Now
	}
	return &roomRepository{
		rooms: make(map[string]*roomRecord),
		now:   now,
	}
}

func (r *roomRepository) CreateRoom(id string, config models.RoomConfig) (*models.Room, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[id]; ok {
		return nil, fmt.Errorf("create room %s: %w", id, ErrRoomExists)
	}
	room := &models.Room{
		ID:        id,
		Phase:     &models.TitlePhase{},
		Config:    config,
		CreatedAt: r.now(),
	}
	r.rooms[id] = &roomRecord{
		room:           room,
		devices:        make(map[string]string),
		departedScores: make(map[string]int),
	}
	return room, nil
}

func (r *roomRepository) GetRoom(id string) (*models.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.rooms[id]
	if !ok {
		return nil, false
	}
	return rec.room, true
}

func (r *roomRepository) Exists(id string) bool {
	_, ok := r.GetRoom(id)
	return ok
}

func (r *roomRepository) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	recs := make([]*roomRecord, 0, len(r.rooms))
	for _, rec := range r.rooms {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].room.CreatedAt.Before(recs[j].room.CreatedAt)
	})

	ids := make([]string, len(recs))
	for i, rec := range recs {
		ids[i] = rec.room.ID
	}
	return ids
}

// AddPlayer 把玩家加到加入順序的最後面並更新裝置索引。
// 同裝置的舊玩家必須由呼叫者先行移除。
func (r *roomRepository) AddPlayer(roomID string, player *models.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	if rec.room.FindPlayer(player.ID) != nil {
		return ErrPlayerExists
	}

	player.RoomID = roomID
	rec.room.Players = append(rec.room.Players, player)
	if player.DeviceID != "" {
		rec.devices[player.DeviceID] = player.ID
	}
	if player.IsHost {
		rec.room.HostAssigned = true
	}
	return nil
}

// RemovePlayer 移除玩家並記下分數，同暱稱的玩家之後重新加入時可以取回
func (r *roomRepository) RemovePlayer(roomID, playerID string) (*models.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}

	players := rec.room.Players
	for i, p := range players {
		if p.ID != playerID {
			continue
		}
		rec.room.Players = append(players[:i:i], players[i+1:]...)
		if rec.devices[p.DeviceID] == p.ID {
			delete(rec.devices, p.DeviceID)
		}
		rec.departedScores[models.NicknameKey(p.Nickname)] = p.Score
		return p, nil
	}
	return nil, ErrPlayerNotFound
}

func (r *roomRepository) UpdatePlayer(roomID, playerID string, patch models.PlayerPatch) (*models.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	p := rec.room.FindPlayer(playerID)
	if p == nil {
		return nil, ErrPlayerNotFound
	}
	patch.Apply(p)
	return p, nil
}

func (r *roomRepository) PlayerByDevice(roomID, deviceID string) (*models.Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.rooms[roomID]
	if !ok || deviceID == "" {
		return nil, false
	}
	id, ok := rec.devices[deviceID]
	if !ok {
		return nil, false
	}
	p := rec.room.FindPlayer(id)
	return p, p != nil
}

// TakeDepartedScore 取出並清除該暱稱記下的分數
func (r *roomRepository) TakeDepartedScore(roomID, nickname string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.rooms[roomID]
	if !ok {
		return 0, false
	}
	key := models.NicknameKey(nickname)
	score, ok := rec.departedScores[key]
	if ok {
		delete(rec.departedScores, key)
	}
	return score, ok
}

func (r *roomRepository) UpdateRoomState(roomID string, phase models.Phase) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	from, to := rec.room.Phase.Name(), phase.Name()
	if !models.CanTransition(from, to) {
		return fmt.Errorf("%s → %s: %w", from, to, ErrInvalidTransition)
	}
	rec.room.Phase = phase
	return nil
}

func (r *roomRepository) UpdateConfig(roomID string, config models.RoomConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	rec.room.Config = config
	return nil
}

// ResetRoom 清空玩家與所有索引，階段回到 title，房間 ID 與設定保留
func (r *roomRepository) ResetRoom(roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	rec.room.Players = nil
	rec.room.Phase = &models.TitlePhase{}
	rec.room.HostAssigned = false
	rec.devices = make(map[string]string)
	rec.departedScores = make(map[string]int)
	return nil
}
