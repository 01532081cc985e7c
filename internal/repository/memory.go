package repository

import (
	"context"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Rohit00112/meetflow/internal/model"
)

// MemoryUserRepo はインメモリのユーザーリポジトリ。
// DBなしでの起動（モックデータ層）とテストの並列実行に使用する。
type MemoryUserRepo struct {
	mu    sync.RWMutex
	users map[string]*model.User // key: user ID
}

// NewMemoryUserRepo は空のMemoryUserRepoを生成する。
func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{users: make(map[string]*model.User)}
}

// NewSeededMemoryUserRepo はテストユーザー（test@example.com / password123）を
// 登録済みのMemoryUserRepoを生成する。DBなしでの動作確認用。
func NewSeededMemoryUserRepo() (*MemoryUserRepo, *model.User) {
	repo := NewMemoryUserRepo()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		// MinCostでの生成は失敗しない
		panic(err)
	}

	now := time.Now()
	seeded := &model.User{
		ID:           "user-test-1",
		Name:         "Test User",
		Email:        "test@example.com",
		PasswordHash: string(hash),
		Avatar:       "https://ui-avatars.com/api/?name=TU&background=4285F4&color=fff&size=200",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	repo.users[seeded.ID] = seeded

	copied := *seeded
	return repo, &copied
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *MemoryUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if u, ok := r.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
func (r *MemoryUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

// Create はユーザーを作成する。
func (r *MemoryUserRepo) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

// Update はユーザーのプロフィール情報を更新する。
func (r *MemoryUserRepo) Update(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.users[user.ID]
	if !ok {
		return errUserNotFound(user.ID)
	}
	existing.Name = user.Name
	existing.Email = user.Email
	existing.Avatar = user.Avatar
	existing.Bio = user.Bio
	existing.Phone = user.Phone
	existing.UpdatedAt = user.UpdatedAt
	return nil
}

// UpdatePassword は指定ユーザーのパスワードハッシュのみを更新する。
func (r *MemoryUserRepo) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.users[userID]
	if !ok {
		return errUserNotFound(userID)
	}
	existing.PasswordHash = passwordHash
	existing.UpdatedAt = time.Now()
	return nil
}

// MemoryPasswordResetRepo はインメモリのパスワードリセットリポジトリ。
type MemoryPasswordResetRepo struct {
	mu     sync.Mutex
	resets map[string]*model.PasswordReset // key: token
}

// NewMemoryPasswordResetRepo は空のMemoryPasswordResetRepoを生成する。
func NewMemoryPasswordResetRepo() *MemoryPasswordResetRepo {
	return &MemoryPasswordResetRepo{resets: make(map[string]*model.PasswordReset)}
}

// Create はリセットトークンを作成する。
func (r *MemoryPasswordResetRepo) Create(ctx context.Context, reset *model.PasswordReset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *reset
	r.resets[reset.Token] = &copied
	return nil
}

// FindByToken はトークン値でリセットレコードを検索する。見つからない場合はnilを返す。
func (r *MemoryPasswordResetRepo) FindByToken(ctx context.Context, token string) (*model.PasswordReset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if reset, ok := r.resets[token]; ok {
		copied := *reset
		return &copied, nil
	}
	return nil, nil
}

// DeleteByToken は指定トークンのレコードを削除する。
func (r *MemoryPasswordResetRepo) DeleteByToken(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.resets, token)
	return nil
}

// DeleteExpired は期限切れの全レコードを削除し、削除件数を返す。
func (r *MemoryPasswordResetRepo) DeleteExpired(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	var deleted int64
	for token, reset := range r.resets {
		if reset.IsExpired(now) {
			delete(r.resets, token)
			deleted++
		}
	}
	return deleted, nil
}

// MemoryMeetingStore はインメモリの会議スナップショットストア。テスト用。
type MemoryMeetingStore struct {
	mu       sync.Mutex
	snapshot []*model.Meeting
	// SaveCount はSaveの呼び出し回数。変更ごとの永続化規律の検証に使用する。
	SaveCount int
}

// NewMemoryMeetingStore は空のMemoryMeetingStoreを生成する。
func NewMemoryMeetingStore() *MemoryMeetingStore {
	return &MemoryMeetingStore{}
}

// Load は保存済みスナップショットを返す。未保存の場合は空を返す。
func (s *MemoryMeetingStore) Load(ctx context.Context) ([]*model.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil {
		return []*model.Meeting{}, nil
	}
	return s.snapshot, nil
}

// Save はスナップショットを差し替える。
func (s *MemoryMeetingStore) Save(ctx context.Context, meetings []*model.Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = meetings
	s.SaveCount++
	return nil
}

func errUserNotFound(id string) error {
	return &notFoundError{id: id}
}

type notFoundError struct {
	id string
}

func (e *notFoundError) Error() string {
	return "user not found: " + e.id
}

// compile-time interface checks
var (
	_ UserRepository          = (*MemoryUserRepo)(nil)
	_ PasswordResetRepository = (*MemoryPasswordResetRepo)(nil)
	_ MeetingStore            = (*MemoryMeetingStore)(nil)
)
