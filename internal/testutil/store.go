// Package testutil provides in-memory repository implementations for service and handler tests.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
)

// Store holds every table in memory behind a single lock.
type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	users    map[string]*domain.User
	admins   map[string]*domain.Admin
	staff    map[string]*domain.StaffMember
	contacts map[string]*domain.ContactMessage
	chats    map[string]*domain.ChatSession
	history  []domain.ChatStatusChange
	resets   map[string]*domain.PasswordReset
	legacy   map[string]string
	seq      int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		now:      time.Now,
		users:    map[string]*domain.User{},
		admins:   map[string]*domain.Admin{},
		staff:    map[string]*domain.StaffMember{},
		contacts: map[string]*domain.ContactMessage{},
		chats:    map[string]*domain.ChatSession{},
		resets:   map[string]*domain.PasswordReset{},
		legacy:   map[string]string{},
	}
}

// tick returns strictly increasing timestamps so orderings are deterministic.
func (s *Store) tick() time.Time {
	s.seq++
	return s.now().Add(time.Duration(s.seq) * time.Millisecond)
}

// checkID mirrors the uuid primary key columns: a malformed id fails the
// query instead of matching nothing.
func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return &pgconn.PgError{
			Code:    "22P02",
			Message: "invalid input syntax for type uuid: \"" + id + "\"",
		}
	}
	return nil
}

func (s *Store) Users() repository.UserRepository                   { return userRepo{s} }
func (s *Store) Admins() repository.AdminRepository                 { return adminRepo{s} }
func (s *Store) Staff() repository.StaffRepository                  { return staffRepo{s} }
func (s *Store) Contacts() repository.ContactRepository             { return contactRepo{s} }
func (s *Store) Chats() repository.ChatRepository                   { return chatRepo{s} }
func (s *Store) ChatHistory() repository.ChatHistoryRepository      { return historyRepo{s} }
func (s *Store) PasswordResets() repository.PasswordResetRepository { return resetRepo{s} }

// SeedLegacyRole records a pre-migration scalar role for a staff row.
func (s *Store) SeedLegacyRole(staffID, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.legacy[staffID] = role
}

// AddStaff inserts a staff member directly.
func (s *Store) AddStaff(name, email string, active bool, roles ...domain.RoleTag) *domain.StaffMember {
	member := &domain.StaffMember{
		Name:   name,
		Email:  email,
		Roles:  domain.RoleSet(roles),
		Active: active,
	}
	_ = s.Staff().Create(context.Background(), member)
	return member
}

// AddUser inserts an active end-user directly.
func (s *Store) AddUser(name, email string) *domain.User {
	user := &domain.User{Name: name, Email: email, Status: domain.UserStatusActive}
	_ = s.Users().Create(context.Background(), user)
	return user
}

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user.ID = uuid.NewString()
	user.CreatedAt = r.s.tick()
	user.UpdatedAt = user.CreatedAt
	if user.Status == "" {
		user.Status = domain.UserStatusActive
	}
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

func (r userRepo) Update(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	user.UpdatedAt = r.s.tick()
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

func (r userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if user, ok := r.s.users[id]; ok {
		cp := *user
		return &cp, nil
	}
	return nil, pgx.ErrNoRows
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, user := range r.s.users {
		if strings.EqualFold(user.Email, email) {
			cp := *user
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type adminRepo struct{ s *Store }

func (r adminRepo) Create(_ context.Context, admin *domain.Admin) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	admin.ID = uuid.NewString()
	admin.CreatedAt = r.s.tick()
	admin.UpdatedAt = admin.CreatedAt
	cp := *admin
	r.s.admins[admin.ID] = &cp
	return nil
}

func (r adminRepo) Update(_ context.Context, admin *domain.Admin) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.admins[admin.ID]; !ok {
		return pgx.ErrNoRows
	}
	admin.UpdatedAt = r.s.tick()
	cp := *admin
	r.s.admins[admin.ID] = &cp
	return nil
}

func (r adminRepo) GetByID(_ context.Context, id string) (*domain.Admin, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if admin, ok := r.s.admins[id]; ok {
		cp := *admin
		return &cp, nil
	}
	return nil, pgx.ErrNoRows
}

func (r adminRepo) GetByEmail(_ context.Context, email string) (*domain.Admin, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, admin := range r.s.admins {
		if strings.EqualFold(admin.Email, email) {
			cp := *admin
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type staffRepo struct{ s *Store }

func copyStaff(member *domain.StaffMember) *domain.StaffMember {
	cp := *member
	cp.Roles = append(domain.RoleSet(nil), member.Roles...)
	return &cp
}

func (r staffRepo) Create(_ context.Context, member *domain.StaffMember) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	member.ID = uuid.NewString()
	member.CreatedAt = r.s.tick()
	member.UpdatedAt = member.CreatedAt
	r.s.staff[member.ID] = copyStaff(member)
	return nil
}

func (r staffRepo) Update(_ context.Context, member *domain.StaffMember) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.staff[member.ID]; !ok {
		return pgx.ErrNoRows
	}
	member.UpdatedAt = r.s.tick()
	r.s.staff[member.ID] = copyStaff(member)
	return nil
}

func (r staffRepo) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if member, ok := r.s.staff[id]; ok {
		return copyStaff(member), nil
	}
	return nil, pgx.ErrNoRows
}

func (r staffRepo) GetByEmail(_ context.Context, email string) (*domain.StaffMember, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, member := range r.s.staff {
		if strings.EqualFold(member.Email, email) {
			return copyStaff(member), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r staffRepo) List(_ context.Context, filter repository.StaffFilter) ([]domain.StaffMember, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.StaffMember
	for _, member := range r.s.staff {
		if filter.Role != nil && !member.Roles.Has(*filter.Role) {
			continue
		}
		if filter.Active != nil && member.Active != *filter.Active {
			continue
		}
		result = append(result, *copyStaff(member))
	}
	sort.Slice(result, func(i, j int) bool {
		return newerFirst(result[i].CreatedAt, result[j].CreatedAt, result[i].ID, result[j].ID)
	})
	return paginate(result, filter.Limit, filter.Offset), nil
}

func (r staffRepo) MigrateLegacyRoles(_ context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	migrated := 0
	for id, legacy := range r.s.legacy {
		member, ok := r.s.staff[id]
		if !ok {
			continue
		}
		if len(member.Roles) == 0 {
			member.Roles = domain.RoleSetFromLegacy(legacy)
		}
		member.UpdatedAt = r.s.tick()
		delete(r.s.legacy, id)
		migrated++
	}
	return migrated, nil
}

type contactRepo struct{ s *Store }

func (r contactRepo) Create(_ context.Context, contact *domain.ContactMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	contact.ID = uuid.NewString()
	contact.Replied = false
	contact.CreatedAt = r.s.tick()
	contact.UpdatedAt = contact.CreatedAt
	cp := *contact
	r.s.contacts[contact.ID] = &cp
	return nil
}

func (r contactRepo) GetByID(_ context.Context, id string) (*domain.ContactMessage, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if contact, ok := r.s.contacts[id]; ok {
		cp := *contact
		return &cp, nil
	}
	return nil, pgx.ErrNoRows
}

func (r contactRepo) List(_ context.Context, filter repository.ContactFilter) ([]domain.ContactMessage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.ContactMessage
	for _, contact := range r.s.contacts {
		if filter.Replied != nil && contact.Replied != *filter.Replied {
			continue
		}
		result = append(result, *contact)
	}
	sort.Slice(result, func(i, j int) bool {
		return newerFirst(result[i].CreatedAt, result[j].CreatedAt, result[i].ID, result[j].ID)
	})
	return paginate(result, filter.Limit, filter.Offset), nil
}

func (r contactRepo) MarkReplied(_ context.Context, id, staffID, body string) (*domain.ContactMessage, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	contact, ok := r.s.contacts[id]
	if !ok || contact.Replied {
		return nil, pgx.ErrNoRows
	}
	now := r.s.tick()
	contact.Replied = true
	contact.ReplyBody = &body
	contact.RepliedAt = &now
	contact.RepliedBy = &staffID
	contact.UpdatedAt = now
	cp := *contact
	return &cp, nil
}

type chatRepo struct{ s *Store }

// decorate copies a chat and fills display fields; callers hold the lock.
func (r chatRepo) decorate(chat *domain.ChatSession) domain.ChatSession {
	cp := *chat
	cp.Messages = append([]domain.ChatMessage{}, chat.Messages...)
	if user, ok := r.s.users[chat.UserID]; ok {
		cp.UserName = user.Name
		cp.UserEmail = user.Email
	}
	if member, ok := r.s.staff[chat.AssignedTo]; ok {
		cp.StaffName = member.Name
	}
	return cp
}

func (r chatRepo) Create(_ context.Context, chat *domain.ChatSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	chat.ID = uuid.NewString()
	chat.CreatedAt = r.s.tick()
	chat.UpdatedAt = chat.CreatedAt
	if chat.Messages == nil {
		chat.Messages = []domain.ChatMessage{}
	}
	cp := *chat
	cp.Messages = append([]domain.ChatMessage{}, chat.Messages...)
	r.s.chats[chat.ID] = &cp
	return nil
}

func (r chatRepo) GetByID(_ context.Context, id string) (*domain.ChatSession, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	chat, ok := r.s.chats[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := r.decorate(chat)
	return &cp, nil
}

func (r chatRepo) List(_ context.Context, filter repository.ChatFilter) ([]domain.ChatSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.ChatSession
	for _, chat := range r.s.chats {
		if filter.UserID != nil && chat.UserID != *filter.UserID {
			continue
		}
		if filter.AssignedTo != nil && chat.AssignedTo != *filter.AssignedTo {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, chat.Status) {
			continue
		}
		result = append(result, r.decorate(chat))
	}
	sort.Slice(result, func(i, j int) bool {
		if filter.ByCreation {
			return newerFirst(result[i].CreatedAt, result[j].CreatedAt, result[i].ID, result[j].ID)
		}
		return newerFirst(result[i].UpdatedAt, result[j].UpdatedAt, result[i].ID, result[j].ID)
	})
	return paginate(result, filter.Limit, filter.Offset), nil
}

func (r chatRepo) AppendMessage(_ context.Context, chatID string, msg domain.ChatMessage) error {
	if err := checkID(chatID); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	chat, ok := r.s.chats[chatID]
	if !ok {
		return pgx.ErrNoRows
	}
	chat.Messages = append(chat.Messages, msg)
	chat.UpdatedAt = r.s.tick()
	return nil
}

func (r chatRepo) UpdateStatus(_ context.Context, change *domain.ChatStatusChange) error {
	if err := checkID(change.ChatID); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	chat, ok := r.s.chats[change.ChatID]
	if !ok {
		return pgx.ErrNoRows
	}
	if _, ok := r.s.staff[change.ChangedBy]; !ok {
		return &pgconn.PgError{Code: "23503", Message: "chat_status_history_changed_by_fkey"}
	}
	now := r.s.tick()
	change.ID = uuid.NewString()
	change.OldStatus = chat.Status
	change.CreatedAt = now
	chat.Status = change.NewStatus
	chat.UpdatedAt = now
	r.s.history = append(r.s.history, *change)
	return nil
}

func (r chatRepo) MarkRead(_ context.Context, chatID string, sender domain.SenderSide) (int, error) {
	if err := checkID(chatID); err != nil {
		return 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	chat, ok := r.s.chats[chatID]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	changed := 0
	for i := range chat.Messages {
		if chat.Messages[i].Sender == sender && !chat.Messages[i].Read {
			chat.Messages[i].Read = true
			changed++
		}
	}
	return changed, nil
}

type historyRepo struct{ s *Store }

func (r historyRepo) ListByChat(_ context.Context, chatID string) ([]domain.ChatStatusChange, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.ChatStatusChange
	for _, change := range r.s.history {
		if change.ChatID == chatID {
			result = append(result, change)
		}
	}
	return result, nil
}

type resetRepo struct{ s *Store }

func (r resetRepo) Create(_ context.Context, reset *domain.PasswordReset) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	reset.ID = uuid.NewString()
	reset.CreatedAt = r.s.tick()
	cp := *reset
	r.s.resets[reset.TokenDigest] = &cp
	return nil
}

func (r resetRepo) GetByDigest(_ context.Context, digest string) (*domain.PasswordReset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if stored, ok := r.s.resets[digest]; ok {
		cp := *stored
		return &cp, nil
	}
	return nil, pgx.ErrNoRows
}

func (r resetRepo) Consume(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, stored := range r.s.resets {
		if stored.ID != id {
			continue
		}
		if !stored.Usable(time.Now()) {
			return pgx.ErrNoRows
		}
		now := r.s.tick()
		stored.UsedAt = &now
		return nil
	}
	return pgx.ErrNoRows
}

// ResetDigests lists stored reset digests, for asserting nothing raw is kept.
func (s *Store) ResetDigests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	digests := make([]string, 0, len(s.resets))
	for digest := range s.resets {
		digests = append(digests, digest)
	}
	return digests
}

// newerFirst matches the repositories' "<time> DESC, id DESC" ordering.
func newerFirst(a, b time.Time, aID, bID string) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return aID > bID
}

func containsStatus(statuses []domain.ChatStatus, status domain.ChatStatus) bool {
	for _, candidate := range statuses {
		if candidate == status {
			return true
		}
	}
	return false
}

func paginate[T any](items []T, limit, offset int) []T {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
