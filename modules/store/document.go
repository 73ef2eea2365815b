package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	domain "github.com/example/realtime-chat/domain/chat"
)

// Document is the production Store. Users and rooms are persisted as
// documents: one row each, with the room membership set and the message log
// serialized into JSON text columns. Reads and writes on a single document
// are atomic; load-modify-write sequences across calls are not.
type Document struct {
	db *gorm.DB
}

var _ Store = (*Document)(nil)

// NewDocument creates a Document store over an open GORM connection.
func NewDocument(db *gorm.DB) *Document {
	return &Document{db: db}
}

// Migrate creates or updates the backing tables.
func (d *Document) Migrate() error {
	if err := d.db.AutoMigrate(&userRecord{}, &roomRecord{}); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

type userRecord struct {
	UserID        string `gorm:"primaryKey;type:text;column:user_id"`
	UserName      string `gorm:"uniqueIndex;not null;type:text"`
	PasswordHash  string `gorm:"not null;type:text"`
	Online        bool
	ProfileImgURL string `gorm:"type:text"`
	Rooms         string `gorm:"type:text"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (userRecord) TableName() string { return "users" }

type roomRecord struct {
	RoomID    string `gorm:"primaryKey;type:text;column:room_id"`
	RoomName  string `gorm:"index;not null;type:text"`
	Type      string `gorm:"type:text"`
	ImgURL    string `gorm:"type:text"`
	Users     string `gorm:"type:text"`
	Messages  string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (roomRecord) TableName() string { return "rooms" }

// FindUser returns the first user matching the criteria.
func (d *Document) FindUser(ctx context.Context, c UserCriteria) (*domain.User, error) {
	var rec userRecord
	err := d.userQuery(ctx, c).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: find user: %w", err)
	}
	return decodeUser(&rec)
}

// FindRoom returns the first room matching the criteria.
func (d *Document) FindRoom(ctx context.Context, c RoomCriteria) (*domain.Room, error) {
	var rec roomRecord
	err := d.roomQuery(ctx, c).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: find room: %w", err)
	}
	return decodeRoom(&rec)
}

// ListUsers returns all users matching the criteria.
func (d *Document) ListUsers(ctx context.Context, c UserCriteria) ([]domain.User, error) {
	var recs []userRecord
	if err := d.userQuery(ctx, c).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("store: list users: %w", err)
	}
	users := make([]domain.User, 0, len(recs))
	for i := range recs {
		u, err := decodeUser(&recs[i])
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, nil
}

// ListRooms returns all rooms.
func (d *Document) ListRooms(ctx context.Context) ([]domain.Room, error) {
	var recs []roomRecord
	if err := d.db.WithContext(ctx).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("store: list rooms: %w", err)
	}
	rooms := make([]domain.Room, 0, len(recs))
	for i := range recs {
		r, err := decodeRoom(&recs[i])
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, *r)
	}
	return rooms, nil
}

// InsertUser stores a new user.
func (d *Document) InsertUser(ctx context.Context, u *domain.User) error {
	rec, err := encodeUser(u)
	if err != nil {
		return err
	}
	if err := d.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("store: insert user: %w", err)
	}
	return nil
}

// InsertRoom stores a new room.
func (d *Document) InsertRoom(ctx context.Context, r *domain.Room) error {
	rec, err := encodeRoom(r)
	if err != nil {
		return err
	}
	if err := d.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("store: insert room: %w", err)
	}
	return nil
}

// UpdateUser applies a partial update to a user.
func (d *Document) UpdateUser(ctx context.Context, userID string, p UserPatch) error {
	updates := map[string]any{}
	if p.Online != nil {
		updates["online"] = *p.Online
	}
	if p.ProfileImgURL != nil {
		updates["profile_img_url"] = *p.ProfileImgURL
	}
	if p.Rooms != nil {
		data, err := json.Marshal(*p.Rooms)
		if err != nil {
			return fmt.Errorf("store: encode rooms: %w", err)
		}
		updates["rooms"] = string(data)
	}
	if len(updates) == 0 {
		return nil
	}

	res := d.db.WithContext(ctx).Model(&userRecord{}).Where("user_id = ?", userID).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("store: update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateRoom applies a partial update to a room.
func (d *Document) UpdateRoom(ctx context.Context, roomID string, p RoomPatch) error {
	updates := map[string]any{}
	if p.Users != nil {
		data, err := json.Marshal(*p.Users)
		if err != nil {
			return fmt.Errorf("store: encode users: %w", err)
		}
		updates["users"] = string(data)
	}
	if p.Messages != nil {
		data, err := json.Marshal(*p.Messages)
		if err != nil {
			return fmt.Errorf("store: encode messages: %w", err)
		}
		updates["messages"] = string(data)
	}
	if len(updates) == 0 {
		return nil
	}

	res := d.db.WithContext(ctx).Model(&roomRecord{}).Where("room_id = ?", roomID).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("store: update room: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteRoom removes the first room matching the criteria.
func (d *Document) DeleteRoom(ctx context.Context, c RoomCriteria) error {
	var rec roomRecord
	err := d.roomQuery(ctx, c).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("store: delete room: %w", err)
	}
	if err := d.db.WithContext(ctx).Delete(&rec).Error; err != nil {
		return fmt.Errorf("store: delete room: %w", err)
	}
	return nil
}

// DeleteAllUsers removes every user record.
func (d *Document) DeleteAllUsers(ctx context.Context) error {
	err := d.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&userRecord{}).Error
	if err != nil {
		return fmt.Errorf("store: delete all users: %w", err)
	}
	return nil
}

// DeleteAllRooms removes every room record.
func (d *Document) DeleteAllRooms(ctx context.Context) error {
	err := d.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&roomRecord{}).Error
	if err != nil {
		return fmt.Errorf("store: delete all rooms: %w", err)
	}
	return nil
}

func (d *Document) userQuery(ctx context.Context, c UserCriteria) *gorm.DB {
	q := d.db.WithContext(ctx).Model(&userRecord{})
	if c.UserID != "" {
		q = q.Where("user_id = ?", c.UserID)
	}
	if c.UserName != "" {
		q = q.Where("user_name = ?", c.UserName)
	}
	if c.Online != nil {
		q = q.Where("online = ?", *c.Online)
	}
	return q
}

func (d *Document) roomQuery(ctx context.Context, c RoomCriteria) *gorm.DB {
	q := d.db.WithContext(ctx).Model(&roomRecord{})
	if c.RoomID != "" {
		q = q.Where("room_id = ?", c.RoomID)
	}
	if c.RoomName != "" {
		q = q.Where("room_name = ?", c.RoomName)
	}
	return q
}

func encodeUser(u *domain.User) (*userRecord, error) {
	rooms, err := json.Marshal(u.Rooms)
	if err != nil {
		return nil, fmt.Errorf("store: encode rooms: %w", err)
	}
	return &userRecord{
		UserID:        u.UserID,
		UserName:      u.UserName,
		PasswordHash:  u.PasswordHash,
		Online:        u.Online,
		ProfileImgURL: u.ProfileImgURL,
		Rooms:         string(rooms),
	}, nil
}

func decodeUser(rec *userRecord) (*domain.User, error) {
	u := &domain.User{
		UserID:        rec.UserID,
		UserName:      rec.UserName,
		PasswordHash:  rec.PasswordHash,
		Online:        rec.Online,
		ProfileImgURL: rec.ProfileImgURL,
		Rooms:         []string{},
	}
	if rec.Rooms != "" {
		if err := json.Unmarshal([]byte(rec.Rooms), &u.Rooms); err != nil {
			return nil, fmt.Errorf("store: decode rooms: %w", err)
		}
	}
	return u, nil
}

func encodeRoom(r *domain.Room) (*roomRecord, error) {
	users, err := json.Marshal(r.Users)
	if err != nil {
		return nil, fmt.Errorf("store: encode users: %w", err)
	}
	messages, err := json.Marshal(r.Messages)
	if err != nil {
		return nil, fmt.Errorf("store: encode messages: %w", err)
	}
	return &roomRecord{
		RoomID:   r.RoomID,
		RoomName: r.RoomName,
		Type:     r.Type,
		ImgURL:   r.ImgURL,
		Users:    string(users),
		Messages: string(messages),
	}, nil
}

func decodeRoom(rec *roomRecord) (*domain.Room, error) {
	r := &domain.Room{
		RoomID:   rec.RoomID,
		RoomName: rec.RoomName,
		Type:     rec.Type,
		ImgURL:   rec.ImgURL,
		Users:    []string{},
		Messages: []domain.Message{},
	}
	if rec.Users != "" {
		if err := json.Unmarshal([]byte(rec.Users), &r.Users); err != nil {
			return nil, fmt.Errorf("store: decode users: %w", err)
		}
	}
	if rec.Messages != "" {
		if err := json.Unmarshal([]byte(rec.Messages), &r.Messages); err != nil {
			return nil, fmt.Errorf("store: decode messages: %w", err)
		}
	}
	return r, nil
}
