package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Profile is the row backing a user's trait code. The relay only reads
// the mbti column; the mobile app owns the rest of the table.
type Profile struct {
	UserID    string    `gorm:"column:user_id;primaryKey"`
	MBTI      string    `gorm:"column:mbti"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Profile) TableName() string { return "profiles" }

type postgresProfileStore struct {
	db *gorm.DB
}

// NewPostgresProfileStore opens the profile database and verifies the
// connection.
func NewPostgresProfileStore(uri string) (ProfileStore, error) {
	db, err := gorm.Open(postgres.Open(uri), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return &postgresProfileStore{db: db}, nil
}

func (s *postgresProfileStore) GetTraits(ctx context.Context, userID string) (string, error) {
	var p Profile
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return p.MBTI, nil
}
