package credentials

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"salonpost/internal/apperrors"
	"salonpost/internal/engine"
)

// Account is one portal login. The password is stored sealed; SalonID
// and SalonName disambiguate multi-salon accounts at login time.
type Account struct {
	ID             string `gorm:"primaryKey;size:64" json:"id"`
	Owner          string `gorm:"size:128;index" json:"owner"`
	UserID         string `gorm:"size:128" json:"userId"`
	SealedPassword []byte `gorm:"type:bytes" json:"-"`
	SalonID        string `gorm:"size:64" json:"salonId,omitempty"`
	SalonName      string `gorm:"size:256" json:"salonName,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store persists accounts and hands the engine decrypted credentials.
type Store struct {
	db     *gorm.DB
	cipher *Cipher
}

// NewStore migrates the schema and returns a store.
func NewStore(db *gorm.DB, cipher *Cipher) (*Store, error) {
	if err := db.AutoMigrate(&Account{}); err != nil {
		return nil, apperrors.Internal("credentials.migrate", err)
	}
	return &Store{db: db, cipher: cipher}, nil
}

// Save seals the password and upserts the account.
func (s *Store) Save(ctx context.Context, acct *Account, password string) error {
	if acct.ID == "" {
		return apperrors.Validation("id", "account ID is required")
	}
	if acct.UserID == "" {
		return apperrors.Validation("userId", "portal user ID is required")
	}
	if password == "" {
		return apperrors.Validation("password", "password is required")
	}

	sealed, err := s.cipher.Seal(password)
	if err != nil {
		return apperrors.Internal("credentials.seal", err)
	}
	acct.SealedPassword = sealed

	if err := s.db.WithContext(ctx).Save(acct).Error; err != nil {
		return apperrors.Internal("credentials.save", err)
	}
	return nil
}

// Get returns an account by ID. The sealed password stays opaque.
func (s *Store) Get(ctx context.Context, id string) (*Account, error) {
	var acct Account
	err := s.db.WithContext(ctx).First(&acct, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("account", id)
		}
		return nil, apperrors.Internal("credentials.get", err)
	}
	return &acct, nil
}

// Resolve returns decrypted credentials and the salon hint for an
// account. The engine never sees the sealed form.
func (s *Store) Resolve(ctx context.Context, accountID string) (engine.Credentials, engine.SalonHint, error) {
	var acct Account
	err := s.db.WithContext(ctx).First(&acct, "id = ?", accountID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return engine.Credentials{}, engine.SalonHint{}, apperrors.NotFound("account", accountID)
		}
		return engine.Credentials{}, engine.SalonHint{}, apperrors.Internal("credentials.resolve", err)
	}

	password, err := s.cipher.Open(acct.SealedPassword)
	if err != nil {
		return engine.Credentials{}, engine.SalonHint{}, apperrors.Internal("credentials.open", err)
	}

	return engine.Credentials{UserID: acct.UserID, Password: password},
		engine.SalonHint{ID: acct.SalonID, Name: acct.SalonName},
		nil
}
