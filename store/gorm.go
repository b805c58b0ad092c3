package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"fintrans/domain"
	"fintrans/logging"
	"fintrans/shared"
)

// GormStore backs the store contracts with a relational database, Postgres
// in deployment and SQLite for local runs. All statements are parameterized
// through GORM; no SQL is assembled from user input.
type GormStore struct {
	db  *gorm.DB
	log *logging.Logger
}

var _ Store = (*GormStore)(nil)

// OpenGorm connects using the given driver ("postgres" or "sqlite") and DSN
// and migrates the schema.
func OpenGorm(driver, dsn string, log *logging.Logger) (*GormStore, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	if err := db.AutoMigrate(
		&domain.Member{},
		&domain.Account{},
		&domain.Contact{},
		&domain.ExchangeRate{},
		&domain.LedgerEntry{},
	); err != nil {
		return nil, fmt.Errorf("auto migration failed: %w", err)
	}

	return &GormStore{db: db, log: log.With("store", "gorm")}, nil
}

func (s *GormStore) GetByUsername(ctx context.Context, username string) (*domain.Member, error) {
	var member domain.Member
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("member %q: %w", username, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (s *GormStore) CreateMember(ctx context.Context, member *domain.Member) error {
	if member.UserID == "" {
		member.UserID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Create(member).Error
}

func (s *GormStore) GetPrimary(ctx context.Context, userID string) (*domain.Account, error) {
	var account domain.Account
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_primary = ?", userID, true).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("primary account for user %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *GormStore) CreateAccount(ctx context.Context, account *domain.Account) error {
	if account.AccountID == "" {
		account.AccountID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Create(account).Error
}

func (s *GormStore) ListContacts(ctx context.Context, userID string) ([]domain.Contact, error) {
	var contacts []domain.Contact
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&contacts).Error
	return contacts, err
}

func (s *GormStore) ContactByName(ctx context.Context, userID, name string) (*domain.Contact, error) {
	var contact domain.Contact
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND LOWER(name) = LOWER(?)", userID, name).
		First(&contact).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("contact %q for user %s: %w", name, userID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

func (s *GormStore) CreateContact(ctx context.Context, contact *domain.Contact) error {
	if contact.ContactID == "" {
		contact.ContactID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Create(contact).Error
}

func (s *GormStore) LatestRate(ctx context.Context, currency shared.Currency) (*domain.ExchangeRate, error) {
	var rate domain.ExchangeRate
	err := s.db.WithContext(ctx).
		Where("currency_code = ?", currency).
		Order("reference_date DESC").
		First(&rate).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("rate for %s: %w", currency, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

func (s *GormStore) UpsertRates(ctx context.Context, rows []domain.ExchangeRate) error {
	if len(rows) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range rows {
			row := rows[i]
			res := tx.Model(&domain.ExchangeRate{}).
				Where("currency_code = ? AND reference_date = ?", row.CurrencyCode, row.ReferenceDate).
				Updates(map[string]interface{}{
					"country_name": row.CountryName,
					"base_rate":    row.BaseRate,
					"send_rate":    row.SendRate,
					"receive_rate": row.ReceiveRate,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				if err := tx.Create(&row).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// CommitTransfer performs the debit and the ledger append inside one
// database transaction. The debit is a single conditional UPDATE whose WHERE
// clause re-checks the balance, so a concurrent commit that got there first
// simply leaves zero rows affected instead of double-spending a stale read.
func (s *GormStore) CommitTransfer(ctx context.Context, params CommitParams) (decimal.Decimal, error) {
	var newBalance decimal.Decimal

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Account{}).
			Where("account_id = ? AND balance >= ?", params.AccountID, params.AmountBase).
			Update("balance", gorm.Expr("balance - ?", params.AmountBase))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Either the account vanished or the balance no longer covers
			// the amount; distinguish for the caller.
			var account domain.Account
			if err := tx.Where("account_id = ?", params.AccountID).First(&account).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("account %s: %w", params.AccountID, ErrNotFound)
				}
				return err
			}
			return fmt.Errorf("%w: requested %s, available %s",
				domain.ErrInsufficientFunds, params.AmountBase.String(), account.Balance.String())
		}

		var account domain.Account
		if err := tx.Where("account_id = ?", params.AccountID).First(&account).Error; err != nil {
			return err
		}
		newBalance = account.Balance

		entry := domain.LedgerEntry{
			EntryID:            uuid.NewString(),
			AccountID:          params.AccountID,
			ContactID:          params.ContactID,
			Type:               domain.EntryTypeTransfer,
			Amount:             params.AmountBase.Neg(),
			BalanceAfter:       newBalance,
			ExchangeRate:       params.ExchangeRate,
			TargetAmount:       params.TargetAmount,
			TargetCurrencyCode: params.TargetCurrency,
			Memo:               domain.TransferMemo,
			Category:           domain.TransferCategory,
			CreatedAt:          time.Now(),
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return decimal.Zero, err
	}

	s.log.Info("transfer committed",
		"account_id", params.AccountID,
		"amount_base", params.AmountBase.String(),
		"balance_after", newBalance.String())
	return newBalance, nil
}

func (s *GormStore) LedgerByAccount(ctx context.Context, accountID string) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}
