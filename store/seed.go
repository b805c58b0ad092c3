package store

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"fintrans/domain"
	"fintrans/shared"
)

// Seed loads the demo data set: three members (password "1234", transfer
// PIN "123456", both bcrypt-hashed), a funded primary account each, an
// address book and a reference-rate snapshot. Intended for local runs and
// demos, not production.
func Seed(ctx context.Context, s Store) error {
	hashedPw, err := bcrypt.GenerateFromPassword([]byte("1234"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash demo password: %w", err)
	}
	hashedPin, err := bcrypt.GenerateFromPassword([]byte("123456"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash demo PIN: %w", err)
	}

	members := []domain.Member{
		{Username: "user_kr", KoreanName: "김철수", PreferredLanguage: "ko"},
		{Username: "user_us", KoreanName: "John Miller", PreferredLanguage: "en"},
		{Username: "user_vn", KoreanName: "Nguyen Minh", PreferredLanguage: "vi"},
	}
	for i := range members {
		members[i].PasswordHash = string(hashedPw)
		members[i].PinHash = string(hashedPin)
		if err := s.CreateMember(ctx, &members[i]); err != nil {
			return fmt.Errorf("failed to seed member %s: %w", members[i].Username, err)
		}
		account := domain.Account{
			UserID:       members[i].UserID,
			Balance:      decimal.NewFromInt(1_000_000),
			CurrencyCode: shared.BaseCurrency,
			IsPrimary:    true,
		}
		if err := s.CreateAccount(ctx, &account); err != nil {
			return fmt.Errorf("failed to seed account for %s: %w", members[i].Username, err)
		}
	}

	contacts := []domain.Contact{
		{UserID: members[0].UserID, Name: "보람", Relationship: "친구"},
		{UserID: members[0].UserID, Name: "김영희", Relationship: "엄마"},
		{UserID: members[0].UserID, Name: "박민수", Relationship: "삼촌"},
		{UserID: members[0].UserID, Name: "Nguyen Anh", Relationship: "동료", TargetCurrencyCode: shared.VND},
		{UserID: members[1].UserID, Name: "Sarah Miller", Relationship: "wife", TargetCurrencyCode: shared.USD},
		{UserID: members[2].UserID, Name: "Tran Thi Mai", Relationship: "em gái", TargetCurrencyCode: shared.VND},
	}
	for i := range contacts {
		if err := s.CreateContact(ctx, &contacts[i]); err != nil {
			return fmt.Errorf("failed to seed contact %s: %w", contacts[i].Name, err)
		}
	}

	today := time.Now().Format("2006-01-02")
	rates := []domain.ExchangeRate{
		{CurrencyCode: shared.USD, CountryName: "미국", BaseRate: dec("1392.50"), SendRate: dec("1406.10"), ReceiveRate: dec("1378.90"), ReferenceDate: today},
		{CurrencyCode: shared.JPY, CountryName: "일본", BaseRate: dec("9.42"), SendRate: dec("9.51"), ReceiveRate: dec("9.33"), ReferenceDate: today},
		{CurrencyCode: shared.VND, CountryName: "베트남", BaseRate: dec("0.055"), SendRate: dec("0.057"), ReceiveRate: dec("0.053"), ReferenceDate: today},
		{CurrencyCode: shared.EUR, CountryName: "유럽연합", BaseRate: dec("1520.80"), SendRate: dec("1535.70"), ReceiveRate: dec("1505.90"), ReferenceDate: today},
	}
	if err := s.UpsertRates(ctx, rates); err != nil {
		return fmt.Errorf("failed to seed exchange rates: %w", err)
	}

	return nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}
