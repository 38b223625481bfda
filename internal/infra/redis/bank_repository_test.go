package redis

import (
	"context"
	"testing"
	"time"

	"trivia-service/internal/domain"
	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

type countingLoader struct {
	calls int
	banks map[string]domain.QuestionBank
}

func (l *countingLoader) LoadBank(_ context.Context, bankID string) (domain.QuestionBank, error) {
	l.calls++
	if bank, ok := l.banks[bankID]; ok {
		return bank, nil
	}
	return domain.QuestionBank{}, domain.ErrBankNotFound
}

func newTestClient(t *testing.T) (*goredis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func testBank() domain.QuestionBank {
	return domain.QuestionBank{
		ID:         "demo",
		Categories: []string{"Science"},
		Questions: [][]domain.BankQuestion{
			{{ID: "sci100", Text: "Q", Points: 100}},
		},
	}
}

func TestBankRepositoryCachesInRedis(t *testing.T) {
	client, mr := newTestClient(t)
	loader := &countingLoader{banks: map[string]domain.QuestionBank{"demo": testBank()}}
	repo := NewBankRepository(client, loader, time.Minute)
	ctx := context.Background()

	bank, err := repo.GetBank(ctx, "demo")
	if err != nil {
		t.Fatalf("get bank: %v", err)
	}
	if bank.ID != "demo" || len(bank.Questions) != 1 {
		t.Fatalf("unexpected bank: %+v", bank)
	}
	if !mr.Exists("bank:demo:data") {
		t.Fatal("expected bank cached in redis")
	}

	if _, err := repo.GetBank(ctx, "demo"); err != nil {
		t.Fatalf("cached get: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected 1 loader call, got %d", loader.calls)
	}
}

func TestBankRepositoryReloadsAfterExpiry(t *testing.T) {
	client, mr := newTestClient(t)
	loader := &countingLoader{banks: map[string]domain.QuestionBank{"demo": testBank()}}
	repo := NewBankRepository(client, loader, time.Minute)
	ctx := context.Background()

	if _, err := repo.GetBank(ctx, "demo"); err != nil {
		t.Fatalf("get bank: %v", err)
	}

	// Jitter extends the TTL by at most 10%, so two TTLs is past expiry.
	mr.FastForward(2 * time.Minute)
	if _, err := repo.GetBank(ctx, "demo"); err != nil {
		t.Fatalf("get bank after expiry: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after expiry, got %d calls", loader.calls)
	}
}

func TestBankRepositoryMissingBank(t *testing.T) {
	client, _ := newTestClient(t)
	loader := &countingLoader{banks: map[string]domain.QuestionBank{}}
	repo := NewBankRepository(client, loader, time.Minute)

	if _, err := repo.GetBank(context.Background(), "nope"); err != domain.ErrBankNotFound {
		t.Fatalf("expected ErrBankNotFound, got %v", err)
	}
}
