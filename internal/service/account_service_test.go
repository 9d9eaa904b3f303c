package service

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dkuzmin/repricer-worker/internal/models"
	"github.com/dkuzmin/repricer-worker/internal/scheduler"
)

type mockAccountStore struct {
	account      *models.MonitoredAccount
	created      *models.MonitoredAccount
	monitorState models.MonitorState
}

func (m *mockAccountStore) GetByUserAndID(ctx context.Context, userID, accountID string) (*models.MonitoredAccount, error) {
	return m.account, nil
}

func (m *mockAccountStore) Create(ctx context.Context, account *models.MonitoredAccount) error {
	m.created = account
	return nil
}

func (m *mockAccountStore) Delete(ctx context.Context, userID, accountID string) error {
	return nil
}

func (m *mockAccountStore) ChangeMonitorState(ctx context.Context, userID, accountID string, state models.MonitorState) error {
	m.monitorState = state
	return nil
}

// mockSubmitter runs submitted jobs inline so tests observe their effects
// synchronously.
type mockSubmitter struct {
	err       error
	submitted []string
}

func (m *mockSubmitter) Submit(id string, fn func(ctx context.Context) error) error {
	if m.err != nil {
		return m.err
	}
	m.submitted = append(m.submitted, id)
	return fn(context.Background())
}

type mockSyncRunner struct {
	calls []string
}

func (m *mockSyncRunner) SyncAccount(ctx context.Context, userID, accountID string) error {
	m.calls = append(m.calls, userID+"/"+accountID)
	return nil
}

type plainCodec struct{}

func (plainCodec) Encrypt(plaintext string) ([]byte, error) { return []byte(plaintext), nil }
func (plainCodec) Decrypt(ciphertext []byte) (string, error) {
	return string(ciphertext), nil
}

func TestAddAccountEncryptsCredential(t *testing.T) {
	store := &mockAccountStore{}
	svc := NewAccountService(store, plainCodec{}, &mockSubmitter{}, nil, nil, 10*time.Minute, zap.NewNop())

	account, err := svc.AddAccount(context.Background(), "u1", "seller@example.com", "hunter2")
	if err != nil {
		t.Fatalf("AddAccount: %v", err)
	}
	if store.created == nil {
		t.Fatal("account was not persisted")
	}
	if account.Password == "hunter2" {
		t.Error("credential stored in plaintext")
	}
	decoded, err := base64.StdEncoding.DecodeString(account.Password)
	if err != nil {
		t.Fatalf("stored credential is not base64: %v", err)
	}
	if string(decoded) != "hunter2" {
		t.Errorf("round trip through the codec lost the credential")
	}
	if account.InitializeState != models.SyncNotStarted || account.UpdateState != models.SyncNotStarted {
		t.Errorf("fresh account states = %q/%q, want not_started", account.InitializeState, account.UpdateState)
	}
}

func TestExecuteUpdateJobSkipsWhenInProgress(t *testing.T) {
	store := &mockAccountStore{account: &models.MonitoredAccount{
		ID:          "a1",
		UpdateState: models.SyncInProgress,
	}}
	jobs := &mockSubmitter{}
	svc := NewAccountService(store, plainCodec{}, jobs, &mockSyncRunner{}, nil, 10*time.Minute, zap.NewNop())

	submitted, err := svc.ExecuteUpdateJob(context.Background(), "u1", "a1")
	if err != nil {
		t.Fatalf("ExecuteUpdateJob: %v", err)
	}
	if submitted {
		t.Error("got submitted=true for an in-progress account")
	}
	if len(jobs.submitted) != 0 {
		t.Errorf("jobs submitted: %v", jobs.submitted)
	}
}

func TestExecuteUpdateJobSkipsRecentlySynced(t *testing.T) {
	lastSync := time.Now().Add(-2 * time.Minute)
	store := &mockAccountStore{account: &models.MonitoredAccount{
		ID:          "a1",
		UpdateState: models.SyncFinished,
		LastSyncAt:  &lastSync,
	}}
	svc := NewAccountService(store, plainCodec{}, &mockSubmitter{}, &mockSyncRunner{}, nil, 10*time.Minute, zap.NewNop())

	submitted, err := svc.ExecuteUpdateJob(context.Background(), "u1", "a1")
	if err != nil {
		t.Fatalf("ExecuteUpdateJob: %v", err)
	}
	if submitted {
		t.Error("got submitted=true within the recent-update window")
	}
}

func TestExecuteUpdateJobTreatsDuplicateAsFalse(t *testing.T) {
	store := &mockAccountStore{account: &models.MonitoredAccount{
		ID:          "a1",
		UpdateState: models.SyncFinished,
	}}
	jobs := &mockSubmitter{err: scheduler.ErrDuplicateJob}
	svc := NewAccountService(store, plainCodec{}, jobs, &mockSyncRunner{}, nil, 10*time.Minute, zap.NewNop())

	submitted, err := svc.ExecuteUpdateJob(context.Background(), "u1", "a1")
	if err != nil {
		t.Fatalf("duplicate submission should not error: %v", err)
	}
	if submitted {
		t.Error("got submitted=true for a duplicate job")
	}
}

func TestExecuteUpdateJobSubmitsSync(t *testing.T) {
	oldSync := time.Now().Add(-7 * time.Hour)
	store := &mockAccountStore{account: &models.MonitoredAccount{
		ID:          "a1",
		UpdateState: models.SyncFinished,
		LastSyncAt:  &oldSync,
	}}
	jobs := &mockSubmitter{}
	sync := &mockSyncRunner{}
	svc := NewAccountService(store, plainCodec{}, jobs, sync, nil, 10*time.Minute, zap.NewNop())

	submitted, err := svc.ExecuteUpdateJob(context.Background(), "u1", "a1")
	if err != nil {
		t.Fatalf("ExecuteUpdateJob: %v", err)
	}
	if !submitted {
		t.Fatal("got submitted=false, want true")
	}
	if len(sync.calls) != 1 || sync.calls[0] != "u1/a1" {
		t.Errorf("sync calls = %v, want one for u1/a1", sync.calls)
	}
}

func TestInitializeAccountOnlyFromNotStartedOrError(t *testing.T) {
	jobs := &mockSubmitter{}
	initializer := &mockInitializeRunner{}
	for _, tt := range []struct {
		state models.SyncState
		want  bool
	}{
		{models.SyncNotStarted, true},
		{models.SyncError, true},
		{models.SyncInProgress, false},
		{models.SyncFinished, false},
	} {
		store := &mockAccountStore{account: &models.MonitoredAccount{ID: "a1", InitializeState: tt.state}}
		svc := NewAccountService(store, plainCodec{}, jobs, nil, initializer, 10*time.Minute, zap.NewNop())

		submitted, err := svc.InitializeAccount(context.Background(), "u1", "a1")
		if err != nil {
			t.Fatalf("InitializeAccount from %q: %v", tt.state, err)
		}
		if submitted != tt.want {
			t.Errorf("InitializeAccount from %q = %v, want %v", tt.state, submitted, tt.want)
		}
	}
}

type mockInitializeRunner struct{}

func (m *mockInitializeRunner) Initialize(ctx context.Context, userID, accountID string) error {
	return nil
}
