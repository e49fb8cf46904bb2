package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/absmach/federator/campaign"
	"github.com/absmach/federator/ledger"
	"github.com/absmach/federator/pkg/aggregator"
)

// MockLedger is a mock implementation of the ledger.Client interface
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) CreateCampaign(ctx context.Context, caller campaign.Address, cfg campaign.Config) (ledger.TxReceipt, error) {
	args := m.Called(ctx, caller, cfg)
	return args.Get(0).(ledger.TxReceipt), args.Error(1)
}

func (m *MockLedger) SubmitModel(ctx context.Context, caller campaign.Address, cid string) (ledger.TxReceipt, error) {
	args := m.Called(ctx, caller, cid)
	return args.Get(0).(ledger.TxReceipt), args.Error(1)
}

func (m *MockLedger) AttemptAdvanceToAggregation(ctx context.Context) (ledger.TxReceipt, error) {
	args := m.Called(ctx)
	return args.Get(0).(ledger.TxReceipt), args.Error(1)
}

func (m *MockLedger) FinalizeRound(ctx context.Context, caller campaign.Address, newGlobalModelCID string) (ledger.TxReceipt, error) {
	args := m.Called(ctx, caller, newGlobalModelCID)
	return args.Get(0).(ledger.TxReceipt), args.Error(1)
}

func (m *MockLedger) CancelCampaign(ctx context.Context, caller campaign.Address) (ledger.TxReceipt, error) {
	args := m.Called(ctx, caller)
	return args.Get(0).(ledger.TxReceipt), args.Error(1)
}

func (m *MockLedger) ActiveCampaignID(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockLedger) Campaign(ctx context.Context, id uint64) (campaign.Campaign, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(campaign.Campaign), args.Error(1)
}

func (m *MockLedger) ValidModelsForCurrentRound(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockLedger) Events(ctx context.Context, fromSeq uint64) ([]ledger.Event, error) {
	args := m.Called(ctx, fromSeq)
	return args.Get(0).([]ledger.Event), args.Error(1)
}

func (m *MockLedger) Subscribe(ctx context.Context) (<-chan ledger.Event, error) {
	args := m.Called(ctx)
	return args.Get(0).(<-chan ledger.Event), args.Error(1)
}

// MockStore is a mock implementation of the artifacts.Store interface
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Put(ctx context.Context, data io.Reader) (string, error) {
	args := m.Called(ctx, data)
	return args.String(0), args.Error(1)
}

func (m *MockStore) Get(ctx context.Context, cid string) (io.ReadCloser, error) {
	args := m.Called(ctx, cid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

// MockRunner is a mock implementation of the aggregator.Runner interface
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Dispatch(ctx context.Context, req aggregator.Request) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}
