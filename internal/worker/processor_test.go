package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexfx/brokerd/internal/domain"
	"github.com/apexfx/brokerd/internal/feed"
)

type fakeExecutor struct {
	result *domain.ExecutionResult
	err    error
	calls  []float64
}

func (f *fakeExecutor) ExecuteOrder(ctx context.Context, orderID uuid.UUID, executionPrice float64) (*domain.ExecutionResult, error) {
	f.calls = append(f.calls, executionPrice)
	return f.result, f.err
}

type fakeLiquidation struct {
	closed []domain.Contract
	err    error
}

func (f *fakeLiquidation) CheckSymbol(ctx context.Context, symbol string, currentPrice float64) ([]domain.Contract, error) {
	return f.closed, f.err
}

type fakePendingStore struct {
	resting  []domain.PendingOrder
	executed map[uuid.UUID]float64
	failed   map[uuid.UUID]string
}

func newFakePendingStore(resting ...domain.PendingOrder) *fakePendingStore {
	return &fakePendingStore{
		resting:  resting,
		executed: make(map[uuid.UUID]float64),
		failed:   make(map[uuid.UUID]string),
	}
}

func (f *fakePendingStore) Create(ctx context.Context, po domain.PendingOrder) error { return nil }
func (f *fakePendingStore) GetByID(ctx context.Context, id uuid.UUID) (domain.PendingOrder, error) {
	return domain.PendingOrder{}, domain.ErrNotFound
}
func (f *fakePendingStore) ListPendingBySymbol(ctx context.Context, symbol string) ([]domain.PendingOrder, error) {
	var out []domain.PendingOrder
	for _, po := range f.resting {
		if po.Symbol == symbol {
			out = append(out, po)
		}
	}
	return out, nil
}
func (f *fakePendingStore) ListByAccount(ctx context.Context, accountID uuid.UUID, opts domain.ListOpts) ([]domain.PendingOrder, error) {
	return nil, nil
}
func (f *fakePendingStore) MarkExecuted(ctx context.Context, id uuid.UUID, executedPrice float64) error {
	f.executed[id] = executedPrice
	return nil
}
func (f *fakePendingStore) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	f.failed[id] = reason
	return nil
}
func (f *fakePendingStore) Cancel(ctx context.Context, id uuid.UUID) error { return nil }

type fakeOrderStore struct {
	created   []domain.Order
	rejected  map[uuid.UUID]string
	createErr error
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{rejected: make(map[uuid.UUID]string)}
}

func (f *fakeOrderStore) Create(ctx context.Context, o domain.Order) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, o)
	return nil
}
func (f *fakeOrderStore) GetByID(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	return domain.Order{}, domain.ErrNotFound
}
func (f *fakeOrderStore) ListByAccount(ctx context.Context, accountID uuid.UUID, opts domain.ListOpts) ([]domain.Order, error) {
	return nil, nil
}
func (f *fakeOrderStore) MarkRejected(ctx context.Context, id uuid.UUID, reason string) error {
	f.rejected[id] = reason
	return nil
}

type fakePrices struct {
	set map[string]float64
}

func (f *fakePrices) SetPrice(ctx context.Context, symbol string, price float64, ts time.Time) error {
	if f.set == nil {
		f.set = make(map[string]float64)
	}
	f.set[symbol] = price
	return nil
}
func (f *fakePrices) GetPrice(ctx context.Context, symbol string) (float64, error) {
	return 0, domain.ErrStalePrice
}

type fakeNotifier struct {
	events []string
}

func (f *fakeNotifier) Notify(ctx context.Context, event, title, message string) error {
	f.events = append(f.events, event)
	return nil
}

func ptr(v float64) *float64 { return &v }

func limitBuy(symbol string, limit float64) domain.PendingOrder {
	return domain.PendingOrder{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		AccountID:   uuid.New(),
		OrderNumber: "ORD-TEST",
		Symbol:      symbol,
		Type:        domain.OrderTypeLimit,
		Side:        domain.OrderSideBuy,
		Quantity:    2,
		LimitPrice:  ptr(limit),
		ProductType: domain.ProductTypeSpot,
		Status:      domain.PendingOrderStatusPending,
	}
}

func newTestProcessor(exec *fakeExecutor, liq *fakeLiquidation, pending *fakePendingStore, orders *fakeOrderStore, notifier *fakeNotifier) (*Processor, *fakePrices) {
	prices := &fakePrices{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var n EventNotifier
	if notifier != nil {
		n = notifier
	}
	return NewProcessor(exec, liq, pending, orders, prices, n, logger), prices
}

func TestProcessTickExecutesTriggeredOrder(t *testing.T) {
	po := limitBuy("BTCUSD", 100)
	pending := newFakePendingStore(po)
	orders := newFakeOrderStore()
	exec := &fakeExecutor{result: &domain.ExecutionResult{Success: true, Message: "ok"}}
	notifier := &fakeNotifier{}
	p, prices := newTestProcessor(exec, &fakeLiquidation{}, pending, orders, notifier)

	p.processTick(context.Background(), feed.PriceUpdate{Symbol: "BTCUSD", Price: 95, At: time.Now()})

	assert.Equal(t, 95.0, prices.set["BTCUSD"])

	require.Len(t, orders.created, 1)
	created := orders.created[0]
	assert.Equal(t, po.OrderNumber, created.OrderNumber)
	assert.Equal(t, domain.OrderTypeMarket, created.Type)
	assert.Equal(t, po.Quantity, created.AmountBase)

	// Buy limit at 100 hit at 95 fills at the better market price.
	require.Len(t, exec.calls, 1)
	assert.Equal(t, 95.0, exec.calls[0])

	assert.Equal(t, 95.0, pending.executed[po.ID])
	assert.Empty(t, pending.failed)
	assert.Equal(t, []string{"order_filled"}, notifier.events)
}

func TestProcessTickSkipsUntriggeredOrder(t *testing.T) {
	po := limitBuy("BTCUSD", 100)
	pending := newFakePendingStore(po)
	orders := newFakeOrderStore()
	exec := &fakeExecutor{result: &domain.ExecutionResult{Success: true}}
	p, _ := newTestProcessor(exec, &fakeLiquidation{}, pending, orders, nil)

	p.processTick(context.Background(), feed.PriceUpdate{Symbol: "BTCUSD", Price: 110, At: time.Now()})

	assert.Empty(t, orders.created)
	assert.Empty(t, exec.calls)
	assert.Empty(t, pending.executed)
}

func TestProcessTickRejectionMarksBothRows(t *testing.T) {
	po := limitBuy("BTCUSD", 100)
	pending := newFakePendingStore(po)
	orders := newFakeOrderStore()
	exec := &fakeExecutor{result: &domain.ExecutionResult{
		Success: false,
		Message: "insufficient USD balance (required: 200.20000000, available: 50.00000000)",
	}}
	notifier := &fakeNotifier{}
	p, _ := newTestProcessor(exec, &fakeLiquidation{}, pending, orders, notifier)

	p.processTick(context.Background(), feed.PriceUpdate{Symbol: "BTCUSD", Price: 99, At: time.Now()})

	require.Len(t, orders.created, 1)
	assert.Equal(t, exec.result.Message, orders.rejected[orders.created[0].ID])
	assert.Equal(t, exec.result.Message, pending.failed[po.ID])
	assert.Empty(t, pending.executed)
	assert.Equal(t, []string{"order_rejected"}, notifier.events)
}

func TestProcessTickExecutorErrorMarksFailed(t *testing.T) {
	po := limitBuy("BTCUSD", 100)
	pending := newFakePendingStore(po)
	orders := newFakeOrderStore()
	exec := &fakeExecutor{err: errors.New("connection refused")}
	p, _ := newTestProcessor(exec, &fakeLiquidation{}, pending, orders, nil)

	p.processTick(context.Background(), feed.PriceUpdate{Symbol: "BTCUSD", Price: 99, At: time.Now()})

	assert.Equal(t, "connection refused", pending.failed[po.ID])
	assert.Empty(t, pending.executed)
}

func TestProcessTickNotifiesLiquidations(t *testing.T) {
	liq := &fakeLiquidation{closed: []domain.Contract{
		{ContractNumber: "CT-1", Symbol: "BTCUSD", Side: domain.ContractSideLong},
		{ContractNumber: "CT-2", Symbol: "BTCUSD", Side: domain.ContractSideShort},
	}}
	notifier := &fakeNotifier{}
	p, _ := newTestProcessor(&fakeExecutor{}, liq, newFakePendingStore(), newFakeOrderStore(), notifier)

	p.processTick(context.Background(), feed.PriceUpdate{Symbol: "BTCUSD", Price: 50, At: time.Now()})

	assert.Equal(t, []string{"liquidation", "liquidation"}, notifier.events)
}

func TestHandlePriceDropsWhenQueueFull(t *testing.T) {
	p, _ := newTestProcessor(&fakeExecutor{}, &fakeLiquidation{}, newFakePendingStore(), newFakeOrderStore(), nil)

	for i := 0; i < defaultQueueSize+10; i++ {
		p.HandlePrice(context.Background(), feed.PriceUpdate{Symbol: "BTCUSD", Price: 100})
	}
	assert.Len(t, p.updates, defaultQueueSize)
}
