package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexfx/brokerd/internal/domain"
)

// fakeTx scripts the statements the settlement strategies issue, routed by
// SQL substring. Balance mutations are mirrored into the balances map so
// later reads within the same settlement observe them. Statements the fake
// does not know panic through the embedded interface.
type fakeTx struct {
	pgx.Tx

	balances      map[string]float64
	forexLeverage map[string]int

	balanceReads []string
	execSQL      []string
	execArgs     [][]any
	failOn       string
}

func newFakeTx() *fakeTx {
	return &fakeTx{
		balances:      make(map[string]float64),
		forexLeverage: make(map[string]int),
	}
}

func (f *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if f.failOn != "" && strings.Contains(sql, f.failOn) {
		return pgconn.CommandTag{}, errors.New("statement failed")
	}
	f.execSQL = append(f.execSQL, sql)
	f.execArgs = append(f.execArgs, args)

	switch {
	case strings.Contains(sql, "UPDATE balances"):
		f.balances[args[2].(string)] -= args[0].(float64)
	case strings.Contains(sql, "INSERT INTO balances"):
		f.balances[args[1].(string)] += args[2].(float64)
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (f *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	switch {
	case strings.Contains(sql, "FROM balances"):
		currency := args[1].(string)
		f.balanceReads = append(f.balanceReads, currency)
		amount, ok := f.balances[currency]
		if !ok {
			return errRow{pgx.ErrNoRows}
		}
		return scanRow{vals: []any{amount}}
	case strings.Contains(sql, "FROM forex_configurations"):
		lev, ok := f.forexLeverage[args[0].(string)]
		if !ok {
			return errRow{pgx.ErrNoRows}
		}
		return scanRow{vals: []any{lev}}
	case strings.Contains(sql, "FROM contracts"):
		return f.contractRow(args[0].(uuid.UUID))
	}
	return errRow{errors.New("unscripted query: " + sql)}
}

// contractRow answers fetchContract from the recorded hedge-pair insert.
func (f *fakeTx) contractRow(id uuid.UUID) pgx.Row {
	for i, sql := range f.execSQL {
		if !strings.Contains(sql, "INSERT INTO contracts") {
			continue
		}
		a := f.execArgs[i]
		pairID := a[13].(uuid.UUID)
		if a[0].(uuid.UUID) == id {
			return scanRow{vals: []any{
				id, a[1], a[2], a[3], a[4], a[5], a[6],
				a[7], a[8], a[9], a[10], a[12],
				nil, nil, nil, 0.0, 0.0, a[11], &pairID,
				nil, nil, nil,
			}}
		}
		if a[14].(uuid.UUID) == id {
			return scanRow{vals: []any{
				id, a[1], a[2], a[3], a[15], a[16], a[6],
				a[7], a[8], a[9], a[10], a[17],
				nil, nil, nil, 0.0, 0.0, a[11], &pairID,
				nil, nil, nil,
			}}
		}
	}
	return errRow{pgx.ErrNoRows}
}

type scanRow struct{ vals []any }

func (r scanRow) Scan(dest ...any) error {
	for i, d := range dest {
		if i >= len(r.vals) || r.vals[i] == nil {
			continue
		}
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(r.vals[i]))
	}
	return nil
}

type errRow struct{ err error }

func (r errRow) Scan(dest ...any) error { return r.err }

type fakeRouting struct {
	decision *RoutingDecision
	err      error
	calls    int
}

func (f *fakeRouting) ShouldRouteToLP(ctx context.Context, symbol string, side domain.OrderSide, quantity, price decimal.Decimal) (*RoutingDecision, error) {
	f.calls++
	return f.decision, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func marginOrder(symbol string, leverage int) *lockedOrder {
	return &lockedOrder{
		order: domain.Order{
			ID:          uuid.New(),
			UserID:      uuid.New(),
			AccountID:   uuid.New(),
			OrderNumber: "ORD-TEST",
			Symbol:      symbol,
			Side:        domain.OrderSideBuy,
			Type:        domain.OrderTypeMarket,
			Status:      domain.OrderStatusPending,
			ProductType: domain.ProductTypeMargin,
			AmountBase:  1,
			Leverage:    leverage,
		},
		accountCurrency: "USD",
		quoteCurrency:   "USD",
		instrumentType:  domain.InstrumentTypeCrypto,
	}
}

func TestExecuteOrderRejectsNonPositivePrice(t *testing.T) {
	e := NewExecutor(ExecutorConfig{Logger: discardLogger()})

	_, err := e.ExecuteOrder(context.Background(), uuid.New(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-positive price")
}

func TestSelectStrategySpot(t *testing.T) {
	e := NewExecutor(ExecutorConfig{Logger: discardLogger()})
	lo := marginOrder("BTCUSD", 10)
	lo.order.ProductType = domain.ProductTypeSpot

	s := e.selectStrategy(context.Background(), lo, 50000)
	assert.IsType(t, &spotStrategy{}, s)
}

func TestSelectStrategyRoutingDisabled(t *testing.T) {
	routing := &fakeRouting{decision: aBook("should not be consulted", decimal.Zero)}
	e := NewExecutor(ExecutorConfig{
		Routing:        routing,
		RoutingEnabled: false,
		Logger:         discardLogger(),
	})

	s := e.selectStrategy(context.Background(), marginOrder("BTCUSD", 10), 50000)
	assert.IsType(t, &hedgeStrategy{}, s)
	assert.Zero(t, routing.calls)
}

func TestSelectStrategyRoutingErrorFallsBackToInternal(t *testing.T) {
	routing := &fakeRouting{err: errors.New("exposure query failed")}
	e := NewExecutor(ExecutorConfig{
		Routing:        routing,
		RoutingEnabled: true,
		Logger:         discardLogger(),
	})

	s := e.selectStrategy(context.Background(), marginOrder("BTCUSD", 10), 50000)
	assert.IsType(t, &hedgeStrategy{}, s)
	assert.Equal(t, 1, routing.calls)
}

func TestSelectStrategyFollowsDecision(t *testing.T) {
	t.Run("route to LP", func(t *testing.T) {
		routing := &fakeRouting{decision: aBook("notional over threshold", decimal.NewFromInt(50000))}
		e := NewExecutor(ExecutorConfig{
			Routing:        routing,
			RoutingEnabled: true,
			Logger:         discardLogger(),
		})

		s := e.selectStrategy(context.Background(), marginOrder("BTCUSD", 10), 50000)
		assert.IsType(t, &routedStrategy{}, s)
	})

	t.Run("stay internal", func(t *testing.T) {
		routing := &fakeRouting{decision: bBook("within limits", decimal.NewFromInt(100))}
		e := NewExecutor(ExecutorConfig{
			Routing:        routing,
			RoutingEnabled: true,
			Logger:         discardLogger(),
		})

		s := e.selectStrategy(context.Background(), marginOrder("BTCUSD", 10), 50000)
		assert.IsType(t, &hedgeStrategy{}, s)
	})
}
