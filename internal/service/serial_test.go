package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docupos/api/internal/apperr"
	"github.com/docupos/api/internal/database"
)

// mockSerialStore implements SerialStore with configurable behavior.
type mockSerialStore struct {
	getOrderFn                 func(ctx context.Context, id uuid.UUID) (database.Order, error)
	getConsumedSerialByOrderFn func(ctx context.Context, orderID uuid.UUID) (database.FormSerial, error)
	listFormTypesByVariantFn   func(ctx context.Context, variantID uuid.UUID) ([]database.FormType, error)
	consumeFormSerialFn        func(ctx context.Context, arg database.ConsumeFormSerialParams) (database.FormSerial, error)
	getFormSerialByNumberFn    func(ctx context.Context, arg database.GetFormSerialByNumberParams) (database.FormSerial, error)
	getFormSerialFn            func(ctx context.Context, id uuid.UUID) (database.FormSerial, error)
	createFormSerialFn         func(ctx context.Context, arg database.CreateFormSerialParams) (int64, error)
	deleteFormSerialFn         func(ctx context.Context, id uuid.UUID) (int64, error)
	listFormSerialsFn          func(ctx context.Context, arg database.ListFormSerialsParams) ([]database.FormSerial, error)
	listFormTypeStockFn        func(ctx context.Context) ([]database.FormTypeStockRow, error)
}

func (m *mockSerialStore) GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.getOrderFn(ctx, id)
}
func (m *mockSerialStore) GetConsumedSerialByOrder(ctx context.Context, orderID uuid.UUID) (database.FormSerial, error) {
	return m.getConsumedSerialByOrderFn(ctx, orderID)
}
func (m *mockSerialStore) ListFormTypesByVariant(ctx context.Context, variantID uuid.UUID) ([]database.FormType, error) {
	return m.listFormTypesByVariantFn(ctx, variantID)
}
func (m *mockSerialStore) ConsumeFormSerial(ctx context.Context, arg database.ConsumeFormSerialParams) (database.FormSerial, error) {
	return m.consumeFormSerialFn(ctx, arg)
}
func (m *mockSerialStore) GetFormSerialByNumber(ctx context.Context, arg database.GetFormSerialByNumberParams) (database.FormSerial, error) {
	return m.getFormSerialByNumberFn(ctx, arg)
}
func (m *mockSerialStore) GetFormSerial(ctx context.Context, id uuid.UUID) (database.FormSerial, error) {
	return m.getFormSerialFn(ctx, id)
}
func (m *mockSerialStore) CreateFormSerial(ctx context.Context, arg database.CreateFormSerialParams) (int64, error) {
	return m.createFormSerialFn(ctx, arg)
}
func (m *mockSerialStore) DeleteFormSerial(ctx context.Context, id uuid.UUID) (int64, error) {
	return m.deleteFormSerialFn(ctx, id)
}
func (m *mockSerialStore) ListFormSerials(ctx context.Context, arg database.ListFormSerialsParams) ([]database.FormSerial, error) {
	return m.listFormSerialsFn(ctx, arg)
}
func (m *mockSerialStore) ListFormTypeStock(ctx context.Context) ([]database.FormTypeStockRow, error) {
	return m.listFormTypeStockFn(ctx)
}

// defaultSerialStore wires one order to one form type with serial SN-100 free.
func defaultSerialStore(orderID, variantID, formTypeID uuid.UUID) *mockSerialStore {
	return &mockSerialStore{
		getOrderFn: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			if id == orderID {
				return database.Order{ID: orderID, OrderNumber: "DOC-000042", VariantID: variantID}, nil
			}
			return database.Order{}, pgx.ErrNoRows
		},
		getConsumedSerialByOrderFn: func(ctx context.Context, oid uuid.UUID) (database.FormSerial, error) {
			return database.FormSerial{}, pgx.ErrNoRows
		},
		listFormTypesByVariantFn: func(ctx context.Context, vid uuid.UUID) ([]database.FormType, error) {
			return []database.FormType{{ID: formTypeID, Name: "ID Card Blank"}}, nil
		},
		consumeFormSerialFn: func(ctx context.Context, arg database.ConsumeFormSerialParams) (database.FormSerial, error) {
			if arg.SerialNumber == "SN-100" {
				return database.FormSerial{
					ID:           uuid.New(),
					FormTypeID:   arg.FormTypeID,
					SerialNumber: arg.SerialNumber,
					Consumed:     true,
				}, nil
			}
			return database.FormSerial{}, pgx.ErrNoRows
		},
		getFormSerialByNumberFn: func(ctx context.Context, arg database.GetFormSerialByNumberParams) (database.FormSerial, error) {
			return database.FormSerial{}, pgx.ErrNoRows
		},
	}
}

func newTestSerialService(store *mockSerialStore) *SerialService {
	return NewSerialService(store, zerolog.Nop())
}

func TestConsumeSerial(t *testing.T) {
	orderID, variantID, formTypeID := uuid.New(), uuid.New(), uuid.New()
	store := defaultSerialStore(orderID, variantID, formTypeID)
	svc := newTestSerialService(store)

	serial, err := svc.Consume(context.Background(), orderID, "SN-100", uuid.New(), testNow)
	require.NoError(t, err)
	assert.Equal(t, "SN-100", serial.SerialNumber)
	assert.True(t, serial.Consumed)
}

func TestConsumeSerialTrimsInput(t *testing.T) {
	orderID, variantID, formTypeID := uuid.New(), uuid.New(), uuid.New()
	svc := newTestSerialService(defaultSerialStore(orderID, variantID, formTypeID))

	serial, err := svc.Consume(context.Background(), orderID, "  SN-100  ", uuid.New(), testNow)
	require.NoError(t, err)
	assert.Equal(t, "SN-100", serial.SerialNumber)
}

func TestConsumeSerialOrderNotFound(t *testing.T) {
	svc := newTestSerialService(defaultSerialStore(uuid.New(), uuid.New(), uuid.New()))

	_, err := svc.Consume(context.Background(), uuid.New(), "SN-100", uuid.New(), testNow)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound), "got %v", err)
}

func TestConsumeSerialOrderAlreadyHoldsOne(t *testing.T) {
	orderID, variantID, formTypeID := uuid.New(), uuid.New(), uuid.New()
	store := defaultSerialStore(orderID, variantID, formTypeID)
	store.getConsumedSerialByOrderFn = func(ctx context.Context, oid uuid.UUID) (database.FormSerial, error) {
		return database.FormSerial{SerialNumber: "SN-099", Consumed: true}, nil
	}
	consumeCalled := false
	inner := store.consumeFormSerialFn
	store.consumeFormSerialFn = func(ctx context.Context, arg database.ConsumeFormSerialParams) (database.FormSerial, error) {
		consumeCalled = true
		return inner(ctx, arg)
	}
	svc := newTestSerialService(store)

	_, err := svc.Consume(context.Background(), orderID, "SN-100", uuid.New(), testNow)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict), "got %v", err)
	assert.False(t, consumeCalled)
}

func TestConsumeSerialUnlinkedVariant(t *testing.T) {
	orderID, variantID, formTypeID := uuid.New(), uuid.New(), uuid.New()
	store := defaultSerialStore(orderID, variantID, formTypeID)
	store.listFormTypesByVariantFn = func(ctx context.Context, vid uuid.UUID) ([]database.FormType, error) {
		return nil, nil
	}
	consumeCalled := false
	inner := store.consumeFormSerialFn
	store.consumeFormSerialFn = func(ctx context.Context, arg database.ConsumeFormSerialParams) (database.FormSerial, error) {
		consumeCalled = true
		return inner(ctx, arg)
	}
	svc := newTestSerialService(store)

	_, err := svc.Consume(context.Background(), orderID, "SN-100", uuid.New(), testNow)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation), "got %v", err)
	assert.False(t, consumeCalled, "inventory must not be touched")
}

func TestConsumeSerialAmbiguousVariant(t *testing.T) {
	orderID, variantID, formTypeID := uuid.New(), uuid.New(), uuid.New()
	store := defaultSerialStore(orderID, variantID, formTypeID)
	store.listFormTypesByVariantFn = func(ctx context.Context, vid uuid.UUID) ([]database.FormType, error) {
		return []database.FormType{
			{ID: formTypeID, Name: "ID Card Blank"},
			{ID: uuid.New(), Name: "Passport Blank"},
		}, nil
	}
	svc := newTestSerialService(store)

	_, err := svc.Consume(context.Background(), orderID, "SN-100", uuid.New(), testNow)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation), "got %v", err)
}

func TestConsumeSerialNotFound(t *testing.T) {
	orderID, variantID, formTypeID := uuid.New(), uuid.New(), uuid.New()
	svc := newTestSerialService(defaultSerialStore(orderID, variantID, formTypeID))

	_, err := svc.Consume(context.Background(), orderID, "SN-999", uuid.New(), testNow)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound), "got %v", err)
}

func TestConsumeSerialAlreadyConsumed(t *testing.T) {
	orderID, variantID, formTypeID := uuid.New(), uuid.New(), uuid.New()
	store := defaultSerialStore(orderID, variantID, formTypeID)
	// The CAS misses but the serial exists: someone else took it.
	store.consumeFormSerialFn = func(ctx context.Context, arg database.ConsumeFormSerialParams) (database.FormSerial, error) {
		return database.FormSerial{}, pgx.ErrNoRows
	}
	store.getFormSerialByNumberFn = func(ctx context.Context, arg database.GetFormSerialByNumberParams) (database.FormSerial, error) {
		return database.FormSerial{SerialNumber: arg.SerialNumber, Consumed: true}, nil
	}
	svc := newTestSerialService(store)

	_, err := svc.Consume(context.Background(), orderID, "SN-100", uuid.New(), testNow)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict), "got %v", err)
}

func TestConsumeSerialSingleWinner(t *testing.T) {
	orderA, orderB := uuid.New(), uuid.New()
	variantID, formTypeID := uuid.New(), uuid.New()

	// Shared store: the first conditional update wins, later ones miss.
	taken := false
	store := defaultSerialStore(orderA, variantID, formTypeID)
	store.getOrderFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		return database.Order{ID: id, OrderNumber: "DOC-000042", VariantID: variantID}, nil
	}
	store.consumeFormSerialFn = func(ctx context.Context, arg database.ConsumeFormSerialParams) (database.FormSerial, error) {
		if taken {
			return database.FormSerial{}, pgx.ErrNoRows
		}
		taken = true
		return database.FormSerial{
			ID: uuid.New(), FormTypeID: arg.FormTypeID,
			SerialNumber: arg.SerialNumber, Consumed: true,
		}, nil
	}
	store.getFormSerialByNumberFn = func(ctx context.Context, arg database.GetFormSerialByNumberParams) (database.FormSerial, error) {
		return database.FormSerial{SerialNumber: arg.SerialNumber, Consumed: true}, nil
	}
	svc := newTestSerialService(store)

	_, errA := svc.Consume(context.Background(), orderA, "SN-100", uuid.New(), testNow)
	_, errB := svc.Consume(context.Background(), orderB, "SN-100", uuid.New(), testNow)

	require.NoError(t, errA)
	assert.True(t, apperr.IsKind(errB, apperr.KindConflict), "got %v", errB)
}

func TestReplenishSkipsBlanksAndCountsInserts(t *testing.T) {
	formTypeID := uuid.New()
	var created []string
	store := &mockSerialStore{
		createFormSerialFn: func(ctx context.Context, arg database.CreateFormSerialParams) (int64, error) {
			created = append(created, arg.SerialNumber)
			if arg.SerialNumber == "SN-201" {
				return 0, nil // duplicate, skipped by ON CONFLICT
			}
			return 1, nil
		},
	}
	svc := newTestSerialService(store)

	n, err := svc.Replenish(context.Background(), formTypeID,
		[]string{"SN-200", "", "  SN-201 ", "SN-202"}, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, []string{"SN-200", "SN-201", "SN-202"}, created)
}

func TestReplenishRequiresSerials(t *testing.T) {
	svc := newTestSerialService(&mockSerialStore{})

	_, err := svc.Replenish(context.Background(), uuid.New(), []string{"", "  "}, uuid.New())
	assert.True(t, apperr.IsKind(err, apperr.KindValidation), "got %v", err)
}

func TestDeleteConsumedSerialRejected(t *testing.T) {
	serialID := uuid.New()
	store := &mockSerialStore{
		deleteFormSerialFn: func(ctx context.Context, id uuid.UUID) (int64, error) {
			return 0, nil
		},
		getFormSerialFn: func(ctx context.Context, id uuid.UUID) (database.FormSerial, error) {
			return database.FormSerial{ID: serialID, Consumed: true}, nil
		},
	}
	svc := newTestSerialService(store)

	err := svc.Delete(context.Background(), serialID)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict), "got %v", err)
}

func TestDeleteMissingSerial(t *testing.T) {
	store := &mockSerialStore{
		deleteFormSerialFn: func(ctx context.Context, id uuid.UUID) (int64, error) {
			return 0, nil
		},
		getFormSerialFn: func(ctx context.Context, id uuid.UUID) (database.FormSerial, error) {
			return database.FormSerial{}, pgx.ErrNoRows
		},
	}
	svc := newTestSerialService(store)

	err := svc.Delete(context.Background(), uuid.New())
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound), "got %v", err)
}

func TestLowStockSeverity(t *testing.T) {
	store := &mockSerialStore{
		listFormTypeStockFn: func(ctx context.Context) ([]database.FormTypeStockRow, error) {
			return []database.FormTypeStockRow{
				{FormTypeID: uuid.New(), Name: "Empty", Available: 0},
				{FormTypeID: uuid.New(), Name: "Critical", Available: 2},
				{FormTypeID: uuid.New(), Name: "Low", Available: 4},
				{FormTypeID: uuid.New(), Name: "Fine", Available: 5},
				{FormTypeID: uuid.New(), Name: "Plenty", Available: 40},
			}, nil
		},
	}
	svc := newTestSerialService(store)

	alerts, err := svc.LowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 3)
	assert.Equal(t, "out_of_stock", alerts[0].Severity)
	assert.Equal(t, "critical", alerts[1].Severity)
	assert.Equal(t, "warning", alerts[2].Severity)
}
