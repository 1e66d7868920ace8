package refresh_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"receivables-analytics/internal/core"
	"receivables-analytics/internal/logging"
	"receivables-analytics/internal/refresh"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func ptr[T any](v T) *T { return &v }

// memState is one tenant's ledger and projection data.
type memState struct {
	accounts    []core.LedgerAccount
	vouchers    []core.Voucher
	allocations []core.PaymentAllocation

	summaries    []core.CustomerSummary
	overview     *core.BusinessOverview
	dashboards   map[time.Time]core.DashboardMetrics
	voucherAging map[int64]core.VoucherAgingUpdate
	daysOverdue  map[int64]int
}

func (s memState) clone() memState {
	c := s
	c.summaries = append([]core.CustomerSummary(nil), s.summaries...)
	if s.overview != nil {
		o := *s.overview
		c.overview = &o
	}
	c.dashboards = make(map[time.Time]core.DashboardMetrics, len(s.dashboards))
	for k, v := range s.dashboards {
		c.dashboards[k] = v
	}
	c.voucherAging = make(map[int64]core.VoucherAgingUpdate, len(s.voucherAging))
	for k, v := range s.voucherAging {
		c.voucherAging[k] = v
	}
	c.daysOverdue = make(map[int64]int, len(s.daysOverdue))
	for k, v := range s.daysOverdue {
		c.daysOverdue[k] = v
	}
	return c
}

// fakeStore commits a transaction's copy of the state only when fn succeeds.
type fakeStore struct {
	mu     sync.Mutex
	state  memState
	failOn string
	writes []string
}

func (f *fakeStore) WithTenantTx(_ context.Context, _ string, fn func(refresh.TenantTx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tx := &fakeTx{store: f, state: f.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	f.state = tx.state
	return nil
}

type fakeTx struct {
	store *fakeStore
	state memState
}

func (t *fakeTx) write(name string) error {
	t.store.writes = append(t.store.writes, name)
	if t.store.failOn == name {
		return errBoom
	}
	return nil
}

func (t *fakeTx) VoucherPeriod(context.Context) (*time.Time, *time.Time, error) {
	var first, last *time.Time
	for _, v := range t.state.vouchers {
		d := v.Date
		if first == nil || d.Before(*first) {
			first = &d
		}
		if last == nil || d.After(*last) {
			last = &d
		}
	}
	return first, last, nil
}

func (t *fakeTx) ListLedgerAccounts(context.Context) ([]core.LedgerAccount, error) {
	return t.state.accounts, nil
}

func (t *fakeTx) ListVouchers(context.Context) ([]core.Voucher, error) {
	return t.state.vouchers, nil
}

func (t *fakeTx) ListAllocations(context.Context) ([]core.PaymentAllocation, error) {
	return t.state.allocations, nil
}

func (t *fakeTx) LoadCustomerSummaries(context.Context) ([]core.CustomerSummary, error) {
	return t.state.summaries, nil
}

func (t *fakeTx) ReplaceCustomerSummaries(_ context.Context, rows []core.CustomerSummary) error {
	if err := t.write("ReplaceCustomerSummaries"); err != nil {
		return err
	}
	t.state.summaries = append([]core.CustomerSummary(nil), rows...)
	return nil
}

func (t *fakeTx) UpsertBusinessOverview(_ context.Context, o core.BusinessOverview) error {
	if err := t.write("UpsertBusinessOverview"); err != nil {
		return err
	}
	t.state.overview = &o
	return nil
}

func (t *fakeTx) UpdateDashboardFromOverview(_ context.Context, o core.BusinessOverview, asOf time.Time) (bool, error) {
	if err := t.write("UpdateDashboardFromOverview"); err != nil {
		return false, err
	}
	m, ok := t.state.dashboards[asOf]
	if !ok {
		return false, nil
	}
	m.TotalReceivable = o.TotalReceivables
	m.CustomerCount = o.TotalCustomers
	t.state.dashboards[asOf] = m
	return true, nil
}

func (t *fakeTx) SanitizeDashboardMetrics(context.Context) error {
	return t.write("SanitizeDashboardMetrics")
}

func (t *fakeTx) ApplyVoucherAging(_ context.Context, updates []core.VoucherAgingUpdate, _ time.Time) error {
	if err := t.write("ApplyVoucherAging"); err != nil {
		return err
	}
	for _, u := range updates {
		t.state.voucherAging[u.VoucherID] = u
	}
	return nil
}

func (t *fakeTx) ApplyLedgerAging(_ context.Context, updates []core.LedgerAgingUpdate, _ time.Time) error {
	if err := t.write("ApplyLedgerAging"); err != nil {
		return err
	}
	for _, u := range updates {
		t.state.daysOverdue[u.LedgerID] = u.DaysOverdue
	}
	return nil
}

func (t *fakeTx) UpsertDashboardSnapshot(_ context.Context, m core.DashboardMetrics) error {
	if err := t.write("UpsertDashboardSnapshot"); err != nil {
		return err
	}
	t.state.dashboards[m.AsOfDate] = m
	return nil
}

func debtor(id int64, name, opening string) core.LedgerAccount {
	return core.LedgerAccount{
		ID: id, GUID: name + "-guid", TenantID: "T1", Name: name,
		ParentGroup: core.SundryDebtors, OpeningBalance: dec(opening), Active: true,
	}
}

func voucher(id, party int64, rawType, amount, date string) core.Voucher {
	return core.Voucher{
		ID: id, TenantID: "T1", PartyLedgerID: ptr(party), VoucherType: rawType,
		Class: core.ClassifyVoucherType(rawType), TotalAmount: dec(amount), Date: day(date),
	}
}

func seededStore() *fakeStore {
	cancelled := voucher(13, 3, "Sales", "50", "2026-10-01")
	cancelled.Cancelled = true
	return &fakeStore{state: memState{
		accounts: []core.LedgerAccount{
			debtor(1, "Acme", "100"),
			debtor(2, "Cash", "0"),
			debtor(3, "Bolt", "0"),
		},
		vouchers: []core.Voucher{
			voucher(10, 1, "Sales", "1000", "2026-09-01"),
			voucher(11, 1, "Receipt", "300", "2026-09-20"),
			voucher(12, 3, "Invoice", "500", "2026-06-01"),
			cancelled,
		},
		allocations: []core.PaymentAllocation{
			{ID: 1, ReceiptVoucherID: 11, InvoiceVoucherID: 10, AllocatedAmount: dec("300"), Active: true},
		},
		dashboards:   map[time.Time]core.DashboardMetrics{},
		voucherAging: map[int64]core.VoucherAgingUpdate{},
		daysOverdue:  map[int64]int{},
	}}
}

func newOrchestrator(s refresh.Store) *refresh.Orchestrator {
	o := refresh.New(s, nil, core.NewFormatter(core.DefaultCurrencySymbol), logging.Discard())
	o.Now = func() time.Time { return time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC) }
	return o
}

func TestRefreshTenant_RunsStagesInOrder(t *testing.T) {
	s := seededStore()
	o := newOrchestrator(s)

	res, err := o.RefreshTenant(context.Background(), "T1")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"ReplaceCustomerSummaries",
		"UpsertBusinessOverview",
		"UpdateDashboardFromOverview",
		"SanitizeDashboardMetrics",
		"ApplyVoucherAging",
		"ApplyLedgerAging",
		"UpsertDashboardSnapshot",
	}, s.writes)

	assert.Equal(t, "T1", res.TenantID)
	assert.Equal(t, 2, res.Customers)
	assert.Equal(t, 3, res.Invoices)
	assert.Equal(t, o.Now(), res.RefreshedAt)

	require.NotNil(t, s.state.overview)
	assert.True(t, s.state.overview.TotalReceivables.Equal(dec("1300")))
	assert.True(t, s.state.overview.TotalAdvances.IsZero())
	assert.Equal(t, 2, s.state.overview.TotalCustomers)

	snapshot, ok := s.state.dashboards[day("2026-10-15")]
	require.True(t, ok)
	assert.True(t, snapshot.TotalReceivable.Equal(dec("1300")))
	assert.Equal(t, 2, snapshot.CustomerCount)

	assert.Equal(t, core.PaymentPartial, s.state.voucherAging[10].PaymentStatus)
	assert.Equal(t, core.PaymentCancelled, s.state.voucherAging[13].PaymentStatus)
	assert.Equal(t, 136, s.state.daysOverdue[3])
	assert.Equal(t, 0, s.state.daysOverdue[2])
}

func TestRefreshSummaries_StageFailureRollsBack(t *testing.T) {
	s := seededStore()
	s.failOn = "UpsertBusinessOverview"
	o := newOrchestrator(s)

	_, err := o.RefreshSummaries(context.Background(), "T1")
	require.Error(t, err)

	var se *refresh.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "T1", se.Tenant)
	assert.Equal(t, refresh.StageBusinessOverview, se.Stage)
	assert.ErrorIs(t, err, errBoom)

	assert.Equal(t, []string{"ReplaceCustomerSummaries", "UpsertBusinessOverview"}, s.writes,
		"later stages never run")
	assert.Empty(t, s.state.summaries, "earlier stage writes are rolled back")
	assert.Nil(t, s.state.overview)
}

func TestRefreshTenant_AgingFailureKeepsSummaries(t *testing.T) {
	s := seededStore()
	s.failOn = "ApplyLedgerAging"
	o := newOrchestrator(s)

	_, err := o.RefreshTenant(context.Background(), "T1")

	var se *refresh.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, refresh.StageLedgerAging, se.Stage)
	assert.Len(t, s.state.summaries, 2, "the summary pipeline committed on its own")
	assert.Empty(t, s.state.voucherAging, "the aging pipeline rolled back as a whole")
}

func TestRefreshTenant_Idempotent(t *testing.T) {
	s := seededStore()
	o := newOrchestrator(s)
	ctx := context.Background()

	_, err := o.RefreshTenant(ctx, "T1")
	require.NoError(t, err)
	first := s.state.clone()

	_, err = o.RefreshTenant(ctx, "T1")
	require.NoError(t, err)

	assert.Equal(t, first.summaries, s.state.summaries)
	assert.Equal(t, first.overview, s.state.overview)
	assert.Equal(t, first.dashboards, s.state.dashboards)
	assert.Equal(t, first.voucherAging, s.state.voucherAging)
	assert.Equal(t, first.daysOverdue, s.state.daysOverdue)
}

func TestRefreshSummaries_UpdatesExistingSnapshot(t *testing.T) {
	s := seededStore()
	today := day("2026-10-15")
	s.state.dashboards[today] = core.DashboardMetrics{TenantID: "T1", AsOfDate: today, TotalReceivable: dec("1")}
	o := newOrchestrator(s)

	_, err := o.RefreshSummaries(context.Background(), "T1")
	require.NoError(t, err)

	m := s.state.dashboards[today]
	assert.True(t, m.TotalReceivable.Equal(dec("1300")))
	assert.Equal(t, 2, m.CustomerCount)
}

func TestRefreshTenant_Busy(t *testing.T) {
	s := seededStore()
	locker := refresh.NewLocalLocker()
	o := refresh.New(s, locker, core.NewFormatter(core.DefaultCurrencySymbol), logging.Discard())

	unlock, err := locker.Lock(context.Background(), "T1")
	require.NoError(t, err)

	_, err = o.RefreshTenant(context.Background(), "T1")
	assert.ErrorIs(t, err, refresh.ErrTenantBusy)
	assert.Empty(t, s.writes)

	unlock()
	_, err = o.RefreshTenant(context.Background(), "T1")
	assert.NoError(t, err)
}

func TestRefreshTenant_Cancelled(t *testing.T) {
	s := seededStore()
	o := newOrchestrator(s)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.RefreshTenant(ctx, "T1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, s.writes)
}

func TestLocalLocker(t *testing.T) {
	l := refresh.NewLocalLocker()
	ctx := context.Background()

	unlockA, err := l.Lock(ctx, "A")
	require.NoError(t, err)
	_, err = l.Lock(ctx, "A")
	assert.ErrorIs(t, err, refresh.ErrTenantBusy)

	unlockB, err := l.Lock(ctx, "B")
	require.NoError(t, err, "tenants lock independently")
	unlockB()

	unlockA()
	unlockA()
	unlockAgain, err := l.Lock(ctx, "A")
	require.NoError(t, err)
	unlockAgain()
}
