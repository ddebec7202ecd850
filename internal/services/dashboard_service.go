package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/insurance-api/internal/cache"
	"github.com/sjperalta/insurance-api/internal/models"
	"github.com/sjperalta/insurance-api/internal/repository"
	"github.com/sjperalta/insurance-api/pkg/logger"
)

const defaultDashboardTTL = 5 * time.Minute

// DashboardService computes the dashboard aggregates and caches them until
// the next financial mutation
type DashboardService struct {
	repo  repository.DashboardRepository
	cache cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

func NewDashboardService(repo repository.DashboardRepository, c cache.Cache, ttl time.Duration) *DashboardService {
	if ttl <= 0 {
		ttl = defaultDashboardTTL
	}
	return &DashboardService{repo: repo, cache: c, ttl: ttl, now: time.Now}
}

func (s *DashboardService) cached(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		logger.Warn("dashboard cache read failed", "key", key, "error", err)
		return false
	}
	return hit
}

func (s *DashboardService) store(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		logger.Warn("dashboard cache write failed", "key", key, "error", err)
	}
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// Statistics returns the headline counters
func (s *DashboardService) Statistics(ctx context.Context) (*models.DashboardStatistics, error) {
	var stats models.DashboardStatistics
	if s.cached(ctx, cache.KeyDashboardStatistics, &stats) {
		return &stats, nil
	}

	var err error
	if stats.Customers, err = s.repo.CountCustomers(ctx); err != nil {
		return nil, err
	}
	if stats.Vehicles, err = s.repo.CountVehicles(ctx); err != nil {
		return nil, err
	}

	policies, err := s.repo.CountPoliciesByStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats.ActivePolicies = policies[models.PolicyStatusActive]
	stats.CancelledPolicies = policies[models.PolicyStatusCancelled]
	stats.ExpiredPolicies = policies[models.PolicyStatusExpired]

	cheques, err := s.repo.CountChequesByStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats.PendingCheques = cheques[models.ChequeStatusPending]
	stats.ReturnedCheques = cheques[models.ChequeStatusReturned]

	if stats.PendingChequesAmount, err = s.repo.SumPendingCheques(ctx); err != nil {
		return nil, err
	}
	if stats.TotalOutstandingDebt, err = s.repo.SumOutstandingDebt(ctx); err != nil {
		return nil, err
	}

	start := monthStart(s.now())
	if stats.PaymentsThisMonth, stats.PaymentsThisMonthSize, err = s.repo.SettledPaymentsTotal(ctx, start, start.AddDate(0, 1, 0)); err != nil {
		return nil, err
	}
	if stats.AwaitingGateway, err = s.repo.CountAwaitingGateway(ctx); err != nil {
		return nil, err
	}

	s.store(ctx, cache.KeyDashboardStatistics, &stats)
	return &stats, nil
}

// overviewPeriod resolves the requested range to [start, end). The default
// is the last 12 calendar months including the current one.
func (s *DashboardService) overviewPeriod(start, end *time.Time) (time.Time, time.Time, error) {
	now := s.now()
	to := monthStart(now).AddDate(0, 1, 0)
	if end != nil {
		to = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, end.Location()).AddDate(0, 0, 1)
	}
	from := monthStart(to.AddDate(0, 0, -1)).AddDate(0, -11, 0)
	if start != nil {
		from = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	}
	if !from.Before(to) {
		return from, to, invalid("start_date", "dashboard.period_invalid", "start date must be before end date")
	}
	return from, to, nil
}

// FinancialOverview returns revenue against expenses for a period with a
// per-method breakdown and a monthly series
func (s *DashboardService) FinancialOverview(ctx context.Context, start, end *time.Time) (*models.FinancialOverview, error) {
	from, to, err := s.overviewPeriod(start, end)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("dashboard:overview:%s:%s", from.Format(models.DateLayout), to.Format(models.DateLayout))
	var overview models.FinancialOverview
	if s.cached(ctx, key, &overview) {
		return &overview, nil
	}

	payments, _, err := s.repo.SettledPaymentsTotal(ctx, from, to)
	if err != nil {
		return nil, err
	}
	ledger, err := s.repo.LedgerTotals(ctx, from, to)
	if err != nil {
		return nil, err
	}
	expenses, err := s.repo.ExpensesTotal(ctx, from, to)
	if err != nil {
		return nil, err
	}
	byMethod, err := s.repo.SettledPaymentsByMethod(ctx, from, to)
	if err != nil {
		return nil, err
	}

	inbound, outbound := decimal.Zero, decimal.Zero
	for k, v := range ledger {
		if strings.HasSuffix(k, ":"+models.DirectionIn) {
			inbound = inbound.Add(v)
		} else {
			outbound = outbound.Add(v)
		}
	}

	overview = models.FinancialOverview{
		Revenue:  payments.Add(inbound),
		Expenses: expenses.Add(outbound),
		Refunds:  ledger[models.EntryKindRefund+":"+models.DirectionOut],
		ByMethod: byMethod,
		Period: map[string]string{
			"start": from.Format(models.DateLayout),
			"end":   to.AddDate(0, 0, -1).Format(models.DateLayout),
		},
	}
	overview.Net = overview.Revenue.Sub(overview.Expenses)
	if overview.ByMethod == nil {
		overview.ByMethod = []models.MethodTotal{}
	}

	if overview.MonthlySeries, err = s.monthlySeries(ctx, from, to); err != nil {
		return nil, err
	}

	s.store(ctx, key, &overview)
	return &overview, nil
}

// monthlySeries buckets every money movement of the period by month
func (s *DashboardService) monthlySeries(ctx context.Context, from, to time.Time) ([]models.MonthlyTotals, error) {
	var movements []repository.DatedAmount
	for _, load := range []func(context.Context, time.Time, time.Time) ([]repository.DatedAmount, error){
		s.repo.SettledPaymentAmounts,
		s.repo.LedgerAmounts,
		s.repo.ExpenseAmounts,
	} {
		rows, err := load(ctx, from, to)
		if err != nil {
			return nil, err
		}
		movements = append(movements, rows...)
	}

	var series []models.MonthlyTotals
	index := make(map[string]int)
	for m := monthStart(from); m.Before(to); m = m.AddDate(0, 1, 0) {
		key := m.Format("2006-01")
		index[key] = len(series)
		series = append(series, models.MonthlyTotals{Month: key, Revenue: decimal.Zero, Expenses: decimal.Zero})
	}

	for _, mv := range movements {
		i, ok := index[mv.At.Format("2006-01")]
		if !ok {
			continue
		}
		if mv.Direction == models.DirectionOut {
			series[i].Expenses = series[i].Expenses.Add(mv.Amount)
		} else {
			series[i].Revenue = series[i].Revenue.Add(mv.Amount)
		}
	}
	for i := range series {
		series[i].Net = series[i].Revenue.Sub(series[i].Expenses)
	}
	return series, nil
}
