package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrDuplicateKey is returned when a unique constraint rejects a write
var ErrDuplicateKey = errors.New("duplicate key")

// Repositories holds all repository instances
type Repositories struct {
	db *gorm.DB

	User         UserRepository
	RefreshToken RefreshTokenRepository
	Customer     CustomerRepository
	Vehicle      VehicleRepository
	Attachment   AttachmentRepository
	Agent        AgentRepository
	Policy       PolicyRepository
	Payment      PaymentRepository
	Cheque       ChequeRepository
	Ledger       LedgerRepository
	Expense      ExpenseRepository
	Dashboard    DashboardRepository
}

// NewRepositories creates all repository instances
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:           db,
		User:         NewUserRepository(db),
		RefreshToken: NewRefreshTokenRepository(db),
		Customer:     NewCustomerRepository(db),
		Vehicle:      NewVehicleRepository(db),
		Attachment:   NewAttachmentRepository(db),
		Agent:        NewAgentRepository(db),
		Policy:       NewPolicyRepository(db),
		Payment:      NewPaymentRepository(db),
		Cheque:       NewChequeRepository(db),
		Ledger:       NewLedgerRepository(db),
		Expense:      NewExpenseRepository(db),
		Dashboard:    NewDashboardRepository(db),
	}
}

// Transaction runs fn with repositories bound to a single database
// transaction. Returning an error from fn rolls everything back.
func (r *Repositories) Transaction(ctx context.Context, fn func(tx *Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

// uniqueViolation is the postgres SQLSTATE for a unique constraint failure
const uniqueViolation = "23505"

// translate maps driver errors onto repository errors. Raw statements skip
// gorm's error translation, so the postgres code is checked as well.
func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateKey
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateKey
	}
	return err
}
