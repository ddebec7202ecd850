package services

import (
	"github.com/sjperalta/insurance-api/internal/cache"
	"github.com/sjperalta/insurance-api/internal/config"
	"github.com/sjperalta/insurance-api/internal/events"
	"github.com/sjperalta/insurance-api/internal/jobs"
	"github.com/sjperalta/insurance-api/internal/repository"
	"github.com/sjperalta/insurance-api/internal/storage"
	"gorm.io/gorm"
)

// Services holds all service instances
type Services struct {
	Auth         *AuthService
	User         *UserService
	Customer     *CustomerService
	Policy       *PolicyService
	Payment      *PaymentService
	Cheque       *ChequeService
	Agent        *AgentService
	Expense      *ExpenseService
	Dashboard    *DashboardService
	Notification *NotificationService
	Report       *ReportService
	Audit        *AuditService
	Email        *EmailService
	SMS          *SMSService
	Image        *ImageService
	Export       *ExportService
	Job          *JobService
}

// NewServices creates all service instances. cache and publisher may be nil,
// in which case dashboard caching and event publishing are skipped.
func NewServices(
	repos *repository.Repositories,
	worker *jobs.Worker,
	store storage.Storage,
	c cache.Cache,
	publisher events.Publisher,
	cfg *config.Config,
	db *gorm.DB,
) *Services {
	auditSvc := NewAuditService(db)
	emailSvc := NewEmailService(cfg)
	smsSvc := NewSMSService(cfg)
	notificationSvc := NewNotificationService(emailSvc, smsSvc, repos.User, cfg)
	imageSvc := NewImageService()
	exportSvc := NewExportService()

	recorder := &changeRecorder{
		audit:     auditSvc,
		cache:     c,
		publisher: publisher,
		worker:    worker,
	}

	policySvc := NewPolicyService(repos, cfg, recorder)

	return &Services{
		Auth:         NewAuthService(repos.User, repos.RefreshToken, cfg),
		User:         NewUserService(repos.User, repos.RefreshToken, auditSvc),
		Customer:     NewCustomerService(repos, store, recorder),
		Policy:       policySvc,
		Payment:      NewPaymentService(repos, policySvc, cfg, recorder),
		Cheque:       NewChequeService(repos, store, imageSvc, notificationSvc, exportSvc, recorder),
		Agent:        NewAgentService(repos, exportSvc, recorder),
		Expense:      NewExpenseService(repos, exportSvc, recorder),
		Dashboard:    NewDashboardService(repos.Dashboard, c, cfg.DashboardCacheTTL),
		Notification: notificationSvc,
		Report:       NewReportService(repos.Payment),
		Audit:        auditSvc,
		Email:        emailSvc,
		SMS:          smsSvc,
		Image:        imageSvc,
		Export:       exportSvc,
		Job:          NewJobService(worker),
	}
}
