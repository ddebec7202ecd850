package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/insurance-api/internal/events"
	"github.com/sjperalta/insurance-api/internal/models"
	"github.com/sjperalta/insurance-api/internal/repository"
	"github.com/sjperalta/insurance-api/internal/statemachine"
	"github.com/sjperalta/insurance-api/internal/storage"
	"github.com/sjperalta/insurance-api/pkg/logger"
	"gorm.io/gorm"
)

// Cheque list page size bounds
const (
	DefaultChequePageSize = 20
	MaxChequePageSize     = 100
)

// FileUpload is a file received in a multipart request
type FileUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ChequeInput is the body of a standalone customer cheque
type ChequeInput struct {
	ChequeNumber string          `form:"cheque_number" json:"cheque_number"`
	Amount       decimal.Decimal `form:"amount" json:"amount"`
	ChequeDate   *models.Date    `form:"cheque_date" json:"cheque_date"`
	BankName     string          `form:"bank_name" json:"bank_name"`
	Notes        string          `form:"notes" json:"notes"`
	PolicyID     *uint           `form:"policy_id" json:"policy_id"`
}

// ChequeStatusInput changes a cheque's status. Override lets an admin
// leave a final status.
type ChequeStatusInput struct {
	Status         string `json:"status"`
	Notes          string `json:"notes"`
	ReturnedReason string `json:"returned_reason"`
	Override       bool   `json:"override"`
}

// ChequeListQuery holds the cheque list filters
type ChequeListQuery struct {
	Status     string
	StartDate  *time.Time
	EndDate    *time.Time
	CustomerID uint
	Search     string
	Page       int
	Limit      int
}

// ChequeList is one page of cheques
type ChequeList struct {
	Cheques    []models.ChequeResponse `json:"cheques"`
	Pagination models.Pagination       `json:"pagination"`
}

type ChequeService struct {
	repos    *repository.Repositories
	store    storage.Storage
	images   *ImageService
	notifier *NotificationService
	exporter *ExportService
	recorder *changeRecorder
	now      func() time.Time
}

func NewChequeService(
	repos *repository.Repositories,
	store storage.Storage,
	images *ImageService,
	notifier *NotificationService,
	exporter *ExportService,
	recorder *changeRecorder,
) *ChequeService {
	return &ChequeService{
		repos:    repos,
		store:    store,
		images:   images,
		notifier: notifier,
		exporter: exporter,
		recorder: recorder,
		now:      time.Now,
	}
}

func (s *ChequeService) FindByID(ctx context.Context, id uint) (*models.Cheque, error) {
	cheque, err := s.repos.Cheque.FindByID(ctx, id)
	return cheque, translateErr("cheque", err)
}

func validateCheque(in *ChequeInput, image *FileUpload) error {
	if strings.TrimSpace(in.ChequeNumber) == "" {
		return invalid("cheque_number", "cheque.number_required", "cheque number is required")
	}
	if !in.Amount.IsPositive() {
		return invalid("amount", "cheque.amount_invalid", "cheque amount must be greater than zero")
	}
	if in.ChequeDate == nil || in.ChequeDate.IsZero() {
		return invalid("cheque_date", "cheque.date_required", "cheque date is required")
	}
	if image == nil || len(image.Data) == 0 {
		return invalid("image", "cheque.image_required", "a scan of the cheque is required")
	}
	if !storage.IsValidContentType(image.ContentType) {
		return invalid("image", "cheque.image_type_invalid", "image must be a jpeg, png, webp or pdf file")
	}
	if int64(len(image.Data)) > storage.MaxFileSize() {
		return invalid("image", "cheque.image_too_large", "image must not exceed 10MB")
	}
	return nil
}

// CreateCustomerCheque registers a standalone cheque with its scan. The scan
// and its thumbnail are removed again if the cheque cannot be saved.
func (s *ChequeService) CreateCustomerCheque(ctx context.Context, actor Actor, customerID uint, in ChequeInput, image *FileUpload) (*models.Cheque, error) {
	if err := validateCheque(&in, image); err != nil {
		return nil, err
	}

	customer, err := s.repos.Customer.FindByID(ctx, customerID)
	if err != nil {
		return nil, translateErr("customer", err)
	}
	if in.PolicyID != nil {
		policy, err := s.repos.Policy.FindByID(ctx, *in.PolicyID)
		if err != nil {
			return nil, translateErr("policy", err)
		}
		if policy.CustomerID != customer.ID {
			return nil, invalid("policy_id", "cheque.policy_mismatch", "policy does not belong to this customer")
		}
	}

	imagePath, err := s.store.UploadFromBytes(ctx, image.Data, image.Filename, image.ContentType, "cheques")
	if err != nil {
		return nil, fmt.Errorf("failed to store cheque image: %w", err)
	}
	stored := []string{imagePath}
	thumbPath := s.storeThumbnail(ctx, image)
	if thumbPath != "" {
		stored = append(stored, thumbPath)
	}

	now := s.now()
	cheque := &models.Cheque{
		ChequeNumber:    strings.TrimSpace(in.ChequeNumber),
		Amount:          in.Amount,
		ChequeDate:      in.ChequeDate.Time,
		ImagePath:       &imagePath,
		Status:          models.ChequeStatusPending,
		CustomerID:      &customer.ID,
		PolicyID:        in.PolicyID,
		StatusChangedAt: &now,
		CreatedByID:     actor.createdBy(),
	}
	if thumbPath != "" {
		cheque.ThumbnailPath = &thumbPath
	}
	if bank := strings.TrimSpace(in.BankName); bank != "" {
		cheque.BankName = &bank
	}
	if notes := strings.TrimSpace(in.Notes); notes != "" {
		cheque.Notes = &notes
	}

	if err := s.repos.Cheque.Create(ctx, cheque); err != nil {
		s.removeFiles(ctx, stored...)
		return nil, fmt.Errorf("failed to create cheque: %w", err)
	}
	cheque.Customer = customer

	event := events.NewEvent(events.ChequeCreated, cheque.ID, cheque.ToResponse())
	s.recorder.record(ctx, actor, models.AuditActionCreate, "cheque", cheque.ID,
		fmt.Sprintf("Cheque %s for %s", cheque.ChequeNumber, cheque.Amount.StringFixed(2)), &event)

	return cheque, nil
}

// storeThumbnail stores a thumbnail of image scans. Failures only cost the
// thumbnail, the original is always kept.
func (s *ChequeService) storeThumbnail(ctx context.Context, image *FileUpload) string {
	if s.images == nil || !storage.IsImageContentType(image.ContentType) {
		return ""
	}
	thumb, contentType, err := s.images.Thumbnail(image.Data)
	if err != nil {
		logger.Warn("failed to create cheque thumbnail", "filename", image.Filename, "error", err)
		return ""
	}
	path, err := s.store.UploadFromBytes(ctx, thumb, "thumb_"+image.Filename, contentType, "cheques/thumbnails")
	if err != nil {
		logger.Warn("failed to store cheque thumbnail", "filename", image.Filename, "error", err)
		return ""
	}
	return path
}

func (s *ChequeService) removeFiles(ctx context.Context, paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := s.store.Delete(ctx, p); err != nil {
			logger.Warn("failed to remove stored file", "path", p, "error", err)
		}
	}
}

// clampPage applies the default and maximum page size
func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultChequePageSize
	}
	if limit > MaxChequePageSize {
		limit = MaxChequePageSize
	}
	return page, limit
}

func (s *ChequeService) repoQuery(q ChequeListQuery) (*repository.ChequeQuery, error) {
	status := ""
	if q.Status != "" && q.Status != "all" {
		status = models.NormalizeChequeStatus(q.Status)
		if !models.IsValidChequeStatus(status) {
			return nil, invalid("status", "cheque.status_invalid", "unknown cheque status")
		}
	}

	list := repository.NewListQuery()
	list.StartDate = q.StartDate
	list.EndDate = q.EndDate
	list.Search = q.Search
	return &repository.ChequeQuery{ListQuery: list, Status: status, CustomerID: q.CustomerID}, nil
}

// List returns one page of cheques. Limit defaults to 20 and is capped at 100.
func (s *ChequeService) List(ctx context.Context, q ChequeListQuery) (*ChequeList, error) {
	query, err := s.repoQuery(q)
	if err != nil {
		return nil, err
	}
	query.Page, query.PerPage = clampPage(q.Page, q.Limit)

	cheques, total, err := s.repos.Cheque.List(ctx, query)
	if err != nil {
		return nil, err
	}

	result := &ChequeList{
		Cheques:    make([]models.ChequeResponse, 0, len(cheques)),
		Pagination: models.NewPagination(query.Page, query.PerPage, total),
	}
	for i := range cheques {
		result.Cheques = append(result.Cheques, cheques[i].ToResponse())
	}
	return result, nil
}

// UpdateStatus moves a cheque to a new status, syncs the linked payment and
// recomputes the policy's paid amount. Returned cheques need a reason and
// notify the office and the customer.
func (s *ChequeService) UpdateStatus(ctx context.Context, actor Actor, chequeID uint, in ChequeStatusInput) (*models.Cheque, error) {
	status := models.NormalizeChequeStatus(in.Status)
	if !models.IsValidChequeStatus(status) {
		return nil, invalid("status", "cheque.status_invalid", "unknown cheque status")
	}
	reason := strings.TrimSpace(in.ReturnedReason)
	if status == models.ChequeStatusReturned && reason == "" {
		return nil, invalid("returned_reason", "cheque.returned_reason_required", "a reason is required for returned cheques")
	}
	if in.Override && !actor.IsAdmin() {
		return nil, fmt.Errorf("status override requires an admin: %w", ErrForbidden)
	}

	var cheque *models.Cheque
	var previous string
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		cheque, err = tx.Cheque.FindByID(ctx, chequeID)
		if err != nil {
			return translateErr("cheque", err)
		}
		previous = cheque.Status
		if status == previous {
			return s.updateNotes(ctx, tx, cheque, in.Notes, reason)
		}

		machine := statemachine.NewChequeFSM(cheque)
		if in.Override {
			err = machine.Override(status)
		} else {
			err = machine.TransitionTo(ctx, status)
		}
		if err != nil {
			return stateError(err)
		}

		now := s.now()
		cheque.StatusChangedAt = &now
		if status == models.ChequeStatusReturned {
			cheque.ReturnedReason = &reason
		} else {
			cheque.ReturnedReason = nil
		}
		if notes := strings.TrimSpace(in.Notes); notes != "" {
			cheque.Notes = &notes
		}
		if err := tx.Cheque.Update(ctx, cheque); err != nil {
			return fmt.Errorf("failed to update cheque: %w", err)
		}

		return syncChequePayment(ctx, tx, cheque)
	})
	if err != nil {
		return nil, err
	}

	if previous == cheque.Status {
		s.recorder.record(ctx, actor, models.AuditActionUpdate, "cheque", cheque.ID,
			fmt.Sprintf("Cheque %s notes updated", cheque.ChequeNumber), nil)
		return cheque, nil
	}

	logger.Info("cheque status changed", "cheque_id", cheque.ID, "from", previous, "to", cheque.Status, "override", in.Override)

	event := events.NewEvent(events.ChequeStatusChanged, cheque.ID, map[string]interface{}{
		"from":     previous,
		"to":       cheque.Status,
		"override": in.Override,
	})
	s.recorder.record(ctx, actor, models.AuditActionStatus, "cheque", cheque.ID,
		fmt.Sprintf("Cheque %s: %s -> %s", cheque.ChequeNumber, previous, cheque.Status), &event)

	if cheque.Status == models.ChequeStatusReturned {
		s.recorder.publish(events.NewEvent(events.ChequeReturned, cheque.ID, cheque.ToResponse()))
		if s.notifier != nil {
			returned := *cheque
			s.recorder.async(func(ctx context.Context) error {
				return s.notifier.NotifyChequeReturned(ctx, &returned, returned.Customer)
			})
		}
	}

	return cheque, nil
}

// syncChequePayment copies the cheque status onto the payment it backs and
// recomputes that payment's policy
func syncChequePayment(ctx context.Context, tx *repository.Repositories, cheque *models.Cheque) error {
	payment, err := tx.Payment.FindByCheque(ctx, cheque.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := tx.Payment.UpdateChequeStatus(ctx, payment.ID, cheque.Status); err != nil {
		return fmt.Errorf("failed to sync payment cheque status: %w", err)
	}
	if payment.PolicyID == nil {
		return nil
	}

	policy, err := tx.Policy.FindByIDForUpdate(ctx, *payment.PolicyID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return syncPaidAmount(ctx, tx, policy)
}

// Delete removes a cheque and its scans. Payments that referenced it keep
// their own cheque fields.
func (s *ChequeService) Delete(ctx context.Context, actor Actor, chequeID uint) error {
	var cheque *models.Cheque
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		cheque, err = tx.Cheque.FindByID(ctx, chequeID)
		if err != nil {
			return translateErr("cheque", err)
		}
		if err := tx.Payment.UnlinkCheque(ctx, cheque.ID); err != nil {
			return fmt.Errorf("failed to unlink payments: %w", err)
		}
		return tx.Cheque.Delete(ctx, cheque.ID)
	})
	if err != nil {
		return err
	}

	s.removeFiles(ctx, getStringValue(cheque.ImagePath), getStringValue(cheque.ThumbnailPath))
	s.recorder.record(ctx, actor, models.AuditActionDelete, "cheque", cheque.ID,
		fmt.Sprintf("Deleted cheque %s", cheque.ChequeNumber), nil)
	return nil
}

// updateNotes saves a status request that keeps the current status. Notes
// and a returned cheque's reason may change; the status timestamp does not.
func (s *ChequeService) updateNotes(ctx context.Context, tx *repository.Repositories, cheque *models.Cheque, notes, reason string) error {
	if notes = strings.TrimSpace(notes); notes != "" {
		cheque.Notes = &notes
	}
	if cheque.Status == models.ChequeStatusReturned && reason != "" {
		cheque.ReturnedReason = &reason
	}
	if err := tx.Cheque.Update(ctx, cheque); err != nil {
		return fmt.Errorf("failed to update cheque: %w", err)
	}
	return nil
}

// GetImage opens the stored scan, or its thumbnail, of a cheque
func (s *ChequeService) GetImage(ctx context.Context, chequeID uint, thumbnail bool) (io.ReadCloser, string, error) {
	cheque, err := s.FindByID(ctx, chequeID)
	if err != nil {
		return nil, "", err
	}

	path := getStringValue(cheque.ImagePath)
	if thumbnail && cheque.ThumbnailPath != nil {
		path = *cheque.ThumbnailPath
	}
	if path == "" {
		return nil, "", &NotFoundError{Entity: "cheque image", MessageKey: "cheque.image_not_found"}
	}

	r, err := s.store.Download(ctx, path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open cheque image: %w", err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return r, contentType, nil
}

// SendDueChequeReminders emails a digest of pending cheques whose date has
// arrived. Each cheque is included in one digest only.
func (s *ChequeService) SendDueChequeReminders(ctx context.Context) (int, error) {
	now := s.now()
	cheques, err := s.repos.Cheque.FindDueUnreminded(ctx, now)
	if err != nil {
		return 0, err
	}
	if len(cheques) == 0 {
		return 0, nil
	}

	if s.notifier != nil {
		if err := s.notifier.SendChequeReminderDigest(ctx, cheques); err != nil {
			return 0, fmt.Errorf("failed to send cheque reminders: %w", err)
		}
	}

	ids := make([]uint, len(cheques))
	for i := range cheques {
		ids[i] = cheques[i].ID
	}
	if err := s.repos.Cheque.MarkReminderSent(ctx, ids, now); err != nil {
		return 0, err
	}

	logger.Info("cheque reminders sent", "count", len(cheques))
	return len(cheques), nil
}

// Export renders every cheque matching the filters
func (s *ChequeService) Export(ctx context.Context, format string, q ChequeListQuery) (*ExportFile, error) {
	query, err := s.repoQuery(q)
	if err != nil {
		return nil, err
	}
	query.PerPage = 0

	cheques, _, err := s.repos.Cheque.List(ctx, query)
	if err != nil {
		return nil, err
	}

	table := Table{
		Title:   "Cheques",
		Name:    "cheques",
		Headers: []string{"Number", "Customer", "Bank", "Date", "Amount", "Status", "Returned reason"},
	}
	amounts := make([]decimal.Decimal, 0, len(cheques))
	for _, c := range cheques {
		customer := ""
		if c.Customer != nil {
			customer = c.Customer.FullName
		}
		table.Rows = append(table.Rows, []string{
			c.ChequeNumber,
			customer,
			getStringValue(c.BankName),
			c.ChequeDate.Format(models.DateLayout),
			c.Amount.StringFixed(2),
			c.Status,
			getStringValue(c.ReturnedReason),
		})
		amounts = append(amounts, c.Amount)
	}
	table.Footer = []string{"Total", "", "", "", models.SumAmounts(amounts...).StringFixed(2), "", ""}

	return s.exporter.Export(format, table)
}
