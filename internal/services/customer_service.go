package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sjperalta/insurance-api/internal/models"
	"github.com/sjperalta/insurance-api/internal/repository"
	"github.com/sjperalta/insurance-api/internal/storage"
	"github.com/sjperalta/insurance-api/pkg/logger"
	"gorm.io/gorm"
)

// CustomerInput is the body of a create or update customer request
type CustomerInput struct {
	FullName  string       `json:"full_name"`
	Identity  string       `json:"identity"`
	Phone     string       `json:"phone"`
	Email     string       `json:"email"`
	City      string       `json:"city"`
	BirthDate *models.Date `json:"birth_date"`
	Notes     string       `json:"notes"`
}

// VehicleInput is the body of an add-vehicle request
type VehicleInput struct {
	PlateNumber   string       `form:"plate_number" json:"plate_number"`
	Model         string       `form:"model" json:"model"`
	VehicleType   string       `form:"vehicle_type" json:"vehicle_type"`
	ChassisNumber string       `form:"chassis_number" json:"chassis_number"`
	Ownership     string       `form:"ownership" json:"ownership"`
	Color         string       `form:"color" json:"color"`
	ModelYear     *int         `form:"model_year" json:"model_year"`
	LicenseExpiry *models.Date `form:"license_expiry" json:"license_expiry"`
	LastTestDate  *models.Date `form:"last_test_date" json:"last_test_date"`
}

type CustomerService struct {
	repos    *repository.Repositories
	store    storage.Storage
	recorder *changeRecorder
}

func NewCustomerService(repos *repository.Repositories, store storage.Storage, recorder *changeRecorder) *CustomerService {
	return &CustomerService{repos: repos, store: store, recorder: recorder}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func optionalDate(d *models.Date) *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

func validateCustomer(in *CustomerInput) error {
	if strings.TrimSpace(in.FullName) == "" {
		return invalid("full_name", "customer.name_required", "customer name is required")
	}
	if strings.TrimSpace(in.Identity) == "" {
		return invalid("identity", "customer.identity_required", "identity number is required")
	}
	if email := strings.TrimSpace(in.Email); email != "" && !strings.Contains(email, "@") {
		return invalid("email", "customer.email_invalid", "email address is not valid")
	}
	return nil
}

func (in *CustomerInput) apply(c *models.Customer) {
	c.FullName = strings.TrimSpace(in.FullName)
	c.Identity = strings.TrimSpace(in.Identity)
	c.Phone = strings.TrimSpace(in.Phone)
	c.Email = optional(strings.ToLower(in.Email))
	c.City = optional(in.City)
	c.BirthDate = optionalDate(in.BirthDate)
	c.Notes = optional(in.Notes)
}

func (s *CustomerService) Create(ctx context.Context, actor Actor, in CustomerInput) (*models.Customer, error) {
	if err := validateCustomer(&in); err != nil {
		return nil, err
	}

	customer := &models.Customer{CreatedByID: actor.createdBy()}
	in.apply(customer)
	if err := s.repos.Customer.Create(ctx, customer); err != nil {
		return nil, translateErr("customer", err)
	}

	s.recorder.record(ctx, actor, models.AuditActionCreate, "customer", customer.ID,
		fmt.Sprintf("Customer %s (%s)", customer.FullName, customer.Identity), nil)
	return customer, nil
}

func (s *CustomerService) Update(ctx context.Context, actor Actor, id uint, in CustomerInput) (*models.Customer, error) {
	if err := validateCustomer(&in); err != nil {
		return nil, err
	}

	customer, err := s.repos.Customer.FindByID(ctx, id)
	if err != nil {
		return nil, translateErr("customer", err)
	}
	in.apply(customer)
	if err := s.repos.Customer.Update(ctx, customer); err != nil {
		return nil, translateErr("customer", err)
	}

	s.recorder.record(ctx, actor, models.AuditActionUpdate, "customer", customer.ID,
		fmt.Sprintf("Updated customer %s", customer.FullName), nil)
	return customer, nil
}

// Get returns a customer with vehicles, policies, payments and attachments
func (s *CustomerService) Get(ctx context.Context, id uint) (*models.Customer, error) {
	customer, err := s.repos.Customer.FindByIDWithDetails(ctx, id)
	return customer, translateErr("customer", err)
}

func (s *CustomerService) List(ctx context.Context, query *repository.ListQuery) ([]models.Customer, int64, error) {
	return s.repos.Customer.List(ctx, query)
}

// UploadAttachment stores a document on the customer's record
func (s *CustomerService) UploadAttachment(ctx context.Context, actor Actor, customerID uint, file *FileUpload) (*models.Attachment, error) {
	if file == nil || len(file.Data) == 0 {
		return nil, invalid("file", "attachment.file_required", "a file is required")
	}
	if !storage.IsValidContentType(file.ContentType) {
		return nil, invalid("file", "attachment.type_invalid", "file must be a jpeg, png, webp or pdf file")
	}
	if int64(len(file.Data)) > storage.MaxFileSize() {
		return nil, invalid("file", "attachment.too_large", "file must not exceed 10MB")
	}

	if _, err := s.repos.Customer.FindByID(ctx, customerID); err != nil {
		return nil, translateErr("customer", err)
	}

	path, err := s.store.UploadFromBytes(ctx, file.Data, file.Filename, file.ContentType, "attachments")
	if err != nil {
		return nil, fmt.Errorf("failed to store attachment: %w", err)
	}

	attachment := &models.Attachment{
		CustomerID:  customerID,
		FileName:    file.Filename,
		StoragePath: path,
		ContentType: file.ContentType,
		Size:        int64(len(file.Data)),
	}
	if err := s.repos.Attachment.Create(ctx, attachment); err != nil {
		if delErr := s.store.Delete(ctx, path); delErr != nil {
			logger.Warn("failed to remove orphaned attachment", "path", path, "error", delErr)
		}
		return nil, fmt.Errorf("failed to save attachment: %w", err)
	}

	s.recorder.record(ctx, actor, models.AuditActionCreate, "attachment", attachment.ID,
		fmt.Sprintf("Attachment %s on customer #%d", attachment.FileName, customerID), nil)
	return attachment, nil
}

// OpenAttachment streams a stored attachment of a customer
func (s *CustomerService) OpenAttachment(ctx context.Context, customerID, attachmentID uint) (io.ReadCloser, *models.Attachment, error) {
	attachment, err := s.repos.Attachment.FindByID(ctx, attachmentID)
	if err != nil {
		return nil, nil, translateErr("attachment", err)
	}
	if attachment.CustomerID != customerID {
		return nil, nil, &NotFoundError{Entity: "attachment", MessageKey: "attachment.not_found"}
	}

	r, err := s.store.Download(ctx, attachment.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open attachment: %w", err)
	}
	return r, attachment, nil
}

// AddVehicle registers a vehicle for a customer. Plates are unique per
// customer, compared case-insensitively.
func (s *CustomerService) AddVehicle(ctx context.Context, actor Actor, customerID uint, in VehicleInput, image *FileUpload) (*models.Vehicle, error) {
	plate := strings.ToUpper(strings.TrimSpace(in.PlateNumber))
	if plate == "" {
		return nil, invalid("plate_number", "vehicle.plate_required", "plate number is required")
	}
	if in.ModelYear != nil && (*in.ModelYear < 1900 || *in.ModelYear > time.Now().Year()+1) {
		return nil, invalid("model_year", "vehicle.model_year_invalid", "model year is not valid")
	}
	if image != nil && len(image.Data) > 0 {
		if !storage.IsImageContentType(image.ContentType) {
			return nil, invalid("image", "vehicle.image_type_invalid", "image must be a jpeg or png file")
		}
		if int64(len(image.Data)) > storage.MaxFileSize() {
			return nil, invalid("image", "vehicle.image_too_large", "image must not exceed 10MB")
		}
	}

	if _, err := s.repos.Customer.FindByID(ctx, customerID); err != nil {
		return nil, translateErr("customer", err)
	}
	_, err := s.repos.Vehicle.FindByCustomerAndPlate(ctx, customerID, plate)
	if err == nil {
		return nil, duplicate("vehicle")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	vehicle := &models.Vehicle{
		CustomerID:    customerID,
		PlateNumber:   plate,
		Model:         strings.TrimSpace(in.Model),
		VehicleType:   strings.TrimSpace(in.VehicleType),
		ChassisNumber: optional(in.ChassisNumber),
		Ownership:     optional(in.Ownership),
		Color:         optional(in.Color),
		ModelYear:     in.ModelYear,
		LicenseExpiry: optionalDate(in.LicenseExpiry),
		LastTestDate:  optionalDate(in.LastTestDate),
	}

	if image != nil && len(image.Data) > 0 {
		path, err := s.store.UploadFromBytes(ctx, image.Data, image.Filename, image.ContentType, "vehicles")
		if err != nil {
			return nil, fmt.Errorf("failed to store vehicle image: %w", err)
		}
		vehicle.ImagePath = &path
	}

	if err := s.repos.Vehicle.Create(ctx, vehicle); err != nil {
		if vehicle.ImagePath != nil {
			_ = s.store.Delete(ctx, *vehicle.ImagePath)
		}
		return nil, translateErr("vehicle", err)
	}

	s.recorder.record(ctx, actor, models.AuditActionCreate, "vehicle", vehicle.ID,
		fmt.Sprintf("Vehicle %s for customer #%d", vehicle.PlateNumber, customerID), nil)
	return vehicle, nil
}

// DeleteVehicle soft-deletes a vehicle together with its policies
func (s *CustomerService) DeleteVehicle(ctx context.Context, actor Actor, customerID, vehicleID uint) error {
	vehicle, err := s.repos.Vehicle.FindByID(ctx, vehicleID)
	if err != nil {
		return translateErr("vehicle", err)
	}
	if vehicle.CustomerID != customerID {
		return &NotFoundError{Entity: "vehicle", MessageKey: "vehicle.not_found"}
	}

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Policy.SoftDeleteByVehicle(ctx, vehicle.ID); err != nil {
			return fmt.Errorf("failed to delete vehicle policies: %w", err)
		}
		return tx.Vehicle.Delete(ctx, vehicle.ID)
	})
	if err != nil {
		return err
	}

	s.recorder.record(ctx, actor, models.AuditActionDelete, "vehicle", vehicle.ID,
		fmt.Sprintf("Deleted vehicle %s", vehicle.PlateNumber), nil)
	return nil
}
