package repository

import (
	"context"

	"github.com/sjperalta/insurance-api/internal/models"
	"gorm.io/gorm"
)

// CustomerRepository defines the interface for customer data access
type CustomerRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Customer, error)
	FindByIDWithDetails(ctx context.Context, id uint) (*models.Customer, error)
	Create(ctx context.Context, customer *models.Customer) error
	Update(ctx context.Context, customer *models.Customer) error
	List(ctx context.Context, query *ListQuery) ([]models.Customer, int64, error)
}

type customerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) FindByID(ctx context.Context, id uint) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).First(&customer, id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// FindByIDWithDetails loads vehicles, their policies with payments, and attachments
func (r *customerRepository) FindByIDWithDetails(ctx context.Context, id uint) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).
		Preload("Vehicles", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Vehicles.Policies", func(db *gorm.DB) *gorm.DB { return db.Order("start_date DESC") }).
		Preload("Vehicles.Policies.Agent").
		Preload("Vehicles.Policies.Payments", func(db *gorm.DB) *gorm.DB { return db.Order("payment_date ASC, id ASC") }).
		Preload("Attachments").
		First(&customer, id).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepository) Create(ctx context.Context, customer *models.Customer) error {
	return translate(r.db.WithContext(ctx).Create(customer).Error)
}

func (r *customerRepository) Update(ctx context.Context, customer *models.Customer) error {
	return translate(r.db.WithContext(ctx).Omit("Vehicles", "Attachments").Save(customer).Error)
}

func (r *customerRepository) List(ctx context.Context, query *ListQuery) ([]models.Customer, int64, error) {
	var customers []models.Customer
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Customer{})

	// Apply search
	if query.Search != "" {
		search := likeTerm(query.Search)
		db = db.Where("LOWER(full_name) LIKE ? OR LOWER(identity) LIKE ? OR LOWER(phone) LIKE ?",
			search, search, search)
	}

	if query.Filters["city"] != "" {
		db = db.Where("city = ?", query.Filters["city"])
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db = applyOrder(db, query, map[string]string{
		"full_name":  "full_name",
		"identity":   "identity",
		"created_at": "created_at",
	}, "created_at DESC")

	err := applyPage(db, query).Preload("Vehicles").Find(&customers).Error
	return customers, total, err
}

// VehicleRepository defines the interface for vehicle data access
type VehicleRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Vehicle, error)
	FindByCustomerAndPlate(ctx context.Context, customerID uint, plate string) (*models.Vehicle, error)
	ListByCustomer(ctx context.Context, customerID uint) ([]models.Vehicle, error)
	Create(ctx context.Context, vehicle *models.Vehicle) error
	Delete(ctx context.Context, id uint) error
}

type vehicleRepository struct {
	db *gorm.DB
}

// NewVehicleRepository creates a new vehicle repository
func NewVehicleRepository(db *gorm.DB) VehicleRepository {
	return &vehicleRepository{db: db}
}

func (r *vehicleRepository) FindByID(ctx context.Context, id uint) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	if err := r.db.WithContext(ctx).First(&vehicle, id).Error; err != nil {
		return nil, err
	}
	return &vehicle, nil
}

func (r *vehicleRepository) FindByCustomerAndPlate(ctx context.Context, customerID uint, plate string) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND LOWER(plate_number) = LOWER(?)", customerID, plate).
		First(&vehicle).Error
	if err != nil {
		return nil, err
	}
	return &vehicle, nil
}

func (r *vehicleRepository) ListByCustomer(ctx context.Context, customerID uint) ([]models.Vehicle, error) {
	var vehicles []models.Vehicle
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at ASC").
		Find(&vehicles).Error
	return vehicles, err
}

func (r *vehicleRepository) Create(ctx context.Context, vehicle *models.Vehicle) error {
	return translate(r.db.WithContext(ctx).Create(vehicle).Error)
}

// Delete soft-deletes the vehicle
func (r *vehicleRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Vehicle{}, id).Error
}

// AttachmentRepository defines the interface for customer attachments
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *models.Attachment) error
	FindByID(ctx context.Context, id uint) (*models.Attachment, error)
	ListByCustomer(ctx context.Context, customerID uint) ([]models.Attachment, error)
}

type attachmentRepository struct {
	db *gorm.DB
}

func NewAttachmentRepository(db *gorm.DB) AttachmentRepository {
	return &attachmentRepository{db: db}
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *models.Attachment) error {
	return r.db.WithContext(ctx).Create(attachment).Error
}

func (r *attachmentRepository) FindByID(ctx context.Context, id uint) (*models.Attachment, error) {
	var attachment models.Attachment
	if err := r.db.WithContext(ctx).First(&attachment, id).Error; err != nil {
		return nil, err
	}
	return &attachment, nil
}

func (r *attachmentRepository) ListByCustomer(ctx context.Context, customerID uint) ([]models.Attachment, error) {
	var attachments []models.Attachment
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&attachments).Error
	return attachments, err
}
