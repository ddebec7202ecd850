package models

import (
	"time"

	"gorm.io/gorm"
)

// Customer represents an insured person
type Customer struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	FullName    string     `gorm:"size:150;not null;index" json:"full_name"`
	Identity    string     `gorm:"size:30;uniqueIndex;not null" json:"identity"`
	Phone       string     `gorm:"size:30;index" json:"phone"`
	Email       *string    `gorm:"size:150" json:"email"`
	City        *string    `gorm:"size:100" json:"city"`
	BirthDate   *time.Time `gorm:"type:date" json:"birth_date"`
	Notes       *string    `gorm:"type:text" json:"notes"`
	CreatedByID *uint      `gorm:"index" json:"created_by_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Associations
	Vehicles    []Vehicle    `gorm:"foreignKey:CustomerID" json:"vehicles,omitempty"`
	Attachments []Attachment `gorm:"foreignKey:CustomerID" json:"attachments,omitempty"`
}

// TableName specifies the table name for Customer
func (Customer) TableName() string {
	return "customers"
}

// Attachment is a file uploaded to a customer's record
type Attachment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CustomerID  uint      `gorm:"not null;index" json:"customer_id"`
	FileName    string    `gorm:"size:255;not null" json:"file_name"`
	StoragePath string    `gorm:"size:500;not null" json:"-"`
	ContentType string    `gorm:"size:100" json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for Attachment
func (Attachment) TableName() string {
	return "attachments"
}

// Vehicle represents an insured vehicle. Deleting a vehicle is a soft delete.
type Vehicle struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	CustomerID    uint           `gorm:"not null;index" json:"customer_id"`
	PlateNumber   string         `gorm:"size:20;not null;index" json:"plate_number"`
	Model         string         `gorm:"size:100" json:"model"`
	VehicleType   string         `gorm:"size:50" json:"vehicle_type"`
	ChassisNumber *string        `gorm:"size:50" json:"chassis_number"`
	Ownership     *string        `gorm:"size:50" json:"ownership"`
	Color         *string        `gorm:"size:30" json:"color"`
	ModelYear     *int           `json:"model_year"`
	LicenseExpiry *time.Time     `gorm:"type:date" json:"license_expiry"`
	LastTestDate  *time.Time     `gorm:"type:date" json:"last_test_date"`
	ImagePath     *string        `json:"-"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	// Associations
	Customer *Customer         `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Policies []InsurancePolicy `gorm:"foreignKey:VehicleID" json:"policies,omitempty"`
}

// TableName specifies the table name for Vehicle
func (Vehicle) TableName() string {
	return "vehicles"
}

// HasImage returns true if a vehicle photo was uploaded
func (v *Vehicle) HasImage() bool {
	return v.ImagePath != nil && *v.ImagePath != ""
}
