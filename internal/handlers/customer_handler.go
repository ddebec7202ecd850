package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/insurance-api/internal/models"
	"github.com/sjperalta/insurance-api/internal/services"
)

type CustomerHandler struct {
	customerService *services.CustomerService
}

func NewCustomerHandler(customerService *services.CustomerService) *CustomerHandler {
	return &CustomerHandler{customerService: customerService}
}

// @Summary List Customers
// @Tags Customers
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param search query string false "Search by name, identity, phone or plate"
// @Param city query string false "Filter by city"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /customers [get]
func (h *CustomerHandler) Index(c *gin.Context) {
	query := listQuery(c)
	query.Filters["city"] = strings.TrimSpace(c.Query("city"))

	customers, total, err := h.customerService.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	if customers == nil {
		customers = []models.Customer{}
	}
	c.JSON(http.StatusOK, paginated("customers", customers, query, total))
}

// @Summary Get Customer
// @Description Customer with vehicles, policies, payments and attachments
// @Tags Customers
// @Produce json
// @Param customer_id path int true "Customer ID"
// @Success 200 {object} models.Customer
// @Failure 404 {object} errorBody
// @Security BearerAuth
// @Router /customers/{customer_id} [get]
func (h *CustomerHandler) Show(c *gin.Context) {
	id, ok := paramID(c, "customer_id")
	if !ok {
		return
	}
	customer, err := h.customerService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customer": customer})
}

// @Summary Create Customer
// @Tags Customers
// @Accept json
// @Produce json
// @Param request body services.CustomerInput true "Customer"
// @Success 201 {object} models.Customer
// @Failure 422 {object} errorBody
// @Security BearerAuth
// @Router /customers [post]
func (h *CustomerHandler) Create(c *gin.Context) {
	var in services.CustomerInput
	if !bindBody(c, "customer", &in) {
		return
	}
	customer, err := h.customerService.Create(c.Request.Context(), actorFrom(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"customer": customer, "messageKey": "customer.created"})
}

// @Summary Update Customer
// @Tags Customers
// @Accept json
// @Produce json
// @Param customer_id path int true "Customer ID"
// @Param request body services.CustomerInput true "Customer"
// @Success 200 {object} models.Customer
// @Security BearerAuth
// @Router /customers/{customer_id} [put]
func (h *CustomerHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "customer_id")
	if !ok {
		return
	}
	var in services.CustomerInput
	if !bindBody(c, "customer", &in) {
		return
	}
	customer, err := h.customerService.Update(c.Request.Context(), actorFrom(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customer": customer, "messageKey": "customer.updated"})
}

// @Summary Upload Attachment
// @Tags Customers
// @Accept multipart/form-data
// @Produce json
// @Param customer_id path int true "Customer ID"
// @Param file formData file true "Document (jpeg, png, webp or pdf)"
// @Success 201 {object} models.Attachment
// @Security BearerAuth
// @Router /customers/{customer_id}/attachments [post]
func (h *CustomerHandler) UploadAttachment(c *gin.Context) {
	id, ok := paramID(c, "customer_id")
	if !ok {
		return
	}
	file, err := formFile(c, "file")
	if err != nil {
		respondError(c, err)
		return
	}

	attachment, err := h.customerService.UploadAttachment(c.Request.Context(), actorFrom(c), id, file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"attachment": attachment})
}

// @Summary Download Attachment
// @Tags Customers
// @Produce octet-stream
// @Param customer_id path int true "Customer ID"
// @Param attachment_id path int true "Attachment ID"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /customers/{customer_id}/attachments/{attachment_id} [get]
func (h *CustomerHandler) DownloadAttachment(c *gin.Context) {
	customerID, ok := paramID(c, "customer_id")
	if !ok {
		return
	}
	attachmentID, ok := paramID(c, "attachment_id")
	if !ok {
		return
	}

	r, attachment, err := h.customerService.OpenAttachment(c.Request.Context(), customerID, attachmentID)
	if err != nil {
		respondError(c, err)
		return
	}
	streamFile(c, r, attachment.ContentType, attachment.FileName)
}

// @Summary Add Vehicle
// @Description Accepts JSON, or multipart with an optional vehicle image
// @Tags Vehicles
// @Accept json,multipart/form-data
// @Produce json
// @Param customer_id path int true "Customer ID"
// @Param request body services.VehicleInput true "Vehicle"
// @Success 201 {object} models.Vehicle
// @Failure 409 {object} errorBody
// @Security BearerAuth
// @Router /customers/{customer_id}/vehicles [post]
func (h *CustomerHandler) AddVehicle(c *gin.Context) {
	customerID, ok := paramID(c, "customer_id")
	if !ok {
		return
	}

	var (
		in    services.VehicleInput
		image *services.FileUpload
		err   error
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if in, err = vehicleForm(c); err != nil {
			respondError(c, err)
			return
		}
		if image, err = formFile(c, "image"); err != nil {
			respondError(c, err)
			return
		}
	} else if !bindBody(c, "vehicle", &in) {
		return
	}

	vehicle, err := h.customerService.AddVehicle(c.Request.Context(), actorFrom(c), customerID, in, image)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"vehicle": vehicle, "messageKey": "vehicle.created"})
}

// @Summary Delete Vehicle
// @Description Removes the vehicle and its policies
// @Tags Vehicles
// @Produce json
// @Param customer_id path int true "Customer ID"
// @Param vehicle_id path int true "Vehicle ID"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /customers/{customer_id}/vehicles/{vehicle_id} [delete]
func (h *CustomerHandler) DeleteVehicle(c *gin.Context) {
	customerID, ok := paramID(c, "customer_id")
	if !ok {
		return
	}
	vehicleID, ok := paramID(c, "vehicle_id")
	if !ok {
		return
	}
	if err := h.customerService.DeleteVehicle(c.Request.Context(), actorFrom(c), customerID, vehicleID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "vehicle deleted", "messageKey": "vehicle.deleted"})
}

func vehicleForm(c *gin.Context) (services.VehicleInput, error) {
	in := services.VehicleInput{
		PlateNumber:   c.PostForm("plate_number"),
		Model:         c.PostForm("model"),
		VehicleType:   c.PostForm("vehicle_type"),
		ChassisNumber: c.PostForm("chassis_number"),
		Ownership:     c.PostForm("ownership"),
		Color:         c.PostForm("color"),
	}
	if raw := strings.TrimSpace(c.PostForm("model_year")); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return in, &services.ValidationError{Field: "model_year", MessageKey: "vehicle.model_year_invalid", Message: "model year is not valid"}
		}
		in.ModelYear = &year
	}

	var err error
	if in.LicenseExpiry, err = formDate(c, "license_expiry"); err != nil {
		return in, err
	}
	if in.LastTestDate, err = formDate(c, "last_test_date"); err != nil {
		return in, err
	}
	return in, nil
}

// formDate reads an optional date field of a multipart form
func formDate(c *gin.Context, name string) (*models.Date, error) {
	raw := strings.TrimSpace(c.PostForm(name))
	if raw == "" {
		return nil, nil
	}
	t, err := models.ParseDate(raw)
	if err != nil {
		return nil, &services.ValidationError{Field: name, MessageKey: "request.date_invalid", Message: name + " must be a date (YYYY-MM-DD)"}
	}
	return &models.Date{Time: t}, nil
}
