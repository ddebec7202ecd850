package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/sjperalta/insurance-api/internal/middleware"
	"github.com/sjperalta/insurance-api/internal/models"
	"github.com/sjperalta/insurance-api/internal/repository"
	"github.com/sjperalta/insurance-api/internal/services"
	"github.com/sjperalta/insurance-api/internal/storage"
	"github.com/sjperalta/insurance-api/pkg/logger"
	"gorm.io/gorm"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	Health    *HealthHandler
	Auth      *AuthHandler
	User      *UserHandler
	Customer  *CustomerHandler
	Policy    *PolicyHandler
	Payment   *PaymentHandler
	Cheque    *ChequeHandler
	Agent     *AgentHandler
	Expense   *ExpenseHandler
	Dashboard *DashboardHandler
	Audit     *AuditHandler
	Job       *JobHandler
}

// NewHandlers creates all handlers with their dependencies
func NewHandlers(svcs *services.Services) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(),
		Auth:      NewAuthHandler(svcs.Auth),
		User:      NewUserHandler(svcs.User),
		Customer:  NewCustomerHandler(svcs.Customer),
		Policy:    NewPolicyHandler(svcs.Policy),
		Payment:   NewPaymentHandler(svcs.Payment, svcs.Report),
		Cheque:    NewChequeHandler(svcs.Cheque),
		Agent:     NewAgentHandler(svcs.Agent),
		Expense:   NewExpenseHandler(svcs.Expense),
		Dashboard: NewDashboardHandler(svcs.Dashboard),
		Audit:     NewAuditHandler(svcs.Audit),
		Job:       NewJobHandler(svcs.Job),
	}
}

// errorBody is the error contract every endpoint answers with
type errorBody struct {
	Message    string `json:"message"`
	MessageKey string `json:"messageKey"`
	Field      string `json:"field,omitempty"`
}

// respondError maps a service error onto its HTTP status and renders it
func respondError(c *gin.Context, err error) {
	var (
		validation *services.ValidationError
		notFound   *services.NotFoundError
		dup        *services.DuplicateError
	)

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusUnprocessableEntity, errorBody{Message: validation.Message, MessageKey: validation.MessageKey, Field: validation.Field})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, errorBody{Message: notFound.Error(), MessageKey: notFound.MessageKey})
	case errors.Is(err, services.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, errorBody{Message: "record not found", MessageKey: "record.not_found"})
	case errors.As(err, &dup):
		c.JSON(http.StatusConflict, errorBody{Message: dup.Error(), MessageKey: dup.MessageKey})
	case errors.Is(err, repository.ErrDuplicateKey):
		c.JSON(http.StatusConflict, errorBody{Message: "record already exists", MessageKey: "record.duplicate"})
	case errors.Is(err, services.ErrInvalidState):
		c.JSON(http.StatusConflict, errorBody{Message: err.Error(), MessageKey: "state.invalid"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, errorBody{Message: "you are not allowed to perform this action", MessageKey: "auth.forbidden"})
	case errors.Is(err, services.ErrAccountInactive):
		c.JSON(http.StatusUnauthorized, errorBody{Message: "account is inactive", MessageKey: "auth.account_inactive"})
	case errors.Is(err, services.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, errorBody{Message: "invalid or expired token", MessageKey: "auth.token_invalid"})
	case errors.Is(err, services.ErrInvalidToken), errors.Is(err, services.ErrTokenExpired):
		c.JSON(http.StatusUnauthorized, errorBody{Message: err.Error(), MessageKey: "auth.invalid_token"})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, errorBody{Message: "invalid credentials", MessageKey: "auth.invalid_credentials"})
	case errors.Is(err, services.ErrInvalidPassword):
		c.JSON(http.StatusUnauthorized, errorBody{Message: "current password is incorrect", MessageKey: "auth.invalid_password"})
	default:
		logger.Error("request failed", "path", c.FullPath(), "error", err)
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
		c.JSON(http.StatusInternalServerError, errorBody{Message: "internal server error", MessageKey: "server.error"})
	}
}

// badRequest answers a body or parameter that could not be parsed at all
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorBody{Message: err.Error(), MessageKey: "request.malformed"})
}

// actorFrom builds the audit actor of the authenticated request
func actorFrom(c *gin.Context) services.Actor {
	return services.Actor{
		UserID:    middleware.GetUserID(c),
		Role:      middleware.GetUserRole(c),
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// paramID reads a numeric path parameter. A malformed id answers 404, the
// same as an id that does not exist.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		entity := strings.TrimSuffix(name, "_id")
		c.JSON(http.StatusNotFound, errorBody{Message: entity + " not found", MessageKey: entity + ".not_found"})
		return 0, false
	}
	return uint(id), true
}

// listQuery reads the common page, per_page, search and sort parameters.
// sort has the form field-direction.
func listQuery(c *gin.Context) *repository.ListQuery {
	query := repository.NewListQuery()
	if page, err := strconv.Atoi(c.Query("page")); err == nil && page > 0 {
		query.Page = page
	}
	if perPage, err := strconv.Atoi(c.Query("per_page")); err == nil && perPage > 0 {
		query.PerPage = min(perPage, 100)
	}
	query.Search = strings.TrimSpace(c.Query("search"))

	if sort := c.Query("sort"); sort != "" {
		parts := strings.SplitN(sort, "-", 2)
		query.SortBy = parts[0]
		if len(parts) > 1 {
			query.SortDir = parts[1]
		}
	}
	return query
}

// queryDate reads an optional calendar date query parameter
func queryDate(c *gin.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	t, err := models.ParseDate(raw)
	if err != nil {
		return nil, &services.ValidationError{Field: name, MessageKey: "request.date_invalid", Message: fmt.Sprintf("%s must be a date (YYYY-MM-DD)", name)}
	}
	return &t, nil
}

func queryUint(c *gin.Context, name string) uint {
	v, _ := strconv.ParseUint(c.Query(name), 10, 32)
	return uint(v)
}

func paginated(key string, items interface{}, query *repository.ListQuery, total int64) gin.H {
	return gin.H{
		key:          items,
		"pagination": models.NewPagination(query.Page, query.PerPage, total),
	}
}

// formFile reads an optional multipart file. A missing field is not an error.
func formFile(c *gin.Context, field string) (*services.FileUpload, error) {
	header, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return readUpload(header)
}

func readUpload(header *multipart.FileHeader) (*services.FileUpload, error) {
	if header.Size > storage.MaxFileSize() {
		return nil, &services.ValidationError{Field: "file", MessageKey: "upload.too_large", Message: "file must not exceed 10MB"}
	}

	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return &services.FileUpload{Filename: header.Filename, ContentType: contentType, Data: data}, nil
}

// sendExport streams a rendered export as a download. Print output is
// rendered inline so the browser can open its print dialog.
func sendExport(c *gin.Context, file *services.ExportFile) {
	disposition := "attachment"
	if strings.HasPrefix(file.ContentType, "text/html") {
		disposition = "inline"
	}
	c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// streamFile copies a stored object to the response
func streamFile(c *gin.Context, r io.ReadCloser, contentType, filename string) {
	defer r.Close()
	if filename != "" {
		c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
	}
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, r); err != nil {
		logger.Warn("failed to stream file", "path", c.FullPath(), "error", err)
	}
}
