package services

import (
	"context"
	"io"
	"testing"

	"github.com/sjperalta/insurance-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomerCreate_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svcs.Customer.Create(ctx, staffActor, CustomerInput{Identity: "1"})
	assert.Equal(t, "customer.name_required", validationKey(t, err))

	_, err = env.svcs.Customer.Create(ctx, staffActor, CustomerInput{FullName: "Rami", Identity: "1", Email: "not-an-email"})
	assert.Equal(t, "customer.email_invalid", validationKey(t, err))

	customer, err := env.svcs.Customer.Create(ctx, staffActor, CustomerInput{FullName: " Rami ", Identity: "1", Email: "Rami@Example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Rami", customer.FullName)
	require.NotNil(t, customer.Email)
	assert.Equal(t, "rami@example.com", *customer.Email)

	customers, total, err := env.svcs.Customer.List(ctx, repository.NewListQuery())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, customers, 1)
}

func TestAddVehicle_DuplicatePlate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer, vehicle := env.seedVehicle(t, "ab-123")
	assert.Equal(t, "AB-123", vehicle.PlateNumber)

	_, err := env.svcs.Customer.AddVehicle(ctx, staffActor, customer.ID, VehicleInput{PlateNumber: "Ab-123"}, nil)
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = env.svcs.Customer.AddVehicle(ctx, staffActor, customer.ID, VehicleInput{PlateNumber: "  "}, nil)
	assert.Equal(t, "vehicle.plate_required", validationKey(t, err))

	// the same plate on another customer is fine
	other, err := env.svcs.Customer.Create(ctx, staffActor, CustomerInput{FullName: "Other", Identity: "2"})
	require.NoError(t, err)
	_, err = env.svcs.Customer.AddVehicle(ctx, staffActor, other.ID, VehicleInput{PlateNumber: "AB-123"}, nil)
	assert.NoError(t, err)
}

func TestDeleteVehicle_RemovesPolicies(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer, vehicle := env.seedVehicle(t, "11-222-33")
	other, _ := env.seedVehicle(t, "44-555-66")

	policy, err := env.svcs.Policy.CreatePolicy(ctx, staffActor, customer.ID, vehicle.ID, policyInput(1000, cash(100)))
	require.NoError(t, err)

	err = env.svcs.Customer.DeleteVehicle(ctx, staffActor, other.ID, vehicle.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, env.svcs.Customer.DeleteVehicle(ctx, staffActor, customer.ID, vehicle.ID))
	_, err = env.svcs.Policy.FindByID(ctx, policy.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCustomerAttachments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer, _ := env.seedVehicle(t, "11-222-33")

	_, err := env.svcs.Customer.UploadAttachment(ctx, staffActor, customer.ID,
		&FileUpload{Filename: "notes.exe", ContentType: "application/x-msdownload", Data: []byte("MZ")})
	assert.Equal(t, "attachment.type_invalid", validationKey(t, err))

	attachment, err := env.svcs.Customer.UploadAttachment(ctx, staffActor, customer.ID,
		&FileUpload{Filename: "licence.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")})
	require.NoError(t, err)

	r, found, err := env.svcs.Customer.OpenAttachment(ctx, customer.ID, attachment.ID)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))
	assert.Equal(t, "licence.pdf", found.FileName)

	_, _, err = env.svcs.Customer.OpenAttachment(ctx, customer.ID+1, attachment.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
