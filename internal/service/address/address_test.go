package address

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/internal/domain/address"
	xerrors "storefront/internal/pkg/errors"
	"storefront/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() *address.Request {
	return &address.Request{
		FirstName:    "Asha",
		AddressLine1: "12 MG Road",
		City:         "Bengaluru",
		State:        "karnataka",
		Pincode:      "560001",
		Mobile:       "9876543210",
	}
}

func TestCreateAddressDefaults(t *testing.T) {
	ctx := context.Background()
	svc := NewAddressService(memory.NewAddressRepository(), nil)

	first, err := svc.CreateAddress(ctx, "u1", validRequest())
	require.NoError(t, err)
	assert.True(t, first.IsDefault, "first address of a type becomes default")
	assert.Equal(t, address.TypeShipping, first.AddressType)

	time.Sleep(time.Millisecond)
	second, err := svc.CreateAddress(ctx, "u1", validRequest())
	require.NoError(t, err)
	assert.False(t, second.IsDefault)

	_, err = svc.SetDefault(ctx, "u1", second.ID)
	require.NoError(t, err)

	got, err := svc.GetAddress(ctx, "u1", first.ID)
	require.NoError(t, err)
	assert.False(t, got.IsDefault)

	t.Run("deleting the default promotes another", func(t *testing.T) {
		require.NoError(t, svc.DeleteAddress(ctx, "u1", second.ID))
		got, err := svc.GetAddress(ctx, "u1", first.ID)
		require.NoError(t, err)
		assert.True(t, got.IsDefault)
	})
}

func TestAddressValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewAddressService(memory.NewAddressRepository(), nil)

	tests := []struct {
		name   string
		mutate func(r *address.Request)
	}{
		{"missing city", func(r *address.Request) { r.City = "" }},
		{"bad pincode", func(r *address.Request) { r.Pincode = "012345" }},
		{"unknown state", func(r *address.Request) { r.State = "Atlantis" }},
		{"bad mobile", func(r *address.Request) { r.Mobile = "12345" }},
		{"bad type", func(r *address.Request) { r.AddressType = "home" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)
			_, err := svc.CreateAddress(ctx, "u1", req)
			assert.True(t, errors.Is(err, xerrors.ErrInvalidInput), "got %v", err)
		})
	}
}

func TestAddressOwnership(t *testing.T) {
	ctx := context.Background()
	svc := NewAddressService(memory.NewAddressRepository(), nil)

	a, err := svc.CreateAddress(ctx, "u1", validRequest())
	require.NoError(t, err)

	_, err = svc.GetAddress(ctx, "u2", a.ID)
	assert.True(t, errors.Is(err, xerrors.ErrNotFound))

	_, err = svc.UpdateAddress(ctx, "u2", a.ID, validRequest())
	assert.True(t, errors.Is(err, xerrors.ErrNotFound))

	assert.True(t, errors.Is(svc.DeleteAddress(ctx, "u2", a.ID), xerrors.ErrNotFound))

	req := validRequest()
	req.City = "Mysuru"
	updated, err := svc.UpdateAddress(ctx, "u1", a.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "Mysuru", updated.City)
	assert.True(t, updated.IsDefault)
}
