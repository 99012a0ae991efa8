// Package address manages the signed-in user's saved addresses.
package address

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"storefront/internal/client/remote"
	"storefront/internal/domain/address"
	xerrors "storefront/internal/pkg/errors"
)

// Doer is satisfied by *remote.Client.
type Doer interface {
	Do(ctx context.Context, method, path string, body, out any, opts ...remote.RequestOption) error
}

type Service struct {
	api Doer
}

func NewService(api Doer) *Service {
	return &Service{api: api}
}

func (s *Service) List(ctx context.Context) ([]address.Address, error) {
	var resp address.ListResponse
	if err := s.api.Do(ctx, http.MethodGet, "/addresses", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Addresses == nil {
		return []address.Address{}, nil
	}
	return resp.Addresses, nil
}

func (s *Service) Get(ctx context.Context, id string) (*address.Address, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	return s.one(ctx, http.MethodGet, "/addresses/"+url.PathEscape(id), nil)
}

// GetDefault returns the default address of type t.
func (s *Service) GetDefault(ctx context.Context, t address.Type) (*address.Address, error) {
	if !t.Valid() {
		return nil, xerrors.New(xerrors.KindValidationFailure, xerrors.CodeInvalidAddress, "address type must be shipping or billing")
	}
	return s.one(ctx, http.MethodGet, "/addresses/default/"+string(t), nil)
}

func (s *Service) Create(ctx context.Context, req address.Request) (*address.Address, error) {
	if err := Validate(&req); err != nil {
		return nil, err
	}
	return s.one(ctx, http.MethodPost, "/addresses", req)
}

func (s *Service) Update(ctx context.Context, id string, req address.Request) (*address.Address, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	if err := Validate(&req); err != nil {
		return nil, err
	}
	return s.one(ctx, http.MethodPut, "/addresses/"+url.PathEscape(id), req)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	return s.api.Do(ctx, http.MethodDelete, "/addresses/"+url.PathEscape(id), nil, nil)
}

// SetDefault makes id the default for its type and returns the updated address.
func (s *Service) SetDefault(ctx context.Context, id string) (*address.Address, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	return s.one(ctx, http.MethodPut, "/addresses/"+url.PathEscape(id)+"/default", nil)
}

func (s *Service) one(ctx context.Context, method, path string, body any) (*address.Address, error) {
	var resp address.ItemResponse
	if err := s.api.Do(ctx, method, path, body, &resp); err != nil {
		return nil, err
	}
	if resp.Address == nil {
		return nil, xerrors.New(xerrors.KindRejected, xerrors.CodeInternal, "response carried no address")
	}
	return resp.Address, nil
}

// Validate checks req locally so malformed addresses never reach the network.
// An empty address type defaults to shipping.
func Validate(req *address.Request) error {
	if req.Mobile != "" && !address.ValidMobile(req.Mobile) {
		return xerrors.New(xerrors.KindValidationFailure, xerrors.CodeInvalidPhone, "invalid mobile number")
	}
	if err := req.Validate(); err != nil {
		return &xerrors.Error{
			Kind:    xerrors.KindValidationFailure,
			Code:    xerrors.CodeInvalidAddress,
			Message: err.Error(),
			Err:     err,
		}
	}
	return nil
}

func checkID(id string) error {
	if strings.TrimSpace(id) == "" {
		return xerrors.Validation("address id is required")
	}
	return nil
}
