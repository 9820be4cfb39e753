package farmapi

import (
	"context"
	"net/http"
	"net/url"
)

// API paths, relative to the base URL.
const (
	pathRegister   = "auth/register/"
	pathLogin      = "auth/login/"
	pathRefresh    = "auth/token/refresh/"
	pathParcels    = "parcels/"
	pathPersonnel  = "personnel/"
	pathEquipment  = "equipment/"
	pathInputs     = "inputs/"
	pathOperations = "operations/"
)

func parcelPath(id ID) string {
	return pathParcels + url.PathEscape(string(id)) + "/"
}

// Register creates an account. It is the only call made without any token.
func (c *Client) Register(ctx context.Context, reg Registration) (*User, error) {
	var user User
	if err := c.do(ctx, nil, request{
		method: http.MethodPost,
		path:   pathRegister,
		body:   reg,
		out:    &user,
		public: true,
	}); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, creds Credentials) (Tokens, error) {
	var tokens Tokens
	err := c.do(ctx, nil, request{
		method: http.MethodPost,
		path:   pathLogin,
		body:   creds,
		out:    &tokens,
		public: true,
	})
	return tokens, err
}

// RefreshTokens exchanges a refresh token for a new pair. The returned refresh token
// is empty when the API does not rotate it.
func (c *Client) RefreshTokens(ctx context.Context, refresh string) (Tokens, error) {
	var tokens Tokens
	err := c.do(ctx, nil, request{
		method: http.MethodPost,
		path:   pathRefresh,
		body:   map[string]string{"refresh": refresh},
		out:    &tokens,
		public: true,
	})
	return tokens, err
}

// ListParcels returns every parcel visible to the session.
func (c *Client) ListParcels(ctx context.Context, sess *Session) ([]Parcel, error) {
	return listAll[Parcel](ctx, c, sess, pathParcels)
}

// GetParcel returns one parcel.
func (c *Client) GetParcel(ctx context.Context, sess *Session, id ID) (*Parcel, error) {
	var parcel Parcel
	if err := c.do(ctx, sess, request{method: http.MethodGet, path: parcelPath(id), out: &parcel}); err != nil {
		return nil, err
	}
	return &parcel, nil
}

// CreateParcel validates in locally and creates the parcel.
func (c *Client) CreateParcel(ctx context.Context, sess *Session, in ParcelInput) (*Parcel, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var parcel Parcel
	if err := c.do(ctx, sess, request{method: http.MethodPost, path: pathParcels, body: in, out: &parcel}); err != nil {
		return nil, err
	}
	return &parcel, nil
}

// UpdateParcel validates in locally and replaces the parcel.
func (c *Client) UpdateParcel(ctx context.Context, sess *Session, id ID, in ParcelInput) (*Parcel, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var parcel Parcel
	if err := c.do(ctx, sess, request{method: http.MethodPut, path: parcelPath(id), body: in, out: &parcel}); err != nil {
		return nil, err
	}
	return &parcel, nil
}

// DeleteParcel removes the parcel.
func (c *Client) DeleteParcel(ctx context.Context, sess *Session, id ID) error {
	return c.do(ctx, sess, request{method: http.MethodDelete, path: parcelPath(id)})
}

// ListPersonnel returns all personnel.
func (c *Client) ListPersonnel(ctx context.Context, sess *Session) ([]Personnel, error) {
	return listAll[Personnel](ctx, c, sess, pathPersonnel)
}

// ListEquipment returns all equipment.
func (c *Client) ListEquipment(ctx context.Context, sess *Session) ([]Equipment, error) {
	return listAll[Equipment](ctx, c, sess, pathEquipment)
}

// ListInputs returns all inputs with their stock levels.
func (c *Client) ListInputs(ctx context.Context, sess *Session) ([]Input, error) {
	return listAll[Input](ctx, c, sess, pathInputs)
}

// ListOperations returns all scheduled operations.
func (c *Client) ListOperations(ctx context.Context, sess *Session) ([]Operation, error) {
	return listAll[Operation](ctx, c, sess, pathOperations)
}
