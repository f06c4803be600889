package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"evergreen/internal/core"
)

type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phone_number"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Address     string `json:"address"`
}

// Register creates a customer. The backend answers 201 on success.
func (c *Client) Register(ctx context.Context, in RegisterRequest) error {
	body, err := jsonBody(in)
	if err != nil {
		return fmt.Errorf("api register: encode: %w", err)
	}
	return c.do(ctx, request{
		op:     "register",
		method: http.MethodPost,
		path:   "auth/register/",
		body:   body,
		expect: []int{http.StatusCreated},
	}, nil)
}

// LoginResponse is the token pair plus the profile. The backend returns the
// profile flattened next to the tokens; a nested "user" object is also read.
type LoginResponse struct {
	Access  string
	Refresh string
	User    core.User
}

func (r *LoginResponse) UnmarshalJSON(b []byte) error {
	var flat struct {
		Access  string     `json:"access"`
		Refresh string     `json:"refresh"`
		Nested  *core.User `json:"user"`
		core.User
	}
	if err := json.Unmarshal(b, &flat); err != nil {
		return err
	}
	r.Access = flat.Access
	r.Refresh = flat.Refresh
	r.User = flat.User
	if flat.Nested != nil {
		r.User = *flat.Nested
	}
	return nil
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	body, err := jsonBody(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, fmt.Errorf("api login: encode: %w", err)
	}
	var out LoginResponse
	err = c.do(ctx, request{
		op:     "login",
		method: http.MethodPost,
		path:   "auth/login/customer/",
		body:   body,
		expect: []int{http.StatusOK},
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.Access == "" {
		return nil, fmt.Errorf("api login: response carried no access token")
	}
	return &out, nil
}

// Logout blacklists the refresh token on the backend.
func (c *Client) Logout(ctx context.Context, refresh string) error {
	body, err := jsonBody(map[string]string{"refresh": refresh})
	if err != nil {
		return fmt.Errorf("api logout: encode: %w", err)
	}
	return c.do(ctx, request{
		op:     "logout",
		method: http.MethodPost,
		path:   "auth/logout/",
		body:   body,
	}, nil)
}
