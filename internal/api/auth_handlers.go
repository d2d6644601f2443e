package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerAuthRoutes() {
	bearer := []map[string][]string{{"bearer": {}}}

	huma.Register(s.api, huma.Operation{
		OperationID: "signUp",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/signup",
		Summary:     "Sign up",
		Description: "Creates an account and signs the client in",
		Tags:        []string{"Authentication"},
		Security:    bearer,
		Middlewares: huma.Middlewares{s.rateLimitByIP},
	}, s.handleSignUp)

	huma.Register(s.api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/login",
		Summary:     "Sign in",
		Description: "Authenticates with email and password and signs the client in",
		Tags:        []string{"Authentication"},
		Security:    bearer,
		Middlewares: huma.Middlewares{s.rateLimitByIP},
	}, s.handleLogin)

	huma.Register(s.api, huma.Operation{
		OperationID: "logout",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/logout",
		Summary:     "Sign out",
		Description: "Signs the client out; its session restarts as a guest",
		Tags:        []string{"Authentication"},
		Security:    bearer,
	}, s.handleLogout)

	huma.Register(s.api, huma.Operation{
		OperationID: "setUsername",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/username",
		Summary:     "Choose username",
		Description: "Sets the signed-in user's username. A username can be chosen once.",
		Tags:        []string{"Authentication"},
		Security:    bearer,
	}, s.handleSetUsername)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteAccount",
		Method:      http.MethodDelete,
		Path:        "/api/v1/auth/account",
		Summary:     "Delete account",
		Description: "Deletes the signed-in account, its favorites and history, and signs out",
		Tags:        []string{"Authentication"},
		Security:    bearer,
	}, s.handleDeleteAccount)
}

// CredentialsRequest is the request body for sign-up and sign-in.
type CredentialsRequest struct {
	Email    string `json:"email" maxLength:"254" doc:"Email address"`
	Password string `json:"password" maxLength:"1024" doc:"Password"`
}

// CredentialsInput wraps the credentials request for Huma.
type CredentialsInput struct {
	Body CredentialsRequest
}

// UsernameRequest is the request body for choosing a username.
type UsernameRequest struct {
	Username string `json:"username" maxLength:"100" doc:"Username, at least 3 characters"`
}

// UsernameInput wraps the username request for Huma.
type UsernameInput struct {
	Body UsernameRequest
}

// IdentityOutput wraps a signed-in identity for Huma.
type IdentityOutput struct {
	Body IdentityResponse
}

func (s *Server) handleSignUp(ctx context.Context, input *CredentialsInput) (*IdentityOutput, error) {
	c, err := requireClient(ctx)
	if err != nil {
		return nil, err
	}
	identity, err := c.SignUp(ctx, input.Body.Email, input.Body.Password)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &IdentityOutput{Body: *newIdentityResponse(identity)}, nil
}

func (s *Server) handleLogin(ctx context.Context, input *CredentialsInput) (*IdentityOutput, error) {
	c, err := requireClient(ctx)
	if err != nil {
		return nil, err
	}
	identity, err := c.SignIn(ctx, input.Body.Email, input.Body.Password)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &IdentityOutput{Body: *newIdentityResponse(identity)}, nil
}

func (s *Server) handleLogout(ctx context.Context, _ *struct{}) (*struct{}, error) {
	c, err := requireClient(ctx)
	if err != nil {
		return nil, err
	}
	c.SignOut(ctx)
	return nil, nil
}

func (s *Server) handleSetUsername(ctx context.Context, input *UsernameInput) (*IdentityOutput, error) {
	c, err := requireClient(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.SetUsername(ctx, input.Body.Username); err != nil {
		return nil, toAPIError(err)
	}
	return &IdentityOutput{Body: *newIdentityResponse(c.Viewer())}, nil
}

func (s *Server) handleDeleteAccount(ctx context.Context, _ *struct{}) (*struct{}, error) {
	c, err := requireClient(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.DeleteAccount(ctx); err != nil {
		return nil, toAPIError(err)
	}
	return nil, nil
}
