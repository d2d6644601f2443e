package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/flashcardexchange/flashcards/internal/domain"
)

func (s *Server) registerClientRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "createClient",
		Method:      http.MethodPost,
		Path:        "/api/v1/clients",
		Summary:     "Open a client",
		Description: "Starts a signed-out client instance and returns the token that addresses it",
		Tags:        []string{"Clients"},
		Middlewares: huma.Middlewares{s.rateLimitByIP},
	}, s.handleCreateClient)

	huma.Register(s.api, huma.Operation{
		OperationID: "closeClient",
		Method:      http.MethodDelete,
		Path:        "/api/v1/clients/current",
		Summary:     "Close the client",
		Description: "Ends the client instance and releases its live queries",
		Tags:        []string{"Clients"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCloseClient)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCurrentClient",
		Method:      http.MethodGet,
		Path:        "/api/v1/me",
		Summary:     "Current client",
		Description: "Returns the client instance and who is signed in to it",
		Tags:        []string{"Clients"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetCurrentClient)
}

// IdentityResponse is a signed-in user.
type IdentityResponse struct {
	UserID   string `json:"user_id" doc:"User ID"`
	Email    string `json:"email" doc:"Email address"`
	Username string `json:"username,omitempty" doc:"Chosen username, empty until set"`
}

func newIdentityResponse(i *domain.Identity) *IdentityResponse {
	if i == nil {
		return nil
	}
	return &IdentityResponse{UserID: i.UserID, Email: i.Email, Username: i.Username}
}

// CreateClientResponse carries a new client's token.
type CreateClientResponse struct {
	ClientID  string    `json:"client_id" doc:"Client instance ID"`
	Token     string    `json:"token" doc:"PASETO bearer token"`
	ExpiresAt time.Time `json:"expires_at" doc:"Token expiry"`
}

// CreateClientOutput wraps the create client response for Huma.
type CreateClientOutput struct {
	Body CreateClientResponse
}

// CurrentClientResponse describes the addressed client.
type CurrentClientResponse struct {
	ClientID string            `json:"client_id" doc:"Client instance ID"`
	SignedIn bool              `json:"signed_in" doc:"Whether a user is signed in"`
	User     *IdentityResponse `json:"user,omitempty" doc:"Signed-in user"`
}

// CurrentClientOutput wraps the current client response for Huma.
type CurrentClientOutput struct {
	Body CurrentClientResponse
}

func (s *Server) handleCreateClient(_ context.Context, _ *struct{}) (*CreateClientOutput, error) {
	c, err := s.registry.Create()
	if err != nil {
		return nil, toAPIError(err)
	}

	token, err := s.tokens.Issue(c.ID())
	if err != nil {
		s.registry.Remove(c.ID())
		s.logger.Error("failed to issue client token", "error", err)
		return nil, toAPIError(err)
	}

	return &CreateClientOutput{Body: CreateClientResponse{
		ClientID:  c.ID(),
		Token:     token,
		ExpiresAt: time.Now().Add(s.tokens.TTL()),
	}}, nil
}

func (s *Server) handleCloseClient(ctx context.Context, _ *struct{}) (*struct{}, error) {
	c, err := requireClient(ctx)
	if err != nil {
		return nil, err
	}
	s.registry.Remove(c.ID())
	return nil, nil
}

func (s *Server) handleGetCurrentClient(ctx context.Context, _ *struct{}) (*CurrentClientOutput, error) {
	c, err := requireClient(ctx)
	if err != nil {
		return nil, err
	}
	viewer := c.Viewer()
	return &CurrentClientOutput{Body: CurrentClientResponse{
		ClientID: c.ID(),
		SignedIn: viewer != nil,
		User:     newIdentityResponse(viewer),
	}}, nil
}
