package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/flashcardexchange/flashcards/internal/domain"
)

func (s *Server) registerDeckRoutes() {
	bearer := []map[string][]string{{"bearer": {}}}
	register := func(op huma.Operation) huma.Operation {
		op.Tags = []string{"Decks"}
		op.Security = bearer
		return op
	}

	huma.Register(s.api, register(huma.Operation{
		OperationID: "createDeck",
		Method:      http.MethodPost,
		Path:        "/api/v1/decks",
		Summary:     "Create deck",
		Description: "Creates a private deck owned by the signed-in user",
	}), s.handleCreateDeck)

	huma.Register(s.api, register(huma.Operation{
		OperationID: "editDeck",
		Method:      http.MethodPatch,
		Path:        "/api/v1/decks/{id}",
		Summary:     "Edit deck",
		Description: "Replaces an owned deck's title, description and tags",
	}), s.handleEditDeck)

	huma.Register(s.api, register(huma.Operation{
		OperationID: "deleteDeck",
		Method:      http.MethodDelete,
		Path:        "/api/v1/decks/{id}",
		Summary:     "Delete deck",
		Description: "Deletes an owned deck with its cards and comments",
	}), s.handleDeleteDeck)

	huma.Register(s.api, register(huma.Operation{
		OperationID: "openDeck",
		Method:      http.MethodPost,
		Path:        "/api/v1/decks/{id}/open",
		Summary:     "Open deck",
		Description: "Shows a deck's cards and comments and records the visit",
	}), s.handleOpenDeck)

	huma.Register(s.api, register(huma.Operation{
		OperationID: "toggleLike",
		Method:      http.MethodPost,
		Path:        "/api/v1/decks/{id}/like",
		Summary:     "Like or unlike deck",
	}), s.handleToggleLike)

	huma.Register(s.api, register(huma.Operation{
		OperationID: "toggleFavorite",
		Method:      http.MethodPost,
		Path:        "/api/v1/decks/{id}/favorite",
		Summary:     "Save or unsave deck",
	}), s.handleToggleFavorite)

	huma.Register(s.api, register(huma.Operation{
		OperationID: "toggleVisibility",
		Method:      http.MethodPost,
		Path:        "/api/v1/decks/{id}/visibility",
		Summary:     "Make deck public or private",
	}), s.handleToggleVisibility)

	huma.Register(s.api, register(huma.Operation{
		OperationID: "addCard",
		Method:      http.MethodPost,
		Path:        "/api/v1/decks/{id}/cards",
		Summary:     "Add card",
	}), s.handleAddCard)

	huma.Register(s.api, register(huma.Operation{
		OperationID: "editCard",
		Method:      http.MethodPatch,
		Path:        "/api/v1/decks/{id}/cards/{cardId}",
		Summary:     "Edit card",
	}), s.handleEditCard)

	huma.Register(s.api, register(huma.Operation{
		OperationID: "deleteCard",
		Method:      http.MethodDelete,
		Path:        "/api/v1/decks/{id}/cards/{cardId}",
		Summary:     "Delete card",
	}), s.handleDeleteCard)

	huma.Register(s.api, register(huma.Operation{
		OperationID: "postComment",
		Method:      http.MethodPost,
		Path:        "/api/v1/decks/{id}/comments",
		Summary:     "Post comment",
		Description: "Posts or replaces the signed-in user's comment on a deck",
	}), s.handlePostComment)

	huma.Register(s.api, register(huma.Operation{
		OperationID: "deleteComment",
		Method:      http.MethodDelete,
		Path:        "/api/v1/decks/{id}/comments",
		Summary:     "Delete comment",
	}), s.handleDeleteComment)
}

// === DTOs ===

// DeckRequest is the request body for creating or editing a deck.
type DeckRequest struct {
	Title       string `json:"title" doc:"Deck title"`
	Description string `json:"description,omitempty" doc:"Deck description"`
	Tags        string `json:"tags,omitempty" doc:"Comma-separated tags"`
}

func (r DeckRequest) input() domain.DeckInput {
	return domain.DeckInput{Title: r.Title, Description: r.Description, Tags: r.Tags}
}

// CardRequest is the request body for adding or editing a card.
type CardRequest struct {
	Term       string `json:"term" doc:"Front of the card"`
	Definition string `json:"definition" doc:"Back of the card"`
}

func (r CardRequest) input() domain.CardInput {
	return domain.CardInput{Term: r.Term, Definition: r.Definition}
}

// CommentRequest is the request body for posting a comment.
type CommentRequest struct {
	Text string `json:"text" doc:"Comment text"`
}

// DeckPathInput addresses a deck.
type DeckPathInput struct {
	ID string `path:"id" doc:"Deck ID"`
}

// CardPathInput addresses a card.
type CardPathInput struct {
	ID     string `path:"id" doc:"Deck ID"`
	CardID string `path:"cardId" doc:"Card ID"`
}

// CreateDeckInput wraps the create deck request for Huma.
type CreateDeckInput struct {
	Body DeckRequest
}

// EditDeckInput wraps the edit deck request for Huma.
type EditDeckInput struct {
	ID   string `path:"id" doc:"Deck ID"`
	Body DeckRequest
}

// AddCardInput wraps the add card request for Huma.
type AddCardInput struct {
	ID   string `path:"id" doc:"Deck ID"`
	Body CardRequest
}

// EditCardInput wraps the edit card request for Huma.
type EditCardInput struct {
	ID     string `path:"id" doc:"Deck ID"`
	CardID string `path:"cardId" doc:"Card ID"`
	Body   CardRequest
}

// PostCommentInput wraps the post comment request for Huma.
type PostCommentInput struct {
	ID   string `path:"id" doc:"Deck ID"`
	Body CommentRequest
}

// CreatedResponse carries the id of a created document.
type CreatedResponse struct {
	ID string `json:"id" doc:"Created document ID"`
}

// CreatedOutput wraps a created response for Huma.
type CreatedOutput struct {
	Body CreatedResponse
}

// DeckResponse is a deck as the viewer sees it.
type DeckResponse struct {
	ID          string    `json:"id" doc:"Deck ID"`
	Title       string    `json:"title" doc:"Deck title"`
	Description string    `json:"description" doc:"Deck description"`
	Tags        []string  `json:"tags" doc:"Tags"`
	OwnerID     string    `json:"owner_id" doc:"Owner user ID"`
	IsPublic    bool      `json:"is_public" doc:"Visible to everyone"`
	LikeCount   int       `json:"like_count" doc:"Number of likes"`
	Liked       bool      `json:"liked" doc:"Whether the viewer likes the deck"`
	Favorited   bool      `json:"favorited" doc:"Whether the viewer saved the deck"`
	CreatedAt   time.Time `json:"created_at" doc:"Creation time"`
}

// DeckOutput wraps a deck response for Huma.
type DeckOutput struct {
	Body DeckResponse
}

// === Handlers ===

func (s *Server) handleCreateDeck(ctx context.Context, input *CreateDeckInput) (*CreatedOutput, error) {
	c, err := requireClient(ctx)
	if err != nil {
		return nil, err
	}
	deckID, err := c.CreateDeck(ctx, input.Body.input())
	if err != nil {
		return nil, toAPIError(err)
	}
	return &CreatedOutput{Body: CreatedResponse{ID: deckID}}, nil
}

func (s *Server) handleEditDeck(ctx context.Context, input *EditDeckInput) (*struct{}, error) {
	c, err := requireClient(ctx)
	if err != nil {
		return nil, err
	}
	return nil, toAPIError(c.EditDeck(ctx, input.ID, input.Body.input()))
}

func (s *Server) handleDeleteDeck(ctx context.Context, input *DeckPathInput) (*struct{}, error) {
	c, err := requireClient(ctx)
	if err != nil {
		return nil, err
	}
	return nil, toAPIError(c.DeleteDeck(ctx, input.ID))
}

func (s *Server) handleOpenDeck(ctx context.Context, input *DeckPathInput) (*DeckOutput, error) {
	c, err := requireClient(ctx)
	if err != nil {
		return nil, err
	}
	deck, err := c.OpenDeck(ctx, input.ID)
	if err != nil {
		return nil, toAPIError(err)
	}

	uid := ""
	if v := c.Viewer(); v != nil {
		uid = v.UserID
	}
	return &DeckOutput{Body: DeckResponse{
		ID:          deck.ID,
		Title:       deck.Title,
		Description: deck.Description,
		Tags:        deck.Tags,
		OwnerID:     deck.OwnerID,
		IsPublic:    deck.IsPublic,
		LikeCount:   deck.LikeCount(),
		Liked:       deck.IsLikedBy(uid),
		Favorited:   c.View().IsFavorite(deck.ID),
		CreatedAt:   deck.CreatedAt,
	}}, nil
}

func (s *Server) handleToggleLike(ctx context.Context, input *DeckPathInput) (*struct{}, error) {
	c, err := requireClient(ctx)
	if err != nil {
		return nil, err
	}
	return nil, toAPIError(c.ToggleLike(ctx, input.ID))
}

func (s *Server) handleToggleFavorite(ctx context.Context, input *DeckPathInput) (*struct{}, error) {
	c, err := requireClient(ctx)
	if err != nil {
		return nil, err
	}
	return nil, toAPIError(c.ToggleFavorite(ctx, input.ID))
}

func (s *Server) handleToggleVisibility(ctx context.Context, input *DeckPathInput) (*struct{}, error) {
	c, err := requireClient(ctx)
	if err != nil {
		return nil, err
	}
	return nil, toAPIError(c.ToggleVisibility(ctx, input.ID))
}

func (s *Server) handleAddCard(ctx context.Context, input *AddCardInput) (*CreatedOutput, error) {
	c, err := requireClient(ctx)
	if err != nil {
		return nil, err
	}
	cardID, err := c.AddCard(ctx, input.ID, input.Body.input())
	if err != nil {
		return nil, toAPIError(err)
	}
	return &CreatedOutput{Body: CreatedResponse{ID: cardID}}, nil
}

func (s *Server) handleEditCard(ctx context.Context, input *EditCardInput) (*struct{}, error) {
	c, err := requireClient(ctx)
	if err != nil {
		return nil, err
	}
	return nil, toAPIError(c.EditCard(ctx, input.ID, input.CardID, input.Body.input()))
}

func (s *Server) handleDeleteCard(ctx context.Context, input *CardPathInput) (*struct{}, error) {
	c, err := requireClient(ctx)
	if err != nil {
		return nil, err
	}
	return nil, toAPIError(c.DeleteCard(ctx, input.ID, input.CardID))
}

func (s *Server) handlePostComment(ctx context.Context, input *PostCommentInput) (*struct{}, error) {
	c, err := requireClient(ctx)
	if err != nil {
		return nil, err
	}
	return nil, toAPIError(c.PostComment(ctx, input.ID, input.Body.Text))
}

func (s *Server) handleDeleteComment(ctx context.Context, input *DeckPathInput) (*struct{}, error) {
	c, err := requireClient(ctx)
	if err != nil {
		return nil, err
	}
	return nil, toAPIError(c.DeleteComment(ctx, input.ID))
}
