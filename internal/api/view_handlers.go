package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/flashcardexchange/flashcards/internal/client"
	domainerrors "github.com/flashcardexchange/flashcards/internal/errors"
)

func (s *Server) registerViewRoutes() {
	bearer := []map[string][]string{{"bearer": {}}}

	huma.Register(s.api, huma.Operation{
		OperationID: "dispatchAction",
		Method:      http.MethodPost,
		Path:        "/api/v1/actions",
		Summary:     "Dispatch a gesture",
		Description: "Runs the handler bound to a rendered action id. An empty action is a click outside the region's menus.",
		Tags:        []string{"View"},
		Security:    bearer,
	}, s.handleDispatch)

	huma.Register(s.api, huma.Operation{
		OperationID: "search",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search decks",
		Description: "Runs a substring search over the viewer's and public decks and repaints the search overlay",
		Tags:        []string{"View"},
		Security:    bearer,
	}, s.handleSearch)

	huma.Register(s.api, huma.Operation{
		OperationID: "getRegion",
		Method:      http.MethodGet,
		Path:        "/api/v1/regions/{name}",
		Summary:     "Get region",
		Description: "Returns a region's current markup",
		Tags:        []string{"View"},
		Security:    bearer,
	}, s.handleGetRegion)
}

// ActionRequest is a user gesture on rendered markup.
type ActionRequest struct {
	Region string            `json:"region" doc:"Region the gesture happened in"`
	Action string            `json:"action,omitempty" doc:"data-action id of the target, empty for a click outside"`
	Form   map[string]string `json:"form,omitempty" doc:"Form fields submitted with the gesture"`
}

// ActionInput wraps the action request for Huma.
type ActionInput struct {
	Body ActionRequest
}

// SearchInput carries the search query.
type SearchInput struct {
	Query string `query:"q" maxLength:"200" doc:"Search text; blank hides the overlay"`
}

// SearchResult is one matching deck.
type SearchResult struct {
	ID    string `json:"id" doc:"Deck ID"`
	Title string `json:"title" doc:"Deck title"`
}

// SearchResponse is the search overlay's state.
type SearchResponse struct {
	Query   string         `json:"query" doc:"The query as given"`
	Visible bool           `json:"visible" doc:"Whether the overlay is shown"`
	Dimmed  bool           `json:"dimmed" doc:"Whether the page behind is dimmed"`
	Results []SearchResult `json:"results" doc:"Matching decks in corpus order"`
}

// SearchOutput wraps the search response for Huma.
type SearchOutput struct {
	Body SearchResponse
}

// RegionInput addresses a region.
type RegionInput struct {
	Name string `path:"name" doc:"Region name"`
}

// RegionResponse is a region's markup.
type RegionResponse struct {
	Region string   `json:"region" doc:"Region name"`
	Gen    uint64   `json:"gen" doc:"Generation of the last applied repaint"`
	HTML   string   `json:"html" doc:"Rendered markup"`
	Keys   []string `json:"keys" doc:"Fragment keys in display order"`
}

// RegionOutput wraps the region response for Huma.
type RegionOutput struct {
	Body RegionResponse
}

func (s *Server) handleDispatch(ctx context.Context, input *ActionInput) (*struct{}, error) {
	c, err := requireClient(ctx)
	if err != nil {
		return nil, err
	}
	return nil, toAPIError(c.Dispatch(ctx, input.Body.Region, input.Body.Action, input.Body.Form))
}

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	c, err := requireClient(ctx)
	if err != nil {
		return nil, err
	}
	sv, err := c.Search(input.Query)
	if err != nil {
		return nil, toAPIError(err)
	}

	results := make([]SearchResult, 0, len(sv.Results))
	for _, d := range sv.Results {
		results = append(results, SearchResult{ID: d.ID, Title: d.Title})
	}
	return &SearchOutput{Body: SearchResponse{
		Query:   sv.Query,
		Visible: sv.Visible,
		Dimmed:  sv.Dimmed,
		Results: results,
	}}, nil
}

func (s *Server) handleGetRegion(ctx context.Context, input *RegionInput) (*RegionOutput, error) {
	c, err := requireClient(ctx)
	if err != nil {
		return nil, err
	}
	r, ok := c.Region(input.Name)
	if !ok {
		return nil, toAPIError(domainerrors.NotFound(client.MsgUnknownRegion))
	}
	return &RegionOutput{Body: RegionResponse{
		Region: r.Name(),
		Gen:    r.Gen(),
		HTML:   r.HTML(),
		Keys:   r.Keys(),
	}}, nil
}
