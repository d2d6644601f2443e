package sse

import "github.com/flashcardexchange/flashcards/internal/client"

// Publisher forwards one client instance's output to its streams.
type Publisher struct {
	manager  *Manager
	clientID string
}

var _ client.Notifier = (*Publisher)(nil)

// NewPublisher creates a publisher for clientID.
func NewPublisher(m *Manager, clientID string) *Publisher {
	return &Publisher{manager: m, clientID: clientID}
}

// Notify implements client.Notifier.
func (p *Publisher) Notify(n client.Notice) {
	p.manager.Emit(NewNoticeEvent(p.clientID, n))
}

// Render is a client.Options.OnRender callback.
func (p *Publisher) Render(e client.RenderEvent) {
	p.manager.Emit(NewRegionPaintedEvent(p.clientID, e))
}

// Search is a client.Options.OnSearch callback.
func (p *Publisher) Search(e client.SearchEvent) {
	p.manager.Emit(NewSearchOverlayEvent(p.clientID, e))
}
