package domain

// Messages shown inline when an editor form is rejected.
const (
	MsgDeckTitleRequired  = "Deck title is required"
	MsgCardFieldsRequired = "Both term and definition are required"
	MsgCommentRequired    = "Comment cannot be empty"
)

// DeckInput is the deck editor form. Tags is the raw comma-delimited field.
type DeckInput struct {
	Title       string `json:"title" validate:"notblank,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Tags        string `json:"tags" validate:"max=1000"`
}

// Messages supplies the inline validation messages.
func (DeckInput) Messages() map[string]string {
	return map[string]string{FieldTitle: MsgDeckTitleRequired}
}

// CardInput is the card editor form.
type CardInput struct {
	Term       string `json:"term" validate:"notblank,max=500"`
	Definition string `json:"definition" validate:"notblank,max=2000"`
}

// Messages supplies the inline validation messages.
func (CardInput) Messages() map[string]string {
	return map[string]string{
		FieldTerm:       MsgCardFieldsRequired,
		FieldDefinition: MsgCardFieldsRequired,
	}
}

// CommentInput is the comment box.
type CommentInput struct {
	Text string `json:"text" validate:"notblank,max=2000"`
}

// Messages supplies the inline validation messages.
func (CommentInput) Messages() map[string]string {
	return map[string]string{FieldText: MsgCommentRequired}
}
