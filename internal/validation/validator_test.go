package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/flashcardexchange/flashcards/internal/errors"
)

type cardForm struct {
	Term       string `json:"term" validate:"notblank"`
	Definition string `json:"definition" validate:"notblank"`
}

type signupForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=6"`
}

type deckForm struct {
	Title string `json:"title" validate:"notblank"`
}

func (deckForm) Messages() map[string]string {
	return map[string]string{"title": "Deck title is required"}
}

func TestValidate_Valid(t *testing.T) {
	v := New()
	assert.NoError(t, v.Validate(cardForm{Term: "hola", Definition: "hello"}))
}

func TestValidate_NotBlankRejectsWhitespace(t *testing.T) {
	v := New()

	err := v.Validate(cardForm{Term: "   ", Definition: "hello"})
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))

	var de *domainerrors.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "term is required", de.Message)
	assert.Equal(t, map[string]string{"term": "term is required"}, de.Details)
}

func TestValidate_FriendlyMessages(t *testing.T) {
	v := New()

	err := v.Validate(signupForm{Email: "nope", Password: "123"})
	require.Error(t, err)

	var de *domainerrors.Error
	require.ErrorAs(t, err, &de)
	details, ok := de.Details.(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "email must be a valid email address", details["email"])
	assert.Equal(t, "password must be at least 6 characters", details["password"])
}

func TestValidate_CustomMessages(t *testing.T) {
	v := New()

	err := v.Validate(deckForm{})
	require.Error(t, err)
	assert.Equal(t, "Deck title is required", domainerrors.MessageOf(err))
}
