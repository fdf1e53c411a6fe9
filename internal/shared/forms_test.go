package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quotedesk/quotedesk/internal/platform/httpx"
)

type sampleLine struct {
	Quantity float64 `form:"quantity" validate:"gt=0"`
}

type sampleForm struct {
	Name  string       `form:"name" validate:"required,max=10"`
	Email string       `form:"email" validate:"omitempty,email"`
	Role  string       `form:"role" validate:"oneof=admin manager sales"`
	Lines []sampleLine `form:"items" validate:"min=1,dive"`
}

func TestValidateFormCollectsFieldErrors(t *testing.T) {
	errs := ValidateForm(sampleForm{Name: "", Email: "nope", Role: "root", Lines: []sampleLine{{Quantity: 0}}})

	assert.Equal(t, "is required", errs["name"])
	assert.Equal(t, "must be a valid email address", errs["email"])
	assert.Equal(t, "must be one of: admin, manager, sales", errs["role"])
	assert.Equal(t, "must be greater than 0", errs["items[0].quantity"])
}

func TestValidateFormValid(t *testing.T) {
	errs := ValidateForm(sampleForm{Name: "Ana", Role: "sales", Lines: []sampleLine{{Quantity: 1}}})
	assert.Nil(t, errs)
	assert.False(t, errs.Any())
}

func TestFormErrorsMatchValidationSentinel(t *testing.T) {
	var err error = FormErrors{"sku": "already taken"}
	assert.True(t, errors.Is(fmt.Errorf("create product: %w", err), httpx.ErrValidation))

	var fe FormErrors
	assert.True(t, errors.As(fmt.Errorf("wrap: %w", err), &fe))
	assert.Equal(t, "already taken", fe["sku"])
}

func TestUserSafeMessage(t *testing.T) {
	assert.Equal(t, "Quotation is locked", UserSafeMessage(NewSafeError(httpx.ErrConflict, "Quotation is locked")))
	assert.Equal(t, "The requested record no longer exists.", UserSafeMessage(fmt.Errorf("get: %w", httpx.ErrNotFound)))
	assert.Equal(t, "Something went wrong while saving. No changes were made.", UserSafeMessage(errors.New("pq: deadlock")))
	assert.Empty(t, UserSafeMessage(nil))
}
