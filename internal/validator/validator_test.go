package validator

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	CustomerID uuid.UUID `json:"customer_id" validate:"required"`
	Amount     int64     `json:"amount" validate:"gt=0"`
	Kind       string    `json:"kind" validate:"omitempty,oneof=a b"`
}

func TestValidateReportsJSONFieldNames(t *testing.T) {
	errs := Validate(sample{Kind: "c"})

	require.Len(t, errs, 3)
	assert.Equal(t, FieldError{Field: "amount", Message: "must be greater than 0"}, errs[0])
	assert.Equal(t, FieldError{Field: "customer_id", Message: "can't be blank"}, errs[1])
	assert.Equal(t, "kind: must be one of: a b", errs[2].String())
}

func TestValidateAcceptsValidInput(t *testing.T) {
	assert.Empty(t, Validate(sample{CustomerID: uuid.New(), Amount: 100}))
}
