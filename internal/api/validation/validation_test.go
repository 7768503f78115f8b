package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

type staffPayload struct {
	Name  string   `json:"name" validate:"required"`
	Email string   `json:"email" validate:"required,email"`
	Roles []string `json:"roles" validate:"required,min=1,dive,roletag"`
}

func TestStructAcceptsValidPayload(t *testing.T) {
	err := Struct(staffPayload{Name: "Sam", Email: "sam@example.com", Roles: []string{"taxation_support", "Live_Support"}})
	assert.NoError(t, err)
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := Struct(staffPayload{Email: "not-an-email", Roles: []string{"sales"}})
	require.Error(t, err)

	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeValidation, domainErr.Code)
	fields, ok := domainErr.Details["fields"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "name is required", fields["name"])
	assert.Equal(t, "email must be a valid email address", fields["email"])
	assert.Equal(t, "roles[0] must be a known role tag", fields["roles[0]"])
}

func TestStructRejectsEmptyRoles(t *testing.T) {
	err := Struct(staffPayload{Name: "Sam", Email: "sam@example.com", Roles: []string{}})
	require.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}
