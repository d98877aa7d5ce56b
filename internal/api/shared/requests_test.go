package shared

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type taggedRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type selfValidatingRequest struct {
	err error
}

func (r selfValidatingRequest) Validate() error { return r.err }

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"email":"a@example.com"}`))

	var body taggedRequest
	require.NoError(t, DecodeJSON(req, &body))
	assert.Equal(t, "a@example.com", body.Email)

	req = httptest.NewRequest("POST", "/", strings.NewReader(`{not json`))
	assert.Error(t, DecodeJSON(req, &body))
}

func TestValidateRequestUsesStructTags(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateRequest(taggedRequest{Email: "a@example.com"}))
	assert.Error(t, ValidateRequest(taggedRequest{Email: "not-an-email"}))
	assert.Error(t, ValidateRequest(taggedRequest{}))
}

func TestValidateRequestPrefersValidateMethod(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateRequest(selfValidatingRequest{}))

	sentinel := errors.New("bad request")
	assert.ErrorIs(t, ValidateRequest(selfValidatingRequest{err: sentinel}), sentinel)
}
