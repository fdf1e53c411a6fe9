package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := map[error]int{
		fmt.Errorf("product 4: %w", ErrNotFound): http.StatusNotFound,
		fmt.Errorf("sku: %w", ErrDuplicate):      http.StatusConflict,
		ErrConflict:                              http.StatusConflict,
		ErrValidation:                            http.StatusUnprocessableEntity,
		ErrForbidden:                             http.StatusForbidden,
		fmt.Errorf("boom"):                       http.StatusInternalServerError,
	}
	for err, want := range cases {
		rr := httptest.NewRecorder()
		RespondError(rr, err)
		assert.Equal(t, want, rr.Code, err.Error())
		assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
	}
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, fmt.Errorf("dial tcp 10.0.0.1:5432: refused"))

	var body ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, http.StatusInternalServerError, body.Status)
	assert.Empty(t, body.Detail)
}
