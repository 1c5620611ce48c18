package utils

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	internal_errors "github.com/threed-dev/threed/shared/errors"
	"github.com/stretchr/testify/assert"
)

func TestWriteErrorAndStatusCode(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteErrorAndStatusCode(rr, &internal_errors.ErrorWithStatusCode{Message: "nope", StatusCode: http.StatusConflict})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "nope")

	rr = httptest.NewRecorder()
	WriteErrorAndStatusCode(rr, errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteJSON(rr, http.StatusOK, map[string]string{"status": "ok"})
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}
