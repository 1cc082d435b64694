package util

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	apierrors "github.com/magickw/ShopSmartly-sub000/internal/errors"
)

func testContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHandleDBErrorNil(t *testing.T) {
	c, w := testContext()
	assert.False(t, HandleDBError(c, nil, "product"))
	assert.Empty(t, w.Body.String())
}

func TestHandleDBErrorRecordNotFound(t *testing.T) {
	c, w := testContext()
	assert.True(t, HandleDBError(c, gorm.ErrRecordNotFound, "product"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	resp := decodeError(t, w)
	assert.Equal(t, "NOT_FOUND", resp.Code)
	assert.Equal(t, "product not found", resp.Message)
}

func TestHandleDBErrorOther(t *testing.T) {
	c, w := testContext()
	assert.True(t, HandleDBError(c, errors.New("connection reset"), "favorite"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeError(t, w).Code)
}

func TestRespondWithAPIErrorBody(t *testing.T) {
	c, w := testContext()
	RespondWithAPIError(c, apierrors.Conflict("product").WithDetails("prod-123"))
	assert.Equal(t, http.StatusConflict, w.Code)

	resp := decodeError(t, w)
	assert.Equal(t, "CONFLICT", resp.Code)
	assert.Equal(t, "prod-123", resp.Details)
}

func TestRespondValidationErrorCarriesField(t *testing.T) {
	c, w := testContext()
	RespondValidationError(c, "eco_score", "eco_score must be between 0 and 100")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	resp := decodeError(t, w)
	assert.Equal(t, "VALIDATION_ERROR", resp.Code)
	assert.Equal(t, "eco_score", resp.Field)
}

func TestGetUserIDFromContextMissing(t *testing.T) {
	c, w := testContext()
	_, ok := GetUserIDFromContext(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeError(t, w).Code)
}
