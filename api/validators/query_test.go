package validators

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/quotemarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quotemarket-backend/pkg/errors"
)

func TestParseQueryEnum(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	status, err := ParseQueryEnum(req, "status", enums.ParseOrderStatus)
	require.NoError(t, err)
	assert.Nil(t, status)

	req = httptest.NewRequest(http.MethodGet, "/orders?status=in_transit", nil)
	status, err = ParseQueryEnum(req, "status", enums.ParseOrderStatus)
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, enums.OrderStatusInTransit, *status)

	req = httptest.NewRequest(http.MethodGet, "/orders?status=lost", nil)
	_, err = ParseQueryEnum(req, "status", enums.ParseOrderStatus)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestParseQueryBool(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/notifications?unreadOnly=1", nil)
	value, err := ParseQueryBool(req, "unreadOnly")
	require.NoError(t, err)
	assert.True(t, value)

	req = httptest.NewRequest(http.MethodGet, "/notifications?unreadOnly=maybe", nil)
	_, err = ParseQueryBool(req, "unreadOnly")
	require.Error(t, err)
}

func TestParseQueryIntBounds(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500", nil)
	_, err := ParseQueryInt(req, "limit", 25, 1, 100)
	require.Error(t, err)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	value, err := ParseQueryInt(req, "limit", 25, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 25, value)
}

func TestQueryParamsRejectRepeats(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/orders?status=accepted&status=delivered&limit=5&limit=6", nil)

	_, err := ParseQueryEnum(req, "status", enums.ParseOrderStatus)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = ParseQueryInt(req, "limit", 25, 1, 100)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestBlankQueryParamsFallBack(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/orders?status=%20&limit=&unreadOnly=", nil)

	status, err := ParseQueryEnum(req, "status", enums.ParseOrderStatus)
	require.NoError(t, err)
	assert.Nil(t, status)
	limit, err := ParseQueryInt(req, "limit", 25, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 25, limit)
	unread, err := ParseQueryBool(req, "unreadOnly")
	require.NoError(t, err)
	assert.False(t, unread)
}
