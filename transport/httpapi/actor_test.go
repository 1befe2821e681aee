package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goliatone/go-portfolio/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func testContext(headers map[string]string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	c.Request = req
	return c
}

func TestHeaderActor(t *testing.T) {
	resolve := HeaderActor("X-Owner", "X-Role")
	id := uuid.New()

	ref, err := resolve(testContext(map[string]string{"X-Owner": id.String()}))
	require.NoError(t, err)
	require.Equal(t, types.ActorRef{ID: id, Type: types.ActorRoleOwner}, ref)

	ref, err = resolve(testContext(map[string]string{"X-Owner": id.String(), "X-Role": types.ActorRoleSupport}))
	require.NoError(t, err)
	require.True(t, ref.IsSupport())

	_, err = resolve(testContext(map[string]string{"X-Owner": "nope"}))
	require.ErrorIs(t, err, types.ErrActorRequired)
}

func TestFirstActorFallsBackToHeaders(t *testing.T) {
	id := uuid.New()
	resolve := FirstActor(ContextActor, HeaderActor("X-Owner", ""))

	ref, err := resolve(testContext(map[string]string{"X-Owner": id.String()}))
	require.NoError(t, err)
	require.Equal(t, id, ref.ID)

	_, err = resolve(testContext(nil))
	require.ErrorIs(t, err, types.ErrActorRequired)
}
