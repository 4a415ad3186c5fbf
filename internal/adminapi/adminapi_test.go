package adminapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OmarEhab007/notification-hub/internal/adapter"
	"github.com/OmarEhab007/notification-hub/internal/message"
	"github.com/OmarEhab007/notification-hub/internal/topic"
)

type fakeHub struct {
	channels  []topic.Name
	listErr   error
	sendErr   error
	lastMsg   message.Message
	lastIndex int
}

func (f *fakeHub) ListChannels(ctx context.Context) ([]topic.Name, error) {
	return f.channels, f.listErr
}

func (f *fakeHub) SendToChannel(ctx context.Context, msg message.Message, adapterIndex int) error {
	f.lastMsg = msg
	f.lastIndex = adapterIndex
	return f.sendErr
}

func TestHealthz_OKWhenStarted(t *testing.T) {
	r := NewRouter(Config{Hub: &fakeHub{}, Started: func() bool { return true }})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthz_ServiceUnavailableWhenNotStarted(t *testing.T) {
	r := NewRouter(Config{Hub: &fakeHub{}, Started: func() bool { return false }})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestListChannels_ReturnsNamesAsStrings(t *testing.T) {
	hub := &fakeHub{channels: []topic.Name{topic.MustNew("alpha"), topic.MustNew("beta")}}
	r := NewRouter(Config{Hub: hub})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/channels", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Channels []string `json:"channels"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.ElementsMatch(t, []string{"alpha", "beta"}, body.Channels)
}

func TestPublish_ValidRequestDispatchesToHub(t *testing.T) {
	hub := &fakeHub{}
	r := NewRouter(Config{Hub: hub})

	body, err := json.Marshal(publishRequest{Topic: "odometry", Payload: "1,2,3", AdapterIndex: 2})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/publish", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "odometry", hub.lastMsg.Topic.String())
	assert.Equal(t, "1,2,3", hub.lastMsg.Payload.String())
	assert.Equal(t, 2, hub.lastIndex)
}

func TestPublish_InvalidTopicReturnsBadRequest(t *testing.T) {
	hub := &fakeHub{}
	r := NewRouter(Config{Hub: hub})

	body, _ := json.Marshal(publishRequest{Topic: "invalid topic!", Payload: "x"})
	req := httptest.NewRequest(http.MethodPost, "/publish", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPublish_MalformedJSONReturnsBadRequest(t *testing.T) {
	r := NewRouter(Config{Hub: &fakeHub{}})

	req := httptest.NewRequest(http.MethodPost, "/publish", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPublish_NoSuchAdapterReturnsNotFound(t *testing.T) {
	hub := &fakeHub{sendErr: adapter.ErrNoSuchAdapter}
	r := NewRouter(Config{Hub: hub})

	body, _ := json.Marshal(publishRequest{Topic: "odometry", Payload: "x"})
	req := httptest.NewRequest(http.MethodPost, "/publish", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPublish_UpstreamErrorReturnsBadGateway(t *testing.T) {
	hub := &fakeHub{sendErr: adapter.ErrIoFailure}
	r := NewRouter(Config{Hub: hub})

	body, _ := json.Marshal(publishRequest{Topic: "odometry", Payload: "x"})
	req := httptest.NewRequest(http.MethodPost, "/publish", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
