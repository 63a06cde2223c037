package messaging

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketguard/internal/logger"
)

func newTestRouter(t *testing.T) (*gin.Engine, *fixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := newFixture(t)
	router := gin.New()
	NewHandler(f.service, logger.NopLogger()).RegisterRoutes(router)
	return router, f
}

func doJSON(router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandler_SendMessage(t *testing.T) {
	router, f := newTestRouter(t)
	req := sendRequest("text me on +36 30 123 4567")

	w := doJSON(router, http.MethodPost, "/api/v1/messages", req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "text me on [phone number removed]", resp["text"])
	assert.Equal(t, true, resp["contact_info_removed"])
	assert.NotContains(t, resp, "original_text")
	assert.NotContains(t, w.Body.String(), "123 4567")
	assert.Len(t, f.repo.messages, 1)
}

func TestHandler_SendMessage_BadRequests(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/api/v1/messages", map[string]string{"text": "hi"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := sendRequest("hi")
	req.SenderKind = "admin"
	w = doJSON(router, http.MethodPost, "/api/v1/messages", req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_ERROR", resp["error_code"])
}

func TestHandler_ListConversation(t *testing.T) {
	router, _ := newTestRouter(t)
	req := sendRequest("write to jane@example.com")
	require.Equal(t, http.StatusCreated, doJSON(router, http.MethodPost, "/api/v1/messages", req).Code)

	w := doJSON(router, http.MethodGet, "/api/v1/conversations/"+req.ConversationID+"/messages?limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var messages []PublicMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &messages))
	require.Len(t, messages, 1)
	assert.Equal(t, "write to [email removed]", messages[0].Text)

	w = doJSON(router, http.MethodGet, "/api/v1/conversations/nope/messages", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_ListFlagged(t *testing.T) {
	router, _ := newTestRouter(t)
	require.Equal(t, http.StatusCreated, doJSON(router, http.MethodPost, "/api/v1/messages", sendRequest("hívj 06 30 12")).Code)

	w := doJSON(router, http.MethodGet, "/api/v1/moderation/messages", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var messages []Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &messages))
	require.Len(t, messages, 1)
	assert.Equal(t, "hívj 06 30 12", messages[0].OriginalText)
	assert.True(t, messages[0].NeedsReview)
}

func TestHandler_Notify(t *testing.T) {
	router, f := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/api/v1/notifications", NotificationRequest{
		RecipientKind: "user",
		RecipientID:   uuid.NewString(),
		Title:         "Appointment confirmed",
	})
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"delivered":1}`, w.Body.String())
	assert.Len(t, f.dispatcher.events, 1)

	w = doJSON(router, http.MethodPost, "/api/v1/notifications", map[string]string{"recipient_kind": "user"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
