package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"portal-server/services/portal-api/internal/config"
	"portal-server/services/portal-api/internal/domain/chat"
	"portal-server/services/portal-api/internal/infrastructure/auth"
	"portal-server/services/portal-api/internal/interfaces/httpserver/handlers"
	"portal-server/services/portal-api/internal/utils/platformerrors"
)

// MockChatService is a mock implementation of chat.Service for testing.
type MockChatService struct {
	ListConversationsFunc  func(ctx context.Context, viewer chat.Viewer) ([]chat.Conversation, error)
	GetConversationFunc    func(ctx context.Context, id string) (*chat.Conversation, error)
	CreateConversationFunc func(ctx context.Context, clientID, clientName string) (*chat.Conversation, error)
	SendMessageFunc        func(ctx context.Context, conversationID string, sender chat.Viewer, content string) (*chat.Message, error)
	MarkReadFunc           func(ctx context.Context, conversationID string, viewerRole chat.Role) error
	StreamMessagesFunc     func(ctx context.Context, conversationID string, viewerRole chat.Role) (*chat.MessageStream, error)
	ListMessagesFunc       func(ctx context.Context, conversationID string) ([]chat.Message, error)
}

func (m *MockChatService) ListConversations(ctx context.Context, viewer chat.Viewer) ([]chat.Conversation, error) {
	if m.ListConversationsFunc != nil {
		return m.ListConversationsFunc(ctx, viewer)
	}
	return nil, nil
}

func (m *MockChatService) GetConversation(ctx context.Context, id string) (*chat.Conversation, error) {
	if m.GetConversationFunc != nil {
		return m.GetConversationFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockChatService) CreateConversation(ctx context.Context, clientID, clientName string) (*chat.Conversation, error) {
	if m.CreateConversationFunc != nil {
		return m.CreateConversationFunc(ctx, clientID, clientName)
	}
	return nil, nil
}

func (m *MockChatService) SendMessage(ctx context.Context, conversationID string, sender chat.Viewer, content string) (*chat.Message, error) {
	if m.SendMessageFunc != nil {
		return m.SendMessageFunc(ctx, conversationID, sender, content)
	}
	return nil, nil
}

func (m *MockChatService) MarkRead(ctx context.Context, conversationID string, viewerRole chat.Role) error {
	if m.MarkReadFunc != nil {
		return m.MarkReadFunc(ctx, conversationID, viewerRole)
	}
	return nil
}

func (m *MockChatService) StreamMessages(ctx context.Context, conversationID string, viewerRole chat.Role) (*chat.MessageStream, error) {
	if m.StreamMessagesFunc != nil {
		return m.StreamMessagesFunc(ctx, conversationID, viewerRole)
	}
	return nil, nil
}

func (m *MockChatService) ListMessages(ctx context.Context, conversationID string) ([]chat.Message, error) {
	if m.ListMessagesFunc != nil {
		return m.ListMessagesFunc(ctx, conversationID)
	}
	return nil, nil
}

// newChatRouter wires the handler behind the header-based auth
// middleware, the mode used in development and behind a gateway.
func newChatRouter(t *testing.T, service chat.Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	validator, err := auth.NewValidator(context.Background(), &config.Config{}, zerolog.Nop())
	require.NoError(t, err)

	handler := handlers.NewChatHandler(service, zerolog.Nop())
	engine := gin.New()
	engine.Use(validator.Middleware())
	engine.GET("/v1/conversations", handler.List)
	engine.POST("/v1/conversations", handler.Create)
	engine.GET("/v1/conversations/:conversation_id", handler.Get)
	engine.POST("/v1/conversations/:conversation_id/messages", handler.Send)
	engine.POST("/v1/conversations/:conversation_id/read", handler.MarkRead)
	return engine
}

func asClient(req *http.Request) {
	req.Header.Set("X-Viewer-Id", "client-1")
	req.Header.Set("X-Viewer-Name", "Dana Client")
	req.Header.Set("X-Viewer-Role", "client")
}

func asAdmin(req *http.Request) {
	req.Header.Set("X-Viewer-Id", "admin-1")
	req.Header.Set("X-Viewer-Role", "admin")
}

func testConversation() *chat.Conversation {
	return &chat.Conversation{ID: "conv_1", ClientID: "client-1", ClientName: "Dana Client", Active: true}
}

func TestListConversationsRequiresViewer(t *testing.T) {
	engine := newChatRouter(t, &MockChatService{})

	req := httptest.NewRequest(http.MethodGet, "/v1/conversations", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListConversationsPassesViewerThrough(t *testing.T) {
	var gotViewer chat.Viewer
	engine := newChatRouter(t, &MockChatService{
		ListConversationsFunc: func(ctx context.Context, viewer chat.Viewer) ([]chat.Conversation, error) {
			gotViewer = viewer
			return []chat.Conversation{*testConversation()}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/conversations", nil)
	asAdmin(req)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, chat.RoleAdmin, gotViewer.Role)

	var body struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	require.Equal(t, "conv_1", body.Data[0].ID)
}

func TestCreateConversationIsClientOnly(t *testing.T) {
	engine := newChatRouter(t, &MockChatService{
		CreateConversationFunc: func(ctx context.Context, clientID, clientName string) (*chat.Conversation, error) {
			return testConversation(), nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/conversations", nil)
	asAdmin(req)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/v1/conversations", nil)
	asClient(req)
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGetConversationEnforcesOwnership(t *testing.T) {
	engine := newChatRouter(t, &MockChatService{
		GetConversationFunc: func(ctx context.Context, id string) (*chat.Conversation, error) {
			return testConversation(), nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/conversations/conv_1", nil)
	req.Header.Set("X-Viewer-Id", "client-2")
	req.Header.Set("X-Viewer-Role", "client")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/conversations/conv_1", nil)
	asClient(req)
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSendMessageMapsDomainErrors(t *testing.T) {
	tests := []struct {
		name     string
		errType  platformerrors.ErrorType
		wantHTTP int
	}{
		{"validation", platformerrors.ErrorTypeValidation, http.StatusBadRequest},
		{"send failed", platformerrors.ErrorTypeSendFailed, http.StatusBadGateway},
		{"not found", platformerrors.ErrorTypeNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newChatRouter(t, &MockChatService{
				GetConversationFunc: func(ctx context.Context, id string) (*chat.Conversation, error) {
					return testConversation(), nil
				},
				SendMessageFunc: func(ctx context.Context, conversationID string, sender chat.Viewer, content string) (*chat.Message, error) {
					return nil, platformerrors.NewError(ctx,
						platformerrors.LayerDomain, tt.errType, "boom", nil)
				},
			})

			payload, _ := json.Marshal(map[string]string{"content": "hello"})
			req := httptest.NewRequest(http.MethodPost, "/v1/conversations/conv_1/messages", bytes.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")
			asClient(req)
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, req)

			require.Equal(t, tt.wantHTTP, rec.Code)
		})
	}
}

func TestSendMessageCreatesMessage(t *testing.T) {
	engine := newChatRouter(t, &MockChatService{
		GetConversationFunc: func(ctx context.Context, id string) (*chat.Conversation, error) {
			return testConversation(), nil
		},
		SendMessageFunc: func(ctx context.Context, conversationID string, sender chat.Viewer, content string) (*chat.Message, error) {
			return &chat.Message{ID: "msg_1", ConversationID: conversationID, SenderID: sender.ID, SenderRole: sender.Role, Content: content}, nil
		},
	})

	payload, _ := json.Marshal(map[string]string{"content": "hello"})
	req := httptest.NewRequest(http.MethodPost, "/v1/conversations/conv_1/messages", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	asClient(req)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		ID      string `json:"id"`
		Content string `json:"content"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "msg_1", body.ID)
	require.Equal(t, "hello", body.Content)
}

func TestMarkReadUsesViewerRole(t *testing.T) {
	var gotRole chat.Role
	engine := newChatRouter(t, &MockChatService{
		GetConversationFunc: func(ctx context.Context, id string) (*chat.Conversation, error) {
			return testConversation(), nil
		},
		MarkReadFunc: func(ctx context.Context, conversationID string, viewerRole chat.Role) error {
			gotRole = viewerRole
			return nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/conversations/conv_1/read", nil)
	asAdmin(req)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, chat.RoleAdmin, gotRole)
}
