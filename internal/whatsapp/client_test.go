package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wa-relay-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SendTemplate(t *testing.T) {
	var (
		gotPath string
		gotAuth string
		gotBody map[string]interface{}
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messaging_product":"whatsapp","contacts":[{"input":"919876543210","wa_id":"919876543210"}],"messages":[{"id":"wamid.abc"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "111", "token", time.Second)

	resp, err := c.SendTemplate(context.Background(), "919876543210", Template{
		Name:     "tournament_reminder",
		Language: Language{Code: "en"},
		Components: []Component{
			{Type: "body", Parameters: []Parameter{{Type: "text", Text: "Spring Open"}}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "wamid.abc", resp.MessageID)
	assert.Equal(t, "919876543210", resp.RecipientID)

	assert.Equal(t, "/111/messages", gotPath)
	assert.Equal(t, "Bearer token", gotAuth)
	assert.Equal(t, "whatsapp", gotBody["messaging_product"])
	assert.Equal(t, "template", gotBody["type"])
	tmpl := gotBody["template"].(map[string]interface{})
	assert.Equal(t, "tournament_reminder", tmpl["name"])
	assert.Len(t, tmpl["components"], 1)
}

func TestClient_SendText(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.txt"}]}`))
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL, "111", "token", time.Second).SendText(context.Background(), "919876543210", "hello")
	require.NoError(t, err)
	assert.Equal(t, "wamid.txt", resp.MessageID)
	assert.Equal(t, "text", gotBody["type"])
	assert.Equal(t, "hello", gotBody["text"].(map[string]interface{})["body"])
}

func TestClient_ProviderRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Template name does not exist","type":"OAuthException","code":132001}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "111", "token", time.Second).SendText(context.Background(), "919876543210", "hello")
	require.Error(t, err)

	var pe *models.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 132001, pe.Code)
	assert.Equal(t, "Template name does not exist", pe.Message)
	assert.Equal(t, http.StatusBadRequest, pe.HTTPStatus)
	assert.False(t, pe.Timeout)
}

func TestClient_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "111", "token", time.Second).SendText(context.Background(), "1", "x")

	var pe *models.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusBadGateway, pe.HTTPStatus)
	assert.Contains(t, pe.Message, "upstream down")
}

func TestClient_MissingMessageID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"messages":[]}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "111", "token", time.Second).SendText(context.Background(), "1", "x")
	var pe *models.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Contains(t, pe.Message, "missing message id")
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewClient(srv.URL, "111", "token", 50*time.Millisecond).SendText(context.Background(), "1", "x")
	require.Error(t, err)

	var pe *models.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.True(t, pe.Timeout)
}

func TestClient_Media(t *testing.T) {
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/media-1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(MediaInfo{ID: "media-1", URL: srv.URL + "/download/media-1", MimeType: "image/jpeg"})
	})
	mux.HandleFunc("/download/media-1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte("jpeg-bytes"))
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL, "111", "token", time.Second)

	info, err := c.GetMediaURL(context.Background(), "media-1")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", info.MimeType)

	data, err := c.DownloadMedia(context.Background(), info.URL)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), data)

	_, err = c.GetMediaURL(context.Background(), "")
	assert.Error(t, err)

	_, err = c.GetMediaURL(context.Background(), "unknown")
	var pe *models.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusNotFound, pe.HTTPStatus)
}
