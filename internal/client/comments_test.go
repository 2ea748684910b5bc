package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgebridge/bitbucket-mcp/pkg/bitbucket"
)

func TestCommentsClient_Add_CloudInline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2.0/repositories/acme/widgets/pullrequests/42/comments", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		content := body["content"].(map[string]interface{})
		assert.Equal(t, "Needs a nil check", content["raw"])

		inline := body["inline"].(map[string]interface{})
		assert.Equal(t, "main.go", inline["path"])
		assert.Equal(t, float64(12), inline["to"])

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{
			"id": 9,
			"content": {"raw": "Needs a nil check"},
			"user": {"display_name": "Jess"},
			"inline": {"path": "main.go", "to": 12}
		}`))
	}))
	defer server.Close()

	comment, err := newCloudClient(t, server).Comments().Add(context.Background(), "acme", "widgets", 42, &bitbucket.CommentCreate{
		Text:     "Needs a nil check",
		FilePath: "main.go",
		Line:     12,
	})
	require.NoError(t, err)
	assert.Equal(t, 9, comment.ID)
	assert.Equal(t, "main.go", comment.FilePath)
	assert.Equal(t, 12, comment.Line)
}

func TestCommentsClient_Add_DataCenterAnchor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Needs a nil check", body["text"])

		anchor := body["anchor"].(map[string]interface{})
		assert.Equal(t, "main.go", anchor["path"])

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 9, "text": "Needs a nil check", "version": 0, "state": "OPEN"}`))
	}))
	defer server.Close()

	comment, err := newDCClient(t, server).Comments().Add(context.Background(), "ACME", "widgets", 42, &bitbucket.CommentCreate{
		Text:     "Needs a nil check",
		FilePath: "main.go",
		Line:     12,
	})
	require.NoError(t, err)
	assert.Equal(t, 9, comment.ID)
	assert.False(t, comment.Resolved)
}

func TestCommentsClient_List_Cloud(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"values": [
				{"id": 1, "content": {"raw": "First"}, "user": {"display_name": "Sam"}, "resolved": true},
				{"id": 2, "content": {"raw": "Second"}, "user": {"display_name": "Jess"}}
			]
		}`))
	}))
	defer server.Close()

	comments, err := newCloudClient(t, server).Comments().List(context.Background(), "acme", "widgets", 42, nil)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.True(t, comments[0].Resolved)
	assert.Equal(t, "Second", comments[1].Text)
}

func TestCommentsClient_Resolve_Cloud(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/2.0/repositories/acme/widgets/pullrequests/42/comments/9/resolve", r.URL.Path)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	require.NoError(t, newCloudClient(t, server).Comments().Resolve(context.Background(), "acme", "widgets", 42, 9))
}

func TestCommentsClient_Reopen_Cloud(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/2.0/repositories/acme/widgets/pullrequests/42/comments/9/resolve", r.URL.Path)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	require.NoError(t, newCloudClient(t, server).Comments().Reopen(context.Background(), "acme", "widgets", 42, 9))
}

func TestCommentsClient_Resolve_DataCenterVersionedUpdate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte(`{"id": 9, "text": "Fix this", "version": 4, "state": "OPEN"}`))
		case http.MethodPut:
			assert.Equal(t, "/rest/api/1.0/projects/ACME/repos/widgets/pull-requests/42/comments/9", r.URL.Path)

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "RESOLVED", body["state"])
			assert.Equal(t, float64(4), body["version"])

			w.Write([]byte(`{"id": 9, "version": 5, "state": "RESOLVED"}`))
		}
	}))
	defer server.Close()

	require.NoError(t, newDCClient(t, server).Comments().Resolve(context.Background(), "ACME", "widgets", 42, 9))
}

func TestCommentsClient_Delete_DataCenterVersionQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte(`{"id": 9, "version": 2, "state": "OPEN"}`))
		case http.MethodDelete:
			assert.Equal(t, "2", r.URL.Query().Get("version"))
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer server.Close()

	require.NoError(t, newDCClient(t, server).Comments().Delete(context.Background(), "ACME", "widgets", 42, 9))
}

func TestCommentsClient_Update_Cloud(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		content := body["content"].(map[string]interface{})
		assert.Equal(t, "Edited", content["raw"])

		w.Write([]byte(`{"id": 9, "content": {"raw": "Edited"}}`))
	}))
	defer server.Close()

	comment, err := newCloudClient(t, server).Comments().Update(context.Background(), "acme", "widgets", 42, 9, "Edited")
	require.NoError(t, err)
	assert.Equal(t, "Edited", comment.Text)
}
