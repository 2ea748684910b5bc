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

func TestTasksClient_List_CloudStateTranslated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2.0/repositories/acme/widgets/pullrequests/42/tasks", r.URL.Path)

		w.Write([]byte(`{
			"values": [
				{"id": 1, "state": "UNRESOLVED", "content": {"raw": "Add tests"}},
				{"id": 2, "state": "RESOLVED", "content": {"raw": "Rename var"}}
			]
		}`))
	}))
	defer server.Close()

	tasks, err := newCloudClient(t, server).Tasks().List(context.Background(), "acme", "widgets", 42, nil)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, bitbucket.TaskStateOpen, tasks[0].State)
	assert.Equal(t, bitbucket.TaskStateResolved, tasks[1].State)
}

func TestTasksClient_List_DataCenterBlockerComments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/1.0/projects/ACME/repos/widgets/pull-requests/42/blocker-comments", r.URL.Path)

		w.Write([]byte(`{
			"values": [{"id": 1, "text": "Add tests", "state": "OPEN", "version": 3}],
			"isLastPage": true
		}`))
	}))
	defer server.Close()

	tasks, err := newDCClient(t, server).Tasks().List(context.Background(), "ACME", "widgets", 42, nil)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, bitbucket.TaskStateOpen, tasks[0].State)
	assert.Equal(t, 3, tasks[0].Version)
}

func TestTasksClient_Create_Cloud(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		content := body["content"].(map[string]interface{})
		assert.Equal(t, "Add tests", content["raw"])

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 5, "state": "UNRESOLVED", "content": {"raw": "Add tests"}}`))
	}))
	defer server.Close()

	task, err := newCloudClient(t, server).Tasks().Create(context.Background(), "acme", "widgets", 42, "Add tests")
	require.NoError(t, err)
	assert.Equal(t, 5, task.ID)
	assert.Equal(t, bitbucket.TaskStateOpen, task.State)
}

func TestTasksClient_Create_DataCenterBlockerSeverity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Add tests", body["text"])
		assert.Equal(t, "BLOCKER", body["severity"])

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 5, "text": "Add tests", "state": "OPEN", "version": 0}`))
	}))
	defer server.Close()

	task, err := newDCClient(t, server).Tasks().Create(context.Background(), "ACME", "widgets", 42, "Add tests")
	require.NoError(t, err)
	assert.Equal(t, 5, task.ID)
}

func TestTasksClient_UpdateState_CloudWireState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		// Canonical OPEN goes over the wire as UNRESOLVED on Cloud.
		assert.Equal(t, "UNRESOLVED", body["state"])

		w.Write([]byte(`{"id": 5, "state": "UNRESOLVED", "content": {"raw": "Add tests"}}`))
	}))
	defer server.Close()

	task, err := newCloudClient(t, server).Tasks().UpdateState(context.Background(), "acme", "widgets", 42, 5, bitbucket.TaskStateOpen)
	require.NoError(t, err)
	assert.Equal(t, bitbucket.TaskStateOpen, task.State)
}

func TestTasksClient_UpdateState_DataCenterGuarded(t *testing.T) {
	var methods []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)

		switch r.Method {
		case http.MethodGet:
			assert.Equal(t, "/rest/api/1.0/projects/ACME/repos/widgets/pull-requests/42/blocker-comments/5", r.URL.Path)
			w.Write([]byte(`{"id": 5, "text": "Add tests", "state": "OPEN", "version": 6}`))
		case http.MethodPut:
			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "RESOLVED", body["state"])
			assert.Equal(t, float64(6), body["version"])

			w.Write([]byte(`{"id": 5, "text": "Add tests", "state": "RESOLVED", "version": 7}`))
		}
	}))
	defer server.Close()

	task, err := newDCClient(t, server).Tasks().UpdateState(context.Background(), "ACME", "widgets", 42, 5, bitbucket.TaskStateResolved)
	require.NoError(t, err)
	assert.Equal(t, bitbucket.TaskStateResolved, task.State)
	assert.Equal(t, []string{http.MethodGet, http.MethodPut}, methods)
}

func TestTasksClient_Delete_DataCenterVersionQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte(`{"id": 5, "version": 6, "state": "OPEN"}`))
		case http.MethodDelete:
			assert.Equal(t, "6", r.URL.Query().Get("version"))
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer server.Close()

	require.NoError(t, newDCClient(t, server).Tasks().Delete(context.Background(), "ACME", "widgets", 42, 5))
}
