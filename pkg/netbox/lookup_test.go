package netbox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aroggek/netbox-connector/pkg/models"
)

func TestClient_GetOneByField(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex

	var gotPath, gotName, gotLimit string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotPath = r.URL.Path
		gotName = r.URL.Query().Get("name")
		gotLimit = r.URL.Query().Get("limit")
		mu.Unlock()

		_ = json.NewEncoder(w).Encode(map[string]any{
			"count":   1,
			"next":    nil,
			"results": []any{deviceJSON(7)},
		})
	}))
	t.Cleanup(server.Close)

	raw, found, err := testClient(server.URL).GetOneByField(context.Background(), models.EntityDevice, "name", "core-sw-01")
	require.NoError(t, err)
	require.True(t, found)

	var d struct {
		ID int64 `json:"id"`
	}

	require.NoError(t, json.Unmarshal(raw, &d))
	require.EqualValues(t, 7, d.ID)

	mu.Lock()
	require.Equal(t, devicesPath, gotPath)
	require.Equal(t, "core-sw-01", gotName)
	require.Equal(t, "1", gotLimit)
	mu.Unlock()
}

func TestClient_GetOneByField_NotFound(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"count": 0, "next": nil, "results": []any{}})
	}))
	t.Cleanup(server.Close)

	raw, found, err := testClient(server.URL).GetOneByField(context.Background(), models.EntityDevice, "name", "nope")
	require.NoError(t, err)
	require.False(t, found)
	require.Nil(t, raw)
}

// SearchHost falls through device → vm → ip until something matches.
func TestClient_SearchHost_FallsBackToVM(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex

	var paths []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()

		if r.URL.Path == "/api/virtualization/virtual-machines/" {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"count": 1,
				"next":  nil,
				"results": []any{map[string]any{
					"id":   3,
					"name": "app-vm-01",
				}},
			})

			return
		}

		_ = json.NewEncoder(w).Encode(map[string]any{"count": 0, "next": nil, "results": []any{}})
	}))
	t.Cleanup(server.Close)

	entity, raw, found, err := testClient(server.URL).SearchHost(context.Background(), "app-vm-01")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, models.EntityVM, entity)
	require.NotNil(t, raw)

	mu.Lock()
	require.Equal(t, []string{devicesPath, "/api/virtualization/virtual-machines/"}, paths)
	mu.Unlock()
}

func TestClient_SearchHost_NotFoundAnywhere(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"count": 0, "next": nil, "results": []any{}})
	}))
	t.Cleanup(server.Close)

	_, _, found, err := testClient(server.URL).SearchHost(context.Background(), "ghost")
	require.NoError(t, err)
	require.False(t, found)
}
