package nominatim

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
		wantLen int
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body: `[
				{"display_name": "Chaparral Park, Scottsdale, Arizona", "lat": "33.5091", "lon": "-111.9217", "category": "leisure", "type": "park", "osm_type": "way", "osm_id": 12345},
				{"display_name": "Eldorado Park, Scottsdale, Arizona", "lat": "33.4812", "lon": "-111.9201", "category": "leisure", "type": "park", "osm_type": "way", "osm_id": 67890}
			]`,
			wantLen: 2,
		},
		{
			name:    "blocked",
			status:  http.StatusForbidden,
			body:    `denied`,
			wantErr: "unexpected status 403",
		},
		{
			name:    "malformed_response",
			status:  http.StatusOK,
			body:    `{"not": "an array"}`,
			wantErr: "unmarshal response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				q := r.URL.Query()
				assert.Equal(t, "/search", r.URL.Path)
				assert.Equal(t, "park", q.Get("q"))
				assert.Equal(t, "jsonv2", q.Get("format"))
				assert.Equal(t, "1", q.Get("bounded"))
				assert.Equal(t, "5", q.Get("limit"))
				assert.NotEmpty(t, q.Get("viewbox"))
				assert.Equal(t, "rapport-api ops@example.com", r.Header.Get("User-Agent"))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient(WithBaseURL(srv.URL), WithUserAgent("rapport-api ops@example.com"))
			vb := Viewbox{MinLon: -112.04, MinLat: 33.46, MaxLon: -111.74, MaxLat: 33.76}
			places, err := client.Search(context.Background(), "park", vb, 5)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			require.Len(t, places, tt.wantLen)
			assert.Equal(t, "Chaparral Park, Scottsdale, Arizona", places[0].DisplayName)
			assert.Equal(t, "way", places[0].OSMType)
		})
	}
}
