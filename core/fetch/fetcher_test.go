package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const okBody = `{"meta":{"status":200,"msg":"OK"},"response":{
	"blog":{"name":"staff","avatar":[{"width":512,"height":512,"url":"https://a/512.png"}]},
	"posts":[{"id":123,"id_string":"123","type":"text","blog_name":"staff","blog":{"name":"staff"},
		"trail":[{"blog":{"name":"staff"},"content_raw":"<p>hi</p>"}]}]}}`

func TestFetchPost_Success(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(okBody))
	}))
	defer srv.Close()

	c := New("key123", srv.URL)
	res, err := c.FetchPost(context.Background(), "staff", "123")
	require.NoError(t, err)

	assert.Equal(t, "/v2/blog/staff/posts", gotPath)
	assert.Contains(t, gotQuery, "id=123")
	assert.Contains(t, gotQuery, "reblog_info=true")
	assert.Contains(t, gotQuery, "api_key=key123")
	assert.Equal(t, "123", res.Post.PostID())
	assert.Equal(t, "https://a/512.png", res.Blog.AvatarURL())
	assert.Len(t, res.Post.Trail, 1)
	assert.NotEmpty(t, res.Body)
}

func TestFetchPost_Errors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"not found", 404, `{"meta":{"status":404,"msg":"Not Found"},"response":[]}`, ErrPostNotFound},
		{"locked", 404, `{"meta":{"status":404,"msg":"Not Found"},"response":[],"errors":[{"title":"Not Found","code":4012}]}`, ErrBlogLocked},
		{"rate limited", 429, `{}`, ErrRateLimited},
		{"empty posts", 200, `{"meta":{"status":200},"response":{"blog":{"name":"x"},"posts":[]}}`, ErrPostNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := New("k", srv.URL).FetchPost(context.Background(), "x", "1")
			require.ErrorIs(t, err, tc.want)
		})
	}

	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(502)
		}))
		defer srv.Close()
		_, err := New("k", srv.URL).FetchPost(context.Background(), "x", "1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
	})
}

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	return b, ok, nil
}

func (m *memCache) Put(_ context.Context, key string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = body
	return nil
}

func TestCached_FetchesOnce(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(okBody))
	}))
	defer srv.Close()

	mc := &memCache{data: map[string][]byte{}}
	c := NewCached(New("k", srv.URL), mc)

	for i := 0; i < 3; i++ {
		res, err := c.FetchPost(context.Background(), "staff", "123")
		require.NoError(t, err)
		assert.Equal(t, "staff", res.Post.BlogName)
	}
	assert.Equal(t, 1, calls)
	assert.Contains(t, mc.data, Key("staff", "123"))
}

func TestCached_ErrorsAreNotCached(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(404)
	}))
	defer srv.Close()

	mc := &memCache{data: map[string][]byte{}}
	_, err := NewCached(New("k", srv.URL), mc).FetchPost(context.Background(), "x", "1")
	require.ErrorIs(t, err, ErrPostNotFound)
	assert.Empty(t, mc.data)
}
