package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/slicecontour/internal/cache"
	"github.com/example/slicecontour/internal/contour"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func newTestClient(t *testing.T, h http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, opts...)
	require.NoError(t, err)
	return c
}

func TestFetchImage(t *testing.T) {
	var hits int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "/files/abc/12/clean", r.URL.Path)
		_, err := uuid.Parse(r.Header.Get(RequestIDHeader))
		assert.NoError(t, err, "request id should be a uuid")
		_, _ = w.Write([]byte("raster"))
	}))

	data, err := c.FetchImage(context.Background(), "abc", 12)
	require.NoError(t, err)
	assert.Equal(t, "raster", string(data))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestFetchImageUsesCache(t *testing.T) {
	var hits int32
	kv, err := cache.Open(filepath.Join(t.TempDir(), "c.db"), cache.Options{})
	require.NoError(t, err)
	defer func() { _ = kv.Close() }()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte("raster"))
	}), WithCache(kv))

	for i := 0; i < 3; i++ {
		data, err := c.FetchImage(context.Background(), "abc", 1)
		require.NoError(t, err)
		assert.Equal(t, "raster", string(data))
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestFetchErrors(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/files/missing"):
			http.NotFound(w, r)
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))

	_, err := c.FetchImage(context.Background(), "missing", 0)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.FetchImage(context.Background(), "broken", 0)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.Code)
	assert.Equal(t, "boom", se.Body)
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.FetchImage(context.Background(), "abc", 0)
	var ne *NetworkError
	assert.True(t, errors.As(err, &ne), "got %v", err)
}

func TestFetchContourMissing(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/contours/abc/1":
			http.NotFound(w, r)
		case "/contours/abc/2":
			w.WriteHeader(http.StatusOK)
		default:
			_, _ = w.Write([]byte(`[[10,20]]`))
		}
	}))

	data, err := c.FetchContour(context.Background(), "abc", 1)
	require.NoError(t, err)
	assert.Nil(t, data)

	data, err = c.FetchContour(context.Background(), "abc", 2)
	require.NoError(t, err)
	assert.Nil(t, data)

	data, err = c.FetchContour(context.Background(), "abc", 3)
	require.NoError(t, err)
	assert.Equal(t, `[[10,20]]`, string(data))
}

func TestSaveContourEmptySendsArray(t *testing.T) {
	var got []byte
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/contours/abc/12/save", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		got, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{}`))
	}))

	require.NoError(t, c.SaveContour(context.Background(), "abc", 12, contour.New()))
	assert.JSONEq(t, `{"points":[]}`, string(got))

	require.NoError(t, c.SaveContour(context.Background(), "abc", 12, nil))
	assert.JSONEq(t, `{"points":[]}`, string(got))

	require.NoError(t, c.SaveContour(context.Background(), "abc", 12, contour.New(contour.Pt(1, 2))))
	assert.JSONEq(t, `{"points":[[1,2]]}`, string(got))
}

func TestUpload(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload", r.URL.Path)
		mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		assert.Equal(t, "multipart/form-data", mt)
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		body, _ := io.ReadAll(f)
		assert.Equal(t, "scan.nii", hdr.Filename)
		assert.Equal(t, "volume", string(body))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"uuid": "abc", "filename": "scan.nii", "size_bytes": 6, "num_slices": 40, "is_public": false,
		})
	}))

	res, err := c.Upload(context.Background(), "/tmp/scan.nii", strings.NewReader("volume"))
	require.NoError(t, err)
	assert.Equal(t, "abc", res.UUID)
	assert.Equal(t, 40, res.NumSlices)

	_, err = c.Upload(context.Background(), "scan.png", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrNotNIfTI)
}

func TestPredictCachedAndInvalidated(t *testing.T) {
	var hits int32
	kv, err := cache.Open(filepath.Join(t.TempDir(), "c.db"), cache.Options{})
	require.NoError(t, err)
	defer func() { _ = kv.Close() }()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "abc", req["uuid_file"])
		assert.Equal(t, float64(7), req["num_images"])
		_, _ = w.Write([]byte("overlay"))
	}), WithCache(kv))

	ctx := context.Background()
	_, err = c.Predict(ctx, "abc", 7)
	require.NoError(t, err)
	_, err = c.Predict(ctx, "abc", 7)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	require.NoError(t, c.InvalidatePrediction(ctx, "abc", 7))
	_, err = c.Predict(ctx, "abc", 7)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestProfile(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/photos", r.URL.Path)
		_, _ = w.Write([]byte(`{"saved_photos_direct":[{"uuid":"p1","name":"a","file_uuid":"f","num_images":3,"url":"u"}],"contours":[{"id":1,"version":2,"file_uuid":"f","num_images":3}]}`))
	}))

	p, err := c.Profile(context.Background())
	require.NoError(t, err)
	require.Len(t, p.Photos, 1)
	assert.Equal(t, "p1", p.Photos[0].UUID)
	require.Len(t, p.Contours, 1)
	assert.Equal(t, 2, p.Contours[0].Version)
}

func TestRefreshOnUnauthorized(t *testing.T) {
	var refreshes int32
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshes, 1)
		ck, err := r.Cookie(RefreshCookie)
		require.NoError(t, err)
		assert.Equal(t, "r1", ck.Value)
		_, _ = w.Write([]byte(`{"token_type":"Bearer","accessToken":"fresh"}`))
	})
	mux.HandleFunc("/files/abc/1/clean", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})

	store := &MemoryStore{}
	require.NoError(t, store.Save(Tokens{Access: "stale", Refresh: "r1"}))
	c := newTestClient(t, mux, WithTokenStore(store))

	data, err := c.FetchImage(context.Background(), "abc", 1)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshes))

	tok, _ := store.Load()
	assert.Equal(t, Tokens{Access: "fresh", Refresh: "r1"}, tok)
}

func TestFailedRefreshClearsTokens(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/photos", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	store := &MemoryStore{}
	require.NoError(t, store.Save(Tokens{Access: "stale", Refresh: "gone"}))
	c := newTestClient(t, mux, WithTokenStore(store))

	_, err := c.Profile(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "no retry after a failed refresh")
	assert.False(t, c.Authenticated())
}

func TestRetryOnlyOnce(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"accessToken":"still-bad"}`))
	})
	mux.HandleFunc("/photos", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	})
	c := newTestClient(t, mux)

	_, err := c.Profile(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestLoginAndLogout(t *testing.T) {
	keyring.MockInit()
	var loggedOut int32
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "secret123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: RefreshCookie, Value: "refresh-1"})
		_, _ = w.Write([]byte(`{"token_type":"Bearer","accessToken":"access-1"}`))
	})
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&loggedOut, 1)
		_, _ = w.Write([]byte(`{}`))
	})

	store := NewKeyringStore("http://test")
	c := newTestClient(t, mux, WithTokenStore(store))

	err := c.Login(context.Background(), "a@b.c", "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, c.Login(context.Background(), "a@b.c", "secret123"))
	tok, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, Tokens{Access: "access-1", Refresh: "refresh-1"}, tok)
	assert.True(t, c.Authenticated())

	require.NoError(t, c.Logout(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&loggedOut))
	assert.False(t, c.Authenticated())
	require.NoError(t, store.Clear())
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
	_, err = New("ftp://example.com")
	assert.Error(t, err)
}

func TestConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	var refreshes, rejected int32
	bothRejected := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshes, 1)
		_, _ = w.Write([]byte(`{"token_type":"Bearer","accessToken":"fresh"}`))
	})
	mux.HandleFunc("/contours/abc/1", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer fresh" {
			_, _ = w.Write([]byte(`[[1,2]]`))
			return
		}
		// Hold both requests until each has been sent with the old token.
		if atomic.AddInt32(&rejected, 1) == 2 {
			close(bothRejected)
		}
		select {
		case <-bothRejected:
		case <-time.After(2 * time.Second):
		}
		w.WriteHeader(http.StatusUnauthorized)
	})

	store := &MemoryStore{}
	require.NoError(t, store.Save(Tokens{Access: "stale", Refresh: "r1"}))
	c := newTestClient(t, mux, WithTokenStore(store))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.FetchContour(context.Background(), "abc", 1)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&rejected))
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshes))
}

func TestRegister(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/registration", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"name": "Ann", "email": "a@b.c", "password": "pw"}, body)
		http.SetCookie(w, &http.Cookie{Name: RefreshCookie, Value: "refresh-2"})
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"token_type":"Bearer","accessToken":"access-2"}`))
	})
	store := &MemoryStore{}
	c := newTestClient(t, mux, WithTokenStore(store))

	assert.Error(t, c.Register(context.Background(), "", "a@b.c", "pw"))
	require.NoError(t, c.Register(context.Background(), "Ann", "a@b.c", "pw"))
	tok, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, Tokens{Access: "access-2", Refresh: "refresh-2"}, tok)
}

func TestSavePhoto(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/photos/save", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "abc", body["uuid_file"])
		assert.Equal(t, float64(7), body["num_images"])
		_, _ = w.Write([]byte(`{"uuid":"p9","name":"abc-7","file_uuid":"abc","num_images":7,"url":"s3://x"}`))
	}))

	p, err := c.SavePhoto(context.Background(), "abc", 7)
	require.NoError(t, err)
	assert.Equal(t, "p9", p.UUID)
	assert.Equal(t, 7, p.NumImages)
}
