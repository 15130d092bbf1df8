package controllers

import (
	"encoding/base64"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"spd/internal/models"
	"spd/internal/providers"
	"spd/internal/services"
	"spd/internal/storage"
	"spd/internal/structures"
	"spd/internal/testutil"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- local mocks (scoped to controller tests) ---

type mockService struct {
	mu         sync.Mutex
	body       string
	writes     []string
	writeErr   error
	stats      services.CollectionStats
	readTokens []string
}

func (m *mockService) token() string { return models.Fingerprint([]byte(m.body)) }

func (m *mockService) Read(tokens ...string) services.ReadResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readTokens = append(m.readTokens, tokens...)
	for _, token := range tokens {
		if token == m.token() || token == services.AnyToken {
			return services.ReadResult{NotModified: true, Token: m.token()}
		}
	}
	return services.ReadResult{Body: []byte(m.body), Token: m.token()}
}

func (m *mockService) Write(content string) (services.WriteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return services.WriteResult{}, m.writeErr
	}
	m.writes = append(m.writes, content)
	m.body = `["` + strings.Join(m.writes, `","`) + `"]`
	return services.WriteResult{
		Post:  models.Post{Content: content, Id: uint64(len(m.writes) - 1)},
		Body:  []byte(m.body),
		Token: m.token(),
	}, nil
}

func (m *mockService) Stats() services.CollectionStats { return m.stats }

// countingCache records how often the controller stores compressed bodies.
type countingCache struct {
	inner     providers.CacheProviderInterface
	sets      int
	setErrors int
}

func (c *countingCache) Get(key string) ([]byte, bool) { return c.inner.Get(key) }

func (c *countingCache) Set(key string, value []byte) error {
	c.sets++
	err := c.inner.Set(key, value)
	if err != nil {
		c.setErrors++
	}
	return err
}

// --- helpers ---

func testConf(maxBody int64) *structures.Config {
	return &structures.Config{WebServer: structures.Server{MaxBodySize: maxBody}}
}

func newTestController(t *testing.T, svc *mockService, cache *testutil.MockCache) (*ApiController, *testutil.MockLogger) {
	t.Helper()
	encoders, err := storage.NewResponseEncoders()
	require.NoError(t, err)
	t.Cleanup(encoders.Close)
	logger := &testutil.MockLogger{}
	return NewApiController(testConf(64), logger, svc, cache, encoders), logger
}

// --- Read tests ---

func TestRead_NoToken(t *testing.T) {
	svc := &mockService{body: "[]"}
	ac, _ := newTestController(t, svc, testutil.NewMockCache())

	req := httptest.NewRequest(http.MethodGet, "/api/read", nil)
	rr := httptest.NewRecorder()
	ac.Read(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]", rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, svc.token(), rr.Header().Get(providers.TokenHeader))
	assert.Equal(t, `"`+svc.token()+`"`, rr.Header().Get("ETag"))
	assert.Empty(t, rr.Header().Get("Content-Encoding"))
}

func TestRead_MatchingTokenNotModified(t *testing.T) {
	svc := &mockService{body: "[]"}
	ac, _ := newTestController(t, svc, testutil.NewMockCache())

	req := httptest.NewRequest(http.MethodGet, "/api/read", nil)
	req.Header.Set(providers.TokenHeader, svc.token())
	rr := httptest.NewRecorder()
	ac.Read(rr, req)

	assert.Equal(t, http.StatusNotModified, rr.Code)
	assert.Empty(t, rr.Body.String())
	assert.Equal(t, svc.token(), rr.Header().Get(providers.TokenHeader))
}

func TestRead_StaleToken(t *testing.T) {
	svc := &mockService{body: `["a"]`}
	ac, _ := newTestController(t, svc, testutil.NewMockCache())

	req := httptest.NewRequest(http.MethodGet, "/api/read", nil)
	req.Header.Set(providers.TokenHeader, models.Fingerprint([]byte("[]")))
	rr := httptest.NewRecorder()
	ac.Read(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `["a"]`, rr.Body.String())
}

func TestRead_IfNoneMatch(t *testing.T) {
	svc := &mockService{body: "[]"}
	ac, _ := newTestController(t, svc, testutil.NewMockCache())

	req := httptest.NewRequest(http.MethodGet, "/api/read", nil)
	req.Header.Set("If-None-Match", `W/"`+svc.token()+`", "other"`)
	rr := httptest.NewRecorder()
	ac.Read(rr, req)

	assert.Equal(t, http.StatusNotModified, rr.Code)
}

func TestRead_IfNoneMatchAnyListedToken(t *testing.T) {
	svc := &mockService{body: `["b"]`}
	ac, _ := newTestController(t, svc, testutil.NewMockCache())

	req := httptest.NewRequest(http.MethodGet, "/api/read", nil)
	req.Header.Set("If-None-Match", `"`+models.Fingerprint([]byte("[]"))+`", "`+svc.token()+`"`)
	rr := httptest.NewRecorder()
	ac.Read(rr, req)

	assert.Equal(t, http.StatusNotModified, rr.Code)
	assert.Equal(t, svc.token(), rr.Header().Get(providers.TokenHeader))
}

func TestRead_IfNoneMatchWildcard(t *testing.T) {
	svc := &mockService{body: `["b"]`}
	ac, _ := newTestController(t, svc, testutil.NewMockCache())

	req := httptest.NewRequest(http.MethodGet, "/api/read", nil)
	req.Header.Set("If-None-Match", "*")
	rr := httptest.NewRecorder()
	ac.Read(rr, req)

	assert.Equal(t, http.StatusNotModified, rr.Code)
	assert.Equal(t, svc.token(), rr.Header().Get(providers.TokenHeader))
}

func TestRequestTokens(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/read", nil)
	req.Header.Set(providers.TokenHeader, "from-cache")
	req.Header.Set("If-None-Match", `"from-etag"`)
	assert.Equal(t, []string{"from-cache"}, requestTokens(req))

	req.Header.Del(providers.TokenHeader)
	assert.Equal(t, []string{"from-etag"}, requestTokens(req))

	req.Header.Set("If-None-Match", `"a+/=", W/"b-zstd" , *`)
	req.Header.Add("If-None-Match", `"c-gzip"`)
	assert.Equal(t, []string{"a+/=", "b", "*", "c"}, requestTokens(req))

	req.Header.Del("If-None-Match")
	assert.Empty(t, requestTokens(req))
}

func TestRead_EntityTagPerEncoding(t *testing.T) {
	svc := &mockService{body: `["e"]`}
	ac, _ := newTestController(t, svc, testutil.NewMockCache())

	get := func(accept, inm string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/read", nil)
		if accept != "" {
			req.Header.Set("Accept-Encoding", accept)
		}
		if inm != "" {
			req.Header.Set("If-None-Match", inm)
		}
		rr := httptest.NewRecorder()
		ac.Read(rr, req)
		return rr
	}

	identity := get("", "")
	zstdResp := get("zstd", "")
	gzipResp := get("gzip", "")
	assert.Equal(t, `"`+svc.token()+`"`, identity.Header().Get("ETag"))
	assert.Equal(t, `"`+svc.token()+`-zstd"`, zstdResp.Header().Get("ETag"))
	assert.Equal(t, `"`+svc.token()+`-gzip"`, gzipResp.Header().Get("ETag"))

	// all three carry the same collection token
	assert.Equal(t, svc.token(), zstdResp.Header().Get(providers.TokenHeader))
	assert.Equal(t, svc.token(), gzipResp.Header().Get(providers.TokenHeader))

	notModified := get("zstd", zstdResp.Header().Get("ETag"))
	assert.Equal(t, http.StatusNotModified, notModified.Code)
	assert.Equal(t, zstdResp.Header().Get("ETag"), notModified.Header().Get("ETag"))
	assert.Equal(t, "Accept-Encoding", notModified.Header().Get("Vary"))
}

func TestRead_BodyTooLargeForCacheCompressedOnce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var posts []string
	for i := 0; i < 20; i++ {
		raw := make([]byte, 768)
		rng.Read(raw)
		posts = append(posts, base64.StdEncoding.EncodeToString(raw))
	}
	svc := &mockService{body: `["` + strings.Join(posts, `","`) + `"]`}

	conf := &structures.Config{Cache: structures.CacheConfig{Enabled: true, Size: 1, TTL: time.Minute}}
	cache := &countingCache{inner: providers.NewCacheProvider(conf, &testutil.MockLogger{})}
	encoders, err := storage.NewResponseEncoders()
	require.NoError(t, err)
	t.Cleanup(encoders.Close)
	logger := &testutil.MockLogger{}
	ac := NewApiController(testConf(64), logger, svc, cache, encoders)

	var first []byte
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/read", nil)
		req.Header.Set("Accept-Encoding", "zstd")
		rr := httptest.NewRecorder()
		ac.Read(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		require.Equal(t, "zstd", rr.Header().Get("Content-Encoding"))
		if first == nil {
			first = rr.Body.Bytes()
			require.Greater(t, len(first), providers.MaxEntrySize(1))
		} else {
			assert.Equal(t, first, rr.Body.Bytes())
		}
	}

	assert.Equal(t, 1, cache.sets, "body should be compressed once")
	assert.Equal(t, 1, cache.setErrors)
	assert.Equal(t, 1, logger.Count("warn"))

	// a new fingerprint replaces the kept body
	svc.body = `["small"]`
	req := httptest.NewRequest(http.MethodGet, "/api/read", nil)
	req.Header.Set("Accept-Encoding", "zstd")
	rr := httptest.NewRecorder()
	ac.Read(rr, req)
	dec, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()
	plain, err := dec.DecodeAll(rr.Body.Bytes(), nil)
	require.NoError(t, err)
	assert.Equal(t, `["small"]`, string(plain))
	assert.Equal(t, 2, cache.sets)
	assert.Equal(t, 1, cache.setErrors)
}

func TestRead_CacheSetErrorStillServes(t *testing.T) {
	svc := &mockService{body: `["x"]`}
	cache := testutil.NewMockCache()
	cache.SetErr = errors.New("full")
	ac, logger := newTestController(t, svc, cache)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/read", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		rr := httptest.NewRecorder()
		ac.Read(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "gzip", rr.Header().Get("Content-Encoding"))
	}
	assert.Equal(t, 1, cache.Sets)
	require.Equal(t, 1, logger.Count("warn"))
	assert.Equal(t, providers.TypeGet, logger.Logs[0].Type)
}

func TestRead_ZstdEncodingCached(t *testing.T) {
	svc := &mockService{body: `["` + strings.Repeat("z", 500) + `"]`}
	cache := testutil.NewMockCache()
	ac, _ := newTestController(t, svc, cache)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/read", nil)
		req.Header.Set("Accept-Encoding", "gzip, zstd")
		rr := httptest.NewRecorder()
		ac.Read(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "zstd", rr.Header().Get("Content-Encoding"))
		assert.Equal(t, "Accept-Encoding", rr.Header().Get("Vary"))

		dec, err := zstd.NewReader(nil)
		require.NoError(t, err)
		plain, err := dec.DecodeAll(rr.Body.Bytes(), nil)
		dec.Close()
		require.NoError(t, err)
		assert.Equal(t, svc.body, string(plain))
	}

	_, ok := cache.Get("zstd:" + svc.token())
	assert.True(t, ok)
	assert.Len(t, cache.Data, 1)
}

func TestRead_GzipEncoding(t *testing.T) {
	svc := &mockService{body: `["g"]`}
	ac, _ := newTestController(t, svc, testutil.NewMockCache())

	req := httptest.NewRequest(http.MethodGet, "/api/read", nil)
	req.Header.Set("Accept-Encoding", "gzip, zstd;q=0")
	rr := httptest.NewRecorder()
	ac.Read(rr, req)

	assert.Equal(t, "gzip", rr.Header().Get("Content-Encoding"))
	plain, err := storage.NewGzipCompressor().Decompress(rr.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, `["g"]`, string(plain))
}

func TestRead_UnsupportedEncodingFallsBackToIdentity(t *testing.T) {
	svc := &mockService{body: "[]"}
	ac, _ := newTestController(t, svc, testutil.NewMockCache())

	req := httptest.NewRequest(http.MethodGet, "/api/read", nil)
	req.Header.Set("Accept-Encoding", "br")
	rr := httptest.NewRecorder()
	ac.Read(rr, req)

	assert.Empty(t, rr.Header().Get("Content-Encoding"))
	assert.Equal(t, "[]", rr.Body.String())
}

func TestAcceptsEncoding(t *testing.T) {
	tests := []struct {
		header string
		coding string
		want   bool
	}{
		{"zstd", "zstd", true},
		{"gzip, deflate, br, zstd", "zstd", true},
		{"GZIP", "gzip", true},
		{"gzip;q=0.5", "gzip", true},
		{"gzip; q=0", "gzip", false},
		{"zstd;q=0.000", "zstd", false},
		{"br", "gzip", false},
		{"", "gzip", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, acceptsEncoding(tt.header, tt.coding), "%q / %q", tt.header, tt.coding)
	}
}

// --- Write tests ---

func TestWrite_ValidPayload(t *testing.T) {
	svc := &mockService{body: "[]"}
	ac, _ := newTestController(t, svc, testutil.NewMockCache())

	req := httptest.NewRequest(http.MethodPost, "/api/write", strings.NewReader("hello"))
	rr := httptest.NewRecorder()
	ac.Write(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"hello"}, svc.writes)
	assert.Equal(t, `["hello"]`, rr.Body.String())
	assert.Equal(t, svc.token(), rr.Header().Get(providers.TokenHeader))
}

func TestWrite_EmptyBodyAccepted(t *testing.T) {
	svc := &mockService{body: "[]"}
	ac, _ := newTestController(t, svc, testutil.NewMockCache())

	req := httptest.NewRequest(http.MethodPost, "/api/write", strings.NewReader(""))
	rr := httptest.NewRecorder()
	ac.Write(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{""}, svc.writes)
}

func TestWrite_BodyAtLimit(t *testing.T) {
	svc := &mockService{body: "[]"}
	ac, _ := newTestController(t, svc, testutil.NewMockCache())

	req := httptest.NewRequest(http.MethodPost, "/api/write", strings.NewReader(strings.Repeat("x", 64)))
	rr := httptest.NewRecorder()
	ac.Write(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestWrite_OversizedBody(t *testing.T) {
	svc := &mockService{body: "[]"}
	ac, _ := newTestController(t, svc, testutil.NewMockCache())

	req := httptest.NewRequest(http.MethodPost, "/api/write", strings.NewReader(strings.Repeat("x", 65)))
	rr := httptest.NewRecorder()
	ac.Write(rr, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Empty(t, svc.writes)
}

func TestWrite_InvalidUTF8(t *testing.T) {
	svc := &mockService{body: "[]"}
	ac, _ := newTestController(t, svc, testutil.NewMockCache())

	req := httptest.NewRequest(http.MethodPost, "/api/write", strings.NewReader("\xff\xfe"))
	rr := httptest.NewRecorder()
	ac.Write(rr, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "input should be utf-8")
	assert.Empty(t, svc.writes)
}

func TestWrite_ServiceError(t *testing.T) {
	svc := &mockService{body: "[]", writeErr: errors.New("disk full")}
	ac, logger := newTestController(t, svc, testutil.NewMockCache())

	req := httptest.NewRequest(http.MethodPost, "/api/write", strings.NewReader("x"))
	rr := httptest.NewRecorder()
	ac.Write(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Empty(t, rr.Header().Get(providers.TokenHeader))
	require.Equal(t, 1, logger.Count("error"))
	assert.Equal(t, providers.TypePost, logger.Logs[len(logger.Logs)-1].Type)
}

func TestNewApiController_DefaultBodyLimit(t *testing.T) {
	ac := NewApiController(testConf(0), &testutil.MockLogger{}, &mockService{}, testutil.NewMockCache(), nil)
	assert.Equal(t, int64(defaultMaxBodySize), ac.maxBodySize)
}

// --- end to end with the real service ---

func TestReadWrite_WithPostService(t *testing.T) {
	svc, err := services.NewPostService(testutil.NewMockStore("[]"), &testutil.MockLogger{}, &testutil.MockMetrics{})
	require.NoError(t, err)
	ac := NewApiController(testConf(1024), &testutil.MockLogger{}, svc, testutil.NewMockCache(), nil)

	write := func(content string) string {
		rr := httptest.NewRecorder()
		ac.Write(rr, httptest.NewRequest(http.MethodPost, "/api/write", strings.NewReader(content)))
		require.Equal(t, http.StatusOK, rr.Code)
		return rr.Header().Get(providers.TokenHeader)
	}
	read := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/read", nil)
		req.Header.Set(providers.TokenHeader, token)
		rr := httptest.NewRecorder()
		ac.Read(rr, req)
		return rr
	}

	h1 := write("hello")
	assert.Equal(t, http.StatusNotModified, read(h1).Code)

	h2 := write("world")
	assert.NotEqual(t, h1, h2)

	rr := read(h1)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, h2, rr.Header().Get(providers.TokenHeader))
	assert.Contains(t, rr.Body.String(), `"content":"hello"`)
	assert.Contains(t, rr.Body.String(), `"content":"world"`)
}
