package controllers

import (
	"errors"
	"io"
	"net/http"
	"spd/internal/providers"
	"spd/internal/services"
	"spd/internal/storage"
	"spd/internal/storage/interfaces"
	"spd/internal/structures"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"
)

const defaultMaxBodySize = 32 * 1024

type ApiController struct {
	logger      providers.Logger
	service     services.PostServiceInterface
	cache       providers.CacheProviderInterface
	oversized   *currentBodies
	warnedLarge atomic.Bool
	encoders    *storage.ResponseEncoders
	maxBodySize int64
}

func NewApiController(conf *structures.Config, logger providers.Logger, service services.PostServiceInterface, cache providers.CacheProviderInterface, encoders *storage.ResponseEncoders) *ApiController {
	maxBodySize := conf.WebServer.MaxBodySize
	if maxBodySize <= 0 {
		maxBodySize = defaultMaxBodySize
	}
	return &ApiController{
		logger:      logger,
		service:     service,
		cache:       cache,
		oversized:   &currentBodies{},
		encoders:    encoders,
		maxBodySize: maxBodySize,
	}
}

// currentBodies keeps the compressed bodies of a single fingerprint that the
// shared cache refused to store. A new fingerprint replaces them.
type currentBodies struct {
	mu     sync.Mutex
	token  string
	bodies map[string][]byte
}

func (cb *currentBodies) get(token, encoding string) ([]byte, bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.token != token {
		return nil, false
	}
	body, ok := cb.bodies[encoding]
	return body, ok
}

func (cb *currentBodies) put(token, encoding string, body []byte) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.token != token {
		cb.token = token
		cb.bodies = make(map[string][]byte, 2)
	}
	cb.bodies[encoding] = body
}

// requestTokens returns the fingerprints the client already holds. The Cache
// header wins over If-None-Match, whose entries are all returned.
func requestTokens(r *http.Request) []string {
	if token := r.Header.Get(providers.TokenHeader); token != "" {
		return []string{token}
	}
	var tokens []string
	for _, inm := range r.Header.Values("If-None-Match") {
		for _, part := range strings.Split(inm, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if part == services.AnyToken {
				tokens = append(tokens, part)
				continue
			}
			part = strings.Trim(strings.TrimPrefix(part, "W/"), `"`)
			// Fingerprints are standard base64, so a dash only ever
			// separates a content-coding suffix.
			part, _, _ = strings.Cut(part, "-")
			tokens = append(tokens, part)
		}
	}
	return tokens
}

// acceptsEncoding reports whether the Accept-Encoding header allows coding.
func acceptsEncoding(header, coding string) bool {
	for _, part := range strings.Split(header, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if !strings.EqualFold(strings.TrimSpace(name), coding) {
			continue
		}
		q := strings.ReplaceAll(strings.TrimSpace(params), " ", "")
		return q != "q=0" && q != "q=0.0" && q != "q=0.00" && q != "q=0.000"
	}
	return false
}

// entityTag is the ETag of the body sent with encoding. Each content-coding
// is a different byte sequence and gets its own tag.
func entityTag(token, encoding string) string {
	if encoding == "" || encoding == storage.EncodingIdentity {
		return `"` + token + `"`
	}
	return `"` + token + "-" + encoding + `"`
}

func setToken(w http.ResponseWriter, token, encoding string) {
	w.Header().Set(providers.TokenHeader, token)
	w.Header().Set("ETag", entityTag(token, encoding))
}

// negotiate picks the first response encoder the client accepts, or nil for
// the identity coding.
func (ac *ApiController) negotiate(r *http.Request) interfaces.CompressorInterface {
	accept := r.Header.Get("Accept-Encoding")
	if accept == "" || ac.encoders == nil {
		return nil
	}
	for _, enc := range ac.encoders.List() {
		if acceptsEncoding(accept, enc.Encoding()) {
			return enc
		}
	}
	return nil
}

// compressed returns body encoded with enc for the given fingerprint, from
// the cache when possible.
func (ac *ApiController) compressed(r *http.Request, enc interfaces.CompressorInterface, body []byte, token string) ([]byte, error) {
	if out, ok := ac.oversized.get(token, enc.Encoding()); ok {
		return out, nil
	}
	cacheKey := enc.Encoding() + ":" + token
	if out, ok := ac.cache.Get(cacheKey); ok {
		return out, nil
	}

	out, err := enc.Compress(body)
	if err != nil {
		return nil, err
	}
	if err := ac.cache.Set(cacheKey, out); err != nil {
		ac.oversized.put(token, enc.Encoding(), out)
		if ac.warnedLarge.CompareAndSwap(false, true) {
			ac.logger.Warnf(providers.GetLogTypeByRequestType(r.Method), "%s body of %d bytes not cached (%s), keeping it for the current fingerprint only; raise cache.size to cache it", enc.Encoding(), len(out), err)
		}
	}
	return out, nil
}

// writeCollection sends body, compressed with the first coding the client
// accepts.
func (ac *ApiController) writeCollection(w http.ResponseWriter, r *http.Request, body []byte, token string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Add("Vary", "Accept-Encoding")

	if enc := ac.negotiate(r); enc != nil {
		out, err := ac.compressed(r, enc, body, token)
		if err == nil {
			setToken(w, token, enc.Encoding())
			w.Header().Set("Content-Encoding", enc.Encoding())
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(out)
			return
		}
		ac.logger.Warnf(providers.GetLogTypeByRequestType(r.Method), "%s compression failed: %s", enc.Encoding(), err)
	}

	setToken(w, token, storage.EncodingIdentity)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (ac *ApiController) Read(w http.ResponseWriter, r *http.Request) {
	res := ac.service.Read(requestTokens(r)...)

	if res.NotModified {
		encoding := storage.EncodingIdentity
		if enc := ac.negotiate(r); enc != nil {
			encoding = enc.Encoding()
		}
		setToken(w, res.Token, encoding)
		w.Header().Add("Vary", "Accept-Encoding")
		w.WriteHeader(http.StatusNotModified)
		return
	}
	ac.writeCollection(w, r, res.Body, res.Token)
}

func (ac *ApiController) Write(w http.ResponseWriter, r *http.Request) {
	requestId := providers.RequestIdFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, ac.maxBodySize)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "Payload Too Large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if !utf8.Valid(payload) {
		http.Error(w, "input should be utf-8", http.StatusUnprocessableEntity)
		return
	}

	res, err := ac.service.Write(string(payload))
	if err != nil {
		ac.logger.Errorf(providers.GetLogTypeByRequestType(r.Method), "[%s] write failed: %s", requestId, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	ac.logger.Debugf(providers.GetLogTypeByRequestType(r.Method), "[%s] stored post %d (%d bytes)", requestId, res.Post.Id, len(payload))

	ac.writeCollection(w, r, res.Body, res.Token)
}
