package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/wxrelay/wxrelay/internal/cache"
	"github.com/wxrelay/wxrelay/internal/config"
	"github.com/wxrelay/wxrelay/internal/router"
)

// cacheKeyPrefix namespaces /data entries in the shared cache.
const cacheKeyPrefix = "data:"

// DataResponse is the envelope for a successful /data response.
type DataResponse struct {
	FetchedAt time.Time       `json:"fetched_at"`
	Provider  string          `json:"provider"`
	Payload   json.RawMessage `json:"payload"`
	Cached    bool            `json:"cached"`
}

// UnavailableResponse is the stub body returned with 503 when every provider
// is down. Callers get a well-formed document instead of a bare error so
// dashboards keep rendering.
type UnavailableResponse struct {
	Timestamp time.Time `json:"timestamp"`
	City      string    `json:"city"`
	Condition string    `json:"condition"`
	Message   string    `json:"message"`
}

// DataHandler serves GET /data?city=X through the failover orchestrator with
// a short-TTL response cache in front.
type DataHandler struct {
	orch    *router.Orchestrator
	cache   cache.Cache
	runtime config.RuntimeConfig
}

// NewDataHandler creates the /data handler. The cache TTL is read through the
// runtime config on every store so reloads take effect without a restart.
func NewDataHandler(orch *router.Orchestrator, responseCache cache.Cache, runtime config.RuntimeConfig) *DataHandler {
	return &DataHandler{
		orch:    orch,
		cache:   responseCache,
		runtime: runtime,
	}
}

func (h *DataHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	city := r.URL.Query().Get("city")
	if city == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "query parameter 'city' is required")
		return
	}

	if entry, ok := h.lookupCache(ctx, city); ok {
		logger.Debug().Str("city", city).Str("provider", entry.Provider).Msg("cache hit")
		w.Header().Set(HeaderProvider, entry.Provider)
		entry.Cached = true
		writeJSON(w, http.StatusOK, entry)
		return
	}

	result, err := h.orch.Fetch(ctx, city)
	if err != nil {
		h.writeFetchError(w, logger, city, err)
		return
	}

	response := DataResponse{
		Provider:  result.Provider,
		Payload:   result.Payload,
		FetchedAt: time.Now().UTC(),
	}
	h.storeCache(ctx, city, response, logger)

	w.Header().Set(HeaderProvider, result.Provider)
	writeJSON(w, http.StatusOK, response)
}

func (h *DataHandler) writeFetchError(w http.ResponseWriter, logger *zerolog.Logger, city string, err error) {
	switch {
	case errors.Is(err, router.ErrAllProvidersUnavailable), errors.Is(err, router.ErrNoProviders):
		logger.Error().Str("city", city).Err(err).Msg("no provider could serve request")
		writeJSON(w, http.StatusServiceUnavailable, UnavailableResponse{
			City:      city,
			Condition: "Unavailable",
			Message:   "all weather providers are currently unavailable, please retry later",
			Timestamp: time.Now().UTC(),
		})
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to write.
		logger.Debug().Str("city", city).Msg("request canceled")
	default:
		logger.Error().Str("city", city).Err(err).Msg("fetch failed")
		WriteError(w, http.StatusBadGateway, "upstream_error", err.Error())
	}
}

func (h *DataHandler) lookupCache(ctx context.Context, city string) (DataResponse, bool) {
	if h.cache == nil {
		return DataResponse{}, false
	}

	raw, err := h.cache.Get(ctx, cacheKeyPrefix+city)
	if err != nil {
		return DataResponse{}, false
	}

	var entry DataResponse
	if err := json.Unmarshal(raw, &entry); err != nil {
		return DataResponse{}, false
	}
	return entry, true
}

func (h *DataHandler) storeCache(ctx context.Context, city string, entry DataResponse, logger *zerolog.Logger) {
	if h.cache == nil || h.runtime == nil {
		return
	}
	ttl := h.runtime.Get().Cache.GetTTL()
	if ttl <= 0 {
		return
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := h.cache.SetWithTTL(ctx, cacheKeyPrefix+city, raw, ttl); err != nil {
		logger.Debug().Str("city", city).Err(err).Msg("cache store failed")
	}
}
