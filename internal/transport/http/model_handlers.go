package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cwrk-planet/voice-testbench/internal/app/catalog"
	"github.com/cwrk-planet/voice-testbench/pkg/httputil"
)

type ModelHandlers struct {
	Catalog *catalog.Catalog
}

func (h *ModelHandlers) cat() *catalog.Catalog {
	if h.Catalog != nil {
		return h.Catalog
	}
	return catalog.Default()
}

// GET /api/models
func (h *ModelHandlers) Models(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, h.cat())
}

// GET /api/models/{kind}[?value=]
// Без value отдаём плоский список опций, с value одну опцию.
func (h *ModelHandlers) Kind(w http.ResponseWriter, r *http.Request) {
	c := h.cat()
	kind := catalog.Kind(chi.URLParam(r, "kind"))
	switch kind {
	case catalog.KindSTT, catalog.KindLLM, catalog.KindTTS:
	default:
		httputil.Error(r.Context(), w, http.StatusBadRequest, "kind must be stt|llm|tts", nil)
		return
	}

	value := r.URL.Query().Get("value")
	if value == "" {
		httputil.OK(w, c.Flatten(kind))
		return
	}
	opt, ok := c.Lookup(kind, value)
	if !ok {
		httputil.Error(r.Context(), w, http.StatusNotFound, "unknown model", map[string]any{"value": value})
		return
	}
	httputil.OK(w, opt)
}
