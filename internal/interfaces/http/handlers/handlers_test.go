package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Opinion-Intelligence/internal/application/annotation"
	"github.com/turtacn/Opinion-Intelligence/internal/intelligence/common"
	"github.com/turtacn/Opinion-Intelligence/internal/interfaces/http/middleware"
	"github.com/turtacn/Opinion-Intelligence/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAnnotator struct {
	mu  sync.Mutex
	got []string
	res *annotation.Result
	err error
}

func (s *stubAnnotator) Kind() annotation.Kind { return annotation.KindABSA }

func (s *stubAnnotator) Annotate(_ context.Context, payload []byte) (*annotation.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, string(payload))
	return s.res, s.err
}

func newEngine(register func(r *gin.Engine)) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	register(r)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(body)))
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestAnnotate_Success(t *testing.T) {
	a := &stubAnnotator{res: &annotation.Result{Output: []byte("<NAF/>"), Opinions: 2, Sentiments: 1}}
	h := NewAnnotateHandler(a, nil, nil)
	r := newEngine(func(r *gin.Engine) { r.POST("/annotate", h.Annotate) })

	w := do(r, http.MethodPost, "/annotate", "<NAF xml:lang=\"en\"/>")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<NAF/>", w.Body.String())
	assert.Equal(t, "2", w.Header().Get(HeaderOpinions))
	assert.Equal(t, "1", w.Header().Get(HeaderSentiments))
	assert.Equal(t, ContentTypeNAF, w.Header().Get("Content-Type"))
	assert.Equal(t, []string{"<NAF xml:lang=\"en\"/>"}, a.got)
}

func TestAnnotate_EmptyBody(t *testing.T) {
	a := &stubAnnotator{}
	h := NewAnnotateHandler(a, nil, nil)
	r := newEngine(func(r *gin.Engine) { r.POST("/annotate", h.Annotate) })

	w := do(r, http.MethodPost, "/annotate", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, string(errors.ErrCodeDocumentEmpty), resp.Code)
	assert.NotEmpty(t, resp.RequestID)
	assert.Empty(t, a.got)
}

func TestAnnotate_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		masked bool
	}{
		{"malformed", errors.New(errors.ErrCodeDocumentMalformed, "bad xml"), http.StatusBadRequest, false},
		{"language", errors.New(errors.ErrCodeLanguageMismatch, "de != en"), http.StatusUnprocessableEntity, false},
		{"classifier", errors.New(errors.ErrCodeClassifierFailed, "model crashed at /srv/models"), http.StatusInternalServerError, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAnnotateHandler(&stubAnnotator{err: tt.err}, nil, nil)
			r := newEngine(func(r *gin.Engine) { r.POST("/annotate", h.Annotate) })

			w := do(r, http.MethodPost, "/annotate", "<NAF/>")

			assert.Equal(t, tt.status, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, string(errors.GetCode(tt.err)), resp.Code)
			if tt.masked {
				assert.NotContains(t, resp.Message, "/srv/models")
			} else {
				assert.Contains(t, resp.Message, tt.err.Error())
			}
		})
	}
}

func TestAnnotate_BodyTooLarge(t *testing.T) {
	a := &stubAnnotator{}
	h := NewAnnotateHandler(a, nil, nil)
	h.maxBodyBytes = 4
	r := newEngine(func(r *gin.Engine) { r.POST("/annotate", h.Annotate) })

	w := do(r, http.MethodPost, "/annotate", "<NAF></NAF>")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, a.got)
}

func TestHealth_Liveness(t *testing.T) {
	h := NewHealthHandler("1.2.3")
	r := newEngine(func(r *gin.Engine) { r.GET("/healthz", h.Liveness) })

	w := do(r, http.MethodGet, "/healthz", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp LivenessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "alive", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
}

func TestHealth_Readiness(t *testing.T) {
	ok := CheckFunc{CheckName: "redis", Fn: func(context.Context) error { return nil }}
	bad := CheckFunc{CheckName: "models", Fn: func(context.Context) error {
		return errors.New(errors.ErrCodeModelNotFound, "no model loaded")
	}}

	t.Run("no checkers", func(t *testing.T) {
		h := NewHealthHandler("v")
		r := newEngine(func(r *gin.Engine) { r.GET("/readyz", h.Readiness) })
		assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/readyz", "").Code)
	})

	t.Run("all healthy", func(t *testing.T) {
		h := NewHealthHandler("v", ok)
		r := newEngine(func(r *gin.Engine) { r.GET("/readyz", h.Readiness) })
		w := do(r, http.MethodGet, "/readyz", "")
		require.Equal(t, http.StatusOK, w.Code)
		var resp ReadinessResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "healthy", resp.Components["redis"].Status)
	})

	t.Run("one failing", func(t *testing.T) {
		h := NewHealthHandler("v", ok, bad)
		r := newEngine(func(r *gin.Engine) { r.GET("/readyz", h.Readiness) })
		w := do(r, http.MethodGet, "/readyz", "")
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		var resp ReadinessResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "not_ready", resp.Status)
		assert.Equal(t, "unhealthy", resp.Components["models"].Status)
		assert.Contains(t, resp.Components["models"].Error, "no model loaded")
	})
}

func TestModels(t *testing.T) {
	reg := common.NewModelRegistry(nil)
	h := NewModelsHandler(reg, "absa")
	r := newEngine(func(r *gin.Engine) {
		r.GET("/models", h.List)
		r.GET("/models/:name", h.Get)
	})

	assert.Error(t, ModelsLoaded(reg).Check(context.Background()))

	reg.Replace(common.ModelMetadata{Name: "en-pol", Kind: common.KindDocumentClassifier, Location: "s3://models/en-pol.yaml"})
	reg.Replace(common.ModelMetadata{Name: "en-ote", Kind: common.KindSequenceLabeler, Location: "/srv/en-ote.yaml"})
	assert.NoError(t, ModelsLoaded(reg).Check(context.Background()))

	w := do(r, http.MethodGet, "/models", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list ModelsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, "absa", list.Task)
	require.Len(t, list.Models, 2)
	assert.Equal(t, "en-ote", list.Models[0].Name)

	w = do(r, http.MethodGet, "/models/en-pol", "")
	require.Equal(t, http.StatusOK, w.Code)
	var meta common.ModelMetadata
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &meta))
	assert.Equal(t, common.KindDocumentClassifier, meta.Kind)

	w = do(r, http.MethodGet, "/models/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(errors.ErrCodeNotFound), decodeError(t, w).Code)
}
