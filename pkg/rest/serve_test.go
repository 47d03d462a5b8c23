package rest

import(
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/hdr-fusion/pkg/estack"
	"github.com/abworrall/hdr-fusion/pkg/filter"
	"github.com/abworrall/hdr-fusion/pkg/fimage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func gradient(w, h int, gain float32) *fimage.Image {
	img := fimage.New(w, h, 3)
	for y:=0; y<h; y++ {
		for x:=0; x<w; x++ {
			v := gain * float32(x+y) / float32(w+h)
			copy(img.Pix(x, y), []float32{v, v, v})
		}
	}
	return img.CeilingAt(1.0)
}

func fuseRequest(t *testing.T, fields map[string]string, images ...*fimage.Image) *http.Request {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for i, img := range images {
		part, err := mw.CreateFormFile("exposures", []string{"a.png", "b.png", "c.png"}[i])
		require.NoError(t, err)
		require.NoError(t, img.Encode(part, ".png"))
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/fuse", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestPing(t *testing.T) {
	w := httptest.NewRecorder()
	NewRouter(estack.NewConfig()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pong")
}

func TestFusePNG(t *testing.T) {
	r := NewRouter(estack.NewConfig())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, fuseRequest(t, map[string]string{"wc": "0.5"}, gradient(24, 16, 0.5), gradient(24, 16, 2.0)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	img, err := imaging.Decode(w.Body)
	require.NoError(t, err)
	assert.Equal(t, 24, img.Bounds().Dx())
	assert.Equal(t, 16, img.Bounds().Dy())
}

func TestFuseHDRAndTonemapped(t *testing.T) {
	r := NewRouter(estack.NewConfig())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, fuseRequest(t, map[string]string{"format": "hdr"}, gradient(16, 16, 0.5), gradient(16, 16, 2.0)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	img, err := fimage.Decode(w.Body, ".hdr")
	require.NoError(t, err)
	assert.Equal(t, 16, img.Width)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, fuseRequest(t, map[string]string{"tonemapper": "fusion"}, gradient(16, 16, 0.5), gradient(16, 16, 2.0)))
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestFuseBadRequests(t *testing.T) {
	r := NewRouter(estack.NewConfig())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, fuseRequest(t, nil, gradient(8, 8, 1.0)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, fuseRequest(t, nil, gradient(8, 8, 1.0), gradient(9, 8, 1.0)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, fuseRequest(t, map[string]string{"ws": "lots"}, gradient(8, 8, 1.0), gradient(8, 8, 0.5)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, fuseRequest(t, map[string]string{"tonemapper": "nope"}, gradient(8, 8, 1.0), gradient(8, 8, 0.5)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// Requests run in parallel goroutines under gin; each must fuse the
// same as it would alone, whatever the process wide worker count.
func TestConcurrentFuseRequests(t *testing.T) {
	cfg := estack.NewConfig()
	cfg.Workers = 2
	r := NewRouter(cfg)

	weights := []string{"0.5", "1", "2", "3"}
	want := map[string][]byte{}
	for _, wc := range weights {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, fuseRequest(t, map[string]string{"wc": wc}, gradient(64, 48, 0.5), gradient(64, 48, 2.0)))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		want[wc] = w.Body.Bytes()
	}

	reqs := []*http.Request{}
	for i := 0; i < 4*len(weights); i++ {
		wc := weights[i%len(weights)]
		reqs = append(reqs, fuseRequest(t, map[string]string{"wc": wc}, gradient(64, 48, 0.5), gradient(64, 48, 2.0)))
	}
	recs := make([]*httptest.ResponseRecorder, len(reqs))

	old := filter.NumWorkers()
	defer filter.SetWorkers(old)

	var wg sync.WaitGroup
	for i := range reqs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			filter.SetWorkers(1 + i%3)
			recs[i] = httptest.NewRecorder()
			r.ServeHTTP(recs[i], reqs[i])
		}(i)
	}
	wg.Wait()

	for i, rec := range recs {
		wc := weights[i%len(weights)]
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, want[wc], rec.Body.Bytes(), fmt.Sprintf("request %d, wc=%s", i, wc))
	}
}
