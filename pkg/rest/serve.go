package rest

import(
	"bytes"
	"fmt"
	"image"
	"log"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"

	"github.com/abworrall/hdr-fusion/pkg/estack"
	"github.com/abworrall/hdr-fusion/pkg/fimage"
)

// Serve runs the HTTP API until it fails. `cfg` supplies the defaults
// for every request.
func Serve(addr string, cfg estack.Config) error {
	log.Printf("Serving on %s\n", addr)
	return NewRouter(cfg).Run(addr)
}

func NewRouter(cfg estack.Config) *gin.Engine {
	r := gin.Default()
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET ("/ping", getPing)
			v1.POST("/fuse", postFuse(cfg))
		}
	}
	return r
}

func getPing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// postFuse fuses the multipart files named `exposures`. Optional form
// fields: wc, we, ws (weights), tonemapper, format=hdr.
func postFuse(cfg estack.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		form, err := c.MultipartForm()
		if err != nil {
			badRequest(c, err)
			return
		}
		files := form.File["exposures"]
		if len(files) < 2 {
			badRequest(c, fmt.Errorf("need at least 2 exposures, got %d", len(files)))
			return
		}

		s := estack.NewStack()
		s.Config = cfg
		s.OutputFilename, s.HDRFilename = "", ""

		for _, w := range []struct{
			field  string
			val   *float64
		}{
			{"wc", &s.WeightContrast},
			{"we", &s.WeightExposedness},
			{"ws", &s.WeightSaturation},
		} {
			if str := c.PostForm(w.field); str != "" {
				if *w.val, err = strconv.ParseFloat(str, 64); err != nil {
					badRequest(c, fmt.Errorf("parse %s '%s': %v", w.field, str, err))
					return
				}
			}
		}

		for _, fh := range files {
			f, err := fh.Open()
			if err != nil {
				badRequest(c, fmt.Errorf("open '%s': %v", fh.Filename, err))
				return
			}
			img, err := fimage.Decode(f, filepath.Ext(fh.Filename))
			f.Close()
			if err != nil {
				badRequest(c, fmt.Errorf("decode '%s': %v", fh.Filename, err))
				return
			}
			s.AddLayer(estack.NewLayer(fh.Filename, img))
		}

		if err := s.Fuse(); err != nil {
			badRequest(c, err)
			return
		}

		var buf bytes.Buffer

		if c.PostForm("format") == "hdr" {
			if err := s.Linear().Encode(&buf, ".hdr"); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.Data(http.StatusOK, "image/vnd.radiance", buf.Bytes())
			return
		}

		var out image.Image = s.Display().ToLDR()
		if name := c.PostForm("tonemapper"); name != "" {
			if out, err = s.TonemapWith(name); err != nil {
				badRequest(c, err)
				return
			}
		}
		if err := imaging.Encode(&buf, out, imaging.PNG); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "image/png", buf.Bytes())
	}
}
