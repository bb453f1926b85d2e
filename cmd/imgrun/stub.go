package main

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/imgrun/imgrun/internal/common"
	"github.com/spf13/cobra"
)

var (
	stubAddr  string
	stubToken string
)

var stubCmd = &cobra.Command{
	Use:   "stub",
	Short: "Serve a local fake text-to-image endpoint for development and CI",
	Long: `Serve a local text-to-image endpoint that returns a deterministic JPEG
derived from the prompt. Requests must carry a bearer credential; with
--token set only that exact value is accepted. The endpoint honors the
Accept header: image/jpeg returns raw bytes, anything else returns JSON
with a base64 payload.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine := newStubRouter(stubToken)
		common.GetLogger().WithComponent("stub").Info("stub server listening", "addr", stubAddr)
		return engine.Run(stubAddr)
	},
}

func init() {
	stubCmd.Flags().StringVar(&stubAddr, "addr", ":8089", "listen address for the stub server")
	stubCmd.Flags().StringVar(&stubToken, "token", "", "bearer token to require (empty accepts any non-empty token)")
}

// newStubRouter builds the gin engine serving the fake generation endpoint.
func newStubRouter(token string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	engine.POST("/v1/images/generations", func(c *gin.Context) {
		if !bearerAccepted(c.GetHeader("Authorization"), token) {
			c.String(http.StatusForbidden, "invalid api key")
			return
		}

		var body struct {
			Prompt string `json:"prompt"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if strings.TrimSpace(body.Prompt) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
			return
		}

		img, err := renderStubJPEG(body.Prompt)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		if strings.Contains(c.GetHeader("Accept"), "image/jpeg") {
			c.Data(http.StatusOK, "image/jpeg", img)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"data": []gin.H{{"b64_json": base64.StdEncoding.EncodeToString(img)}},
		})
	})

	return engine
}

// bearerAccepted checks the Authorization header against the configured token.
// An empty configured token accepts any non-empty bearer value.
func bearerAccepted(header, token string) bool {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	got := strings.TrimSpace(header[len(prefix):])
	if got == "" {
		return false
	}
	if token == "" {
		return true
	}
	return got == token
}

// renderStubJPEG encodes a small JPEG whose pixels derive from the prompt, so
// identical prompts produce identical bytes.
func renderStubJPEG(prompt string) ([]byte, error) {
	sum := sha256.Sum256([]byte(prompt))
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			i := (x + y*64) % len(sum)
			img.Set(x, y, color.RGBA{
				R: sum[i],
				G: sum[(i+11)%len(sum)],
				B: sum[(i+23)%len(sum)],
				A: 255,
			})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
