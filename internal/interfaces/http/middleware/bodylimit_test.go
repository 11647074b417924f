package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pocketbook/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
)

func TestBodyLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(BodyLimit(64))
	router.POST("/items", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.String(http.StatusBadRequest, "truncated")
			return
		}
		c.Status(http.StatusCreated)
	})
	router.GET("/items", func(c *gin.Context) { c.Status(http.StatusOK) })

	item := `{"itemName":"Tea","qty":1,"price":"2.50"}`
	padded := `{"itemName":"` + strings.Repeat("T", 80) + `","qty":1,"price":"2.50"}`

	tests := []struct {
		name   string
		method string
		body   string
		// length overrides the declared Content-Length; -1 streams the body
		length int64
		want   int
	}{
		{"small item", http.MethodPost, item, int64(len(item)), http.StatusCreated},
		{"declared too large", http.MethodPost, padded, int64(len(padded)), http.StatusRequestEntityTooLarge},
		{"streamed too large", http.MethodPost, padded, -1, http.StatusBadRequest},
		{"no body", http.MethodGet, "", 0, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/items", strings.NewReader(tt.body))
			req.ContentLength = tt.length
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusRequestEntityTooLarge {
				assert.Contains(t, w.Body.String(), dto.ErrCodeTooLarge)
			}
		})
	}
}
