package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/transport/http/response"
)

const jwksCacheControl = "public, max-age=3600"

// KeySet renders the public signing keys as a JSON Web Key Set.
type KeySet interface {
	JWKS() ([]byte, error)
}

// JWKSHandler publishes the keys that verify admin tokens.
type JWKSHandler struct {
	keys KeySet
}

// NewJWKSHandler constructs a JWKS handler backed by keys.
func NewJWKSHandler(keys KeySet) *JWKSHandler {
	return &JWKSHandler{keys: keys}
}

// Keys handles GET /.well-known/jwks.json.
func (h *JWKSHandler) Keys(c *gin.Context) {
	if h == nil || h.keys == nil {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	payload, err := h.keys.JWKS()
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Cache-Control", jwksCacheControl)
	c.Data(http.StatusOK, "application/json", payload)
}
