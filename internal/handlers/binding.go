package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
)

var errEmptyBody = errors.New("request body is empty")

// BindNestedOrFlat decodes the JSON body into obj. Older clients wrap the
// payload under a resource key ({"customer": {...}}); when key is present
// its value is decoded, otherwise the whole body is.
func BindNestedOrFlat(c *gin.Context, key string, obj interface{}) error {
	var body []byte
	if c.Request.Body != nil {
		body, _ = io.ReadAll(c.Request.Body)
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))

	if len(bytes.TrimSpace(body)) == 0 {
		return errEmptyBody
	}

	var nested map[string]json.RawMessage
	if err := json.Unmarshal(body, &nested); err == nil {
		if val, ok := nested[key]; ok {
			return json.Unmarshal(val, obj)
		}
	}
	return json.Unmarshal(body, obj)
}

// bindBody binds the request and answers 400 when it cannot be decoded
func bindBody(c *gin.Context, key string, obj interface{}) bool {
	if err := BindNestedOrFlat(c, key, obj); err != nil {
		badRequest(c, err)
		return false
	}
	return true
}
