package response

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/labstack/echo/v4"

	"github.com/sigepren/sigepren/internal/platform/apperr"
)

// ErrInvalidJSON is returned when the request body is not a JSON object.
var ErrInvalidJSON = apperr.BadRequest("JSON inválido")

// Payload decodes the request body as a JSON object. An empty body yields an
// empty map.
func Payload(c echo.Context) (map[string]any, error) {
	body := c.Request().Body
	if body == nil {
		return map[string]any{}, nil
	}
	var out map[string]any
	if err := json.NewDecoder(body).Decode(&out); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]any{}, nil
		}
		return nil, ErrInvalidJSON
	}
	if out == nil {
		return nil, ErrInvalidJSON
	}
	return out, nil
}

// Message is the data of responses that only confirm an action.
func Message(msg string) map[string]string {
	return map[string]string{"mensaje": msg}
}
