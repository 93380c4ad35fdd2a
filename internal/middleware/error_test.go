package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"glauk-api/internal/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusForCode(t *testing.T) {
	cases := map[domain.ErrorCode]int{
		domain.CodeBadInput:              400,
		domain.CodeValidation:            400,
		domain.CodeUnsupportedMediaType:  415,
		domain.CodePayloadTooLarge:       413,
		domain.CodeExtractionFailed:      422,
		domain.CodeNoContent:             422,
		domain.CodeStorageUploadFailed:   502,
		domain.CodeUpstreamCallFailed:    502,
		domain.CodeEmptyUpstreamResponse: 502,
		domain.CodeRateLimitExceeded:     503,
		domain.CodeUpstreamUnavailable:   503,
		domain.CodePreconditionFailed:    412,
		domain.CodeNotFound:              404,
		domain.CodeConflict:              409,
		domain.CodeUnauthorized:          401,
		domain.CodeInternal:              500,
		domain.ErrorCode("SOMETHING_NEW"): 500,
	}
	for code, want := range cases {
		assert.Equal(t, want, StatusForCode(code), string(code))
	}
}

func serveError(t *testing.T, err error) (int, map[string]interface{}) {
	t.Helper()
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	app.Get("/", func(c *fiber.Ctx) error { return err })

	resp, testErr := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, testErr)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestErrorHandler(t *testing.T) {
	t.Run("domain error with details", func(t *testing.T) {
		status, body := serveError(t, domain.NewPayloadTooLargeError(50, 10))
		assert.Equal(t, 413, status)
		assert.Equal(t, "PAYLOAD_TOO_LARGE", body["code"])
		assert.Equal(t, map[string]interface{}{"size": float64(50), "limit": float64(10)}, body["details"])
	})

	t.Run("wrapped domain error", func(t *testing.T) {
		wrapped := errors.Join(errors.New("context"), domain.NewRateLimitExceededError(5, errors.New("429")))
		status, body := serveError(t, wrapped)
		assert.Equal(t, 503, status)
		assert.Equal(t, "RATE_LIMIT_EXCEEDED", body["code"])
	})

	t.Run("validation errors list every field", func(t *testing.T) {
		status, body := serveError(t, domain.ValidationErrors{
			domain.NewMissingFieldError("courseId"),
			domain.NewInvalidFormatError("numberOfQuestions", "ten"),
		})
		assert.Equal(t, 400, status)
		assert.Equal(t, "VALIDATION_ERROR", body["code"])
		assert.Len(t, body["errors"], 2)
	})

	t.Run("fiber error", func(t *testing.T) {
		status, body := serveError(t, fiber.ErrRequestEntityTooLarge)
		assert.Equal(t, 413, status)
		assert.Equal(t, "PAYLOAD_TOO_LARGE", body["code"])
	})

	t.Run("unknown error hides cause", func(t *testing.T) {
		status, body := serveError(t, errors.New("ORA-00942: table or view does not exist"))
		assert.Equal(t, 500, status)
		assert.Equal(t, "Internal server error", body["message"])
	})
}
