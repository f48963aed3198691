package response

import (
	"github.com/gofiber/fiber/v2"
)

// SuccessBody is the JSON shape of every 2xx reply.
type SuccessBody struct {
	Status   string      `json:"status"`
	Message  string      `json:"message"`
	Data     interface{} `json:"data"`
	Metadata interface{} `json:"metadata,omitempty"`
}

type ErrorBody struct {
	Status string      `json:"status"`
	Error  ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Message    string      `json:"message"`
	StatusCode int         `json:"statusCode"`
	Details    interface{} `json:"details,omitempty"`
}

// PageMeta is the metadata of a paged list.
type PageMeta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

const (
	statusSuccess = "success"
	statusError   = "error"
)

func reply(c *fiber.Ctx, code int, message string, data, metadata interface{}) error {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return c.Status(code).JSON(SuccessBody{
		Status:   statusSuccess,
		Message:  message,
		Data:     data,
		Metadata: metadata,
	})
}

// Success sends 200 with the success envelope. A nil metadata is sent as {}.
func Success(c *fiber.Ctx, message string, data interface{}, metadata interface{}) error {
	return reply(c, fiber.StatusOK, message, data, metadata)
}

func SuccessCreated(c *fiber.Ctx, message string, data interface{}, metadata interface{}) error {
	return reply(c, fiber.StatusCreated, message, data, metadata)
}

// SuccessPage sends one page of a list with its paging metadata.
func SuccessPage(c *fiber.Ctx, message string, data interface{}, meta PageMeta) error {
	return reply(c, fiber.StatusOK, message, data, meta)
}

// Error sends statusCode with the error envelope.
func Error(c *fiber.Ctx, message string, statusCode int, details interface{}) error {
	if details == nil {
		details = map[string]interface{}{}
	}
	return c.Status(statusCode).JSON(ErrorBody{
		Status: statusError,
		Error: ErrorDetail{
			Message:    message,
			StatusCode: statusCode,
			Details:    details,
		},
	})
}

func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, message, fiber.StatusBadRequest, nil)
}

func NotFound(c *fiber.Ctx, message string) error {
	return Error(c, message, fiber.StatusNotFound, nil)
}

func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, message, fiber.StatusUnauthorized, nil)
}

// Internal hides the cause; the route logger records the status.
func Internal(c *fiber.Ctx) error {
	return Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
}
