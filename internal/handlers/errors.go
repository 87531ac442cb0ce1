package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"

	"campusshop/internal/checkout"
	"campusshop/internal/shopapi"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// validationFailed renders validator errors as a field map.
func validationFailed(c *fiber.Ctx, message string, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": message,
		"errors":  fieldErrors(err),
	})
}

func fieldErrors(err error) map[string]string {
	errorMessages := make(map[string]string)
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
	}
	return errorMessages
}

func invalidBody(c *fiber.Ctx, err error) error {
	log.Printf("Error parsing request body: %v", err)
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request body",
		"error":   err.Error(),
	})
}

// respondError maps service, workflow and remote errors onto a status code.
// fallback is the message used for unexpected errors.
func respondError(c *fiber.Ctx, err error, fallback string) error {
	status := fiber.StatusInternalServerError
	message := fallback

	var (
		authErr        *shopapi.AuthError
		httpErr        *shopapi.HTTPError
		transportErr   *shopapi.TransportError
		validationErrs validator.ValidationErrors
	)
	switch {
	case errors.Is(err, checkout.ErrInvalidContact):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": checkout.ErrInvalidContact.Error(),
			"errors":  fieldErrors(err),
		})
	case errors.As(err, &validationErrs):
		return validationFailed(c, "Validation failed", err)
	case errors.Is(err, checkout.ErrNotAuthenticated):
		status, message = fiber.StatusUnauthorized, err.Error()
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrNotInReview),
		errors.Is(err, checkout.ErrSubmitting),
		errors.Is(err, checkout.ErrClosed):
		status, message = fiber.StatusConflict, err.Error()
	case errors.Is(err, checkout.ErrNoAddressSelected),
		errors.Is(err, checkout.ErrUnknownAddress):
		status, message = fiber.StatusUnprocessableEntity, err.Error()
	case errors.As(err, &authErr):
		message = authErr.Message
		switch {
		case authErr.StatusCode == fiber.StatusConflict:
			status = fiber.StatusConflict
		case authErr.StatusCode >= fiber.StatusInternalServerError:
			status = fiber.StatusBadGateway
		default:
			status = fiber.StatusUnauthorized
		}
	case errors.Is(err, shopapi.ErrNotFound):
		status = fiber.StatusNotFound
		if errors.As(err, &httpErr) {
			message = httpErr.Message
		}
	case errors.As(err, &httpErr):
		status, message = fiber.StatusBadGateway, httpErr.Message
	case errors.As(err, &transportErr):
		status, message = fiber.StatusBadGateway, transportErr.Error()
	case errors.Is(err, context.DeadlineExceeded):
		status, message = fiber.StatusGatewayTimeout, "The shop service did not answer in time"
	}

	if status >= fiber.StatusInternalServerError {
		log.Printf("%s: %v", fallback, err)
	}
	body := fiber.Map{
		"message": message,
		"error":   err.Error(),
	}
	if redirect := checkout.Redirect(err); redirect != "" {
		body["redirect"] = redirect
	}
	return c.Status(status).JSON(body)
}
