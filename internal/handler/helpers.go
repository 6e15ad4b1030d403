package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/nobody-social/nobody-api/internal/middleware"
	"github.com/nobody-social/nobody-api/internal/models"
)

// requestContext derives a context for service calls that carries the request
// correlation id.
func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func cityParam(c *fiber.Ctx, key string) (models.City, bool) {
	city := models.City(strings.ToLower(strings.TrimSpace(c.Params(key))))
	return city, city.Valid()
}

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

func isValidationError(err error) bool {
	var verrs validator.ValidationErrors
	return errors.As(err, &verrs)
}
