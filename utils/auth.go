// utils/auth.go
package utils

import (
	"errors"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GetUserIDFromContext extracts the authenticated user's ObjectID set by
// the JWT middleware.
func GetUserIDFromContext(c echo.Context) (primitive.ObjectID, error) {
	userID, ok := c.Get("userId").(string)
	if !ok || userID == "" {
		return primitive.NilObjectID, errors.New("user ID not found in token")
	}
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return primitive.NilObjectID, errors.New("invalid user ID in token")
	}
	return id, nil
}
