// Package api exposes the authenticated HTTP surface: token issuance,
// project creation and the trade transaction builders.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Internal API error codes.
const (
	CodeInternal       = 1
	CodeMalformedJSON  = 2
	CodeInvalidRequest = 3
	CodeInvalidCaptcha = 4
)

// Auth error codes.
const (
	CodeTokenExpired      = 4030
	CodeInvalidHeaders    = 4031
	CodeMalformedToken    = 4032
	CodeSignatureMismatch = 4033
)

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    int16  `json:"code"`
}

func respondInternal(c *gin.Context, log *logrus.Entry, err error) {
	log.WithError(err).Error("internal error while handling API request")
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
		Message: "internal server error",
		Code:    CodeInternal,
	})
}

func respondMalformedJSON(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Message: "json request is malformed: " + err.Error(),
		Code:    CodeMalformedJSON,
	})
}

func respondInvalidRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Message: "request is invalid: " + message,
		Code:    CodeInvalidRequest,
	})
}
