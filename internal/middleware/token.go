package middleware

import (
	jwtPkg "DrowsyGuard/pkg/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const (
	AccessTokenSecret = "JWT_ACCESS_TOKEN_SECRET"
)

func (m *middleware) NewTokenMiddleware(ctx *fiber.Ctx) error {
	fields := logrus.Fields{
		"request_id": m.GetRequestID(ctx),
		"path":       ctx.Path(),
		"method":     ctx.Method(),
		"client_ip":  ctx.IP(),
	}

	token, err := jwtPkg.VerifyTokenHeader(ctx, AccessTokenSecret)
	if err != nil {
		m.log.WithFields(fields).WithError(err).Warn("Token verification failed")
		return unauthorized(ctx)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		m.log.WithFields(fields).Warn("Invalid token claims")
		return unauthorized(ctx)
	}

	operator, err := jwtPkg.OperatorFromClaims(claims)
	if err != nil {
		m.log.WithFields(fields).WithError(err).Warn("Token claims check")
		return unauthorized(ctx)
	}

	ctx.Locals(jwtPkg.OperatorLocalsKey, operator)

	m.log.WithFields(fields).WithField("operator_id", operator.ID).Debug("Authentication successful")
	return ctx.Next()
}

func unauthorized(ctx *fiber.Ctx) error {
	return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "Unauthorized, access token invalid or expired",
	})
}
