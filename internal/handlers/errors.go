package handlers

import (
	"errors"
	"log"

	domainErrors "tierpay/internal/errors"
	"tierpay/internal/models"
	"tierpay/internal/services/session"
	"tierpay/internal/utils"
	"tierpay/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// handleError answers with the domain error's status and code. Anything
// else is logged and reported as a 500 without details.
func handleError(c *fiber.Ctx, err error) error {
	var domainErr *domainErrors.DomainError
	if errors.As(err, &domainErr) {
		return response.CodedError(c, domainErr.HTTPStatus(), domainErr.Code, err.Error())
	}
	log.Printf("%s %s failed: %v", c.Method(), c.Path(), err)
	return response.ServerError(c, "internal error")
}

// actorFromClaims maps a token onto the party it acts for.
func actorFromClaims(claims *models.UserClaims) (session.Actor, bool) {
	switch claims.Role {
	case models.RoleMerchant:
		return session.MerchantActor(claims.MerchantID()), true
	case models.RoleTerminal:
		if claims.TerminalID == nil {
			return session.Actor{}, false
		}
		return session.TerminalActor(claims.MerchantID(), *claims.TerminalID), true
	case models.RoleCustomer, "user":
		return session.CustomerActor(claims.UserID), true
	}
	return session.Actor{}, false
}

func currentActor(c *fiber.Ctx) (session.Actor, error) {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return session.Actor{}, domainErrors.ErrUnauthenticated
	}
	actor, ok := actorFromClaims(claims)
	if !ok {
		return session.Actor{}, domainErrors.ErrForbidden
	}
	return actor, nil
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	return id, err == nil
}
