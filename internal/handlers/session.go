package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	domainErrors "tierpay/internal/errors"
	"tierpay/internal/services/notification"
	"tierpay/internal/services/session"
	"tierpay/internal/utils/response"
	"tierpay/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/valyala/fasthttp"
)

// StreamHeartbeat keeps idle event streams open through proxies.
const StreamHeartbeat = 15 * time.Second

type SessionHandler struct {
	sessions session.Service
	notifier notification.Service
}

func NewSessionHandler(sessions session.Service, notifier notification.Service) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		notifier: notifier,
	}
}

type scanRequest struct {
	Code string `json:"code" validate:"required,max=128"`
}

type startRequest struct {
	CustomerID uint `json:"customer_id" validate:"required"`
}

type amountRequest struct {
	Amount string `json:"amount" validate:"required,money"`
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"max=255"`
}

type confirmPaymentRequest struct {
	Reference string `json:"reference" validate:"required,max=128"`
}

// parseBody decodes and validates the request body into v. An empty body is
// accepted when allowEmpty is set.
func parseBody(c *fiber.Ctx, v interface{}, allowEmpty bool) (bool, error) {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(v); err != nil {
			return false, response.BadRequest(c, "Invalid request format")
		}
	} else if !allowEmpty {
		return false, response.BadRequest(c, "Request body is required")
	}
	if errs := validation.Struct(v); errs != nil {
		return false, response.ValidationError(c, errs)
	}
	return true, nil
}

// Scan opens a session for the calling customer on the scanned terminal.
func (h *SessionHandler) Scan(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return handleError(c, err)
	}
	if actor.Role != session.RoleCustomer {
		return handleError(c, domainErrors.ErrForbidden)
	}

	var req scanRequest
	if ok, err := parseBody(c, &req, false); !ok {
		return err
	}

	sess, err := h.sessions.Scan(c.UserContext(), actor.ID, req.Code)
	if err != nil {
		return handleError(c, err)
	}
	return response.Created(c, "Session started", sess)
}

// Start opens a session on the merchant's default slot without a scan.
func (h *SessionHandler) Start(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return handleError(c, err)
	}
	if actor.Role != session.RoleMerchant || actor.TerminalID != nil {
		return handleError(c, domainErrors.ErrForbidden)
	}

	var req startRequest
	if ok, err := parseBody(c, &req, false); !ok {
		return err
	}

	sess, err := h.sessions.StartWithoutTerminal(c.UserContext(), actor.ID, req.CustomerID)
	if err != nil {
		return handleError(c, err)
	}
	return response.Created(c, "Session started", sess)
}

func (h *SessionHandler) ListActive(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return handleError(c, err)
	}

	sessions, err := h.sessions.ListActive(c.UserContext(), actor)
	if err != nil {
		return handleError(c, err)
	}
	return response.Success(c, "Active sessions retrieved", sessions)
}

func (h *SessionHandler) ProposeAmount(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return handleError(c, err)
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid session id")
	}

	var req amountRequest
	if ok, err := parseBody(c, &req, false); !ok {
		return err
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return response.ValidationError(c, map[string]string{"amount": "must be a decimal amount"})
	}

	sess, err := h.sessions.ProposeAmount(c.UserContext(), actor, id, amount)
	if err != nil {
		return handleError(c, err)
	}
	return response.Success(c, "Amount proposed", sess)
}

func (h *SessionHandler) Approve(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return handleError(c, err)
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid session id")
	}

	sess, err := h.sessions.Approve(c.UserContext(), actor, id)
	if err != nil {
		return handleError(c, err)
	}
	return response.Success(c, "Session approved", sess)
}

func (h *SessionHandler) Cancel(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return handleError(c, err)
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid session id")
	}

	var req cancelRequest
	if ok, err := parseBody(c, &req, true); !ok {
		return err
	}

	sess, err := h.sessions.Cancel(c.UserContext(), actor, id, validation.CleanText(req.Reason))
	if err != nil {
		return handleError(c, err)
	}
	return response.Success(c, "Session cancelled", sess)
}

func (h *SessionHandler) ConfirmPayment(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return handleError(c, err)
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid session id")
	}

	var req confirmPaymentRequest
	if ok, err := parseBody(c, &req, false); !ok {
		return err
	}

	sess, err := h.sessions.ConfirmPayment(c.UserContext(), actor, id, validation.CleanText(req.Reference))
	if err != nil {
		return handleError(c, err)
	}
	return response.Success(c, "Payment confirmed", sess)
}

// Finalize is safe to retry: a settled session answers with its original settlement.
func (h *SessionHandler) Finalize(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return handleError(c, err)
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid session id")
	}

	res, err := h.sessions.Finalize(c.UserContext(), actor, id)
	if err != nil {
		return handleError(c, err)
	}
	if res.Replayed {
		return response.Success(c, "Session already settled", res)
	}
	return response.Success(c, "Session settled", res)
}

func (h *SessionHandler) View(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return handleError(c, err)
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid session id")
	}

	view, err := h.sessions.View(c.UserContext(), actor, id)
	if err != nil {
		return handleError(c, err)
	}
	return response.Success(c, "Session retrieved", view)
}

func (h *SessionHandler) Settlement(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return handleError(c, err)
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid session id")
	}

	res, err := h.sessions.Settlement(c.UserContext(), actor, id)
	if err != nil {
		return handleError(c, err)
	}
	return response.Success(c, "Settlement retrieved", res)
}

// History returns the stored transition log of a session.
func (h *SessionHandler) History(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return handleError(c, err)
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid session id")
	}

	events, err := h.sessions.Events(c.UserContext(), actor, id)
	if err != nil {
		return handleError(c, err)
	}
	return response.Success(c, "Session history retrieved", events)
}

// Stream pushes session changes as server-sent events. The first event is a
// snapshot of the current state; the stream ends once the session does.
func (h *SessionHandler) Stream(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return handleError(c, err)
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid session id")
	}

	// Subscribe before reading the snapshot so a change committed in between
	// is still delivered; anything the snapshot already covers is skipped.
	ctx, cancel := context.WithCancel(context.Background())
	events, stop, err := h.notifier.Subscribe(ctx, notification.SessionChannel(id))
	if err != nil {
		cancel()
		return handleError(c, err)
	}

	sess, err := h.sessions.Get(c.UserContext(), actor, id)
	if err != nil {
		stop()
		cancel()
		return handleError(c, err)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	snapshot := notification.NewEvent(notification.EventSessionSnapshot, sess, time.Now().UTC())
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer stop()

		if writeEvent(w, snapshot) != nil || snapshot.Status.IsTerminal() {
			return
		}

		heartbeat := time.NewTicker(StreamHeartbeat)
		defer heartbeat.Stop()

		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				if event.Version <= snapshot.Version {
					continue
				}
				if writeEvent(w, event) != nil || event.Status.IsTerminal() {
					return
				}
			case <-heartbeat.C:
				if _, err := w.WriteString(": ping\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))
	return nil
}

func writeEvent(w *bufio.Writer, event notification.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
		return err
	}
	return w.Flush()
}
