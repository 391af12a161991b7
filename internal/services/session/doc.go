/*
Package session drives the in-person QR payment handshake between a merchant
terminal and a customer device.

A session moves through

	AMOUNT_PENDING -> CUSTOMER_REVIEW -> AWAITING_PAYMENT -> SETTLEMENT_PENDING -> SETTLED

and may be cancelled from any of the first three states. Each transition is a
compare-and-swap on (status, version) inside one database transaction that
also appends a session event, so two racing callers can never both win.

Usage:

	svc := session.NewService(db, deps, session.Config{}, metrics.Session())

	sess, err := svc.Scan(ctx, customerID, scanCode)
	sess, err = svc.ProposeAmount(ctx, merchantActor, sess.ID, decimal.NewFromInt(100))
	sess, err = svc.Approve(ctx, customerActor, sess.ID)
	sess, err = svc.ConfirmPayment(ctx, merchantActor, sess.ID, "BANK-REF-1")
	result, err := svc.Finalize(ctx, merchantActor, sess.ID)

Error Handling:

Rejected transitions return ErrInvalidTransition (ErrTerminalBusy for a scan
against an occupied terminal). Tier resolution problems return
ErrTierLookupFailed and leave the session in AMOUNT_PENDING.
*/
package session
