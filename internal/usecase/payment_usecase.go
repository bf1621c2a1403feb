package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"rent_payment_service/internal/domain/entities"
	"rent_payment_service/internal/usecase/interfaces"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	referencePrefix     = "tx-"
	checkoutTitle       = "Listing Fee"
	checkoutFirstName   = "Owner"
	checkoutLastName    = "User"
	timeoutFailReason   = "timed out"
	verifyFailedFormat  = "gateway verification failed: %s - %s"
	verifyErrorFormat   = "gateway verification error: %v"
	phoneRequiredReason = "user phone number not provided"

	// sharedInitiateTimeout bounds an initiation that outlives the caller
	// who started it.
	sharedInitiateTimeout = 2 * time.Minute
)

// IPaymentUseCase is the payment lifecycle: idempotent initiation, callback
// ingestion with independent re-verification, status queries and timeout sweeps.
type IPaymentUseCase interface {
	Initiate(ctx context.Context, in InitiatePaymentInput, actor entities.Identity) (entities.PaymentView, error)
	GetStatus(ctx context.Context, paymentID string, actor entities.Identity) (entities.PaymentView, error)
	Ingest(ctx context.Context, cb entities.GatewayCallback) (entities.IngestResult, error)
	SweepTimeouts(ctx context.Context, maxAge time.Duration) (int, error)
}

type InitiatePaymentInput struct {
	RequestID  string
	PropertyID string
	UserID     string
	// Amount is validated only; the configured fixed amount is charged.
	Amount *decimal.Decimal
}

type PaymentSettings struct {
	FixedAmount decimal.Decimal
	Currency    string
	CallbackURL string
	ReturnURL   string
}

type PaymentUseCase struct {
	repo      interfaces.IPaymentRepository
	gateway   interfaces.IPaymentGateway
	directory interfaces.IUserDirectory
	notifier  interfaces.IListingNotifier
	events    interfaces.IPaymentEventPublisher
	metrics   interfaces.IPaymentMetrics
	settings  PaymentSettings
	now       func() time.Time
	newID     func() string
	inflight  singleflight.Group
	logger    *zap.Logger
}

var _ IPaymentUseCase = (*PaymentUseCase)(nil)

type PaymentOption func(*PaymentUseCase)

func WithEventPublisher(p interfaces.IPaymentEventPublisher) PaymentOption {
	return func(u *PaymentUseCase) {
		if p != nil {
			u.events = p
		}
	}
}

func WithMetrics(m interfaces.IPaymentMetrics) PaymentOption {
	return func(u *PaymentUseCase) {
		if m != nil {
			u.metrics = m
		}
	}
}

func WithClock(now func() time.Time) PaymentOption {
	return func(u *PaymentUseCase) { u.now = now }
}

func WithIDGenerator(newID func() string) PaymentOption {
	return func(u *PaymentUseCase) { u.newID = newID }
}

func NewPaymentUseCase(repo interfaces.IPaymentRepository, gateway interfaces.IPaymentGateway, directory interfaces.IUserDirectory, notifier interfaces.IListingNotifier, settings PaymentSettings, logger *zap.Logger, opts ...PaymentOption) *PaymentUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	u := &PaymentUseCase{
		repo:      repo,
		gateway:   gateway,
		directory: directory,
		notifier:  notifier,
		events:    noopPublisher{},
		metrics:   noopMetrics{},
		settings:  settings,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
		logger:    logger.Named("payment.usecase"),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *PaymentUseCase) Initiate(ctx context.Context, in InitiatePaymentInput, actor entities.Identity) (entities.PaymentView, error) {
	u.metrics.IncInitiateCalls()
	in.RequestID = strings.TrimSpace(in.RequestID)
	in.PropertyID = strings.TrimSpace(in.PropertyID)
	in.UserID = strings.TrimSpace(in.UserID)

	if err := validateInitiate(in, actor); err != nil {
		u.logger.Info("initiate rejected", zap.String("request_id", in.RequestID), zap.Error(err))
		return entities.PaymentView{}, err
	}

	// Concurrent duplicates in this process share one gateway call, detached
	// from any single caller's cancellation.
	ch := u.inflight.DoChan(in.RequestID, func() (interface{}, error) {
		sharedCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedInitiateTimeout)
		defer cancel()
		return u.initiate(sharedCtx, in, actor)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		u.logger.Info("initiate caller gone; in-flight initiation continues", zap.String("request_id", in.RequestID))
		return entities.PaymentView{}, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return entities.PaymentView{}, res.Err
	}
	if res.Shared {
		u.logger.Info("initiate collapsed with in-flight duplicate", zap.String("request_id", in.RequestID))
	}
	view := res.Val.(entities.PaymentView)
	if actor.IsOwner() && view.UserID != actor.UserID {
		return entities.PaymentView{}, ErrForbidden
	}
	return view, nil
}

func validateInitiate(in InitiatePaymentInput, actor entities.Identity) error {
	switch {
	case actor.IsService():
		if in.UserID == "" {
			return fmt.Errorf("%w: user_id is required for service calls", ErrInvalidRequest)
		}
		if _, err := uuid.Parse(in.UserID); err != nil {
			return fmt.Errorf("%w: user_id must be a UUID", ErrInvalidRequest)
		}
	case actor.IsOwner():
		if actor.UserID == "" {
			return ErrUnauthenticated
		}
	default:
		return ErrForbidden
	}
	if in.RequestID == "" {
		return fmt.Errorf("%w: request_id is required", ErrInvalidRequest)
	}
	if _, err := uuid.Parse(in.RequestID); err != nil {
		return fmt.Errorf("%w: request_id must be a UUID", ErrInvalidRequest)
	}
	if in.PropertyID == "" {
		return fmt.Errorf("%w: property_id is required", ErrInvalidRequest)
	}
	if _, err := uuid.Parse(in.PropertyID); err != nil {
		return fmt.Errorf("%w: property_id must be a UUID", ErrInvalidRequest)
	}
	if in.Amount != nil && in.Amount.IsNegative() {
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidRequest)
	}
	return nil
}

func (u *PaymentUseCase) initiate(ctx context.Context, in InitiatePaymentInput, actor entities.Identity) (entities.PaymentView, error) {
	existing, err := u.repo.GetByRequestID(ctx, in.RequestID)
	if err != nil {
		u.logger.Error("idempotency lookup failed", zap.String("request_id", in.RequestID), zap.Error(err))
		return entities.PaymentView{}, err
	}
	if existing.ID != "" {
		u.logger.Info("idempotent replay", zap.String("request_id", in.RequestID), zap.String("payment_id", existing.ID), zap.String("status", string(existing.Status)))
		return entities.NewPaymentView(existing), nil
	}

	payer, err := u.resolvePayer(ctx, in, actor)
	if err != nil {
		return entities.PaymentView{}, err
	}
	if strings.TrimSpace(payer.PhoneNumber) == "" {
		u.logger.Warn("payer has no phone number", zap.String("user_id", payer.UserID))
		return entities.PaymentView{}, fmt.Errorf("%w: %s", ErrInvalidRequest, phoneRequiredReason)
	}

	reference := referencePrefix + u.newID()
	checkout := entities.CheckoutRequest{
		Amount:      u.settings.FixedAmount,
		Currency:    u.settings.Currency,
		Email:       payer.Email,
		FirstName:   checkoutFirstName,
		LastName:    checkoutLastName,
		PhoneNumber: payer.PhoneNumber,
		Reference:   reference,
		CallbackURL: u.settings.CallbackURL,
		ReturnURL:   u.settings.ReturnURL,
		Title:       checkoutTitle,
		Description: "Payment for " + in.PropertyID,
		Meta: map[string]string{
			"user_id":     payer.UserID,
			"property_id": in.PropertyID,
			"request_id":  in.RequestID,
		},
	}

	u.logger.Info("initializing checkout", zap.String("request_id", in.RequestID), zap.String("property_id", in.PropertyID), zap.String("user_id", payer.UserID))
	result, err := u.gateway.Initialize(ctx, checkout)
	if err != nil {
		var rej *interfaces.RejectionError
		if errors.As(err, &rej) {
			return entities.PaymentView{}, fmt.Errorf("%w: %w", ErrPaymentRejected, rej)
		}
		return entities.PaymentView{}, err
	}
	if !result.Accepted() {
		u.logger.Warn("gateway declined checkout", zap.String("request_id", in.RequestID), zap.String("status", result.Status), zap.String("message", result.Message))
		return entities.PaymentView{}, fmt.Errorf("%w: %w", ErrPaymentRejected, &interfaces.RejectionError{Message: result.Message})
	}

	now := u.now()
	p := entities.Payment{
		ID:               u.newID(),
		RequestID:        in.RequestID,
		PropertyID:       in.PropertyID,
		UserID:           payer.UserID,
		Amount:           u.settings.FixedAmount,
		Currency:         u.settings.Currency,
		Status:           entities.PaymentStatusPending,
		GatewayReference: reference,
		CheckoutURL:      result.CheckoutURL,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	created, err := u.repo.Create(ctx, p)
	if errors.Is(err, interfaces.ErrDuplicatePayment) {
		winner, lookupErr := u.repo.GetByRequestID(ctx, in.RequestID)
		if lookupErr == nil && winner.ID != "" {
			u.logger.Info("lost initiation race; returning committed payment", zap.String("request_id", in.RequestID), zap.String("payment_id", winner.ID), zap.String("orphan_reference", reference))
			return entities.NewPaymentView(winner), nil
		}
		if lookupErr != nil {
			err = errors.Join(err, lookupErr)
		}
	}
	if err != nil {
		u.logger.Error("payment not persisted after gateway initialize; manual reconciliation required",
			zap.String("request_id", in.RequestID),
			zap.String("gateway_reference", reference),
			zap.String("property_id", in.PropertyID),
			zap.Error(err),
		)
		return entities.PaymentView{}, fmt.Errorf("%w: %v", ErrInconsistentState, err)
	}

	u.logger.Info("payment initiated", zap.String("request_id", in.RequestID), zap.String("payment_id", created.ID))
	return entities.NewPaymentView(created), nil
}

func (u *PaymentUseCase) resolvePayer(ctx context.Context, in InitiatePaymentInput, actor entities.Identity) (entities.Identity, error) {
	if !actor.IsService() {
		return actor, nil
	}
	user, err := u.directory.GetUser(ctx, in.UserID)
	if err != nil {
		u.logger.Error("user details lookup failed", zap.String("user_id", in.UserID), zap.Error(err))
		if errors.Is(err, interfaces.ErrNotFound) {
			return entities.Identity{}, ErrUserNotFound
		}
		return entities.Identity{}, err
	}
	if user.UserID == "" {
		user.UserID = in.UserID
	}
	return user, nil
}

func (u *PaymentUseCase) GetStatus(ctx context.Context, paymentID string, actor entities.Identity) (entities.PaymentView, error) {
	u.metrics.IncStatusCalls()
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return entities.PaymentView{}, fmt.Errorf("%w: payment id is required", ErrInvalidRequest)
	}

	p, err := u.repo.GetByID(ctx, paymentID)
	if err != nil {
		return entities.PaymentView{}, err
	}
	if p.ID == "" {
		return entities.PaymentView{}, ErrPaymentNotFound
	}
	if !actor.IsAdmin() && (actor.UserID == "" || actor.UserID != p.UserID) {
		u.logger.Warn("status query denied", zap.String("payment_id", p.ID), zap.String("user_id", actor.UserID))
		return entities.PaymentView{}, ErrForbidden
	}
	return entities.NewPaymentView(p), nil
}

type callbackBody struct {
	TxRef  string `json:"tx_ref"`
	TrxRef string `json:"trx_ref"`
	Status string `json:"status"`
	Meta   struct {
		UserID     string `json:"user_id"`
		PropertyID string `json:"property_id"`
	} `json:"meta"`
	Data *struct {
		TxRef  string `json:"tx_ref"`
		Status string `json:"status"`
		Meta   struct {
			UserID     string `json:"user_id"`
			PropertyID string `json:"property_id"`
		} `json:"meta"`
	} `json:"data"`
}

func (u *PaymentUseCase) parseCallback(cb entities.GatewayCallback) (string, string, error) {
	if !cb.Signed {
		ref, status := strings.TrimSpace(cb.Reference), strings.TrimSpace(cb.ReportedStatus)
		if ref == "" || status == "" {
			return "", "", ErrMalformedCallback
		}
		return ref, status, nil
	}

	if !u.gateway.VerifySignature(cb.RawBody, cb.Signature) {
		return "", "", ErrInvalidSignature
	}
	var body callbackBody
	if err := json.Unmarshal(cb.RawBody, &body); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}
	ref := firstNonEmpty(body.TxRef, body.TrxRef)
	status := body.Status
	if body.Data != nil {
		ref = firstNonEmpty(ref, body.Data.TxRef)
		status = firstNonEmpty(status, body.Data.Status)
	}
	ref, status = strings.TrimSpace(ref), strings.TrimSpace(status)
	if ref == "" || status == "" {
		return "", "", ErrMalformedCallback
	}
	return ref, status, nil
}

func (u *PaymentUseCase) Ingest(ctx context.Context, cb entities.GatewayCallback) (entities.IngestResult, error) {
	u.metrics.IncWebhookCalls()

	reference, reported, err := u.parseCallback(cb)
	if err != nil {
		u.logger.Warn("callback rejected", zap.Bool("signed", cb.Signed), zap.Error(err))
		return entities.IngestResult{}, err
	}

	p, err := u.repo.GetByGatewayReference(ctx, reference)
	if err != nil {
		u.logger.Error("lookup by gateway reference failed", zap.String("gateway_reference", reference), zap.Error(err))
		return entities.IngestResult{}, err
	}
	if p.ID == "" {
		u.logger.Warn("callback for unknown reference", zap.String("gateway_reference", reference))
		return entities.IngestResult{Outcome: entities.IngestOutcomeNotFound}, nil
	}
	if p.Status.IsTerminal() {
		u.logger.Info("callback for processed payment", zap.String("payment_id", p.ID), zap.String("status", string(p.Status)))
		return entities.IngestResult{Outcome: entities.IngestOutcomeAlreadyProcessed, PaymentID: p.ID, Status: p.Status}, nil
	}

	transition, err := u.verifyWithGateway(ctx, reference)
	if err != nil {
		u.logger.Info("callback abandoned before verification finished", zap.String("payment_id", p.ID), zap.Error(err))
		return entities.IngestResult{}, err
	}
	u.logger.Info("gateway verification",
		zap.String("payment_id", p.ID),
		zap.Bool("signed", cb.Signed),
		zap.String("reported_status", reported),
		zap.String("verified_status", string(transition.Status)),
	)

	updated, applied, err := u.repo.TransitionFromPending(ctx, p.ID, transition)
	if err != nil {
		u.logger.Error("status transition failed", zap.String("payment_id", p.ID), zap.Error(err))
		return entities.IngestResult{}, err
	}
	if !applied {
		status := p.Status
		if updated.ID != "" {
			status = updated.Status
		}
		u.logger.Info("payment already transitioned concurrently", zap.String("payment_id", p.ID), zap.String("status", string(status)))
		return entities.IngestResult{Outcome: entities.IngestOutcomeAlreadyProcessed, PaymentID: p.ID, Status: status}, nil
	}

	u.metrics.IncTransitions(updated.Status)
	if updated.Status == entities.PaymentStatusSuccess {
		u.notifyListing(ctx, updated)
	}
	u.publish(ctx, updated)
	return entities.IngestResult{Outcome: entities.IngestOutcomeProcessed, PaymentID: updated.ID, Status: updated.Status}, nil
}

// verifyWithGateway decides the terminal status. The callback's own status is
// never used. A cancelled caller yields an error and no transition.
func (u *PaymentUseCase) verifyWithGateway(ctx context.Context, reference string) (entities.StatusTransition, error) {
	v, err := u.gateway.Verify(ctx, reference)
	at := u.now()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return entities.StatusTransition{}, ctxErr
		}
		if errors.Is(err, context.Canceled) {
			return entities.StatusTransition{}, err
		}
		return entities.StatusTransition{Status: entities.PaymentStatusFailed, FailureReason: fmt.Sprintf(verifyErrorFormat, err), At: at}, nil
	}
	if v.Succeeded() {
		return entities.StatusTransition{Status: entities.PaymentStatusSuccess, At: at}, nil
	}
	return entities.StatusTransition{
		Status:        entities.PaymentStatusFailed,
		FailureReason: fmt.Sprintf(verifyFailedFormat, v.Message, v.TransactionStatus),
		At:            at,
	}, nil
}

func (u *PaymentUseCase) SweepTimeouts(ctx context.Context, maxAge time.Duration) (int, error) {
	u.metrics.IncTimeoutSweeps()
	if maxAge <= 0 {
		return 0, fmt.Errorf("%w: max age must be positive", ErrInvalidRequest)
	}

	now := u.now()
	cutoff := now.Add(-maxAge)
	pending, err := u.repo.ListPendingCreatedBefore(ctx, cutoff)
	if err != nil {
		u.logger.Error("listing stale payments failed", zap.Time("cutoff", cutoff), zap.Error(err))
		return 0, err
	}

	var errs []error
	count := 0
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		updated, applied, err := u.repo.TransitionFromPending(ctx, p.ID, entities.StatusTransition{
			Status:        entities.PaymentStatusFailed,
			FailureReason: timeoutFailReason,
			At:            now,
		})
		if err != nil {
			u.logger.Error("timeout transition failed", zap.String("payment_id", p.ID), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		if !applied {
			continue
		}
		count++
		u.metrics.IncTransitions(updated.Status)
		u.notifyListing(ctx, updated)
		u.publish(ctx, updated)
	}

	u.logger.Info("timeout sweep done", zap.Int("scanned", len(pending)), zap.Int("failed", count), zap.Time("cutoff", cutoff))
	return count, errors.Join(errs...)
}

// notifyListing never undoes the committed transition.
func (u *PaymentUseCase) notifyListing(ctx context.Context, p entities.Payment) {
	if u.notifier == nil {
		return
	}
	if err := u.notifier.ConfirmPayment(context.WithoutCancel(ctx), p.PropertyID, p.ID, p.Status); err != nil {
		u.logger.Error("listing confirmation failed", zap.String("payment_id", p.ID), zap.String("status", string(p.Status)), zap.Error(err))
	}
}

func (u *PaymentUseCase) publish(ctx context.Context, p entities.Payment) {
	if err := u.events.PublishStatusChanged(context.WithoutCancel(ctx), entities.NewPaymentEvent(p)); err != nil {
		u.logger.Warn("payment event not published", zap.String("payment_id", p.ID), zap.Error(err))
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

type noopPublisher struct{}

func (noopPublisher) PublishStatusChanged(context.Context, entities.PaymentEvent) error { return nil }

type noopMetrics struct{}

func (noopMetrics) IncInitiateCalls()                      {}
func (noopMetrics) IncStatusCalls()                        {}
func (noopMetrics) IncWebhookCalls()                       {}
func (noopMetrics) IncTimeoutSweeps()                      {}
func (noopMetrics) IncTransitions(entities.PaymentStatus) {}
