package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"rent_payment_service/internal/adapter/persistence/repository"
	"rent_payment_service/internal/domain/entities"
	"rent_payment_service/internal/usecase/interfaces"
	mock_interfaces "rent_payment_service/internal/usecase/interfaces/mocks"

	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"
)

const (
	testRequestID  = "6f1c7a52-3b8e-4c1f-9d8e-2a4b5c6d7e8f"
	testPropertyID = "0b6e1f0a-8c2d-4e5f-a1b2-c3d4e5f6a7b8"
	testUserID     = "9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type paymentMocks struct {
	repo      *mock_interfaces.MockIPaymentRepository
	gateway   *mock_interfaces.MockIPaymentGateway
	directory *mock_interfaces.MockIUserDirectory
	notifier  *mock_interfaces.MockIListingNotifier
	events    *mock_interfaces.MockIPaymentEventPublisher
}

func testSettings() PaymentSettings {
	return PaymentSettings{
		FixedAmount: decimal.NewFromInt(500),
		Currency:    "ETB",
		CallbackURL: "https://pay.example.com/api/v1/webhook/chapa",
		ReturnURL:   "https://app.example.com/payments/done",
	}
}

func sequentialIDs() func() string {
	var n int64
	return func() string {
		return fmt.Sprintf("id-%d", atomic.AddInt64(&n, 1))
	}
}

func newPaymentUseCaseForTest(t *testing.T) (*PaymentUseCase, paymentMocks) {
	ctrl := gomock.NewController(t)
	m := paymentMocks{
		repo:      mock_interfaces.NewMockIPaymentRepository(ctrl),
		gateway:   mock_interfaces.NewMockIPaymentGateway(ctrl),
		directory: mock_interfaces.NewMockIUserDirectory(ctrl),
		notifier:  mock_interfaces.NewMockIListingNotifier(ctrl),
		events:    mock_interfaces.NewMockIPaymentEventPublisher(ctrl),
	}
	uc := NewPaymentUseCase(m.repo, m.gateway, m.directory, m.notifier, testSettings(), nil,
		WithEventPublisher(m.events),
		WithClock(func() time.Time { return testNow }),
		WithIDGenerator(sequentialIDs()),
	)
	return uc, m
}

func ownerIdentity() entities.Identity {
	return entities.Identity{UserID: testUserID, Role: entities.RoleOwner, Email: "owner@example.com", PhoneNumber: "0911000000"}
}

func serviceIdentity() entities.Identity {
	return entities.Identity{UserID: entities.ServiceUserID, Role: entities.RoleService}
}

func pendingPayment() entities.Payment {
	return entities.Payment{
		ID:               "pay-1",
		RequestID:        testRequestID,
		PropertyID:       testPropertyID,
		UserID:           testUserID,
		Amount:           decimal.NewFromInt(500),
		Currency:         "ETB",
		Status:           entities.PaymentStatusPending,
		GatewayReference: "tx-ref-1",
		CheckoutURL:      "https://checkout.example.com/abc",
		CreatedAt:        testNow.Add(-time.Hour),
		UpdatedAt:        testNow.Add(-time.Hour),
	}
}

func TestPaymentUseCase_InitiateValidation(t *testing.T) {
	negative := decimal.NewFromInt(-1)
	cases := []struct {
		name  string
		in    InitiatePaymentInput
		actor entities.Identity
		want  error
	}{
		{name: "missing request id", in: InitiatePaymentInput{PropertyID: testPropertyID}, actor: ownerIdentity(), want: ErrInvalidRequest},
		{name: "request id not uuid", in: InitiatePaymentInput{RequestID: "abc", PropertyID: testPropertyID}, actor: ownerIdentity(), want: ErrInvalidRequest},
		{name: "property id not uuid", in: InitiatePaymentInput{RequestID: testRequestID, PropertyID: "p-1"}, actor: ownerIdentity(), want: ErrInvalidRequest},
		{name: "negative amount", in: InitiatePaymentInput{RequestID: testRequestID, PropertyID: testPropertyID, Amount: &negative}, actor: ownerIdentity(), want: ErrInvalidRequest},
		{name: "service without user id", in: InitiatePaymentInput{RequestID: testRequestID, PropertyID: testPropertyID}, actor: serviceIdentity(), want: ErrInvalidRequest},
		{name: "service with bad user id", in: InitiatePaymentInput{RequestID: testRequestID, PropertyID: testPropertyID, UserID: "u"}, actor: serviceIdentity(), want: ErrInvalidRequest},
		{name: "tenant role", in: InitiatePaymentInput{RequestID: testRequestID, PropertyID: testPropertyID}, actor: entities.Identity{UserID: "t-1", Role: "Tenant"}, want: ErrForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uc, _ := newPaymentUseCaseForTest(t)
			_, err := uc.Initiate(context.Background(), tc.in, tc.actor)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestPaymentUseCase_Initiate(t *testing.T) {
	in := InitiatePaymentInput{RequestID: testRequestID, PropertyID: testPropertyID}

	t.Run("owner success charges fixed amount", func(t *testing.T) {
		uc, m := newPaymentUseCaseForTest(t)
		requested := decimal.NewFromInt(1)
		in := in
		in.Amount = &requested

		m.repo.EXPECT().GetByRequestID(gomock.Any(), testRequestID).Return(entities.Payment{}, nil)
		m.gateway.EXPECT().Initialize(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, req entities.CheckoutRequest) (entities.CheckoutResult, error) {
				if !req.Amount.Equal(decimal.NewFromInt(500)) || req.Currency != "ETB" {
					t.Errorf("unexpected amount: %s %s", req.Amount, req.Currency)
				}
				if req.Reference != "tx-id-1" || req.PhoneNumber != "0911000000" {
					t.Errorf("unexpected checkout request: %+v", req)
				}
				if req.Meta["request_id"] != testRequestID || req.Meta["user_id"] != testUserID {
					t.Errorf("unexpected meta: %v", req.Meta)
				}
				return entities.CheckoutResult{Status: "success", CheckoutURL: "https://checkout.example.com/abc"}, nil
			},
		)
		m.repo.EXPECT().Create(gomock.Any(), gomock.AssignableToTypeOf(entities.Payment{})).DoAndReturn(
			func(_ context.Context, p entities.Payment) (entities.Payment, error) {
				if p.ID != "id-2" || p.Status != entities.PaymentStatusPending || p.GatewayReference != "tx-id-1" {
					t.Errorf("unexpected payment: %+v", p)
				}
				if !p.CreatedAt.Equal(testNow) {
					t.Errorf("expected creation time %v, got %v", testNow, p.CreatedAt)
				}
				return p, nil
			},
		)

		view, err := uc.Initiate(context.Background(), in, ownerIdentity())
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if view.Status != entities.PaymentStatusPending || view.CheckoutURL == "" {
			t.Fatalf("unexpected view: %+v", view)
		}
		if view.MaskedReference != entities.MaskedReference {
			t.Fatalf("reference leaked: %q", view.MaskedReference)
		}
	})

	t.Run("replay returns stored payment without gateway call", func(t *testing.T) {
		uc, m := newPaymentUseCaseForTest(t)
		stored := pendingPayment()
		stored.Status = entities.PaymentStatusSuccess
		m.repo.EXPECT().GetByRequestID(gomock.Any(), testRequestID).Return(stored, nil)

		view, err := uc.Initiate(context.Background(), in, ownerIdentity())
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if view.ID != "pay-1" || view.Status != entities.PaymentStatusSuccess {
			t.Fatalf("unexpected view: %+v", view)
		}
	})

	t.Run("replay of another owner's request", func(t *testing.T) {
		uc, m := newPaymentUseCaseForTest(t)
		stored := pendingPayment()
		stored.UserID = "someone-else"
		m.repo.EXPECT().GetByRequestID(gomock.Any(), testRequestID).Return(stored, nil)

		_, err := uc.Initiate(context.Background(), in, ownerIdentity())
		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("gateway rejection keeps message", func(t *testing.T) {
		uc, m := newPaymentUseCaseForTest(t)
		m.repo.EXPECT().GetByRequestID(gomock.Any(), testRequestID).Return(entities.Payment{}, nil)
		m.gateway.EXPECT().Initialize(gomock.Any(), gomock.Any()).Return(entities.CheckoutResult{},
			&interfaces.RejectionError{StatusCode: 400, Message: "invalid phone number"})

		_, err := uc.Initiate(context.Background(), in, ownerIdentity())
		if !errors.Is(err, ErrPaymentRejected) {
			t.Fatalf("expected ErrPaymentRejected, got %v", err)
		}
		var rej *interfaces.RejectionError
		if !errors.As(err, &rej) || rej.Message != "invalid phone number" {
			t.Fatalf("expected rejection message, got %v", err)
		}
	})

	t.Run("gateway declines in body", func(t *testing.T) {
		uc, m := newPaymentUseCaseForTest(t)
		m.repo.EXPECT().GetByRequestID(gomock.Any(), testRequestID).Return(entities.Payment{}, nil)
		m.gateway.EXPECT().Initialize(gomock.Any(), gomock.Any()).Return(entities.CheckoutResult{Status: "failed", Message: "currency not supported"}, nil)

		_, err := uc.Initiate(context.Background(), in, ownerIdentity())
		if !errors.Is(err, ErrPaymentRejected) || !strings.Contains(err.Error(), "currency not supported") {
			t.Fatalf("expected rejection, got %v", err)
		}
	})

	t.Run("gateway unavailable", func(t *testing.T) {
		uc, m := newPaymentUseCaseForTest(t)
		m.repo.EXPECT().GetByRequestID(gomock.Any(), testRequestID).Return(entities.Payment{}, nil)
		m.gateway.EXPECT().Initialize(gomock.Any(), gomock.Any()).Return(entities.CheckoutResult{},
			fmt.Errorf("%w: timeout", interfaces.ErrUpstreamUnavailable))

		_, err := uc.Initiate(context.Background(), in, ownerIdentity())
		if !errors.Is(err, ErrUpstreamUnavailable) {
			t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
		}
	})

	t.Run("owner without phone", func(t *testing.T) {
		uc, m := newPaymentUseCaseForTest(t)
		actor := ownerIdentity()
		actor.PhoneNumber = ""
		m.repo.EXPECT().GetByRequestID(gomock.Any(), testRequestID).Return(entities.Payment{}, nil)

		_, err := uc.Initiate(context.Background(), in, actor)
		if !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("expected ErrInvalidRequest, got %v", err)
		}
	})

	t.Run("service resolves payer", func(t *testing.T) {
		uc, m := newPaymentUseCaseForTest(t)
		in := in
		in.UserID = testUserID
		m.repo.EXPECT().GetByRequestID(gomock.Any(), testRequestID).Return(entities.Payment{}, nil)
		m.directory.EXPECT().GetUser(gomock.Any(), testUserID).Return(entities.Identity{Email: "o@example.com", PhoneNumber: "0922"}, nil)
		m.gateway.EXPECT().Initialize(gomock.Any(), gomock.Any()).Return(entities.CheckoutResult{Status: "success", CheckoutURL: "https://c"}, nil)
		m.repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, p entities.Payment) (entities.Payment, error) { return p, nil },
		)

		view, err := uc.Initiate(context.Background(), in, serviceIdentity())
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if view.UserID != testUserID {
			t.Fatalf("expected payer %s, got %s", testUserID, view.UserID)
		}
	})

	t.Run("service payer unknown", func(t *testing.T) {
		uc, m := newPaymentUseCaseForTest(t)
		in := in
		in.UserID = testUserID
		m.repo.EXPECT().GetByRequestID(gomock.Any(), testRequestID).Return(entities.Payment{}, nil)
		m.directory.EXPECT().GetUser(gomock.Any(), testUserID).Return(entities.Identity{}, interfaces.ErrNotFound)

		_, err := uc.Initiate(context.Background(), in, serviceIdentity())
		if !errors.Is(err, ErrUserNotFound) {
			t.Fatalf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("lost race returns winner", func(t *testing.T) {
		uc, m := newPaymentUseCaseForTest(t)
		winner := pendingPayment()
		gomock.InOrder(
			m.repo.EXPECT().GetByRequestID(gomock.Any(), testRequestID).Return(entities.Payment{}, nil),
			m.gateway.EXPECT().Initialize(gomock.Any(), gomock.Any()).Return(entities.CheckoutResult{Status: "success", CheckoutURL: "https://c"}, nil),
			m.repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(entities.Payment{}, interfaces.ErrDuplicatePayment),
			m.repo.EXPECT().GetByRequestID(gomock.Any(), testRequestID).Return(winner, nil),
		)

		view, err := uc.Initiate(context.Background(), in, ownerIdentity())
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if view.ID != winner.ID {
			t.Fatalf("expected winner %s, got %s", winner.ID, view.ID)
		}
	})

	t.Run("persist failure after gateway accepted", func(t *testing.T) {
		uc, m := newPaymentUseCaseForTest(t)
		m.repo.EXPECT().GetByRequestID(gomock.Any(), testRequestID).Return(entities.Payment{}, nil)
		m.gateway.EXPECT().Initialize(gomock.Any(), gomock.Any()).Return(entities.CheckoutResult{Status: "success", CheckoutURL: "https://c"}, nil)
		m.repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(entities.Payment{}, errors.New("throughput exceeded"))

		_, err := uc.Initiate(context.Background(), in, ownerIdentity())
		if !errors.Is(err, ErrInconsistentState) {
			t.Fatalf("expected ErrInconsistentState, got %v", err)
		}
	})
}

func TestPaymentUseCase_GetStatus(t *testing.T) {
	t.Run("empty id", func(t *testing.T) {
		uc, _ := newPaymentUseCaseForTest(t)
		_, err := uc.GetStatus(context.Background(), " ", ownerIdentity())
		if !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("expected ErrInvalidRequest, got %v", err)
		}
	})

	t.Run("not found", func(t *testing.T) {
		uc, m := newPaymentUseCaseForTest(t)
		m.repo.EXPECT().GetByID(gomock.Any(), "pay-x").Return(entities.Payment{}, nil)
		_, err := uc.GetStatus(context.Background(), "pay-x", ownerIdentity())
		if !errors.Is(err, ErrPaymentNotFound) {
			t.Fatalf("expected ErrPaymentNotFound, got %v", err)
		}
	})

	t.Run("owner of record", func(t *testing.T) {
		uc, m := newPaymentUseCaseForTest(t)
		m.repo.EXPECT().GetByID(gomock.Any(), "pay-1").Return(pendingPayment(), nil)
		view, err := uc.GetStatus(context.Background(), "pay-1", ownerIdentity())
		if err != nil || view.ID != "pay-1" {
			t.Fatalf("unexpected result: %+v err=%v", view, err)
		}
		if view.MaskedReference != entities.MaskedReference {
			t.Fatalf("reference leaked: %q", view.MaskedReference)
		}
	})

	t.Run("admin", func(t *testing.T) {
		uc, m := newPaymentUseCaseForTest(t)
		m.repo.EXPECT().GetByID(gomock.Any(), "pay-1").Return(pendingPayment(), nil)
		if _, err := uc.GetStatus(context.Background(), "pay-1", entities.Identity{UserID: "a-1", Role: entities.RoleAdmin}); err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
	})

	t.Run("other owner", func(t *testing.T) {
		uc, m := newPaymentUseCaseForTest(t)
		m.repo.EXPECT().GetByID(gomock.Any(), "pay-1").Return(pendingPayment(), nil)
		_, err := uc.GetStatus(context.Background(), "pay-1", entities.Identity{UserID: "u-2", Role: entities.RoleOwner})
		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})
}

func signedCallback(body string) entities.GatewayCallback {
	return entities.GatewayCallback{Signed: true, RawBody: []byte(body), Signature: "sig"}
}

func TestPaymentUseCase_Ingest(t *testing.T) {
	successBody := `{"tx_ref":"tx-ref-1","status":"success"}`

	t.Run("invalid signature", func(t *testing.T) {
		uc, m := newPaymentUseCaseForTest(t)
		m.gateway.EXPECT().VerifySignature([]byte(successBody), "sig").Return(false)

		_, err := uc.Ingest(context.Background(), signedCallback(successBody))
		if !errors.Is(err, ErrInvalidSignature) {
			t.Fatalf("expected ErrInvalidSignature, got %v", err)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		uc, m := newPaymentUseCaseForTest(t)
		m.gateway.EXPECT().VerifySignature(gomock.Any(), "sig").Return(true)

		_, err := uc.Ingest(context.Background(), signedCallback(`{"status":"success"`))
		if !errors.Is(err, ErrMalformedCallback) {
			t.Fatalf("expected ErrMalformedCallback, got %v", err)
		}
	})

	t.Run("missing reference", func(t *testing.T) {
		uc, m := newPaymentUseCaseForTest(t)
		m.gateway.EXPECT().VerifySignature(gomock.Any(), "sig").Return(true)

		_, err := uc.Ingest(context.Background(), signedCallback(`{"status":"success"}`))
		if !errors.Is(err, ErrMalformedCallback) {
			t.Fatalf("expected ErrMalformedCallback, got %v", err)
		}
	})

	t.Run("redirect without status", func(t *testing.T) {
		uc, _ := newPaymentUseCaseForTest(t)
		_, err := uc.Ingest(context.Background(), entities.GatewayCallback{Reference: "tx-ref-1"})
		if !errors.Is(err, ErrMalformedCallback) {
			t.Fatalf("expected ErrMalformedCallback, got %v", err)
		}
	})

	t.Run("unknown reference", func(t *testing.T) {
		uc, m := newPaymentUseCaseForTest(t)
		m.gateway.EXPECT().VerifySignature(gomock.Any(), "sig").Return(true)
		m.repo.EXPECT().GetByGatewayReference(gomock.Any(), "tx-ref-1").Return(entities.Payment{}, nil)

		res, err := uc.Ingest(context.Background(), signedCallback(successBody))
		if err != nil || res.Outcome != entities.IngestOutcomeNotFound {
			t.Fatalf("expected not found outcome, got %+v err=%v", res, err)
		}
	})

	t.Run("already terminal", func(t *testing.T) {
		uc, m := newPaymentUseCaseForTest(t)
		done := pendingPayment()
		done.Status = entities.PaymentStatusFailed
		m.gateway.EXPECT().VerifySignature(gomock.Any(), "sig").Return(true)
		m.repo.EXPECT().GetByGatewayReference(gomock.Any(), "tx-ref-1").Return(done, nil)

		res, err := uc.Ingest(context.Background(), signedCallback(successBody))
		if err != nil || res.Outcome != entities.IngestOutcomeAlreadyProcessed || res.Status != entities.PaymentStatusFailed {
			t.Fatalf("expected already processed, got %+v err=%v", res, err)
		}
	})

	t.Run("verified success notifies listing", func(t *testing.T) {
		uc, m := newPaymentUseCaseForTest(t)
		p := pendingPayment()
		m.gateway.EXPECT().VerifySignature(gomock.Any(), "sig").Return(true)
		m.repo.EXPECT().GetByGatewayReference(gomock.Any(), "tx-ref-1").Return(p, nil)
		m.gateway.EXPECT().Verify(gomock.Any(), "tx-ref-1").Return(entities.GatewayVerification{Status: "success", TransactionStatus: "success"}, nil)
		m.repo.EXPECT().TransitionFromPending(gomock.Any(), "pay-1", gomock.Any()).DoAndReturn(
			func(_ context.Context, _ string, tr entities.StatusTransition) (entities.Payment, bool, error) {
				if tr.Status != entities.PaymentStatusSuccess || !tr.At.Equal(testNow) {
					t.Errorf("unexpected transition: %+v", tr)
				}
				return tr.Apply(p), true, nil
			},
		)
		m.notifier.EXPECT().ConfirmPayment(gomock.Any(), testPropertyID, "pay-1", entities.PaymentStatusSuccess).Return(nil)
		m.events.EXPECT().PublishStatusChanged(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, ev entities.PaymentEvent) error {
				if ev.PaymentID != "pay-1" || ev.Status != entities.PaymentStatusSuccess {
					t.Errorf("unexpected event: %+v", ev)
				}
				return nil
			},
		)

		res, err := uc.Ingest(context.Background(), signedCallback(successBody))
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if res.Outcome != entities.IngestOutcomeProcessed || res.Status != entities.PaymentStatusSuccess {
			t.Fatalf("unexpected result: %+v", res)
		}
	})

	t.Run("reported success but gateway says failed", func(t *testing.T) {
		uc, m := newPaymentUseCaseForTest(t)
		p := pendingPayment()
		m.gateway.EXPECT().VerifySignature(gomock.Any(), "sig").Return(true)
		m.repo.EXPECT().GetByGatewayReference(gomock.Any(), "tx-ref-1").Return(p, nil)
		m.gateway.EXPECT().Verify(gomock.Any(), "tx-ref-1").Return(entities.GatewayVerification{Status: "success", Message: "Payment details", TransactionStatus: "failed"}, nil)
		m.repo.EXPECT().TransitionFromPending(gomock.Any(), "pay-1", gomock.Any()).DoAndReturn(
			func(_ context.Context, _ string, tr entities.StatusTransition) (entities.Payment, bool, error) {
				if tr.Status != entities.PaymentStatusFailed || tr.FailureReason != "gateway verification failed: Payment details - failed" {
					t.Errorf("unexpected transition: %+v", tr)
				}
				return tr.Apply(p), true, nil
			},
		)
		m.events.EXPECT().PublishStatusChanged(gomock.Any(), gomock.Any()).Return(nil)

		res, err := uc.Ingest(context.Background(), signedCallback(successBody))
		if err != nil || res.Status != entities.PaymentStatusFailed {
			t.Fatalf("expected failed, got %+v err=%v", res, err)
		}
	})

	t.Run("verification error fails payment", func(t *testing.T) {
		uc, m := newPaymentUseCaseForTest(t)
		p := pendingPayment()
		m.gateway.EXPECT().VerifySignature(gomock.Any(), "sig").Return(true)
		m.repo.EXPECT().GetByGatewayReference(gomock.Any(), "tx-ref-1").Return(p, nil)
		m.gateway.EXPECT().Verify(gomock.Any(), "tx-ref-1").Return(entities.GatewayVerification{}, errors.New("gateway down"))
		m.repo.EXPECT().TransitionFromPending(gomock.Any(), "pay-1", gomock.Any()).DoAndReturn(
			func(_ context.Context, _ string, tr entities.StatusTransition) (entities.Payment, bool, error) {
				if !strings.HasPrefix(tr.FailureReason, "gateway verification error:") {
					t.Errorf("unexpected reason: %q", tr.FailureReason)
				}
				return tr.Apply(p), true, nil
			},
		)
		m.events.EXPECT().PublishStatusChanged(gomock.Any(), gomock.Any()).Return(errors.New("no brokers"))

		res, err := uc.Ingest(context.Background(), signedCallback(successBody))
		if err != nil || res.Status != entities.PaymentStatusFailed {
			t.Fatalf("expected failed, got %+v err=%v", res, err)
		}
	})

	t.Run("cancelled caller leaves payment pending", func(t *testing.T) {
		uc, m := newPaymentUseCaseForTest(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		m.gateway.EXPECT().VerifySignature(gomock.Any(), "sig").Return(true)
		m.repo.EXPECT().GetByGatewayReference(gomock.Any(), "tx-ref-1").Return(pendingPayment(), nil)
		m.gateway.EXPECT().Verify(gomock.Any(), "tx-ref-1").DoAndReturn(
			func(context.Context, string) (entities.GatewayVerification, error) {
				cancel()
				return entities.GatewayVerification{}, fmt.Errorf("chapa verify: %w", context.Canceled)
			},
		)

		_, err := uc.Ingest(ctx, signedCallback(successBody))
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("cancelled verify on memory store keeps pending", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		gateway := mock_interfaces.NewMockIPaymentGateway(ctrl)
		repo := repository.NewPaymentMemoryRepository()
		if _, err := repo.Create(context.Background(), pendingPayment()); err != nil {
			t.Fatalf("seed: %v", err)
		}
		uc := NewPaymentUseCase(repo, gateway, nil, nil, testSettings(), nil)

		ctx, cancel := context.WithCancel(context.Background())
		gateway.EXPECT().VerifySignature(gomock.Any(), gomock.Any()).Return(true)
		gateway.EXPECT().Verify(gomock.Any(), "tx-ref-1").DoAndReturn(
			func(context.Context, string) (entities.GatewayVerification, error) {
				cancel()
				return entities.GatewayVerification{}, context.Canceled
			},
		)

		if _, err := uc.Ingest(ctx, signedCallback(successBody)); err == nil {
			t.Fatal("expected an error")
		}
		stored, _ := repo.GetByID(context.Background(), "pay-1")
		if stored.Status != entities.PaymentStatusPending || stored.FailureReason != "" {
			t.Fatalf("payment must stay pending, got %+v", stored)
		}
	})

	t.Run("redirect is verified independently", func(t *testing.T) {
		uc, m := newPaymentUseCaseForTest(t)
		p := pendingPayment()
		m.repo.EXPECT().GetByGatewayReference(gomock.Any(), "tx-ref-1").Return(p, nil)
		m.gateway.EXPECT().Verify(gomock.Any(), "tx-ref-1").Return(entities.GatewayVerification{Status: "success", TransactionStatus: "pending"}, nil)
		m.repo.EXPECT().TransitionFromPending(gomock.Any(), "pay-1", gomock.Any()).DoAndReturn(
			func(_ context.Context, _ string, tr entities.StatusTransition) (entities.Payment, bool, error) {
				return tr.Apply(p), true, nil
			},
		)
		m.events.EXPECT().PublishStatusChanged(gomock.Any(), gomock.Any()).Return(nil)

		res, err := uc.Ingest(context.Background(), entities.GatewayCallback{Reference: "tx-ref-1", ReportedStatus: "success"})
		if err != nil || res.Status != entities.PaymentStatusFailed {
			t.Fatalf("expected failed, got %+v err=%v", res, err)
		}
	})

	t.Run("nested data fields", func(t *testing.T) {
		uc, m := newPaymentUseCaseForTest(t)
		body := `{"event":"charge.success","data":{"tx_ref":"tx-ref-1","status":"success"}}`
		m.gateway.EXPECT().VerifySignature(gomock.Any(), "sig").Return(true)
		m.repo.EXPECT().GetByGatewayReference(gomock.Any(), "tx-ref-1").Return(entities.Payment{}, nil)

		res, err := uc.Ingest(context.Background(), signedCallback(body))
		if err != nil || res.Outcome != entities.IngestOutcomeNotFound {
			t.Fatalf("unexpected result: %+v err=%v", res, err)
		}
	})

	t.Run("concurrent transition wins elsewhere", func(t *testing.T) {
		uc, m := newPaymentUseCaseForTest(t)
		p := pendingPayment()
		current := p
		current.Status = entities.PaymentStatusSuccess
		m.gateway.EXPECT().VerifySignature(gomock.Any(), "sig").Return(true)
		m.repo.EXPECT().GetByGatewayReference(gomock.Any(), "tx-ref-1").Return(p, nil)
		m.gateway.EXPECT().Verify(gomock.Any(), "tx-ref-1").Return(entities.GatewayVerification{Status: "success", TransactionStatus: "success"}, nil)
		m.repo.EXPECT().TransitionFromPending(gomock.Any(), "pay-1", gomock.Any()).Return(current, false, nil)

		res, err := uc.Ingest(context.Background(), signedCallback(successBody))
		if err != nil || res.Outcome != entities.IngestOutcomeAlreadyProcessed || res.Status != entities.PaymentStatusSuccess {
			t.Fatalf("expected already processed, got %+v err=%v", res, err)
		}
	})
}

func TestPaymentUseCase_SweepTimeouts(t *testing.T) {
	t.Run("non positive age", func(t *testing.T) {
		uc, _ := newPaymentUseCaseForTest(t)
		if _, err := uc.SweepTimeouts(context.Background(), 0); !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("expected ErrInvalidRequest, got %v", err)
		}
	})

	t.Run("fails stale payments", func(t *testing.T) {
		uc, m := newPaymentUseCaseForTest(t)
		stale := pendingPayment()
		raced := pendingPayment()
		raced.ID = "pay-2"
		m.repo.EXPECT().ListPendingCreatedBefore(gomock.Any(), testNow.Add(-24*time.Hour)).Return([]entities.Payment{stale, raced}, nil)
		m.repo.EXPECT().TransitionFromPending(gomock.Any(), "pay-1", gomock.Any()).DoAndReturn(
			func(_ context.Context, _ string, tr entities.StatusTransition) (entities.Payment, bool, error) {
				if tr.Status != entities.PaymentStatusFailed || tr.FailureReason != "timed out" {
					t.Errorf("unexpected transition: %+v", tr)
				}
				return tr.Apply(stale), true, nil
			},
		)
		m.repo.EXPECT().TransitionFromPending(gomock.Any(), "pay-2", gomock.Any()).Return(entities.Payment{}, false, nil)
		m.notifier.EXPECT().ConfirmPayment(gomock.Any(), testPropertyID, "pay-1", entities.PaymentStatusFailed).Return(errors.New("listing down"))
		m.events.EXPECT().PublishStatusChanged(gomock.Any(), gomock.Any()).Return(nil)

		n, err := uc.SweepTimeouts(context.Background(), 24*time.Hour)
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if n != 1 {
			t.Fatalf("expected 1 swept, got %d", n)
		}
	})

	t.Run("list error", func(t *testing.T) {
		uc, m := newPaymentUseCaseForTest(t)
		m.repo.EXPECT().ListPendingCreatedBefore(gomock.Any(), gomock.Any()).Return(nil, errors.New("db"))
		if _, err := uc.SweepTimeouts(context.Background(), time.Hour); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("transition errors are joined", func(t *testing.T) {
		uc, m := newPaymentUseCaseForTest(t)
		m.repo.EXPECT().ListPendingCreatedBefore(gomock.Any(), gomock.Any()).Return([]entities.Payment{pendingPayment()}, nil)
		m.repo.EXPECT().TransitionFromPending(gomock.Any(), "pay-1", gomock.Any()).Return(entities.Payment{}, false, errors.New("throttled"))

		n, err := uc.SweepTimeouts(context.Background(), time.Hour)
		if n != 0 || err == nil || !strings.Contains(err.Error(), "throttled") {
			t.Fatalf("expected joined error, got n=%d err=%v", n, err)
		}
	})
}

func TestPaymentUseCase_ConcurrentLifecycle(t *testing.T) {
	t.Run("duplicate initiations reach the gateway once", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		gateway := mock_interfaces.NewMockIPaymentGateway(ctrl)
		repo := repository.NewPaymentMemoryRepository()
		uc := NewPaymentUseCase(repo, gateway, nil, nil, testSettings(), nil)

		gateway.EXPECT().Initialize(gomock.Any(), gomock.Any()).
			Return(entities.CheckoutResult{Status: "success", CheckoutURL: "https://c"}, nil).
			Times(1)

		const workers = 8
		ids := make([]string, workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				view, err := uc.Initiate(context.Background(), InitiatePaymentInput{RequestID: testRequestID, PropertyID: testPropertyID}, ownerIdentity())
				if err != nil {
					t.Errorf("unexpected err: %v", err)
					return
				}
				ids[i] = view.ID
			}(i)
		}
		wg.Wait()

		for _, id := range ids {
			if id == "" || id != ids[0] {
				t.Fatalf("expected one payment for all callers, got %v", ids)
			}
		}
	})

	t.Run("first caller disconnecting does not fail the shared initiation", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		gateway := mock_interfaces.NewMockIPaymentGateway(ctrl)
		repo := repository.NewPaymentMemoryRepository()
		uc := NewPaymentUseCase(repo, gateway, nil, nil, testSettings(), nil)
		in := InitiatePaymentInput{RequestID: testRequestID, PropertyID: testPropertyID}

		entered := make(chan struct{})
		release := make(chan struct{})
		gatewayCtxErr := make(chan error, 1)
		gateway.EXPECT().Initialize(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, _ entities.CheckoutRequest) (entities.CheckoutResult, error) {
				close(entered)
				<-release
				gatewayCtxErr <- ctx.Err()
				return entities.CheckoutResult{Status: "success", CheckoutURL: "https://c"}, nil
			},
		).Times(1)

		firstCtx, cancelFirst := context.WithCancel(context.Background())
		firstErr := make(chan error, 1)
		go func() {
			_, err := uc.Initiate(firstCtx, in, ownerIdentity())
			firstErr <- err
		}()
		<-entered
		cancelFirst()
		if err := <-firstErr; !errors.Is(err, context.Canceled) {
			t.Fatalf("first caller: expected context.Canceled, got %v", err)
		}

		type outcome struct {
			view entities.PaymentView
			err  error
		}
		second := make(chan outcome, 1)
		go func() {
			view, err := uc.Initiate(context.Background(), in, ownerIdentity())
			second <- outcome{view, err}
		}()
		close(release)

		if err := <-gatewayCtxErr; err != nil {
			t.Fatalf("shared initiation saw a cancelled context: %v", err)
		}
		got := <-second
		if got.err != nil || got.view.ID == "" {
			t.Fatalf("second caller: %+v err=%v", got.view, got.err)
		}
		stored, err := repo.GetByRequestID(context.Background(), testRequestID)
		if err != nil || stored.ID != got.view.ID {
			t.Fatalf("expected committed payment %s, got %+v err=%v", got.view.ID, stored, err)
		}
	})

	t.Run("duplicate callbacks transition once", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		gateway := mock_interfaces.NewMockIPaymentGateway(ctrl)
		notifier := mock_interfaces.NewMockIListingNotifier(ctrl)
		repo := repository.NewPaymentMemoryRepository()
		if _, err := repo.Create(context.Background(), pendingPayment()); err != nil {
			t.Fatalf("seed: %v", err)
		}
		uc := NewPaymentUseCase(repo, gateway, nil, notifier, testSettings(), nil)

		gateway.EXPECT().VerifySignature(gomock.Any(), gomock.Any()).Return(true).AnyTimes()
		gateway.EXPECT().Verify(gomock.Any(), "tx-ref-1").
			Return(entities.GatewayVerification{Status: "success", TransactionStatus: "success"}, nil).
			AnyTimes()
		notifier.EXPECT().ConfirmPayment(gomock.Any(), testPropertyID, "pay-1", entities.PaymentStatusSuccess).Return(nil).Times(1)

		const workers = 8
		var processed int64
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := uc.Ingest(context.Background(), signedCallback(`{"tx_ref":"tx-ref-1","status":"success"}`))
				if err != nil {
					t.Errorf("unexpected err: %v", err)
					return
				}
				if res.Outcome == entities.IngestOutcomeProcessed {
					atomic.AddInt64(&processed, 1)
				}
			}()
		}
		wg.Wait()

		if processed != 1 {
			t.Fatalf("expected exactly one processed callback, got %d", processed)
		}
		stored, _ := repo.GetByID(context.Background(), "pay-1")
		if stored.Status != entities.PaymentStatusSuccess || stored.ApprovedAt == nil {
			t.Fatalf("unexpected stored payment: %+v", stored)
		}
	})
}
