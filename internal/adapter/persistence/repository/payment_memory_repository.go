package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"rent_payment_service/internal/domain/entities"
	"rent_payment_service/internal/usecase/interfaces"
)

// PaymentMemoryRepository keeps payments in process memory. Used for local
// runs (STORE_BACKEND=memory) and tests.
type PaymentMemoryRepository struct {
	mu          sync.RWMutex
	payments    map[string]entities.Payment
	byRequestID map[string]string
	byReference map[string]string
}

var _ interfaces.IPaymentRepository = (*PaymentMemoryRepository)(nil)

func NewPaymentMemoryRepository() *PaymentMemoryRepository {
	return &PaymentMemoryRepository{
		payments:    make(map[string]entities.Payment),
		byRequestID: make(map[string]string),
		byReference: make(map[string]string),
	}
}

func (r *PaymentMemoryRepository) Create(_ context.Context, p entities.Payment) (entities.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.payments[p.ID]; exists {
		return entities.Payment{}, interfaces.ErrDuplicatePayment
	}
	if _, exists := r.byRequestID[p.RequestID]; exists {
		return entities.Payment{}, interfaces.ErrDuplicatePayment
	}
	if _, exists := r.byReference[p.GatewayReference]; exists {
		return entities.Payment{}, interfaces.ErrDuplicatePayment
	}

	r.payments[p.ID] = p
	r.byRequestID[p.RequestID] = p.ID
	r.byReference[p.GatewayReference] = p.ID
	return p, nil
}

func (r *PaymentMemoryRepository) GetByID(_ context.Context, id string) (entities.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.payments[id], nil
}

func (r *PaymentMemoryRepository) GetByRequestID(_ context.Context, requestID string) (entities.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.payments[r.byRequestID[requestID]], nil
}

func (r *PaymentMemoryRepository) GetByGatewayReference(_ context.Context, reference string) (entities.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.payments[r.byReference[reference]], nil
}

func (r *PaymentMemoryRepository) TransitionFromPending(_ context.Context, id string, t entities.StatusTransition) (entities.Payment, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.payments[id]
	if !ok {
		return entities.Payment{}, false, nil
	}
	if p.Status != entities.PaymentStatusPending {
		return p, false, nil
	}
	p = t.Apply(p)
	r.payments[id] = p
	return p, true, nil
}

func (r *PaymentMemoryRepository) ListPendingCreatedBefore(_ context.Context, cutoff time.Time) ([]entities.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]entities.Payment, 0)
	for _, p := range r.payments {
		if p.Status == entities.PaymentStatusPending && p.CreatedAt.Before(cutoff) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *PaymentMemoryRepository) Stats(context.Context) (entities.PaymentStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stats entities.PaymentStats
	for _, p := range r.payments {
		stats.Add(p)
	}
	return stats, nil
}

func (r *PaymentMemoryRepository) Ping(context.Context) error { return nil }
