package payment

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// LocalProvider simule Checkout en local (APP_ENV=memory): la session est payée dès sa création
type LocalProvider struct {
	mu       sync.Mutex
	sessions map[string]*Session
	seq      int
}

func NewLocalProvider() *LocalProvider {
	return &LocalProvider{sessions: make(map[string]*Session)}
}

func (p *LocalProvider) CreateSession(_ context.Context, in SessionParams) (*Session, error) {
	if len(in.LineItems) == 0 {
		return nil, fmt.Errorf("session sans ligne")
	}

	var amount int64
	for _, item := range in.LineItems {
		amount += item.UnitAmount * item.Quantity
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	id := fmt.Sprintf("cs_local_%d", p.seq)

	metadata := make(map[string]string, len(in.Metadata))
	for k, v := range in.Metadata {
		metadata[k] = v
	}

	s := &Session{
		ID:                id,
		URL:               strings.ReplaceAll(in.SuccessURL, "{CHECKOUT_SESSION_ID}", id),
		PaymentStatus:     PaymentStatusPaid,
		ClientReferenceID: in.ClientReferenceID,
		AmountTotal:       amount,
		Metadata:          metadata,
	}
	p.sessions[id] = s

	out := *s
	return &out, nil
}

func (p *LocalProvider) RetrieveSession(_ context.Context, id string) (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session locale %s introuvable", id)
	}
	out := *s
	return &out, nil
}
