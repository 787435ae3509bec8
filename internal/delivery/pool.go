package delivery

import (
	"context"
	"errors"
	"sync/atomic"
)

var ErrNoHealthy = errors.New("no healthy gateways")

// Pool spreads sends round-robin over gateways whose breaker is not open.
// Each Send is a single attempt on a single gateway.
type Pool struct {
	gateways []*HTTPGateway
	counter  atomic.Uint64
}

func NewPool(gws ...*HTTPGateway) *Pool {
	return &Pool{gateways: gws}
}

func (p *Pool) pick() (*HTTPGateway, error) {
	healthy := make([]*HTTPGateway, 0, len(p.gateways))
	for _, g := range p.gateways {
		if g.Ready() {
			healthy = append(healthy, g)
		}
	}
	if len(healthy) == 0 {
		return nil, ErrNoHealthy
	}

	x := p.counter.Add(1)
	return healthy[int((x-1)%uint64(len(healthy)))], nil
}

func (p *Pool) Send(ctx context.Context, to, body string) error {
	g, err := p.pick()
	if err != nil {
		return err
	}
	return g.Send(ctx, to, body)
}
