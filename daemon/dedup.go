package daemon

import "github.com/gagliardetto/solana-go"

// ProcessedRequests remembers the requests this process fulfilled.
//
// It is only touched from the poll loop and is empty after a restart; the
// coordinator program rejecting fulfillment of an already fulfilled request is
// what keeps a restarted daemon from double fulfilling.
type ProcessedRequests struct {
	seen map[solana.PublicKey]struct{}
}

func NewProcessedRequests() *ProcessedRequests {
	return &ProcessedRequests{seen: make(map[solana.PublicKey]struct{})}
}

func (p *ProcessedRequests) IsProcessed(request solana.PublicKey) bool {
	_, ok := p.seen[request]
	return ok
}

// MarkProcessed must only be called once the fulfillment transaction is confirmed
func (p *ProcessedRequests) MarkProcessed(request solana.PublicKey) {
	p.seen[request] = struct{}{}
}

func (p *ProcessedRequests) Len() int {
	return len(p.seen)
}
