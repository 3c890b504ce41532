// Package transaction implements a deliberately simplified RFC 3261 §17
// transaction layer: (branch, method) keyed matching of responses to
// requests and detection of request retransmissions, with no
// retransmission timers (§4.6). Reliability for UDP is the upstream
// proxy's job; this core assumes it is deployed behind one.
package transaction

import (
	"context"
	"strings"
	"sync"

	"github.com/looplab/fsm"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosipua/sipua/sip"
)

const keySeparator = "__"

// State is a transaction's position in the simplified state machine
// (§4.6). Every entry starts in Trying; a 1xx moves it to Proceeding, a 2xx
// to Completed for INVITE and to Terminated otherwise, and a 3xx–6xx to
// Completed. No timer moves a Completed entry on to Terminated.
type State string

const (
	StateTrying     State = "Trying"
	StateProceeding State = "Proceeding"
	StateCompleted  State = "Completed"
	StateTerminated State = "Terminated"
)

// Entry is one matched transaction: the original request, the last
// response seen (if any), and the state machine tracking it.
type Entry struct {
	mu sync.Mutex

	Key      string
	Method   sip.RequestMethod
	Request  *sip.Request
	Response *sip.Response

	fsm *fsm.FSM
}

func newEntry(key string, method sip.RequestMethod, req *sip.Request) *Entry {
	e := &Entry{Key: key, Method: method, Request: req}
	e.fsm = fsm.NewFSM(
		string(StateTrying),
		fsm.Events{
			{Name: "proceeding", Src: []string{string(StateTrying)}, Dst: string(StateProceeding)},
			{Name: "complete", Src: []string{string(StateTrying), string(StateProceeding)}, Dst: string(StateCompleted)},
			{Name: "terminate", Src: []string{string(StateTrying), string(StateProceeding), string(StateCompleted)}, Dst: string(StateTerminated)},
		},
		fsm.Callbacks{},
	)
	return e
}

// State returns the entry's current state.
func (e *Entry) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State(e.fsm.Current())
}

func (e *Entry) transition(event string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	_ = e.fsm.Event(context.Background(), event)
}

// advance applies the §4.6 state table for a newly matched response to an
// entry, and records the response.
func (e *Entry) advance(resp *sip.Response, isInvite bool) {
	e.mu.Lock()
	e.Response = resp
	e.mu.Unlock()

	switch {
	case resp.IsProvisional():
		e.transition("proceeding")
	case resp.IsSuccess():
		if isInvite {
			e.transition("complete")
		} else {
			e.transition("terminate")
		}
	default:
		e.transition("complete")
	}
}

// table is a single (client or server) map of transaction keys to entries,
// grounded on the teacher's transactionStore.
type table struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

func newTable() *table {
	return &table{entries: make(map[string]*Entry)}
}

func (t *table) put(e *Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[e.Key] = e
}

func (t *table) get(key string) (*Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[key]
	return e, ok
}

func (t *table) pruneTerminated() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, e := range t.entries {
		if e.State() == StateTerminated {
			delete(t.entries, k)
		}
	}
}

// Table holds the two independent client/server transaction maps (§4.6).
type Table struct {
	client *table
	server *table
	log    zerolog.Logger
}

// NewTable constructs an empty transaction table.
func NewTable() *Table {
	return &Table{
		client: newTable(),
		server: newTable(),
		log:    log.Logger.With().Str("caller", "transaction.Table").Logger(),
	}
}

// matchMethod collapses ACK/CANCEL onto INVITE for key purposes, since both
// belong to the INVITE transaction they ride alongside.
func matchMethod(m sip.RequestMethod) sip.RequestMethod {
	if m == sip.ACK || m == sip.CANCEL {
		return sip.INVITE
	}
	return m
}

func makeKey(branch string, method sip.RequestMethod) string {
	var b strings.Builder
	b.WriteString(branch)
	b.WriteString(keySeparator)
	b.WriteString(string(matchMethod(method)))
	return b.String()
}

// branchOf does a fast linear scan for the branch param on the topmost Via,
// avoiding a full Via parse when only the branch is needed (§4.6).
func branchOf(viaValue string) string {
	idx := strings.Index(viaValue, "branch=")
	if idx < 0 {
		return ""
	}
	rest := viaValue[idx+len("branch="):]
	if end := strings.IndexByte(rest, ';'); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

func topViaValue(h *sip.Headers) (string, bool) {
	return h.First("via")
}

// CreateClient registers req as a new outbound client transaction in the
// Trying state, keyed by its own Via branch and method.
func (t *Table) CreateClient(req *sip.Request) (*Entry, bool) {
	viaValue, ok := topViaValue(req.Headers)
	if !ok {
		return nil, false
	}
	branch := branchOf(viaValue)
	if branch == "" {
		return nil, false
	}
	key := makeKey(branch, req.Method)
	e := newEntry(key, req.Method, req)
	t.client.put(e)
	return e, true
}

// MatchResponse finds the client transaction resp answers, stamps the
// response onto it, advances its state, and returns it. ok is false if no
// matching entry exists; the table keeps no record of an unmatched response.
func (t *Table) MatchResponse(resp *sip.Response) (*Entry, bool) {
	viaValue, ok := topViaValue(resp.Headers)
	if !ok {
		return nil, false
	}
	cseq := resp.CSeq()
	if cseq == nil {
		return nil, false
	}
	branch := branchOf(viaValue)
	if branch == "" {
		return nil, false
	}
	key := makeKey(branch, cseq.Method)
	e, exists := t.client.get(key)
	if !exists {
		return nil, false
	}
	e.advance(resp, cseq.Method == sip.INVITE)
	return e, true
}

// CreateServer registers req as a new inbound server transaction in the
// Trying state.
func (t *Table) CreateServer(req *sip.Request) (*Entry, bool) {
	viaValue, ok := topViaValue(req.Headers)
	if !ok {
		return nil, false
	}
	branch := branchOf(viaValue)
	if branch == "" {
		return nil, false
	}
	key := makeKey(branch, req.Method)
	e := newEntry(key, req.Method, req)
	t.server.put(e)
	return e, true
}

// MatchRequest looks up the server transaction for an inbound request,
// reporting whether this is a retransmission of one already seen.
func (t *Table) MatchRequest(req *sip.Request) (*Entry, bool) {
	viaValue, ok := topViaValue(req.Headers)
	if !ok {
		return nil, false
	}
	branch := branchOf(viaValue)
	if branch == "" {
		return nil, false
	}
	key := makeKey(branch, req.Method)
	return t.server.get(key)
}

// RecordServerResponse stamps a response being sent for a server
// transaction and advances its state.
func (t *Table) RecordServerResponse(e *Entry, resp *sip.Response) {
	e.advance(resp, e.Method == sip.INVITE)
}

// PruneTerminated sweeps both the client and server maps, dropping every
// Terminated entry.
func (t *Table) PruneTerminated() {
	t.client.pruneTerminated()
	t.server.pruneTerminated()
}
