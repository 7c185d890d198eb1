// Package dispatch implements the routine table and the dispatch
// algorithm of spec.md §4.3 (component C3): look up a msg_id, decode
// the request body, invoke the routine, and pack a reply or a
// REPLY_ERROR envelope.
package dispatch

import (
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"github.com/sirupsen/logrus"

	"github.com/srgg/rpcd/internal/protoconst"
	"github.com/srgg/rpcd/internal/wire"
)

// Status is a routine's outcome, distinct from a Go error: a routine
// can return a semantically meaningful failure (e.g. a null dlopen
// handle) that is still ROUTINE_SUCCESS — only these three values
// affect dispatch (spec.md §7).
type Status int

const (
	StatusSuccess Status = iota
	StatusProtocolError
	StatusServerError
)

// Routine handles one decoded request body and returns a packed reply
// body plus its outcome. Cleanup, when set, runs after a successful
// reply body is packed, for routines whose reply borrows memory that
// must outlive packing but not the dispatch call. None of the routines
// in internal/routines sets it: their reply bodies are independent
// copies.
type Routine struct {
	Name    string
	Handler func(body []byte) (replyBody []byte, status Status, err error)
	Cleanup func()
}

// Table is the ordered msg_id -> Routine map. Kept as an ordered map,
// the way the lua API surface keeps its insertion-ordered service/
// characteristic tables, so iteration (e.g. for a future introspection
// command) is deterministic rather than map-random.
type Table struct {
	routines *orderedmap.OrderedMap[uint32, *Routine]
}

func NewTable() *Table {
	return &Table{routines: orderedmap.New[uint32, *Routine]()}
}

func (t *Table) Register(msgID uint32, r *Routine) {
	t.routines.Set(msgID, r)
}

type lookupError int

const (
	lookupValid lookupError = iota
	lookupOutOfBounds
	lookupNoRoutine
)

func (t *Table) lookup(msgID uint32) (*Routine, lookupError) {
	if msgID == 0 || msgID >= protoconst.MaxReqMsgID {
		return nil, lookupOutOfBounds
	}
	r, ok := t.routines.Get(msgID)
	if !ok || r.Handler == nil {
		return nil, lookupNoRoutine
	}
	return r, lookupValid
}

// Dispatch runs the six-step algorithm of spec.md §4.3 against a
// decoded request envelope and returns the reply envelope to send.
// Dispatch never returns a Go error: every failure mode it recognizes
// is represented as a REPLY_ERROR envelope, per spec.md §7 — framing
// errors are the caller's (internal/wire's) responsibility, not this
// layer's.
func (t *Table) Dispatch(req *wire.Envelope) *wire.Envelope {
	entry, lookupErr := t.lookup(req.MsgID)
	switch lookupErr {
	case lookupOutOfBounds:
		return wire.ReplyError(
			fmt.Sprintf("Out of bound msg_id %d: must be 1-%d", req.MsgID, protoconst.MaxReqMsgID-1), 0)
	case lookupNoRoutine:
		return wire.ReplyError(fmt.Sprintf("No routine configured for msg_id %d", req.MsgID), 0)
	}

	logrus.WithFields(logrus.Fields{"msg_id": req.MsgID, "routine": entry.Name}).Trace("dispatching")

	replyBody, status, err := entry.Handler(req.Body)
	switch status {
	case StatusServerError:
		logrus.WithError(err).WithField("routine", entry.Name).Error("server error")
		return wire.ReplyError(fmt.Sprintf("Server error on msg_id %d (%s)", req.MsgID, entry.Name), 0)
	case StatusProtocolError:
		return wire.ReplyError(fmt.Sprintf("Protocol error on msg_id %d (%s)", req.MsgID, entry.Name), 0)
	}

	reply := &wire.Envelope{
		Magic: protoconst.MessageMagic,
		MsgID: protoconst.ReplyID(req.MsgID),
		Body:  replyBody,
	}
	if entry.Cleanup != nil {
		entry.Cleanup()
	}
	return reply
}
