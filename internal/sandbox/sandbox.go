// Package sandbox is the surface dapp code calls: five named methods that
// attach the caller's identity to a request body and hand it to the
// gateway.
package sandbox

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/4miners/shift/internal/gateway"
	"github.com/4miners/shift/internal/namespace"
	"github.com/4miners/shift/internal/queryir"
)

// Method names callable from a dapp.
const (
	MethodSelect = "select"
	MethodBatch  = "batch"
	MethodInsert = "insert"
	MethodUpdate = "update"
	MethodRemove = "remove"
)

// Executor runs requests on behalf of the adapter. *gateway.Gateway
// satisfies it.
type Executor interface {
	Query(ctx context.Context, action string, req gateway.Request) (gateway.Result, error)
	Batch(ctx context.Context, p gateway.BatchPayload) (gateway.Result, error)
}

// Request is a call as it arrives from a dapp: the caller's identifier and
// the raw request body.
type Request struct {
	DappID string
	Body   []byte
}

// NewRequest normalises dappid (a string or an integral number) and pairs
// it with body.
func NewRequest(dappid any, body []byte) (Request, error) {
	id, err := namespace.DappID(dappid)
	if err != nil {
		return Request{}, err
	}
	return Request{DappID: id, Body: body}, nil
}

// NotImplementedError is returned by Call for an unknown method name.
type NotImplementedError struct {
	Method string
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("method %q not implemented", e.Method)
}

type handler func(a *Adapter, ctx context.Context, req Request) (gateway.Result, error)

var handlers = map[string]handler{
	MethodSelect: (*Adapter).Select,
	MethodBatch:  (*Adapter).Batch,
	MethodInsert: (*Adapter).Insert,
	MethodUpdate: (*Adapter).Update,
	MethodRemove: (*Adapter).Remove,
}

// Adapter exposes the gateway to dapps. The caller's identifier always
// replaces any dappid the body carries.
type Adapter struct {
	exec   Executor
	logger *slog.Logger
}

// New creates an Adapter over exec.
func New(exec Executor, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{exec: exec, logger: logger}
}

// Select reads rows from the caller's tables.
func (a *Adapter) Select(ctx context.Context, req Request) (gateway.Result, error) {
	return a.exec.Query(ctx, queryir.ActionSelect, gateway.Request{DappID: req.DappID, Body: req.Body})
}

// Insert adds rows to one of the caller's tables.
func (a *Adapter) Insert(ctx context.Context, req Request) (gateway.Result, error) {
	return a.exec.Query(ctx, queryir.ActionInsert, gateway.Request{DappID: req.DappID, Body: req.Body})
}

// Update changes rows in one of the caller's tables.
func (a *Adapter) Update(ctx context.Context, req Request) (gateway.Result, error) {
	return a.exec.Query(ctx, queryir.ActionUpdate, gateway.Request{DappID: req.DappID, Body: req.Body})
}

// Remove deletes rows from one of the caller's tables.
func (a *Adapter) Remove(ctx context.Context, req Request) (gateway.Result, error) {
	return a.exec.Query(ctx, queryir.ActionRemove, gateway.Request{DappID: req.DappID, Body: req.Body})
}

// Batch bulk-inserts rows into one of the caller's tables.
func (a *Adapter) Batch(ctx context.Context, req Request) (gateway.Result, error) {
	p, err := gateway.DecodeBatch(req.Body)
	if err != nil {
		return gateway.Result{}, err
	}
	p.DappID = req.DappID
	return a.exec.Batch(ctx, p)
}

// Methods lists the callable method names in sorted order.
func (a *Adapter) Methods() []string {
	names := make([]string, 0, len(handlers))
	for name := range handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call dispatches req to the method called name.
func (a *Adapter) Call(ctx context.Context, name string, req Request) (any, error) {
	h, ok := handlers[name]
	if !ok {
		return nil, &NotImplementedError{Method: name}
	}
	a.logger.Debug("sandbox call", "method", name, "dappid", req.DappID)
	return h(a, ctx, req)
}

// CallAsync runs Call on its own goroutine and passes the outcome to done.
func (a *Adapter) CallAsync(ctx context.Context, name string, req Request, done func(any, error)) {
	go func() {
		done(a.Call(ctx, name, req))
	}()
}
