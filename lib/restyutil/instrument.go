package restyutil

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/semconv/v1.13.0/httpconv"
	"go.opentelemetry.io/otel/trace"
)

type InstrumentOutput interface {
	Write(id string, contents string)
}

type instrumentCtx struct {
	output    InstrumentOutput
	tracer    trace.Tracer
	prefix    string
	idcounter *uint64
}

type contextKey int

const (
	messageIdKey contextKey = iota
	spanKey
)

// InstrumentClient traces every request of the client and, when output is
// not nil, writes the full exchange to it.
//
// `tracer` can be nil, it will default to a library name of "resty"
func InstrumentClient(client *resty.Client, tracer trace.Tracer, output InstrumentOutput) {
	if tracer == nil {
		tracer = otel.Tracer("resty")
	}

	var idcounter uint64
	i := instrumentCtx{
		output: output,
		tracer: tracer,
		// ids stay unique across runs dumping into the same directory
		prefix:    strconv.FormatInt(time.Now().Unix(), 10),
		idcounter: &idcounter,
	}
	client.OnBeforeRequest(i.onBeforeRequest)
	client.OnAfterResponse(i.onAfterResponse)
	client.OnError(i.onError)
}

func (i instrumentCtx) onBeforeRequest(_ *resty.Client, req *resty.Request) error {
	ctx, span := i.tracer.Start(req.Context(), fmt.Sprintf("http %s", req.Method))

	messageId := fmt.Sprintf("%s-%06d", i.prefix, atomic.AddUint64(i.idcounter, 1))
	span.SetAttributes(attribute.String("message_id", messageId))
	ctx = context.WithValue(ctx, messageIdKey, messageId)
	ctx = context.WithValue(ctx, spanKey, span)

	req.SetContext(ctx)
	return nil
}

func (i instrumentCtx) onAfterResponse(_ *resty.Client, res *resty.Response) error {
	ctx := res.Request.Context()
	span, ok := ctx.Value(spanKey).(trace.Span)
	if !ok {
		return nil
	}
	defer span.End()

	// request attributes are set here since res.Request.RawRequest is nil in onBeforeRequest
	if res.Request.RawRequest != nil {
		span.SetAttributes(httpconv.ClientRequest(res.Request.RawRequest)...)
	}
	if res.RawResponse != nil {
		span.SetAttributes(httpconv.ClientResponse(res.RawResponse)...)
	}
	if res.IsError() {
		span.SetStatus(codes.Error, res.Status())
	}

	messageId, ok := ctx.Value(messageIdKey).(string)
	if ok && i.output != nil {
		i.output.Write(messageId, formatHttpMessage(res))
	}
	return nil
}

func (i instrumentCtx) onError(req *resty.Request, err error) {
	// a hook that failed before onBeforeRequest leaves no span of ours
	span, ok := req.Context().Value(spanKey).(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	span.RecordError(err)
	span.SetStatus(codes.Error, "request failed")
	if req.RawRequest != nil {
		span.SetAttributes(httpconv.ClientRequest(req.RawRequest)...)
	}
}
