package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/throughline-systems/supplychain")

// StartLinkSpan opens a span around one SupplyLink execution, tagged
// with the chain, link position and requisition so a trace viewer can
// line up a SupplyOrder's spans with its Manifests.
func StartLinkSpan(ctx context.Context, chainID string, position int, requisitionID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "supplychain.link.process",
		trace.WithAttributes(
			attribute.String("supplychain.chain_id", chainID),
			attribute.Int("supplychain.link_position", position),
			attribute.String("supplychain.requisition_id", requisitionID),
		),
	)
}

// StartOrderSpan opens a span around one SupplyOrder's full chain
// execution.
func StartOrderSpan(ctx context.Context, orderID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "supplychain.order.process",
		trace.WithAttributes(attribute.String("supplychain.order_id", orderID)),
	)
}
