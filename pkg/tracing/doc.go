// Package tracing records reactive engine activity as OpenTelemetry spans.
//
//	_, remove := tracing.Install(tracing.WithTracerName("checkout"))
//	defer remove()
//
// Spans are siblings under the configured parent context. Use the node
// filter to limit tracing to named nodes in busy graphs:
//
//	tracing.Install(tracing.WithNodeFilter(func(n reactive.NodeInfo) bool {
//	    return n.Name != ""
//	}))
package tracing
