package observability

import "go.opentelemetry.io/otel/attribute"

// Attribute keys
const (
	attrOp      = "op"
	attrKind    = "kind"
	attrReached = "reached"
)

func opAttr(op string) attribute.KeyValue {
	return attribute.String(attrOp, op)
}

func kindAttr(kind string) attribute.KeyValue {
	return attribute.String(attrKind, kind)
}

func reachedAttr(reached bool) attribute.KeyValue {
	return attribute.Bool(attrReached, reached)
}
