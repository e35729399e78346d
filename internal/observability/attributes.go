// Package observability provides metrics, tracing, and logging utilities.
package observability

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys
const (
	attrMethod = "method"
	attrPath   = "path"
	attrStatus = "status"
	attrImage  = "image"
	attrFrom   = "from"
	attrTo     = "to"
)

func methodAttr(method string) attribute.KeyValue {
	return attribute.String(attrMethod, method)
}

func pathAttr(path string) attribute.KeyValue {
	// Normalize paths with IDs to reduce cardinality
	// /v1/containers/abc123 -> /v1/containers/{containerId}
	normalized := normalizePath(path)
	return attribute.String(attrPath, normalized)
}

func httpStatusAttr(code int) attribute.KeyValue {
	// Group status codes to reduce cardinality
	// 200-299 -> 2xx, 400-499 -> 4xx, 500-599 -> 5xx
	group := fmt.Sprintf("%dxx", code/100)
	return attribute.String(attrStatus, group)
}

func imageAttr(image string) attribute.KeyValue {
	return attribute.String(attrImage, image)
}

func recordStatusAttr(status string) attribute.KeyValue {
	return attribute.String(attrStatus, normalizeStatus(status))
}

func fromAttr(status string) attribute.KeyValue {
	return attribute.String(attrFrom, normalizeStatus(status))
}

func toAttr(status string) attribute.KeyValue {
	return attribute.String(attrTo, normalizeStatus(status))
}

// normalizePath replaces dynamic path segments with placeholders.
func normalizePath(path string) string {
	// Simple normalization for /v1/containers/{containerId}
	// More sophisticated routing-aware normalization would be better
	const prefix = "/v1/containers/"
	if len(path) > len(prefix) && path[:len(prefix)] == prefix {
		return "/v1/containers/{containerId}"
	}
	return path
}

// normalizeStatus collapses anything outside the lifecycle enumeration into
// a single label so hand-edited records cannot blow up cardinality. The
// "deleted" label marks records removed at the end of teardown.
func normalizeStatus(status string) string {
	switch status {
	case "Pending", "Created", "Running", "Stopped", "Removing", "Failed", "deleted":
		return status
	default:
		return "unrecognized"
	}
}
