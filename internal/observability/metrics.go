package observability

const (
	MOperationRequests   MetricKey = "inventory_operations_total"
	MOperationDuration   MetricKey = "inventory_operation_duration_seconds"
	MInventoryItems      MetricKey = "inventory_items"
	MHTTPRequests        MetricKey = "http_requests_total"
	MHTTPRequestDuration MetricKey = "http_request_duration_seconds"
)
