package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldUserID     = "user_id"
	FieldFlow       = "flow"
	FieldState      = "state"
	FieldKind       = "kind"
	FieldCategory   = "category"
	FieldRecordID   = "record_id"
	FieldAmount     = "amount"
	FieldBackend    = "backend"
	FieldTransport  = "transport"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentTelegram = "telegram"
	ComponentDialog   = "dialog"
	ComponentLedger   = "ledger"
	ComponentStorage  = "storage"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentSheets   = "sheets"
	ComponentCache    = "cache"
	ComponentChart    = "chart"
	ComponentBackend  = "backend"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpDelete   = "delete"
	OpList     = "list"
	OpAppend   = "append"
	OpEnsure   = "ensure"
	OpLoad     = "load"
	OpSave     = "save"
	OpSync     = "sync"
	OpValidate = "validate"
	OpRender   = "render"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation  = "validation_error"
	ErrorTypePersistence = "persistence_error"
	ErrorTypeNotFound    = "not_found_error"
	ErrorTypeNetwork     = "network_error"
	ErrorTypeInternal    = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithUser adds the chat user id
func (f LogFields) WithUser(userID string) LogFields {
	f[FieldUserID] = userID
	return f
}

// WithDialog adds the active flow and state
func (f LogFields) WithDialog(flow, state string) LogFields {
	f[FieldFlow] = flow
	f[FieldState] = state
	return f
}

// WithRecord adds record-related fields
func (f LogFields) WithRecord(kind, category, recordID, amount string) LogFields {
	f[FieldKind] = kind
	f[FieldCategory] = category
	f[FieldRecordID] = recordID
	f[FieldAmount] = amount
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
