package logger

// Field names shared by every log line.
const (
	FieldService    = "service"
	FieldOperation  = "operation"
	FieldError      = "error"
	FieldUserID     = "user_id"
	FieldChatID     = "chat_id"
	FieldTransferID = "transfer_id"
	FieldSessionID  = "session_id"
	FieldRequestID  = "request_id"
)
