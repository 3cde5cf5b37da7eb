package log

const (
	FieldComponent = "component"
	FieldSessionID = "session_id"
	FieldSide      = "side"
	FieldTerm      = "term"
	FieldEpoch     = "epoch"
	FieldEndpoint  = "endpoint"
	FieldStatus    = "status"
)
