package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID     = "request_id"
	FieldCorrelationID = "correlation_id"
	FieldRefreshID     = "refresh_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Carpark data fields
	FieldSource    = "source"
	FieldAgency    = "agency"
	FieldCarparkID = "carpark_id"
	FieldLotType   = "lot_type"
	FieldRecords   = "records"

	// Path / URL fields
	FieldPath    = "path"
	FieldBaseURL = "base_url"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"
)
