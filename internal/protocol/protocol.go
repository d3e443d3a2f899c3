package protocol

import "encoding/json"

const Version = "1.0"

// Orchestrator -> planet message types.
const (
	TypeSunray       = "SUNRAY"
	TypeAsteroid     = "ASTEROID"
	TypeStateRequest = "STATE_REQUEST"
)

// Planet -> orchestrator message types.
const (
	TypeSunrayAck   = "SUNRAY_ACK"
	TypeStateReport = "STATE_REPORT"
)

// Explorer -> planet message types.
const (
	TypeSupportedResourcesRequest    = "SUPPORTED_RESOURCES_REQUEST"
	TypeSupportedCombinationsRequest = "SUPPORTED_COMBINATIONS_REQUEST"
	TypeGenerateRequest              = "GENERATE_REQUEST"
	TypeCombineRequest               = "COMBINE_REQUEST"
	TypeAvailableCellsRequest        = "AVAILABLE_CELLS_REQUEST"
)

// Planet -> explorer message types.
const (
	TypeSupportedResourcesResponse    = "SUPPORTED_RESOURCES_RESPONSE"
	TypeSupportedCombinationsResponse = "SUPPORTED_COMBINATIONS_RESPONSE"
	TypeGenerateResponse              = "GENERATE_RESPONSE"
	TypeCombineResponse               = "COMBINE_RESPONSE"
	TypeAvailableCellsResponse        = "AVAILABLE_CELLS_RESPONSE"
)

// Observer feed message types.
const (
	TypeAdmission = "ADMISSION"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
