// Package calling holds the call-automation event contracts.
package calling

import "github.com/Enriquefft/acs-eventhandler/internal/contracts/common"

// CallEvent carries the fields common to every call-automation event.
type CallEvent struct {
	CallConnectionID string `json:"callConnectionId"`
	ServerCallID     string `json:"serverCallId"`
	CorrelationID    string `json:"correlationId"`
	OperationContext string `json:"operationContext,omitempty"`
}

// CallConnectionState is the lifecycle state of a call connection.
type CallConnectionState string

const (
	StateUnknown       CallConnectionState = "unknown"
	StateConnecting    CallConnectionState = "connecting"
	StateConnected     CallConnectionState = "connected"
	StateTransferring  CallConnectionState = "transferring"
	StateDisconnecting CallConnectionState = "disconnecting"
	StateDisconnected  CallConnectionState = "disconnected"
)

// CallConnected is raised when the call is established.
type CallConnected struct {
	CallEvent
}

// CallDisconnected is raised when the call has ended.
type CallDisconnected struct {
	CallEvent
}

// CallConnectionStateChanged is raised on every connection state transition.
type CallConnectionStateChanged struct {
	CallEvent
	CallConnectionState CallConnectionState `json:"callConnectionState"`
}

// ParticipantsUpdated carries the full participant list after a change.
type ParticipantsUpdated struct {
	CallEvent
	Participants   []common.CommunicationIdentifier `json:"participants"`
	SequenceNumber int                              `json:"sequenceNumber,omitempty"`
}

// AddParticipantSucceeded is raised when an invited participant joins.
type AddParticipantSucceeded struct {
	CallEvent
	Participant       common.CommunicationIdentifier `json:"participant"`
	ResultInformation *common.ResultInformation      `json:"resultInformation,omitempty"`
}

// AddParticipantFailed is raised when an invitation could not be completed.
type AddParticipantFailed struct {
	CallEvent
	Participant       common.CommunicationIdentifier `json:"participant"`
	ResultInformation *common.ResultInformation      `json:"resultInformation,omitempty"`
}

// CallTransferAccepted is raised when the transfer target accepted the call.
type CallTransferAccepted struct {
	CallEvent
	ResultInformation *common.ResultInformation `json:"resultInformation,omitempty"`
}

// PlayCompleted is raised when a media play operation finishes.
type PlayCompleted struct {
	CallEvent
	ResultInformation *common.ResultInformation `json:"resultInformation,omitempty"`
}

// PlayFailed is raised when a media play operation fails.
type PlayFailed struct {
	CallEvent
	ResultInformation *common.ResultInformation `json:"resultInformation,omitempty"`
}

// RecognizeCompleted is raised when input recognition produced a result.
type RecognizeCompleted struct {
	CallEvent
	RecognitionType    string                    `json:"recognitionType"`
	CollectTonesResult *CollectTonesResult       `json:"collectTonesResult,omitempty"`
	ResultInformation  *common.ResultInformation `json:"resultInformation,omitempty"`
}

// CollectTonesResult holds the DTMF tones collected by a recognize operation.
type CollectTonesResult struct {
	Tones []string `json:"tones"`
}

// RecognizeFailed is raised when input recognition timed out or failed.
type RecognizeFailed struct {
	CallEvent
	ResultInformation *common.ResultInformation `json:"resultInformation,omitempty"`
}

// IncomingCall is delivered before the call is answered.
type IncomingCall struct {
	To                  common.CommunicationIdentifier `json:"to"`
	From                common.CommunicationIdentifier `json:"from"`
	CallerDisplayName   string                         `json:"callerDisplayName,omitempty"`
	ServerCallID        string                         `json:"serverCallId"`
	IncomingCallContext string                         `json:"incomingCallContext"`
	CorrelationID       string                         `json:"correlationId"`
	HasIncomingVideo    bool                           `json:"hasIncomingVideo,omitempty"`
}
