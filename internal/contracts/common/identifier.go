// Package common holds contract types shared by every event generation.
package common

// IdentifierKind discriminates the populated member of a CommunicationIdentifier.
type IdentifierKind string

const (
	KindCommunicationUser  IdentifierKind = "communicationUser"
	KindPhoneNumber        IdentifierKind = "phoneNumber"
	KindMicrosoftTeamsUser IdentifierKind = "microsoftTeamsUser"
	KindUnknown            IdentifierKind = "unknown"
)

// CommunicationIdentifier identifies a participant. Exactly one of the
// typed members is set, according to Kind.
type CommunicationIdentifier struct {
	RawID              string                        `json:"rawId"`
	Kind               IdentifierKind                `json:"kind"`
	CommunicationUser  *CommunicationUserIdentifier  `json:"communicationUser,omitempty"`
	PhoneNumber        *PhoneNumberIdentifier        `json:"phoneNumber,omitempty"`
	MicrosoftTeamsUser *MicrosoftTeamsUserIdentifier `json:"microsoftTeamsUser,omitempty"`
}

// CommunicationUserIdentifier is an identity created by the identity service.
type CommunicationUserIdentifier struct {
	ID string `json:"id"`
}

// PhoneNumberIdentifier is a PSTN number in E.164 form.
type PhoneNumberIdentifier struct {
	Value string `json:"value"`
}

// MicrosoftTeamsUserIdentifier is a Teams user.
type MicrosoftTeamsUserIdentifier struct {
	UserID      string `json:"userId"`
	IsAnonymous bool   `json:"isAnonymous,omitempty"`
	Cloud       string `json:"cloud,omitempty"`
}

// ResultInformation describes the outcome of a call operation.
type ResultInformation struct {
	Code    int    `json:"code"`
	SubCode int    `json:"subCode"`
	Message string `json:"message,omitempty"`
}
