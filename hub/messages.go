package hub

import (
	"encoding/json"
	"fmt"
)

// Message types of the duplex protocol. Every frame is an Envelope whose
// Data payload depends on the type and on direction: a "validate" frame is
// a work order hub→worker and a signed result worker→hub.
const (
	MsgSignup        = "signup"
	MsgRequestPlaces = "request_places"
	MsgValidate      = "validate"
	MsgNoPlaces      = "no_places"
	MsgError         = "error"
)

type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// SignupRequest carries a worker's claimed identity and its signature over
// the signup challenge bound to CallbackID.
type SignupRequest struct {
	PublicKey     string `json:"publicKey"`
	SignedMessage []byte `json:"signedMessage"`
	CallbackID    string `json:"callbackId"`
}

type SignupReply struct {
	ValidatorID string `json:"validatorId"`
	CallbackID  string `json:"callbackId"`
}

type PlacesRequest struct {
	CallbackID string `json:"callbackId"`
}

// WorkOrder instructs a worker to measure one place. CallbackID is the
// fresh correlation ID its result must carry.
type WorkOrder struct {
	PlaceID    string  `json:"placeId"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	PlaceName  string  `json:"placeName,omitempty"`
	CallbackID string  `json:"callbackId"`
}

// ValidateResult is a worker's signed measurement for the work order
// identified by CallbackID.
type ValidateResult struct {
	ValidatorID   string  `json:"validatorId"`
	SignedMessage []byte  `json:"signedMessage"`
	Aqi           int32   `json:"aqi"`
	Pm25          float64 `json:"pm25"`
	Pm10          float64 `json:"pm10"`
	Co            float64 `json:"co"`
	No            float64 `json:"no"`
	So2           float64 `json:"so2"`
	Nh3           float64 `json:"nh3"`
	No2           float64 `json:"no2"`
	O3            float64 `json:"o3"`
	CallbackID    string  `json:"callbackId"`
}

type NoPlacesReply struct {
	CallbackID string `json:"callbackId"`
}

type ErrorReply struct {
	Message    string `json:"message"`
	CallbackID string `json:"callbackId"`
}

func marshalMessage(msgType string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s payload: %w", msgType, err)
	}
	msg, err := json.Marshal(Envelope{Type: msgType, Data: payload})
	if err != nil {
		return nil, fmt.Errorf("marshaling %s envelope: %w", msgType, err)
	}
	return msg, nil
}
