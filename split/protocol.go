// Package split implements the encrypted scoring head: a client encrypts
// decoder features, a server evaluates the linear head homomorphically, and
// the client decrypts the logit.
package split

import (
	"encoding/gob"
	"fmt"
	"io"
)

func init() {
	// Register payload types for gob encoding
	gob.Register(QueryPayload{})
	gob.Register(ScorePayload{})
	gob.Register(SetupPayload{})
}

// MessageType defines message types for the scoring protocol
type MessageType int

const (
	MsgQuery MessageType = iota
	MsgScore
	MsgDone
	MsgError
	MsgSetup
)

// Message represents a message in the scoring protocol
type Message struct {
	Type    MessageType
	Payload interface{}
}

// QueryPayload carries one encrypted feature vector
type QueryPayload struct {
	QueryID    int
	Ciphertext []byte // serialized ciphertext
	Level      int
	ScaleFloat float64
}

// ScorePayload carries one encrypted logit
type ScorePayload struct {
	QueryID    int
	Ciphertext []byte
	Level      int
	ScaleFloat float64
}

// SetupPayload carries the client's evaluation key material: everything the
// server needs to compute on ciphertexts, and nothing that lets it decrypt.
type SetupPayload struct {
	Width    int    // feature vector width
	EvalKeys []byte // serialized evaluation key set
}

// Protocol handles client/server communication for the scoring head
type Protocol struct {
	encoder *gob.Encoder
	decoder *gob.Decoder
}

// NewProtocol creates a new protocol handler
func NewProtocol(r io.Reader, w io.Writer) *Protocol {
	return &Protocol{
		encoder: gob.NewEncoder(w),
		decoder: gob.NewDecoder(r),
	}
}

// Send sends a message
func (p *Protocol) Send(msg *Message) error {
	return p.encoder.Encode(msg)
}

// Receive receives a message
func (p *Protocol) Receive() (*Message, error) {
	var msg Message
	if err := p.decoder.Decode(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SendQuery sends an encrypted feature vector
func (p *Protocol) SendQuery(queryID int, ctBytes []byte, level int, scale float64) error {
	return p.Send(&Message{
		Type: MsgQuery,
		Payload: QueryPayload{
			QueryID:    queryID,
			Ciphertext: ctBytes,
			Level:      level,
			ScaleFloat: scale,
		},
	})
}

// SendScore sends an encrypted logit
func (p *Protocol) SendScore(queryID int, ctBytes []byte, level int, scale float64) error {
	return p.Send(&Message{
		Type: MsgScore,
		Payload: ScorePayload{
			QueryID:    queryID,
			Ciphertext: ctBytes,
			Level:      level,
			ScaleFloat: scale,
		},
	})
}

// SendSetup sends the evaluation keys for a feature width
func (p *Protocol) SendSetup(width int, evalKeys []byte) error {
	return p.Send(&Message{
		Type: MsgSetup,
		Payload: SetupPayload{
			Width:    width,
			EvalKeys: evalKeys,
		},
	})
}

// SendDone signals completion
func (p *Protocol) SendDone() error {
	return p.Send(&Message{Type: MsgDone})
}

// SendError sends an error message
func (p *Protocol) SendError(err error) error {
	return p.Send(&Message{
		Type:    MsgError,
		Payload: err.Error(),
	})
}

// ReceiveQuery receives a query payload. It returns io.EOF once the peer
// signals completion.
func (p *Protocol) ReceiveQuery() (*QueryPayload, error) {
	msg, err := p.Receive()
	if err != nil {
		return nil, err
	}
	if msg.Type == MsgError {
		return nil, fmt.Errorf("remote error: %v", msg.Payload)
	}
	if msg.Type == MsgDone {
		return nil, io.EOF
	}
	if msg.Type != MsgQuery {
		return nil, fmt.Errorf("expected query message, got %d", msg.Type)
	}
	payload, ok := msg.Payload.(QueryPayload)
	if !ok {
		return nil, fmt.Errorf("invalid query payload type")
	}
	return &payload, nil
}

// ReceiveSetup receives the evaluation key material
func (p *Protocol) ReceiveSetup() (*SetupPayload, error) {
	msg, err := p.Receive()
	if err != nil {
		return nil, err
	}
	if msg.Type == MsgError {
		return nil, fmt.Errorf("remote error: %v", msg.Payload)
	}
	if msg.Type != MsgSetup {
		return nil, fmt.Errorf("expected setup message, got %d", msg.Type)
	}
	payload, ok := msg.Payload.(SetupPayload)
	if !ok {
		return nil, fmt.Errorf("invalid setup payload type")
	}
	return &payload, nil
}

// ReceiveScore receives a score payload
func (p *Protocol) ReceiveScore() (*ScorePayload, error) {
	msg, err := p.Receive()
	if err != nil {
		return nil, err
	}
	if msg.Type == MsgError {
		return nil, fmt.Errorf("remote error: %v", msg.Payload)
	}
	if msg.Type == MsgDone {
		return nil, io.EOF
	}
	if msg.Type != MsgScore {
		return nil, fmt.Errorf("expected score message, got %d", msg.Type)
	}
	payload, ok := msg.Payload.(ScorePayload)
	if !ok {
		return nil, fmt.Errorf("invalid score payload type")
	}
	return &payload, nil
}
