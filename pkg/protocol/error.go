package protocol

// ErrorMessage is sent when the server rejects a client message or fails.
// Code is a runtime error code such as "R001" or "L001".
type ErrorMessage struct {
	Code    string
	Message string
	Fatal   bool // The connection closes after this message
}

// EncodeErrorMessage encodes an ErrorMessage to bytes.
func EncodeErrorMessage(em *ErrorMessage) []byte {
	e := NewEncoder()
	e.WriteString(em.Code)
	e.WriteString(em.Message)
	e.WriteBool(em.Fatal)
	return e.Bytes()
}

// DecodeErrorMessage decodes an ErrorMessage from bytes.
func DecodeErrorMessage(data []byte) (*ErrorMessage, error) {
	d := NewDecoder(data)
	code, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	message, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	fatal, err := d.ReadBool()
	if err != nil {
		return nil, err
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return &ErrorMessage{Code: code, Message: message, Fatal: fatal}, nil
}

// Error implements the error interface.
func (em *ErrorMessage) Error() string {
	if em.Fatal {
		return "fatal: " + em.Code + ": " + em.Message
	}
	return em.Code + ": " + em.Message
}
