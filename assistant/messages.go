package assistant

// Encoding names an audio encoding understood by the assistant service.
type Encoding string

const (
	EncodingLinear16 Encoding = "linear16"
	EncodingMP3      Encoding = "mp3"
	EncodingFLAC     Encoding = "flac"
)

// AudioFormat describes one direction of the audio exchange.
type AudioFormat struct {
	Encoding        Encoding
	SampleRateHertz int
}

// Outbound is a message the client sends on a conversation stream.
type Outbound interface {
	isOutbound()
}

// StartConfig is always the first message of a stream.
type StartConfig struct {
	Input             AudioFormat
	Output            AudioFormat
	VolumePercentage  int
	DeviceID          string
	DeviceModelID     string
	LanguageCode      string
	ContinuationToken []byte
}

// AudioIn carries one frame of captured microphone audio.
type AudioIn struct {
	Data []byte
}

func (StartConfig) isOutbound() {}
func (AudioIn) isOutbound()     {}

// Inbound is one decoded piece of a server response. A single response
// message may decode into several Inbound values; they keep wire order.
type Inbound interface {
	isInbound()
}

// EndOfUtterance reports that the server stopped listening.
type EndOfUtterance struct{}

// Transcript is a partial or final recognition of the user's request.
type Transcript struct {
	Text      string
	Stability float32
}

// DialogUpdate carries conversation state changes.
type DialogUpdate struct {
	DisplayText       string
	ContinuationToken []byte
	VolumePercentage  int
	FollowOn          bool
}

// AudioOut is one chunk of the spoken reply.
type AudioOut struct {
	Data []byte
}

// DeviceAction holds the raw JSON of a device action request.
type DeviceAction struct {
	RequestJSON []byte
}

func (EndOfUtterance) isInbound() {}
func (Transcript) isInbound()     {}
func (DialogUpdate) isInbound()   {}
func (AudioOut) isInbound()       {}
func (DeviceAction) isInbound()   {}

// Stream is one bidirectional conversation exchange. Send and CloseSend
// must be called from a single goroutine; Recv may run concurrently.
// Recv returns io.EOF once the server has completed the exchange.
type Stream interface {
	Send(msg Outbound) error
	CloseSend() error
	Recv() ([]Inbound, error)
}
