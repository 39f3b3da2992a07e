package tts

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/metadata"

	tts "github.com/yandex-cloud/go-genproto/yandex/cloud/ai/tts/v3"
)

const (
	YandexTTSEndpoint = "tts.api.cloud.yandex.net:443"
)

type YandexConfig struct {
	ApiKey   string
	FolderID string
}

type YandexTTSClient struct {
	client   tts.SynthesizerClient
	conn     *grpc.ClientConn
	apiKey   string
	folderID string
}

// Ensure YandexTTSClient implements Synthesizer
var _ Synthesizer = (*YandexTTSClient)(nil)

func NewYandexTTSClient(config YandexConfig) (*YandexTTSClient, error) {
	if config.ApiKey == "" {
		return nil, fmt.Errorf("yandex api key is required")
	}

	// Create TLS connection
	conn, err := grpc.Dial(YandexTTSEndpoint, grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{})))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to TTS service: %w", err)
	}

	return &YandexTTSClient{
		client:   tts.NewSynthesizerClient(conn),
		conn:     conn,
		apiKey:   config.ApiKey,
		folderID: config.FolderID,
	}, nil
}

func (c *YandexTTSClient) SynthesizeToStreamWithContext(ctx context.Context, text string, options SynthesisOptions, audioData chan<- []byte) error {
	defer close(audioData)

	// Authenticate the call with API key and folder ID
	ctx = metadata.AppendToOutgoingContext(ctx,
		"authorization", "Api-Key "+c.apiKey,
		"x-folder-id", c.folderID,
	)

	stream, err := c.client.UtteranceSynthesis(ctx, buildRequest(text, options))
	if err != nil {
		return fmt.Errorf("failed to start synthesis: %w", err)
	}

	// Forward audio chunks until the server closes the stream
	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to receive audio data: %w", err)
		}

		if chunk := resp.GetAudioChunk(); chunk != nil {
			select {
			case audioData <- chunk.GetData():
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func buildRequest(text string, options SynthesisOptions) *tts.UtteranceSynthesisRequest {
	req := &tts.UtteranceSynthesisRequest{}
	req.SetModel(options.Model)
	// Set text to synthesize
	req.SetText(text)

	// Hints is a oneof, so each hint travels in its own message.
	voiceHint := &tts.Hints{}
	voiceHint.SetVoice(options.Voice)
	speedHint := &tts.Hints{}
	speedHint.SetSpeed(options.Speed)
	hints := []*tts.Hints{voiceHint, speedHint}
	if options.Volume != 0 {
		volumeHint := &tts.Hints{}
		volumeHint.SetVolume(options.Volume)
		hints = append(hints, volumeHint)
	}
	req.SetHints(hints)

	// Set output audio format: headerless PCM at the playback rate
	raw := &tts.RawAudio{}
	raw.SetAudioEncoding(tts.RawAudio_LINEAR16_PCM)
	raw.SetSampleRateHertz(options.SampleRate)
	audioSpec := &tts.AudioFormatOptions{}
	audioSpec.SetRawAudio(raw)
	req.SetOutputAudioSpec(audioSpec)

	// Set loudness normalization
	req.SetLoudnessNormalizationType(tts.UtteranceSynthesisRequest_LUFS)
	return req
}

func (c *YandexTTSClient) Close() error {
	return c.conn.Close()
}
