package assistant

import (
	"context"
	"crypto/tls"
	"fmt"

	"golang.org/x/oauth2/google"
	embedded "google.golang.org/genproto/googleapis/assistant/embedded/v1alpha2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/oauth"
)

const (
	DefaultEndpoint = "embeddedassistant.googleapis.com:443"
	oauthScope      = "https://www.googleapis.com/auth/assistant-sdk-prototype"
)

type Config struct {
	Endpoint        string
	CredentialsJSON []byte
}

// Client opens conversation streams against the embedded assistant API.
type Client struct {
	client embedded.EmbeddedAssistantClient
	conn   *grpc.ClientConn
}

func NewClient(ctx context.Context, config Config) (*Client, error) {
	if len(config.CredentialsJSON) == 0 {
		return nil, fmt.Errorf("assistant credentials are required")
	}
	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	creds, err := google.CredentialsFromJSON(ctx, config.CredentialsJSON, oauthScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse assistant credentials: %w", err)
	}

	tlsConfig := &tls.Config{}
	conn, err := grpc.Dial(endpoint,
		grpc.WithTransportCredentials(credentials.NewTLS(tlsConfig)),
		grpc.WithPerRPCCredentials(oauth.TokenSource{TokenSource: creds.TokenSource}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to assistant: %w", err)
	}

	return &Client{
		client: embedded.NewEmbeddedAssistantClient(conn),
		conn:   conn,
	}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Open starts a new conversation stream. Cancelling ctx aborts it.
func (c *Client) Open(ctx context.Context) (Stream, error) {
	stream, err := c.client.Assist(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create assist stream: %w", err)
	}
	return &grpcStream{stream: stream}, nil
}

type grpcStream struct {
	stream embedded.EmbeddedAssistant_AssistClient
}

func (s *grpcStream) Send(msg Outbound) error {
	req, err := encode(msg)
	if err != nil {
		return err
	}
	return s.stream.Send(req)
}

func (s *grpcStream) CloseSend() error {
	return s.stream.CloseSend()
}

func (s *grpcStream) Recv() ([]Inbound, error) {
	resp, err := s.stream.Recv()
	if err != nil {
		return nil, err
	}
	return Decode(resp), nil
}
