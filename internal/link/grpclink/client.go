package grpclink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/wristnote/internal/common"
	"github.com/dmitrijs2005/wristnote/internal/link"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client is the outbound end of the link.
type Client struct {
	target       string
	pairingToken string
	conn         *grpc.ClientConn
}

func withPairingToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.PairingTokenHeaderName, token)
	return metadata.NewOutgoingContext(ctx, md)
}

func (c *Client) pairingUnaryInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	return invoker(withPairingToken(ctx, c.pairingToken), method, req, reply, cc, opts...)
}

func (c *Client) pairingStreamInterceptor(
	ctx context.Context,
	desc *grpc.StreamDesc,
	cc *grpc.ClientConn,
	method string,
	streamer grpc.Streamer,
	opts ...grpc.CallOption,
) (grpc.ClientStream, error) {
	return streamer(withPairingToken(ctx, c.pairingToken), desc, cc, method, opts...)
}

// NewClient prepares a connection to the peer at target. The connection is
// established lazily.
func NewClient(target, pairingToken string, opts ...grpc.DialOption) (*Client, error) {
	c := &Client{target: target, pairingToken: pairingToken}

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.pairingUnaryInterceptor),
		grpc.WithStreamInterceptor(c.pairingStreamInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return c, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	if err := c.conn.Invoke(ctx, PingMethod, &emptypb.Empty{}, &emptypb.Empty{}); err != nil {
		return mapError(err)
	}
	return nil
}

func (c *Client) SendMessage(ctx context.Context, payload map[string]any) error {
	req, err := structpb.NewStruct(payload)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if err := c.conn.Invoke(ctx, MessageMethod, req, &emptypb.Empty{}); err != nil {
		return mapError(err)
	}
	return nil
}

// SendFile streams the file at path to the peer together with tags.
func (c *Client) SendFile(ctx context.Context, path string, tags map[string]string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	header, err := encodeTags(tags)
	if err != nil {
		return err
	}
	ctx = metadata.AppendToOutgoingContext(ctx, tagsHeader, string(header))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := c.conn.NewStream(ctx, &transferStreamDesc, TransferMethod)
	if err != nil {
		return mapError(err)
	}

	buf := make([]byte, chunkSize)
	for {
		n, rerr := f.Read(buf)
		if n > 0 {
			if err := stream.SendMsg(wrapperspb.Bytes(buf[:n])); err != nil {
				// the real status is delivered by RecvMsg
				if errors.Is(err, io.EOF) {
					break
				}
				return mapError(err)
			}
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return fmt.Errorf("read %s: %w", path, rerr)
		}
	}

	if err := stream.CloseSend(); err != nil {
		return mapError(err)
	}
	if err := stream.RecvMsg(&emptypb.Empty{}); err != nil {
		return mapError(err)
	}
	return nil
}

func encodeTags(tags map[string]string) ([]byte, error) {
	fields := make(map[string]any, len(tags))
	for k, v := range tags {
		fields[k] = v
	}
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}
	return proto.Marshal(st)
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", common.ErrorUnauthorized, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return fmt.Errorf("%w: %s", link.ErrUnreachable, st.Message())
	case codes.Aborted, codes.Internal, codes.ResourceExhausted:
		return fmt.Errorf("%w: %s", link.ErrTransient, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
