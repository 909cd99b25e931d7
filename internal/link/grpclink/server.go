package grpclink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/wristnote/internal/filex"
	"github.com/dmitrijs2005/wristnote/internal/link"
	"github.com/dmitrijs2005/wristnote/internal/logging"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Server is the inbound end of the link.
type Server struct {
	address      string
	inbox        string
	pairingToken string
	logger       logging.Logger

	files    link.FileHandler
	messages link.MessageHandler
}

// NewServer returns a server writing inbound files to inbox. An empty
// pairing token disables the peer check.
func NewServer(address, inbox, pairingToken string, l logging.Logger, files link.FileHandler, messages link.MessageHandler) (*Server, error) {
	dir, err := filex.EnsureDir(inbox)
	if err != nil {
		return nil, err
	}
	return &Server{
		address:      address,
		inbox:        dir,
		pairingToken: pairingToken,
		logger:       l.With("module", "link_server"),
		files:        files,
		messages:     messages,
	}, nil
}

// Run listens on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections from lis until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.pairingUnaryInterceptor),
		grpc.ChainStreamInterceptor(s.pairingStreamInterceptor),
	)
	srv.RegisterService(&serviceDesc, s)

	go func() {
		<-ctx.Done()
		s.logger.Info(context.Background(), "Stopping link server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting link server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

func (s *Server) Ping(context.Context, *emptypb.Empty) (*emptypb.Empty, error) {
	return &emptypb.Empty{}, nil
}

func (s *Server) Message(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	if s.messages == nil {
		s.logger.Warn(ctx, "no message handler, dropping message")
		return &emptypb.Empty{}, nil
	}
	s.messages.HandleMessage(ctx, in.AsMap())
	return &emptypb.Empty{}, nil
}

func (s *Server) Transfer(stream grpc.ServerStream) error {
	ctx := stream.Context()

	tags, err := tagsFromContext(ctx)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}

	path := filepath.Join(s.inbox, uuid.NewString()+".part")
	if err := s.receive(stream, path); err != nil {
		_ = os.Remove(path)
		s.logger.Error(ctx, "transfer aborted", "error", err)
		return status.Error(codes.Aborted, err.Error())
	}

	if s.files == nil {
		_ = os.Remove(path)
		s.logger.Warn(ctx, "no file handler, dropping transfer")
	} else {
		s.files.HandleFile(context.WithoutCancel(ctx), link.InboundFile{Path: path, Tags: tags})
	}

	return stream.SendMsg(&emptypb.Empty{})
}

func (s *Server) receive(stream grpc.ServerStream, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}

	for {
		chunk := new(wrapperspb.BytesValue)
		err := stream.RecvMsg(chunk)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			_ = f.Close()
			return fmt.Errorf("recv: %w", err)
		}
		if _, err := f.Write(chunk.GetValue()); err != nil {
			_ = f.Close()
			return fmt.Errorf("write: %w", err)
		}
	}

	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync: %w", err)
	}
	return f.Close()
}

func tagsFromContext(ctx context.Context) (map[string]string, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	values := md.Get(tagsHeader)
	if len(values) == 0 {
		return nil, errors.New("missing transfer tags")
	}

	st := new(structpb.Struct)
	if err := proto.Unmarshal([]byte(values[0]), st); err != nil {
		return nil, fmt.Errorf("decode transfer tags: %w", err)
	}

	tags := make(map[string]string, len(st.GetFields()))
	for k, v := range st.GetFields() {
		tags[k] = v.GetStringValue()
	}
	return tags, nil
}
