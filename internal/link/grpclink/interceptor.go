package grpclink

import (
	"context"

	"github.com/dmitrijs2005/wristnote/internal/common"
	"github.com/dmitrijs2005/wristnote/internal/cryptox"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func (s *Server) authorize(ctx context.Context) error {
	if s.pairingToken == "" {
		return nil
	}

	var token string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.PairingTokenHeaderName); len(values) > 0 {
			token = values[0]
		}
	}
	if token == "" {
		return status.Error(codes.Unauthenticated, "missing pairing token")
	}
	if !cryptox.TokenEqual(token, s.pairingToken) {
		return status.Error(codes.Unauthenticated, "pairing token mismatch")
	}
	return nil
}

func (s *Server) pairingUnaryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if err := s.authorize(ctx); err != nil {
		s.logger.Warn(ctx, "rejected peer call", "method", info.FullMethod)
		return nil, err
	}
	return handler(ctx, req)
}

func (s *Server) pairingStreamInterceptor(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	if err := s.authorize(ss.Context()); err != nil {
		s.logger.Warn(ss.Context(), "rejected peer stream", "method", info.FullMethod)
		return err
	}
	return handler(srv, ss)
}
