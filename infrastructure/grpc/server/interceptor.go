package server

import (
	"chatcode/auth"
	"chatcode/errors"
	"chatcode/infrastructure/grpc/rpc"
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// Methods callable without a token.
var publicMethods = map[string]struct{}{
	rpc.FullMethod(rpc.MethodRegister):     {},
	rpc.FullMethod(rpc.MethodLogin):        {},
	rpc.FullMethod(rpc.MethodGetTemplates): {},
}

type Authenticator interface {
	Authenticate(token string) (auth.State, error)
}

// UnaryAuthInterceptor resolves the caller from the "authorization: Bearer"
// header and stores it in the request context.
func UnaryAuthInterceptor(authenticator Authenticator) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if isPublicMethod(info.FullMethod) {
			return handler(ctx, req)
		}
		ctx, err := authenticate(ctx, authenticator)
		if err != nil {
			return nil, errors.MapToGRPCError(err)
		}
		return handler(ctx, req)
	}
}

// StreamAuthInterceptor resolves the caller once, when the stream opens.
func StreamAuthInterceptor(authenticator Authenticator) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if isPublicMethod(info.FullMethod) {
			return handler(srv, ss)
		}
		ctx, err := authenticate(ss.Context(), authenticator)
		if err != nil {
			return errors.MapToGRPCError(err)
		}
		return handler(srv, &authenticatedStream{ServerStream: ss, ctx: ctx})
	}
}

type authenticatedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *authenticatedStream) Context() context.Context {
	return s.ctx
}

func authenticate(ctx context.Context, authenticator Authenticator) (context.Context, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, errors.ErrUnauthenticated
	}
	values := md.Get("authorization")
	if len(values) == 0 {
		return nil, errors.ErrUnauthenticated
	}
	token, found := strings.CutPrefix(values[0], "Bearer ")
	if !found || token == "" {
		return nil, errors.ErrUnauthenticated
	}
	state, err := authenticator.Authenticate(token)
	if err != nil {
		return nil, err
	}
	return auth.WithState(ctx, state), nil
}

func isPublicMethod(method string) bool {
	_, ok := publicMethods[method]
	return ok
}
