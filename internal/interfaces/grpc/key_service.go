// Package grpc exposes key distribution and token verification over gRPC.
//
// The service is declared with the well-known protobuf types instead of generated stubs:
//
//	service KeyService {
//	  rpc GetPublicKey(google.protobuf.Empty) returns (google.protobuf.Struct);
//	  rpc VerifyToken(google.protobuf.StringValue) returns (google.protobuf.Struct);
//	}
package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	appservice "github.com/Mateusz-G541/pokedex-auth-service/internal/application/service"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/service"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/errors"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/logger"
)

const (
	// KeyServiceName is the fully qualified gRPC service name.
	KeyServiceName = "pokedex.auth.v1.KeyService"

	getPublicKeyMethod = "/" + KeyServiceName + "/GetPublicKey"
	verifyTokenMethod  = "/" + KeyServiceName + "/VerifyToken"
)

// KeyServiceServer is the server API for KeyService.
type KeyServiceServer interface {
	GetPublicKey(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
	VerifyToken(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error)
}

// KeyServiceDesc describes KeyService for grpc.Server.RegisterService.
var KeyServiceDesc = grpc.ServiceDesc{
	ServiceName: KeyServiceName,
	HandlerType: (*KeyServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetPublicKey", Handler: getPublicKeyHandler},
		{MethodName: "VerifyToken", Handler: verifyTokenHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pokedex/auth/v1/key_service.proto",
}

func getPublicKeyHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KeyServiceServer).GetPublicKey(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getPublicKeyMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(KeyServiceServer).GetPublicKey(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func verifyTokenHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KeyServiceServer).VerifyToken(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: verifyTokenMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(KeyServiceServer).VerifyToken(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// KeyGRPCService implements KeyServiceServer.
type KeyGRPCService struct {
	auth     appservice.AuthAppService
	verifier service.TokenVerifier
	log      logger.Logger
}

// NewKeyGRPCService creates the KeyService implementation.
func NewKeyGRPCService(auth appservice.AuthAppService, verifier service.TokenVerifier, log logger.Logger) *KeyGRPCService {
	return &KeyGRPCService{auth: auth, verifier: verifier, log: log}
}

// GetPublicKey returns the verification key and token parameters.
func (s *KeyGRPCService) GetPublicKey(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	key := s.auth.PublicKey()
	return structpb.NewStruct(map[string]interface{}{
		"publicKey": key.PublicKey,
		"algorithm": key.Algorithm,
		"issuer":    key.Issuer,
		"audience":  key.Audience,
	})
}

// VerifyToken verifies a compact token and returns the identity it carries. Verification
// failures are returned as errors and mapped to gRPC codes by the error interceptor.
func (s *KeyGRPCService) VerifyToken(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	if in.GetValue() == "" {
		return nil, errors.ErrMissingBearerToken
	}
	identity, err := s.verifier.Verify(ctx, in.GetValue())
	if err != nil {
		s.log.Warn(ctx, "gRPC token verification failed", logger.Fields{"error": err.Error()})
		return nil, err
	}
	return structpb.NewStruct(map[string]interface{}{
		"userId":    float64(identity.UserID),
		"email":     identity.Email,
		"role":      string(identity.Role),
		"issuedAt":  identity.IssuedAt.UTC().Format(time.RFC3339),
		"expiresAt": identity.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// NewServer creates a gRPC server with KeyService and the standard health service registered.
func NewServer(svc KeyServiceServer, interceptors *InterceptorChain) (*grpc.Server, *health.Server) {
	server := grpc.NewServer(interceptors.ChainUnaryInterceptors())
	server.RegisterService(&KeyServiceDesc, svc)

	hs := health.NewServer()
	hs.SetServingStatus(KeyServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, hs)
	return server, hs
}

// KeyServiceClient is the client API for KeyService.
type KeyServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewKeyServiceClient creates a client on cc.
func NewKeyServiceClient(cc grpc.ClientConnInterface) *KeyServiceClient {
	return &KeyServiceClient{cc: cc}
}

// GetPublicKey calls KeyService.GetPublicKey.
func (c *KeyServiceClient) GetPublicKey(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getPublicKeyMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// VerifyToken calls KeyService.VerifyToken.
func (c *KeyServiceClient) VerifyToken(ctx context.Context, token string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, verifyTokenMethod, wrapperspb.String(token), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
