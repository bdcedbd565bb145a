package grpc

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"google.golang.org/grpc"
	grpcCodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/service"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/errors"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/logger"
)

// InterceptorChain holds the unary interceptors of the gRPC server.
type InterceptorChain struct {
	log              logger.Logger
	rateLimitService service.RateLimitService
}

// NewInterceptorChain creates an InterceptorChain. A nil rateLimitService disables rate limiting.
func NewInterceptorChain(log logger.Logger, rateLimitService service.RateLimitService) *InterceptorChain {
	return &InterceptorChain{log: log, rateLimitService: rateLimitService}
}

// UnaryRecoveryInterceptor turns a handler panic into codes.Internal.
func (ic *InterceptorChain) UnaryRecoveryInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				ic.log.Error(ctx, "gRPC handler panic recovered", fmt.Errorf("%v", r),
					logger.Fields{"method": info.FullMethod},
				)
				err = status.Error(grpcCodes.Internal, errors.ErrInternal.Message)
			}
		}()

		return handler(ctx, req)
	}
}

// UnaryLoggingInterceptor logs each call with its duration and status code.
func (ic *InterceptorChain) UnaryLoggingInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		startTime := time.Now()
		resp, err := handler(ctx, req)

		fields := logger.Fields{
			"method":      info.FullMethod,
			"client_ip":   clientIP(ctx),
			"duration_ms": time.Since(startTime).Milliseconds(),
			"status":      status.Code(err).String(),
		}
		if err != nil {
			fields["error"] = err.Error()
			ic.log.Warn(ctx, "gRPC request failed", fields)
		} else {
			ic.log.Info(ctx, "gRPC request completed", fields)
		}
		return resp, err
	}
}

// UnaryRateLimitInterceptor limits calls per client address. Limiter errors fail open.
func (ic *InterceptorChain) UnaryRateLimitInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if ic.rateLimitService == nil {
			return handler(ctx, req)
		}

		identifier := clientIP(ctx)
		res, err := ic.rateLimitService.Allow(ctx, "grpc:"+identifier)
		if err != nil {
			ic.log.Warn(ctx, "Rate limiter unavailable, allowing request", logger.Fields{
				"method": info.FullMethod,
				"error":  err.Error(),
			})
			return handler(ctx, req)
		}
		if !res.Allowed {
			ic.log.Warn(ctx, "Rate limit exceeded", logger.Fields{
				"client_ip": identifier,
				"method":    info.FullMethod,
			})
			return nil, errors.ErrRateLimitExceeded
		}
		return handler(ctx, req)
	}
}

// UnaryErrorInterceptor converts AppErrors into gRPC status errors.
func (ic *InterceptorChain) UnaryErrorInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		resp, err := handler(ctx, req)
		if err == nil {
			return resp, nil
		}
		return resp, ToStatus(err)
	}
}

// ToStatus maps err to a gRPC status by the HTTP status of its AppError. Errors that already
// carry a gRPC status are returned unchanged.
func ToStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	appErr := errors.FromError(err)
	return status.Error(codeFor(appErr.HTTPStatus), appErr.Message)
}

func codeFor(httpStatus int) grpcCodes.Code {
	switch httpStatus {
	case http.StatusBadRequest:
		return grpcCodes.InvalidArgument
	case http.StatusUnauthorized:
		return grpcCodes.Unauthenticated
	case http.StatusForbidden:
		return grpcCodes.PermissionDenied
	case http.StatusNotFound:
		return grpcCodes.NotFound
	case http.StatusConflict:
		return grpcCodes.AlreadyExists
	case http.StatusTooManyRequests:
		return grpcCodes.ResourceExhausted
	case http.StatusServiceUnavailable:
		return grpcCodes.Unavailable
	default:
		return grpcCodes.Internal
	}
}

// ChainUnaryInterceptors returns the server option installing every interceptor in order.
func (ic *InterceptorChain) ChainUnaryInterceptors() grpc.ServerOption {
	return grpc.ChainUnaryInterceptor(
		ic.UnaryRecoveryInterceptor(),
		ic.UnaryLoggingInterceptor(),
		ic.UnaryErrorInterceptor(),
		ic.UnaryRateLimitInterceptor(),
	)
}

func clientIP(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ips := md.Get("x-forwarded-for"); len(ips) > 0 {
			return ips[0]
		}
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		if host, _, err := net.SplitHostPort(p.Addr.String()); err == nil {
			return host
		}
		return p.Addr.String()
	}
	return "unknown"
}
