package main

import (
	"context"
	"log"
	"strings"
	"time"

	"prefill/infrastructure/config"
	"prefill/infrastructure/di"
	"prefill/interfaces/http/rest"
	"prefill/interfaces/http/rest/middleware"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"go.uber.org/zap"
)

// Global variables for Lambda lifecycle management
var (
	// chiLambda wraps the Chi router for AWS Lambda integration
	chiLambda *chiadapter.ChiLambdaV2

	// container holds the dependency injection container
	container *di.Container

	// coldStart tracks whether this is a cold start invocation
	coldStart = true

	// coldStartTime records when the cold start began
	coldStartTime time.Time
)

// init runs during cold start
func init() {
	coldStartTime = time.Now()
	log.Println("Lambda cold start initiated")

	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err = di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	// Sessions live as long as the execution environment
	go container.Sessions.Run(ctx, cfg.SessionSweepInterval)

	// Without a signing secret the API Gateway JWT authorizer is trusted
	router := rest.NewRouter(
		container.CommandBus,
		container.QueryBus,
		container.Sessions,
		container.Collector,
		container.Tracer,
		container.Validator,
		container.RateLimiter,
		rest.RouterConfig{
			EnableCORS:     cfg.EnableCORS,
			AllowedOrigins: cfg.AllowedOrigins,
			GatewayAuth:    cfg.JWTSecret == "",
		},
		container.Logger,
	)
	chiLambda = chiadapter.NewV2(router.Setup())

	log.Printf("Lambda cold start completed in %v", time.Since(coldStartTime))
}

// Handler is the Lambda function handler
func Handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	applyAuthorizerClaims(&req)

	resp, err := chiLambda.ProxyWithContextV2(ctx, req)

	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	if coldStart {
		resp.Headers["X-Cold-Start"] = "true"
		resp.Headers["X-Cold-Start-Duration"] = time.Since(coldStartTime).String()
		coldStart = false
	} else {
		resp.Headers["X-Cold-Start"] = "false"
	}
	if req.RequestContext.RequestID != "" {
		resp.Headers["X-Request-ID"] = req.RequestContext.RequestID
	}

	// The execution environment may freeze after returning
	if container.Metrics != nil {
		if flushErr := container.Metrics.Flush(ctx); flushErr != nil {
			container.Logger.Warn("Metrics flush failed", zap.Error(flushErr))
		}
	}

	container.Logger.Info("Lambda response",
		zap.String("method", req.RequestContext.HTTP.Method),
		zap.String("path", req.RequestContext.HTTP.Path),
		zap.String("request_id", req.RequestContext.RequestID),
		zap.Int("status_code", resp.StatusCode),
		zap.String("stage", req.RequestContext.Stage),
	)

	return resp, err
}

// applyAuthorizerClaims replaces any caller supplied identity headers with the
// claims validated by the API Gateway JWT authorizer
func applyAuthorizerClaims(req *events.APIGatewayV2HTTPRequest) {
	if req.Headers == nil {
		req.Headers = make(map[string]string)
	}
	for key := range req.Headers {
		switch strings.ToLower(key) {
		case strings.ToLower(middleware.HeaderGatewayAuthorized),
			strings.ToLower(middleware.HeaderUserID),
			strings.ToLower(middleware.HeaderTenantID),
			strings.ToLower(middleware.HeaderUserEmail),
			strings.ToLower(middleware.HeaderUserRoles):
			delete(req.Headers, key)
		}
	}

	authorizer := req.RequestContext.Authorizer
	if authorizer == nil || authorizer.JWT == nil {
		return
	}
	claims := authorizer.JWT.Claims

	req.Headers[middleware.HeaderGatewayAuthorized] = "true"
	req.Headers[middleware.HeaderUserID] = claims["sub"]
	req.Headers[middleware.HeaderTenantID] = claims["tenant_id"]
	req.Headers[middleware.HeaderUserEmail] = claims["email"]
	// Array claims arrive as "[a b]"
	if roles := strings.Fields(strings.Trim(claims["roles"], "[]")); len(roles) > 0 {
		req.Headers[middleware.HeaderUserRoles] = strings.Join(roles, ",")
	}
}

// main is the entry point for the Lambda function
func main() {
	lambda.Start(Handler)
}
