package main

import (
	"testing"

	"prefill/interfaces/http/rest/middleware"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
)

func TestApplyAuthorizerClaims_StripsSpoofedHeaders(t *testing.T) {
	req := events.APIGatewayV2HTTPRequest{
		Headers: map[string]string{
			"x-api-gateway-authorized": "true",
			"x-user-id":                "intruder",
		},
	}

	applyAuthorizerClaims(&req)

	assert.Empty(t, req.Headers)
}

func TestApplyAuthorizerClaims_CopiesJWTClaims(t *testing.T) {
	req := events.APIGatewayV2HTTPRequest{
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			Authorizer: &events.APIGatewayV2HTTPRequestContextAuthorizerDescription{
				JWT: &events.APIGatewayV2HTTPRequestContextAuthorizerJWTDescription{
					Claims: map[string]string{
						"sub":       "user-1",
						"tenant_id": "tenant-a",
						"email":     "a@example.com",
						"roles":     "[admin editor]",
					},
				},
			},
		},
	}

	applyAuthorizerClaims(&req)

	assert.Equal(t, "true", req.Headers[middleware.HeaderGatewayAuthorized])
	assert.Equal(t, "user-1", req.Headers[middleware.HeaderUserID])
	assert.Equal(t, "tenant-a", req.Headers[middleware.HeaderTenantID])
	assert.Equal(t, "admin,editor", req.Headers[middleware.HeaderUserRoles])
}
