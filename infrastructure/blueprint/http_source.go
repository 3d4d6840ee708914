package blueprint

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"prefill/domain/core/aggregates"
	"prefill/pkg/observability"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const maxGraphBytes = 16 << 20

// StatusError is returned when the blueprint server answers with a non-2xx status
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("blueprint server returned %d for %s", e.StatusCode, e.URL)
}

// HTTPSourceConfig configures the HTTP graph source
type HTTPSourceConfig struct {
	BaseURL        string
	Timeout        time.Duration
	BreakerEnabled bool
}

// HTTPSource fetches blueprint graphs from the blueprint server:
// GET {base}/{tenant}/actions/blueprints/{id}/graph
type HTTPSource struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	tracer  *observability.Tracer
	logger  *zap.Logger
}

// NewHTTPSource creates a new HTTP graph source
func NewHTTPSource(cfg HTTPSourceConfig, tracer *observability.Tracer, logger *zap.Logger) *HTTPSource {
	client := &http.Client{Timeout: cfg.Timeout}
	if tracer != nil && tracer.Enabled() {
		client = xray.Client(client)
	}

	s := &HTTPSource{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  client,
		tracer:  tracer,
		logger:  logger,
	}
	if cfg.BreakerEnabled {
		s.breaker = newBreaker("blueprint-server", logger)
	}
	return s
}

func newBreaker(name string, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Only trip if we have enough requests to make a decision
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			// 4xx answers mean the server is up
			if se, ok := err.(*StatusError); ok {
				return se.StatusCode < 500
			}
			return err == nil
		},
	})
}

// FetchGraph implements ports.GraphSource. Transport errors, StatusError and
// gobreaker.ErrOpenState are returned as is.
func (s *HTTPSource) FetchGraph(ctx context.Context, tenantID, blueprintID string) (*aggregates.BlueprintGraph, error) {
	if s.tracer != nil {
		var seg *xray.Segment
		ctx, seg = s.tracer.StartSegment(ctx, "fetch_graph")
		if seg != nil {
			_ = seg.AddAnnotation("tenant_id", tenantID)
			_ = seg.AddAnnotation("blueprint_id", blueprintID)
		}
		graph, err := s.fetchThroughBreaker(ctx, tenantID, blueprintID)
		if seg != nil {
			seg.Close(err)
		}
		return graph, err
	}
	return s.fetchThroughBreaker(ctx, tenantID, blueprintID)
}

func (s *HTTPSource) fetchThroughBreaker(ctx context.Context, tenantID, blueprintID string) (*aggregates.BlueprintGraph, error) {
	if s.breaker == nil {
		return s.fetch(ctx, tenantID, blueprintID)
	}
	out, err := s.breaker.Execute(func() (interface{}, error) {
		return s.fetch(ctx, tenantID, blueprintID)
	})
	if err != nil {
		return nil, err
	}
	return out.(*aggregates.BlueprintGraph), nil
}

func (s *HTTPSource) fetch(ctx context.Context, tenantID, blueprintID string) (*aggregates.BlueprintGraph, error) {
	endpoint := s.GraphURL(tenantID, blueprintID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: endpoint, Body: string(body)}
	}

	var graph aggregates.BlueprintGraph
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxGraphBytes)).Decode(&graph); err != nil {
		return nil, fmt.Errorf("decode blueprint graph: %w", err)
	}

	s.logger.Debug("Fetched blueprint graph",
		zap.String("tenantID", tenantID),
		zap.String("blueprintID", blueprintID),
		zap.Int("nodes", len(graph.Nodes)),
		zap.Int("edges", len(graph.Edges)),
	)
	return &graph, nil
}

// GraphURL returns the endpoint of a blueprint graph
func (s *HTTPSource) GraphURL(tenantID, blueprintID string) string {
	return fmt.Sprintf("%s/%s/actions/blueprints/%s/graph",
		s.baseURL, url.PathEscape(tenantID), url.PathEscape(blueprintID))
}
