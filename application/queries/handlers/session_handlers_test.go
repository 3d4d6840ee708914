package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"prefill/application/queries"
	"prefill/application/queries/bus"
	"prefill/application/services"
	"prefill/domain/core/aggregates"
	"prefill/domain/core/entities"
	pkgerrors "prefill/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type failingSource struct {
	err error
}

func (s failingSource) FetchGraph(context.Context, string, string) (*aggregates.BlueprintGraph, error) {
	return nil, s.err
}

type noGlobals struct{}

func (noGlobals) ListGlobalNodes(context.Context) ([]*entities.GraphNode, error) { return nil, nil }

func TestSessionQueries(t *testing.T) {
	upstream := errors.New("blueprint server unreachable")
	loader := services.NewGraphLoader(failingSource{err: upstream}, noGlobals{}, nil, nil, time.Second, zap.NewNop())
	svc := services.NewSessionService(loader, nil, nil, nil, zap.NewNop())

	b := bus.NewQueryBus()
	wrapped := 0
	require.NoError(t, Register(b, svc, func(h bus.QueryHandler) bus.QueryHandler {
		wrapped++
		return h
	}))
	assert.Equal(t, 2, wrapped)

	ctx := context.Background()
	id, err := svc.CreateSession(ctx, services.CreateSessionInput{TenantID: "1", BlueprintID: "bp"})
	require.NoError(t, err)

	_, err = b.Ask(ctx, queries.GetCanvasQuery{SessionID: id, Wait: true})
	assert.Equal(t, upstream, err)

	result, err := b.Ask(ctx, queries.GetSessionViewQuery{SessionID: id})
	require.NoError(t, err)
	view := result.(*services.SessionView)
	assert.True(t, view.Loading)
	assert.Equal(t, upstream.Error(), view.LoadError)

	_, err = b.Ask(ctx, queries.GetSessionViewQuery{SessionID: "missing"})
	assert.True(t, pkgerrors.IsNotFound(err))

	_, err = b.Ask(ctx, queries.GetCanvasQuery{})
	assert.True(t, pkgerrors.IsValidation(err))
}
