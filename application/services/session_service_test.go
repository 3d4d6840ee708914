package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"prefill/application/ports"
	"prefill/domain/core/entities"
	"prefill/domain/core/valueobjects"
	"prefill/domain/events"
	"prefill/domain/session"
	pkgerrors "prefill/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type serviceFixture struct {
	svc       *SessionService
	source    *mockGraphSource
	globals   *mockGlobalSource
	publisher *mockPublisher
	store     *mockStore
	published []events.DomainEvent
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		source:    &mockGraphSource{},
		globals:   &mockGlobalSource{},
		publisher: &mockPublisher{},
		store:     &mockStore{},
	}
	f.publisher.On("Publish", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			f.published = append(f.published, args.Get(1).(events.DomainEvent))
		}).
		Return(nil)

	loader := NewGraphLoader(f.source, f.globals, nil, nil, time.Second, zap.NewNop())
	f.svc = NewSessionService(loader, f.store, f.publisher, nil, zap.NewNop())
	return f
}

func (f *serviceFixture) withGraph(t *testing.T) *serviceFixture {
	f.source.On("FetchGraph", mock.Anything, "1", "bp_1").Return(testBlueprint(t), nil)
	f.globals.On("ListGlobalNodes", mock.Anything).Return(testGlobals(t), nil)
	return f
}

func (f *serviceFixture) eventTypes() []string {
	out := make([]string, 0, len(f.published))
	for _, e := range f.published {
		out = append(out, e.GetEventType())
	}
	return out
}

func fieldRef(node, key string) valueobjects.FieldRef {
	return valueobjects.NewFieldRef(valueobjects.NodeID(node), key)
}

func createLoaded(t *testing.T, f *serviceFixture) string {
	t.Helper()
	id, err := f.svc.CreateSession(context.Background(), CreateSessionInput{TenantID: "1", BlueprintID: "bp_1"})
	require.NoError(t, err)
	require.NoError(t, f.svc.AwaitGraph(context.Background(), id))
	return id
}

func TestSessionService_CommitFlow(t *testing.T) {
	f := newServiceFixture(t).withGraph(t)
	f.store.On("Save", mock.Anything, mock.MatchedBy(func(s ports.MappingSnapshot) bool {
		return s.Version == 1 && len(s.Mappings) == 1 && s.Checksum != "" && s.BlueprintID == "bp_1"
	})).Return(nil).Once()

	ctx := context.Background()
	id := createLoaded(t, f)

	view, err := f.svc.View(ctx, id)
	require.NoError(t, err)
	assert.False(t, view.Loading)
	assert.Equal(t, session.PhaseIdle, view.Phase)

	view, out, err := f.svc.Apply(ctx, id, "open", func(s *session.Session) session.Outcome {
		return s.OpenNode("form-b")
	})
	require.NoError(t, err)
	assert.True(t, out.Applied)
	require.NotNil(t, view.SelectedNode)
	assert.Equal(t, "Form B", view.SelectedNode.Title)
	assert.Equal(t, []FieldRow{
		{FieldKey: "name", Active: false, Label: "name"},
		{FieldKey: "email", Active: false, Label: "email"},
	}, view.Fields)

	view, _, err = f.svc.Apply(ctx, id, "field", func(s *session.Session) session.Outcome {
		return s.SelectField(fieldRef("form-b", "email"))
	})
	require.NoError(t, err)
	require.Len(t, view.Candidates, 2)
	assert.Equal(t, "node1", view.Candidates[0].NodeID)
	assert.True(t, view.Candidates[0].Global)
	assert.Equal(t, "form-a", view.Candidates[1].NodeID)

	view, _, err = f.svc.Apply(ctx, id, "target", func(s *session.Session) session.Outcome {
		return s.SelectTarget(fieldRef("form-a", "name"))
	})
	require.NoError(t, err)
	require.NotNil(t, view.SelectedTarget)
	assert.Equal(t, []CandidateField{
		{FieldKey: "name", Selected: true},
		{FieldKey: "email", Selected: false},
	}, view.Candidates[1].Fields)

	view, out, err = f.svc.Apply(ctx, id, "commit", func(s *session.Session) session.Outcome {
		return s.Commit()
	})
	require.NoError(t, err)
	require.NotNil(t, out.Committed)
	assert.Equal(t, session.PhaseNodeOpen, view.Phase)
	assert.Equal(t, 1, view.Revision)
	require.Len(t, view.Mappings, 1)
	assert.Equal(t, "email: Form A.name", view.Mappings[0].Label)
	assert.Equal(t, FieldRow{FieldKey: "email", Active: true, Label: "email: Form A.name"}, view.Fields[1])

	assert.Equal(t, []string{
		events.TypeSessionStarted,
		events.TypeGraphLoaded,
		events.TypeMappingCommitted,
	}, f.eventTypes())
	f.store.AssertExpectations(t)
}

func TestSessionService_NoopTransitionPersistsNothing(t *testing.T) {
	f := newServiceFixture(t).withGraph(t)
	id := createLoaded(t, f)

	view, out, err := f.svc.Apply(context.Background(), id, "commit", func(s *session.Session) session.Outcome {
		return s.Commit()
	})

	require.NoError(t, err)
	assert.False(t, out.Applied)
	assert.Equal(t, session.PhaseIdle, view.Phase)
	f.store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestSessionService_FailuresDoNotFailTransition(t *testing.T) {
	source := &mockGraphSource{}
	source.On("FetchGraph", mock.Anything, "1", "bp_1").Return(testBlueprint(t), nil)
	globals := &mockGlobalSource{}
	globals.On("ListGlobalNodes", mock.Anything).Return(testGlobals(t), nil)
	publisher := &mockPublisher{}
	publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("bus down"))
	store := &mockStore{}
	store.On("Save", mock.Anything, mock.Anything).Return(errors.New("table missing"))

	loader := NewGraphLoader(source, globals, nil, nil, time.Second, zap.NewNop())
	svc := NewSessionService(loader, store, publisher, nil, zap.NewNop())

	ctx := context.Background()
	id, err := svc.CreateSession(ctx, CreateSessionInput{TenantID: "1", BlueprintID: "bp_1"})
	require.NoError(t, err)
	require.NoError(t, svc.AwaitGraph(ctx, id))

	view, out, err := svc.Apply(ctx, id, "map", func(s *session.Session) session.Outcome {
		s.OpenNode("form-b")
		s.SelectField(fieldRef("form-b", "email"))
		s.SelectTarget(fieldRef("node1", "email"))
		return s.Commit()
	})

	require.NoError(t, err)
	assert.True(t, out.MappingsChanged())
	assert.Len(t, view.Mappings, 1)
	store.AssertNumberOfCalls(t, "Save", 1)
}

func TestSessionService_UnknownSession(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.View(ctx, "missing")
	assert.True(t, pkgerrors.IsNotFound(err))

	_, err = f.svc.Canvas(ctx, "missing")
	assert.True(t, pkgerrors.IsNotFound(err))

	_, _, err = f.svc.Apply(ctx, "missing", "close", func(s *session.Session) session.Outcome {
		return s.CloseNode()
	})
	assert.True(t, pkgerrors.IsNotFound(err))

	assert.True(t, pkgerrors.IsNotFound(f.svc.DeleteSession(ctx, "missing")))
}

func TestSessionService_CreateValidation(t *testing.T) {
	f := newServiceFixture(t).withGraph(t)
	ctx := context.Background()

	_, err := f.svc.CreateSession(ctx, CreateSessionInput{TenantID: "1"})
	assert.True(t, pkgerrors.IsValidation(err))

	id, err := f.svc.CreateSession(ctx, CreateSessionInput{SessionID: "s-1", TenantID: "1", BlueprintID: "bp_1"})
	require.NoError(t, err)
	assert.Equal(t, "s-1", id)

	_, err = f.svc.CreateSession(ctx, CreateSessionInput{SessionID: "s-1", TenantID: "1", BlueprintID: "bp_1"})
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestSessionService_CanvasReturnsUpstreamErrorUnchanged(t *testing.T) {
	upstream := errors.New("blueprint server returned 503")
	f := newServiceFixture(t)
	f.source.On("FetchGraph", mock.Anything, "1", "bp_1").Return(nil, upstream)

	ctx := context.Background()
	id, err := f.svc.CreateSession(ctx, CreateSessionInput{TenantID: "1", BlueprintID: "bp_1"})
	require.NoError(t, err)

	assert.Equal(t, upstream, f.svc.AwaitGraph(ctx, id))

	canvas, err := f.svc.Canvas(ctx, id)
	assert.Nil(t, canvas)
	assert.Equal(t, upstream, err)

	view, err := f.svc.View(ctx, id)
	require.NoError(t, err)
	assert.True(t, view.Loading)
	assert.Equal(t, upstream.Error(), view.LoadError)
}

func TestSessionService_Canvas(t *testing.T) {
	f := newServiceFixture(t).withGraph(t)
	id := createLoaded(t, f)

	canvas, err := f.svc.Canvas(context.Background(), id)

	require.NoError(t, err)
	assert.False(t, canvas.Loading)
	assert.Len(t, canvas.Nodes, 2)
	require.Len(t, canvas.Edges, 1)
	assert.Equal(t, "form-a-form-b", canvas.Edges[0].ID)
}

func TestSessionService_CanvasWhileLoading(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	f := newServiceFixture(t)
	f.source.On("FetchGraph", mock.Anything, "1", "bp_1").
		Run(func(mock.Arguments) { <-release }).
		Return(testBlueprint(t), nil)
	f.globals.On("ListGlobalNodes", mock.Anything).Return(testGlobals(t), nil)

	id, err := f.svc.CreateSession(context.Background(), CreateSessionInput{TenantID: "1", BlueprintID: "bp_1"})
	require.NoError(t, err)

	canvas, err := f.svc.Canvas(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, canvas.Loading)
	assert.Empty(t, canvas.Nodes)
}

func TestSessionService_RestoreFromSnapshot(t *testing.T) {
	f := newServiceFixture(t).withGraph(t)
	mapping := entities.NewMapping(fieldRef("form-b", "email"), fieldRef("form-a", "email"))
	f.store.On("Load", mock.Anything, "old").Return(&ports.MappingSnapshot{
		SessionID:   "old",
		TenantID:    "1",
		BlueprintID: "bp_1",
		Version:     3,
		Mappings:    []entities.Mapping{mapping},
	}, nil)
	f.store.On("Load", mock.Anything, "other").Return(&ports.MappingSnapshot{
		SessionID:   "other",
		TenantID:    "1",
		BlueprintID: "bp_9",
	}, nil)
	f.store.On("Load", mock.Anything, "gone").Return(nil, pkgerrors.NewNotFoundError("mapping snapshot"))

	ctx := context.Background()
	id, err := f.svc.CreateSession(ctx, CreateSessionInput{TenantID: "1", BlueprintID: "bp_1", RestoreFrom: "old"})
	require.NoError(t, err)
	require.NoError(t, f.svc.AwaitGraph(ctx, id))

	view, err := f.svc.View(ctx, id)
	require.NoError(t, err)
	require.Len(t, view.Mappings, 1)
	assert.Equal(t, "email: Form A.email", view.Mappings[0].Label)

	_, err = f.svc.CreateSession(ctx, CreateSessionInput{TenantID: "1", BlueprintID: "bp_1", RestoreFrom: "other"})
	assert.True(t, pkgerrors.IsValidation(err))

	_, err = f.svc.CreateSession(ctx, CreateSessionInput{TenantID: "1", BlueprintID: "bp_1", RestoreFrom: "gone"})
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestSessionService_DeleteAndExpire(t *testing.T) {
	f := newServiceFixture(t).withGraph(t)
	ctx := context.Background()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }

	stale := createLoaded(t, f)
	now = now.Add(90 * time.Minute)
	fresh := createLoaded(t, f)
	doomed := createLoaded(t, f)
	assert.Equal(t, 3, f.svc.Count())

	require.NoError(t, f.svc.DeleteSession(ctx, doomed))
	assert.Equal(t, 2, f.svc.Count())

	expired := f.svc.ExpireIdle(now.Add(45 * time.Minute))
	assert.Equal(t, 1, expired)

	_, err := f.svc.View(ctx, stale)
	assert.True(t, pkgerrors.IsNotFound(err))
	_, err = f.svc.View(ctx, fresh)
	assert.NoError(t, err)
}
