package store

import (
	"context"
	"errors"

	"graphexplorer/internal/graph"
)

var (
	// ErrNotFound reports a node or relationship that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalid reports a request the store refuses to run.
	ErrInvalid = errors.New("invalid request")
	// ErrUnavailable reports that the database cannot be reached.
	ErrUnavailable = errors.New("database unavailable")
)

// Error carries a user-facing message together with one of the sentinel
// errors above, so callers can branch with errors.Is and still show Message.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Is matches the sentinel kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(kind error, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// Provider defines the graph operations the service exposes.
type Provider interface {
	// Lifecycle
	Close(ctx context.Context) error

	// Reads
	Graph(ctx context.Context, initOnly bool) (*graph.Graph, error)
	Labels(ctx context.Context) ([]string, error)
	Search(ctx context.Context, label, keyword string) (*graph.Subgraph, error)
	Expand(ctx context.Context, nodeID graph.ID) (*graph.Graph, error)

	// Writes
	CreateNode(ctx context.Context, payload graph.NodePayload) (*graph.Element, error)
	CreateRelationship(ctx context.Context, payload graph.RelationshipPayload) (*graph.Element, error)
	UpdateNode(ctx context.Context, nodeID graph.ID, patch graph.PropertyPatch) (*graph.Element, error)
	DeleteNode(ctx context.Context, nodeID graph.ID) error
	DeleteRelationship(ctx context.Context, relID graph.ID) error
}
