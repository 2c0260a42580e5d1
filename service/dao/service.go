package dao

import (
	"context"
)

// Service abstracts persistence of a single entity type.  K is the key type,
// T the entity type.  List accepts optional parameters interpreted by the
// concrete implementation as filter criteria.
type Service[K comparable, T any] interface {
	Save(ctx context.Context, t *T) error

	Load(ctx context.Context, id K) (*T, error)

	Delete(ctx context.Context, id K) error

	List(ctx context.Context, parameters ...*Parameter) ([]*T, error)
}
