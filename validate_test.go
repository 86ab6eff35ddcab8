package bids_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mwantia/bids"
	"github.com/mwantia/bids/index"
)

type validatorFunc func(ctx context.Context, idx *index.Index) error

func (f validatorFunc) Validate(ctx context.Context, idx *index.Index) error {
	return f(ctx, idx)
}

// TestValidate verifies the validator hook runs against the published
// index and that findings from several validators are joined.
func TestValidate(t *testing.T) {
	layout, _ := openTestLayout(t)

	ok := validatorFunc(func(ctx context.Context, idx *index.Index) error {
		if idx.Len() == 0 {
			return errors.New("empty index")
		}
		return nil
	})
	if err := layout.Validate(t.Context(), ok); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	first := errors.New("first finding")
	second := errors.New("second finding")
	all := bids.Validators{
		ok,
		validatorFunc(func(context.Context, *index.Index) error { return first }),
		validatorFunc(func(context.Context, *index.Index) error { return second }),
	}

	err := layout.Validate(t.Context(), all)
	if !errors.Is(err, first) || !errors.Is(err, second) {
		t.Errorf("Expected both findings joined, got %v", err)
	}
}
