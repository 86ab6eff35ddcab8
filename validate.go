package bids

import (
	"context"

	"github.com/mwantia/bids/data"
	"github.com/mwantia/bids/index"
)

// Validator judges strict standard conformance of an indexed dataset.
// The index itself is deliberately lenient; validation is an external
// collaborator invoked on demand and never gates index construction.
type Validator interface {
	Validate(ctx context.Context, idx *index.Index) error
}

// Validate runs a validator against the current index.
func (l *Layout) Validate(ctx context.Context, v Validator) error {
	idx := l.Index()
	if idx == nil {
		return data.ErrIndexMissing
	}

	return v.Validate(ctx, idx)
}

// Validators runs several validators in sequence and joins their
// findings, so one strict check never hides another.
type Validators []Validator

func (vs Validators) Validate(ctx context.Context, idx *index.Index) error {
	errs := &data.Errors{}
	for _, v := range vs {
		errs.Add(v.Validate(ctx, idx))
	}

	return errs.Errors()
}
