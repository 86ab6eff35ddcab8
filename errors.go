package bids

import (
	"fmt"
	"strings"

	"github.com/mwantia/bids/data"
)

// QueryError reports a malformed query: an entity key that exists
// neither in the grammar nor among the observed entities, or a filter
// value of an unsupported type. Query errors are local to the call and
// never affect index state.
type QueryError struct {
	Key         string
	Reason      string
	Suggestions []string
}

func (e *QueryError) Error() string {
	msg := fmt.Sprintf("bids: query key %q: %s", e.Key, e.Reason)
	if len(e.Suggestions) > 0 {
		msg = fmt.Sprintf("%s (did you mean one of: %s?)", msg, strings.Join(e.Suggestions, ", "))
	}

	return msg
}

func (e *QueryError) Unwrap() error {
	if e.Reason == reasonUnknownEntity {
		return data.ErrUnknownEntity
	}
	return data.ErrInvalidFilter
}

const reasonUnknownEntity = "unknown entity"
