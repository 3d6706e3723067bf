package evaluator

import (
	"context"

	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/types"
)

// fnSetVar assigns its second argument to the variable named by the first
// and returns it.
func fnSetVar(_ context.Context, call *Call) (types.Value, error) {
	v := call.Arg(1)
	if err := call.SetVariable(call.Arg(0).ToString(), v); err != nil {
		return types.NullValue, err
	}
	return v, nil
}
