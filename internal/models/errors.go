package models

import "fmt"

// UnhandledOperationError reports a deal side or operation category
// outside the closed set. Skipping an unknown cash movement would
// misstate the account balance, so these abort the whole build.
type UnhandledOperationError struct {
	Op string
}

func (e *UnhandledOperationError) Error() string {
	return fmt.Sprintf("unhandled operation %q", e.Op)
}

// UnhandledCommissionTypeError reports a fee debit whose description
// matches none of the known commission buckets.
type UnhandledCommissionTypeError struct {
	Desc string
}

func (e *UnhandledCommissionTypeError) Error() string {
	return fmt.Sprintf("unhandled commission type %q", e.Desc)
}

// UnhandledSecurityTypeError reports an instrument type no valuation
// variant exists for.
type UnhandledSecurityTypeError struct {
	SecID string
	Type  SecurityType
}

func (e *UnhandledSecurityTypeError) Error() string {
	return fmt.Sprintf("unhandled security type %s:%s", e.SecID, e.Type)
}
