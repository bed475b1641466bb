package model

import "errors"

// ErrorKey is the key of a failure payload inside a Record.
const ErrorKey = "error"

// Record is a parsed genotyper output. Its content is opaque.
type Record map[string]any

// Outcome is the result of one job: either a parsed Record or a failure
// with the description and diagnostic lines captured so far.
type Outcome struct {
	Record Record
	Err    error
	Log    []string
}

func Success(r Record) Outcome {
	return Outcome{Record: r}
}

func Failure(partial Record, err error, log []string) Outcome {
	if err == nil {
		err = errors.New("unknown failure")
	}
	return Outcome{Record: partial, Err: err, Log: log}
}

func (o Outcome) Failed() bool {
	return o.Err != nil
}

// Result returns the record stored in the BatchResult. A failed outcome
// keeps whatever was parsed and gets an error object merged in.
func (o Outcome) Result() Record {
	ret := make(Record, len(o.Record)+1)
	for k, v := range o.Record {
		ret[k] = v
	}
	if o.Err == nil {
		return ret
	}
	payload := map[string]any{
		"exception": o.Err.Error(),
	}
	if len(o.Log) > 0 {
		payload["log"] = append([]string(nil), o.Log...)
	}
	ret[ErrorKey] = payload
	return ret
}

// HasError reports whether r carries a failure payload.
func (r Record) HasError() bool {
	_, ok := r[ErrorKey]
	return ok
}
