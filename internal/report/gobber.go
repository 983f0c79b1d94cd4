// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package report

import (
	"encoding/gob"
	"errors"
	"io"
	"time"

	"github.com/matt-FFFFFF/lockstep/internal/runbatch"
)

var (
	// ErrWriteBinary is returned when writing the report to a binary format fails.
	ErrWriteBinary = errors.New("failed to write binary report")
	// ErrReadBinary is returned when reading a binary report fails.
	ErrReadBinary = errors.New("failed to read binary report")
)

// record mirrors Report with error values flattened to strings so the
// whole report can be gob-encoded.
type record struct {
	Started  time.Time
	Finished time.Time
	Outcomes []outcomeRecord
}

type outcomeRecord struct {
	Identity string
	State    runbatch.State
	Message  string
	Started  time.Time
	Duration time.Duration
}

// WriteBinary encodes the report so it can be rendered later with the
// show command.
func (r *Report) WriteBinary(w io.Writer) error {
	rec := record{
		Started:  r.Started,
		Finished: r.Finished,
		Outcomes: make([]outcomeRecord, 0, len(r.Outcomes)),
	}

	for _, o := range r.Outcomes {
		or := outcomeRecord{
			Identity: o.Identity,
			State:    o.State,
			Started:  o.Started,
			Duration: o.Duration,
		}
		if o.Err != nil {
			or.Message = o.Err.Error()
		}

		rec.Outcomes = append(rec.Outcomes, or)
	}

	enc := gob.NewEncoder(w)
	if err := enc.Encode(rec); err != nil {
		return errors.Join(ErrWriteBinary, err)
	}

	return nil
}

// ReadBinary decodes a report previously written with WriteBinary.
// Flattened error messages come back as plain errors.
func ReadBinary(rd io.Reader) (*Report, error) {
	var rec record

	dec := gob.NewDecoder(rd)
	if err := dec.Decode(&rec); err != nil {
		return nil, errors.Join(ErrReadBinary, err)
	}

	rep := &Report{
		Started:  rec.Started,
		Finished: rec.Finished,
		Outcomes: make(runbatch.Outcomes, 0, len(rec.Outcomes)),
	}

	for _, or := range rec.Outcomes {
		o := &runbatch.Outcome{
			Identity: or.Identity,
			State:    or.State,
			Started:  or.Started,
			Duration: or.Duration,
		}
		if or.Message != "" {
			o.Err = errors.New(or.Message)
		}

		rep.Outcomes = append(rep.Outcomes, o)
	}

	return rep, nil
}
