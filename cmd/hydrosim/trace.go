package main

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/san-kum/hydrosim/internal/dynamo"
)

// stepTrace writes every attempted step as a CSV row.
type stepTrace struct {
	w   *csv.Writer
	err error
}

func newStepTrace(w io.Writer) *stepTrace {
	t := &stepTrace{w: csv.NewWriter(w)}
	t.err = t.w.Write([]string{"interval", "t", "h", "norm", "accepted"})
	return t
}

func (t *stepTrace) OnStep(ev dynamo.StepEvent) {
	if t.err != nil {
		return
	}
	t.err = t.w.Write([]string{
		strconv.Itoa(ev.Interval),
		strconv.FormatFloat(ev.T, 'g', -1, 64),
		strconv.FormatFloat(ev.H, 'g', -1, 64),
		strconv.FormatFloat(ev.Norm, 'g', -1, 64),
		strconv.FormatBool(ev.Accepted),
	})
}

// Close flushes buffered rows and reports the first write error.
func (t *stepTrace) Close() error {
	t.w.Flush()
	if t.err != nil {
		return t.err
	}
	return t.w.Error()
}
