package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTypeString(t *testing.T) {
	assert.Equal(t, "DuplicateFound", DuplicateFound.String())
	assert.Equal(t, "RunCompleted", RunCompleted.String())
	assert.Equal(t, "Unknown", Type(0).String())
	assert.Equal(t, "Unknown", Type(99).String())
}

func TestMultiFansOut(t *testing.T) {
	var got []Type
	a := SinkFunc(func(e Event) { got = append(got, e.Type) })
	b := SinkFunc(func(e Event) { got = append(got, e.Type) })

	Multi{a, b}.Handle(Event{Type: FileCopied})

	assert.Equal(t, []Type{FileCopied, FileCopied}, got)
}

func TestStamp(t *testing.T) {
	e := Stamp(Event{Type: ScanStarted})
	assert.False(t, e.Timestamp.IsZero())

	fixed := time.Unix(1000, 0)
	e = Stamp(Event{Type: ScanStarted, Timestamp: fixed})
	assert.Equal(t, fixed, e.Timestamp)
}
