package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrToLabel(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil error", err: nil, want: "nil"},
		{name: "plain words", err: errors.New("registration closed"), want: "registration_closed"},
		{name: "punctuation stripped", err: errors.New("bad tag: (null)!"), want: "bad_tag_null"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errToLabel(tt.err))
		})
	}
}
