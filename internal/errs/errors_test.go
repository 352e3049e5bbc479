package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "plain",
			err:  New(ErrKindInvalidInput, "invalid field requested"),
			want: "[invalid_input] invalid field requested",
		},
		{
			name: "with cause",
			err:  Wrap(ErrKindQueryFailed, "query failed", errors.New("boom")),
			want: "[query_failed] query failed: boom",
		},
		{
			name: "with code",
			err:  WrapCode(ErrKindNotFound, "table not found", 942, errors.New("ORA-00942")),
			want: "[not_found ORA-00942] table not found: ORA-00942",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestPredicates(t *testing.T) {
	assert.True(t, IsNotFound(New(ErrKindNotFound, "x")))
	assert.True(t, IsUnsupported(New(ErrKindUnsupported, "x")))
	assert.True(t, IsInvalidInput(fmt.Errorf("outer: %w", New(ErrKindInvalidInput, "x"))))
	assert.False(t, IsTimeout(errors.New("plain")))
	assert.Equal(t, ErrKindUnknown, KindOf(nil))
}

func TestCodeOf(t *testing.T) {
	base := WrapCode(ErrKindQueryFailed, "drop sequence", 2289, nil)
	wrapped := Context(base, "dropping table \"T\"")

	assert.Equal(t, 2289, CodeOf(wrapped))
	assert.True(t, HasCode(wrapped, 4080, 2289))
	assert.False(t, HasCode(wrapped, 4080))
	assert.True(t, IsQueryFailed(wrapped))

	// Wrap picks the code up from the cause.
	again := Wrap(ErrKindQueryFailed, "retry", base)
	assert.Equal(t, 2289, again.Code)

	assert.Equal(t, 0, CodeOf(errors.New("plain")))
	assert.Nil(t, Context(nil, "noop"))
}
