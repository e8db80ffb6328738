package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Message(t *testing.T) {
	cause := errors.New("boom")

	assert.Equal(t, "[schema_inconsistent] bad pk", New(ErrKindSchema, "bad pk").Error())
	assert.Equal(t, "[query_failed] insert: boom", Wrap(ErrKindQueryFailed, "insert", cause).Error())
	assert.Equal(t, "[invalid_input] count -1", Newf(ErrKindInvalidInput, "count %d", -1).Error())
}

func TestPredicates_TraverseWrapping(t *testing.T) {
	base := New(ErrKindSchema, "unknown attribute")
	wrapped := fmt.Errorf("instantiate Child: %w", base)

	assert.True(t, IsSchemaInconsistent(wrapped))
	assert.False(t, IsNotFound(wrapped))
	assert.Equal(t, ErrKindSchema, KindOf(wrapped))
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name string
		kind ErrKind
		pred func(error) bool
	}{
		{"not found", ErrKindNotFound, IsNotFound},
		{"timeout", ErrKindTimeout, IsTimeout},
		{"connection", ErrKindConnectionFailed, IsConnectionFailed},
		{"query", ErrKindQueryFailed, IsQueryFailed},
		{"input", ErrKindInvalidInput, IsInvalidInput},
		{"permission", ErrKindPermissionDenied, IsPermissionDenied},
		{"schema", ErrKindSchema, IsSchemaInconsistent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.pred(New(tt.kind, "x")))
			assert.False(t, tt.pred(errors.New("plain")))
		})
	}
}

func TestErrorsIs_ReachesCause(t *testing.T) {
	cause := errors.New("root")
	err := Wrap(ErrKindTimeout, "ping failed", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrKindUnknown, KindOf(nil))
}

func TestFromContext(t *testing.T) {
	e, ok := FromContext(fmt.Errorf("query: %w", context.DeadlineExceeded), "exec failed")
	require.True(t, ok)
	assert.True(t, IsTimeout(e))
	assert.ErrorIs(t, e, context.DeadlineExceeded)

	_, ok = FromContext(errors.New("syntax error"), "exec failed")
	assert.False(t, ok)
}
