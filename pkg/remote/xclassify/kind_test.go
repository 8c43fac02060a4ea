package xclassify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind_Retryable(t *testing.T) {
	// 不变量：auth/not_found/conflict/validation 永不可重试，
	// network/timeout/server_error 恒可重试。
	retryable := []Kind{KindNetwork, KindTimeout, KindServerError}
	permanent := []Kind{KindAuth, KindNotFound, KindConflict, KindValidation, KindUnknown}

	for _, k := range retryable {
		assert.True(t, k.Retryable(), "kind %s", k)
	}
	for _, k := range permanent {
		assert.False(t, k.Retryable(), "kind %s", k)
	}
}

func TestKind_IsValid(t *testing.T) {
	all := []Kind{
		KindNetwork, KindTimeout, KindAuth, KindNotFound,
		KindConflict, KindValidation, KindServerError, KindUnknown,
	}
	for _, k := range all {
		assert.True(t, k.IsValid())
	}
	assert.False(t, Kind("bogus").IsValid())
	assert.False(t, Kind("").IsValid())
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "server_error", KindServerError.String())
	assert.Equal(t, "not_found", KindNotFound.String())
}
