package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorFormat(t *testing.T) {
	err := NewError(ErrCodeValidation, "缺少名称")
	assert.Equal(t, "[VALIDATION_ERROR] 缺少名称", err.Error())

	wrapped := WrapError(ErrCodeScoring, "LLM 调用失败", errors.New("timeout"))
	assert.Equal(t, "[SCORING_ERROR] LLM 调用失败: timeout", wrapped.Error())
}

func TestHasCode(t *testing.T) {
	base := NewError(ErrCodeScoring, "LLM 调用失败")

	assert.True(t, HasCode(base, ErrCodeScoring))
	assert.False(t, HasCode(base, ErrCodeParse))
	assert.False(t, HasCode(nil, ErrCodeScoring))
	assert.False(t, HasCode(errors.New("plain"), ErrCodeScoring))

	// 错误链深处的码也能识别
	deep := fmt.Errorf("outer: %w", WrapError(ErrCodeDatabase, "保存失败", base))
	assert.True(t, HasCode(deep, ErrCodeDatabase))
	assert.True(t, HasCode(deep, ErrCodeScoring))
}

func TestUnwrap(t *testing.T) {
	inner := errors.New("inner")
	wrapped := WrapError(ErrCodeEnrichment, "富化失败", inner)
	assert.ErrorIs(t, wrapped, inner)
}
