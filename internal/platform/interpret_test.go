package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckErrors_NoErrors(t *testing.T) {
	messages, duplicate := CheckErrors(map[string]any{"id": "123"})
	assert.Nil(t, messages)
	assert.False(t, duplicate)

	messages, _ = CheckErrors("plain text body")
	assert.Nil(t, messages)

	messages, _ = CheckErrors(map[string]any{"errors": []any{}})
	assert.Nil(t, messages)
}

func TestCheckErrors_CollectsMessages(t *testing.T) {
	body := map[string]any{
		"errors": []any{"标题不能为空", "正文过短"},
	}

	messages, duplicate := CheckErrors(body)
	assert.Equal(t, []string{"标题不能为空", "正文过短"}, messages)
	assert.False(t, duplicate)
}

func TestCheckErrors_DetectsDuplicateTitle(t *testing.T) {
	body := map[string]any{
		"errors": []any{"发布失败: " + DuplicateTitlePhrase},
	}

	messages, duplicate := CheckErrors(body)
	assert.Len(t, messages, 1)
	assert.True(t, duplicate)
}

func TestCheckErrors_NonStringEntries(t *testing.T) {
	body := map[string]any{
		"errors": []any{map[string]any{"code": float64(400)}},
	}

	messages, duplicate := CheckErrors(body)
	assert.Len(t, messages, 1)
	assert.False(t, duplicate)
}

func TestFailureMessage_PrefersMessageField(t *testing.T) {
	body := map[string]any{"message": "请先登录", "error_msg": "other"}
	assert.Equal(t, "请先登录", FailureMessage(body, 401))
}

func TestFailureMessage_FallsBackToErrorMsg(t *testing.T) {
	body := map[string]any{"error_msg": "参数错误"}
	assert.Equal(t, "参数错误", FailureMessage(body, 400))
}

func TestFailureMessage_ShortTextBody(t *testing.T) {
	assert.Equal(t, "Forbidden", FailureMessage("  Forbidden \n", 403))
}

func TestFailureMessage_FallsBackToStatus(t *testing.T) {
	assert.Equal(t, "HTTP 502", FailureMessage(map[string]any{}, 502))
	assert.Equal(t, "HTTP 500", FailureMessage(nil, 500))

	// A long text body is useless as a message.
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}
	assert.Equal(t, "HTTP 500", FailureMessage(string(long), 500))
}

func TestNumber(t *testing.T) {
	n, ok := Number(float64(3))
	assert.True(t, ok)
	assert.Equal(t, float64(3), n)

	_, ok = Number("3")
	assert.False(t, ok)

	_, ok = Number(nil)
	assert.False(t, ok)
}

func TestNumberIs(t *testing.T) {
	obj := map[string]any{"code": float64(0), "err_no": float64(2)}
	assert.True(t, NumberIs(obj, "code", 0))
	assert.False(t, NumberIs(obj, "err_no", 0))
	assert.False(t, NumberIs(obj, "missing", 0))
}
