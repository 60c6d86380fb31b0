package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithDetailDoesNotMutateSentinel(t *testing.T) {
	err := ErrChapterNotFound.WithDetail("ch-1")

	assert.Equal(t, "ch-1", err.Detail)
	assert.Empty(t, ErrChapterNotFound.Detail)
	assert.True(t, stderrors.Is(err, ErrChapterNotFound))
	assert.False(t, stderrors.Is(err, ErrBookNotFound))
}

func TestAsAppErrorUnwrapsChain(t *testing.T) {
	base := ErrBookNotFound.WithDetail("b-1")
	wrapped := fmt.Errorf("load book: %w", base)

	assert.True(t, IsAppError(wrapped))
	got := AsAppError(wrapped)
	assert.Equal(t, CodeBookNotFound, got.Code)
	assert.Equal(t, http.StatusNotFound, got.HTTPStatus())

	unknown := AsAppError(stderrors.New("plain"))
	assert.Equal(t, CodeUnknown, unknown.Code)
	assert.Equal(t, http.StatusInternalServerError, unknown.HTTPStatus())
}

func TestErrorString(t *testing.T) {
	err := Wrap(stderrors.New("timeout"), CodeLLMProviderError, "gemini call failed")
	assert.Equal(t, "[5005] gemini call failed: timeout", err.Error())
	assert.Equal(t, http.StatusBadGateway, err.HTTPStatus())
}

func TestErrorStringWithDetail(t *testing.T) {
	err := ErrQueueError.WithDetail("book_generate").WithError(stderrors.New("conn refused"))
	assert.Equal(t, "[5003] queue error (book_generate): conn refused", err.Error())
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus())
}

func TestHTTPStatusTable(t *testing.T) {
	cases := map[ErrorCode]int{
		CodeInvalidParam:       http.StatusBadRequest,
		CodeIndexNotFound:      http.StatusNotFound,
		CodeConflict:           http.StatusConflict,
		CodeTooManyRequests:    http.StatusTooManyRequests,
		CodeServiceUnavailable: http.StatusServiceUnavailable,
		CodeOutlineFailed:      http.StatusBadGateway,
		CodeDatabaseError:      http.StatusInternalServerError,
		ErrorCode("9999"):      http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, code.HTTPStatus(), "code %s", code)
	}
}
