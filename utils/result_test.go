package utils

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var successResult = Result[string]{value: "Success", err: nil}
var failedResult = Result[string]{
	err:       fmt.Errorf("Failed result"),
	Capture:   true,
	Retryable: true,
	details: &ErrorDetails{
		Code:    "failed_result",
		Message: "More details",
	},
}

type booleanTest struct {
	arg      Result[string]
	expected bool
}

type stringTest struct {
	arg      Result[string]
	expected string
}

var successTests = []booleanTest{
	{successResult, true},
	{failedResult, false},
}

func TestSuccess(t *testing.T) {
	for _, test := range successTests {
		assert.Equal(t, test.arg.Success(), test.expected)
	}
}

var failureTests = []booleanTest{
	{successResult, false},
	{failedResult, true},
}

func TestFailure(t *testing.T) {
	for _, test := range failureTests {
		assert.Equal(t, test.arg.Failure(), test.expected)
	}
}

var valueTests = []stringTest{
	{successResult, "Success"},
	{failedResult, ""},
}

func TestValue(t *testing.T) {
	for _, test := range valueTests {
		assert.Equal(t, test.arg.Value(), test.expected)
	}
}

func TestValueOrPanic(t *testing.T) {
	assert.Panics(t, func() { failedResult.ValueOrPanic() })
	assert.Equal(t, successResult.ValueOrPanic(), "Success")
}

func TestError(t *testing.T) {
	assert.Nil(t, successResult.Error())
	assert.Error(t, failedResult.Error())
}

var errorMsgTests = []stringTest{
	{successResult, ""},
	{failedResult, "Failed result"},
}

func TestErrorMsg(t *testing.T) {
	for _, test := range errorMsgTests {
		assert.Equal(t, test.arg.ErrorMsg(), test.expected)
	}
}

func TestErrorDetails(t *testing.T) {
	assert.Nil(t, successResult.ErrorDetails())
	assert.NotNil(t, failedResult.ErrorDetails())
	assert.Equal(t, "failed_result", failedResult.ErrorCode())
	assert.Equal(t, "More details", failedResult.ErrorMessage())
}

func TestRetryableAndCapturableFlags(t *testing.T) {
	result := FailedResult[string](fmt.Errorf("store error"))
	assert.True(t, result.IsRetryable())
	assert.True(t, result.IsCapturable())

	result = result.NonRetryable().NonCapturable()
	assert.False(t, result.IsRetryable())
	assert.False(t, result.IsCapturable())
}
