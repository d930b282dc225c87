package adaptive

import "errors"

var (
	ErrEmptyParameterSpace = errors.New("adaptive: empty parameter space")
	ErrPriorMismatch       = errors.New("adaptive: prior length does not match parameter space")
	ErrUnknownMethod       = errors.New("adaptive: unknown method")
	ErrInvalidSetting      = errors.New("adaptive: invalid setting")
)
