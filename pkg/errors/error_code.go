package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown   ErrorCode = 1
	ErrCodeCancelled ErrorCode = 2

	// Validation and configuration errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidPeriod        ErrorCode = 102
	ErrCodeInvalidBufferMode    ErrorCode = 103
	ErrCodeInvalidVersion       ErrorCode = 104
	ErrCodeVersionMismatch      ErrorCode = 105
	ErrCodeInvalidSchedule      ErrorCode = 106

	// Data faults (200-299). Fatal: the run aborts.
	ErrCodeDataFault          ErrorCode = 200
	ErrCodeOutOfOrderData     ErrorCode = 201
	ErrCodeMalformedBar       ErrorCode = 202
	ErrCodeFeedUnavailable    ErrorCode = 203
	ErrCodeQueryFailed        ErrorCode = 204
	ErrCodeDuplicateFeed      ErrorCode = 205
	ErrCodeFeedNotPreloaded   ErrorCode = 206
	ErrCodeResultsWriteFailed ErrorCode = 207

	// Computation faults (300-399). Recovered per node and tick.
	ErrCodeComputationFault       ErrorCode = 300
	ErrCodeKernelPanic            ErrorCode = 301
	ErrCodeIndicatorNotFound      ErrorCode = 302
	ErrCodeIndicatorAlreadyExists ErrorCode = 303

	// Strategy and intent errors (400-499)
	ErrCodeIntentRejected      ErrorCode = 400
	ErrCodeIntentDuringWarmup  ErrorCode = 401
	ErrCodeBrokerUnavailable   ErrorCode = 402
	ErrCodeStrategyConfigError ErrorCode = 403

	// Graph faults (600-699). Detected at build time.
	ErrCodeGraphFault         ErrorCode = 600
	ErrCodeCyclicDependency   ErrorCode = 601
	ErrCodeMissingBinding     ErrorCode = 602
	ErrCodeDuplicateNode      ErrorCode = 603
	ErrCodeUnknownOutput      ErrorCode = 604
	ErrCodeGraphNotBuilt      ErrorCode = 605
	ErrCodeEngineStateInvalid ErrorCode = 606

	// Callback errors (800-899)
	ErrCodeCallbackFailed ErrorCode = 800
)
