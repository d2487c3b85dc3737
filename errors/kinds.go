package errors

// Kind classifies an error into one of the closed taxonomy categories.
type Kind string

// Transport and upstream errors (retryable by default)
const (
	// KindNetwork indicates a connection-level failure (reset, refused, DNS).
	KindNetwork Kind = "NETWORK"
	// KindTimeout indicates an operation exceeded its deadline.
	KindTimeout Kind = "TIMEOUT"
	// KindRateLimit indicates the upstream throttled the caller.
	KindRateLimit Kind = "RATE_LIMIT"
	// KindAPI indicates an upstream server-side failure (5xx-equivalent).
	KindAPI Kind = "API"
)

// Caller-side errors
const (
	// KindAuthentication indicates missing or rejected credentials.
	KindAuthentication Kind = "AUTHENTICATION"
	// KindConfiguration indicates invalid or missing configuration.
	KindConfiguration Kind = "CONFIGURATION"
	// KindValidation indicates input that failed validation.
	KindValidation Kind = "VALIDATION"
	// KindMissingData indicates required data was absent.
	KindMissingData Kind = "MISSING_DATA"
)

// Process-local errors
const (
	// KindProcessing indicates a failure while transforming data.
	KindProcessing Kind = "PROCESSING"
	// KindMemory indicates an allocation or memory pressure failure.
	KindMemory Kind = "MEMORY"
	// KindState indicates an illegal internal state transition.
	KindState Kind = "STATE"
	// KindSystem indicates a failure in the resilience machinery itself.
	KindSystem Kind = "SYSTEM"
	// KindResourceExhaustion indicates a depleted resource (fd, pool, quota).
	KindResourceExhaustion Kind = "RESOURCE_EXHAUSTION"
	// KindInternal indicates an unclassified internal failure.
	KindInternal Kind = "INTERNAL"
	// KindBusinessLogic indicates a domain-rule violation.
	KindBusinessLogic Kind = "BUSINESS_LOGIC"
)

// String returns the kind name.
func (k Kind) String() string { return string(k) }

// Severity orders errors by operational impact.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Strategy is the default recovery action associated with an error kind.
type Strategy string

const (
	StrategyRetry    Strategy = "retry"
	StrategyFallback Strategy = "fallback"
	StrategySkip     Strategy = "skip"
	StrategyDegrade  Strategy = "degrade"
	StrategyAbort    Strategy = "abort"
)

// String returns the strategy name.
func (s Strategy) String() string { return string(s) }

// profile is the (severity, strategy, retryable) triple every kind maps to.
type profile struct {
	severity  Severity
	strategy  Strategy
	retryable bool
}

// kindProfiles is the closed defaults table. Every Kind constant must have
// an entry; unknown kinds fall back to the KindInternal profile.
var kindProfiles = map[Kind]profile{
	KindNetwork:            {SeverityLow, StrategyRetry, true},
	KindTimeout:            {SeverityLow, StrategyRetry, true},
	KindRateLimit:          {SeverityMedium, StrategyRetry, true},
	KindAPI:                {SeverityMedium, StrategyRetry, true},
	KindAuthentication:     {SeverityHigh, StrategyAbort, false},
	KindConfiguration:      {SeverityHigh, StrategyAbort, false},
	KindValidation:         {SeverityLow, StrategySkip, false},
	KindMissingData:        {SeverityLow, StrategyFallback, false},
	KindProcessing:         {SeverityMedium, StrategyFallback, false},
	KindMemory:             {SeverityCritical, StrategyDegrade, false},
	KindState:              {SeverityHigh, StrategyAbort, false},
	KindSystem:             {SeverityHigh, StrategyAbort, false},
	KindResourceExhaustion: {SeverityCritical, StrategyDegrade, false},
	KindInternal:           {SeverityMedium, StrategyAbort, false},
	KindBusinessLogic:      {SeverityMedium, StrategySkip, false},
}

// Kinds returns every kind defined in the taxonomy.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindProfiles))
	for k := range kindProfiles {
		out = append(out, k)
	}
	return out
}

// DefaultSeverity returns the default severity for a kind.
func DefaultSeverity(k Kind) Severity { return profileFor(k).severity }

// DefaultStrategy returns the default recovery strategy for a kind.
func DefaultStrategy(k Kind) Strategy { return profileFor(k).strategy }

// IsRetryableKind returns true if the kind is retryable by default.
func IsRetryableKind(k Kind) bool { return profileFor(k).retryable }

// RetryableKinds returns the kinds that are retryable by default.
func RetryableKinds() []Kind {
	return []Kind{KindNetwork, KindTimeout, KindRateLimit, KindAPI}
}

// ParseKind converts a string into a Kind. Matching is case-insensitive;
// unknown values return KindInternal and false.
func ParseKind(s string) (Kind, bool) {
	k := Kind(normalizeKind(s))
	if _, ok := kindProfiles[k]; ok {
		return k, true
	}
	return KindInternal, false
}

func profileFor(k Kind) profile {
	if p, ok := kindProfiles[k]; ok {
		return p
	}
	return kindProfiles[KindInternal]
}

func normalizeKind(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
			out = append(out, c-'a'+'A')
		case c == '-' || c == ' ':
			out = append(out, '_')
		default:
			out = append(out, c)
		}
	}
	return string(out)
}
